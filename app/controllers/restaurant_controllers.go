package controllers

import (
	"github.com/feastly/feastly/app/services"
	"github.com/feastly/feastly/pkg/ctx"
)

type RestaurantController struct {
	service *services.RestaurantService
}

func NewRestaurantController(s *services.RestaurantService) *RestaurantController {
	return &RestaurantController{service: s}
}

type applyRequest struct {
	Title       string `json:"title"       validate:"required,max=100"`
	Description string `json:"description" validate:"nullable,max=1000"`
	GSTNumber   string `json:"gstNumber"   validate:"required,between=15,15"`
	Address     string `json:"address"     validate:"required,max=255"`
	Phone       string `json:"phone"       validate:"required,digits=10"`
	Image       string `json:"image"       validate:"nullable,max=255"`
}

type restaurantStatusRequest struct {
	Status string `json:"status" validate:"required,in=Pending,Approved,Rejected"`
}

func (c *RestaurantController) Apply(x *ctx.Context) {
	var req applyRequest
	if !x.BindJSON(&req) {
		return
	}
	r, err := c.service.Apply(x.Context(), x.UserID(), services.RestaurantInput{
		Title:       req.Title,
		Description: req.Description,
		GSTNumber:   req.GSTNumber,
		Address:     req.Address,
		Phone:       req.Phone,
		Image:       req.Image,
	})
	if err != nil {
		respondError(x, err)
		return
	}
	x.Created(r)
}

// Status returns the caller's own application.
func (c *RestaurantController) Status(x *ctx.Context) {
	r, err := c.service.Mine(x.Context(), x.UserID())
	if err != nil {
		respondError(x, err)
		return
	}
	x.Success(r)
}

// Applications lists applications, optionally ?status=Pending.
func (c *RestaurantController) Applications(x *ctx.Context) {
	list, err := c.service.List(x.Context(), x.Query("status"))
	if err != nil {
		respondError(x, err)
		return
	}
	x.Success(list)
}

func (c *RestaurantController) SetStatus(x *ctx.Context) {
	var req restaurantStatusRequest
	if !x.BindJSON(&req) {
		return
	}
	r, err := c.service.SetStatus(x.Context(), x.Param("id"), req.Status)
	if err != nil {
		respondError(x, err)
		return
	}
	x.Success(r)
}
