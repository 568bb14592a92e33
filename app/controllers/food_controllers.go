package controllers

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/feastly/feastly/app/models"
	repo "github.com/feastly/feastly/app/repositories"
	"github.com/feastly/feastly/app/services"
	"github.com/feastly/feastly/pkg/ctx"
)

type FoodController struct {
	service *services.FoodService
}

func NewFoodController(s *services.FoodService) *FoodController {
	return &FoodController{service: s}
}

type foodRequest struct {
	Name        string          `json:"name"        validate:"required,max=50"`
	Description string          `json:"description" validate:"required,max=500"`
	Price       decimal.Decimal `json:"price"       validate:"required,gte=0"`
	Image       string          `json:"image"       validate:"nullable,max=255"`
	Category    string          `json:"category"    validate:"required,in=Pizza,Burger,Sushi,Salad,Dessert,Drinks,Indian,Chinese,Italian,Other"`
	IsAvailable *bool           `json:"isAvailable"`
	Rating      *float64        `json:"rating"      validate:"nullable,between=1,10"`
}

func (r foodRequest) input() services.FoodInput {
	available := true
	if r.IsAvailable != nil {
		available = *r.IsAvailable
	}
	return services.FoodInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Image:       r.Image,
		Category:    models.FoodCategory(r.Category),
		IsAvailable: available,
		Rating:      r.Rating,
	}
}

// Index supports ?category=Pizza&available=true.
func (c *FoodController) Index(x *ctx.Context) {
	f := repo.FoodFilter{Category: models.FoodCategory(x.Query("category"))}
	if f.Category != "" && !f.Category.Valid() {
		x.Problem(http.StatusBadRequest, "Unknown category", "InvalidCategory")
		return
	}
	if raw := x.Query("available"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			x.Problem(http.StatusBadRequest, "available must be true or false", "InvalidFilter")
			return
		}
		f.Available = &b
	}

	foods, err := c.service.List(x.Context(), f)
	if err != nil {
		respondError(x, err)
		return
	}
	x.Success(foods)
}

func (c *FoodController) Show(x *ctx.Context) {
	f, err := c.service.Get(x.Context(), x.Param("id"))
	if err != nil {
		respondError(x, err)
		return
	}
	x.Success(f)
}

func (c *FoodController) Store(x *ctx.Context) {
	var req foodRequest
	if !x.BindJSON(&req) {
		return
	}
	f, err := c.service.Create(x.Context(), actorOf(x), req.input())
	if err != nil {
		respondError(x, err)
		return
	}
	x.Created(f)
}

func (c *FoodController) Update(x *ctx.Context) {
	var req foodRequest
	if !x.BindJSON(&req) {
		return
	}
	f, err := c.service.Update(x.Context(), actorOf(x), x.Param("id"), req.input())
	if err != nil {
		respondError(x, err)
		return
	}
	x.Success(f)
}

func (c *FoodController) Destroy(x *ctx.Context) {
	if err := c.service.Delete(x.Context(), actorOf(x), x.Param("id")); err != nil {
		respondError(x, err)
		return
	}
	x.Success(map[string]string{"message": "Food item removed"})
}
