package controllers

import (
	"github.com/feastly/feastly/app/models"
	"github.com/feastly/feastly/app/services"
	"github.com/feastly/feastly/pkg/ctx"
)

type AuthController struct {
	service *services.AuthService
}

func NewAuthController(s *services.AuthService) *AuthController {
	return &AuthController{service: s}
}

type registerRequest struct {
	Name     string `json:"name"     validate:"required,max=255"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone"    validate:"nullable,digits=10"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type roleRequest struct {
	Role string `json:"role" validate:"required,in=user,admin,restaurant"`
}

type authResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

func (c *AuthController) Register(x *ctx.Context) {
	var req registerRequest
	if !x.BindJSON(&req) {
		return
	}
	res, err := c.service.Register(x.Context(), services.RegisterInput{
		Name: req.Name, Email: req.Email, Password: req.Password, Phone: req.Phone,
	})
	if err != nil {
		respondError(x, err)
		return
	}
	x.Created(authResponse{User: res.User, Token: res.Token})
}

func (c *AuthController) Login(x *ctx.Context) {
	var req loginRequest
	if !x.BindJSON(&req) {
		return
	}
	res, err := c.service.Login(x.Context(), req.Email, req.Password)
	if err != nil {
		respondError(x, err)
		return
	}
	x.Success(authResponse{User: res.User, Token: res.Token})
}

func (c *AuthController) Me(x *ctx.Context) {
	u, err := c.service.Me(x.Context(), x.UserID())
	if err != nil {
		respondError(x, err)
		return
	}
	x.Success(u)
}

// ShowUser is admin only.
func (c *AuthController) ShowUser(x *ctx.Context) {
	u, err := c.service.Me(x.Context(), x.Param("id"))
	if err != nil {
		respondError(x, err)
		return
	}
	x.Success(u)
}

// SetRole is admin only.
func (c *AuthController) SetRole(x *ctx.Context) {
	var req roleRequest
	if !x.BindJSON(&req) {
		return
	}
	u, err := c.service.SetRole(x.Context(), x.Param("id"), req.Role)
	if err != nil {
		respondError(x, err)
		return
	}
	x.Success(u)
}
