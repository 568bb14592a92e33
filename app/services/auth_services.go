package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/feastly/feastly/app/models"
	repo "github.com/feastly/feastly/app/repositories"
	"github.com/feastly/feastly/pkg/auth"
)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// AuthResult is a user together with a freshly signed token.
type AuthResult struct {
	User  *models.User
	Token string
}

type AuthService struct {
	users repo.UserRepository
}

func NewAuthService(store repo.Store) *AuthService {
	return &AuthService{users: store.Users}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	u := &models.User{
		Name:     in.Name,
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Password: hash,
		Phone:    in.Phone,
		Role:     models.RoleUser,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, fmt.Errorf("%w: email is already registered", ErrConflict)
		}
		return nil, err
	}
	return s.issue(u)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if u.Password == "" || !auth.CheckPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return s.issue(u)
}

func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	return u, err
}

// SetRole changes a user's role. Tokens already issued keep the old role
// until they expire.
func (s *AuthService) SetRole(ctx context.Context, userID, role string) (*models.User, error) {
	switch role {
	case models.RoleUser, models.RoleAdmin, models.RoleRestaurant:
	default:
		return nil, fmt.Errorf("%w: role %q", ErrInvalidStatus, role)
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.Me(ctx, userID)
}

func (s *AuthService) issue(u *models.User) (*AuthResult, error) {
	token, err := auth.GenerateToken(u.ID, u.Role)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &AuthResult{User: u, Token: token}, nil
}
