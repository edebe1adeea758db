package inbound

import (
	"context"

	"github.com/fixora/accounts/application/port/outbound"
	"github.com/fixora/accounts/domain/entity"
)

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50,nospace"`
	Gmail    string `json:"gmail" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Birthday string `json:"birthday" validate:"required,birthday"`
	Rol      string `json:"rol" validate:"omitempty,oneof=user"`
}

// UpdateUserRequest holds a partial update; nil fields are left untouched.
type UpdateUserRequest struct {
	Username *string `json:"username,omitempty" validate:"omitempty,min=3,max=50,nospace"`
	Gmail    *string `json:"gmail,omitempty" validate:"omitempty,email"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
	Birthday *string `json:"birthday,omitempty" validate:"omitempty,birthday"`
	Rol      *string `json:"rol,omitempty" validate:"omitempty,oneof=user"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Message      string       `json:"message"`
	User         *entity.User `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
}

type RefreshResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type CreateUserResponse struct {
	Message string       `json:"message"`
	User    *entity.User `json:"user"`
}

type AccountUseCase interface {
	Register(ctx context.Context, req CreateUserRequest) (*entity.User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	RefreshAccessToken(ctx context.Context, claim outbound.IdentityClaim) (*RefreshResponse, error)
	ListUsers(ctx context.Context) ([]*entity.User, error)
	GetUser(ctx context.Context, id string) (*entity.User, error)
	UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*entity.User, error)
	DeleteUser(ctx context.Context, id string) (*entity.User, error)
}
