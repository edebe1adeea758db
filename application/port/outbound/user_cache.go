package outbound

import (
	"context"
	"errors"

	"github.com/fixora/accounts/domain/entity"
)

var ErrCacheMiss = errors.New("cache miss")

// UserCache holds public account profiles. Cached users never carry the password hash.
type UserCache interface {
	Get(ctx context.Context, id string) (*entity.User, error)
	Set(ctx context.Context, user *entity.User) error
	Invalidate(ctx context.Context, id string) error
}
