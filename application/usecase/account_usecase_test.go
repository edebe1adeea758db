package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fixora/accounts/application/port/inbound"
	"github.com/fixora/accounts/application/port/outbound"
	"github.com/fixora/accounts/domain/entity"
	"github.com/fixora/accounts/infrastructure/config"
	"github.com/fixora/accounts/infrastructure/service/jwt"
	"github.com/fixora/accounts/infrastructure/service/logger"
	"github.com/fixora/accounts/infrastructure/service/password"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) FindAll(ctx context.Context) ([]*entity.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *entity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *entity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) ExistsByGmail(ctx context.Context, gmail string) (bool, error) {
	args := m.Called(ctx, gmail)
	return args.Bool(0), args.Error(1)
}

type fixture struct {
	repo      *MockUserRepository
	tokens    *jwt.JWTService
	passwords *password.BcryptPasswordService
	useCase   *AccountUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens, err := jwt.NewJWTService(&config.Config{
		JWTSecret:        "test-secret",
		JWTRefreshSecret: "test-refresh-secret",
		AccessTokenTTL:   time.Hour,
		RefreshTokenTTL:  7 * 24 * time.Hour,
	})
	require.NoError(t, err)

	repo := &MockUserRepository{}
	passwords := password.NewBcryptPasswordService(bcrypt.MinCost)
	return &fixture{
		repo:      repo,
		tokens:    tokens,
		passwords: passwords,
		useCase:   NewAccountUseCase(repo, tokens, passwords, logger.NewNopLogger()),
	}
}

func (f *fixture) storedUser(t *testing.T, id, username, plainPassword string) *entity.User {
	t.Helper()
	hash, err := f.passwords.HashPassword(plainPassword)
	require.NoError(t, err)
	return entity.NewUser(id, username, username+"@example.com", hash, time.Date(1990, 5, 15, 0, 0, 0, 0, time.UTC), outbound.RoleUser)
}

func validCreateRequest() inbound.CreateUserRequest {
	return inbound.CreateUserRequest{
		Username: "juanperez",
		Gmail:    " Juan@Example.com ",
		Password: "miContraseña123",
		Birthday: "1990-05-15",
	}
}

func strPtr(s string) *string { return &s }

func TestAccountUseCase_Register(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("ExistsByUsername", mock.Anything, "juanperez").Return(false, nil)
		f.repo.On("ExistsByGmail", mock.Anything, "juan@example.com").Return(false, nil)
		f.repo.On("Create", mock.Anything, mock.AnythingOfType("*entity.User")).Return(nil)

		user, err := f.useCase.Register(context.Background(), validCreateRequest())

		require.NoError(t, err)
		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "juan@example.com", user.Gmail)
		assert.Equal(t, outbound.RoleUser, user.Rol)
		assert.Equal(t, time.Date(1990, 5, 15, 0, 0, 0, 0, time.UTC), user.Birthday)
		assert.NotEqual(t, "miContraseña123", user.Password)
		ok, err := f.passwords.VerifyPassword("miContraseña123", user.Password)
		require.NoError(t, err)
		assert.True(t, ok)
		f.repo.AssertExpectations(t)
	})

	t.Run("username taken", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("ExistsByUsername", mock.Anything, "juanperez").Return(true, nil)

		_, err := f.useCase.Register(context.Background(), validCreateRequest())

		assert.ErrorIs(t, err, ErrUsernameTaken)
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("gmail taken", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("ExistsByUsername", mock.Anything, "juanperez").Return(false, nil)
		f.repo.On("ExistsByGmail", mock.Anything, "juan@example.com").Return(true, nil)

		_, err := f.useCase.Register(context.Background(), validCreateRequest())

		assert.ErrorIs(t, err, ErrGmailTaken)
	})

	t.Run("concurrent duplicate", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("ExistsByUsername", mock.Anything, "juanperez").Return(false, nil)
		f.repo.On("ExistsByGmail", mock.Anything, "juan@example.com").Return(false, nil)
		f.repo.On("Create", mock.Anything, mock.Anything).Return(outbound.ErrUserAlreadyExists)

		_, err := f.useCase.Register(context.Background(), validCreateRequest())

		assert.ErrorIs(t, err, ErrUserAlreadyExists)
	})

	t.Run("invalid input", func(t *testing.T) {
		f := newFixture(t)

		req := validCreateRequest()
		req.Birthday = "15/05/1990"
		_, err := f.useCase.Register(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidBirthday)

		req = validCreateRequest()
		req.Rol = "admin"
		_, err = f.useCase.Register(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidRole)

		req = validCreateRequest()
		req.Username = "  "
		_, err = f.useCase.Register(context.Background(), req)
		assert.ErrorIs(t, err, ErrMissingFields)
	})
}

func TestAccountUseCase_Login(t *testing.T) {
	t.Run("success issues both tokens", func(t *testing.T) {
		f := newFixture(t)
		user := f.storedUser(t, "u1", "juanperez", "miContraseña123")
		f.repo.On("FindByUsername", mock.Anything, "juanperez").Return(user, nil)

		res, err := f.useCase.Login(context.Background(), inbound.LoginRequest{Username: "juanperez", Password: "miContraseña123"})

		require.NoError(t, err)
		assert.Equal(t, MsgLoginOK, res.Message)
		assert.Equal(t, user, res.User)

		access, ok := f.tokens.VerifyAccessToken(res.Token)
		require.True(t, ok)
		assert.Equal(t, outbound.IdentityClaim{ID: "u1", Role: outbound.RoleUser}, access)

		refresh, ok := f.tokens.VerifyRefreshToken(res.RefreshToken)
		require.True(t, ok)
		assert.Equal(t, access, refresh)
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newFixture(t)
		user := f.storedUser(t, "u1", "juanperez", "miContraseña123")
		f.repo.On("FindByUsername", mock.Anything, "juanperez").Return(user, nil)

		_, err := f.useCase.Login(context.Background(), inbound.LoginRequest{Username: "juanperez", Password: "otra"})

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByUsername", mock.Anything, "nadie").Return(nil, outbound.ErrUserNotFound)

		_, err := f.useCase.Login(context.Background(), inbound.LoginRequest{Username: "nadie", Password: "x"})

		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("repository failure", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByUsername", mock.Anything, "juanperez").Return(nil, errors.New("connection reset"))

		_, err := f.useCase.Login(context.Background(), inbound.LoginRequest{Username: "juanperez", Password: "x"})

		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAccountUseCase_RefreshAccessToken(t *testing.T) {
	t.Run("issues access token only", func(t *testing.T) {
		f := newFixture(t)
		user := f.storedUser(t, "u1", "juanperez", "miContraseña123")
		f.repo.On("FindByID", mock.Anything, "u1").Return(user, nil)

		res, err := f.useCase.RefreshAccessToken(context.Background(), outbound.IdentityClaim{ID: "u1", Role: outbound.RoleUser})

		require.NoError(t, err)
		assert.Equal(t, MsgTokenRefreshed, res.Message)
		claim, ok := f.tokens.VerifyAccessToken(res.Token)
		require.True(t, ok)
		assert.Equal(t, "u1", claim.ID)
	})

	t.Run("deleted account", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByID", mock.Anything, "gone").Return(nil, outbound.ErrUserNotFound)

		_, err := f.useCase.RefreshAccessToken(context.Background(), outbound.IdentityClaim{ID: "gone", Role: outbound.RoleUser})

		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestAccountUseCase_ListAndGet(t *testing.T) {
	f := newFixture(t)
	user := f.storedUser(t, "u1", "juanperez", "miContraseña123")
	f.repo.On("FindAll", mock.Anything).Return(nil, nil).Once()
	f.repo.On("FindByID", mock.Anything, "u1").Return(user, nil)
	f.repo.On("FindByID", mock.Anything, "u2").Return(nil, outbound.ErrUserNotFound)

	users, err := f.useCase.ListUsers(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)

	got, err := f.useCase.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, user, got)

	_, err = f.useCase.GetUser(context.Background(), "u2")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.useCase.GetUser(context.Background(), "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAccountUseCase_UpdateUser(t *testing.T) {
	t.Run("partial update rehashes password", func(t *testing.T) {
		f := newFixture(t)
		user := f.storedUser(t, "u1", "juanperez", "miContraseña123")
		oldHash := user.Password
		f.repo.On("FindByID", mock.Anything, "u1").Return(user, nil)
		f.repo.On("ExistsByGmail", mock.Anything, "nuevo@example.com").Return(false, nil)
		f.repo.On("Update", mock.Anything, user).Return(nil)

		updated, err := f.useCase.UpdateUser(context.Background(), "u1", inbound.UpdateUserRequest{
			Gmail:    strPtr("Nuevo@Example.com"),
			Password: strPtr("otraContraseña456"),
			Birthday: strPtr("1991-01-02"),
		})

		require.NoError(t, err)
		assert.Equal(t, "juanperez", updated.Username)
		assert.Equal(t, "nuevo@example.com", updated.Gmail)
		assert.Equal(t, time.Date(1991, 1, 2, 0, 0, 0, 0, time.UTC), updated.Birthday)
		assert.NotEqual(t, oldHash, updated.Password)
		ok, err := f.passwords.VerifyPassword("otraContraseña456", updated.Password)
		require.NoError(t, err)
		assert.True(t, ok)
		f.repo.AssertNotCalled(t, "ExistsByUsername", mock.Anything, mock.Anything)
	})

	t.Run("same username skips uniqueness check", func(t *testing.T) {
		f := newFixture(t)
		user := f.storedUser(t, "u1", "juanperez", "miContraseña123")
		f.repo.On("FindByID", mock.Anything, "u1").Return(user, nil)
		f.repo.On("Update", mock.Anything, user).Return(nil)

		_, err := f.useCase.UpdateUser(context.Background(), "u1", inbound.UpdateUserRequest{Username: strPtr("juanperez")})

		require.NoError(t, err)
		f.repo.AssertNotCalled(t, "ExistsByUsername", mock.Anything, mock.Anything)
	})

	t.Run("username taken", func(t *testing.T) {
		f := newFixture(t)
		user := f.storedUser(t, "u1", "juanperez", "miContraseña123")
		f.repo.On("FindByID", mock.Anything, "u1").Return(user, nil)
		f.repo.On("ExistsByUsername", mock.Anything, "maria").Return(true, nil)

		_, err := f.useCase.UpdateUser(context.Background(), "u1", inbound.UpdateUserRequest{Username: strPtr("maria")})

		assert.ErrorIs(t, err, ErrUsernameTaken)
		f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("role escalation rejected", func(t *testing.T) {
		f := newFixture(t)
		user := f.storedUser(t, "u1", "juanperez", "miContraseña123")
		f.repo.On("FindByID", mock.Anything, "u1").Return(user, nil)

		_, err := f.useCase.UpdateUser(context.Background(), "u1", inbound.UpdateUserRequest{Rol: strPtr("admin")})

		assert.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture(t)
		f.repo.On("FindByID", mock.Anything, "u9").Return(nil, outbound.ErrUserNotFound)

		_, err := f.useCase.UpdateUser(context.Background(), "u9", inbound.UpdateUserRequest{})

		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestAccountUseCase_DeleteUser(t *testing.T) {
	t.Run("returns deleted record", func(t *testing.T) {
		f := newFixture(t)
		user := f.storedUser(t, "u1", "juanperez", "miContraseña123")
		f.repo.On("FindByID", mock.Anything, "u1").Return(user, nil)
		f.repo.On("Delete", mock.Anything, "u1").Return(nil)

		deleted, err := f.useCase.DeleteUser(context.Background(), "u1")

		require.NoError(t, err)
		assert.Equal(t, user, deleted)
		f.repo.AssertExpectations(t)
	})

	t.Run("vanished between read and delete", func(t *testing.T) {
		f := newFixture(t)
		user := f.storedUser(t, "u1", "juanperez", "miContraseña123")
		f.repo.On("FindByID", mock.Anything, "u1").Return(user, nil)
		f.repo.On("Delete", mock.Anything, "u1").Return(outbound.ErrUserNotFound)

		_, err := f.useCase.DeleteUser(context.Background(), "u1")

		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

type MockUserCache struct {
	mock.Mock
}

func (m *MockUserCache) Get(ctx context.Context, id string) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserCache) Set(ctx context.Context, user *entity.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserCache) Invalidate(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func TestAccountUseCase_UserCache(t *testing.T) {
	withCache := func(t *testing.T) (*fixture, *MockUserCache) {
		f := newFixture(t)
		cache := &MockUserCache{}
		f.useCase = NewAccountUseCase(f.repo, f.tokens, f.passwords, logger.NewNopLogger(), WithUserCache(cache))
		return f, cache
	}

	t.Run("hit skips repository", func(t *testing.T) {
		f, cache := withCache(t)
		cached := &entity.User{ID: "u1", Username: "juanperez"}
		cache.On("Get", mock.Anything, "u1").Return(cached, nil)

		user, err := f.useCase.GetUser(context.Background(), "u1")

		require.NoError(t, err)
		assert.Equal(t, cached, user)
		f.repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("miss fills cache", func(t *testing.T) {
		f, cache := withCache(t)
		stored := f.storedUser(t, "u1", "juanperez", "miContraseña123")
		cache.On("Get", mock.Anything, "u1").Return(nil, outbound.ErrCacheMiss)
		cache.On("Set", mock.Anything, stored).Return(nil)
		f.repo.On("FindByID", mock.Anything, "u1").Return(stored, nil)

		user, err := f.useCase.GetUser(context.Background(), "u1")

		require.NoError(t, err)
		assert.Equal(t, stored, user)
		cache.AssertExpectations(t)
	})

	t.Run("cache failure falls through", func(t *testing.T) {
		f, cache := withCache(t)
		stored := f.storedUser(t, "u1", "juanperez", "miContraseña123")
		cache.On("Get", mock.Anything, "u1").Return(nil, errors.New("redis down"))
		cache.On("Set", mock.Anything, stored).Return(errors.New("redis down"))
		f.repo.On("FindByID", mock.Anything, "u1").Return(stored, nil)

		user, err := f.useCase.GetUser(context.Background(), "u1")

		require.NoError(t, err)
		assert.Equal(t, stored, user)
	})

	t.Run("update and delete invalidate", func(t *testing.T) {
		f, cache := withCache(t)
		stored := f.storedUser(t, "u1", "juanperez", "miContraseña123")
		f.repo.On("FindByID", mock.Anything, "u1").Return(stored, nil)
		f.repo.On("Update", mock.Anything, stored).Return(nil)
		f.repo.On("Delete", mock.Anything, "u1").Return(nil)
		cache.On("Invalidate", mock.Anything, "u1").Return(nil).Twice()

		_, err := f.useCase.UpdateUser(context.Background(), "u1", inbound.UpdateUserRequest{})
		require.NoError(t, err)
		_, err = f.useCase.DeleteUser(context.Background(), "u1")
		require.NoError(t, err)

		cache.AssertExpectations(t)
	})
}
