package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/fixora/accounts/application/port/inbound"
	"github.com/fixora/accounts/application/port/outbound"
	"github.com/fixora/accounts/domain/entity"
	"github.com/fixora/accounts/infrastructure/service/logger"
	"github.com/fixora/accounts/pkg/apperror"
)

var (
	ErrInvalidCredentials = apperror.New(apperror.CodeInvalidCredentials, http.StatusUnauthorized, "Credenciales inválidas")
	ErrUserNotFound       = apperror.NewNotFound("Usuario no encontrado")
	ErrUserAlreadyExists  = apperror.NewConflict("El usuario ya existe")
	ErrUsernameTaken      = apperror.NewConflict("El nombre de usuario ya está en uso")
	ErrGmailTaken         = apperror.NewConflict("El gmail ya está registrado")
	ErrMissingFields      = apperror.NewValidation("username, gmail, password y birthday son requeridos")
	ErrInvalidBirthday    = apperror.NewValidation("La fecha de nacimiento debe tener el formato AAAA-MM-DD")
	ErrInvalidRole        = apperror.NewValidation("Rol inválido: solo se permite 'user'")
)

const (
	MsgUserCreated    = "USUARIO CREADO CON EXITO"
	MsgLoginOK        = "LOGIN EXITOSO"
	MsgTokenRefreshed = "Nuevo token generado"
)

type AccountUseCase struct {
	userRepository  outbound.UserRepository
	tokenService    outbound.TokenService
	passwordService outbound.PasswordService
	userCache       outbound.UserCache
	logger          logger.Logger
}

type Option func(*AccountUseCase)

// WithUserCache lets GetUser read profiles through cache.
func WithUserCache(cache outbound.UserCache) Option {
	return func(uc *AccountUseCase) {
		uc.userCache = cache
	}
}

func NewAccountUseCase(
	userRepo outbound.UserRepository,
	tokenService outbound.TokenService,
	passwordService outbound.PasswordService,
	log logger.Logger,
	opts ...Option,
) *AccountUseCase {
	uc := &AccountUseCase{
		userRepository:  userRepo,
		tokenService:    tokenService,
		passwordService: passwordService,
		logger:          log,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

var _ inbound.AccountUseCase = (*AccountUseCase)(nil)

func (uc *AccountUseCase) Register(ctx context.Context, req inbound.CreateUserRequest) (*entity.User, error) {
	username := strings.TrimSpace(req.Username)
	gmail := normalizeGmail(req.Gmail)
	if username == "" || gmail == "" || req.Password == "" || req.Birthday == "" {
		return nil, ErrMissingFields
	}

	birthday, ok := entity.ParseBirthday(req.Birthday)
	if !ok {
		return nil, ErrInvalidBirthday
	}

	rol, err := resolveRole(req.Rol)
	if err != nil {
		return nil, err
	}

	if err := uc.ensureUsernameFree(ctx, username); err != nil {
		return nil, err
	}
	if err := uc.ensureGmailFree(ctx, gmail); err != nil {
		return nil, err
	}

	hashedPassword, err := uc.passwordService.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := entity.NewUser(uuid.NewString(), username, gmail, hashedPassword, birthday, rol)
	if err := uc.userRepository.Create(ctx, user); err != nil {
		if errors.Is(err, outbound.ErrUserAlreadyExists) {
			return nil, ErrUserAlreadyExists.Wrap(err)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	uc.logger.Info(ctx, "User registered", map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
	})

	return user, nil
}

func (uc *AccountUseCase) Login(ctx context.Context, req inbound.LoginRequest) (*inbound.LoginResponse, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := uc.userRepository.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			logger.LogAuthEvent(ctx, uc.logger, "login_failed_user_not_found", "", "", false, map[string]interface{}{
				"username": username,
			})
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	valid, err := uc.passwordService.VerifyPassword(req.Password, user.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		logger.LogAuthEvent(ctx, uc.logger, "login_failed_invalid_password", user.ID, "", false, nil)
		return nil, ErrInvalidCredentials
	}

	claim := identityOf(user)
	accessToken, err := uc.tokenService.IssueAccessToken(claim)
	if err != nil {
		return nil, err
	}
	refreshToken, err := uc.tokenService.IssueRefreshToken(claim)
	if err != nil {
		return nil, err
	}

	logger.LogAuthEvent(ctx, uc.logger, "login_success", user.ID, "", true, nil)

	return &inbound.LoginResponse{
		Message:      MsgLoginOK,
		User:         user,
		Token:        accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// RefreshAccessToken mints a new access token for an identity whose refresh
// token was already verified. The refresh token itself is left as is.
func (uc *AccountUseCase) RefreshAccessToken(ctx context.Context, claim outbound.IdentityClaim) (*inbound.RefreshResponse, error) {
	user, err := uc.findUser(ctx, claim.ID)
	if err != nil {
		return nil, err
	}

	accessToken, err := uc.tokenService.IssueAccessToken(identityOf(user))
	if err != nil {
		return nil, err
	}

	logger.LogAuthEvent(ctx, uc.logger, "access_token_refreshed", user.ID, "", true, nil)

	return &inbound.RefreshResponse{
		Message: MsgTokenRefreshed,
		Token:   accessToken,
	}, nil
}

func (uc *AccountUseCase) ListUsers(ctx context.Context) ([]*entity.User, error) {
	users, err := uc.userRepository.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	if users == nil {
		users = []*entity.User{}
	}
	return users, nil
}

func (uc *AccountUseCase) GetUser(ctx context.Context, id string) (*entity.User, error) {
	if uc.userCache != nil {
		cached, err := uc.userCache.Get(ctx, id)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, outbound.ErrCacheMiss) {
			uc.logger.Warn(ctx, "User cache read failed", map[string]interface{}{
				"user_id": id,
				"error":   err.Error(),
			})
		}
	}

	user, err := uc.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if uc.userCache != nil {
		if err := uc.userCache.Set(ctx, user); err != nil {
			uc.logger.Warn(ctx, "User cache write failed", map[string]interface{}{
				"user_id": id,
				"error":   err.Error(),
			})
		}
	}
	return user, nil
}

func (uc *AccountUseCase) UpdateUser(ctx context.Context, id string, req inbound.UpdateUserRequest) (*entity.User, error) {
	user, err := uc.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			return nil, ErrMissingFields
		}
		if username != user.Username {
			if err := uc.ensureUsernameFree(ctx, username); err != nil {
				return nil, err
			}
			user.Username = username
		}
	}

	if req.Gmail != nil {
		gmail := normalizeGmail(*req.Gmail)
		if gmail == "" {
			return nil, ErrMissingFields
		}
		if gmail != user.Gmail {
			if err := uc.ensureGmailFree(ctx, gmail); err != nil {
				return nil, err
			}
			user.Gmail = gmail
		}
	}

	if req.Birthday != nil {
		birthday, ok := entity.ParseBirthday(*req.Birthday)
		if !ok {
			return nil, ErrInvalidBirthday
		}
		user.Birthday = birthday
	}

	if req.Rol != nil {
		rol, err := resolveRole(*req.Rol)
		if err != nil {
			return nil, err
		}
		user.Rol = rol
	}

	if req.Password != nil {
		hashedPassword, err := uc.passwordService.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.Password = hashedPassword
	}

	user.Touch()
	if err := uc.userRepository.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, outbound.ErrUserNotFound):
			return nil, ErrUserNotFound.Wrap(err)
		case errors.Is(err, outbound.ErrUserAlreadyExists):
			return nil, ErrUserAlreadyExists.Wrap(err)
		default:
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}

	uc.invalidate(ctx, user.ID)

	uc.logger.Info(ctx, "User updated", map[string]interface{}{
		"user_id": user.ID,
	})

	return user, nil
}

func (uc *AccountUseCase) DeleteUser(ctx context.Context, id string) (*entity.User, error) {
	user, err := uc.findUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := uc.userRepository.Delete(ctx, id); err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return nil, ErrUserNotFound.Wrap(err)
		}
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}

	uc.invalidate(ctx, id)

	uc.logger.Info(ctx, "User deleted", map[string]interface{}{
		"user_id": id,
	})

	return user, nil
}

func (uc *AccountUseCase) invalidate(ctx context.Context, id string) {
	if uc.userCache == nil {
		return
	}
	if err := uc.userCache.Invalidate(ctx, id); err != nil {
		uc.logger.Warn(ctx, "User cache invalidation failed", map[string]interface{}{
			"user_id": id,
			"error":   err.Error(),
		})
	}
}

func (uc *AccountUseCase) findUser(ctx context.Context, id string) (*entity.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrUserNotFound
	}
	user, err := uc.userRepository.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, outbound.ErrUserNotFound) {
			return nil, ErrUserNotFound.Wrap(err)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

func (uc *AccountUseCase) ensureUsernameFree(ctx context.Context, username string) error {
	exists, err := uc.userRepository.ExistsByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to check username existence: %w", err)
	}
	if exists {
		return ErrUsernameTaken
	}
	return nil
}

func (uc *AccountUseCase) ensureGmailFree(ctx context.Context, gmail string) error {
	exists, err := uc.userRepository.ExistsByGmail(ctx, gmail)
	if err != nil {
		return fmt.Errorf("failed to check gmail existence: %w", err)
	}
	if exists {
		return ErrGmailTaken
	}
	return nil
}

func identityOf(user *entity.User) outbound.IdentityClaim {
	role := user.Rol
	if role == "" {
		role = outbound.RoleUser
	}
	return outbound.IdentityClaim{ID: user.ID, Role: role}
}

func resolveRole(rol string) (string, error) {
	rol = strings.TrimSpace(rol)
	switch rol {
	case "", outbound.RoleUser:
		return outbound.RoleUser, nil
	default:
		return "", ErrInvalidRole
	}
}

func normalizeGmail(gmail string) string {
	return strings.ToLower(strings.TrimSpace(gmail))
}
