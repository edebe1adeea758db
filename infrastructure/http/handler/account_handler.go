package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fixora/accounts/application/port/inbound"
	"github.com/fixora/accounts/application/usecase"
	"github.com/fixora/accounts/infrastructure/http/middleware"
	"github.com/fixora/accounts/infrastructure/http/response"
	"github.com/fixora/accounts/infrastructure/http/validator"
	"github.com/fixora/accounts/infrastructure/service/logger"
	"github.com/fixora/accounts/pkg/apperror"
)

const MsgInvalidBody = "Cuerpo de la solicitud inválido"

type AccountHandler struct {
	accountUseCase inbound.AccountUseCase
	authMiddleware *middleware.AuthMiddleware
	logger         logger.Logger
}

func NewAccountHandler(
	accountUseCase inbound.AccountUseCase,
	authMiddleware *middleware.AuthMiddleware,
	log logger.Logger,
) *AccountHandler {
	return &AccountHandler{
		accountUseCase: accountUseCase,
		authMiddleware: authMiddleware,
		logger:         log,
	}
}

// RegisterRoutes mounts the account routes under /api/user.
func (h *AccountHandler) RegisterRoutes(router *mux.Router) {
	users := router.PathPrefix("/api/user").Subrouter()

	users.HandleFunc("", h.CreateUser).Methods(http.MethodPost)
	users.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	users.HandleFunc("/refresh", h.authMiddleware.RequireRefreshToken(h.Refresh)).Methods(http.MethodPost)
	users.HandleFunc("", h.authMiddleware.RequireAuth(h.ListUsers)).Methods(http.MethodGet)
	users.HandleFunc("/{id}", h.authMiddleware.RequireAuth(h.GetUser)).Methods(http.MethodGet)
	users.HandleFunc("/{id}", h.authMiddleware.RequireOwner(h.UpdateUser)).Methods(http.MethodPut)
	users.HandleFunc("/{id}", h.authMiddleware.RequireOwner(h.DeleteUser)).Methods(http.MethodDelete)
}

// CreateUser registers a new account
func (h *AccountHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req inbound.CreateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := validator.ValidateStruct(req); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.accountUseCase.Register(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, http.StatusCreated, inbound.CreateUserResponse{
		Message: usecase.MsgUserCreated,
		User:    user,
	})
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req inbound.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if !validator.ValidateRequired(req.Username) || !validator.ValidateRequired(req.Password) {
		response.Unauthorized(w, usecase.ErrInvalidCredentials.Message)
		return
	}

	loginRes, err := h.accountUseCase.Login(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, loginRes)
}

// Refresh issues a new access token for the identity verified by RequireRefreshToken.
func (h *AccountHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	claim, ok := middleware.ClaimFromContext(r.Context())
	if !ok {
		h.fail(w, r, errors.New("refresh handler reached without verified claim"))
		return
	}

	refreshRes, err := h.accountUseCase.RefreshAccessToken(r.Context(), claim)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, refreshRes)
}

func (h *AccountHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.accountUseCase.ListUsers(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, users)
}

func (h *AccountHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.accountUseCase.GetUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, user)
}

func (h *AccountHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req inbound.UpdateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := validator.ValidateStruct(req); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.accountUseCase.UpdateUser(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, user)
}

func (h *AccountHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.accountUseCase.DeleteUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, user)
}

// fail writes err to the client; anything that is not an AppError is logged and hidden.
func (h *AccountHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "Request failed", err, map[string]interface{}{
			"method": r.Method,
			"path":   r.URL.Path,
		})
	}
	response.FromError(w, err)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, MsgInvalidBody)
		return false
	}
	return true
}
