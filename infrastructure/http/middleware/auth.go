package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/fixora/accounts/application/port/outbound"
	"github.com/fixora/accounts/infrastructure/http/response"
	"github.com/fixora/accounts/infrastructure/service/logger"
)

const (
	MsgTokenRequired          = "Token requerido"
	MsgTokenInvalid           = "Token inválido o expirado"
	MsgForbidden              = "No tienes permisos para realizar esta acción"
	MsgRefreshFieldsRequired  = "Refresh token y userId requeridos"
	MsgRefreshTokenInvalid    = "Refresh token inválido o expirado"
	MsgRefreshUserMismatch    = "El userId no coincide con el del token"
	MsgRefreshInternalFailure = "Error interno en la verificación del refresh token"
)

// maxRefreshBody bounds how much of the request body the refresh guard reads.
const maxRefreshBody = 1 << 20

type claimKey struct{}

var errBodyNotObject = errors.New("refresh body is not a JSON object")

type AuthMiddleware struct {
	tokenService outbound.TokenService
	logger       logger.Logger
}

func NewAuthMiddleware(tokenService outbound.TokenService, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
		logger:       log.WithFields(map[string]interface{}{"component": "auth_middleware"}),
	}
}

// RequireAuth lets the request through when it carries a valid access token.
func (m *AuthMiddleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claim, ok := m.authenticate(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaim(r.Context(), claim)))
	}
}

// RequireOwner additionally requires the token identity to match the {id} route variable.
func (m *AuthMiddleware) RequireOwner(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claim, ok := m.authenticate(w, r)
		if !ok {
			return
		}

		targetID := mux.Vars(r)["id"]
		if claim.ID != targetID {
			m.reject(r, "owner_mismatch", claim.ID, map[string]interface{}{
				"target_id": targetID,
			})
			response.Forbidden(w, MsgForbidden)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaim(r.Context(), claim)))
	}
}

// RequireRefreshToken validates the refreshToken/userId pair in the JSON body.
// Faults other than the expected rejections are answered with a 500.
func (m *AuthMiddleware) RequireRefreshToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, ok := m.verifyRefresh(w, r)
		if !ok {
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func (m *AuthMiddleware) verifyRefresh(w http.ResponseWriter, r *http.Request) (ctx context.Context, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			m.internalFailure(w, r, fmt.Errorf("panic: %v", rec))
			ctx, ok = nil, false
		}
	}()

	body, err := readRefreshBody(r)
	if err != nil {
		m.internalFailure(w, r, err)
		return nil, false
	}

	refreshToken, hasToken := stringField(body, "refreshToken")
	userID, hasUserID := stringField(body, "userId")
	if !hasToken || !hasUserID {
		m.reject(r, "refresh_fields_missing", "", nil)
		response.Unauthorized(w, MsgRefreshFieldsRequired)
		return nil, false
	}

	claim, valid := m.tokenService.VerifyRefreshToken(refreshToken)
	if !valid {
		m.reject(r, "refresh_token_invalid", "", nil)
		response.Unauthorized(w, MsgRefreshTokenInvalid)
		return nil, false
	}

	ctx = WithClaim(r.Context(), claim)

	if claim.ID != userID {
		m.reject(r, "refresh_user_mismatch", claim.ID, map[string]interface{}{
			"requested_user_id": userID,
		})
		response.Forbidden(w, MsgRefreshUserMismatch)
		return nil, false
	}

	m.logger.Debug(ctx, "Refresh token accepted", map[string]interface{}{"user_id": claim.ID})
	return ctx, true
}

func (m *AuthMiddleware) authenticate(w http.ResponseWriter, r *http.Request) (outbound.IdentityClaim, bool) {
	token := BearerToken(r)
	if token == "" {
		m.reject(r, "token_missing", "", nil)
		response.Unauthorized(w, MsgTokenRequired)
		return outbound.IdentityClaim{}, false
	}

	claim, ok := m.tokenService.VerifyAccessToken(token)
	if !ok {
		m.reject(r, "token_invalid", "", nil)
		response.Unauthorized(w, MsgTokenInvalid)
		return outbound.IdentityClaim{}, false
	}

	m.logger.Debug(r.Context(), "Access token accepted", map[string]interface{}{"user_id": claim.ID})
	return claim, true
}

func (m *AuthMiddleware) reject(r *http.Request, event, userID string, fields map[string]interface{}) {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["method"] = r.Method
	fields["path"] = r.URL.Path
	logger.LogAuthEvent(r.Context(), m.logger, event, userID, ClientIP(r), false, fields)
}

func (m *AuthMiddleware) internalFailure(w http.ResponseWriter, r *http.Request, err error) {
	m.logger.Error(r.Context(), "Refresh token verification failed", err, map[string]interface{}{
		"path": r.URL.Path,
	})
	response.InternalServerError(w, MsgRefreshInternalFailure)
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header,
// or an empty string for a missing header or another scheme.
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// readRefreshBody decodes the body as a JSON object and rewinds it for the next handler.
// An empty body decodes to an empty object.
func readRefreshBody(r *http.Request) (map[string]interface{}, error) {
	if r.Body == nil {
		return map[string]interface{}{}, nil
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRefreshBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]interface{}{}, nil
	}

	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", errBodyNotObject, err)
	}
	if body == nil {
		return nil, errBodyNotObject
	}
	return body, nil
}

// stringField reports a non-empty string field. Present values of another JSON
// type are rendered as text so they still fail verification or comparison.
func stringField(body map[string]interface{}, key string) (string, bool) {
	value, ok := body[key]
	if !ok || value == nil {
		return "", false
	}
	switch v := value.(type) {
	case string:
		return v, v != ""
	case bool:
		return fmt.Sprint(v), v
	case float64:
		return fmt.Sprint(v), v != 0
	default:
		return fmt.Sprint(v), true
	}
}

func WithClaim(ctx context.Context, claim outbound.IdentityClaim) context.Context {
	return context.WithValue(ctx, claimKey{}, claim)
}

// ClaimFromContext returns the identity attached by one of the guards.
func ClaimFromContext(ctx context.Context) (outbound.IdentityClaim, bool) {
	claim, ok := ctx.Value(claimKey{}).(outbound.IdentityClaim)
	return claim, ok
}

func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.SplitN(forwarded, ",", 2)[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}
