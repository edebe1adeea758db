package outbound

// RoleUser is the only role an account can hold.
const RoleUser = "user"

// IdentityClaim is the identity carried inside access and refresh tokens.
type IdentityClaim struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// TokenService issues and verifies the two stateless token kinds.
//
// Verification never fails loudly: a token that is malformed, tampered with,
// signed with another secret or expired reports ok == false.
type TokenService interface {
	IssueAccessToken(claim IdentityClaim) (string, error)
	IssueRefreshToken(claim IdentityClaim) (string, error)
	VerifyAccessToken(token string) (IdentityClaim, bool)
	VerifyRefreshToken(token string) (IdentityClaim, bool)
}
