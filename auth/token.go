package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nickyhof/ZeroTrustDB/core"
	"github.com/pkg/errors"
)

var ErrInvalidToken = errors.New("invalid role token")

// TokenConfig configures role token validation.
type TokenConfig struct {
	// Secret is the shared secret for HS256/384/512 validation.
	Secret string

	// Issuer is the expected "iss" claim (optional).
	Issuer string

	// Audience is the expected "aud" claim (optional).
	Audience string

	// RoleClaim is the claim holding the role name (default: "role").
	RoleClaim string
}

func (cfg TokenConfig) roleClaim() string {
	if cfg.RoleClaim == "" {
		return "role"
	}
	return cfg.RoleClaim
}

// TokenVerifier turns signed tokens into roles.
type TokenVerifier struct {
	config TokenConfig
}

func NewTokenVerifier(config TokenConfig) (*TokenVerifier, error) {
	if config.Secret == "" {
		return nil, errors.New("token secret is not configured")
	}
	return &TokenVerifier{config: config}, nil
}

// Role validates tokenString and returns the role named by its role claim.
func (v *TokenVerifier) Role(tokenString string) (core.Role, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
	}
	if v.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.config.Issuer))
	}
	if v.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.config.Audience))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(v.config.Secret), nil
	}, opts...)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidToken, "%v", err)
	}
	if !token.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.Wrap(ErrInvalidToken, "unexpected claims type")
	}

	name, _ := claims[v.config.roleClaim()].(string)
	if name == "" {
		return 0, errors.Wrapf(ErrInvalidToken, "token missing %s claim", v.config.roleClaim())
	}

	return core.ParseRole(name)
}

// IssueToken signs an HS256 token for role. A zero ttl issues a token
// without expiry.
func IssueToken(config TokenConfig, role core.Role, ttl time.Duration) (string, error) {
	if config.Secret == "" {
		return "", errors.New("token secret is not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		config.roleClaim(): role.String(),
		"iat":              now.Unix(),
	}
	if ttl > 0 {
		claims["exp"] = now.Add(ttl).Unix()
	}
	if config.Issuer != "" {
		claims["iss"] = config.Issuer
	}
	if config.Audience != "" {
		claims["aud"] = config.Audience
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(config.Secret))
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return signed, nil
}
