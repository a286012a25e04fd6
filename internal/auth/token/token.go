// Package token issues and validates the bearer JWTs used by the API.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	authdomain "github.com/smallbiznis/faktur/internal/auth/domain"
	"github.com/smallbiznis/faktur/internal/config"
	userdomain "github.com/smallbiznis/faktur/internal/user/domain"
)

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	genID  *snowflake.Node
}

func NewIssuer(cfg config.Config, genID *snowflake.Node) (*Issuer, error) {
	secret := strings.TrimSpace(cfg.AuthJWTSecret)
	if secret == "" {
		return nil, errors.New("AUTH_JWT_SECRET is required")
	}
	return &Issuer{
		secret: []byte(secret),
		ttl:    cfg.AuthTokenTTL,
		genID:  genID,
	}, nil
}

// Issue signs a token for the user. The token id (jti) is recorded on
// logout to revoke the token early.
func (i *Issuer) Issue(user *userdomain.User, now time.Time) (string, error) {
	claims := Claims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ID:        i.genID.Generate().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Parse validates the signature and expiry and returns the claims.
func (i *Issuer) Parse(rawToken string) (*Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(rawToken, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, authdomain.ErrInvalidToken
		}
		return i.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, authdomain.ErrInvalidToken
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, authdomain.ErrInvalidToken
	}
	return &claims, nil
}
