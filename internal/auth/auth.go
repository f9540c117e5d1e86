// Package auth checks bearer tokens. Tokens are HS256 JWTs whose subject is
// the numeric user id; the is_staff claim grants catalog write access.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/railbooking/config"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gopkg.in/go-jose/go-jose.v2"
	"gopkg.in/go-jose/go-jose.v2/jwt"
)

const identityKey = "auth.identity"

var ErrInvalidSubject = errors.New("token subject is not a user id")

type Identity struct {
	UserID  int64
	IsStaff bool
}

// CustomClaims carries the non-registered claims of a token.
type CustomClaims struct {
	IsStaff bool `json:"is_staff"`
}

func (c *CustomClaims) Validate(context.Context) error {
	return nil
}

type Authenticator struct {
	validator *validator.Validator
}

func NewAuthenticator(cfg config.AuthConfig) (*Authenticator, error) {
	secret := []byte(cfg.Secret)
	keyFunc := func(context.Context) (interface{}, error) {
		return secret, nil
	}

	v, err := validator.New(
		keyFunc,
		validator.HS256,
		cfg.Issuer,
		cfg.Audience,
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, fmt.Errorf("set up jwt validator: %w", err)
	}
	return &Authenticator{validator: v}, nil
}

func (a *Authenticator) Authenticate(ctx context.Context, token string) (*Identity, error) {
	claimsI, err := a.validator.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}
	claims := claimsI.(*validator.ValidatedClaims)

	userID, err := strconv.ParseInt(claims.RegisteredClaims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, ErrInvalidSubject
	}
	identity := &Identity{UserID: userID}
	if custom, ok := claims.CustomClaims.(*CustomClaims); ok {
		identity.IsStaff = custom.IsStaff
	}
	return identity, nil
}

// Middleware rejects requests without a valid bearer token with 401 and
// stores the caller's Identity in the gin context otherwise.
func Middleware(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(401, gin.H{"error": "authentication credentials were not provided"})
			return
		}

		identity, err := a.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("rejected bearer token")
			c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
			c.AbortWithStatusJSON(401, gin.H{"error": "invalid auth token"})
			return
		}

		c.Set(identityKey, *identity)
		c.Next()
	}
}

func FromContext(c *gin.Context) (Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return Identity{}, false
	}
	identity, ok := v.(Identity)
	return identity, ok
}

// WithIdentity is used by handlers' tests and by code that authenticates by other means.
func WithIdentity(c *gin.Context, identity Identity) {
	c.Set(identityKey, identity)
}

// Issuer mints tokens the Authenticator accepts.
type Issuer struct {
	secret   []byte
	issuer   string
	audience []string
}

func NewIssuer(cfg config.AuthConfig) *Issuer {
	return &Issuer{secret: []byte(cfg.Secret), issuer: cfg.Issuer, audience: cfg.Audience}
}

func (i *Issuer) Issue(identity Identity, ttl time.Duration) (string, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: i.secret},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("create signer: %w", err)
	}

	now := time.Now()
	registered := jwt.Claims{
		Subject:   strconv.FormatInt(identity.UserID, 10),
		Issuer:    i.issuer,
		Audience:  jwt.Audience(i.audience),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Expiry:    jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.Signed(signer).
		Claims(registered).
		Claims(CustomClaims{IsStaff: identity.IsStaff}).
		CompactSerialize()
}
