// Package auth issues and verifies the signed tokens that admit a
// connection to the relay.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"presence-relay/internal/chat"
)

// ErrEmptyUsername is returned by Issue for a blank username.
var ErrEmptyUsername = errors.New("username is required")

// Config holds token settings.
type Config struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// Claims is the token body.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Manager signs and verifies tokens.
type Manager struct {
	config Config
	now    func() time.Time
}

func NewManager(config Config) *Manager {
	if config.TTL <= 0 {
		config.TTL = 24 * time.Hour
	}
	return &Manager{config: config, now: time.Now}
}

// Issue mints a new user id for username and returns a token for it.
func (m *Manager) Issue(username string) (string, chat.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", chat.Identity{}, ErrEmptyUsername
	}
	id := chat.Identity{UserID: chat.NewUserID(), Username: username}

	now := m.now()
	claims := Claims{
		UserID:   id.UserID,
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   id.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.config.Secret))
	if err != nil {
		return "", chat.Identity{}, fmt.Errorf("sign token: %w", err)
	}
	return token, id, nil
}

// Verify checks signature and expiry and yields the identity in the token.
func (m *Manager) Verify(token string) (chat.Identity, error) {
	if token == "" {
		return chat.Identity{}, fmt.Errorf("missing token: %w", chat.ErrUnauthenticated)
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(m.config.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return chat.Identity{}, fmt.Errorf("token expired: %w", chat.ErrUnauthenticated)
		}
		return chat.Identity{}, fmt.Errorf("invalid token: %w", chat.ErrUnauthenticated)
	}
	if !parsed.Valid || claims.UserID == "" || claims.Username == "" {
		return chat.Identity{}, fmt.Errorf("invalid claims: %w", chat.ErrUnauthenticated)
	}
	if m.config.Issuer != "" && claims.Issuer != m.config.Issuer {
		return chat.Identity{}, fmt.Errorf("foreign issuer: %w", chat.ErrUnauthenticated)
	}
	return chat.Identity{UserID: claims.UserID, Username: claims.Username}, nil
}
