package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Benrobo/nexusai-sub000/internal/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// RefreshTokenSource looks up the Google refresh token stored for a tenant.
type RefreshTokenSource interface {
	GoogleRefreshToken(ctx context.Context, userID string) (token string, email string, err error)
}

var ErrNoRefreshToken = errors.New("auth: no google refresh token on file")

// GoogleRefresher implements Refresher by exchanging the tenant's stored
// Google refresh token for a fresh Google access token, then minting a new
// local session pair. The exchange doubles as proof the Google grant is
// still valid.
type GoogleRefresher struct {
	oauth   *oauth2.Config
	users   RefreshTokenSource
	manager *Manager
	clock   func() time.Time
}

func NewGoogleRefresher(cfg config.AuthConfig, users RefreshTokenSource, m *Manager) *GoogleRefresher {
	return &GoogleRefresher{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		users:   users,
		manager: m,
		clock:   time.Now,
	}
}

func (g *GoogleRefresher) Refresh(ctx context.Context, userID string) (TokenPair, Identity, error) {
	refreshToken, email, err := g.users.GoogleRefreshToken(ctx, userID)
	if err != nil {
		return TokenPair{}, Identity{}, err
	}
	if refreshToken == "" {
		return TokenPair{}, Identity{}, ErrNoRefreshToken
	}

	src := g.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	if _, err := src.Token(); err != nil {
		return TokenPair{}, Identity{}, fmt.Errorf("google token refresh: %w", err)
	}

	pair, err := g.manager.IssuePair(g.clock().UTC(), userID, email)
	if err != nil {
		return TokenPair{}, Identity{}, err
	}
	return pair, Identity{UserID: userID, Email: email}, nil
}
