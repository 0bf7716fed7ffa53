// Package auth keeps the client session token and issues tokens for the
// development backend.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/AngelCh415/kpi-dashboard/internal/api"
	"github.com/AngelCh415/kpi-dashboard/internal/models"
)

// TokenKey is the storage key of the bearer token.
const TokenKey = "token"

// ExpiryMargin: a token expiring sooner than this is treated as already expired.
const ExpiryMargin = 5 * time.Minute

var ErrNotLoggedIn = errors.New("not logged in")

type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Backend is the subset of the REST client the session drives.
type Backend interface {
	Login(ctx context.Context, email, password string) (models.LoginResponse, error)
	Me(ctx context.Context) (models.User, error)
}

// Session implements api.Credentials over a Store.
type Session struct {
	st  Store
	log *zap.Logger
	now func() time.Time
}

func NewSession(st Store, log *zap.Logger) *Session {
	return &Session{st: st, log: log, now: time.Now}
}

// Token returns the stored token when it is still usable. Expired or
// undecodable tokens are removed from the store.
func (s *Session) Token(ctx context.Context) (string, bool) {
	tok, ok, err := s.st.Get(ctx, TokenKey)
	if err != nil {
		s.log.Warn("read token", zap.Error(err))
		return "", false
	}
	if !ok || tok == "" {
		return "", false
	}
	if Expired(tok, s.now()) {
		if err := s.st.Delete(ctx, TokenKey); err != nil {
			s.log.Warn("drop expired token", zap.Error(err))
		}
		s.log.Info("session expired")
		return "", false
	}
	return tok, true
}

func (s *Session) Login(ctx context.Context, b Backend, email, password string) (models.LoginResponse, error) {
	resp, err := b.Login(ctx, email, password)
	if err != nil {
		return resp, err
	}
	if resp.AccessToken == "" {
		return resp, errors.New("login response without access_token")
	}
	if err := s.st.Set(ctx, TokenKey, resp.AccessToken); err != nil {
		return resp, err
	}
	return resp, nil
}

func (s *Session) Logout(ctx context.Context) error {
	return s.st.Delete(ctx, TokenKey)
}

// Me returns the current user. A 401 from the backend ends the session.
func (s *Session) Me(ctx context.Context, b Backend) (models.User, error) {
	if _, ok := s.Token(ctx); !ok {
		return models.User{}, ErrNotLoggedIn
	}
	u, err := b.Me(ctx)
	if api.KindOf(err) == api.KindAuth {
		_ = s.Logout(ctx)
	}
	return u, err
}

// Expired reports whether tok expires before now plus ExpiryMargin. The
// signature is not checked; a token that cannot be decoded counts as expired
// and one without exp never expires.
func Expired(tok string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Time.Before(now.Add(ExpiryMargin))
}
