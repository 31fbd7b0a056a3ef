package services

import (
	"context"
	"errors"

	"github.com/d-madiou/to-meet-yours/internal/client/models"
	"github.com/d-madiou/to-meet-yours/internal/logging"
)

const (
	pathLogin    = "/auth/login/"
	pathRegister = "/auth/register/"
	pathLogout   = "/auth/logout/"
	pathMe       = "/auth/me/"
)

var errNoToken = errors.New("no token in auth response")

// AuthService manages the user session.
//
// Contract:
//   - Login/Register: authenticate and persist token and user snapshot.
//   - Logout: best-effort server call; local session is always cleared.
//   - GetCurrentUser: authoritative "who am I".
//   - CheckSession: false without a network call when no token is stored,
//     otherwise confirms with the server and clears the session on failure.
//   - CachedUser: the snapshot saved at login, for display only.
type AuthService interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Logout(ctx context.Context)
	GetCurrentUser(ctx context.Context) (*models.User, error)
	CheckSession(ctx context.Context) bool
	CachedUser(ctx context.Context) (*models.User, error)
}

type authService struct {
	client Client
	log    logging.Logger
}

func NewAuthService(client Client, log logging.Logger) AuthService {
	return &authService{client: client, log: log}
}

func (a *authService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	return a.authenticate(ctx, pathLogin, req)
}

func (a *authService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	return a.authenticate(ctx, pathRegister, req)
}

func (a *authService) authenticate(ctx context.Context, path string, body any) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := a.client.Post(ctx, path, body, &resp); err != nil {
		return nil, authError(err)
	}
	if resp.Token == "" {
		return nil, &Error{Message: msgAuthFailed, Err: errNoToken}
	}
	if err := a.client.SetSession(ctx, resp.Token, &resp.User); err != nil {
		return nil, &Error{Message: msgUnknown, Err: err}
	}
	return &resp, nil
}

// Logout never fails: a server error is logged and the local session is
// cleared regardless.
func (a *authService) Logout(ctx context.Context) {
	if err := a.client.Post(ctx, pathLogout, nil, nil); err != nil {
		a.log.Warn(ctx, "server logout failed", "error", err)
	}
	if err := a.client.ClearSession(context.WithoutCancel(ctx)); err != nil {
		a.log.Error(ctx, "failed to clear local session", "error", err)
	}
}

func (a *authService) GetCurrentUser(ctx context.Context) (*models.User, error) {
	var resp models.MeResponse
	if err := a.client.Get(ctx, pathMe, &resp); err != nil {
		return nil, authError(err)
	}
	if err := a.client.SaveUser(ctx, &resp.User); err != nil {
		a.log.Warn(ctx, "failed to refresh cached user", "error", err)
	}
	return &resp.User, nil
}

func (a *authService) CheckSession(ctx context.Context) bool {
	token, err := a.client.GetToken(ctx)
	if err != nil {
		a.log.Error(ctx, "failed to read token", "error", err)
		return false
	}
	if token == "" {
		return false
	}

	if _, err := a.GetCurrentUser(ctx); err != nil {
		a.log.Info(ctx, "session check failed", "error", err)
		if err := a.client.ClearSession(context.WithoutCancel(ctx)); err != nil {
			a.log.Error(ctx, "failed to clear local session", "error", err)
		}
		return false
	}
	return true
}

func (a *authService) CachedUser(ctx context.Context) (*models.User, error) {
	return a.client.CachedUser(ctx)
}
