package cli

import (
	"context"
	"errors"

	"github.com/d-madiou/to-meet-yours/internal/client/api"
	"github.com/d-madiou/to-meet-yours/internal/client/models"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for email, username and password (twice) and creates the
// account. The session is stored and the auth state re-derived, so the gate
// moves the user on. Passwords are wiped before returning.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer clear(password)

	confirm, err := getPassword("Confirm password", a.out)
	if err != nil {
		return err
	}
	defer clear(confirm)

	resp, err := a.auth.Register(ctx, models.RegisterRequest{
		Email:           email,
		Username:        username,
		Password:        string(password),
		PasswordConfirm: string(confirm),
	})
	if err != nil {
		a.printError(err)
		return err
	}

	a.printf("Welcome, %s!\n", resp.User.Username)
	a.ctrl.CheckAuthSession(ctx)
	return nil
}

// Login prompts for credentials and authenticates. On failure the message
// chosen by the auth service is shown.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword("Enter password", a.out)
	if err != nil {
		return err
	}
	defer clear(password)

	resp, err := a.auth.Login(ctx, models.LoginRequest{Email: email, Password: string(password)})
	if err != nil {
		a.printError(err)
		return err
	}

	a.printf("Logged in as %s\n", resp.User.Username)
	a.ctrl.CheckAuthSession(ctx)
	return nil
}

// Logout never fails; the local session is cleared even when the server
// cannot be reached.
func (a *App) Logout(ctx context.Context) error {
	a.ctrl.Logout(ctx)
	a.println("Logged out")
	return nil
}

// WhoAmI shows the current user. When the server is unreachable the cached
// snapshot is shown instead, marked as such.
func (a *App) WhoAmI(ctx context.Context) error {
	u, err := a.auth.GetCurrentUser(ctx)
	if err != nil {
		if !errors.Is(err, api.ErrUnavailable) {
			a.printError(err)
			return err
		}
		cached, cerr := a.auth.CachedUser(ctx)
		if cerr != nil || cached == nil {
			a.printError(err)
			return err
		}
		a.printf("%s <%s> (offline, cached)\n", cached.Username, cached.Email)
		return nil
	}

	a.printf("%s <%s> uuid=%s\n", u.Username, u.Email, u.UUID)
	return nil
}
