// Package services contains the feature services of the client core: auth,
// profile, messaging and push notifications. They talk to the backend only
// through Client and never write session state themselves.
package services

import (
	"context"

	"github.com/d-madiou/to-meet-yours/internal/client/models"
)

// Client is the subset of api.Client the services depend on.
type Client interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Patch(ctx context.Context, path string, body, out any) error

	GetToken(ctx context.Context) (string, error)
	SetSession(ctx context.Context, token string, user *models.User) error
	SaveUser(ctx context.Context, user *models.User) error
	ClearSession(ctx context.Context) error
	CachedUser(ctx context.Context) (*models.User, error)
}
