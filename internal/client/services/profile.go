package services

import (
	"context"

	"github.com/d-madiou/to-meet-yours/internal/client/models"
)

const (
	pathProfileMe     = "/profile/me/"
	pathProfileUpdate = "/profile/update/"
)

type ProfileService interface {
	GetMyProfile(ctx context.Context) (*models.Profile, error)
	UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.Profile, error)
}

type profileService struct {
	client Client
}

func NewProfileService(client Client) ProfileService {
	return &profileService{client: client}
}

func (p *profileService) GetMyProfile(ctx context.Context) (*models.Profile, error) {
	var profile models.Profile
	if err := p.client.Get(ctx, pathProfileMe, &profile); err != nil {
		return nil, operationError(err, msgProfileFailed)
	}
	return &profile, nil
}

// UpdateProfile sends only the non-nil fields and returns the updated profile,
// including the recomputed completion percentage.
func (p *profileService) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.Profile, error) {
	var resp models.ProfileUpdateResponse
	if err := p.client.Patch(ctx, pathProfileUpdate, upd, &resp); err != nil {
		return nil, operationError(err, msgProfileFailed)
	}
	return &resp.Profile, nil
}
