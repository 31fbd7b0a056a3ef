package authstate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d-madiou/to-meet-yours/internal/client/models"
	"github.com/d-madiou/to-meet-yours/internal/logging"
)

type fakeAuth struct {
	sessionOK   bool
	checkCalls  int
	logoutCalls int
}

func (f *fakeAuth) Login(context.Context, models.LoginRequest) (*models.AuthResponse, error) {
	return nil, nil
}
func (f *fakeAuth) Register(context.Context, models.RegisterRequest) (*models.AuthResponse, error) {
	return nil, nil
}
func (f *fakeAuth) Logout(context.Context) { f.logoutCalls++ }
func (f *fakeAuth) GetCurrentUser(context.Context) (*models.User, error) {
	return nil, nil
}
func (f *fakeAuth) CheckSession(context.Context) bool {
	f.checkCalls++
	return f.sessionOK
}
func (f *fakeAuth) CachedUser(context.Context) (*models.User, error) { return nil, nil }

type fakeProfiles struct {
	profile *models.Profile
	err     error
}

func (f *fakeProfiles) GetMyProfile(context.Context) (*models.Profile, error) {
	return f.profile, f.err
}
func (f *fakeProfiles) UpdateProfile(context.Context, models.ProfileUpdate) (*models.Profile, error) {
	return f.profile, f.err
}

func TestIsProfileComplete_Boundary(t *testing.T) {
	assert.False(t, IsProfileComplete(69))
	assert.True(t, IsProfileComplete(70))
	assert.True(t, IsProfileComplete(100))
	assert.False(t, IsProfileComplete(0))
}

func TestController_StartsLoading(t *testing.T) {
	c := NewController(&fakeAuth{}, &fakeProfiles{}, logging.NewNop())
	require.Equal(t, State{IsLoadingAuth: true}, c.State())
}

func TestController_CheckAuthSession(t *testing.T) {
	tests := []struct {
		name     string
		auth     *fakeAuth
		profiles *fakeProfiles
		want     State
	}{
		{
			name:     "no session",
			auth:     &fakeAuth{},
			profiles: &fakeProfiles{},
			want:     State{},
		},
		{
			name:     "complete profile",
			auth:     &fakeAuth{sessionOK: true},
			profiles: &fakeProfiles{profile: &models.Profile{CompletionPercentage: 70}},
			want:     State{IsAuthenticated: true, IsProfileComplete: true, UserProfile: &models.Profile{CompletionPercentage: 70}},
		},
		{
			name:     "incomplete profile",
			auth:     &fakeAuth{sessionOK: true},
			profiles: &fakeProfiles{profile: &models.Profile{CompletionPercentage: 69}},
			want:     State{IsAuthenticated: true, UserProfile: &models.Profile{CompletionPercentage: 69}},
		},
		{
			name:     "profile fetch fails",
			auth:     &fakeAuth{sessionOK: true},
			profiles: &fakeProfiles{err: errors.New("boom")},
			want:     State{IsAuthenticated: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(tt.auth, tt.profiles, logging.NewNop())

			var seen []State
			c.Subscribe(func(s State) { seen = append(seen, s) })

			c.CheckAuthSession(context.Background())

			require.Equal(t, tt.want, c.State())
			require.Len(t, seen, 2)
			require.True(t, seen[0].IsLoadingAuth)
			require.Equal(t, tt.want, seen[1])
		})
	}
}

func TestController_LogoutAlwaysUnauthenticates(t *testing.T) {
	auth := &fakeAuth{sessionOK: true}
	c := NewController(auth, &fakeProfiles{profile: &models.Profile{CompletionPercentage: 90}}, logging.NewNop())
	c.CheckAuthSession(context.Background())
	require.True(t, c.State().IsAuthenticated)

	c.Logout(context.Background())

	require.Equal(t, State{}, c.State())
	require.Equal(t, 1, auth.logoutCalls)
}

func TestController_SetUserProfileCompletesWithoutRelogin(t *testing.T) {
	auth := &fakeAuth{sessionOK: true}
	c := NewController(auth, &fakeProfiles{profile: &models.Profile{CompletionPercentage: 40}}, logging.NewNop())
	c.CheckAuthSession(context.Background())
	require.False(t, c.State().IsProfileComplete)

	c.SetUserProfile(&models.Profile{CompletionPercentage: 80})

	s := c.State()
	require.True(t, s.IsAuthenticated)
	require.True(t, s.IsProfileComplete)
	require.Equal(t, 1, auth.checkCalls)

	c.SetUserProfile(nil)
	require.False(t, c.State().IsProfileComplete)
}

func TestController_HandleSessionCleared(t *testing.T) {
	c := NewController(&fakeAuth{sessionOK: true}, &fakeProfiles{profile: &models.Profile{CompletionPercentage: 90}}, logging.NewNop())
	c.CheckAuthSession(context.Background())

	c.HandleSessionCleared()
	require.Equal(t, State{}, c.State())
}

func TestController_Unsubscribe(t *testing.T) {
	c := NewController(&fakeAuth{}, &fakeProfiles{}, logging.NewNop())

	calls := 0
	unsubscribe := c.Subscribe(func(State) { calls++ })
	unsubscribe()

	c.CheckAuthSession(context.Background())
	require.Zero(t, calls)
}
