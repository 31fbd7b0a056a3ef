// Package authstate owns the client's derived auth state and notifies
// subscribers whenever it changes.
package authstate

import (
	"context"
	"sync"

	"github.com/d-madiou/to-meet-yours/internal/client/models"
	"github.com/d-madiou/to-meet-yours/internal/client/services"
	"github.com/d-madiou/to-meet-yours/internal/logging"
)

// ProfileCompleteThreshold is the completion percentage at which a profile
// counts as complete.
const ProfileCompleteThreshold = 70

func IsProfileComplete(percentage int) bool {
	return percentage >= ProfileCompleteThreshold
}

// State is a snapshot of the auth state. Once IsLoadingAuth is false,
// IsAuthenticated and IsProfileComplete are authoritative for routing.
type State struct {
	IsAuthenticated   bool
	IsProfileComplete bool
	UserProfile       *models.Profile
	IsLoadingAuth     bool
}

type Controller struct {
	auth     services.AuthService
	profiles services.ProfileService
	log      logging.Logger

	mu     sync.Mutex
	state  State
	subs   map[int]func(State)
	nextID int
}

// NewController starts in the loading state; call CheckAuthSession to leave it.
func NewController(auth services.AuthService, profiles services.ProfileService, log logging.Logger) *Controller {
	return &Controller{
		auth:     auth,
		profiles: profiles,
		log:      log,
		state:    State{IsLoadingAuth: true},
		subs:     make(map[int]func(State)),
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn to receive every new state. The returned func
// removes it.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Controller) set(s State) {
	c.mu.Lock()
	c.state = s
	fns := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

func (c *Controller) update(f func(*State)) {
	c.mu.Lock()
	s := c.state
	c.mu.Unlock()
	f(&s)
	c.set(s)
}

// CheckAuthSession confirms the stored session with the server and loads the
// profile. A failed profile fetch leaves the user authenticated with an
// incomplete profile.
func (c *Controller) CheckAuthSession(ctx context.Context) {
	c.update(func(s *State) { s.IsLoadingAuth = true })

	if !c.auth.CheckSession(ctx) {
		c.log.Info(ctx, "no valid session found")
		c.set(State{})
		return
	}

	profile, err := c.profiles.GetMyProfile(ctx)
	if err != nil {
		c.log.Warn(ctx, "failed to load profile", "error", err)
		c.set(State{IsAuthenticated: true})
		return
	}

	c.log.Info(ctx, "session restored", "profile_completion", profile.CompletionPercentage)
	c.set(State{
		IsAuthenticated:   true,
		IsProfileComplete: IsProfileComplete(profile.CompletionPercentage),
		UserProfile:       profile,
	})
}

// Logout ends the session locally and on the server; it always ends
// unauthenticated.
func (c *Controller) Logout(ctx context.Context) {
	c.auth.Logout(ctx)
	c.set(State{})
}

// SetUserProfile records a profile updated elsewhere in the app and
// re-derives completeness from it.
func (c *Controller) SetUserProfile(p *models.Profile) {
	c.update(func(s *State) {
		s.UserProfile = p
		s.IsProfileComplete = p != nil && IsProfileComplete(p.CompletionPercentage)
	})
}

// HandleSessionCleared is called after the HTTP layer dropped the session
// on a 401.
func (c *Controller) HandleSessionCleared() {
	c.set(State{})
}
