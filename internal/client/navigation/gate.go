// Package navigation decides which top-level flow the user is in (auth,
// profile completion, main app) and keeps push notifications registered
// exactly while the user is authenticated.
package navigation

import (
	"context"
	"sync"

	"github.com/d-madiou/to-meet-yours/internal/client/authstate"
	"github.com/d-madiou/to-meet-yours/internal/client/models"
	"github.com/d-madiou/to-meet-yours/internal/client/services"
	"github.com/d-madiou/to-meet-yours/internal/logging"
)

const (
	GroupAuth = "(auth)"
	GroupTabs = "(tabs)"
)

type Route struct {
	Group  string
	Screen string
}

func (r Route) String() string {
	if r.Group == "" {
		return "/" + r.Screen
	}
	return "/" + r.Group + "/" + r.Screen
}

var (
	LoginRoute           = Route{Group: GroupAuth, Screen: "login"}
	CompleteProfileRoute = Route{Group: GroupAuth, Screen: "makeprofile"}
	MainRoute            = Route{Group: GroupTabs, Screen: "index"}
	MatchesRoute         = Route{Group: GroupTabs, Screen: "matches"}
	MessagesRoute        = Route{Group: GroupTabs, Screen: "messages"}
)

// Decide returns where the user must be sent given the auth state and the
// current route, and false when no redirect is needed.
//
// Precedence: loading (stay), unauthenticated (login unless already in the
// auth group), incomplete profile (completion screen unless in the auth
// group), complete (main app when in the auth group or nowhere yet).
func Decide(s authstate.State, current Route) (Route, bool) {
	if s.IsLoadingAuth {
		return Route{}, false
	}

	inAuth := current.Group == GroupAuth
	if !s.IsAuthenticated {
		if inAuth {
			return Route{}, false
		}
		return LoginRoute, true
	}
	if !s.IsProfileComplete {
		if inAuth {
			return Route{}, false
		}
		return CompleteProfileRoute, true
	}
	if inAuth || current.Group == "" {
		return MainRoute, true
	}
	return Route{}, false
}

// Navigator is the front end's router.
type Navigator interface {
	Current() Route
	Replace(to Route)
	Push(to Route)
}

// Notifier is the part of services.NotificationService the gate drives.
type Notifier interface {
	Initialize(ctx context.Context)
	SetupListeners(onReceived, onTapped services.NotificationHandler) func()
}

type Gate struct {
	ctx      context.Context
	ctrl     *authstate.Controller
	nav      Navigator
	notifier Notifier
	log      logging.Logger

	mu          sync.Mutex
	cleanup     func()
	unsubscribe func()
}

func NewGate(ctx context.Context, ctrl *authstate.Controller, nav Navigator, notifier Notifier, log logging.Logger) *Gate {
	return &Gate{ctx: ctx, ctrl: ctrl, nav: nav, notifier: notifier, log: log}
}

// Start subscribes to the controller and applies the current state.
func (g *Gate) Start() {
	unsubscribe := g.ctrl.Subscribe(g.apply)

	g.mu.Lock()
	g.unsubscribe = unsubscribe
	g.mu.Unlock()

	g.apply(g.ctrl.State())
}

func (g *Gate) apply(s authstate.State) {
	g.mu.Lock()
	initialize := g.syncNotificationsLocked(s)
	current := g.nav.Current()
	to, redirect := Decide(s, current)
	g.mu.Unlock()

	if redirect && to != current {
		g.log.Debug(g.ctx, "redirect", "from", current.String(), "to", to.String())
		g.nav.Replace(to)
	}

	// Last and outside the lock: a 401 while registering the device clears
	// the session, which re-enters apply with the newer state.
	if initialize {
		g.notifier.Initialize(g.ctx)
	}
}

// syncNotificationsLocked sets listeners up once per transition into the
// authenticated state and tears them down when it is left. It reports whether
// the device should be registered.
func (g *Gate) syncNotificationsLocked(s authstate.State) bool {
	switch {
	case s.IsAuthenticated && !s.IsLoadingAuth && g.cleanup == nil:
		g.cleanup = g.notifier.SetupListeners(g.onNotification, g.onNotificationTapped)
		return true
	case !s.IsAuthenticated && g.cleanup != nil:
		g.cleanup()
		g.cleanup = nil
	}
	return false
}

func (g *Gate) onNotification(n models.Notification) {
	g.log.Info(g.ctx, "notification received", "type", string(n.Data.Type), "title", n.Title)
}

func (g *Gate) onNotificationTapped(n models.Notification) {
	switch services.TapTarget(n) {
	case "matches":
		g.nav.Push(MatchesRoute)
	case "messages":
		g.nav.Push(MessagesRoute)
	}
}

// Close stops following the controller and removes notification listeners.
func (g *Gate) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.unsubscribe != nil {
		g.unsubscribe()
		g.unsubscribe = nil
	}
	if g.cleanup != nil {
		g.cleanup()
		g.cleanup = nil
	}
}
