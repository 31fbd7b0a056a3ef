package services

import (
	"context"
	"os"
	"sync"

	"github.com/d-madiou/to-meet-yours/internal/client/models"
	"github.com/d-madiou/to-meet-yours/internal/logging"
)

const pathRegisterDevice = "/users/device-tokens/register/"

// DeviceTokenSource yields this installation's push token. storage.Store
// implements it.
type DeviceTokenSource interface {
	DeviceToken(ctx context.Context) (string, error)
}

type NotificationHandler func(models.Notification)

// NotificationService registers the device for push delivery and fans
// incoming notifications out to listeners.
type NotificationService interface {
	// Initialize registers the device token with the backend. Failures are
	// logged, never returned.
	Initialize(ctx context.Context)
	// SetupListeners adds the handlers; either may be nil. The returned func
	// removes them and is safe to call more than once.
	SetupListeners(onReceived, onTapped NotificationHandler) func()
	// Dispatch delivers n to the current listeners.
	Dispatch(n models.Notification, tapped bool)
}

type listenerPair struct {
	onReceived NotificationHandler
	onTapped   NotificationHandler
}

type notificationService struct {
	client   Client
	tokens   DeviceTokenSource
	platform string
	log      logging.Logger

	mu        sync.Mutex
	listeners map[int]listenerPair
	nextID    int
}

func NewNotificationService(client Client, tokens DeviceTokenSource, platform string, log logging.Logger) NotificationService {
	return &notificationService{
		client:    client,
		tokens:    tokens,
		platform:  platform,
		log:       log,
		listeners: make(map[int]listenerPair),
	}
}

func (n *notificationService) Initialize(ctx context.Context) {
	token, err := n.tokens.DeviceToken(ctx)
	if err != nil {
		n.log.Error(ctx, "failed to get device token", "error", err)
		return
	}

	name, err := os.Hostname()
	if err != nil || name == "" {
		name = "Unknown"
	}

	req := models.DeviceTokenRequest{Token: token, Platform: n.platform, DeviceName: name}
	if err := n.client.Post(ctx, pathRegisterDevice, req, nil); err != nil {
		n.log.Error(ctx, "failed to send device token to backend", "error", err)
		return
	}
	n.log.Info(ctx, "device token registered", "platform", n.platform)
}

func (n *notificationService) SetupListeners(onReceived, onTapped NotificationHandler) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = listenerPair{onReceived: onReceived, onTapped: onTapped}
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.listeners, id)
		n.mu.Unlock()
	}
}

func (n *notificationService) Dispatch(msg models.Notification, tapped bool) {
	n.mu.Lock()
	pairs := make([]listenerPair, 0, len(n.listeners))
	for _, p := range n.listeners {
		pairs = append(pairs, p)
	}
	n.mu.Unlock()

	for _, p := range pairs {
		h := p.onReceived
		if tapped {
			h = p.onTapped
		}
		if h != nil {
			h(msg)
		}
	}
}

// TapTarget returns the screen a tapped notification opens: the matches
// screen for likes and matches, the conversation list for messages.
func TapTarget(msg models.Notification) string {
	switch msg.Data.Type {
	case models.NotificationLike, models.NotificationMatch:
		return "matches"
	case models.NotificationMessage:
		return "messages"
	}
	return ""
}
