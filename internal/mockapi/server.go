// Package mockapi is an in-memory development backend implementing the REST
// contract the client core consumes: token auth, profiles, conversations,
// paid messaging with a daily free quota, coin wallets and device tokens.
// State lives in memory and is lost on restart.
package mockapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/d-madiou/to-meet-yours/internal/client/models"
	"github.com/d-madiou/to-meet-yours/internal/logging"
	"github.com/d-madiou/to-meet-yours/internal/mockapi/config"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	address  string
	secret   []byte
	tokenTTL time.Duration
	logger   logging.Logger
	state    *state
	router   chi.Router
}

func NewServer(cfg *config.Config, l logging.Logger) *Server {
	s := &Server{
		address:  cfg.Addr,
		secret:   []byte(cfg.SecretKey),
		tokenTTL: cfg.TokenTTL,
		logger:   l.With("module", "mockapi"),
		state:    newState(cfg.FreeMessagesPerDay, cfg.MessageCost, cfg.InitialBalance),
	}
	s.router = s.routes()
	return s
}

// Handler returns the router; every endpoint lives under /api.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register/", s.handleRegister)
		r.Post("/auth/login/", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.tokenAuth)

			r.Post("/auth/logout/", s.handleLogout)
			r.Get("/auth/me/", s.handleMe)

			r.Get("/profile/me/", s.handleProfile)
			r.Patch("/profile/update/", s.handleProfileUpdate)

			r.Get("/conversations/", s.handleConversations)
			r.Get("/conversations/{uuid}/messages/", s.handleConversationMessages)
			r.Post("/conversations/{uuid}/mark_read/", s.handleMarkRead)

			r.Post("/messages/", s.handleSendMessage)
			r.Get("/messages/check_cost/", s.handleCheckCost)
			r.Get("/messages/unread_count/", s.handleUnreadCount)

			r.Get("/wallet/", s.handleWallet)
			r.Post("/wallet/purchase/", s.handlePurchase)

			r.Post("/users/device-tokens/register/", s.handleRegisterDevice)
		})
	})
	return r
}

// Run serves on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{Handler: s.router, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping mock API server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting mock API server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// SeedUser creates an account directly, bypassing HTTP. Intended for demos
// and tests.
func (s *Server) SeedUser(email, username, password string) (*models.User, error) {
	u, fieldErrs, err := s.state.register(models.RegisterRequest{
		Email: email, Username: username, Password: password, PasswordConfirm: password,
	})
	if err != nil {
		return nil, err
	}
	if len(fieldErrs) > 0 {
		return nil, errors.New("invalid seed user")
	}
	return u, nil
}

// SetBalance overrides a user's coin balance.
func (s *Server) SetBalance(userUUID string, balance int) error {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	acc, ok := s.state.accounts[userUUID]
	if !ok {
		return errNotFound
	}
	acc.wallet.Balance = balance
	return nil
}

// SendAs delivers a message from one user to another as if the sender's own
// client had posted it.
func (s *Server) SendAs(senderUUID, receiverUUID, content string) (*models.Message, error) {
	resp, err := s.state.send(senderUUID, receiverUUID, content)
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// Devices returns the device tokens registered for a user.
func (s *Server) Devices(userUUID string) []models.DeviceTokenRequest {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	acc, ok := s.state.accounts[userUUID]
	if !ok {
		return nil
	}
	return append([]models.DeviceTokenRequest(nil), acc.devices...)
}
