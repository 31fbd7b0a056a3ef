package mockapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/d-madiou/to-meet-yours/internal/client/models"
	"github.com/d-madiou/to-meet-yours/internal/mockapi/auth"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error.")
		return false
	}
	return true
}

func (s *Server) issueToken(w http.ResponseWriter, status int, msg string, u *models.User) {
	token, _, err := auth.GenerateToken(u.UUID, s.secret, s.tokenTTL)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, status, models.AuthResponse{Message: msg, User: *u, Token: token})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	u, fieldErrs, err := s.state.register(req)
	if err != nil {
		s.logger.Error(r.Context(), "register failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "registration failed")
		return
	}
	if len(fieldErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, fieldErrs)
		return
	}

	s.issueToken(w, http.StatusCreated, "User registered successfully", u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	u, err := s.state.login(req.Email, req.Password)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   true,
			"message": "Invalid email or password",
		})
		return
	}

	s.issueToken(w, http.StatusOK, "Login successful", u)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.state.revoke(tokenID(r))
	writeMessage(w, http.StatusOK, "Logout successful")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.state.user(userID(r))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	writeJSON(w, http.StatusOK, models.MeResponse{User: *u})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.state.profile(userID(r))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	var upd models.ProfileUpdate
	if !decode(w, r, &upd) {
		return
	}
	if upd.MinAgePreference != nil && upd.MaxAgePreference != nil && *upd.MinAgePreference > *upd.MaxAgePreference {
		writeJSON(w, http.StatusBadRequest, fieldErrors{"min_age_preference": {"Must not exceed max_age_preference."}})
		return
	}

	p, err := s.state.updateProfile(userID(r), upd)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Profile updated successfully", "profile": p})
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	items := s.state.conversationsFor(userID(r))
	writeJSON(w, http.StatusOK, map[string]any{"count": len(items), "results": items})
}

func (s *Server) handleConversationMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.state.messages(userID(r), chi.URLParam(r, "uuid"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	writeJSON(w, http.StatusOK, models.MessagePage{Count: len(msgs), Results: msgs})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	n, err := s.state.markRead(userID(r), chi.URLParam(r, "uuid"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	writeMessage(w, http.StatusOK, fmt.Sprintf("Marked %d messages as read", n))
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req models.SendMessageRequest
	if !decode(w, r, &req) {
		return
	}

	content := strings.TrimSpace(req.Content)
	switch {
	case req.ReceiverUUID == "":
		writeJSON(w, http.StatusBadRequest, fieldErrors{"receiver_uuid": {"This field is required."}})
		return
	case req.ReceiverUUID == userID(r):
		writeMessage(w, http.StatusBadRequest, "You cannot message yourself")
		return
	case content == "":
		writeJSON(w, http.StatusBadRequest, fieldErrors{"content": {"This field may not be blank."}})
		return
	}

	resp, err := s.state.send(userID(r), req.ReceiverUUID, content)
	switch {
	case errors.Is(err, errInsufficientCoins):
		writeMessage(w, http.StatusPaymentRequired,
			fmt.Sprintf("Insufficient coins. You need %d coins to send this message.", s.state.messageCost))
		return
	case errors.Is(err, errNotFound):
		writeMessage(w, http.StatusNotFound, "Receiver not found")
		return
	case err != nil:
		writeDetail(w, http.StatusInternalServerError, "send failed")
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCheckCost(w http.ResponseWriter, r *http.Request) {
	receiver := r.URL.Query().Get("receiver_uuid")
	if receiver == "" {
		writeMessage(w, http.StatusBadRequest, "receiver_uuid is required")
		return
	}

	cost, err := s.state.checkCost(userID(r), receiver)
	if err != nil {
		writeMessage(w, http.StatusNotFound, "Receiver not found")
		return
	}
	writeJSON(w, http.StatusOK, cost)
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.UnreadCountResponse{UnreadCount: s.state.unreadCount(userID(r))})
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.state.wallet(userID(r))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var req models.PurchaseRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Amount <= 0 {
		writeJSON(w, http.StatusBadRequest, fieldErrors{"amount": {"Ensure this value is greater than 0."}})
		return
	}

	wallet, err := s.state.purchase(userID(r), req.Amount)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req models.DeviceTokenRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Token == "" {
		writeJSON(w, http.StatusBadRequest, fieldErrors{"token": {"This field is required."}})
		return
	}

	if err := s.state.registerDevice(userID(r), req); err != nil {
		writeDetail(w, http.StatusNotFound, "Not found.")
		return
	}
	writeMessage(w, http.StatusCreated, "Device token registered")
}
