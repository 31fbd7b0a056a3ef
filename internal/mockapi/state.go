package mockapi

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/d-madiou/to-meet-yours/internal/client/models"
)

var (
	errNotFound          = errors.New("not found")
	errInvalidLogin      = errors.New("invalid credentials")
	errInsufficientCoins = errors.New("insufficient coins")
)

// fieldErrors is a Django-style validation body: field -> messages.
type fieldErrors map[string][]string

func (f fieldErrors) add(field, msg string) { f[field] = append(f[field], msg) }

type account struct {
	user         models.User
	passwordHash []byte
	profile      models.Profile
	wallet       models.CoinWallet
	devices      []models.DeviceTokenRequest
}

func (a *account) summary() models.BaseUser {
	s := models.BaseUser{ID: a.user.ID, UUID: a.user.UUID, Username: a.user.Username}
	for _, p := range a.profile.Photos {
		if p.IsPrimary {
			url := p.URL
			s.PhotoURL = &url
		}
	}
	return s
}

type conversation struct {
	id        models.ID
	uuid      string
	members   [2]string
	createdAt time.Time
	messages  []*models.Message
}

func (c *conversation) other(userUUID string) string {
	if c.members[0] == userUUID {
		return c.members[1]
	}
	return c.members[0]
}

func (c *conversation) has(userUUID string) bool {
	return c.members[0] == userUUID || c.members[1] == userUUID
}

type quotaKey struct {
	sender, receiver, day string
}

type state struct {
	mu sync.Mutex

	freePerDay     int
	messageCost    int
	initialBalance int
	now            func() time.Time

	accounts      map[string]*account // by user uuid
	byEmail       map[string]*account
	byUsername    map[string]*account
	conversations map[string]*conversation // by uuid
	quota         map[quotaKey]int
	revoked       map[string]struct{}
	nextUserID    int
	nextConvID    int
}

func newState(freePerDay, messageCost, initialBalance int) *state {
	return &state{
		freePerDay:     freePerDay,
		messageCost:    messageCost,
		initialBalance: initialBalance,
		now:            time.Now,
		accounts:       make(map[string]*account),
		byEmail:        make(map[string]*account),
		byUsername:     make(map[string]*account),
		conversations:  make(map[string]*conversation),
		quota:          make(map[quotaKey]int),
		revoked:        make(map[string]struct{}),
	}
}

func (s *state) register(req models.RegisterRequest) (*models.User, fieldErrors, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)

	errs := fieldErrors{}
	if username == "" {
		errs.add("username", "This field may not be blank.")
	}
	if email == "" || !strings.Contains(email, "@") {
		errs.add("email", "Enter a valid email address.")
	}
	if len(req.Password) < 6 {
		errs.add("password", "This password is too short. It must contain at least 6 characters.")
	}
	if req.Password != req.PasswordConfirm {
		errs.add("password_confirm", "Passwords do not match.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[strings.ToLower(username)]; ok && username != "" {
		errs.add("username", "A user with that username already exists.")
	}
	if _, ok := s.byEmail[email]; ok && email != "" {
		errs.add("email", "user with this email already exists.")
	}
	if len(errs) > 0 {
		return nil, errs, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	s.nextUserID++
	acc := &account{
		user: models.User{
			ID:         models.ID(strconv.Itoa(s.nextUserID)),
			UUID:       uuid.NewString(),
			Username:   username,
			Email:      email,
			LastActive: now,
			CreatedAt:  now,
		},
		passwordHash: hash,
		profile: models.Profile{
			MinAgePreference: 18,
			MaxAgePreference: 99,
			MaxDistanceKm:    50,
			Photos:           []models.ProfilePhoto{},
			Interests:        []models.ProfileInterest{},
			CreatedAt:        now,
			UpdatedAt:        now,
		},
		wallet: models.CoinWallet{Balance: s.initialBalance},
	}
	acc.profile.User = acc.user.UUID
	s.refreshCompletion(acc)

	s.accounts[acc.user.UUID] = acc
	s.byEmail[email] = acc
	s.byUsername[strings.ToLower(username)] = acc

	u := acc.user
	return &u, nil, nil
}

func (s *state) login(email, password string) (*models.User, error) {
	s.mu.Lock()
	acc, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	s.mu.Unlock()
	if !ok {
		return nil, errInvalidLogin
	}
	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)); err != nil {
		return nil, errInvalidLogin
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc.user.LastActive = s.now()
	u := acc.user
	return &u, nil
}

func (s *state) revoke(jti string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[jti] = struct{}{}
}

func (s *state) isRevoked(jti string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[jti]
	return ok
}

func (s *state) user(userUUID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[userUUID]
	if !ok {
		return nil, errNotFound
	}
	u := acc.user
	u.IsProfileComplete = acc.profile.CompletionPercentage >= 70
	return &u, nil
}

func (s *state) profile(userUUID string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[userUUID]
	if !ok {
		return nil, errNotFound
	}
	p := acc.profile
	return &p, nil
}

func (s *state) updateProfile(userUUID string, upd models.ProfileUpdate) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[userUUID]
	if !ok {
		return nil, errNotFound
	}

	p := &acc.profile
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	setInt := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	setString(&p.Bio, upd.Bio)
	setString(&p.Gender, upd.Gender)
	setString(&p.City, upd.City)
	setString(&p.Country, upd.Country)
	setString(&p.RelationshipGoal, upd.RelationshipGoal)
	setString(&p.LookingForGender, upd.LookingForGender)
	setInt(&p.MinAgePreference, upd.MinAgePreference)
	setInt(&p.MaxAgePreference, upd.MaxAgePreference)
	setInt(&p.MaxDistanceKm, upd.MaxDistanceKm)
	if upd.BirthDate != nil {
		if *upd.BirthDate == "" {
			p.BirthDate = nil
		} else {
			bd := *upd.BirthDate
			p.BirthDate = &bd
		}
	}
	p.UpdatedAt = s.now()
	s.refreshCompletion(acc)

	out := *p
	return &out, nil
}

// refreshCompletion scores ten profile fields at 10% each.
func (s *state) refreshCompletion(acc *account) {
	p := &acc.profile
	checks := []bool{
		p.Bio != "",
		p.BirthDate != nil,
		p.Gender != "",
		p.City != "",
		p.Country != "",
		p.RelationshipGoal != "",
		p.LookingForGender != "",
		p.MinAgePreference > 0,
		p.MaxAgePreference > 0,
		p.MaxDistanceKm > 0,
	}
	pct := 0
	for _, ok := range checks {
		if ok {
			pct += 10
		}
	}
	p.CompletionPercentage = pct
	acc.user.IsProfileComplete = pct >= 70
}

func (s *state) wallet(userUUID string) (*models.CoinWallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[userUUID]
	if !ok {
		return nil, errNotFound
	}
	w := acc.wallet
	return &w, nil
}

func (s *state) purchase(userUUID string, amount int) (*models.CoinWallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[userUUID]
	if !ok {
		return nil, errNotFound
	}
	acc.wallet.Balance += amount
	acc.wallet.TotalPurchased += amount
	w := acc.wallet
	return &w, nil
}

func (s *state) registerDevice(userUUID string, req models.DeviceTokenRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[userUUID]
	if !ok {
		return errNotFound
	}
	for i, d := range acc.devices {
		if d.Token == req.Token {
			acc.devices[i] = req
			return nil
		}
	}
	acc.devices = append(acc.devices, req)
	return nil
}

func (s *state) costLocked(sender, receiver string) models.MessageCostCheck {
	key := quotaKey{sender: sender, receiver: receiver, day: s.now().UTC().Format(time.DateOnly)}
	sent := s.quota[key]

	remaining := s.freePerDay - sent
	if remaining < 0 {
		remaining = 0
	}
	paid := sent - s.freePerDay
	if paid < 0 {
		paid = 0
	}

	check := models.MessageCostCheck{
		IsFree:                remaining > 0,
		FreeMessagesRemaining: remaining,
		FreeMessagesLimit:     s.freePerDay,
		TotalMessagesToday:    &sent,
		PaidMessagesToday:     &paid,
	}
	if !check.IsFree {
		check.CoinCost = s.messageCost
	}
	return check
}

func (s *state) checkCost(sender, receiver string) (*models.MessageCostCheck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[receiver]; !ok {
		return nil, errNotFound
	}
	c := s.costLocked(sender, receiver)
	return &c, nil
}

func (s *state) conversationBetweenLocked(a, b string) *conversation {
	for _, c := range s.conversations {
		if c.has(a) && c.has(b) {
			return c
		}
	}
	return nil
}

func (s *state) send(sender, receiver, content string) (*models.SendMessageResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, ok := s.accounts[sender]
	if !ok {
		return nil, errNotFound
	}
	to, ok := s.accounts[receiver]
	if !ok {
		return nil, errNotFound
	}

	cost := s.costLocked(sender, receiver)
	if !cost.IsFree {
		if from.wallet.Balance < cost.CoinCost {
			return nil, errInsufficientCoins
		}
		from.wallet.Balance -= cost.CoinCost
		from.wallet.TotalSpent += cost.CoinCost
	}

	now := s.now()
	conv := s.conversationBetweenLocked(sender, receiver)
	if conv == nil {
		s.nextConvID++
		conv = &conversation{
			id:        models.ID(strconv.Itoa(s.nextConvID)),
			uuid:      uuid.NewString(),
			members:   [2]string{sender, receiver},
			createdAt: now,
		}
		s.conversations[conv.uuid] = conv
	}

	msg := &models.Message{
		UUID:      uuid.NewString(),
		Sender:    from.summary(),
		Receiver:  to.summary(),
		Content:   content,
		CoinCost:  cost.CoinCost,
		Delivered: true,
		CreatedAt: now,
	}
	conv.messages = append(conv.messages, msg)
	s.quota[quotaKey{sender: sender, receiver: receiver, day: now.UTC().Format(time.DateOnly)}]++

	return &models.SendMessageResponse{
		Message:  "Message sent successfully",
		Data:     *msg,
		CoinCost: cost.CoinCost,
		WasFree:  cost.IsFree,
	}, nil
}

func (s *state) conversationsFor(userUUID string) []models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Conversation, 0)
	for _, c := range s.conversations {
		if !c.has(userUUID) {
			continue
		}
		other := s.accounts[c.other(userUUID)]
		item := models.Conversation{
			ID:        c.id,
			UUID:      c.uuid,
			OtherUser: other.summary(),
			CreatedAt: c.createdAt,
		}
		for _, m := range c.messages {
			if m.Receiver.UUID == userUUID && !m.IsRead {
				item.UnreadCount++
			}
		}
		if n := len(c.messages); n > 0 {
			last := c.messages[n-1]
			item.LastMessageAt = last.CreatedAt
			item.LatestMessage = &models.LatestMessage{
				Content:        last.Content,
				CreatedAt:      last.CreatedAt,
				IsRead:         last.IsRead,
				SenderUsername: last.Sender.Username,
			}
		}
		out = append(out, item)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastMessageAt.After(out[j].LastMessageAt)
	})
	return out
}

// messages returns the conversation newest first.
func (s *state) messages(userUUID, convUUID string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[convUUID]
	if !ok || !c.has(userUUID) {
		return nil, errNotFound
	}
	out := make([]models.Message, 0, len(c.messages))
	for i := len(c.messages) - 1; i >= 0; i-- {
		out = append(out, *c.messages[i])
	}
	return out, nil
}

func (s *state) markRead(userUUID, convUUID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[convUUID]
	if !ok || !c.has(userUUID) {
		return 0, errNotFound
	}
	now := s.now()
	n := 0
	for _, m := range c.messages {
		if m.Receiver.UUID == userUUID && !m.IsRead {
			m.IsRead = true
			readAt := now
			m.ReadAt = &readAt
			n++
		}
	}
	return n, nil
}

func (s *state) unreadCount(userUUID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, c := range s.conversations {
		if !c.has(userUUID) {
			continue
		}
		for _, m := range c.messages {
			if m.Receiver.UUID == userUUID && !m.IsRead {
				n++
			}
		}
	}
	return n
}
