// Package chat holds the state of one open conversation: the ordered message
// list with optimistic (pending) entries, the composer draft, the last cost
// check and wallet balance, and the background polling task.
//
// Entries are keyed by id. A pending entry carries a "temp-" id until the
// server confirms it, at which point it is replaced in place; on failure it is
// removed by id and the draft restored. Polling merges by uuid difference, so
// it never replaces the list and never clobbers a pending entry.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/d-madiou/to-meet-yours/internal/client/api"
	"github.com/d-madiou/to-meet-yours/internal/client/metrics"
	"github.com/d-madiou/to-meet-yours/internal/client/models"
	"github.com/d-madiou/to-meet-yours/internal/logging"
)

const (
	TempPrefix = "temp-"

	DefaultPollInterval = 2 * time.Second
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	// ErrInsufficientFunds matches api.ErrInsufficientFunds with errors.Is.
	ErrInsufficientFunds = fmt.Errorf("not enough coins to send this message: %w", api.ErrInsufficientFunds)
)

type Kind int

const (
	KindConfirmed Kind = iota
	KindPending
)

func (k Kind) String() string {
	if k == KindPending {
		return "pending"
	}
	return "confirmed"
}

// Entry is one row of the visible message list.
type Entry struct {
	Kind    Kind
	ID      string
	Message models.Message
}

func IsTemp(id string) bool { return strings.HasPrefix(id, TempPrefix) }

// Service is the part of services.MessagingService a thread uses.
type Service interface {
	GetConversationMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	CheckMessageCost(ctx context.Context, receiverID string) (*models.MessageCostCheck, error)
	GetWalletBalance(ctx context.Context) (*models.CoinWallet, error)
	SendMessage(ctx context.Context, receiverID, content string) (*models.SendMessageResponse, error)
	MarkAsRead(ctx context.Context, conversationID string)
}

type Option func(*Thread)

func WithPollInterval(d time.Duration) Option {
	return func(t *Thread) { t.interval = d }
}

func WithLogger(l logging.Logger) Option {
	return func(t *Thread) { t.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Thread) { t.metrics = m }
}

type Thread struct {
	svc            Service
	conversationID string
	receiverID     string
	me             string

	interval time.Duration
	log      logging.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	mu       sync.Mutex
	order    []string
	entries  map[string]*Entry
	draft    string
	cost     *models.MessageCostCheck
	wallet   *models.CoinWallet
	onChange func()

	pollMu   sync.Mutex
	cancel   context.CancelFunc
	pollDone chan struct{}
}

// NewThread creates the state for the conversation with receiverID.
// conversationID may be empty when no conversation exists yet; currentUserID
// is the uuid or id of the logged-in user.
func NewThread(svc Service, conversationID, receiverID, currentUserID string, opts ...Option) *Thread {
	t := &Thread{
		svc:            svc,
		conversationID: conversationID,
		receiverID:     receiverID,
		me:             currentUserID,
		interval:       DefaultPollInterval,
		log:            logging.NewNop(),
		now:            time.Now,
		entries:        make(map[string]*Entry),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Thread) ConversationID() string { return t.conversationID }

func (t *Thread) ReceiverID() string { return t.receiverID }

// OnChange sets the callback run after every change to the list or draft.
func (t *Thread) OnChange(fn func()) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

func (t *Thread) notify() {
	t.mu.Lock()
	fn := t.onChange
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Messages returns the entries in display order.
func (t *Thread) Messages() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.entries[id])
	}
	return out
}

func (t *Thread) Draft() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.draft
}

func (t *Thread) SetDraft(s string) {
	t.mu.Lock()
	t.draft = s
	t.mu.Unlock()
}

// Cost returns the last cost check, or nil before the first one.
func (t *Thread) Cost() *models.MessageCostCheck {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cost == nil {
		return nil
	}
	c := *t.cost
	return &c
}

// Wallet returns the last known balance, or nil before the first fetch.
func (t *Thread) Wallet() *models.CoinWallet {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.wallet == nil {
		return nil
	}
	w := *t.wallet
	return &w
}

// ascending returns msgs oldest first. Servers send newest first; the
// reversal keeps equal timestamps in send order before the stable sort.
func ascending(msgs []models.Message) []models.Message {
	out := make([]models.Message, len(msgs))
	for i, m := range msgs {
		out[len(msgs)-1-i] = m
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Load fetches messages, cost and wallet concurrently. Only a message fetch
// failure is returned. Pending entries survive a reload unless the server
// already holds the message they stand for.
func (t *Thread) Load(ctx context.Context) error {
	var msgs []models.Message

	g, gctx := errgroup.WithContext(ctx)
	if t.conversationID != "" {
		g.Go(func() error {
			var err error
			msgs, err = t.svc.GetConversationMessages(gctx, t.conversationID)
			return err
		})
	}
	g.Go(func() error {
		t.refreshCost(gctx)
		return nil
	})
	g.Go(func() error {
		t.refreshWallet(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	t.mu.Lock()
	var pending []string
	for _, id := range t.order {
		if t.entries[id].Kind == KindPending {
			pending = append(pending, id)
		}
	}
	adopted := make(map[string]bool, len(pending))
	entries := make(map[string]*Entry, len(msgs)+len(pending))
	order := make([]string, 0, len(msgs)+len(pending))
	for _, m := range ascending(msgs) {
		if _, dup := entries[m.UUID]; dup {
			continue
		}
		// A send still in flight may already be stored server-side; the
		// server copy replaces its pending entry.
		if _, held := t.entries[m.UUID]; !held && m.Sender.Matches(t.me) {
			if tempID := t.firstPendingLocked(pending, adopted, m.Content); tempID != "" {
				adopted[tempID] = true
				m.Delivered = true
			}
		}
		entries[m.UUID] = &Entry{Kind: KindConfirmed, ID: m.UUID, Message: m}
		order = append(order, m.UUID)
	}
	for _, id := range pending {
		if adopted[id] {
			continue
		}
		entries[id] = t.entries[id]
		order = append(order, id)
	}
	t.entries = entries
	t.order = order
	t.mu.Unlock()
	t.notify()

	if len(msgs) > 0 {
		t.svc.MarkAsRead(ctx, t.conversationID)
	}
	return nil
}

func (t *Thread) refreshCost(ctx context.Context) {
	cost, err := t.svc.CheckMessageCost(ctx, t.receiverID)
	if err != nil {
		t.log.Warn(ctx, "cost check failed", "receiver", t.receiverID, "error", err)
		return
	}
	t.mu.Lock()
	t.cost = cost
	t.mu.Unlock()
}

func (t *Thread) refreshWallet(ctx context.Context) {
	wallet, err := t.svc.GetWalletBalance(ctx)
	if err != nil {
		t.log.Warn(ctx, "wallet fetch failed", "error", err)
		return
	}
	t.mu.Lock()
	t.wallet = wallet
	t.mu.Unlock()
}

// Refresh re-fetches cost and wallet concurrently.
func (t *Thread) Refresh(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error {
		t.refreshCost(ctx)
		return nil
	})
	g.Go(func() error {
		t.refreshWallet(ctx)
		return nil
	})
	_ = g.Wait()
	t.notify()
}

// CheckFunds reports ErrInsufficientFunds when the last cost check says the
// next message is paid and the last known balance cannot cover it. An unknown
// cost is left to the server.
func (t *Thread) CheckFunds() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cost == nil || t.cost.IsFree {
		return nil
	}
	balance := 0
	if t.wallet != nil {
		balance = t.wallet.Balance
	}
	if balance < t.cost.CoinCost {
		return ErrInsufficientFunds
	}
	return nil
}

// Send posts text optimistically. Blank text and unaffordable messages are
// rejected before anything is added to the list or sent.
func (t *Thread) Send(ctx context.Context, text string) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	if err := t.CheckFunds(); err != nil {
		return nil, err
	}
	return t.dispatch(ctx, text)
}

// dispatch runs the optimistic protocol without the funds gate.
func (t *Thread) dispatch(ctx context.Context, text string) (*models.Message, error) {
	content := strings.TrimSpace(text)
	tempID := TempPrefix + uuid.NewString()

	pending := &Entry{
		Kind: KindPending,
		ID:   tempID,
		Message: models.Message{
			UUID:      tempID,
			Sender:    models.BaseUser{UUID: t.me},
			Receiver:  models.BaseUser{UUID: t.receiverID},
			Content:   content,
			CreatedAt: t.now(),
		},
	}

	t.mu.Lock()
	t.entries[tempID] = pending
	t.order = append(t.order, tempID)
	t.draft = ""
	t.mu.Unlock()
	t.notify()

	resp, err := t.svc.SendMessage(ctx, t.receiverID, content)
	if err != nil {
		t.mu.Lock()
		t.removeLocked(tempID)
		t.draft = text
		t.mu.Unlock()
		t.notify()
		return nil, err
	}

	msg := resp.Data
	msg.Delivered = true

	t.mu.Lock()
	t.confirmLocked(tempID, msg)
	t.mu.Unlock()
	t.notify()

	t.Refresh(context.WithoutCancel(ctx))
	return &msg, nil
}

func (t *Thread) indexLocked(id string) int {
	for i, v := range t.order {
		if v == id {
			return i
		}
	}
	return -1
}

func (t *Thread) removeLocked(id string) {
	if i := t.indexLocked(id); i >= 0 {
		t.order = append(t.order[:i], t.order[i+1:]...)
	}
	delete(t.entries, id)
}

// confirmLocked swaps the pending entry tempID for msg at the same position.
// If a poll already brought msg in, the pending entry is dropped instead.
func (t *Thread) confirmLocked(tempID string, msg models.Message) {
	_, known := t.entries[msg.UUID]
	i := t.indexLocked(tempID)

	switch {
	case i >= 0 && known:
		t.removeLocked(tempID)
	case i >= 0:
		delete(t.entries, tempID)
		t.entries[msg.UUID] = &Entry{Kind: KindConfirmed, ID: msg.UUID, Message: msg}
		t.order[i] = msg.UUID
	case !known:
		t.insertSortedLocked(&Entry{Kind: KindConfirmed, ID: msg.UUID, Message: msg})
	}
}

// insertSortedLocked places e after every entry not newer than it.
func (t *Thread) insertSortedLocked(e *Entry) {
	i := len(t.order)
	for i > 0 && t.entries[t.order[i-1]].Message.CreatedAt.After(e.Message.CreatedAt) {
		i--
	}
	t.order = append(t.order, "")
	copy(t.order[i+1:], t.order[i:])
	t.order[i] = e.ID
	t.entries[e.ID] = e
}

// Merge adds server messages whose uuid is not yet held and returns how many
// were added. A message from the current user whose content matches the
// oldest pending entry takes over that entry in place.
func (t *Thread) Merge(msgs []models.Message) int {
	t.mu.Lock()
	added, changed := 0, false
	for _, m := range ascending(msgs) {
		if _, ok := t.entries[m.UUID]; ok {
			continue
		}
		changed = true

		if m.Sender.Matches(t.me) {
			if tempID := t.oldestPendingLocked(m.Content); tempID != "" {
				m.Delivered = true
				t.confirmLocked(tempID, m)
				continue
			}
		}
		t.insertSortedLocked(&Entry{Kind: KindConfirmed, ID: m.UUID, Message: m})
		added++
	}
	t.mu.Unlock()

	if changed {
		t.notify()
	}
	return added
}

func (t *Thread) firstPendingLocked(pending []string, skip map[string]bool, content string) string {
	for _, id := range pending {
		if !skip[id] && t.entries[id].Message.Content == content {
			return id
		}
	}
	return ""
}

func (t *Thread) oldestPendingLocked(content string) string {
	for _, id := range t.order {
		e := t.entries[id]
		if e.Kind == KindPending && e.Message.Content == content {
			return id
		}
	}
	return ""
}

// StartPolling starts the polling task for this activation. It returns false
// when a task is already running.
func (t *Thread) StartPolling(ctx context.Context) bool {
	t.pollMu.Lock()
	defer t.pollMu.Unlock()

	if t.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.cancel = cancel
	t.pollDone = done

	go func() {
		defer close(done)

		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.pollOnce(ctx)
			}
		}
	}()
	return true
}

// StopPolling cancels the polling task and waits for it to exit.
func (t *Thread) StopPolling() {
	t.pollMu.Lock()
	cancel, done := t.cancel, t.pollDone
	t.cancel, t.pollDone = nil, nil
	t.pollMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Polling reports whether a polling task is running.
func (t *Thread) Polling() bool {
	t.pollMu.Lock()
	defer t.pollMu.Unlock()
	return t.cancel != nil
}

func (t *Thread) Close() {
	t.StopPolling()
}

func (t *Thread) pollOnce(ctx context.Context) {
	if t.conversationID == "" {
		return
	}

	msgs, err := t.svc.GetConversationMessages(ctx, t.conversationID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		t.log.Debug(ctx, "poll failed", "conversation", t.conversationID, "error", err)
		t.observePoll("error")
		return
	}
	t.observePoll("ok")

	if t.Merge(msgs) > 0 {
		t.svc.MarkAsRead(ctx, t.conversationID)
	}
}

func (t *Thread) observePoll(result string) {
	if t.metrics != nil {
		t.metrics.PollTicks.WithLabelValues(result).Inc()
	}
}
