package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/d-madiou/to-meet-yours/internal/client/metrics"
	"github.com/d-madiou/to-meet-yours/internal/client/models"
	"github.com/d-madiou/to-meet-yours/internal/logging"
)

const (
	pathConversations = "/conversations/"
	pathMessages      = "/messages/"
	pathCheckCost     = "/messages/check_cost/"
	pathUnreadCount   = "/messages/unread_count/"
	pathWallet        = "/wallet/"
	pathPurchase      = "/wallet/purchase/"

	DefaultFreeMessages = 3

	defaultDiscoveryAttempts = 6
	defaultDiscoveryDelay    = 500 * time.Millisecond
)

var errInvalidReceiver = errors.New("invalid receiver id")

// MessagingService covers conversations, messages, cost checks and the coin
// wallet.
//
// Contract:
//   - GetConversations accepts both a bare array and {"results": [...]}.
//   - GetConversationWithUser joins on other_user by uuid or id; nil when absent.
//   - GetConversationMessages returns messages as the server sends them
//     (newest first); ordering for display is up to the caller.
//   - CheckMessageCost fails open with a Degraded default unless disabled.
//   - SendMessage does not check funds; the server is the authority.
//   - MarkAsRead and GetUnreadCount never return errors.
type MessagingService interface {
	GetConversations(ctx context.Context) ([]models.Conversation, error)
	GetConversationWithUser(ctx context.Context, otherUserID string) (*models.Conversation, error)
	WaitForConversationWithUser(ctx context.Context, otherUserID string) (*models.Conversation, error)
	GetConversationMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	CheckMessageCost(ctx context.Context, receiverID string) (*models.MessageCostCheck, error)
	GetWalletBalance(ctx context.Context) (*models.CoinWallet, error)
	SendMessage(ctx context.Context, receiverID, content string) (*models.SendMessageResponse, error)
	MarkAsRead(ctx context.Context, conversationID string)
	GetUnreadCount(ctx context.Context) int
	PurchaseCoins(ctx context.Context, amount int, paymentReference string) (*models.CoinWallet, error)
}

type MessagingOption func(*messagingService)

// WithCostCheckFailOpen controls whether a failed cost check returns the
// free default (true) or the error (false).
func WithCostCheckFailOpen(failOpen bool) MessagingOption {
	return func(m *messagingService) { m.failOpen = failOpen }
}

// WithDiscoveryRetry sets how WaitForConversationWithUser polls.
func WithDiscoveryRetry(attempts uint64, delay time.Duration) MessagingOption {
	return func(m *messagingService) {
		m.discoveryAttempts = attempts
		m.discoveryDelay = delay
	}
}

func WithMessagingMetrics(mt *metrics.Metrics) MessagingOption {
	return func(m *messagingService) { m.metrics = mt }
}

type messagingService struct {
	client  Client
	log     logging.Logger
	metrics *metrics.Metrics

	failOpen          bool
	discoveryAttempts uint64
	discoveryDelay    time.Duration
}

func NewMessagingService(client Client, log logging.Logger, opts ...MessagingOption) MessagingService {
	m := &messagingService{
		client:            client,
		log:               log,
		failOpen:          true,
		discoveryAttempts: defaultDiscoveryAttempts,
		discoveryDelay:    defaultDiscoveryDelay,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *messagingService) GetConversations(ctx context.Context) ([]models.Conversation, error) {
	var list models.ConversationList
	if err := m.client.Get(ctx, pathConversations, &list); err != nil {
		return nil, operationError(err, msgMessagingFailed)
	}
	if list == nil {
		return []models.Conversation{}, nil
	}
	return list, nil
}

func (m *messagingService) GetConversationWithUser(ctx context.Context, otherUserID string) (*models.Conversation, error) {
	conversations, err := m.GetConversations(ctx)
	if err != nil {
		return nil, err
	}
	for i := range conversations {
		if conversations[i].OtherUser.Matches(otherUserID) {
			return &conversations[i], nil
		}
	}
	return nil, nil
}

// WaitForConversationWithUser retries GetConversationWithUser while the
// backend creates the conversation for a first message.
func (m *messagingService) WaitForConversationWithUser(ctx context.Context, otherUserID string) (*models.Conversation, error) {
	attempts := m.discoveryAttempts
	if attempts == 0 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(attempts-1, retry.NewConstant(m.discoveryDelay))

	var found *models.Conversation
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		conv, err := m.GetConversationWithUser(ctx, otherUserID)
		if err != nil {
			return retry.RetryableError(err)
		}
		if conv == nil {
			return retry.RetryableError(ErrConversationNotFound)
		}
		found = conv
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			return nil, &Error{Message: "Conversation not found", Err: ErrConversationNotFound}
		}
		return nil, err
	}
	return found, nil
}

func (m *messagingService) GetConversationMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	var page models.MessagePage
	path := fmt.Sprintf("%s%s/messages/", pathConversations, url.PathEscape(conversationID))
	if err := m.client.Get(ctx, path, &page); err != nil {
		return nil, operationError(err, msgMessagingFailed)
	}
	if page.Results == nil {
		return []models.Message{}, nil
	}
	return page.Results, nil
}

func defaultCostCheck() *models.MessageCostCheck {
	return &models.MessageCostCheck{
		CoinCost:              0,
		IsFree:                true,
		FreeMessagesRemaining: DefaultFreeMessages,
		FreeMessagesLimit:     DefaultFreeMessages,
		Degraded:              true,
	}
}

func (m *messagingService) CheckMessageCost(ctx context.Context, receiverID string) (*models.MessageCostCheck, error) {
	var err error
	if receiverID == "" || receiverID == "undefined" {
		err = errInvalidReceiver
	} else {
		var cost models.MessageCostCheck
		path := pathCheckCost + "?receiver_uuid=" + url.QueryEscape(receiverID)
		if err = m.client.Get(ctx, path, &cost); err == nil {
			return &cost, nil
		}
	}

	if !m.failOpen {
		return nil, operationError(err, msgMessagingFailed)
	}
	m.log.Warn(ctx, "cost check failed, assuming free message", "receiver", receiverID, "error", err)
	if m.metrics != nil {
		m.metrics.CostCheckDegraded.Inc()
	}
	return defaultCostCheck(), nil
}

func (m *messagingService) GetWalletBalance(ctx context.Context) (*models.CoinWallet, error) {
	var wallet models.CoinWallet
	if err := m.client.Get(ctx, pathWallet, &wallet); err != nil {
		return nil, operationError(err, msgMessagingFailed)
	}
	return &wallet, nil
}

func (m *messagingService) SendMessage(ctx context.Context, receiverID, content string) (*models.SendMessageResponse, error) {
	req := models.SendMessageRequest{ReceiverUUID: receiverID, Content: strings.TrimSpace(content)}

	var resp models.SendMessageResponse
	if err := m.client.Post(ctx, pathMessages, req, &resp); err != nil {
		return nil, operationError(err, msgMessagingFailed)
	}
	return &resp, nil
}

func (m *messagingService) MarkAsRead(ctx context.Context, conversationID string) {
	path := fmt.Sprintf("%s%s/mark_read/", pathConversations, url.PathEscape(conversationID))
	if err := m.client.Post(ctx, path, nil, nil); err != nil {
		m.log.Debug(ctx, "mark as read failed", "conversation", conversationID, "error", err)
	}
}

func (m *messagingService) GetUnreadCount(ctx context.Context) int {
	var resp models.UnreadCountResponse
	if err := m.client.Get(ctx, pathUnreadCount, &resp); err != nil {
		m.log.Debug(ctx, "unread count failed", "error", err)
		return 0
	}
	return resp.UnreadCount
}

func (m *messagingService) PurchaseCoins(ctx context.Context, amount int, paymentReference string) (*models.CoinWallet, error) {
	req := models.PurchaseRequest{Amount: amount, PaymentReference: paymentReference}

	var wallet models.CoinWallet
	if err := m.client.Post(ctx, pathPurchase, req, &wallet); err != nil {
		return nil, operationError(err, msgMessagingFailed)
	}
	return &wallet, nil
}
