package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/d-madiou/to-meet-yours/internal/client/api"
	"github.com/d-madiou/to-meet-yours/internal/client/models"
	"github.com/d-madiou/to-meet-yours/internal/logging"
)

func TestMessaging_GetConversationsEmpty(t *testing.T) {
	e := newEnv(t)
	e.loginAs(t, "a@b.com", "ana")

	list, err := e.messaging.GetConversations(context.Background())
	require.NoError(t, err)
	require.NotNil(t, list)
	require.Empty(t, list)
}

func TestMessaging_GetConversationsBareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"uuid":"c1","other_user":{"id":42,"uuid":"","username":"bob"},"unread_count":1}]`))
	}))
	defer srv.Close()

	m := NewMessagingService(api.New(srv.URL, newStore(t)), logging.NewNop())

	list, err := m.GetConversations(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)

	conv, err := m.GetConversationWithUser(context.Background(), "42")
	require.NoError(t, err)
	require.NotNil(t, conv)
	require.Equal(t, "c1", conv.Key())

	conv, err = m.GetConversationWithUser(context.Background(), "43")
	require.NoError(t, err)
	require.Nil(t, conv)
}

func TestMessaging_SendAndFindConversation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.loginAs(t, "a@b.com", "ana")
	bob := e.seed(t, "b@b.com", "bob")

	resp, err := e.messaging.SendMessage(ctx, bob.UUID, "  hello bob  ")
	require.NoError(t, err)
	require.True(t, resp.WasFree)
	require.Equal(t, "hello bob", resp.Data.Content)

	byUUID, err := e.messaging.GetConversationWithUser(ctx, bob.UUID)
	require.NoError(t, err)
	require.NotNil(t, byUUID)

	byID, err := e.messaging.GetConversationWithUser(ctx, string(bob.ID))
	require.NoError(t, err)
	require.NotNil(t, byID)
	require.Equal(t, byUUID.Key(), byID.Key())

	msgs, err := e.messaging.GetConversationMessages(ctx, byUUID.Key())
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestMessaging_MessagesNewestFirst(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ana := e.loginAs(t, "a@b.com", "ana")
	bob := e.seed(t, "b@b.com", "bob")

	for _, c := range []string{"1", "2", "3"} {
		_, err := e.mock.SendAs(bob.UUID, ana.UUID, c)
		require.NoError(t, err)
	}

	conv, err := e.messaging.GetConversationWithUser(ctx, bob.UUID)
	require.NoError(t, err)
	msgs, err := e.messaging.GetConversationMessages(ctx, conv.Key())
	require.NoError(t, err)
	require.Equal(t, []string{"3", "2", "1"}, []string{msgs[0].Content, msgs[1].Content, msgs[2].Content})

	require.Equal(t, 3, e.messaging.GetUnreadCount(ctx))
	e.messaging.MarkAsRead(ctx, conv.Key())
	require.Zero(t, e.messaging.GetUnreadCount(ctx))
}

func TestMessaging_CheckMessageCost(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.loginAs(t, "a@b.com", "ana")
	bob := e.seed(t, "b@b.com", "bob")

	cost, err := e.messaging.CheckMessageCost(ctx, bob.UUID)
	require.NoError(t, err)
	require.True(t, cost.IsFree)
	require.False(t, cost.Degraded)
	require.Equal(t, 3, cost.FreeMessagesRemaining)
	require.Zero(t, testutil.ToFloat64(e.metrics.CostCheckDegraded))
}

func TestMessaging_CheckMessageCostFailsOpen(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.loginAs(t, "a@b.com", "ana")

	for _, receiver := range []string{"", "undefined", "ghost"} {
		cost, err := e.messaging.CheckMessageCost(ctx, receiver)
		require.NoError(t, err)
		require.Equal(t, &models.MessageCostCheck{
			IsFree: true, FreeMessagesRemaining: 3, FreeMessagesLimit: 3, Degraded: true,
		}, cost)
	}
	require.Equal(t, 3.0, testutil.ToFloat64(e.metrics.CostCheckDegraded))
}

func TestMessaging_CheckMessageCostFailClosed(t *testing.T) {
	e := newEnv(t, WithCostCheckFailOpen(false))
	e.loginAs(t, "a@b.com", "ana")

	_, err := e.messaging.CheckMessageCost(context.Background(), "ghost")
	require.ErrorIs(t, err, api.ErrNotFound)
	require.EqualError(t, err, "Receiver not found")

	_, err = e.messaging.CheckMessageCost(context.Background(), "undefined")
	require.ErrorIs(t, err, errInvalidReceiver)
}

func TestMessaging_SendInsufficientFunds(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.loginAs(t, "a@b.com", "ana")
	bob := e.seed(t, "b@b.com", "bob")

	for i := 0; i < 3; i++ {
		_, err := e.messaging.SendMessage(ctx, bob.UUID, "free")
		require.NoError(t, err)
	}

	_, err := e.messaging.SendMessage(ctx, bob.UUID, "paid")
	require.ErrorIs(t, err, api.ErrInsufficientFunds)
	require.Contains(t, err.Error(), "Insufficient coins")

	wallet, err := e.messaging.PurchaseCoins(ctx, 10, "ref-1")
	require.NoError(t, err)
	require.Equal(t, 10, wallet.Balance)

	resp, err := e.messaging.SendMessage(ctx, bob.UUID, "paid")
	require.NoError(t, err)
	require.Equal(t, 2, resp.CoinCost)

	wallet, err = e.messaging.GetWalletBalance(ctx)
	require.NoError(t, err)
	require.Equal(t, 8, wallet.Balance)
}

func TestMessaging_SilentFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := NewMessagingService(api.New(srv.URL, newStore(t)), logging.NewNop())
	require.Zero(t, m.GetUnreadCount(context.Background()))
	m.MarkAsRead(context.Background(), "c1")

	_, err := m.GetWalletBalance(context.Background())
	require.EqualError(t, err, msgMessagingFailed)
}

func TestMessaging_WaitForConversationRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			_, _ = w.Write([]byte(`{"results":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"uuid":"c9","other_user":{"uuid":"u-42","username":"bob"}}]}`))
	}))
	defer srv.Close()

	m := NewMessagingService(api.New(srv.URL, newStore(t)), logging.NewNop(), WithDiscoveryRetry(6, time.Millisecond))

	conv, err := m.WaitForConversationWithUser(context.Background(), "u-42")
	require.NoError(t, err)
	require.Equal(t, "c9", conv.Key())
	require.Equal(t, int32(3), calls.Load())
}

func TestMessaging_WaitForConversationGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	m := NewMessagingService(api.New(srv.URL, newStore(t)), logging.NewNop(), WithDiscoveryRetry(4, time.Millisecond))

	_, err := m.WaitForConversationWithUser(context.Background(), "u-42")
	require.ErrorIs(t, err, ErrConversationNotFound)
	require.Equal(t, int32(4), calls.Load())
}
