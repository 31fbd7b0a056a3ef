package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/d-madiou/to-meet-yours/internal/client/api"
	"github.com/d-madiou/to-meet-yours/internal/client/chat"
	"github.com/d-madiou/to-meet-yours/internal/client/models"
	"github.com/d-madiou/to-meet-yours/internal/client/navigation"
)

const insufficientFundsHint = "Not enough coins to send this message. Type 'buy <amount>' to get coins."

// Conversations lists conversations with their unread counts.
func (a *App) Conversations(ctx context.Context) error {
	list, err := a.messaging.GetConversations(ctx)
	if err != nil {
		a.printError(err)
		return err
	}
	if len(list) == 0 {
		a.println("No conversations yet")
		return nil
	}

	for _, c := range list {
		latest := ""
		if c.LatestMessage != nil {
			latest = c.LatestMessage.Content
		}
		unread := ""
		if c.UnreadCount > 0 {
			unread = fmt.Sprintf(" (%d unread)", c.UnreadCount)
		}
		a.printf("%s%s  %s\n", c.OtherUser.Username, unread, latest)
	}
	return nil
}

// Open enters the conversation with a user given by username, uuid or id.
func (a *App) Open(ctx context.Context, who string) error {
	list, err := a.messaging.GetConversations(ctx)
	if err != nil {
		a.printError(err)
		return err
	}
	for _, c := range list {
		if c.OtherUser.Username == who || c.OtherUser.Matches(who) {
			return a.chat(ctx, c.Key(), c.OtherUser)
		}
	}

	a.printf("No conversation with %s; use 'compose <uuid>' to start one\n", who)
	return nil
}

// Compose opens the conversation with receiverID, or a fresh thread when none
// exists yet.
func (a *App) Compose(ctx context.Context, receiverID string) error {
	conv, err := a.messaging.GetConversationWithUser(ctx, receiverID)
	if err != nil {
		a.printError(err)
		return err
	}
	if conv != nil {
		return a.chat(ctx, conv.Key(), conv.OtherUser)
	}
	return a.chat(ctx, "", models.BaseUser{UUID: receiverID})
}

func (a *App) currentUserID(ctx context.Context) string {
	u, err := a.auth.CachedUser(ctx)
	if err != nil || u == nil {
		return ""
	}
	if u.UUID != "" {
		return u.UUID
	}
	return string(u.ID)
}

// chat runs the conversation screen until "/back" or end of input. Lines are
// sent as messages; "/cost" shows the price of the next one.
func (a *App) chat(ctx context.Context, conversationID string, other models.BaseUser) error {
	receiverID := other.UUID
	if receiverID == "" {
		receiverID = string(other.ID)
	}
	name := other.Username
	if name == "" {
		name = receiverID
	}

	a.nav.Push(navigation.Route{Group: navigation.GroupTabs, Screen: "chat/" + name})
	defer a.nav.Back()

	printer := newThreadPrinter(a.out, a.currentUserID(ctx))

	open := func(id string) (*chat.Thread, error) {
		th := chat.NewThread(a.messaging, id, receiverID, a.currentUserID(ctx),
			chat.WithPollInterval(a.config.PollInterval),
			chat.WithLogger(a.log),
			chat.WithMetrics(a.metrics),
		)
		th.OnChange(func() { printer.print(th.Messages()) })
		if err := th.Load(ctx); err != nil {
			return nil, err
		}
		th.StartPolling(ctx)
		return th, nil
	}

	th, err := open(conversationID)
	if err != nil {
		a.printError(err)
		return err
	}
	defer func() { th.Close() }()

	a.printf("Chatting with %s. Type /back to leave, /cost for the next message price, /retry to resend an unsent message.\n", name)
	a.printCost(th)

	for {
		line, err := readRawLine(a.reader)
		if err != nil {
			return nil
		}

		text := line
		switch strings.TrimSpace(line) {
		case "":
			continue
		case "/back":
			return nil
		case "/cost":
			th.Refresh(ctx)
			a.printCost(th)
			continue
		case "/retry":
			text = th.Draft()
			if strings.TrimSpace(text) == "" {
				a.println("Nothing to retry")
				continue
			}
		}

		if !a.send(ctx, th, text) {
			continue
		}

		if th.ConversationID() != "" {
			continue
		}

		// First message: the backend has created the conversation, switch
		// the thread over to it so polling can start.
		conv, err := a.messaging.WaitForConversationWithUser(ctx, receiverID)
		if err != nil {
			a.log.Warn(ctx, "conversation not found after first message", "receiver", receiverID, "error", err)
			continue
		}
		next, err := open(conv.Key())
		if err != nil {
			a.printError(err)
			continue
		}
		th.Close()
		th = next
	}
}

// send reports the outcome of one send. On failure the unsent text stays in
// the thread draft and is echoed back so /retry can resend it.
func (a *App) send(ctx context.Context, th *chat.Thread, text string) bool {
	_, err := th.Send(ctx, text)
	if err == nil {
		return true
	}

	if errors.Is(err, api.ErrInsufficientFunds) {
		a.println(insufficientFundsHint)
	} else {
		a.printError(err)
	}
	if th.Draft() == "" {
		th.SetDraft(text)
	}
	a.printf("Unsent: %s (type /retry to send it again)\n", th.Draft())
	return false
}

func (a *App) printCost(th *chat.Thread) {
	cost := th.Cost()
	if cost == nil {
		return
	}

	balance := "?"
	if w := th.Wallet(); w != nil {
		balance = strconv.Itoa(w.Balance)
	}

	switch {
	case cost.Degraded:
		a.printf("Message cost unknown (cost check unavailable); balance: %s coins\n", balance)
	case cost.IsFree:
		a.printf("Next message is free (%d of %d free left today); balance: %s coins\n",
			cost.FreeMessagesRemaining, cost.FreeMessagesLimit, balance)
	default:
		a.printf("Next message costs %d coins; balance: %s coins\n", cost.CoinCost, balance)
	}
}

func (a *App) Wallet(ctx context.Context) error {
	w, err := a.messaging.GetWalletBalance(ctx)
	if err != nil {
		a.printError(err)
		return err
	}
	a.printf("Balance: %d coins (earned %d, spent %d, purchased %d)\n",
		w.Balance, w.TotalEarned, w.TotalSpent, w.TotalPurchased)
	return nil
}

// Buy purchases coins. The payment reference is generated locally.
func (a *App) Buy(ctx context.Context, amount string) error {
	n, err := strconv.Atoi(amount)
	if err != nil || n <= 0 {
		a.println("Amount must be a positive number")
		return fmt.Errorf("invalid amount %q", amount)
	}

	w, err := a.messaging.PurchaseCoins(ctx, n, "cli-"+uuid.NewString())
	if err != nil {
		a.printError(err)
		return err
	}
	a.printf("Purchased %d coins. Balance: %d coins\n", n, w.Balance)
	return nil
}

func (a *App) Unread(ctx context.Context) error {
	a.printf("Unread messages: %d\n", a.messaging.GetUnreadCount(ctx))
	return nil
}

// Notify delivers a local notification as if the user tapped it, so the tap
// routing can be tried without a push provider.
func (a *App) Notify(ctx context.Context, kind string) error {
	t := models.NotificationType(kind)
	switch t {
	case models.NotificationLike, models.NotificationMatch, models.NotificationMessage:
	default:
		a.println("Unknown notification type:", kind)
		return fmt.Errorf("unknown notification type %q", kind)
	}

	a.notifications.Dispatch(models.Notification{
		Title: "to-meet-yours",
		Body:  "New " + kind,
		Data:  models.NotificationData{Type: t},
	}, true)
	return nil
}
