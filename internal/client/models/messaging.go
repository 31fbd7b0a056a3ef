package models

import (
	"bytes"
	"encoding/json"
	"time"
)

type LatestMessage struct {
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	IsRead         bool      `json:"is_read"`
	SenderUsername string    `json:"sender_username"`
}

// Conversation is a one-to-one thread between the current user and OtherUser.
// Some backends send "id", others "uuid"; Key returns whichever is set.
type Conversation struct {
	ID            ID             `json:"id,omitempty"`
	UUID          string         `json:"uuid"`
	OtherUser     BaseUser       `json:"other_user"`
	LatestMessage *LatestMessage `json:"latest_message"`
	UnreadCount   int            `json:"unread_count"`
	CreatedAt     time.Time      `json:"created_at"`
	LastMessageAt time.Time      `json:"last_message_at"`
}

func (c Conversation) Key() string {
	if c.UUID != "" {
		return c.UUID
	}
	return string(c.ID)
}

// ConversationList decodes both a bare JSON array and a paginated
// {"results": [...]} object into one slice.
type ConversationList []Conversation

func (l *ConversationList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var items []Conversation
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var page struct {
		Results []Conversation `json:"results"`
	}
	if err := json.Unmarshal(b, &page); err != nil {
		return err
	}
	*l = page.Results
	return nil
}

type Message struct {
	UUID      string     `json:"uuid"`
	Sender    BaseUser   `json:"sender"`
	Receiver  BaseUser   `json:"receiver"`
	Content   string     `json:"content"`
	CoinCost  int        `json:"coin_cost"`
	IsRead    bool       `json:"is_read"`
	ReadAt    *time.Time `json:"read_at"`
	Delivered bool       `json:"delivered"`
	CreatedAt time.Time  `json:"created_at"`
}

type MessagePage struct {
	Count    int       `json:"count,omitempty"`
	Next     *string   `json:"next,omitempty"`
	Previous *string   `json:"previous,omitempty"`
	Results  []Message `json:"results"`
}

// MessageCostCheck describes what the next message to a receiver costs.
// Degraded is set locally when the value is a fallback rather than a server
// answer.
type MessageCostCheck struct {
	CoinCost              int  `json:"coin_cost"`
	IsFree                bool `json:"is_free"`
	FreeMessagesRemaining int  `json:"free_messages_remaining"`
	FreeMessagesLimit     int  `json:"free_messages_limit"`
	TotalMessagesToday    *int `json:"total_messages_sent_today,omitempty"`
	PaidMessagesToday     *int `json:"paid_messages_sent_today,omitempty"`
	Degraded              bool `json:"-"`
}

type CoinWallet struct {
	Balance        int `json:"balance"`
	TotalEarned    int `json:"total_earned"`
	TotalSpent     int `json:"total_spent"`
	TotalPurchased int `json:"total_purchased"`
}

type SendMessageRequest struct {
	ReceiverUUID string `json:"receiver_uuid"`
	Content      string `json:"content"`
}

type SendMessageResponse struct {
	Message  string  `json:"message"`
	Data     Message `json:"data"`
	CoinCost int     `json:"coin_cost"`
	WasFree  bool    `json:"was_free"`
}

type PurchaseRequest struct {
	Amount           int    `json:"amount"`
	PaymentReference string `json:"payment_reference"`
}

type UnreadCountResponse struct {
	UnreadCount int `json:"unread_count"`
}
