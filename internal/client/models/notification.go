package models

type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationMatch   NotificationType = "match"
	NotificationMessage NotificationType = "message"
)

type NotificationData struct {
	Type      NotificationType `json:"type"`
	UserID    string           `json:"userId,omitempty"`
	Username  string           `json:"username,omitempty"`
	MatchID   string           `json:"matchId,omitempty"`
	MessageID string           `json:"messageId,omitempty"`
}

// Notification is a push notification delivered to the device.
type Notification struct {
	Title string           `json:"title"`
	Body  string           `json:"body"`
	Data  NotificationData `json:"data"`
}
