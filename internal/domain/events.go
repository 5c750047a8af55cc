package domain

import "context"

// Notification content types, one per mutation that fans out to a live client.
const (
	NotificationTypePost       = "post"
	NotificationTypePostUpdate = "post-update"
	NotificationTypePostDelete = "post-delete"
	NotificationTypeComment    = "comment"
	NotificationTypeUser       = "user-update"
)

// NotificationContent is the tagged payload pushed verbatim to the recipient's
// live connection.
type NotificationContent struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	PostID    string `json:"postId,omitempty"`
	CommentID string `json:"commentId,omitempty"`
	UserID    string `json:"userId,omitempty"`
}

// NotificationEvent is the broker envelope produced at the end of a successful
// mutation. It has no identity of its own and no delivery guarantee beyond
// "broker accepted it" (at-most-once, fire-and-forget).
type NotificationEvent struct {
	TargetUserID string              `json:"targetUserId"`
	Content      NotificationContent `json:"content"`
}

// EventPublisher publishes domain events to the notification topic.
// Publishing is a side effect of a mutation, not part of it: implementations
// log failures centrally and callers are permitted to ignore the returned
// error without compromising the mutation.
type EventPublisher interface {
	Publish(ctx context.Context, event NotificationEvent) error
}
