package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType enum
type NotificationType string

const (
	NotifyStatusUpdate NotificationType = "status_update"
	NotifyNewIssue     NotificationType = "new_issue"
	NotifyAdminNote    NotificationType = "admin_note"
	NotifySpam         NotificationType = "spam"
)

// Notification is a user-facing event record created on lifecycle transitions
type Notification struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	User      primitive.ObjectID  `bson:"user" json:"user"`
	Issue     *primitive.ObjectID `bson:"issue,omitempty" json:"issue,omitempty"`
	IssueID   string              `bson:"issueId,omitempty" json:"issueId,omitempty"`
	Message   string              `bson:"message" json:"message"`
	Type      NotificationType    `bson:"type" json:"type"`
	IsRead    bool                `bson:"isRead" json:"isRead"`
	CreatedAt time.Time           `bson:"createdAt" json:"createdAt"`
}
