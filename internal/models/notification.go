package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification statuses
const (
	NotificationStatusScheduled = "scheduled"
	NotificationStatusSent      = "sent"
)

// Notification represents one logical push notification fanned out to a set
// of target users. Delivery accounting fields are written once per send
// attempt; a notification transitions scheduled -> sent exactly once.
type Notification struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	Title        string               `bson:"title" json:"title"`
	Message      string               `bson:"message" json:"message"`
	Type         string               `bson:"type" json:"type"` // EVENT, PROGRAM, INCIDENT, GENERAL
	Priority     string               `bson:"priority" json:"priority"`
	Status       string               `bson:"status" json:"status"`
	TargetUsers  []primitive.ObjectID `bson:"targetUsers" json:"targetUsers"`
	ScheduledFor *time.Time           `bson:"scheduledFor,omitempty" json:"scheduledFor,omitempty"`
	// Delivery outcome: SentTo counts tokens a send was attempted to.
	// Targets that resolved to no token appear in no count.
	SentTo           int       `bson:"sentTo" json:"sentTo"`
	DeliveredTo      int       `bson:"deliveredTo" json:"deliveredTo"`
	FailedDeliveries int       `bson:"failedDeliveries" json:"failedDeliveries"`
	Error            string    `bson:"error,omitempty" json:"error,omitempty"`
	SentAt           time.Time `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
	CreatedAt        time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time `bson:"updatedAt" json:"updatedAt"`
}

// DeliveryOutcome is the result of one fan-out attempt.
type DeliveryOutcome struct {
	SentTo           int
	DeliveredTo      int
	FailedDeliveries int
	Error            string
}

// UserNotification is a per-user inbox document written by broadcast
// fan-outs (new event/program posted). Broadcasts carry no push-delivery
// guarantee; these documents are what the app's inbox screen reads.
type UserNotification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Title     string             `bson:"title" json:"title"`
	Message   string             `bson:"message" json:"message"`
	Type      string             `bson:"type" json:"type"`
	Read      bool               `bson:"read" json:"read"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
