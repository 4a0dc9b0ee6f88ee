package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ledger activity tags
const (
	ActivityMonthlyReset = "monthly_reset"
	ActivityAdminEdit    = "admin_edit"
)

// Reset trigger sources
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// PointsSnapshot captures a user's balances at a point in time.
type PointsSnapshot struct {
	Total   int `bson:"total" json:"total"`
	Monthly int `bson:"monthly" json:"monthly"`
}

// PointTransaction is an append-only ledger entry for a point-balance
// change. The user's aggregate fields are only ever mutated alongside one
// of these records; After balances are clamped at zero.
type PointTransaction struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Delta     int                `bson:"delta" json:"delta"`
	Activity  string             `bson:"activity" json:"activity"`
	Reason    string             `bson:"reason,omitempty" json:"reason,omitempty"`
	Before    PointsSnapshot     `bson:"before" json:"before"`
	After     PointsSnapshot     `bson:"after" json:"after"`
	Source    string             `bson:"source,omitempty" json:"source,omitempty"`
	ActorID   primitive.ObjectID `bson:"actorId,omitempty" json:"actorId,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
