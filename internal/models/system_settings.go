package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SystemSettings holds system-wide operational state. The monthly reset
// writes its summary here; the scheduler reads it to decide whether the
// current month's reset has already run.
type SystemSettings struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	LastResetCount   int                `bson:"lastResetCount" json:"lastResetCount"`
	LastResetAt      time.Time          `bson:"lastResetAt,omitempty" json:"lastResetAt,omitempty"`
	LastResetTrigger string             `bson:"lastResetTrigger,omitempty" json:"lastResetTrigger,omitempty"`
	LastResetBy      string             `bson:"lastResetBy,omitempty" json:"lastResetBy,omitempty"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt" json:"updatedAt"`
}
