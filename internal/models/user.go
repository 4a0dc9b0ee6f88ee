package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles
const (
	RoleAdmin    = "admin"
	RoleResident = "resident"
)

// User represents a resident or admin account in the system
type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Email       string             `bson:"email" json:"email"`
	Password    string             `bson:"password" json:"-"` // bcrypt hash, omitted from JSON responses
	DisplayName string             `bson:"displayName" json:"displayName"`
	// Profile and token fields deliberately carry no bson omitempty: they
	// are cleared by setting the zero value, and an update that drops the
	// field from the $set document would leave the old value in place.
	Address       string `bson:"address" json:"address,omitempty"`
	Age           int    `bson:"age" json:"age,omitempty"`
	Mobile        string `bson:"mobile" json:"mobile,omitempty"`
	Role          string `bson:"role" json:"role"`
	FCMToken      string `bson:"fcmToken" json:"fcmToken,omitempty"`
	ExpoPushToken string `bson:"expoPushToken" json:"expoPushToken,omitempty"`
	TotalPoints   int    `bson:"totalPoints" json:"totalPoints"`
	MonthlyPoints int    `bson:"monthlyPoints" json:"monthlyPoints"`
	Points        int    `bson:"points" json:"points"` // legacy mirror of totalPoints, kept for older app versions
	// CredentialSecret is the per-user key the QR credential is signed with.
	// Minted at account creation and never exposed over the API.
	CredentialSecret string    `bson:"credentialSecret,omitempty" json:"-"`
	LastActivity     time.Time `bson:"lastActivity,omitempty" json:"lastActivity,omitempty"`
	CreatedAt        time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time `bson:"updatedAt" json:"updatedAt"`
}

// IsAdmin reports whether the user carries the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
