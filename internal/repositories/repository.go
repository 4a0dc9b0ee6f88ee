package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/CivicLink/civiclink-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound is returned by Find* methods when no document matches.
// Implementations translate their driver's not-found sentinel to this.
var ErrNotFound = errors.New("document not found")

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.User, error)
	FindAll(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context) (int64, error)
	// RemoveFCMTokens strips the given native push tokens from whichever
	// users own them, as one batched write.
	RemoveFCMTokens(ctx context.Context, tokens []string) error
	// UpdatePointsTx runs mutate against a freshly read user inside a single
	// transaction, persisting the mutated balances together with the ledger
	// entry mutate returns. Concurrent calls for one user serialize.
	UpdatePointsTx(ctx context.Context, id primitive.ObjectID, mutate func(*models.User) (*models.PointTransaction, error)) error
}

// CredentialRepository stores the per-subject "current" credential pointer
// and its bounded audit history.
type CredentialRepository interface {
	// SaveCurrent overwrites the subject's current credential (last write wins).
	SaveCurrent(ctx context.Context, cred *models.Credential) error
	FindCurrent(ctx context.Context, subjectID string) (*models.Credential, error)
	// DeleteCurrent removes the current pointer. Idempotent; history untouched.
	DeleteCurrent(ctx context.Context, subjectID string) error
	// AppendHistory records cred and drops the oldest entries beyond limit.
	AppendHistory(ctx context.Context, cred *models.Credential, limit int) error
	FindHistory(ctx context.Context, subjectID string, limit int) ([]*models.Credential, error)
}

// NotificationRepository defines the interface for notification documents
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error)
	FindByStatus(ctx context.Context, status string, page, limit int) ([]*models.Notification, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status string) error
	// FindDueScheduled returns scheduled notifications whose scheduledFor has passed.
	FindDueScheduled(ctx context.Context, now time.Time, limit int) ([]*models.Notification, error)
	// ClaimScheduled atomically transitions scheduled -> sent and reports
	// whether this caller won the claim. Guards double fan-out when two
	// sweeps race on one document.
	ClaimScheduled(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error)
	// RecordDelivery writes the fan-out outcome. Once per send attempt.
	RecordDelivery(ctx context.Context, id primitive.ObjectID, outcome *models.DeliveryOutcome, sentAt time.Time) error
	Count(ctx context.Context) (int64, error)
}

// UserNotificationRepository reads the per-user inbox written by broadcasts.
type UserNotificationRepository interface {
	FindByUserID(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]*models.UserNotification, error)
	// MarkRead flags the entry read, but only when it belongs to userID.
	// ErrNotFound otherwise, so callers cannot touch another inbox.
	MarkRead(ctx context.Context, userID, id primitive.ObjectID) error
}

// PointTransactionRepository defines the interface for ledger entries
type PointTransactionRepository interface {
	Create(ctx context.Context, transaction *models.PointTransaction) error
	FindByUserID(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]*models.PointTransaction, error)
}

// SystemSettingsRepository defines the interface for system settings operations
type SystemSettingsRepository interface {
	GetSettings(ctx context.Context) (*models.SystemSettings, error)
	RecordMonthlyReset(ctx context.Context, count int, trigger, actor string, at time.Time) error
}

// WriteBatch buffers document mutations and commits them as one unit,
// subject to the store's per-batch write ceiling. Callers check Len against
// their configured margin and commit strictly sequentially.
type WriteBatch interface {
	// ResetMonthlyPoints buffers zeroing of the user's monthly balance.
	ResetMonthlyPoints(userID primitive.ObjectID)
	// AppendLedgerEntry buffers an insert into the points ledger.
	AppendLedgerEntry(entry *models.PointTransaction)
	// AddInboxNotification buffers a per-user inbox document.
	AddInboxNotification(n *models.UserNotification)
	Len() int
	Commit(ctx context.Context) error
}

// BatchWriter creates write batches.
type BatchWriter interface {
	NewBatch() WriteBatch
}
