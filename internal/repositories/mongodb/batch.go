package mongodb

import (
	"context"
	"time"

	"github.com/CivicLink/civiclink-backend/internal/models"
	"github.com/CivicLink/civiclink-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time checks
var (
	_ repositories.BatchWriter = (*BatchWriter)(nil)
	_ repositories.WriteBatch  = (*writeBatch)(nil)
)

// BatchWriter creates BulkWrite-backed write batches over the users, ledger
// and inbox collections.
type BatchWriter struct {
	users  *mongo.Collection
	ledger *mongo.Collection
	inbox  *mongo.Collection
}

// NewBatchWriter creates a new BatchWriter
func NewBatchWriter(db *mongo.Database) *BatchWriter {
	return &BatchWriter{
		users:  db.Collection("users"),
		ledger: db.Collection("point_transactions"),
		inbox:  db.Collection("user_notifications"),
	}
}

// NewBatch starts an empty batch
func (w *BatchWriter) NewBatch() repositories.WriteBatch {
	return &writeBatch{writer: w}
}

// writeBatch buffers write models per collection. Commit flushes them with
// ordered BulkWrites, one collection at a time, never issuing a new bulk
// call before the prior one returned.
type writeBatch struct {
	writer    *BatchWriter
	userOps   []mongo.WriteModel
	ledgerOps []mongo.WriteModel
	inboxOps  []mongo.WriteModel
	committed bool
}

// ResetMonthlyPoints buffers zeroing of the user's monthly balance
func (b *writeBatch) ResetMonthlyPoints(userID primitive.ObjectID) {
	op := mongo.NewUpdateOneModel().
		SetFilter(bson.M{"_id": userID}).
		SetUpdate(bson.M{"$set": bson.M{"monthlyPoints": 0, "updatedAt": time.Now()}})
	b.userOps = append(b.userOps, op)
}

// AppendLedgerEntry buffers an insert into the points ledger
func (b *writeBatch) AppendLedgerEntry(entry *models.PointTransaction) {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	b.ledgerOps = append(b.ledgerOps, mongo.NewInsertOneModel().SetDocument(entry))
}

// AddInboxNotification buffers a per-user inbox document
func (b *writeBatch) AddInboxNotification(n *models.UserNotification) {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	b.inboxOps = append(b.inboxOps, mongo.NewInsertOneModel().SetDocument(n))
}

// Len reports the number of buffered writes
func (b *writeBatch) Len() int {
	return len(b.userOps) + len(b.ledgerOps) + len(b.inboxOps)
}

// Commit flushes the buffered writes. A batch commits at most once; the
// caller starts a fresh batch to continue.
func (b *writeBatch) Commit(ctx context.Context) error {
	if b.committed {
		return nil
	}
	b.committed = true

	opts := options.BulkWrite().SetOrdered(true)
	if len(b.userOps) > 0 {
		if _, err := b.writer.users.BulkWrite(ctx, b.userOps, opts); err != nil {
			return err
		}
	}
	if len(b.ledgerOps) > 0 {
		if _, err := b.writer.ledger.BulkWrite(ctx, b.ledgerOps, opts); err != nil {
			return err
		}
	}
	if len(b.inboxOps) > 0 {
		if _, err := b.writer.inbox.BulkWrite(ctx, b.inboxOps, opts); err != nil {
			return err
		}
	}
	return nil
}
