package mongodb

import (
	"context"
	"errors"

	"github.com/CivicLink/civiclink-backend/internal/models"
	"github.com/CivicLink/civiclink-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure CredentialRepository implements the interface
var _ repositories.CredentialRepository = (*CredentialRepository)(nil)

// CredentialRepository handles MongoDB operations for QR credentials.
// The "current" pointer lives in the credentials collection (one document
// per subject); the bounded audit trail lives in credential_history.
type CredentialRepository struct {
	current *mongo.Collection
	history *mongo.Collection
}

// NewCredentialRepository creates a new CredentialRepository
func NewCredentialRepository(db *mongo.Database) *CredentialRepository {
	return &CredentialRepository{
		current: db.Collection("credentials"),
		history: db.Collection("credential_history"),
	}
}

// SaveCurrent overwrites the subject's current credential, last write wins.
func (r *CredentialRepository) SaveCurrent(ctx context.Context, cred *models.Credential) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.current.ReplaceOne(ctx, bson.M{"subjectId": cred.SubjectID}, cred, opts)
	return err
}

// FindCurrent returns the subject's current credential
func (r *CredentialRepository) FindCurrent(ctx context.Context, subjectID string) (*models.Credential, error) {
	var cred models.Credential
	err := r.current.FindOne(ctx, bson.M{"subjectId": subjectID}).Decode(&cred)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// DeleteCurrent removes the current pointer. Deleting an absent pointer is
// not an error.
func (r *CredentialRepository) DeleteCurrent(ctx context.Context, subjectID string) error {
	_, err := r.current.DeleteOne(ctx, bson.M{"subjectId": subjectID})
	return err
}

// AppendHistory records the credential and trims the subject's history to
// limit entries, dropping the oldest first.
func (r *CredentialRepository) AppendHistory(ctx context.Context, cred *models.Credential, limit int) error {
	entry := *cred
	entry.ID = primitive.NewObjectID()
	if _, err := r.history.InsertOne(ctx, &entry); err != nil {
		return err
	}

	// Collect ids of entries beyond the cap, newest first, and delete them.
	opts := options.Find().
		SetSort(bson.M{"generatedAt": -1}).
		SetSkip(int64(limit)).
		SetProjection(bson.M{"_id": 1})
	cursor, err := r.history.Find(ctx, bson.M{"subjectId": cred.SubjectID}, opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var stale []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &stale); err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}
	ids := make([]primitive.ObjectID, 0, len(stale))
	for _, s := range stale {
		ids = append(ids, s.ID)
	}
	_, err = r.history.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return err
}

// FindHistory returns the subject's retained credentials, newest first
func (r *CredentialRepository) FindHistory(ctx context.Context, subjectID string, limit int) ([]*models.Credential, error) {
	opts := options.Find().
		SetSort(bson.M{"generatedAt": -1}).
		SetLimit(int64(limit))
	cursor, err := r.history.Find(ctx, bson.M{"subjectId": subjectID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var creds []*models.Credential
	if err := cursor.All(ctx, &creds); err != nil {
		return nil, err
	}
	if creds == nil {
		creds = []*models.Credential{}
	}
	return creds, nil
}
