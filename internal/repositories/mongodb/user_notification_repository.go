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

// Compile-time check to ensure UserNotificationRepository implements the interface
var _ repositories.UserNotificationRepository = (*UserNotificationRepository)(nil)

// UserNotificationRepository reads the per-user inbox documents written by
// broadcast batches.
type UserNotificationRepository struct {
	collection *mongo.Collection
}

// NewUserNotificationRepository creates a new UserNotificationRepository
func NewUserNotificationRepository(db *mongo.Database) *UserNotificationRepository {
	return &UserNotificationRepository{
		collection: db.Collection("user_notifications"),
	}
}

// FindByUserID returns a user's inbox, newest first
func (r *UserNotificationRepository) FindByUserID(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]*models.UserNotification, error) {
	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.M{"createdAt": -1})

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var notifications []*models.UserNotification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	if notifications == nil {
		notifications = []*models.UserNotification{}
	}
	return notifications, nil
}

// MarkRead flags an inbox entry as read. The filter carries the owner so a
// guessed id belonging to someone else matches nothing.
func (r *UserNotificationRepository) MarkRead(ctx context.Context, userID, id primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"read": true, "updatedAt": time.Now()}}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "userId": userID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}
