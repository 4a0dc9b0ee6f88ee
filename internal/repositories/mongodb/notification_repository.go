package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/CivicLink/civiclink-backend/internal/models"
	"github.com/CivicLink/civiclink-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure NotificationRepository implements the interface
var _ repositories.NotificationRepository = (*NotificationRepository)(nil)

// NotificationRepository handles MongoDB operations for Notification
type NotificationRepository struct {
	collection *mongo.Collection
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{
		collection: db.Collection("notifications"),
	}
}

// Create creates a new notification
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	notification.ID = primitive.NewObjectID()
	notification.CreatedAt = time.Now()
	notification.UpdatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, notification)
	return err
}

// FindByID finds a notification by ID
func (r *NotificationRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error) {
	var notification models.Notification
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&notification)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

// FindByStatus finds notifications by status with pagination
func (r *NotificationRepository) FindByStatus(ctx context.Context, status string, page, limit int) ([]*models.Notification, error) {
	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.M{"createdAt": -1})

	cursor, err := r.collection.Find(ctx, bson.M{"status": status}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var notifications []*models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}
	return notifications, nil
}

// SetStatus updates a notification's status field
func (r *NotificationRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// FindDueScheduled finds scheduled notifications whose scheduledFor has passed
func (r *NotificationRepository) FindDueScheduled(ctx context.Context, now time.Time, limit int) ([]*models.Notification, error) {
	filter := bson.M{
		"status":       models.NotificationStatusScheduled,
		"scheduledFor": bson.M{"$lte": now},
	}
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.M{"scheduledFor": 1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var notifications []*models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}
	return notifications, nil
}

// ClaimScheduled transitions scheduled -> sent only if the document is still
// scheduled, reporting whether this caller performed the transition.
func (r *NotificationRepository) ClaimScheduled(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	filter := bson.M{"_id": id, "status": models.NotificationStatusScheduled}
	update := bson.M{"$set": bson.M{
		"status":    models.NotificationStatusSent,
		"sentAt":    now,
		"updatedAt": now,
	}}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount == 1, nil
}

// RecordDelivery writes the delivery outcome of one fan-out attempt
func (r *NotificationRepository) RecordDelivery(ctx context.Context, id primitive.ObjectID, outcome *models.DeliveryOutcome, sentAt time.Time) error {
	set := bson.M{
		"sentTo":           outcome.SentTo,
		"deliveredTo":      outcome.DeliveredTo,
		"failedDeliveries": outcome.FailedDeliveries,
		"sentAt":           sentAt,
		"updatedAt":        time.Now(),
	}
	if outcome.Error != "" {
		set["error"] = outcome.Error
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

// Count counts all notifications
func (r *NotificationRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}
