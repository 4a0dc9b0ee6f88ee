package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/CivicLink/civiclink-backend/internal/models"
	"github.com/CivicLink/civiclink-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure SystemSettingsRepository implements the interface
var _ repositories.SystemSettingsRepository = (*SystemSettingsRepository)(nil)

// SystemSettingsRepository handles MongoDB operations for system settings
type SystemSettingsRepository struct {
	collection *mongo.Collection
}

// NewSystemSettingsRepository creates a new SystemSettingsRepository
func NewSystemSettingsRepository(db *mongo.Database) *SystemSettingsRepository {
	return &SystemSettingsRepository{
		collection: db.Collection("system_settings"),
	}
}

// GetSettings retrieves the current system settings, creating defaults when
// none exist yet.
func (r *SystemSettingsRepository) GetSettings(ctx context.Context) (*models.SystemSettings, error) {
	var settings models.SystemSettings
	err := r.collection.FindOne(ctx, bson.M{}).Decode(&settings)
	if errors.Is(err, mongo.ErrNoDocuments) {
		settings = models.SystemSettings{
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if _, err := r.collection.InsertOne(ctx, &settings); err != nil {
			return nil, err
		}
		return &settings, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// RecordMonthlyReset writes the summary of a completed monthly reset run
func (r *SystemSettingsRepository) RecordMonthlyReset(ctx context.Context, count int, trigger, actor string, at time.Time) error {
	update := bson.M{"$set": bson.M{
		"lastResetCount":   count,
		"lastResetAt":      at,
		"lastResetTrigger": trigger,
		"lastResetBy":      actor,
		"updatedAt":        time.Now(),
	}}
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, bson.M{}, update, opts)
	return err
}
