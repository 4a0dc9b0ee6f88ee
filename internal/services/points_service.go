package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/CivicLink/civiclink-backend/internal/config"
	"github.com/CivicLink/civiclink-backend/internal/models"
	"github.com/CivicLink/civiclink-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PointsService handles the points ledger, admin point edits and the
// monthly reset.
type PointsService struct {
	userRepo       repositories.UserRepository
	ledgerRepo     repositories.PointTransactionRepository
	settingsRepo   repositories.SystemSettingsRepository
	batches        repositories.BatchWriter
	maxBatchWrites int
	now            func() time.Time
}

// NewPointsService creates a new PointsService
func NewPointsService(
	userRepo repositories.UserRepository,
	ledgerRepo repositories.PointTransactionRepository,
	settingsRepo repositories.SystemSettingsRepository,
	batches repositories.BatchWriter,
	cfg *config.Config,
) *PointsService {
	return &PointsService{
		userRepo:       userRepo,
		ledgerRepo:     ledgerRepo,
		settingsRepo:   settingsRepo,
		batches:        batches,
		maxBatchWrites: cfg.Points.MaxBatchWrites,
		now:            time.Now,
	}
}

// EditUserPoints applies a signed delta to a user's total and monthly
// balances atomically and appends a ledger entry in the same transaction.
// Balances clamp at zero rather than going negative.
func (s *PointsService) EditUserPoints(ctx context.Context, callerID, targetID primitive.ObjectID, delta float64, reason string) (*models.PointTransaction, error) {
	if err := requireAdmin(ctx, s.userRepo, callerID); err != nil {
		return nil, err
	}
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return nil, fmt.Errorf("%w: delta must be a finite number", ErrInvalidArgument)
	}
	if delta != math.Trunc(delta) {
		return nil, fmt.Errorf("%w: delta must be an integral value", ErrInvalidArgument)
	}
	if delta == 0 {
		return nil, fmt.Errorf("%w: delta must be non-zero", ErrInvalidArgument)
	}

	d := int(delta)
	var entry *models.PointTransaction
	err := s.userRepo.UpdatePointsTx(ctx, targetID, func(u *models.User) (*models.PointTransaction, error) {
		before := models.PointsSnapshot{Total: u.TotalPoints, Monthly: u.MonthlyPoints}
		u.TotalPoints = clampPoints(u.TotalPoints + d)
		u.MonthlyPoints = clampPoints(u.MonthlyPoints + d)
		u.Points = u.TotalPoints

		entry = &models.PointTransaction{
			UserID:   u.ID,
			Delta:    d,
			Activity: models.ActivityAdminEdit,
			Reason:   reason,
			Before:   before,
			After:    models.PointsSnapshot{Total: u.TotalPoints, Monthly: u.MonthlyPoints},
			Source:   "admin",
			ActorID:  callerID,
		}
		return entry, nil
	})
	if err == repositories.ErrNotFound {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, targetID.Hex())
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ResetMonthlyPoints zeroes every user's monthly balance and appends one
// ledger entry per affected user. Writes go out in bounded batches so the
// two writes for a user are never split across batches. The manual trigger
// requires an admin caller; the scheduled trigger runs unauthenticated.
func (s *PointsService) ResetMonthlyPoints(ctx context.Context, trigger string, actorID primitive.ObjectID) (int, error) {
	if trigger == models.TriggerManual {
		if err := requireAdmin(ctx, s.userRepo, actorID); err != nil {
			return 0, err
		}
	}

	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	batch := s.batches.NewBatch()
	reset, committed := 0, 0
	for _, u := range users {
		// Zero balances still get a zero-delta entry, so a re-run after a
		// partial failure is safe.
		if batch.Len()+2 > s.maxBatchWrites {
			if err := batch.Commit(ctx); err != nil {
				return committed, err
			}
			committed = reset
			batch = s.batches.NewBatch()
		}
		batch.ResetMonthlyPoints(u.ID)
		batch.AppendLedgerEntry(&models.PointTransaction{
			UserID:    u.ID,
			Delta:     -u.MonthlyPoints,
			Activity:  models.ActivityMonthlyReset,
			Reason:    "monthly points reset",
			Before:    models.PointsSnapshot{Total: u.TotalPoints, Monthly: u.MonthlyPoints},
			After:     models.PointsSnapshot{Total: u.TotalPoints, Monthly: 0},
			Source:    trigger,
			ActorID:   actorID,
			CreatedAt: now,
		})
		reset++
	}
	if batch.Len() > 0 {
		if err := batch.Commit(ctx); err != nil {
			return committed, err
		}
	}

	actor := ""
	if !actorID.IsZero() {
		actor = actorID.Hex()
	}
	if err := s.settingsRepo.RecordMonthlyReset(ctx, reset, trigger, actor, now); err != nil {
		log.Printf("[WARN] PointsService: failed to record reset summary: %v", err)
	}
	log.Printf("[INFO] PointsService: monthly reset complete, %d users affected (trigger=%s)", reset, trigger)
	return reset, nil
}

// GetLedger returns a user's point transactions, newest first. Users may
// read their own ledger; reading someone else's requires admin.
func (s *PointsService) GetLedger(ctx context.Context, callerID, targetID primitive.ObjectID, page, limit int) ([]*models.PointTransaction, error) {
	if callerID != targetID {
		if err := requireAdmin(ctx, s.userRepo, callerID); err != nil {
			return nil, err
		}
	}
	return s.ledgerRepo.FindByUserID(ctx, targetID, page, limit)
}

func clampPoints(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
