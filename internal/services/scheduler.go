package services

import (
	"context"
	"log"
	"time"

	"github.com/CivicLink/civiclink-backend/internal/models"
	"github.com/CivicLink/civiclink-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Scheduler runs the background loops: the due-notification sweep and the
// first-of-month points reset.
type Scheduler struct {
	notifications *NotificationService
	points        *PointsService
	settingsRepo  repositories.SystemSettingsRepository
	sweepInterval time.Duration
	now           func() time.Time
	stopChan      chan struct{}
}

// NewScheduler creates a new Scheduler
func NewScheduler(
	notifications *NotificationService,
	points *PointsService,
	settingsRepo repositories.SystemSettingsRepository,
	sweepMinutes int,
) *Scheduler {
	return &Scheduler{
		notifications: notifications,
		points:        points,
		settingsRepo:  settingsRepo,
		sweepInterval: time.Duration(sweepMinutes) * time.Minute,
		now:           time.Now,
		stopChan:      make(chan struct{}),
	}
}

// Start launches the background loops
func (s *Scheduler) Start() {
	log.Printf("[INFO] Scheduler: starting (sweep interval %s)", s.sweepInterval)
	go s.sweepLoop()
	go s.resetLoop()
}

// Stop signals the loops to exit
func (s *Scheduler) Stop() {
	close(s.stopChan)
	log.Println("[INFO] Scheduler: stopped")
}

func (s *Scheduler) sweepLoop() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			sent, err := s.notifications.SweepScheduled(ctx, s.now())
			cancel()
			if err != nil {
				log.Printf("[ERROR] Scheduler: notification sweep failed: %v", err)
			} else if sent > 0 {
				log.Printf("[INFO] Scheduler: sweep sent %d due notifications", sent)
			}
		case <-s.stopChan:
			return
		}
	}
}

// resetLoop checks hourly whether the monthly reset is due. The reset runs
// on the first day of the month and the settings document records the last
// run, so a restarted or second instance will not reset twice.
func (s *Scheduler) resetLoop() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.maybeResetMonthly()
		case <-s.stopChan:
			return
		}
	}
}

func (s *Scheduler) maybeResetMonthly() {
	now := s.now()
	if now.Day() != 1 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	settings, err := s.settingsRepo.GetSettings(ctx)
	if err != nil {
		log.Printf("[ERROR] Scheduler: failed to load settings: %v", err)
		return
	}
	if !settings.LastResetAt.IsZero() &&
		settings.LastResetAt.Year() == now.Year() &&
		settings.LastResetAt.Month() == now.Month() {
		return
	}

	count, err := s.points.ResetMonthlyPoints(ctx, models.TriggerScheduled, primitive.NilObjectID)
	if err != nil {
		log.Printf("[ERROR] Scheduler: monthly reset failed: %v", err)
		return
	}
	log.Printf("[INFO] Scheduler: monthly reset done, %d users affected", count)
}
