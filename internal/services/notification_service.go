package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/CivicLink/civiclink-backend/internal/config"
	"github.com/CivicLink/civiclink-backend/internal/models"
	"github.com/CivicLink/civiclink-backend/internal/repositories"
	"github.com/CivicLink/civiclink-backend/pkg/push"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// sweepBatchSize caps how many due notifications one sweep picks up
const sweepBatchSize = 100

// ChangeKind identifies the kind of document-store change
type ChangeKind string

// Change kinds
const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
)

// ChangeEvent mirrors a document-store change trigger so fan-out logic can
// be driven from synthetic events in tests as well as live writes.
type ChangeEvent struct {
	Kind   ChangeKind
	Before *models.Notification
	After  *models.Notification
}

// PushTargets holds the resolved tokens for a recipient set, split by
// transport.
type PushTargets struct {
	FCMTokens  []string
	ExpoTokens []string
}

// Total reports the number of resolved tokens across both transports
func (t *PushTargets) Total() int {
	return len(t.FCMTokens) + len(t.ExpoTokens)
}

// NotificationService handles notification fan-out and the per-user inbox
type NotificationService struct {
	notificationRepo repositories.NotificationRepository
	inboxRepo        repositories.UserNotificationRepository
	userRepo         repositories.UserRepository
	batches          repositories.BatchWriter
	multicaster      push.Multicaster
	bridge           push.BridgeSender
	maxBatchWrites   int
	now              func() time.Time
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	notificationRepo repositories.NotificationRepository,
	inboxRepo repositories.UserNotificationRepository,
	userRepo repositories.UserRepository,
	batches repositories.BatchWriter,
	multicaster push.Multicaster,
	bridge push.BridgeSender,
	cfg *config.Config,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		inboxRepo:        inboxRepo,
		userRepo:         userRepo,
		batches:          batches,
		multicaster:      multicaster,
		bridge:           bridge,
		maxBatchWrites:   cfg.Points.MaxBatchWrites,
		now:              time.Now,
	}
}

// Create persists a new notification. A direct creation with status "sent"
// skips the scheduled state and fans out immediately.
func (s *NotificationService) Create(ctx context.Context, callerID primitive.ObjectID, n *models.Notification) error {
	if err := requireAdmin(ctx, s.userRepo, callerID); err != nil {
		return err
	}
	if n.Title == "" || n.Message == "" {
		return fmt.Errorf("%w: title and message are required", ErrInvalidArgument)
	}
	switch n.Status {
	case models.NotificationStatusScheduled:
		if n.ScheduledFor == nil {
			return fmt.Errorf("%w: scheduled notifications need scheduledFor", ErrInvalidArgument)
		}
	case models.NotificationStatusSent:
	case "":
		if n.ScheduledFor != nil {
			n.Status = models.NotificationStatusScheduled
		} else {
			n.Status = models.NotificationStatusSent
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, n.Status)
	}

	if err := s.notificationRepo.Create(ctx, n); err != nil {
		return err
	}
	return s.HandleChange(ctx, ChangeEvent{Kind: ChangeCreated, After: n})
}

// HandleChange reacts to a document change event. Fan-out fires for
// creations that arrive already sent and for updates that transition into
// sent; any other edit of a sent notification must not re-trigger delivery.
func (s *NotificationService) HandleChange(ctx context.Context, ev ChangeEvent) error {
	switch ev.Kind {
	case ChangeCreated:
		if ev.After != nil && ev.After.Status == models.NotificationStatusSent {
			return s.deliver(ctx, ev.After)
		}
	case ChangeUpdated:
		if ev.Before == nil || ev.After == nil {
			return nil
		}
		if ev.Before.Status != models.NotificationStatusSent && ev.After.Status == models.NotificationStatusSent {
			return s.deliver(ctx, ev.After)
		}
	}
	return nil
}

// UpdateStatus applies a status edit through the change-event path so that
// a scheduled -> sent transition triggers exactly one fan-out attempt.
func (s *NotificationService) UpdateStatus(ctx context.Context, callerID, id primitive.ObjectID, status string) (*models.Notification, error) {
	if err := requireAdmin(ctx, s.userRepo, callerID); err != nil {
		return nil, err
	}
	if status != models.NotificationStatusScheduled && status != models.NotificationStatusSent {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, status)
	}

	before, err := s.notificationRepo.FindByID(ctx, id)
	if err == repositories.ErrNotFound {
		return nil, fmt.Errorf("%w: notification %s", ErrNotFound, id.Hex())
	}
	if err != nil {
		return nil, err
	}

	if err := s.notificationRepo.SetStatus(ctx, id, status); err != nil {
		return nil, err
	}

	after := *before
	after.Status = status
	if err := s.HandleChange(ctx, ChangeEvent{Kind: ChangeUpdated, Before: before, After: &after}); err != nil {
		return nil, err
	}
	return &after, nil
}

// GetByID retrieves a notification by ID
func (s *NotificationService) GetByID(ctx context.Context, callerID, id primitive.ObjectID) (*models.Notification, error) {
	if err := requireAdmin(ctx, s.userRepo, callerID); err != nil {
		return nil, err
	}
	n, err := s.notificationRepo.FindByID(ctx, id)
	if err == repositories.ErrNotFound {
		return nil, fmt.Errorf("%w: notification %s", ErrNotFound, id.Hex())
	}
	return n, err
}

// ListByStatus retrieves notifications by status with pagination
func (s *NotificationService) ListByStatus(ctx context.Context, callerID primitive.ObjectID, status string, page, limit int) ([]*models.Notification, error) {
	if err := requireAdmin(ctx, s.userRepo, callerID); err != nil {
		return nil, err
	}
	return s.notificationRepo.FindByStatus(ctx, status, page, limit)
}

// ResolvePushTargets looks up each user and collects whichever token fields
// are present. Users with neither token, and unknown users, are silently
// skipped.
func (s *NotificationService) ResolvePushTargets(ctx context.Context, userIDs []primitive.ObjectID) (*PushTargets, error) {
	users, err := s.userRepo.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	targets := &PushTargets{}
	for _, u := range users {
		if u.FCMToken != "" {
			targets.FCMTokens = append(targets.FCMTokens, u.FCMToken)
		}
		if u.ExpoPushToken != "" {
			targets.ExpoTokens = append(targets.ExpoTokens, u.ExpoPushToken)
		}
	}
	return targets, nil
}

// deliver runs one fan-out attempt and records its outcome
func (s *NotificationService) deliver(ctx context.Context, n *models.Notification) error {
	outcome := s.fanOut(ctx, n)
	n.SentTo = outcome.SentTo
	n.DeliveredTo = outcome.DeliveredTo
	n.FailedDeliveries = outcome.FailedDeliveries
	n.Error = outcome.Error
	return s.notificationRepo.RecordDelivery(ctx, n.ID, outcome, s.now())
}

// fanOut splits the recipients by transport, sends each batch and merges
// the results. Partial success is the normal case; Error is populated only
// on total failure (no resolvable targets, a resolution error, or every
// attempted transport erroring).
func (s *NotificationService) fanOut(ctx context.Context, n *models.Notification) *models.DeliveryOutcome {
	targets, err := s.ResolvePushTargets(ctx, n.TargetUsers)
	if err != nil {
		return &models.DeliveryOutcome{Error: fmt.Sprintf("failed to resolve push targets: %v", err)}
	}
	if targets.Total() == 0 {
		return &models.DeliveryOutcome{Error: "no resolvable push targets"}
	}

	outcome := &models.DeliveryOutcome{SentTo: targets.Total()}
	msg := push.Message{
		Title: n.Title,
		Body:  n.Message,
		Data: map[string]string{
			"type":           n.Type,
			"priority":       n.Priority,
			"notificationId": n.ID.Hex(),
		},
	}

	transports, transportErrors := 0, 0

	if len(targets.FCMTokens) > 0 {
		transports++
		result, err := s.multicaster.SendMulticast(ctx, targets.FCMTokens, msg)
		if err != nil {
			transportErrors++
			outcome.FailedDeliveries += len(targets.FCMTokens)
			log.Printf("[WARN] NotificationService: FCM multicast failed: %v", err)
		} else {
			outcome.DeliveredTo += result.Delivered
			outcome.FailedDeliveries += result.Failed
			if len(result.Unregistered) > 0 {
				if err := s.userRepo.RemoveFCMTokens(ctx, result.Unregistered); err != nil {
					log.Printf("[WARN] NotificationService: failed to prune %d dead tokens: %v", len(result.Unregistered), err)
				}
			}
		}
	}

	if len(targets.ExpoTokens) > 0 {
		transports++
		messages := make([]push.BridgeMessage, 0, len(targets.ExpoTokens))
		for _, token := range targets.ExpoTokens {
			messages = append(messages, push.BridgeMessage{
				To:    token,
				Title: msg.Title,
				Body:  msg.Body,
				Data:  msg.Data,
			})
		}
		if err := s.bridge.SendBatch(ctx, messages); err != nil {
			transportErrors++
			outcome.FailedDeliveries += len(targets.ExpoTokens)
			log.Printf("[WARN] NotificationService: push bridge batch failed: %v", err)
		} else {
			// The bridge reports no per-token outcomes; a 200 counts the
			// whole batch as delivered.
			outcome.DeliveredTo += len(targets.ExpoTokens)
		}
	}

	if transports > 0 && transportErrors == transports {
		outcome.Error = "all push transports failed"
	}
	return outcome
}

// SweepScheduled claims due scheduled notifications and fans each out
// exactly once. Returns the number of notifications sent.
func (s *NotificationService) SweepScheduled(ctx context.Context, now time.Time) (int, error) {
	due, err := s.notificationRepo.FindDueScheduled(ctx, now, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, n := range due {
		claimed, err := s.notificationRepo.ClaimScheduled(ctx, n.ID, now)
		if err != nil {
			log.Printf("[WARN] NotificationService: failed to claim notification %s: %v", n.ID.Hex(), err)
			continue
		}
		if !claimed {
			// Another instance won the transition.
			continue
		}
		n.Status = models.NotificationStatusSent
		if err := s.deliver(ctx, n); err != nil {
			log.Printf("[WARN] NotificationService: failed to record delivery for %s: %v", n.ID.Hex(), err)
			continue
		}
		sent++
	}
	return sent, nil
}

// Broadcast writes one inbox document per non-admin target in batched
// commits. Targets get no push-delivery guarantee from this path; a failed
// batch commit surfaces to the caller and is not retried.
func (s *NotificationService) Broadcast(ctx context.Context, callerID primitive.ObjectID, targetUserIDs []primitive.ObjectID, title, message, notificationType string) (int, error) {
	if err := requireAdmin(ctx, s.userRepo, callerID); err != nil {
		return 0, err
	}
	if title == "" || message == "" {
		return 0, fmt.Errorf("%w: title and message are required", ErrInvalidArgument)
	}

	var users []*models.User
	var err error
	if len(targetUserIDs) > 0 {
		users, err = s.userRepo.FindByIDs(ctx, targetUserIDs)
	} else {
		users, err = s.userRepo.FindAll(ctx)
	}
	if err != nil {
		return 0, err
	}

	batch := s.batches.NewBatch()
	written := 0
	for _, u := range users {
		if u.IsAdmin() {
			continue
		}
		if batch.Len() >= s.maxBatchWrites {
			if err := batch.Commit(ctx); err != nil {
				return written, err
			}
			written += batch.Len()
			batch = s.batches.NewBatch()
		}
		batch.AddInboxNotification(&models.UserNotification{
			UserID:    u.ID,
			Title:     title,
			Message:   message,
			Type:      notificationType,
			CreatedAt: s.now(),
		})
	}
	if batch.Len() > 0 {
		if err := batch.Commit(ctx); err != nil {
			return written, err
		}
		written += batch.Len()
	}
	return written, nil
}

// Inbox returns a user's inbox entries, newest first
func (s *NotificationService) Inbox(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]*models.UserNotification, error) {
	return s.inboxRepo.FindByUserID(ctx, userID, page, limit)
}

// MarkInboxRead flags one of the caller's own inbox entries as read.
// Entries belonging to anyone else come back as not found.
func (s *NotificationService) MarkInboxRead(ctx context.Context, userID, id primitive.ObjectID) error {
	err := s.inboxRepo.MarkRead(ctx, userID, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("%w: inbox entry %s", ErrNotFound, id.Hex())
	}
	return err
}
