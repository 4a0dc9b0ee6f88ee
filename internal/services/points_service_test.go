package services

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/CivicLink/civiclink-backend/internal/config"
	"github.com/CivicLink/civiclink-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type pointsFixture struct {
	svc      *PointsService
	users    *fakeUserRepo
	ledger   *fakeLedgerRepo
	settings *fakeSettingsRepo
	batches  *fakeBatchWriter
	admin    *models.User
}

func newPointsFixture(cfg *config.Config, users ...*models.User) *pointsFixture {
	admin := &models.User{
		ID:    primitive.NewObjectID(),
		Email: "admin@example.com",
		Role:  models.RoleAdmin,
	}
	userRepo := newFakeUserRepo(append(users, admin)...)
	ledger := &fakeLedgerRepo{}
	settings := &fakeSettingsRepo{}
	batches := &fakeBatchWriter{users: userRepo, ledger: ledger}

	svc := NewPointsService(userRepo, ledger, settings, batches, cfg)
	return &pointsFixture{
		svc:      svc,
		users:    userRepo,
		ledger:   ledger,
		settings: settings,
		batches:  batches,
		admin:    admin,
	}
}

func TestEditUserPointsConcurrent(t *testing.T) {
	target := &models.User{
		ID:            primitive.NewObjectID(),
		Role:          models.RoleResident,
		TotalPoints:   5,
		MonthlyPoints: 5,
		Points:        5,
	}
	fx := newPointsFixture(testConfig(), target)

	var wg sync.WaitGroup
	for _, delta := range []float64{10, -3} {
		wg.Add(1)
		go func(d float64) {
			defer wg.Done()
			if _, err := fx.svc.EditUserPoints(context.Background(), fx.admin.ID, target.ID, d, "load test"); err != nil {
				t.Errorf("EditUserPoints(%v): %v", d, err)
			}
		}(delta)
	}
	wg.Wait()

	after, _ := fx.users.FindByID(context.Background(), target.ID)
	if after.TotalPoints != 12 || after.MonthlyPoints != 12 {
		t.Errorf("total/monthly = %d/%d, want 12/12", after.TotalPoints, after.MonthlyPoints)
	}
	if after.Points != after.TotalPoints {
		t.Errorf("legacy mirror = %d, want %d", after.Points, after.TotalPoints)
	}
	if len(fx.users.ledger) != 2 {
		t.Fatalf("ledger entries = %d, want 2", len(fx.users.ledger))
	}
	// Entries must chain: each Before matches the state the other left.
	for _, e := range fx.users.ledger {
		want := clampPoints(e.Before.Total + e.Delta)
		if e.After.Total != want {
			t.Errorf("entry delta %d: after.total = %d, want %d", e.Delta, e.After.Total, want)
		}
	}
}

func TestEditUserPointsClampsAtZero(t *testing.T) {
	target := &models.User{
		ID:            primitive.NewObjectID(),
		Role:          models.RoleResident,
		TotalPoints:   5,
		MonthlyPoints: 2,
		Points:        5,
	}
	fx := newPointsFixture(testConfig(), target)

	entry, err := fx.svc.EditUserPoints(context.Background(), fx.admin.ID, target.ID, -10, "penalty")
	if err != nil {
		t.Fatalf("EditUserPoints: %v", err)
	}

	after, _ := fx.users.FindByID(context.Background(), target.ID)
	if after.TotalPoints != 0 || after.MonthlyPoints != 0 {
		t.Errorf("total/monthly = %d/%d, want 0/0", after.TotalPoints, after.MonthlyPoints)
	}
	if entry.Before.Total != 5 || entry.Before.Monthly != 2 {
		t.Errorf("before = %+v, want {5 2}", entry.Before)
	}
	if entry.After.Total != 0 || entry.After.Monthly != 0 {
		t.Errorf("after = %+v, want {0 0}", entry.After)
	}
	if entry.Delta != -10 {
		t.Errorf("delta = %d, want -10 (the requested delta, not the applied one)", entry.Delta)
	}
}

func TestEditUserPointsRejectsBadDeltas(t *testing.T) {
	target := &models.User{ID: primitive.NewObjectID(), Role: models.RoleResident}
	fx := newPointsFixture(testConfig(), target)

	for _, delta := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 2.5, -0.001, 0} {
		_, err := fx.svc.EditUserPoints(context.Background(), fx.admin.ID, target.ID, delta, "r")
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("delta %v: err = %v, want ErrInvalidArgument", delta, err)
		}
	}
	if len(fx.users.ledger) != 0 {
		t.Error("rejected deltas still wrote ledger entries")
	}
}

func TestEditUserPointsTargetNotFound(t *testing.T) {
	fx := newPointsFixture(testConfig())

	_, err := fx.svc.EditUserPoints(context.Background(), fx.admin.ID, primitive.NewObjectID(), 5, "r")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestEditUserPointsWritesLedgerEntry(t *testing.T) {
	target := &models.User{ID: primitive.NewObjectID(), Role: models.RoleResident, TotalPoints: 3, MonthlyPoints: 1, Points: 3}
	fx := newPointsFixture(testConfig(), target)

	entry, err := fx.svc.EditUserPoints(context.Background(), fx.admin.ID, target.ID, 7, "cleanup volunteer")
	if err != nil {
		t.Fatalf("EditUserPoints: %v", err)
	}

	if entry.Activity != models.ActivityAdminEdit {
		t.Errorf("activity = %q, want %q", entry.Activity, models.ActivityAdminEdit)
	}
	if entry.Source != "admin" {
		t.Errorf("source = %q, want admin", entry.Source)
	}
	if entry.ActorID != fx.admin.ID {
		t.Errorf("actor = %s, want %s", entry.ActorID.Hex(), fx.admin.ID.Hex())
	}
	if entry.Reason != "cleanup volunteer" {
		t.Errorf("reason = %q", entry.Reason)
	}
	if entry.UserID != target.ID {
		t.Errorf("userId = %s, want %s", entry.UserID.Hex(), target.ID.Hex())
	}
	if entry.Before.Total != 3 || entry.After.Total != 10 {
		t.Errorf("before/after total = %d/%d, want 3/10", entry.Before.Total, entry.After.Total)
	}
}

func TestEditUserPointsGate(t *testing.T) {
	resident := &models.User{ID: primitive.NewObjectID(), Role: models.RoleResident}
	target := &models.User{ID: primitive.NewObjectID(), Role: models.RoleResident}
	fx := newPointsFixture(testConfig(), resident, target)

	if _, err := fx.svc.EditUserPoints(context.Background(), resident.ID, target.ID, 5, "r"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("resident edit = %v, want ErrPermissionDenied", err)
	}
	if _, err := fx.svc.EditUserPoints(context.Background(), primitive.NilObjectID, target.ID, 5, "r"); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("anonymous edit = %v, want ErrUnauthenticated", err)
	}
}

func TestResetMonthlyPointsBatchesPairedWrites(t *testing.T) {
	cfg := testConfig()
	cfg.Points.MaxBatchWrites = 4

	users := make([]*models.User, 5)
	for i := range users {
		users[i] = &models.User{
			ID:            primitive.NewObjectID(),
			Role:          models.RoleResident,
			TotalPoints:   100 + i,
			MonthlyPoints: 10 + i,
		}
	}
	fx := newPointsFixture(cfg, users...)

	count, err := fx.svc.ResetMonthlyPoints(context.Background(), models.TriggerManual, fx.admin.ID)
	if err != nil {
		t.Fatalf("ResetMonthlyPoints: %v", err)
	}
	if count != 6 {
		t.Errorf("count = %d, want 6 (five residents plus the admin)", count)
	}

	// Two writes per user against a ceiling of 4 means two users per batch;
	// a user's pair is never split.
	want := []int{4, 4, 4}
	if len(fx.batches.commitSizes) != len(want) {
		t.Fatalf("commit sizes = %v, want %v", fx.batches.commitSizes, want)
	}
	for i, size := range want {
		if fx.batches.commitSizes[i] != size {
			t.Fatalf("commit sizes = %v, want %v", fx.batches.commitSizes, want)
		}
	}

	for i, u := range users {
		after, _ := fx.users.FindByID(context.Background(), u.ID)
		if after.MonthlyPoints != 0 {
			t.Errorf("user %d monthly = %d, want 0", i, after.MonthlyPoints)
		}
		if after.TotalPoints != 100+i {
			t.Errorf("user %d total = %d, want untouched %d", i, after.TotalPoints, 100+i)
		}
	}

	if len(fx.ledger.entries) != 6 {
		t.Fatalf("ledger entries = %d, want 6", len(fx.ledger.entries))
	}
	for _, e := range fx.ledger.entries {
		if e.Activity != models.ActivityMonthlyReset {
			t.Errorf("activity = %q, want %q", e.Activity, models.ActivityMonthlyReset)
		}
		if e.Delta != -e.Before.Monthly {
			t.Errorf("delta = %d, want %d", e.Delta, -e.Before.Monthly)
		}
		if e.After.Monthly != 0 {
			t.Errorf("after.monthly = %d, want 0", e.After.Monthly)
		}
		if e.After.Total != e.Before.Total {
			t.Errorf("reset touched total: %d -> %d", e.Before.Total, e.After.Total)
		}
	}

	if fx.settings.settings.LastResetCount != 5 {
		t.Errorf("recorded count = %d, want 5", fx.settings.settings.LastResetCount)
	}
	if fx.settings.settings.LastResetTrigger != models.TriggerManual {
		t.Errorf("recorded trigger = %q, want manual", fx.settings.settings.LastResetTrigger)
	}
	if fx.settings.settings.LastResetBy != fx.admin.ID.Hex() {
		t.Errorf("recorded actor = %q, want %s", fx.settings.settings.LastResetBy, fx.admin.ID.Hex())
	}
}

func TestResetMonthlyPointsZeroBalance(t *testing.T) {
	idle := &models.User{ID: primitive.NewObjectID(), Role: models.RoleResident, TotalPoints: 8, MonthlyPoints: 0}
	fx := newPointsFixture(testConfig(), idle)

	// A re-run over an already-reset population must be safe: zero stays
	// zero and the entry carries delta 0, never a negative balance.
	count, err := fx.svc.ResetMonthlyPoints(context.Background(), models.TriggerScheduled, primitive.NilObjectID)
	if err != nil {
		t.Fatalf("ResetMonthlyPoints: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	var idleEntry *models.PointTransaction
	for _, e := range fx.ledger.entries {
		if e.UserID == idle.ID {
			idleEntry = e
		}
	}
	if idleEntry == nil {
		t.Fatal("zero-balance user got no ledger entry")
	}
	if idleEntry.Delta != 0 {
		t.Errorf("delta = %d, want 0", idleEntry.Delta)
	}
	if idleEntry.After.Monthly != 0 || idleEntry.After.Total != 8 {
		t.Errorf("after = %+v, want {8 0}", idleEntry.After)
	}

	if fx.settings.settings.LastResetTrigger != models.TriggerScheduled {
		t.Errorf("recorded trigger = %q, want scheduled", fx.settings.settings.LastResetTrigger)
	}
	if fx.settings.settings.LastResetBy != "" {
		t.Errorf("recorded actor = %q, want empty for scheduled run", fx.settings.settings.LastResetBy)
	}
}

func TestResetMonthlyPointsManualRequiresAdmin(t *testing.T) {
	resident := &models.User{ID: primitive.NewObjectID(), Role: models.RoleResident, MonthlyPoints: 4}
	fx := newPointsFixture(testConfig(), resident)

	if _, err := fx.svc.ResetMonthlyPoints(context.Background(), models.TriggerManual, resident.ID); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("resident manual reset = %v, want ErrPermissionDenied", err)
	}
	// The scheduled trigger carries no caller and must not be gated.
	if _, err := fx.svc.ResetMonthlyPoints(context.Background(), models.TriggerScheduled, primitive.NilObjectID); err != nil {
		t.Errorf("scheduled reset = %v, want nil", err)
	}
}

func TestResetMonthlyPointsCommitFailureStops(t *testing.T) {
	users := []*models.User{
		{ID: primitive.NewObjectID(), Role: models.RoleResident, MonthlyPoints: 4},
		{ID: primitive.NewObjectID(), Role: models.RoleResident, MonthlyPoints: 4},
	}
	fx := newPointsFixture(testConfig(), users...)
	fx.batches.commitErr = errors.New("bulk write failed")

	if _, err := fx.svc.ResetMonthlyPoints(context.Background(), models.TriggerManual, fx.admin.ID); err == nil {
		t.Fatal("ResetMonthlyPoints swallowed a commit failure")
	}
	if len(fx.ledger.entries) != 0 {
		t.Error("failed commit still wrote ledger entries")
	}
	if !fx.settings.settings.LastResetAt.IsZero() {
		t.Error("failed reset still recorded a summary")
	}
}

func TestGetLedgerSelfOrAdmin(t *testing.T) {
	owner := &models.User{ID: primitive.NewObjectID(), Role: models.RoleResident}
	other := &models.User{ID: primitive.NewObjectID(), Role: models.RoleResident}
	fx := newPointsFixture(testConfig(), owner, other)
	fx.ledger.entries = []*models.PointTransaction{
		{UserID: owner.ID, Delta: 5, Activity: models.ActivityAdminEdit},
	}

	entries, err := fx.svc.GetLedger(context.Background(), owner.ID, owner.ID, 1, 20)
	if err != nil {
		t.Fatalf("self read: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("self read entries = %d, want 1", len(entries))
	}

	if _, err := fx.svc.GetLedger(context.Background(), other.ID, owner.ID, 1, 20); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("cross read = %v, want ErrPermissionDenied", err)
	}

	if _, err := fx.svc.GetLedger(context.Background(), fx.admin.ID, owner.ID, 1, 20); err != nil {
		t.Errorf("admin read = %v, want nil", err)
	}
}
