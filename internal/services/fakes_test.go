package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/CivicLink/civiclink-backend/internal/models"
	"github.com/CivicLink/civiclink-backend/internal/repositories"
	"github.com/CivicLink/civiclink-backend/pkg/push"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeUserRepo is an in-memory UserRepository. UpdatePointsTx serializes
// through the mutex the way the real store serializes through transactions.
type fakeUserRepo struct {
	mu            sync.Mutex
	users         map[primitive.ObjectID]*models.User
	ledger        []*models.PointTransaction
	removedTokens [][]string
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[primitive.ObjectID]*models.User)}
	for _, u := range users {
		if u.ID.IsZero() {
			u.ID = primitive.NewObjectID()
		}
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeUserRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) FindAll(ctx context.Context) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.User, 0, len(r.users))
	for _, u := range r.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out, nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

func (r *fakeUserRepo) RemoveFCMTokens(ctx context.Context, tokens []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removedTokens = append(r.removedTokens, tokens)
	dead := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		dead[t] = true
	}
	for _, u := range r.users {
		if dead[u.FCMToken] {
			u.FCMToken = ""
		}
	}
	return nil
}

func (r *fakeUserRepo) UpdatePointsTx(ctx context.Context, id primitive.ObjectID, mutate func(*models.User) (*models.PointTransaction, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	cp := *u
	entry, err := mutate(&cp)
	if err != nil {
		return err
	}
	r.users[id] = &cp
	if entry != nil {
		r.ledger = append(r.ledger, entry)
	}
	return nil
}

// fakeCredentialRepo is an in-memory CredentialRepository
type fakeCredentialRepo struct {
	current map[string]*models.Credential
	history map[string][]*models.Credential // newest first
	saveErr error
}

func newFakeCredentialRepo() *fakeCredentialRepo {
	return &fakeCredentialRepo{
		current: make(map[string]*models.Credential),
		history: make(map[string][]*models.Credential),
	}
}

func (r *fakeCredentialRepo) SaveCurrent(ctx context.Context, cred *models.Credential) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	cp := *cred
	r.current[cred.SubjectID] = &cp
	return nil
}

func (r *fakeCredentialRepo) FindCurrent(ctx context.Context, subjectID string) (*models.Credential, error) {
	cred, ok := r.current[subjectID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *cred
	return &cp, nil
}

func (r *fakeCredentialRepo) DeleteCurrent(ctx context.Context, subjectID string) error {
	delete(r.current, subjectID)
	return nil
}

func (r *fakeCredentialRepo) AppendHistory(ctx context.Context, cred *models.Credential, limit int) error {
	cp := *cred
	entries := append([]*models.Credential{&cp}, r.history[cred.SubjectID]...)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	r.history[cred.SubjectID] = entries
	return nil
}

func (r *fakeCredentialRepo) FindHistory(ctx context.Context, subjectID string, limit int) ([]*models.Credential, error) {
	entries := r.history[subjectID]
	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]*models.Credential, len(entries))
	copy(out, entries)
	return out, nil
}

// fakeNotificationRepo is an in-memory NotificationRepository. Claims go
// through the mutex so racing sweeps observe the same winner-takes-it
// semantics as the store's conditional update.
type fakeNotificationRepo struct {
	mu            sync.Mutex
	notifications map[primitive.ObjectID]*models.Notification
}

func newFakeNotificationRepo(notifications ...*models.Notification) *fakeNotificationRepo {
	r := &fakeNotificationRepo{notifications: make(map[primitive.ObjectID]*models.Notification)}
	for _, n := range notifications {
		if n.ID.IsZero() {
			n.ID = primitive.NewObjectID()
		}
		r.notifications[n.ID] = n
	}
	return r
}

func (r *fakeNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	cp := *n
	r.notifications[n.ID] = &cp
	return nil
}

func (r *fakeNotificationRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (r *fakeNotificationRepo) FindByStatus(ctx context.Context, status string, page, limit int) ([]*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Notification
	for _, n := range r.notifications {
		if n.Status == status {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return repositories.ErrNotFound
	}
	n.Status = status
	return nil
}

func (r *fakeNotificationRepo) FindDueScheduled(ctx context.Context, now time.Time, limit int) ([]*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Notification
	for _, n := range r.notifications {
		if n.Status == models.NotificationStatusScheduled && n.ScheduledFor != nil && !n.ScheduledFor.After(now) {
			cp := *n
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) ClaimScheduled(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok || n.Status != models.NotificationStatusScheduled {
		return false, nil
	}
	n.Status = models.NotificationStatusSent
	n.SentAt = now
	return true, nil
}

func (r *fakeNotificationRepo) RecordDelivery(ctx context.Context, id primitive.ObjectID, outcome *models.DeliveryOutcome, sentAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return repositories.ErrNotFound
	}
	n.SentTo = outcome.SentTo
	n.DeliveredTo = outcome.DeliveredTo
	n.FailedDeliveries = outcome.FailedDeliveries
	n.Error = outcome.Error
	n.SentAt = sentAt
	return nil
}

func (r *fakeNotificationRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.notifications)), nil
}

// fakeInboxRepo is an in-memory UserNotificationRepository
type fakeInboxRepo struct {
	items []*models.UserNotification
}

func (r *fakeInboxRepo) FindByUserID(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]*models.UserNotification, error) {
	var out []*models.UserNotification
	for _, item := range r.items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *fakeInboxRepo) MarkRead(ctx context.Context, userID, id primitive.ObjectID) error {
	for _, item := range r.items {
		if item.ID == id && item.UserID == userID {
			item.Read = true
			return nil
		}
	}
	return repositories.ErrNotFound
}

// fakeLedgerRepo is an in-memory PointTransactionRepository
type fakeLedgerRepo struct {
	entries []*models.PointTransaction
}

func (r *fakeLedgerRepo) Create(ctx context.Context, transaction *models.PointTransaction) error {
	r.entries = append(r.entries, transaction)
	return nil
}

func (r *fakeLedgerRepo) FindByUserID(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]*models.PointTransaction, error) {
	var out []*models.PointTransaction
	for _, e := range r.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

// fakeSettingsRepo is an in-memory SystemSettingsRepository
type fakeSettingsRepo struct {
	settings models.SystemSettings
}

func (r *fakeSettingsRepo) GetSettings(ctx context.Context) (*models.SystemSettings, error) {
	cp := r.settings
	return &cp, nil
}

func (r *fakeSettingsRepo) RecordMonthlyReset(ctx context.Context, count int, trigger, actor string, at time.Time) error {
	r.settings.LastResetCount = count
	r.settings.LastResetTrigger = trigger
	r.settings.LastResetBy = actor
	r.settings.LastResetAt = at
	return nil
}

// fakeBatchWriter hands out fakeBatches and records the size of every
// committed batch so tests can assert batching boundaries.
type fakeBatchWriter struct {
	users       *fakeUserRepo
	inbox       *fakeInboxRepo
	ledger      *fakeLedgerRepo
	commitSizes []int
	commitErr   error
}

func (w *fakeBatchWriter) NewBatch() repositories.WriteBatch {
	return &fakeBatch{writer: w}
}

type fakeBatch struct {
	writer    *fakeBatchWriter
	resets    []primitive.ObjectID
	entries   []*models.PointTransaction
	inboxDocs []*models.UserNotification
	committed bool
}

func (b *fakeBatch) ResetMonthlyPoints(userID primitive.ObjectID) {
	b.resets = append(b.resets, userID)
}

func (b *fakeBatch) AppendLedgerEntry(entry *models.PointTransaction) {
	b.entries = append(b.entries, entry)
}

func (b *fakeBatch) AddInboxNotification(n *models.UserNotification) {
	b.inboxDocs = append(b.inboxDocs, n)
}

func (b *fakeBatch) Len() int {
	return len(b.resets) + len(b.entries) + len(b.inboxDocs)
}

func (b *fakeBatch) Commit(ctx context.Context) error {
	if b.committed {
		return nil
	}
	b.committed = true
	if b.writer.commitErr != nil {
		return b.writer.commitErr
	}
	b.writer.commitSizes = append(b.writer.commitSizes, b.Len())
	if b.writer.users != nil {
		for _, id := range b.resets {
			if u, ok := b.writer.users.users[id]; ok {
				u.MonthlyPoints = 0
			}
		}
	}
	if b.writer.ledger != nil {
		b.writer.ledger.entries = append(b.writer.ledger.entries, b.entries...)
	}
	if b.writer.inbox != nil {
		b.writer.inbox.items = append(b.writer.inbox.items, b.inboxDocs...)
	}
	return nil
}

// fakeMulticaster records sends and returns a scripted result
type fakeMulticaster struct {
	mu     sync.Mutex
	sends  [][]string
	result *push.MulticastResult
	err    error
}

func (m *fakeMulticaster) SendMulticast(ctx context.Context, tokens []string, msg push.Message) (*push.MulticastResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends = append(m.sends, tokens)
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &push.MulticastResult{Delivered: len(tokens)}, nil
}

// fakeBridge records batches and returns a scripted error
type fakeBridge struct {
	mu      sync.Mutex
	batches [][]push.BridgeMessage
	err     error
}

func (b *fakeBridge) SendBatch(ctx context.Context, messages []push.BridgeMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batches = append(b.batches, messages)
	return b.err
}
