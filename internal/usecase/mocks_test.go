//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"lingua-billing/internal/domain"
	"lingua-billing/internal/domain/model"
	"lingua-billing/internal/domain/ports/adapter"
	"lingua-billing/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger so test output stays clean.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// =============================
// Repositories (in-memory)
// =============================

// ---- Payments ----

type MockPaymentRepo struct {
	mu    sync.Mutex
	byID  map[string]*model.Payment
	items map[string][]model.PaymentItem

	UpsertFunc       func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	ReplaceItemsFunc func(ctx context.Context, tx repository.Tx, paymentID string, items []model.PaymentItem) error
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{byID: map[string]*model.Payment{}, items: map[string][]model.PaymentItem{}}
}

func (m *MockPaymentRepo) Upsert(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if m.UpsertFunc != nil {
		if err := m.UpsertFunc(ctx, tx, p); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Same conflict key as the real table: external_id wins over id.
	for _, existing := range m.byID {
		if existing.ExternalID == p.ExternalID {
			existing.Status = p.Status
			existing.Amount = p.Amount
			existing.Metadata = p.Metadata
			existing.UpdatedAt = p.UpdatedAt
			return nil
		}
	}
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPaymentRepo) FindByExternalID(ctx context.Context, tx repository.Tx, externalID string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.ExternalID == externalID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPaymentRepo) ReplaceItems(ctx context.Context, tx repository.Tx, paymentID string, items []model.PaymentItem) error {
	if m.ReplaceItemsFunc != nil {
		if err := m.ReplaceItemsFunc(ctx, tx, paymentID, items); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[paymentID] = append([]model.PaymentItem(nil), items...)
	return nil
}

func (m *MockPaymentRepo) ListItems(ctx context.Context, tx repository.Tx, paymentID string) ([]model.PaymentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.PaymentItem(nil), m.items[paymentID]...), nil
}

func (m *MockPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Payment
	for _, p := range m.byID {
		if p.Status == model.PaymentStatusPending && p.CreatedAt.Before(olderThan) {
			cp := *p
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockPaymentRepo) SumApprovedByPeriod(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, p := range m.byID {
		if p.Status == model.PaymentStatusApproved {
			sum += p.Amount
		}
	}
	return sum, nil
}

// Count reports how many payment rows exist; idempotence tests key on it.
func (m *MockPaymentRepo) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// ---- Refunds ----

type MockRefundRepo struct {
	mu      sync.Mutex
	Refunds []*model.Refund

	SaveFunc func(ctx context.Context, tx repository.Tx, r *model.Refund) error
}

var _ repository.RefundRepository = (*MockRefundRepo)(nil)

func NewMockRefundRepo() *MockRefundRepo { return &MockRefundRepo{} }

func (m *MockRefundRepo) Save(ctx context.Context, tx repository.Tx, r *model.Refund) error {
	if m.SaveFunc != nil {
		if err := m.SaveFunc(ctx, tx, r); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.Refunds {
		if existing.ID == r.ID {
			cp := *r
			m.Refunds[i] = &cp
			return nil
		}
	}
	cp := *r
	m.Refunds = append(m.Refunds, &cp)
	return nil
}

func (m *MockRefundRepo) ListByPayment(ctx context.Context, tx repository.Tx, paymentID string) ([]*model.Refund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Refund
	for _, r := range m.Refunds {
		if r.PaymentID == paymentID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockRefundRepo) HasFinal(ctx context.Context, tx repository.Tx, paymentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.Refunds {
		if r.PaymentID == paymentID && r.Status.Final() {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockRefundRepo) MarkPendingCompleted(ctx context.Context, tx repository.Tx, paymentID string, externalID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.Refunds {
		if r.PaymentID == paymentID && r.Status == model.RefundStatusPending {
			r.Status = model.RefundStatusCompleted
			if externalID != nil {
				r.ExternalID = externalID
			}
			r.UpdatedAt = time.Now()
		}
	}
	return nil
}

// ---- Enrollments ----

type MockEnrollmentRepo struct {
	mu   sync.Mutex
	rows map[string]*model.Enrollment // key: userID|trackID

	UpsertFunc func(ctx context.Context, tx repository.Tx, e *model.Enrollment) error
	DeleteFunc func(ctx context.Context, tx repository.Tx, userID, trackID string) error
}

var _ repository.EnrollmentRepository = (*MockEnrollmentRepo)(nil)

func NewMockEnrollmentRepo() *MockEnrollmentRepo {
	return &MockEnrollmentRepo{rows: map[string]*model.Enrollment{}}
}

func enrollKey(userID, trackID string) string { return userID + "|" + trackID }

func (m *MockEnrollmentRepo) Upsert(ctx context.Context, tx repository.Tx, e *model.Enrollment) error {
	if m.UpsertFunc != nil {
		if err := m.UpsertFunc(ctx, tx, e); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := enrollKey(e.UserID, e.TrackID)
	if existing, ok := m.rows[key]; ok {
		// Conflict path of the real table: end_at moves, start_at stays.
		existing.EndAt = e.EndAt
		existing.UpdatedAt = e.UpdatedAt
		return nil
	}
	cp := *e
	m.rows[key] = &cp
	return nil
}

func (m *MockEnrollmentRepo) Find(ctx context.Context, tx repository.Tx, userID, trackID string) (*model.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[enrollKey(userID, trackID)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *MockEnrollmentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Enrollment
	for _, e := range m.rows {
		if e.UserID == userID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockEnrollmentRepo) Delete(ctx context.Context, tx repository.Tx, userID, trackID string) error {
	if m.DeleteFunc != nil {
		if err := m.DeleteFunc(ctx, tx, userID, trackID); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, enrollKey(userID, trackID))
	return nil
}

func (m *MockEnrollmentRepo) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// ---- Users ----

type MockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func NewMockUserRepo(ids ...string) *MockUserRepo {
	m := &MockUserRepo{users: map[string]*model.User{}}
	for _, id := range ids {
		m.users[id] = &model.User{ID: id, Email: id + "@example.com", CreatedAt: time.Now()}
	}
	return m
}

func (m *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// ---- Tracks ----

type MockTrackRepo struct {
	mu     sync.Mutex
	tracks map[string]*model.Track
}

var _ repository.TrackRepository = (*MockTrackRepo)(nil)

func NewMockTrackRepo(tracks ...*model.Track) *MockTrackRepo {
	m := &MockTrackRepo{tracks: map[string]*model.Track{}}
	for _, tr := range tracks {
		m.tracks[tr.ID] = tr
	}
	return m
}

func (m *MockTrackRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tr, ok := m.tracks[id]
	if !ok {
		return nil, domain.ErrTrackNotFound
	}
	cp := *tr
	return &cp, nil
}

func (m *MockTrackRepo) FindByIDs(ctx context.Context, tx repository.Tx, ids []string) ([]*model.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Track
	for _, id := range ids {
		if tr, ok := m.tracks[id]; ok {
			cp := *tr
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ---- Plans ----

type MockPlanRepo struct {
	mu    sync.Mutex
	plans map[string]*model.SubscriptionPlan
}

var _ repository.SubscriptionPlanRepository = (*MockPlanRepo)(nil)

func NewMockPlanRepo(plans ...*model.SubscriptionPlan) *MockPlanRepo {
	m := &MockPlanRepo{plans: map[string]*model.SubscriptionPlan{}}
	for _, p := range plans {
		m.plans[p.ID] = p
	}
	return m
}

func (m *MockPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.SubscriptionPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPlanRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.SubscriptionPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.SubscriptionPlan
	for _, p := range m.plans {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

// =============================
// Adapters
// =============================

// ---- Payment gateway ----

type MockPaymentGateway struct {
	mu sync.Mutex

	GetPaymentFunc        func(ctx context.Context, externalID string) (*adapter.PaymentDetail, error)
	CreatePreapprovalFunc func(ctx context.Context, req adapter.PreapprovalRequest) (*adapter.PreapprovalResult, error)
	CancelPreapprovalFunc func(ctx context.Context, externalID string) error

	Calls struct {
		GetPayment        []string
		CreatePreapproval []adapter.PreapprovalRequest
		CancelPreapproval []string
	}
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string { return "mock" }

func (m *MockPaymentGateway) GetPayment(ctx context.Context, externalID string) (*adapter.PaymentDetail, error) {
	m.mu.Lock()
	m.Calls.GetPayment = append(m.Calls.GetPayment, externalID)
	m.mu.Unlock()
	if m.GetPaymentFunc != nil {
		return m.GetPaymentFunc(ctx, externalID)
	}
	return &adapter.PaymentDetail{ExternalID: externalID, Status: "approved"}, nil
}

func (m *MockPaymentGateway) CreatePreapproval(ctx context.Context, req adapter.PreapprovalRequest) (*adapter.PreapprovalResult, error) {
	m.mu.Lock()
	m.Calls.CreatePreapproval = append(m.Calls.CreatePreapproval, req)
	m.mu.Unlock()
	if m.CreatePreapprovalFunc != nil {
		return m.CreatePreapprovalFunc(ctx, req)
	}
	return &adapter.PreapprovalResult{
		ID:        fmt.Sprintf("preapproval-%d", len(m.Calls.CreatePreapproval)),
		Status:    "pending",
		InitPoint: "https://gateway.example/init/abc",
	}, nil
}

func (m *MockPaymentGateway) CancelPreapproval(ctx context.Context, externalID string) error {
	m.mu.Lock()
	m.Calls.CancelPreapproval = append(m.Calls.CancelPreapproval, externalID)
	m.mu.Unlock()
	if m.CancelPreapprovalFunc != nil {
		return m.CancelPreapprovalFunc(ctx, externalID)
	}
	return nil
}

// =============================
// Transaction manager
// =============================

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

// WithTx runs the function immediately with NoTX unless a test installs
// its own behavior.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}
