//go:build !integration

package web_test

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"lingua-billing/internal/domain"
	"lingua-billing/internal/domain/model"
	"lingua-billing/internal/domain/ports/adapter"
	"lingua-billing/internal/domain/ports/repository"
	"lingua-billing/internal/infra/web"
	"lingua-billing/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// ---- Use case mocks ----

type MockSubscriptionUC struct {
	CreateFunc        func(ctx context.Context, in usecase.CreateSubscriptionInput) (*model.Payment, string, error)
	RequestRefundFunc func(ctx context.Context, userID, paymentID string) (*model.Refund, error)
}

var _ usecase.SubscriptionUseCase = (*MockSubscriptionUC)(nil)

func (m *MockSubscriptionUC) Create(ctx context.Context, in usecase.CreateSubscriptionInput) (*model.Payment, string, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, in)
	}
	p, _ := model.NewPayment("pay-1", in.UserID, "mp-1", model.PaymentStatusPending, in.Amount, model.Metadata{})
	return p, "https://gateway.example/init", nil
}

func (m *MockSubscriptionUC) RequestRefund(ctx context.Context, userID, paymentID string) (*model.Refund, error) {
	if m.RequestRefundFunc != nil {
		return m.RequestRefundFunc(ctx, userID, paymentID)
	}
	return model.NewRefund("refund-1", paymentID, 9900)
}

type MockReconcileUC struct {
	ReconcileFunc func(ctx context.Context, in usecase.ReconcileInput) (*model.Payment, error)
	Calls         []usecase.ReconcileInput
}

var _ usecase.ReconcileUseCase = (*MockReconcileUC)(nil)

func (m *MockReconcileUC) Reconcile(ctx context.Context, in usecase.ReconcileInput) (*model.Payment, error) {
	m.Calls = append(m.Calls, in)
	if m.ReconcileFunc != nil {
		return m.ReconcileFunc(ctx, in)
	}
	p, _ := model.NewPayment("pay-1", in.UserID, in.ExternalID, in.Status, in.Amount, in.Metadata)
	return p, nil
}

type MockEnrollmentUC struct {
	ListByUserFunc func(ctx context.Context, userID string) ([]*model.Enrollment, error)
}

var _ usecase.EnrollmentUseCase = (*MockEnrollmentUC)(nil)

func (m *MockEnrollmentUC) GrantAccess(ctx context.Context, tx repository.Tx, userID string, items []model.PaymentItem, periodMonths int) error {
	return nil
}

func (m *MockEnrollmentUC) RevokeAccess(ctx context.Context, tx repository.Tx, userID string, items []model.PaymentItem) error {
	return nil
}

func (m *MockEnrollmentUC) ListByUser(ctx context.Context, userID string) ([]*model.Enrollment, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return nil, nil
}

// ---- Payment repo mock (read paths only) ----

type MockPaymentRepo struct {
	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error)
	SumFunc      func(ctx context.Context, tx repository.Tx, period string) (int64, error)
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func (m *MockPaymentRepo) Upsert(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	return nil
}

func (m *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *MockPaymentRepo) FindByExternalID(ctx context.Context, tx repository.Tx, externalID string) (*model.Payment, error) {
	return nil, domain.ErrNotFound
}

func (m *MockPaymentRepo) ReplaceItems(ctx context.Context, tx repository.Tx, paymentID string, items []model.PaymentItem) error {
	return nil
}

func (m *MockPaymentRepo) ListItems(ctx context.Context, tx repository.Tx, paymentID string) ([]model.PaymentItem, error) {
	return nil, nil
}

func (m *MockPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	return nil, nil
}

func (m *MockPaymentRepo) SumApprovedByPeriod(ctx context.Context, tx repository.Tx, period string) (int64, error) {
	if m.SumFunc != nil {
		return m.SumFunc(ctx, tx, period)
	}
	return 0, nil
}

// ---- Refund repo mock (read paths only) ----

type MockRefundRepo struct {
	ListByPaymentFunc func(ctx context.Context, tx repository.Tx, paymentID string) ([]*model.Refund, error)
}

var _ repository.RefundRepository = (*MockRefundRepo)(nil)

func (m *MockRefundRepo) Save(ctx context.Context, tx repository.Tx, r *model.Refund) error {
	return nil
}

func (m *MockRefundRepo) ListByPayment(ctx context.Context, tx repository.Tx, paymentID string) ([]*model.Refund, error) {
	if m.ListByPaymentFunc != nil {
		return m.ListByPaymentFunc(ctx, tx, paymentID)
	}
	return nil, nil
}

func (m *MockRefundRepo) HasFinal(ctx context.Context, tx repository.Tx, paymentID string) (bool, error) {
	return false, nil
}

func (m *MockRefundRepo) MarkPendingCompleted(ctx context.Context, tx repository.Tx, paymentID string, externalID *string) error {
	return nil
}

// ---- Gateway mock ----

type MockGateway struct {
	GetPaymentFunc func(ctx context.Context, externalID string) (*adapter.PaymentDetail, error)
}

var _ adapter.PaymentGateway = (*MockGateway)(nil)

func (m *MockGateway) Name() string { return "mock" }

func (m *MockGateway) GetPayment(ctx context.Context, externalID string) (*adapter.PaymentDetail, error) {
	if m.GetPaymentFunc != nil {
		return m.GetPaymentFunc(ctx, externalID)
	}
	return &adapter.PaymentDetail{
		ExternalID:        externalID,
		Status:            "approved",
		TransactionAmount: 9900,
		ExternalReference: "user-1",
		Metadata:          model.Metadata{"trackId": "track-a"},
	}, nil
}

func (m *MockGateway) CreatePreapproval(ctx context.Context, req adapter.PreapprovalRequest) (*adapter.PreapprovalResult, error) {
	return &adapter.PreapprovalResult{ID: "mp-1", Status: "pending"}, nil
}

func (m *MockGateway) CancelPreapproval(ctx context.Context, externalID string) error { return nil }

// ---- Server under test ----

type serverDeps struct {
	subUC       *MockSubscriptionUC
	reconcileUC *MockReconcileUC
	enrollUC    *MockEnrollmentUC
	payments    *MockPaymentRepo
	refunds     *MockRefundRepo
	gateway     *MockGateway
	srv         *web.Server
}

func newTestServer(apiKey, webhookSecret string) *serverDeps {
	deps := &serverDeps{
		subUC:       &MockSubscriptionUC{},
		reconcileUC: &MockReconcileUC{},
		enrollUC:    &MockEnrollmentUC{},
		payments:    &MockPaymentRepo{},
		refunds:     &MockRefundRepo{},
		gateway:     &MockGateway{},
	}
	auth := web.NewAuthManager("test-jwt-secret", false, "", 30*time.Minute)
	deps.srv = web.NewServer(
		deps.subUC, deps.reconcileUC, deps.enrollUC, deps.payments, deps.refunds, deps.gateway, auth,
		apiKey, webhookSecret, 2*time.Second,
		newTestLogger(),
	)
	return deps
}
