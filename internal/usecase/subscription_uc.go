// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"lingua-billing/internal/domain"
	"lingua-billing/internal/domain/model"
	"lingua-billing/internal/domain/ports/adapter"
	"lingua-billing/internal/domain/ports/repository"
	"lingua-billing/internal/infra/logging"
)

// Compile-time check
var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// CreateSubscriptionInput carries everything needed to open a recurring
// billing authorization. Either PlanID (preferred; price and period come
// from plan configuration) or an explicit Amount+Period must be given.
type CreateSubscriptionInput struct {
	UserID     string
	PayerEmail string
	PayerName  string
	TrackIDs   []string
	PlanID     string
	Amount     int64 // minor units; ignored when PlanID is set
	Period     model.BillingPeriod
	// CardToken enables transparent checkout: the gateway may authorize
	// immediately instead of handing back a redirect URL.
	CardToken string
	BackURL   string
}

type SubscriptionUseCase interface {
	// Create builds and submits the preapproval request and synchronously
	// records the resulting payment. Returns the payment and the gateway
	// redirect URL (empty when the gateway authorized immediately).
	Create(ctx context.Context, in CreateSubscriptionInput) (*model.Payment, string, error)
	// RequestRefund opens a refund for a user's payment and asks the gateway
	// to cancel the subscription. The refund stays pending until the refund
	// webhook confirms it.
	RequestRefund(ctx context.Context, userID, paymentID string) (*model.Refund, error)
}

type subscriptionUC struct {
	payments repository.PaymentRepository
	refunds  repository.RefundRepository
	plans    repository.SubscriptionPlanRepository
	tracks   repository.TrackRepository
	enroll   EnrollmentUseCase
	gateway  adapter.PaymentGateway
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewSubscriptionUseCase(
	payments repository.PaymentRepository,
	refunds repository.RefundRepository,
	plans repository.SubscriptionPlanRepository,
	tracks repository.TrackRepository,
	enroll EnrollmentUseCase,
	gateway adapter.PaymentGateway,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *subscriptionUC {
	return &subscriptionUC{
		payments: payments,
		refunds:  refunds,
		plans:    plans,
		tracks:   tracks,
		enroll:   enroll,
		gateway:  gateway,
		tm:       tm,
		log:      logger,
	}
}

func (u *subscriptionUC) Create(ctx context.Context, in CreateSubscriptionInput) (*model.Payment, string, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.Create")()

	if err := validateCreate(&in); err != nil {
		return nil, "", err
	}

	// Every referenced track must exist before anything leaves the process;
	// a partially-invalid request must never reach the gateway.
	found, err := u.tracks.FindByIDs(ctx, repository.NoTX, in.TrackIDs)
	if err != nil {
		return nil, "", err
	}
	if len(found) != len(in.TrackIDs) {
		return nil, "", &domain.TracksNotFoundError{IDs: missingIDs(in.TrackIDs, found)}
	}

	amount := in.Amount
	if in.PlanID != "" {
		plan, err := u.plans.FindByID(ctx, repository.NoTX, in.PlanID)
		if err != nil {
			return nil, "", err
		}
		amount, err = plan.PriceFor(in.Period)
		if err != nil {
			return nil, "", err
		}
	}

	extRef := ulid.Make().String()
	res, err := u.gateway.CreatePreapproval(ctx, adapter.PreapprovalRequest{
		PayerEmail:        in.PayerEmail,
		Reason:            subscriptionReason(found),
		ExternalReference: extRef,
		Amount:            amount,
		FrequencyType:     "months",
		Frequency:         in.Period.Months(),
		CardToken:         in.CardToken,
		BackURL:           in.BackURL,
	})
	if err != nil {
		return nil, "", fmt.Errorf("create preapproval: %w: %v", domain.ErrGatewayUnavailable, err)
	}

	status := model.PaymentStatusPending
	if strings.EqualFold(res.Status, "authorized") {
		status = model.PaymentStatusApproved
	}

	meta := model.Metadata{
		"period":            string(in.Period),
		"frequencyType":     "months",
		"frequency":         in.Period.Months(),
		"refundWindowDays":  in.Period.RefundWindowDays(),
		"payerEmail":        in.PayerEmail,
		"externalReference": extRef,
	}
	if in.PlanID != "" {
		meta["planId"] = in.PlanID
	}
	if res.InitPoint != "" {
		meta["initPoint"] = res.InitPoint
	}
	if res.SandboxInitPoint != "" {
		meta["sandboxInitPoint"] = res.SandboxInitPoint
	}

	p, err := model.NewPayment(uuid.NewString(), in.UserID, res.ID, status, amount, meta)
	if err != nil {
		return nil, "", err
	}
	items := make([]model.PaymentItem, len(found))
	for i, tr := range found {
		items[i] = model.PaymentItem{
			ID:        uuid.NewString(),
			PaymentID: p.ID,
			TrackID:   tr.ID,
			Title:     tr.Title,
			Kind:      tr.Kind,
			Price:     tr.Price,
			Quantity:  1,
		}
	}
	p.Items = items

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.payments.Upsert(ctx, tx, p); err != nil {
			return err
		}
		if err := u.payments.ReplaceItems(ctx, tx, p.ID, items); err != nil {
			return err
		}
		if status.AccessGranting() {
			// Immediate authorization: grant in the same call through the
			// exact same engine the webhook path uses.
			return u.enroll.GrantAccess(ctx, tx, in.UserID, items, in.Period.Months())
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	u.log.Info().
		Str("user_id", in.UserID).
		Str("external_id", res.ID).
		Str("status", string(status)).
		Int64("amount", amount).
		Str("period", string(in.Period)).
		Msg("subscription created")
	return p, res.InitPoint, nil
}

func (u *subscriptionUC) RequestRefund(ctx context.Context, userID, paymentID string) (*model.Refund, error) {
	defer logging.TraceDuration(u.log, "SubscriptionUC.RequestRefund")()

	p, err := u.payments.FindByID(ctx, repository.NoTX, paymentID)
	if err != nil {
		return nil, err
	}
	// Payments are only visible to their owner.
	if p.UserID != userID {
		return nil, domain.ErrNotFound
	}

	final, err := u.refunds.HasFinal(ctx, repository.NoTX, p.ID)
	if err != nil {
		return nil, err
	}
	if final {
		return nil, fmt.Errorf("payment %s: %w", p.ID, domain.ErrDuplicateRefund)
	}

	r, err := model.NewRefund(uuid.NewString(), p.ID, p.Amount)
	if err != nil {
		return nil, err
	}
	if err := u.refunds.Save(ctx, repository.NoTX, r); err != nil {
		return nil, err
	}

	if err := u.gateway.CancelPreapproval(ctx, p.ExternalID); err != nil {
		return nil, fmt.Errorf("cancel preapproval %s: %w: %v", p.ExternalID, domain.ErrGatewayUnavailable, err)
	}

	u.log.Info().Str("payment_id", p.ID).Str("user_id", userID).Msg("refund requested")
	return r, nil
}

func validateCreate(in *CreateSubscriptionInput) error {
	var fields []string
	if in.UserID == "" {
		fields = append(fields, "userId")
	}
	if in.PayerEmail == "" {
		fields = append(fields, "payerEmail")
	}
	if len(in.TrackIDs) == 0 {
		fields = append(fields, "items")
	}
	if in.Period != model.BillingPeriodMonthly && in.Period != model.BillingPeriodYearly {
		fields = append(fields, "period")
	}
	if in.PlanID == "" && in.Amount <= 0 {
		fields = append(fields, "amount")
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

func missingIDs(want []string, got []*model.Track) []string {
	have := make(map[string]bool, len(got))
	for _, tr := range got {
		have[tr.ID] = true
	}
	var missing []string
	for _, id := range want {
		if !have[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

func subscriptionReason(tracks []*model.Track) string {
	if len(tracks) == 1 {
		return "Subscription: " + tracks[0].Title
	}
	return fmt.Sprintf("Subscription: %d tracks", len(tracks))
}
