package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/stakepact/server/internal/models"
	"github.com/stakepact/server/internal/notify"
	"github.com/stakepact/server/internal/payout"
	"github.com/stakepact/server/internal/storage"
)

// ObligationService drives the per-obligation state machine
// (PENDING → MARKED_PAID → CONFIRMED) and serves the read side: my
// obligations, group net balances, cause losses. Actual money moves out of
// band over UPI; this service only tracks claimed and confirmed status.
type ObligationService struct {
	store storage.Store
	sink  notify.Sink

	now func() time.Time
}

// NewObligationService creates a new ObligationService.
func NewObligationService(store storage.Store, sink notify.Sink) *ObligationService {
	return &ObligationService{store: store, sink: sink, now: time.Now}
}

// MarkPaid records that the payer claims to have settled the obligation.
// Only the payer may call it, and only from PENDING.
func (s *ObligationService) MarkPaid(ctx context.Context, obligationID, actingUserID string) (*models.PaymentObligation, error) {
	o, err := s.store.GetObligation(ctx, obligationID)
	if err != nil {
		return nil, err
	}
	if o.FromUserID != actingUserID {
		return nil, models.ErrForbidden
	}

	if err := s.store.MarkObligationPaid(ctx, obligationID); err != nil {
		return nil, err
	}

	s.sink.Emit(ctx, o.ToUserID, models.NotifyObligationPaid,
		"Payment on its way",
		"A payout owed to you was marked as paid. Confirm once it lands.",
		map[string]string{"obligation_id": o.ID, "group_id": o.GroupID})

	slog.Info("Obligation marked paid", "obligation_id", obligationID, "by", actingUserID)
	return s.store.GetObligation(ctx, obligationID)
}

// ConfirmReceived settles the obligation. Only the payee may call it, and
// only from MARKED_PAID. The CONFIRMED transition, settledAt and both
// users' lifetime totals commit as one unit in the store.
func (s *ObligationService) ConfirmReceived(ctx context.Context, obligationID, actingUserID string) (*models.PaymentObligation, error) {
	o, err := s.store.GetObligation(ctx, obligationID)
	if err != nil {
		return nil, err
	}
	if o.ToUserID != actingUserID {
		return nil, models.ErrForbidden
	}

	if err := s.store.ConfirmObligation(ctx, obligationID, s.now().Unix()); err != nil {
		return nil, err
	}

	s.sink.Emit(ctx, o.FromUserID, models.NotifyObligationDone,
		"Payment confirmed",
		"The recipient confirmed your payment. All settled.",
		map[string]string{"obligation_id": o.ID, "group_id": o.GroupID})

	slog.Info("Obligation confirmed", "obligation_id", obligationID, "by", actingUserID)
	return s.store.GetObligation(ctx, obligationID)
}

// ObligationView is an obligation enriched for display.
type ObligationView struct {
	Obligation *models.PaymentObligation
	// UpiLink is a upi://pay deep link to the payee, empty when the payee
	// has no VPA on file.
	UpiLink string
}

// MyObligations returns what the user owes and what they are receiving,
// optionally filtered to one group.
func (s *ObligationService) MyObligations(ctx context.Context, userID, groupID string) (owed, receiving []*ObligationView, err error) {
	obligations, err := s.store.ListObligationsByUser(ctx, userID, groupID)
	if err != nil {
		return nil, nil, err
	}

	for _, o := range obligations {
		view := &ObligationView{Obligation: o}
		if o.FromUserID == userID {
			if o.Status == models.ObligationPending {
				if payee, err := s.store.GetUserByID(ctx, o.ToUserID); err == nil {
					view.UpiLink = upiLink(payee.UpiVPA, payee.DisplayName, o.Amount)
				}
			}
			owed = append(owed, view)
		} else {
			receiving = append(receiving, view)
		}
	}
	return owed, receiving, nil
}

// NetBalances collapses a group's PENDING obligations into one signed net
// entry per member pair.
func (s *ObligationService) NetBalances(ctx context.Context, groupID, userID string) ([]payout.NetBalance, error) {
	if _, err := requireMember(ctx, s.store, groupID, userID); err != nil {
		return nil, err
	}

	obligations, err := s.store.ListObligationsByGroup(ctx, groupID, models.ObligationPending)
	if err != nil {
		return nil, err
	}

	pending := make([]payout.PendingObligation, len(obligations))
	for i, o := range obligations {
		pending[i] = payout.PendingObligation{
			FromUserID: o.FromUserID,
			ToUserID:   o.ToUserID,
			Amount:     o.Amount,
		}
	}
	return payout.NetBalances(pending), nil
}

// MyCauseLosses lists the user's self-failure forfeitures.
func (s *ObligationService) MyCauseLosses(ctx context.Context, userID string) ([]*models.CauseLoss, error) {
	return s.store.ListCauseLossesByUser(ctx, userID)
}

// ResolveCauseLoss moves one of the user's own cause losses from PLEDGED
// to DONATED or SKIPPED.
func (s *ObligationService) ResolveCauseLoss(ctx context.Context, lossID, actingUserID, status string) (*models.CauseLoss, error) {
	if status != models.CauseLossDonated && status != models.CauseLossSkipped {
		return nil, fmt.Errorf("status must be DONATED or SKIPPED: %w", models.ErrInvalidState)
	}
	loss, err := s.store.GetCauseLoss(ctx, lossID)
	if err != nil {
		return nil, err
	}
	if loss.UserID != actingUserID {
		return nil, models.ErrForbidden
	}

	if err := s.store.SetCauseLossStatus(ctx, lossID, status); err != nil {
		return nil, err
	}
	return s.store.GetCauseLoss(ctx, lossID)
}

// upiLink renders a upi://pay deep link. Amounts are integer paise; UPI
// wants decimal rupees, rendered with string arithmetic so no float ever
// touches the amount.
func upiLink(vpa, name string, amountPaise int64) string {
	if vpa == "" {
		return ""
	}
	q := url.Values{}
	q.Set("pa", vpa)
	q.Set("pn", name)
	q.Set("am", fmt.Sprintf("%d.%02d", amountPaise/100, amountPaise%100))
	q.Set("cu", "INR")
	return "upi://pay?" + q.Encode()
}
