package services

import (
	"errors"
	"fmt"

	"subtrack/internal/core"
)

// Decision is the user's answer when a quick add collides with an
// existing subscription of the same name.
type Decision string

const (
	// DecisionRecordPayment treats the entry as a charge of the existing
	// subscription: price and dates move forward and history grows.
	DecisionRecordPayment Decision = "record_payment"
	// DecisionUpdateExisting corrects the stored price and dates without
	// touching the payment history.
	DecisionUpdateExisting Decision = "update_existing"
	// DecisionCreateNew keeps both: a second subscription under the same
	// name, seeded with the entry as its first payment.
	DecisionCreateNew Decision = "create_new"
	// DecisionCancel discards the entry.
	DecisionCancel Decision = "cancel"
)

var ErrUnknownDecision = errors.New("unknown decision")

func (d Decision) Validate() error {
	switch d {
	case DecisionRecordPayment, DecisionUpdateExisting, DecisionCreateNew, DecisionCancel:
		return nil
	}
	return ErrUnknownDecision
}

// SubscriptionUpdate carries the fields a reconciliation may change on
// an existing subscription.
type SubscriptionUpdate struct {
	ID         int64
	Price      core.Money
	LastCharge core.Date
	NextDate   core.Date
}

// PaymentAppend is one new row for the payment history.
type PaymentAppend struct {
	UserID         int64
	SubscriptionID int64
	Amount         core.Money
	PaidOn         core.Date
}

// MutationPlan is what a decision amounts to against storage. Nil
// members mean "nothing to do"; DecisionCancel yields an empty plan.
// The plan is computed purely so it can be inspected and tested without
// a database.
type MutationPlan struct {
	Update  *SubscriptionUpdate
	Payment *PaymentAppend
	Insert  *core.Subscription
}

func (p MutationPlan) Empty() bool {
	return p.Update == nil && p.Payment == nil && p.Insert == nil
}

// Reconcile resolves a duplicate quick add against the matched
// subscription. RecordPayment and UpdateExisting recompute the next
// charge from the candidate's charge date using the existing record's
// period; only RecordPayment appends to the payment history. CreateNew
// builds an insert for a fresh monthly subscription seeded with an
// initial payment.
func Reconcile(existing core.Subscription, cand core.QuickAddCandidate, decision Decision, today core.Date) (MutationPlan, error) {
	if err := decision.Validate(); err != nil {
		return MutationPlan{}, err
	}
	if err := cand.Validate(); err != nil {
		return MutationPlan{}, fmt.Errorf("reconcile candidate: %w", err)
	}

	switch decision {
	case DecisionCancel:
		return MutationPlan{}, nil

	case DecisionRecordPayment, DecisionUpdateExisting:
		next, err := NextFromLast(cand.ChargeDate, existing.Period, today)
		if err != nil {
			return MutationPlan{}, err
		}
		plan := MutationPlan{
			Update: &SubscriptionUpdate{
				ID:         existing.ID,
				Price:      cand.Price,
				LastCharge: cand.ChargeDate,
				NextDate:   next,
			},
		}
		if decision == DecisionRecordPayment {
			plan.Payment = &PaymentAppend{
				UserID:         existing.UserID,
				SubscriptionID: existing.ID,
				Amount:         cand.Price,
				PaidOn:         cand.ChargeDate,
			}
		}
		return plan, nil

	case DecisionCreateNew:
		next, err := NextFromLast(cand.ChargeDate, core.DefaultPeriod, today)
		if err != nil {
			return MutationPlan{}, err
		}
		return MutationPlan{
			Insert: &core.Subscription{
				UserID:     existing.UserID,
				Name:       cand.Name,
				Price:      cand.Price,
				NextDate:   next,
				Period:     core.DefaultPeriod,
				LastCharge: cand.ChargeDate,
				Category:   cand.Category,
			},
			Payment: &PaymentAppend{
				UserID: existing.UserID,
				Amount: cand.Price,
				PaidOn: cand.ChargeDate,
			},
		}, nil
	}
	return MutationPlan{}, ErrUnknownDecision
}
