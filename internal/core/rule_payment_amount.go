package core

import (
	"context"
	"fmt"

	"gymcore/pkg/domain"
)

// NewPaymentAmountRule returns the in-transaction rule ensuring payments
// linked to a membership match the price paid for it.
func NewPaymentAmountRule() domain.Rule {
	return paymentAmountRule{}
}

type paymentAmountRule struct{}

func (paymentAmountRule) Name() string { return "payment_amount" }

func (paymentAmountRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, payment := range view.ListPayments() {
		if payment.MembershipID == nil {
			continue
		}
		membership, ok := view.FindMembership(*payment.MembershipID)
		if !ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "payment_amount",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("payment %s references unknown membership %s", payment.ID, *payment.MembershipID),
				Entity:   domain.EntityPayment,
				EntityID: payment.ID,
			})
			continue
		}
		if payment.Amount != membership.PricePaid {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "payment_amount",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("payment %s amount %.2f does not match membership %s price %.2f", payment.ID, payment.Amount, membership.ID, membership.PricePaid),
				Entity:   domain.EntityPayment,
				EntityID: payment.ID,
			})
		}
	}
	return res, nil
}
