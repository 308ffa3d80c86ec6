package core

import (
	"context"
	"fmt"

	"gymcore/pkg/domain"
)

// NewMemberReferenceRule returns the in-transaction rule ensuring
// memberships, payments and check-ins reference an existing member.
func NewMemberReferenceRule() domain.Rule {
	return memberReferenceRule{}
}

type memberReferenceRule struct{}

func (memberReferenceRule) Name() string { return "member_reference" }

func (memberReferenceRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	check := func(entity domain.EntityType, id, memberID string) {
		if _, ok := view.FindMember(memberID); !ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "member_reference",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("%s %s references unknown member %s", entity, id, memberID),
				Entity:   entity,
				EntityID: id,
			})
		}
	}
	for _, membership := range view.ListMemberships() {
		check(domain.EntityMembership, membership.ID, membership.MemberID)
	}
	for _, payment := range view.ListPayments() {
		check(domain.EntityPayment, payment.ID, payment.MemberID)
	}
	for _, checkIn := range view.ListCheckIns() {
		check(domain.EntityCheckIn, checkIn.ID, checkIn.MemberID)
	}
	return res, nil
}

// NewDefaultRulesEngine returns a rules engine with the default gym invariants
// registered.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewMembershipWindowRule())
	engine.Register(NewPaymentAmountRule())
	engine.Register(NewMemberReferenceRule())
	return engine
}
