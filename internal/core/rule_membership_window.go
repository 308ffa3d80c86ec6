package core

import (
	"context"
	"fmt"

	"gymcore/pkg/domain"
)

// NewMembershipWindowRule returns the in-transaction rule ensuring every
// membership window spans exactly its plan's duration.
func NewMembershipWindowRule() domain.Rule {
	return membershipWindowRule{}
}

type membershipWindowRule struct{}

func (membershipWindowRule) Name() string { return "membership_window" }

func (membershipWindowRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, membership := range view.ListMemberships() {
		plan, ok := view.FindPlan(membership.PlanID)
		if !ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "membership_window",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("membership %s references unknown plan %s", membership.ID, membership.PlanID),
				Entity:   domain.EntityMembership,
				EntityID: membership.ID,
			})
			continue
		}
		want := membership.StartDate.AddDays(plan.DurationDays)
		if !membership.EndDate.Equal(want) {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "membership_window",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("membership %s window %s..%s does not match plan %s duration of %d days", membership.ID, membership.StartDate, membership.EndDate, plan.Name, plan.DurationDays),
				Entity:   domain.EntityMembership,
				EntityID: membership.ID,
			})
		}
	}
	return res, nil
}
