package core

import (
	"context"
	"errors"
	"testing"

	"gymcore/pkg/domain"
)

func ruleFixture(t *testing.T) *Service {
	t.Helper()
	svc := newTestService(t)
	mustCreateMember(t, svc, "Juan", "Pérez", "555-0101")
	return svc
}

func violationFrom(t *testing.T, err error, rule string) {
	t.Helper()
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	for _, v := range violation.Result.Violations {
		if v.Rule == rule && v.Severity == domain.SeverityBlock {
			return
		}
	}
	t.Fatalf("expected blocking violation of %s, got %+v", rule, violation.Result.Violations)
}

func TestMembershipWindowRuleBlocksMismatch(t *testing.T) {
	svc := ruleFixture(t)
	member := svc.Store().ListMembers()[0]
	today := domain.DateOf(frozenNow)

	_, err := svc.Store().RunInTransaction(context.Background(), func(tx Transaction) error {
		_, txErr := tx.CreateMembership(Membership{
			MemberID:  member.ID,
			PlanID:    "p-mensual",
			PlanName:  "Mensual",
			StartDate: today,
			EndDate:   today.AddDays(31), // plan spans 30
			Status:    domain.RecordActive,
			PricePaid: 800,
		})
		return txErr
	})
	violationFrom(t, err, "membership_window")
	if got := svc.Store().ListMemberships(); len(got) != 0 {
		t.Fatalf("blocked membership committed: %+v", got)
	}
}

func TestMembershipWindowRuleBlocksUnknownPlan(t *testing.T) {
	svc := ruleFixture(t)
	member := svc.Store().ListMembers()[0]
	today := domain.DateOf(frozenNow)

	_, err := svc.Store().RunInTransaction(context.Background(), func(tx Transaction) error {
		_, txErr := tx.CreateMembership(Membership{
			MemberID:  member.ID,
			PlanID:    "p-fantasma",
			PlanName:  "Fantasma",
			StartDate: today,
			EndDate:   today.AddDays(30),
			Status:    domain.RecordActive,
			PricePaid: 800,
		})
		return txErr
	})
	violationFrom(t, err, "membership_window")
}

func TestPaymentAmountRuleBlocksMismatch(t *testing.T) {
	svc := ruleFixture(t)
	member := svc.Store().ListMembers()[0]
	today := domain.DateOf(frozenNow)
	membership := seedMembership(t, svc, member.ID, today.AddDays(20))

	_, err := svc.Store().RunInTransaction(context.Background(), func(tx Transaction) error {
		_, txErr := tx.CreatePayment(Payment{
			MemberID:     member.ID,
			MembershipID: &membership.ID,
			Amount:       700, // membership price is 800
			Date:         today,
			Method:       PaymentCash,
			RecordedBy:   "u-staff",
		})
		return txErr
	})
	violationFrom(t, err, "payment_amount")
}

func TestPaymentAmountRuleIgnoresUnlinkedPayments(t *testing.T) {
	svc := ruleFixture(t)
	member := svc.Store().ListMembers()[0]
	today := domain.DateOf(frozenNow)

	if _, err := svc.Store().RunInTransaction(context.Background(), func(tx Transaction) error {
		_, txErr := tx.CreatePayment(Payment{
			MemberID:   member.ID,
			Amount:     123,
			Date:       today,
			Method:     PaymentCash,
			RecordedBy: "u-staff",
		})
		return txErr
	}); err != nil {
		t.Fatalf("unlinked payment should pass: %v", err)
	}
}

func TestMemberReferenceRuleBlocksOrphans(t *testing.T) {
	svc := ruleFixture(t)
	today := domain.DateOf(frozenNow)

	_, err := svc.Store().RunInTransaction(context.Background(), func(tx Transaction) error {
		_, txErr := tx.CreatePayment(Payment{
			MemberID:   "m-fantasma",
			Amount:     100,
			Date:       today,
			Method:     PaymentCash,
			RecordedBy: "u-staff",
		})
		return txErr
	})
	violationFrom(t, err, "member_reference")

	_, err = svc.Store().RunInTransaction(context.Background(), func(tx Transaction) error {
		_, txErr := tx.CreateCheckIn(CheckIn{
			MemberID:        "m-fantasma",
			Timestamp:       frozenNow,
			StatusAtCheckIn: domain.CheckInValid,
			RecordedBy:      "u-staff",
		})
		return txErr
	})
	violationFrom(t, err, "member_reference")
}
