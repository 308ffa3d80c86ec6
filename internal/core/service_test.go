package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gymcore/pkg/domain"
)

var frozenNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

// newTestService builds an in-memory service with a frozen clock, the default
// rules, gym settings with a 3 day grace window, one staff user and the
// monthly plan.
func newTestService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	opts = append([]ServiceOption{WithClock(ClockFunc(func() time.Time { return frozenNow }))}, opts...)
	svc := NewInMemoryService(opts...)
	if _, err := svc.Store().RunInTransaction(context.Background(), func(tx Transaction) error {
		if _, err := tx.UpdateSettings(func(s *Settings) error {
			*s = Settings{Name: "Apex Fitness Club", Currency: "MXN", GracePeriodDays: 3}
			return nil
		}); err != nil {
			return err
		}
		if _, err := tx.CreateUser(User{Base: Base{ID: "u-staff"}, Name: "Lucía Vega", Email: "recepcion@apexfit.mx", Role: domain.RoleStaff}); err != nil {
			return err
		}
		_, err := tx.CreatePlan(MembershipPlan{Base: Base{ID: "p-mensual"}, Name: "Mensual", DurationDays: 30, Price: 800, Active: true})
		return err
	}); err != nil {
		t.Fatalf("fixture: %v", err)
	}
	return svc
}

func mustCreateMember(t *testing.T, svc *Service, first, last, phone string) Member {
	t.Helper()
	member, _, err := svc.CreateMember(context.Background(), Member{FirstName: first, LastName: last, Phone: phone})
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	return member
}

// seedMembership writes a membership with an explicit window. The window must
// span exactly 30 days to satisfy the monthly plan invariant.
func seedMembership(t *testing.T, svc *Service, memberID string, end Date) Membership {
	t.Helper()
	var created Membership
	if _, err := svc.Store().RunInTransaction(context.Background(), func(tx Transaction) error {
		var err error
		created, err = tx.CreateMembership(Membership{
			MemberID:  memberID,
			PlanID:    "p-mensual",
			PlanName:  "Mensual",
			StartDate: end.AddDays(-30),
			EndDate:   end,
			Status:    domain.RecordActive,
			PricePaid: 800,
		})
		return err
	}); err != nil {
		t.Fatalf("seed membership: %v", err)
	}
	return created
}

func TestLoginIsCaseInsensitive(t *testing.T) {
	svc := newTestService(t)
	user, err := svc.Login(context.Background(), "  RECEPCION@apexfit.MX ")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != "u-staff" {
		t.Fatalf("unexpected user %+v", user)
	}

	_, err = svc.Login(context.Background(), "nadie@apexfit.mx")
	var notFound ErrNotFound
	if !errors.As(err, &notFound) || notFound.Entity != EntityUser {
		t.Fatalf("expected user not found, got %v", err)
	}
}

func TestCreateMembershipCreatesLinkedPayment(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	member := mustCreateMember(t, svc, "Juan", "Pérez", "555-0101")

	created, _, err := svc.CreateMembership(ctx, member.ID, "p-mensual", "u-staff", PaymentCard)
	if err != nil {
		t.Fatalf("create membership: %v", err)
	}
	today := domain.DateOf(frozenNow)
	if !created.StartDate.Equal(today) || !created.EndDate.Equal(today.AddDays(30)) {
		t.Fatalf("unexpected window %s..%s", created.StartDate, created.EndDate)
	}
	if created.PricePaid != 800 || created.PlanName != "Mensual" {
		t.Fatalf("plan snapshot not taken: %+v", created)
	}

	memberships := svc.Store().MembershipsForMember(member.ID)
	if len(memberships) != 1 {
		t.Fatalf("expected exactly one membership, got %d", len(memberships))
	}
	payments := svc.Store().ListPayments()
	if len(payments) != 1 {
		t.Fatalf("expected exactly one payment, got %d", len(payments))
	}
	p := payments[0]
	if p.MembershipID == nil || *p.MembershipID != created.ID {
		t.Fatalf("payment not linked to membership: %+v", p)
	}
	if p.Amount != 800 || p.Method != PaymentCard || !p.Date.Equal(today) {
		t.Fatalf("unexpected payment %+v", p)
	}
}

func TestCreateMembershipUnknownReferences(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	member := mustCreateMember(t, svc, "Juan", "Pérez", "555-0101")

	var notFound ErrNotFound
	if _, _, err := svc.CreateMembership(ctx, member.ID, "p-nope", "u-staff", PaymentCash); !errors.As(err, &notFound) || notFound.Entity != EntityPlan {
		t.Fatalf("expected plan not found, got %v", err)
	}
	if _, _, err := svc.CreateMembership(ctx, "m-nope", "p-mensual", "u-staff", PaymentCash); !errors.As(err, &notFound) || notFound.Entity != EntityMember {
		t.Fatalf("expected member not found, got %v", err)
	}
	if got := svc.Store().ListPayments(); len(got) != 0 {
		t.Fatalf("failed sale leaked payments: %+v", got)
	}
}

func TestCheckInValidMembership(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	member := mustCreateMember(t, svc, "Juan", "Pérez", "555-0101")
	if _, _, err := svc.CreateMembership(ctx, member.ID, "p-mensual", "u-staff", PaymentCash); err != nil {
		t.Fatalf("sell: %v", err)
	}

	res, err := svc.CheckIn(ctx, member.ID, "u-staff")
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if !res.Success || res.Status != AdmissionValid || res.Message != msgAdmitted {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.CheckIn == nil || res.CheckIn.StatusAtCheckIn != domain.CheckInValid {
		t.Fatalf("check-in record missing or mistagged: %+v", res.CheckIn)
	}
}

func TestCheckInGraceWindow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	member := mustCreateMember(t, svc, "María", "González", "555-0102")
	// Ended yesterday; with 3 grace days the member is still admitted and the
	// message names the last grace day, two days from today (12/03).
	today := domain.DateOf(frozenNow)
	seedMembership(t, svc, member.ID, today.AddDays(-1))

	res, err := svc.CheckIn(ctx, member.ID, "u-staff")
	if err != nil {
		t.Fatalf("check in: %v", err)
	}
	if !res.Success || res.Status != AdmissionGrace {
		t.Fatalf("unexpected result %+v", res)
	}
	if !strings.Contains(res.Message, "12/03") {
		t.Fatalf("grace message should name the grace end: %q", res.Message)
	}
	if res.CheckIn.StatusAtCheckIn != domain.CheckInGrace {
		t.Fatalf("grace admissions must be tagged grace_period: %+v", res.CheckIn)
	}
}

func TestCheckInRejections(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	today := domain.DateOf(frozenNow)

	expired := mustCreateMember(t, svc, "Luis", "Ramírez", "555-0104")
	// Ended five days ago: outside the 3 day grace window.
	seedMembership(t, svc, expired.ID, today.AddDays(-5))

	fresh := mustCreateMember(t, svc, "Sofía", "López", "555-0105")

	cases := []struct {
		name     string
		memberID string
		message  string
	}{
		{"expired beyond grace", expired.ID, msgExpired},
		{"no membership", fresh.ID, msgNoMembership},
		{"unknown member", "m-nope", msgMemberNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := svc.CheckIn(ctx, tc.memberID, "u-staff")
			if err != nil {
				t.Fatalf("check in: %v", err)
			}
			if res.Success || res.Status != AdmissionExpired || res.Message != tc.message {
				t.Fatalf("unexpected result %+v", res)
			}
		})
	}
	if got := svc.Store().ListCheckIns(); len(got) != 0 {
		t.Fatalf("rejections must not append attendance records: %+v", got)
	}
}

func TestMembersSearchAndStatus(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	today := domain.DateOf(frozenNow)

	juan := mustCreateMember(t, svc, "Juan", "Pérez", "555-0101")
	maria := mustCreateMember(t, svc, "María", "González", "555-0102")
	mustCreateMember(t, svc, "Pedro", "Martínez", "555-0103")

	seedMembership(t, svc, juan.ID, today.AddDays(20))
	seedMembership(t, svc, maria.ID, today.AddDays(2))

	all, err := svc.Members(ctx, "")
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 members, got %d", len(all))
	}
	statuses := map[string]MemberStatus{}
	for _, m := range all {
		statuses[m.ID] = m.Status
	}
	if statuses[juan.ID] != StatusActive || statuses[maria.ID] != StatusExpiring {
		t.Fatalf("unexpected statuses %+v", statuses)
	}

	byName, err := svc.Members(ctx, "gonz")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(byName) != 1 || byName[0].ID != maria.ID {
		t.Fatalf("name search failed: %+v", byName)
	}

	byPhone, err := svc.Members(ctx, "555-0103")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(byPhone) != 1 || byPhone[0].Status != StatusNone {
		t.Fatalf("phone search failed: %+v", byPhone)
	}
}

func TestMemberLookupIsStable(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	member := mustCreateMember(t, svc, "Juan", "Pérez", "555-0101")

	first, err := svc.Member(ctx, member.ID)
	if err != nil {
		t.Fatalf("member: %v", err)
	}
	second, err := svc.Member(ctx, member.ID)
	if err != nil {
		t.Fatalf("member: %v", err)
	}
	if first.ID != second.ID || first.Status != second.Status || !first.ExpiryDate.Equal(second.ExpiryDate) {
		t.Fatalf("repeated lookups disagree: %+v vs %+v", first, second)
	}

	var notFound ErrNotFound
	if _, err := svc.Member(ctx, "m-nope"); !errors.As(err, &notFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStatsBoundaries(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	today := domain.DateOf(frozenNow)

	active := mustCreateMember(t, svc, "Juan", "Pérez", "555-0101")
	expiring := mustCreateMember(t, svc, "María", "González", "555-0102")
	lapsed := mustCreateMember(t, svc, "Luis", "Ramírez", "555-0104")

	seedMembership(t, svc, active.ID, today.AddDays(20))
	seedMembership(t, svc, expiring.ID, today.AddDays(2))
	// Ended on the 1st of the current month: expired this month.
	seedMembership(t, svc, lapsed.ID, today.StartOfMonth())

	// Unlinked ledger entries straddling the month boundaries.
	if _, err := svc.Store().RunInTransaction(ctx, func(tx Transaction) error {
		for _, p := range []Payment{
			{MemberID: active.ID, Amount: 800, Date: today.StartOfMonth(), Method: PaymentCash, RecordedBy: "u-staff"},
			{MemberID: expiring.ID, Amount: 100, Date: today.StartOfMonth().AddDays(-1), Method: PaymentCash, RecordedBy: "u-staff"},
			{MemberID: lapsed.ID, Amount: 50, Date: today.EndOfMonth(), Method: PaymentCard, RecordedBy: "u-staff"},
		} {
			if _, err := tx.CreatePayment(p); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("payments: %v", err)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ActiveMembers != 2 {
		t.Fatalf("expected 2 active members, got %d", stats.ActiveMembers)
	}
	if stats.ExpiringSoon != 1 {
		t.Fatalf("expected 1 expiring membership, got %d", stats.ExpiringSoon)
	}
	if stats.ExpiredThisMonth != 1 {
		t.Fatalf("expected 1 expiry this month, got %d", stats.ExpiredThisMonth)
	}
	// Only the two entries inside the current month count: 800 + 50.
	if stats.MonthlyIncome != 850 {
		t.Fatalf("expected income 850, got %.2f", stats.MonthlyIncome)
	}
}

func TestMemberHistoryNewestFirst(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	today := domain.DateOf(frozenNow)
	member := mustCreateMember(t, svc, "Juan", "Pérez", "555-0101")

	seedMembership(t, svc, member.ID, today.AddDays(-5))
	if _, _, err := svc.CreateMembership(ctx, member.ID, "p-mensual", "u-staff", PaymentCash); err != nil {
		t.Fatalf("renew: %v", err)
	}
	if _, err := svc.CheckIn(ctx, member.ID, "u-staff"); err != nil {
		t.Fatalf("check in: %v", err)
	}

	history, err := svc.MemberHistory(ctx, member.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history.Memberships) != 2 || len(history.Payments) != 1 || len(history.CheckIns) != 1 {
		t.Fatalf("unexpected history sizes %d/%d/%d", len(history.Memberships), len(history.Payments), len(history.CheckIns))
	}
	if !history.Memberships[0].EndDate.After(history.Memberships[1].EndDate) {
		t.Fatalf("memberships not newest first: %+v", history.Memberships)
	}

	var notFound ErrNotFound
	if _, err := svc.MemberHistory(ctx, "m-nope"); !errors.As(err, &notFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestExpiringMembershipsSuppressesSuperseded(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	today := domain.DateOf(frozenNow)
	member := mustCreateMember(t, svc, "María", "González", "555-0102")

	// Expiring soon, but already renewed with a later active membership.
	seedMembership(t, svc, member.ID, today.AddDays(2))
	if _, _, err := svc.CreateMembership(ctx, member.ID, "p-mensual", "u-staff", PaymentCash); err != nil {
		t.Fatalf("renew: %v", err)
	}

	out, err := svc.ExpiringMemberships(ctx)
	if err != nil {
		t.Fatalf("expiring: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("superseded membership should be suppressed: %+v", out)
	}

	// Without the renewal the expiring one shows up.
	other := mustCreateMember(t, svc, "Pedro", "Martínez", "555-0103")
	seedMembership(t, svc, other.ID, today.AddDays(3))
	out, err = svc.ExpiringMemberships(ctx)
	if err != nil {
		t.Fatalf("expiring: %v", err)
	}
	if len(out) != 1 || out[0].Member.ID != other.ID {
		t.Fatalf("expected pedro's membership, got %+v", out)
	}
}

func TestRecentPaymentsLimitAndNames(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	today := domain.DateOf(frozenNow)
	member := mustCreateMember(t, svc, "Juan", "Pérez", "555-0101")

	if _, err := svc.Store().RunInTransaction(ctx, func(tx Transaction) error {
		for i := 0; i < 5; i++ {
			if _, err := tx.CreatePayment(Payment{
				MemberID:   member.ID,
				Amount:     float64(100 + i),
				Date:       today.AddDays(-i),
				Method:     PaymentCash,
				RecordedBy: "u-staff",
			}); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("payments: %v", err)
	}

	out, err := svc.RecentPayments(ctx, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("limit not applied: %d", len(out))
	}
	if !out[0].Date.Equal(today) {
		t.Fatalf("not newest first: %+v", out[0])
	}
	if out[0].MemberName != "Juan Pérez" {
		t.Fatalf("member name not joined: %q", out[0].MemberName)
	}
}

func TestTodayCheckInsFiltersByDay(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	member := mustCreateMember(t, svc, "Juan", "Pérez", "555-0101")

	if _, err := svc.Store().RunInTransaction(ctx, func(tx Transaction) error {
		for _, c := range []CheckIn{
			{MemberID: member.ID, Timestamp: frozenNow.Add(-30 * time.Hour), StatusAtCheckIn: domain.CheckInValid, RecordedBy: "u-staff"},
			{MemberID: member.ID, Timestamp: frozenNow.Add(-1 * time.Hour), StatusAtCheckIn: domain.CheckInValid, RecordedBy: "u-staff"},
		} {
			if _, err := tx.CreateCheckIn(c); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("check-ins: %v", err)
	}

	out, err := svc.TodayCheckIns(ctx)
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected only today's entry, got %d", len(out))
	}
	if out[0].MemberName != "Juan Pérez" {
		t.Fatalf("member name not joined: %q", out[0].MemberName)
	}
}

func TestUpdateMemberContact(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	member := mustCreateMember(t, svc, "Juan", "Pérez", "555-0101")

	updated, _, err := svc.UpdateMember(ctx, member.ID, func(m *Member) error {
		m.Phone = "555-9999"
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Phone != "555-9999" || updated.ID != member.ID {
		t.Fatalf("unexpected update %+v", updated)
	}
}

func TestPlansListsActiveOnlyShortestFirst(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Store().RunInTransaction(ctx, func(tx Transaction) error {
		if _, err := tx.CreatePlan(MembershipPlan{Base: Base{ID: "p-anual"}, Name: "Anual", DurationDays: 365, Price: 7500, Active: true}); err != nil {
			return err
		}
		_, err := tx.CreatePlan(MembershipPlan{Base: Base{ID: "p-retirado"}, Name: "Retirado", DurationDays: 15, Price: 400, Active: false})
		return err
	}); err != nil {
		t.Fatalf("plans: %v", err)
	}

	plans, err := svc.Plans(ctx)
	if err != nil {
		t.Fatalf("plans: %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("inactive plan leaked: %+v", plans)
	}
	if plans[0].ID != "p-mensual" || plans[1].ID != "p-anual" {
		t.Fatalf("unexpected order %+v", plans)
	}
}
