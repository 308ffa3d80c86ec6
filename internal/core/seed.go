package core

import (
	"context"
	"time"

	"gymcore/pkg/domain"
)

// SeedDefault loads the default gym fixture into an empty store: staff users,
// the plan catalog, a handful of members in every membership position and a
// matching payment ledger. Returns false without touching the store when any
// data already exists.
func (s *Service) SeedDefault(ctx context.Context) (bool, error) {
	ctx, done := s.begin(ctx, "seed_default")
	if !s.storeEmpty() {
		done(nil)
		return false, nil
	}

	today := s.today()
	now := s.clock.Now()

	type memberSeed struct {
		id, first, last, phone string
		email                  string
	}
	members := []memberSeed{
		{"m-juan", "Juan", "Pérez", "555-0101", "juan.perez@example.com"},
		{"m-maria", "María", "González", "555-0102", "maria.gonzalez@example.com"},
		{"m-pedro", "Pedro", "Martínez", "555-0103", ""},
		{"m-luis", "Luis", "Ramírez", "555-0104", ""},
		{"m-sofia", "Sofía", "López", "555-0105", "sofia.lopez@example.com"},
	}

	type membershipSeed struct {
		id, memberID, planID, planName string
		startOffset, duration          int
		price                          float64
		status                         domain.MembershipRecordStatus
	}
	memberships := []membershipSeed{
		{"ms-seed-1", "m-juan", "p-mensual", "Mensual", -10, 30, 800, domain.RecordActive},
		{"ms-seed-2", "m-maria", "p-mensual", "Mensual", -28, 30, 800, domain.RecordActive},
		{"ms-seed-3", "m-pedro", "p-trimestral", "Trimestral", -60, 90, 2100, domain.RecordActive},
		{"ms-seed-4", "m-luis", "p-mensual", "Mensual", -31, 30, 800, domain.RecordExpired},
	}

	type paymentSeed struct {
		id, memberID, membershipID string
		amount                     float64
		dayOffset                  int
		method                     PaymentMethod
	}
	payments := []paymentSeed{
		{"pay-seed-1", "m-juan", "ms-seed-1", 800, -10, PaymentCash},
		{"pay-seed-2", "m-maria", "ms-seed-2", 800, -28, PaymentCard},
		{"pay-seed-3", "m-pedro", "ms-seed-3", 2100, -60, PaymentTransfer},
		{"pay-seed-4", "m-luis", "ms-seed-4", 800, -31, PaymentCash},
	}

	_, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		if _, err := tx.UpdateSettings(func(st *Settings) error {
			*st = Settings{Name: "Apex Fitness Club", Currency: "MXN", GracePeriodDays: 3}
			return nil
		}); err != nil {
			return err
		}
		for _, u := range []User{
			{Base: Base{ID: "u-carlos"}, Name: "Carlos Mendoza", Email: "admin@apexfit.mx", Role: domain.RoleAdmin},
			{Base: Base{ID: "u-lucia"}, Name: "Lucía Vega", Email: "recepcion@apexfit.mx", Role: domain.RoleStaff},
		} {
			if _, err := tx.CreateUser(u); err != nil {
				return err
			}
		}
		for _, p := range []MembershipPlan{
			{Base: Base{ID: "p-semanal"}, Name: "Semanal", DurationDays: 7, Price: 250, Active: false},
			{Base: Base{ID: "p-mensual"}, Name: "Mensual", DurationDays: 30, Price: 800, Active: true},
			{Base: Base{ID: "p-trimestral"}, Name: "Trimestral", DurationDays: 90, Price: 2100, Active: true},
			{Base: Base{ID: "p-anual"}, Name: "Anual", DurationDays: 365, Price: 7500, Active: true},
		} {
			if _, err := tx.CreatePlan(p); err != nil {
				return err
			}
		}
		for _, m := range members {
			member := Member{Base: Base{ID: m.id}, FirstName: m.first, LastName: m.last, Phone: m.phone, Active: true}
			if m.email != "" {
				email := m.email
				member.Email = &email
			}
			if _, err := tx.CreateMember(member); err != nil {
				return err
			}
		}
		for _, ms := range memberships {
			start := today.AddDays(ms.startOffset)
			if _, err := tx.CreateMembership(Membership{
				Base:      Base{ID: ms.id},
				MemberID:  ms.memberID,
				PlanID:    ms.planID,
				PlanName:  ms.planName,
				StartDate: start,
				EndDate:   start.AddDays(ms.duration),
				Status:    ms.status,
				PricePaid: ms.price,
			}); err != nil {
				return err
			}
		}
		for _, p := range payments {
			membershipID := p.membershipID
			if _, err := tx.CreatePayment(Payment{
				Base:         Base{ID: p.id},
				MemberID:     p.memberID,
				MembershipID: &membershipID,
				Amount:       p.amount,
				Date:         today.AddDays(p.dayOffset),
				Method:       p.method,
				RecordedBy:   "u-lucia",
			}); err != nil {
				return err
			}
		}
		for _, c := range []CheckIn{
			{Base: Base{ID: "c-seed-1"}, MemberID: "m-pedro", Timestamp: now.Add(-26 * time.Hour), StatusAtCheckIn: domain.CheckInValid, RecordedBy: "u-lucia"},
			{Base: Base{ID: "c-seed-2"}, MemberID: "m-juan", Timestamp: now.Add(-2 * time.Hour), StatusAtCheckIn: domain.CheckInValid, RecordedBy: "u-lucia"},
		} {
			if _, err := tx.CreateCheckIn(c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		done(err)
		return false, err
	}
	s.logger.Info("seeded default fixture", "members", len(members), "memberships", len(memberships))
	done(nil)
	return true, nil
}

func (s *Service) storeEmpty() bool {
	if probe, ok := s.store.(interface{ Empty() bool }); ok {
		return probe.Empty()
	}
	return len(s.store.ListUsers()) == 0 && len(s.store.ListMembers()) == 0
}
