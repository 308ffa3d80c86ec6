package core

import (
	"context"
	"testing"
	"time"
)

func TestSeedDefaultPopulatesEmptyStore(t *testing.T) {
	svc := NewInMemoryService(WithClock(ClockFunc(func() time.Time { return frozenNow })))
	ctx := context.Background()

	seeded, err := svc.SeedDefault(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !seeded {
		t.Fatal("empty store should be seeded")
	}

	if _, err := svc.Login(ctx, "admin@apexfit.mx"); err != nil {
		t.Fatalf("seeded admin missing: %v", err)
	}
	plans, err := svc.Plans(ctx)
	if err != nil {
		t.Fatalf("plans: %v", err)
	}
	if len(plans) != 3 {
		t.Fatalf("expected 3 active plans, got %d", len(plans))
	}
	for _, p := range plans {
		if p.Name == "Semanal" {
			t.Fatal("inactive plan leaked into catalog")
		}
	}

	members, err := svc.Members(ctx, "")
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 5 {
		t.Fatalf("expected 5 members, got %d", len(members))
	}
	statuses := map[MemberStatus]int{}
	for _, m := range members {
		statuses[m.Status]++
	}
	if statuses[StatusActive] != 2 || statuses[StatusExpiring] != 1 || statuses[StatusExpired] != 1 || statuses[StatusNone] != 1 {
		t.Fatalf("unexpected status mix %+v", statuses)
	}

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ActiveMembers != 3 || stats.ExpiringSoon != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.TodayCheckIns != 1 {
		t.Fatalf("expected one seeded check-in today, got %d", stats.TodayCheckIns)
	}
}

func TestSeedDefaultIsIdempotent(t *testing.T) {
	svc := NewInMemoryService(WithClock(ClockFunc(func() time.Time { return frozenNow })))
	ctx := context.Background()

	if _, err := svc.SeedDefault(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before := len(svc.Store().ListMembers())

	seeded, err := svc.SeedDefault(ctx)
	if err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if seeded {
		t.Fatal("populated store must not be reseeded")
	}
	if got := len(svc.Store().ListMembers()); got != before {
		t.Fatalf("reseed changed member count %d -> %d", before, got)
	}
}
