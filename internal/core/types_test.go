package core

import (
	"testing"
	"time"
)

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	logger := noopLogger{}
	logger.Debug("msg", "k", "v")
	logger.Info("msg", "k", "v")
	logger.Warn("msg", "k", "v")
	logger.Error("msg", "k", "v")
}

func TestClockFuncNilFallsBackToUTC(t *testing.T) {
	got := ClockFunc(nil).Now()
	if got.IsZero() {
		t.Fatal("expected non-zero time from nil ClockFunc")
	}
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %s", got.Location())
	}
}

func TestClockFuncNormalizesToUTC(t *testing.T) {
	expected := time.Date(2026, time.July, 4, 12, 34, 56, 0, time.FixedZone("offset", -5*3600))
	got := ClockFunc(func() time.Time { return expected }).Now()
	if !got.Equal(expected) || got.Location() != time.UTC {
		t.Fatalf("expected %s in UTC, got %s", expected.UTC(), got)
	}
}

func TestErrNotFoundMessage(t *testing.T) {
	err := ErrNotFound{Entity: EntityMember, ID: "m-1"}
	if err.Error() != "member m-1 not found" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestDefaultServiceOptions(t *testing.T) {
	opts := defaultServiceOptions()
	if opts.clock == nil || opts.logger == nil {
		t.Fatal("defaults must provide clock and logger")
	}
	if opts.clock.Now().IsZero() {
		t.Fatal("default clock must tick")
	}
}
