package core

import (
	"context"
	"fmt"
	"time"

	"gymcore/pkg/domain"
)

type (
	EntityType             = domain.EntityType
	Role                   = domain.Role
	PaymentMethod          = domain.PaymentMethod
	MembershipRecordStatus = domain.MembershipRecordStatus
	CheckInStatus          = domain.CheckInStatus
	MemberStatus           = domain.MemberStatus
	AdmissionStatus        = domain.AdmissionStatus
	Severity               = domain.Severity
	Base                   = domain.Base
	Date                   = domain.Date
	User                   = domain.User
	Member                 = domain.Member
	MembershipPlan         = domain.MembershipPlan
	Membership             = domain.Membership
	Payment                = domain.Payment
	CheckIn                = domain.CheckIn
	Settings               = domain.Settings
	Change                 = domain.Change
	Action                 = domain.Action
	Violation              = domain.Violation
	Result                 = domain.Result
	RuleViolationError     = domain.RuleViolationError
	Rule                   = domain.Rule
	RuleView               = domain.RuleView
	RulesEngine            = domain.RulesEngine
)

const (
	EntityUser       = domain.EntityUser
	EntityMember     = domain.EntityMember
	EntityPlan       = domain.EntityPlan
	EntityMembership = domain.EntityMembership
	EntityPayment    = domain.EntityPayment
	EntityCheckIn    = domain.EntityCheckIn
	EntitySettings   = domain.EntitySettings
)

const (
	PaymentCash     = domain.PaymentCash
	PaymentCard     = domain.PaymentCard
	PaymentTransfer = domain.PaymentTransfer
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	StatusActive   = domain.StatusActive
	StatusExpiring = domain.StatusExpiring
	StatusExpired  = domain.StatusExpired
	StatusNone     = domain.StatusNone
)

const (
	AdmissionValid   = domain.AdmissionValid
	AdmissionGrace   = domain.AdmissionGrace
	AdmissionExpired = domain.AdmissionExpired
)

// NewRulesEngine constructs an empty rules engine.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }

// ErrNotFound is returned when a referenced record does not exist.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// Logger captures the minimal structured logging surface the service emits to.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Clock abstracts time for deterministic tests. All values are normalized to UTC.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface. A nil func falls back to
// the wall clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f().UTC()
}

// MetricsRecorder receives one observation per completed service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// TraceSpan finalizes a single traced operation.
type TraceSpan interface {
	End(err error)
}

// Tracer opens spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}
