// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by gymcore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityUser identifies a staff user record.
	EntityUser EntityType = "user"
	// EntityMember identifies a gym member record.
	EntityMember EntityType = "member"
	// EntityPlan identifies a membership plan catalog record.
	EntityPlan EntityType = "plan"
	// EntityMembership identifies a purchased membership record.
	EntityMembership EntityType = "membership"
	// EntityPayment identifies a payment ledger record.
	EntityPayment EntityType = "payment"
	// EntityCheckIn identifies an attendance check-in record.
	EntityCheckIn EntityType = "check_in"
	// EntitySettings identifies the process-wide settings singleton.
	EntitySettings EntityType = "settings"
)

// Role classifies staff users for role tagging; no authorization is enforced.
type Role string

// Staff roles recognised by the login surface.
const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// PaymentMethod enumerates the accepted payment channels. The wire values
// keep the Spanish identifiers of the persisted ledger.
type PaymentMethod string

// Accepted payment methods.
const (
	PaymentCash     PaymentMethod = "efectivo"
	PaymentCard     PaymentMethod = "tarjeta"
	PaymentTransfer PaymentMethod = "transferencia"
)

// MembershipRecordStatus is the tag written on a membership at creation time.
// It is never recomputed; live classification goes through ResolveStatus.
type MembershipRecordStatus string

// Stored membership record statuses.
const (
	RecordActive    MembershipRecordStatus = "active"
	RecordExpired   MembershipRecordStatus = "expired"
	RecordCancelled MembershipRecordStatus = "cancelled"
	RecordFuture    MembershipRecordStatus = "future"
)

// CheckInStatus is the immutable trust tag stamped on a check-in record.
type CheckInStatus string

// Check-in record statuses.
const (
	CheckInValid CheckInStatus = "valid"
	CheckInGrace CheckInStatus = "grace_period"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User represents a staff account that records payments and check-ins.
type User struct {
	Base
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Member represents a registered gym member. Identity is immutable; contact
// fields may change. Members are never hard-deleted, only deactivated.
type Member struct {
	Base
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Phone     string  `json:"phone"`
	Email     *string `json:"email,omitempty"`
	Active    bool    `json:"active"`
	Notes     *string `json:"notes,omitempty"`
	PhotoRef  *string `json:"photo_ref,omitempty"`
}

// DisplayName returns the member's full name for listings and exports.
func (m Member) DisplayName() string {
	return m.FirstName + " " + m.LastName
}

// MembershipPlan is a catalog entry. Plans are seeded at initialization and
// treated as read-only by the core.
type MembershipPlan struct {
	Base
	Name         string  `json:"name"`
	DurationDays int     `json:"duration_days"`
	Price        float64 `json:"price"`
	Active       bool    `json:"active"`
}

// Membership is a purchased plan for one member. PlanName and PricePaid are
// denormalized snapshots taken at purchase time so later plan edits never
// rewrite history. Date ranges of a member's memberships may overlap.
type Membership struct {
	Base
	MemberID  string                 `json:"member_id"`
	PlanID    string                 `json:"plan_id"`
	PlanName  string                 `json:"plan_name"`
	StartDate Date                   `json:"start_date"`
	EndDate   Date                   `json:"end_date"`
	Status    MembershipRecordStatus `json:"status"`
	PricePaid float64                `json:"price_paid"`
}

// Payment is one ledger entry, optionally linked to the membership it paid for.
type Payment struct {
	Base
	MemberID     string        `json:"member_id"`
	MembershipID *string       `json:"membership_id,omitempty"`
	Amount       float64       `json:"amount"`
	Date         Date          `json:"date"`
	Method       PaymentMethod `json:"method"`
	RecordedBy   string        `json:"recorded_by_user_id"`
	Notes        *string       `json:"notes,omitempty"`
}

// CheckIn records one admitted gym entry. StatusAtCheckIn is derived from the
// admission decision at creation time and never recomputed.
type CheckIn struct {
	Base
	MemberID        string        `json:"member_id"`
	Timestamp       time.Time     `json:"timestamp"`
	StatusAtCheckIn CheckInStatus `json:"status_at_check_in"`
	RecordedBy      string        `json:"recorded_by_user_id"`
}

// Settings is the process-wide singleton configuration record.
type Settings struct {
	Name            string `json:"name"`
	Currency        string `json:"currency"`
	GracePeriodDays int    `json:"grace_period_days"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported operations captured in the audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
