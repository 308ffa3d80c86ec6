package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. The ledgers are append-only; only
// member contact fields and the settings singleton may be updated.
type Transaction interface {
	Snapshot() TransactionView
	CreateUser(User) (User, error)
	CreateMember(Member) (Member, error)
	UpdateMember(id string, mutator func(*Member) error) (Member, error)
	CreatePlan(MembershipPlan) (MembershipPlan, error)
	CreateMembership(Membership) (Membership, error)
	CreatePayment(Payment) (Payment, error)
	CreateCheckIn(CheckIn) (CheckIn, error)
	UpdateSettings(mutator func(*Settings) error) (Settings, error)
	FindMember(id string) (Member, bool)
	FindPlan(id string) (MembershipPlan, bool)
}

// TransactionView provides read-only access to snapshot data for rules and
// in-transaction decisions.
type TransactionView interface {
	RuleView
	ListUsers() []User
	Settings() Settings
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetUser(id string) (User, bool)
	ListUsers() []User
	GetMember(id string) (Member, bool)
	ListMembers() []Member
	GetPlan(id string) (MembershipPlan, bool)
	ListPlans() []MembershipPlan
	ListMemberships() []Membership
	MembershipsForMember(memberID string) []Membership
	ListPayments() []Payment
	ListCheckIns() []CheckIn
	Settings() Settings
}
