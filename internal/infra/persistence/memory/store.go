// Package memory provides the in-memory transactional store that every
// durable backend builds upon. It lives under infra to keep domain
// dependencies one-way (domain -> nothing).
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"gymcore/pkg/domain"
)

// Aliases keep method signatures concise while still exposing domain types
// from this infra package.
type (
	// User is an alias of domain.User.
	User = domain.User
	// Member is an alias of domain.Member.
	Member = domain.Member
	// MembershipPlan is an alias of domain.MembershipPlan.
	MembershipPlan = domain.MembershipPlan
	// Membership is an alias of domain.Membership.
	Membership = domain.Membership
	// Payment is an alias of domain.Payment.
	Payment = domain.Payment
	// CheckIn is an alias of domain.CheckIn.
	CheckIn = domain.CheckIn
	// Settings is an alias of domain.Settings.
	Settings = domain.Settings
	// Change is an alias of domain.Change.
	Change = domain.Change
	// Result is an alias of domain.Result.
	Result = domain.Result
	// RulesEngine is an alias of domain.RulesEngine.
	RulesEngine = domain.RulesEngine
	// Transaction is an alias of domain.Transaction.
	Transaction = domain.Transaction
	// TransactionView is an alias of domain.TransactionView.
	TransactionView = domain.TransactionView
	// PersistentStore is an alias of domain.PersistentStore.
	PersistentStore = domain.PersistentStore
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// Snapshot is the serializable whole-database state exchanged with durable
// backends. One snapshot holds every collection plus the settings singleton.
type Snapshot struct {
	Users       map[string]User           `json:"users"`
	Members     map[string]Member         `json:"members"`
	Plans       map[string]MembershipPlan `json:"plans"`
	Memberships map[string]Membership     `json:"memberships"`
	Payments    map[string]Payment        `json:"payments"`
	CheckIns    map[string]CheckIn        `json:"check_ins"`
	Settings    Settings                  `json:"settings"`
}

type memoryState struct {
	users       map[string]User
	members     map[string]Member
	plans       map[string]MembershipPlan
	memberships map[string]Membership
	payments    map[string]Payment
	checkIns    map[string]CheckIn
	settings    Settings
}

func newMemoryState() memoryState {
	return memoryState{
		users:       make(map[string]User),
		members:     make(map[string]Member),
		plans:       make(map[string]MembershipPlan),
		memberships: make(map[string]Membership),
		payments:    make(map[string]Payment),
		checkIns:    make(map[string]CheckIn),
	}
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.users {
		cloned.users[k] = cloneUser(v)
	}
	for k, v := range s.members {
		cloned.members[k] = cloneMember(v)
	}
	for k, v := range s.plans {
		cloned.plans[k] = clonePlan(v)
	}
	for k, v := range s.memberships {
		cloned.memberships[k] = cloneMembership(v)
	}
	for k, v := range s.payments {
		cloned.payments[k] = clonePayment(v)
	}
	for k, v := range s.checkIns {
		cloned.checkIns[k] = cloneCheckIn(v)
	}
	cloned.settings = s.settings
	return cloned
}

func cloneUser(u User) User { return u }

func cloneMember(m Member) Member {
	cp := m
	cp.Email = cloneStringPtr(m.Email)
	cp.Notes = cloneStringPtr(m.Notes)
	cp.PhotoRef = cloneStringPtr(m.PhotoRef)
	return cp
}

func clonePlan(p MembershipPlan) MembershipPlan { return p }

func cloneMembership(m Membership) Membership { return m }

func clonePayment(p Payment) Payment {
	cp := p
	cp.MembershipID = cloneStringPtr(p.MembershipID)
	cp.Notes = cloneStringPtr(p.Notes)
	return cp
}

func cloneCheckIn(c CheckIn) CheckIn { return c }

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	snap := Snapshot{
		Users:       make(map[string]User, len(state.users)),
		Members:     make(map[string]Member, len(state.members)),
		Plans:       make(map[string]MembershipPlan, len(state.plans)),
		Memberships: make(map[string]Membership, len(state.memberships)),
		Payments:    make(map[string]Payment, len(state.payments)),
		CheckIns:    make(map[string]CheckIn, len(state.checkIns)),
		Settings:    state.settings,
	}
	for k, v := range state.users {
		snap.Users[k] = cloneUser(v)
	}
	for k, v := range state.members {
		snap.Members[k] = cloneMember(v)
	}
	for k, v := range state.plans {
		snap.Plans[k] = clonePlan(v)
	}
	for k, v := range state.memberships {
		snap.Memberships[k] = cloneMembership(v)
	}
	for k, v := range state.payments {
		snap.Payments[k] = clonePayment(v)
	}
	for k, v := range state.checkIns {
		snap.CheckIns[k] = cloneCheckIn(v)
	}
	return snap
}

func memoryStateFromSnapshot(snap Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range snap.Users {
		state.users[k] = cloneUser(v)
	}
	for k, v := range snap.Members {
		state.members[k] = cloneMember(v)
	}
	for k, v := range snap.Plans {
		state.plans[k] = clonePlan(v)
	}
	for k, v := range snap.Memberships {
		state.memberships[k] = cloneMembership(v)
	}
	for k, v := range snap.Payments {
		state.payments[k] = clonePayment(v)
	}
	for k, v := range snap.CheckIns {
		state.checkIns[k] = cloneCheckIn(v)
	}
	state.settings = snap.Settings
	return state
}

// Store provides an in-memory transactional store for the gym domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID(prefix string) string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return prefix + "-" + hex.EncodeToString(b[:])
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// Empty reports whether the store holds no records at all. Seeding keys off this.
func (s *Store) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.users) == 0 && len(s.state.members) == 0 &&
		len(s.state.plans) == 0 && len(s.state.memberships) == 0 &&
		len(s.state.payments) == 0 && len(s.state.checkIns) == 0
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used for record audit stamps.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc overrides the time provider; used by tests to freeze stamps.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListUsers returns all staff users within the transaction snapshot.
func (v transactionView) ListUsers() []User {
	out := make([]User, 0, len(v.state.users))
	for _, u := range v.state.users {
		out = append(out, cloneUser(u))
	}
	return out
}

// ListMembers returns all members within the transaction snapshot.
func (v transactionView) ListMembers() []Member {
	out := make([]Member, 0, len(v.state.members))
	for _, m := range v.state.members {
		out = append(out, cloneMember(m))
	}
	return out
}

// ListPlans returns all catalog plans.
func (v transactionView) ListPlans() []MembershipPlan {
	out := make([]MembershipPlan, 0, len(v.state.plans))
	for _, p := range v.state.plans {
		out = append(out, clonePlan(p))
	}
	return out
}

// ListMemberships returns all membership records in the snapshot.
func (v transactionView) ListMemberships() []Membership {
	out := make([]Membership, 0, len(v.state.memberships))
	for _, m := range v.state.memberships {
		out = append(out, cloneMembership(m))
	}
	return out
}

// ListPayments returns all payment ledger entries.
func (v transactionView) ListPayments() []Payment {
	out := make([]Payment, 0, len(v.state.payments))
	for _, p := range v.state.payments {
		out = append(out, clonePayment(p))
	}
	return out
}

// ListCheckIns returns all check-in records.
func (v transactionView) ListCheckIns() []CheckIn {
	out := make([]CheckIn, 0, len(v.state.checkIns))
	for _, c := range v.state.checkIns {
		out = append(out, cloneCheckIn(c))
	}
	return out
}

// FindMember retrieves a member by ID from the snapshot.
func (v transactionView) FindMember(id string) (Member, bool) {
	m, ok := v.state.members[id]
	if !ok {
		return Member{}, false
	}
	return cloneMember(m), true
}

// FindPlan retrieves a plan by ID from the snapshot.
func (v transactionView) FindPlan(id string) (MembershipPlan, bool) {
	p, ok := v.state.plans[id]
	if !ok {
		return MembershipPlan{}, false
	}
	return clonePlan(p), true
}

// FindMembership retrieves a membership by ID from the snapshot.
func (v transactionView) FindMembership(id string) (Membership, bool) {
	m, ok := v.state.memberships[id]
	if !ok {
		return Membership{}, false
	}
	return cloneMembership(m), true
}

// Settings returns the settings singleton.
func (v transactionView) Settings() Settings {
	return v.state.settings
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	view := newTransactionView(&snapshot)
	return fn(view)
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindMember exposes member lookup within the transaction scope.
func (tx *transaction) FindMember(id string) (Member, bool) {
	m, ok := tx.state.members[id]
	if !ok {
		return Member{}, false
	}
	return cloneMember(m), true
}

// FindPlan exposes plan lookup within the transaction scope.
func (tx *transaction) FindPlan(id string) (MembershipPlan, bool) {
	p, ok := tx.state.plans[id]
	if !ok {
		return MembershipPlan{}, false
	}
	return clonePlan(p), true
}

// CreateUser stores a new staff user within the transaction.
func (tx *transaction) CreateUser(u User) (User, error) {
	if u.ID == "" {
		u.ID = tx.store.newID("u")
	}
	if _, exists := tx.state.users[u.ID]; exists {
		return User{}, fmt.Errorf("user %q already exists", u.ID)
	}
	u.CreatedAt = tx.now
	u.UpdatedAt = tx.now
	tx.state.users[u.ID] = cloneUser(u)
	tx.recordChange(Change{Entity: domain.EntityUser, Action: domain.ActionCreate, After: cloneUser(u)})
	return cloneUser(u), nil
}

// CreateMember stores a new member within the transaction.
func (tx *transaction) CreateMember(m Member) (Member, error) {
	if m.ID == "" {
		m.ID = tx.store.newID("m")
	}
	if _, exists := tx.state.members[m.ID]; exists {
		return Member{}, fmt.Errorf("member %q already exists", m.ID)
	}
	m.CreatedAt = tx.now
	m.UpdatedAt = tx.now
	tx.state.members[m.ID] = cloneMember(m)
	tx.recordChange(Change{Entity: domain.EntityMember, Action: domain.ActionCreate, After: cloneMember(m)})
	return cloneMember(m), nil
}

// UpdateMember mutates a member's mutable fields using the provided mutator.
// Identity fields are pinned back after the mutator runs.
func (tx *transaction) UpdateMember(id string, mutator func(*Member) error) (Member, error) {
	current, ok := tx.state.members[id]
	if !ok {
		return Member{}, fmt.Errorf("member %q not found", id)
	}
	before := cloneMember(current)
	if err := mutator(&current); err != nil {
		return Member{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.members[id] = cloneMember(current)
	tx.recordChange(Change{Entity: domain.EntityMember, Action: domain.ActionUpdate, Before: before, After: cloneMember(current)})
	return cloneMember(current), nil
}

// CreatePlan stores a catalog plan. Plans are seeded once and read-only afterwards.
func (tx *transaction) CreatePlan(p MembershipPlan) (MembershipPlan, error) {
	if p.ID == "" {
		p.ID = tx.store.newID("p")
	}
	if _, exists := tx.state.plans[p.ID]; exists {
		return MembershipPlan{}, fmt.Errorf("plan %q already exists", p.ID)
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.plans[p.ID] = clonePlan(p)
	tx.recordChange(Change{Entity: domain.EntityPlan, Action: domain.ActionCreate, After: clonePlan(p)})
	return clonePlan(p), nil
}

// CreateMembership appends a membership record. Memberships are immutable once written.
func (tx *transaction) CreateMembership(m Membership) (Membership, error) {
	if m.ID == "" {
		m.ID = tx.store.newID("ms")
	}
	if _, exists := tx.state.memberships[m.ID]; exists {
		return Membership{}, fmt.Errorf("membership %q already exists", m.ID)
	}
	m.CreatedAt = tx.now
	m.UpdatedAt = tx.now
	tx.state.memberships[m.ID] = cloneMembership(m)
	tx.recordChange(Change{Entity: domain.EntityMembership, Action: domain.ActionCreate, After: cloneMembership(m)})
	return cloneMembership(m), nil
}

// CreatePayment appends a payment ledger entry.
func (tx *transaction) CreatePayment(p Payment) (Payment, error) {
	if p.ID == "" {
		p.ID = tx.store.newID("pay")
	}
	if _, exists := tx.state.payments[p.ID]; exists {
		return Payment{}, fmt.Errorf("payment %q already exists", p.ID)
	}
	p.CreatedAt = tx.now
	p.UpdatedAt = tx.now
	tx.state.payments[p.ID] = clonePayment(p)
	tx.recordChange(Change{Entity: domain.EntityPayment, Action: domain.ActionCreate, After: clonePayment(p)})
	return clonePayment(p), nil
}

// CreateCheckIn appends a check-in record.
func (tx *transaction) CreateCheckIn(c CheckIn) (CheckIn, error) {
	if c.ID == "" {
		c.ID = tx.store.newID("c")
	}
	if _, exists := tx.state.checkIns[c.ID]; exists {
		return CheckIn{}, fmt.Errorf("check-in %q already exists", c.ID)
	}
	c.CreatedAt = tx.now
	c.UpdatedAt = tx.now
	tx.state.checkIns[c.ID] = cloneCheckIn(c)
	tx.recordChange(Change{Entity: domain.EntityCheckIn, Action: domain.ActionCreate, After: cloneCheckIn(c)})
	return cloneCheckIn(c), nil
}

// UpdateSettings mutates the settings singleton.
func (tx *transaction) UpdateSettings(mutator func(*Settings) error) (Settings, error) {
	current := tx.state.settings
	before := current
	if err := mutator(&current); err != nil {
		return Settings{}, err
	}
	tx.state.settings = current
	tx.recordChange(Change{Entity: domain.EntitySettings, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// Read helpers ---------------------------------------------------------------

// GetUser retrieves a staff user by ID from committed state.
func (s *Store) GetUser(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.state.users[id]
	if !ok {
		return User{}, false
	}
	return cloneUser(u), true
}

// ListUsers returns all staff users from committed state.
func (s *Store) ListUsers() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.state.users))
	for _, u := range s.state.users {
		out = append(out, cloneUser(u))
	}
	return out
}

// GetMember retrieves a member by ID from committed state.
func (s *Store) GetMember(id string) (Member, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.state.members[id]
	if !ok {
		return Member{}, false
	}
	return cloneMember(m), true
}

// ListMembers returns all members from committed state.
func (s *Store) ListMembers() []Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Member, 0, len(s.state.members))
	for _, m := range s.state.members {
		out = append(out, cloneMember(m))
	}
	return out
}

// GetPlan retrieves a catalog plan by ID.
func (s *Store) GetPlan(id string) (MembershipPlan, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.plans[id]
	if !ok {
		return MembershipPlan{}, false
	}
	return clonePlan(p), true
}

// ListPlans returns all catalog plans.
func (s *Store) ListPlans() []MembershipPlan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]MembershipPlan, 0, len(s.state.plans))
	for _, p := range s.state.plans {
		out = append(out, clonePlan(p))
	}
	return out
}

// ListMemberships returns all membership records.
func (s *Store) ListMemberships() []Membership {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Membership, 0, len(s.state.memberships))
	for _, m := range s.state.memberships {
		out = append(out, cloneMembership(m))
	}
	return out
}

// MembershipsForMember returns the membership history of one member.
func (s *Store) MembershipsForMember(memberID string) []Membership {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Membership
	for _, m := range s.state.memberships {
		if m.MemberID == memberID {
			out = append(out, cloneMembership(m))
		}
	}
	return out
}

// ListPayments returns all payment ledger entries.
func (s *Store) ListPayments() []Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Payment, 0, len(s.state.payments))
	for _, p := range s.state.payments {
		out = append(out, clonePayment(p))
	}
	return out
}

// ListCheckIns returns all check-in records.
func (s *Store) ListCheckIns() []CheckIn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]CheckIn, 0, len(s.state.checkIns))
	for _, c := range s.state.checkIns {
		out = append(out, cloneCheckIn(c))
	}
	return out
}

// Settings returns the committed settings singleton.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.settings
}
