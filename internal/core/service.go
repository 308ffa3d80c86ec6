package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"gymcore/internal/blob"
	"gymcore/pkg/domain"
)

// Service exposes the transactional gym operations: member registry,
// membership sales, attendance and the dashboard aggregates.
type Service struct {
	store   PersistentStore
	clock   Clock
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	photos  blob.Store
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...ServiceOption) *Service {
	options := defaultServiceOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if provider, ok := store.(interface{ SetNowFunc(func() time.Time) }); ok {
		clock := options.clock
		provider.SetNowFunc(clock.Now)
	}
	return &Service{
		store:   store,
		clock:   options.clock,
		logger:  options.logger,
		metrics: options.metrics,
		tracer:  options.tracer,
		photos:  options.photos,
	}
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore { return s.store }

func (s *Service) begin(ctx context.Context, operation string) (context.Context, func(error)) {
	start := s.clock.Now()
	var span TraceSpan
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operation)
	}
	return ctx, func(err error) {
		if s.metrics != nil {
			s.metrics.Observe(ctx, operation, err == nil, s.clock.Now().Sub(start))
		}
		if span != nil {
			span.End(err)
		}
	}
}

func (s *Service) today() Date { return domain.DateOf(s.clock.Now()) }

// Login resolves a staff user by email, case-insensitively. No password
// verification happens here; the deployment sits behind the front desk.
func (s *Service) Login(ctx context.Context, email string) (User, error) {
	ctx, done := s.begin(ctx, "login")
	email = strings.TrimSpace(email)
	for _, user := range s.store.ListUsers() {
		if strings.EqualFold(user.Email, email) {
			s.logger.Info("user logged in", "user_id", user.ID, "role", user.Role)
			done(nil)
			return user, nil
		}
	}
	err := ErrNotFound{Entity: EntityUser, ID: email}
	s.logger.Warn("login rejected", "email", email)
	done(err)
	return User{}, err
}

// DashboardStats aggregates the front-desk dashboard counters for today.
type DashboardStats struct {
	ActiveMembers    int     `json:"active_members"`
	ExpiringSoon     int     `json:"expiring_soon"`
	ExpiredThisMonth int     `json:"expired_this_month"`
	MonthlyIncome    float64 `json:"monthly_income"`
	TodayCheckIns    int     `json:"today_check_ins"`
}

// Stats computes the dashboard aggregates from one consistent snapshot.
func (s *Service) Stats(ctx context.Context) (DashboardStats, error) {
	ctx, done := s.begin(ctx, "stats")
	today := s.today()
	monthStart := today.StartOfMonth()
	monthEnd := today.EndOfMonth()

	var stats DashboardStats
	err := s.store.View(ctx, func(view TransactionView) error {
		memberships := view.ListMemberships()
		activeIDs := make(map[string]struct{})
		for _, m := range memberships {
			if m.Status == domain.RecordActive && !m.EndDate.Before(today) {
				activeIDs[m.MemberID] = struct{}{}
			}
			if m.Status == domain.RecordActive && domain.InExpiringWindow(m, today) && !domain.IsSuperseded(m, memberships) {
				stats.ExpiringSoon++
			}
			if m.EndDate.Before(today) && !m.EndDate.Before(monthStart) && !m.EndDate.After(monthEnd) {
				stats.ExpiredThisMonth++
			}
		}
		stats.ActiveMembers = len(activeIDs)
		for _, p := range view.ListPayments() {
			if !p.Date.Before(monthStart) && !p.Date.After(monthEnd) {
				stats.MonthlyIncome += p.Amount
			}
		}
		for _, c := range view.ListCheckIns() {
			if domain.DateOf(c.Timestamp).Equal(today) {
				stats.TodayCheckIns++
			}
		}
		return nil
	})
	done(err)
	return stats, err
}

// MemberWithStatus joins a member with their derived membership position.
type MemberWithStatus struct {
	Member
	Status     MemberStatus `json:"status"`
	ExpiryDate Date         `json:"expiry_date"`
	Latest     *Membership  `json:"latest_membership,omitempty"`
}

// Members lists members with derived status, newest first. A non-empty query
// filters by name or phone, case-insensitively.
func (s *Service) Members(ctx context.Context, query string) ([]MemberWithStatus, error) {
	ctx, done := s.begin(ctx, "list_members")
	today := s.today()
	query = strings.ToLower(strings.TrimSpace(query))

	var out []MemberWithStatus
	err := s.store.View(ctx, func(view TransactionView) error {
		memberships := view.ListMemberships()
		byMember := make(map[string][]Membership)
		for _, m := range memberships {
			byMember[m.MemberID] = append(byMember[m.MemberID], m)
		}
		for _, member := range view.ListMembers() {
			if query != "" &&
				!strings.Contains(strings.ToLower(member.DisplayName()), query) &&
				!strings.Contains(member.Phone, query) {
				continue
			}
			out = append(out, withStatus(member, byMember[member.ID], today))
		}
		return nil
	})
	if err != nil {
		done(err)
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	done(nil)
	return out, nil
}

func withStatus(member Member, memberships []Membership, today Date) MemberWithStatus {
	info := domain.ResolveStatus(memberships, today)
	return MemberWithStatus{
		Member:     member,
		Status:     info.Status,
		ExpiryDate: info.ExpiryDate,
		Latest:     info.Latest,
	}
}

// Member resolves one member with derived status.
func (s *Service) Member(ctx context.Context, id string) (MemberWithStatus, error) {
	ctx, done := s.begin(ctx, "get_member")
	member, ok := s.store.GetMember(id)
	if !ok {
		err := ErrNotFound{Entity: EntityMember, ID: id}
		done(err)
		return MemberWithStatus{}, err
	}
	result := withStatus(member, s.store.MembershipsForMember(id), s.today())
	done(nil)
	return result, nil
}

// CreateMember registers a new member. New members always start active.
func (s *Service) CreateMember(ctx context.Context, member Member) (Member, Result, error) {
	ctx, done := s.begin(ctx, "create_member")
	member.Active = true
	var created Member
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var txErr error
		created, txErr = tx.CreateMember(member)
		return txErr
	})
	if err == nil {
		s.logger.Info("member created", "member_id", created.ID)
	}
	done(err)
	return created, res, err
}

// UpdateMember mutates a member's contact fields using the provided mutator.
func (s *Service) UpdateMember(ctx context.Context, id string, mutator func(*Member) error) (Member, Result, error) {
	ctx, done := s.begin(ctx, "update_member")
	var updated Member
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var txErr error
		updated, txErr = tx.UpdateMember(id, mutator)
		return txErr
	})
	done(err)
	return updated, res, err
}

// Plans lists the active plan catalog, shortest duration first.
func (s *Service) Plans(ctx context.Context) ([]MembershipPlan, error) {
	ctx, done := s.begin(ctx, "list_plans")
	var out []MembershipPlan
	for _, plan := range s.store.ListPlans() {
		if plan.Active {
			out = append(out, plan)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DurationDays != out[j].DurationDays {
			return out[i].DurationDays < out[j].DurationDays
		}
		return out[i].Price < out[j].Price
	})
	done(nil)
	return out, nil
}

// CreateMembership sells a plan to a member: one membership starting today
// plus its linked payment, committed atomically. The window and the payment
// amount are derived from the plan snapshot at purchase time.
func (s *Service) CreateMembership(ctx context.Context, memberID, planID, recordedBy string, method PaymentMethod) (Membership, Result, error) {
	ctx, done := s.begin(ctx, "create_membership")
	start := s.today()
	var created Membership
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		if _, ok := tx.FindMember(memberID); !ok {
			return ErrNotFound{Entity: EntityMember, ID: memberID}
		}
		plan, ok := tx.FindPlan(planID)
		if !ok {
			return ErrNotFound{Entity: EntityPlan, ID: planID}
		}
		var txErr error
		created, txErr = tx.CreateMembership(Membership{
			MemberID:  memberID,
			PlanID:    plan.ID,
			PlanName:  plan.Name,
			StartDate: start,
			EndDate:   start.AddDays(plan.DurationDays),
			Status:    domain.RecordActive,
			PricePaid: plan.Price,
		})
		if txErr != nil {
			return txErr
		}
		_, txErr = tx.CreatePayment(Payment{
			MemberID:     memberID,
			MembershipID: &created.ID,
			Amount:       plan.Price,
			Date:         start,
			Method:       method,
			RecordedBy:   recordedBy,
		})
		return txErr
	})
	if err == nil {
		s.logger.Info("membership sold", "member_id", memberID, "plan_id", planID, "ends", created.EndDate.String())
	}
	done(err)
	return created, res, err
}

// MemberHistory is the reverse-chronological activity of one member.
type MemberHistory struct {
	Memberships []Membership `json:"memberships"`
	Payments    []Payment    `json:"payments"`
	CheckIns    []CheckIn    `json:"check_ins"`
}

// MemberHistory returns the member's memberships, payments and check-ins,
// each newest first.
func (s *Service) MemberHistory(ctx context.Context, memberID string) (MemberHistory, error) {
	ctx, done := s.begin(ctx, "member_history")
	var history MemberHistory
	err := s.store.View(ctx, func(view TransactionView) error {
		if _, ok := view.FindMember(memberID); !ok {
			return ErrNotFound{Entity: EntityMember, ID: memberID}
		}
		for _, m := range view.ListMemberships() {
			if m.MemberID == memberID {
				history.Memberships = append(history.Memberships, m)
			}
		}
		for _, p := range view.ListPayments() {
			if p.MemberID == memberID {
				history.Payments = append(history.Payments, p)
			}
		}
		for _, c := range view.ListCheckIns() {
			if c.MemberID == memberID {
				history.CheckIns = append(history.CheckIns, c)
			}
		}
		return nil
	})
	if err != nil {
		done(err)
		return MemberHistory{}, err
	}
	sort.Slice(history.Memberships, func(i, j int) bool {
		return laterMembership(history.Memberships[i], history.Memberships[j])
	})
	sort.Slice(history.Payments, func(i, j int) bool {
		return laterPayment(history.Payments[i], history.Payments[j])
	})
	sort.Slice(history.CheckIns, func(i, j int) bool {
		return history.CheckIns[i].Timestamp.After(history.CheckIns[j].Timestamp)
	})
	done(nil)
	return history, nil
}

func laterMembership(a, b Membership) bool {
	if !a.EndDate.Equal(b.EndDate) {
		return a.EndDate.After(b.EndDate)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func laterPayment(a, b Payment) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

// Front-desk messages shown on the check-in screen.
const (
	msgMemberNotFound   = "Socio no encontrado"
	msgNoMembership     = "Sin membresía activa. Renueve en recepción."
	msgExpired          = "Membresía vencida. Renueve en recepción."
	msgAdmitted         = "Entrada registrada exitosamente"
	msgAdmittedGraceFmt = "Entrada registrada (Período de gracia: vence el %s)"
)

// CheckInResult is the outcome shown at the front desk. A rejection is a
// normal result, not an error.
type CheckInResult struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Status  AdmissionStatus `json:"status"`
	CheckIn *CheckIn        `json:"check_in,omitempty"`
}

// CheckIn admits or rejects a member's gym entry today. Admissions append an
// immutable attendance record tagged with the admission level; rejections
// leave no trace beyond the returned result.
func (s *Service) CheckIn(ctx context.Context, memberID, recordedBy string) (CheckInResult, error) {
	ctx, done := s.begin(ctx, "check_in")
	today := s.today()

	var (
		latest    Membership
		hasLatest bool
		memberOK  bool
		graceDays int
	)
	err := s.store.View(ctx, func(view TransactionView) error {
		if _, ok := view.FindMember(memberID); !ok {
			return nil
		}
		memberOK = true
		var memberships []Membership
		for _, m := range view.ListMemberships() {
			if m.MemberID == memberID {
				memberships = append(memberships, m)
			}
		}
		latest, hasLatest = domain.LatestMembership(memberships)
		graceDays = view.Settings().GracePeriodDays
		return nil
	})
	if err != nil {
		done(err)
		return CheckInResult{}, err
	}

	switch {
	case !memberOK:
		done(nil)
		return CheckInResult{Message: msgMemberNotFound, Status: AdmissionExpired}, nil
	case !hasLatest:
		done(nil)
		return CheckInResult{Message: msgNoMembership, Status: AdmissionExpired}, nil
	}

	admission := domain.ClassifyAdmission(latest, today, graceDays)
	if admission.Status == AdmissionExpired {
		s.logger.Info("check-in rejected", "member_id", memberID, "ended", latest.EndDate.String())
		done(nil)
		return CheckInResult{Message: msgExpired, Status: AdmissionExpired}, nil
	}

	var created CheckIn
	if _, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var txErr error
		created, txErr = tx.CreateCheckIn(CheckIn{
			MemberID:        memberID,
			Timestamp:       s.clock.Now(),
			StatusAtCheckIn: admission.CheckInTag(),
			RecordedBy:      recordedBy,
		})
		return txErr
	}); err != nil {
		done(err)
		return CheckInResult{}, err
	}

	message := msgAdmitted
	if admission.Status == AdmissionGrace {
		message = fmt.Sprintf(msgAdmittedGraceFmt, admission.GraceEnd.Format("02/01"))
	}
	s.logger.Info("check-in admitted", "member_id", memberID, "status", admission.Status)
	done(nil)
	return CheckInResult{Success: true, Message: message, Status: admission.Status, CheckIn: &created}, nil
}

// CheckInWithMember joins an attendance record with the member's name.
type CheckInWithMember struct {
	CheckIn
	MemberName string `json:"member_name"`
}

// TodayCheckIns lists today's attendance, newest first.
func (s *Service) TodayCheckIns(ctx context.Context) ([]CheckInWithMember, error) {
	ctx, done := s.begin(ctx, "today_check_ins")
	today := s.today()
	var out []CheckInWithMember
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, c := range view.ListCheckIns() {
			if !domain.DateOf(c.Timestamp).Equal(today) {
				continue
			}
			out = append(out, CheckInWithMember{CheckIn: c, MemberName: memberName(view, c.MemberID)})
		}
		return nil
	})
	if err != nil {
		done(err)
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	done(nil)
	return out, nil
}

// PaymentWithMember joins a ledger entry with the member's name.
type PaymentWithMember struct {
	Payment
	MemberName string `json:"member_name"`
}

const defaultRecentPayments = 30

// RecentPayments lists the most recent payments, newest first, capped at
// limit (defaults to 30 when non-positive).
func (s *Service) RecentPayments(ctx context.Context, limit int) ([]PaymentWithMember, error) {
	ctx, done := s.begin(ctx, "recent_payments")
	if limit <= 0 {
		limit = defaultRecentPayments
	}
	var out []PaymentWithMember
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, p := range view.ListPayments() {
			out = append(out, PaymentWithMember{Payment: p, MemberName: memberName(view, p.MemberID)})
		}
		return nil
	})
	if err != nil {
		done(err)
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return laterPayment(out[i].Payment, out[j].Payment) })
	if len(out) > limit {
		out = out[:limit]
	}
	done(nil)
	return out, nil
}

// ExpiringMembership joins an expiring membership with its member.
type ExpiringMembership struct {
	Membership
	Member Member `json:"member"`
}

// ExpiringMemberships lists memberships ending within the look-ahead window,
// soonest first. Memberships already replaced by a later active one for the
// same member are suppressed.
func (s *Service) ExpiringMemberships(ctx context.Context) ([]ExpiringMembership, error) {
	ctx, done := s.begin(ctx, "expiring_memberships")
	today := s.today()
	var out []ExpiringMembership
	err := s.store.View(ctx, func(view TransactionView) error {
		memberships := view.ListMemberships()
		for _, m := range memberships {
			if m.Status != domain.RecordActive || !domain.InExpiringWindow(m, today) || domain.IsSuperseded(m, memberships) {
				continue
			}
			member, ok := view.FindMember(m.MemberID)
			if !ok {
				continue
			}
			out = append(out, ExpiringMembership{Membership: m, Member: member})
		}
		return nil
	})
	if err != nil {
		done(err)
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EndDate.Equal(out[j].EndDate) {
			return out[i].EndDate.Before(out[j].EndDate)
		}
		return out[i].Member.DisplayName() < out[j].Member.DisplayName()
	})
	done(nil)
	return out, nil
}

// Settings returns the gym configuration singleton.
func (s *Service) Settings(ctx context.Context) (Settings, error) {
	ctx, done := s.begin(ctx, "get_settings")
	settings := s.store.Settings()
	done(nil)
	return settings, nil
}

// ErrPhotoStoreNotConfigured is returned by photo operations when no blob
// backend was wired via WithPhotoStore.
var ErrPhotoStoreNotConfigured = errors.New("photo store not configured")

func photoKey(memberID string) string { return "members/" + memberID + "/photo" }

// AttachMemberPhoto stores (or replaces) the member's photo in the blob
// backend and records the blob key on the member.
func (s *Service) AttachMemberPhoto(ctx context.Context, memberID string, r io.Reader, contentType string) (Member, error) {
	ctx, done := s.begin(ctx, "attach_member_photo")
	if s.photos == nil {
		done(ErrPhotoStoreNotConfigured)
		return Member{}, ErrPhotoStoreNotConfigured
	}
	if _, ok := s.store.GetMember(memberID); !ok {
		err := ErrNotFound{Entity: EntityMember, ID: memberID}
		done(err)
		return Member{}, err
	}
	key := photoKey(memberID)
	// Blob puts are create-only; drop any previous photo first.
	if _, err := s.photos.Delete(ctx, key); err != nil {
		done(err)
		return Member{}, err
	}
	info, err := s.photos.Put(ctx, key, r, blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"member_id": memberID},
	})
	if err != nil {
		done(err)
		return Member{}, err
	}
	updated, _, err := s.UpdateMember(ctx, memberID, func(m *Member) error {
		ref := info.Key
		m.PhotoRef = &ref
		return nil
	})
	if err != nil {
		done(err)
		return Member{}, err
	}
	s.logger.Info("member photo attached", "member_id", memberID, "size", info.Size)
	done(nil)
	return updated, nil
}

// MemberPhoto streams the member's photo from the blob backend.
func (s *Service) MemberPhoto(ctx context.Context, memberID string) (blob.Info, io.ReadCloser, error) {
	ctx, done := s.begin(ctx, "member_photo")
	if s.photos == nil {
		done(ErrPhotoStoreNotConfigured)
		return blob.Info{}, nil, ErrPhotoStoreNotConfigured
	}
	member, ok := s.store.GetMember(memberID)
	if !ok {
		err := ErrNotFound{Entity: EntityMember, ID: memberID}
		done(err)
		return blob.Info{}, nil, err
	}
	if member.PhotoRef == nil {
		err := fmt.Errorf("member %s has no photo", memberID)
		done(err)
		return blob.Info{}, nil, err
	}
	info, rc, err := s.photos.Get(ctx, *member.PhotoRef)
	done(err)
	return info, rc, err
}

func memberName(view TransactionView, memberID string) string {
	if member, ok := view.FindMember(memberID); ok {
		return member.DisplayName()
	}
	return "Desconocido"
}
