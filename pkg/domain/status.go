package domain

// MemberStatus is the derived classification of a member, computed on demand
// from membership history and never persisted.
type MemberStatus string

// Derived member statuses.
const (
	StatusActive   MemberStatus = "active"
	StatusExpiring MemberStatus = "expiring"
	StatusExpired  MemberStatus = "expired"
	StatusNone     MemberStatus = "none"
)

// ExpiringWindowDays is the look-ahead used for the "expiring" classification
// and the expiring-soon aggregate.
const ExpiringWindowDays = 7

// StatusInfo is the resolved view of one member's membership position.
type StatusInfo struct {
	Status MemberStatus
	// ExpiryDate is the latest membership's end date; zero when Status is none.
	ExpiryDate Date
	// Latest is the membership the status was derived from, when one exists.
	Latest *Membership
}

// LatestMembership selects the membership with the latest end date. Ties are
// broken by CreatedAt, then ID, both descending, so the pick is deterministic.
func LatestMembership(memberships []Membership) (Membership, bool) {
	var latest Membership
	found := false
	for _, m := range memberships {
		if !found {
			latest = m
			found = true
			continue
		}
		if laterMembership(m, latest) {
			latest = m
		}
	}
	return latest, found
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

// ResolveStatus computes a member's derived status from their memberships.
// The display classification is strict: a membership ending today already
// reads as expired, while the admission window in ClassifyAdmission still
// accepts it. Both boundaries are intentional and must not be unified.
func ResolveStatus(memberships []Membership, today Date) StatusInfo {
	latest, ok := LatestMembership(memberships)
	if !ok {
		return StatusInfo{Status: StatusNone}
	}
	info := StatusInfo{ExpiryDate: latest.EndDate, Latest: &latest}
	switch {
	case !latest.EndDate.After(today):
		info.Status = StatusExpired
	case latest.EndDate.Before(today.AddDays(ExpiringWindowDays)):
		info.Status = StatusExpiring
	default:
		info.Status = StatusActive
	}
	return info
}

// InExpiringWindow reports whether a membership ends within the look-ahead
// window: strictly after today and strictly before today+7.
func InExpiringWindow(m Membership, today Date) bool {
	return m.EndDate.After(today) && m.EndDate.Before(today.AddDays(ExpiringWindowDays))
}

// IsSuperseded reports whether another active membership for the same member
// has a strictly later end date, suppressing m from expiring-soon listings.
// This filter applies to cross-member aggregates only; single-member status
// resolution already picks the latest membership.
func IsSuperseded(m Membership, all []Membership) bool {
	for _, other := range all {
		if other.MemberID != m.MemberID || other.ID == m.ID {
			continue
		}
		if other.Status == RecordActive && other.EndDate.After(m.EndDate) {
			return true
		}
	}
	return false
}

// AdmissionStatus is the outcome of one check-in attempt.
type AdmissionStatus string

// Admission outcomes.
const (
	AdmissionValid   AdmissionStatus = "valid"
	AdmissionGrace   AdmissionStatus = "grace"
	AdmissionExpired AdmissionStatus = "expired"
)

// Admission is the classification of a check-in attempt against the member's
// latest membership.
type Admission struct {
	Status AdmissionStatus
	// GraceEnd is the last day the grace window admits the member.
	GraceEnd Date
}

// CheckInTag maps an admitted classification to the immutable record tag.
func (a Admission) CheckInTag() CheckInStatus {
	if a.Status == AdmissionValid {
		return CheckInValid
	}
	return CheckInGrace
}

// ClassifyAdmission decides whether the latest membership admits a check-in
// today. A membership is valid through its full end day (EndDate >= today),
// then admitted at grace level until GraceEnd, then rejected.
func ClassifyAdmission(latest Membership, today Date, gracePeriodDays int) Admission {
	graceEnd := latest.EndDate.AddDays(gracePeriodDays)
	adm := Admission{GraceEnd: graceEnd}
	switch {
	case !latest.EndDate.Before(today):
		adm.Status = AdmissionValid
	case !graceEnd.Before(today):
		adm.Status = AdmissionGrace
	default:
		adm.Status = AdmissionExpired
	}
	return adm
}
