// Package compliance derives the statutory dates of a locate ticket.
package compliance

import (
	"time"

	"github.com/spec-kit/locate-service/internal/businessday"
)

const (
	DefaultWaitBusinessDays = 2
	DefaultValidityDays     = 14
	DefaultExpiringWindow   = 72 * time.Hour
)

// Policy holds the statutory intervals.
type Policy struct {
	// WaitBusinessDays is the mandatory wait between request and dig.
	WaitBusinessDays int
	// ValidityDays is the calendar-day life of a ticket and its markings
	// after positive response.
	ValidityDays int
	// ExpiringWindow is how long before expiration a ticket reads as
	// expiring.
	ExpiringWindow time.Duration
}

// DefaultPolicy returns the standard two business day wait and
// fourteen day validity.
func DefaultPolicy() Policy {
	return Policy{
		WaitBusinessDays: DefaultWaitBusinessDays,
		ValidityDays:     DefaultValidityDays,
		ExpiringWindow:   DefaultExpiringWindow,
	}
}

// Expiration holds the dates derived from a positive response.
type Expiration struct {
	ExpiresAt         time.Time
	MarkingValidUntil time.Time
}

// Deriver computes compliance dates against a holiday calendar.
type Deriver struct {
	calendar businessday.Calendar
	policy   Policy
}

// NewDeriver builds a deriver. Non-positive policy values fall back to
// the defaults.
func NewDeriver(calendar businessday.Calendar, policy Policy) *Deriver {
	if policy.WaitBusinessDays <= 0 {
		policy.WaitBusinessDays = DefaultWaitBusinessDays
	}
	if policy.ValidityDays <= 0 {
		policy.ValidityDays = DefaultValidityDays
	}
	if policy.ExpiringWindow <= 0 {
		policy.ExpiringWindow = DefaultExpiringWindow
	}
	return &Deriver{calendar: calendar, policy: policy}
}

// Policy returns the effective intervals.
func (d *Deriver) Policy() Policy {
	return d.policy
}

// Calendar returns the holiday calendar in use.
func (d *Deriver) Calendar() businessday.Calendar {
	return d.calendar
}

// DeriveStartDate returns the earliest lawful start for a request.
func (d *Deriver) DeriveStartDate(requestedAt time.Time) time.Time {
	return businessday.AddBusinessDays(requestedAt, d.policy.WaitBusinessDays, d.calendar)
}

// DeriveExpiration returns the ticket and marking expiry, both a plain
// calendar interval after the positive response.
func (d *Deriver) DeriveExpiration(positiveResponseAt time.Time) Expiration {
	expires := positiveResponseAt.AddDate(0, 0, d.policy.ValidityDays)
	return Expiration{ExpiresAt: expires, MarkingValidUntil: expires}
}

// StartInPast reports whether start's date, read in now's location, is
// before today.
func (d *Deriver) StartInPast(start, now time.Time) bool {
	return businessday.DateOf(start.In(now.Location())).Before(businessday.DateOf(now))
}

// Expired reports whether now has reached expiresAt.
func (d *Deriver) Expired(expiresAt, now time.Time) bool {
	return !now.Before(expiresAt)
}

// Expiring reports whether now is inside the warning window before
// expiresAt but not yet expired.
func (d *Deriver) Expiring(expiresAt, now time.Time) bool {
	return !d.Expired(expiresAt, now) && expiresAt.Sub(now) <= d.policy.ExpiringWindow
}

// DaysUntil is the signed calendar-day countdown from now to target.
func (d *Deriver) DaysUntil(target, now time.Time) int {
	return businessday.DaysBetween(now, target.In(now.Location()))
}
