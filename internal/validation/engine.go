// Package validation computes the gap list for a ticket field snapshot.
package validation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/spec-kit/locate-service/internal/domain"
)

// MinPhoneDigits is the shortest acceptable phone number once
// punctuation is stripped.
const MinPhoneDigits = 10

// RequiredFields must be present and non-blank, in declaration order.
var RequiredFields = []domain.FieldName{
	domain.FieldCompany,
	domain.FieldContactName,
	domain.FieldPhone,
	domain.FieldTypeOfWork,
	domain.FieldCounty,
	domain.FieldCity,
	domain.FieldWorkAreaDescription,
}

// Region is the serviced bounding box.
type Region struct {
	Name   string
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// Contains reports whether c lies inside the box, edges included.
func (r Region) Contains(c domain.Coordinate) bool {
	return c.Lat >= r.MinLat && c.Lat <= r.MaxLat && c.Lng >= r.MinLng && c.Lng <= r.MaxLng
}

// Options tunes the rule table.
type Options struct {
	// Region enables the out-of-region warning when non-nil.
	Region *Region
	// ConfidenceFloor flags geometry below this confidence. Zero disables.
	ConfidenceFloor float64
}

type rule func(f domain.Fields) []domain.ValidationGap

// Engine evaluates the static rule table. It holds no mutable state
// and is safe for concurrent use.
type Engine struct {
	opts  Options
	rules []rule
}

// NewEngine builds the rule table.
func NewEngine(opts Options) *Engine {
	e := &Engine{opts: opts}
	for _, field := range RequiredFields {
		e.rules = append(e.rules, requiredPresence(field))
	}
	e.rules = append(e.rules,
		locationSufficiency,
		emergencyJustification,
		phoneFormat,
		emailFormat,
		e.regionSanity,
		e.geometryConfidence,
	)
	return e
}

// Validate returns the ordered gaps for f: required before recommended
// before warning, and rule table order within a severity.
func (e *Engine) Validate(f domain.Fields) []domain.ValidationGap {
	gaps := []domain.ValidationGap{}
	for _, r := range e.rules {
		gaps = append(gaps, r(f)...)
	}
	sort.SliceStable(gaps, func(i, j int) bool {
		return gaps[i].Severity.Rank() < gaps[j].Severity.Rank()
	})
	return gaps
}

// CheckInput rejects values that are malformed rather than merely
// incomplete. Only set fields are inspected.
func (e *Engine) CheckInput(f domain.Fields) error {
	if c, ok := f.GPS.Get(); ok && !c.InRange() {
		return &domain.InputRejection{
			Field:  domain.FieldGPS,
			Reason: fmt.Sprintf("coordinate (%g, %g) outside [-90,90] x [-180,180]", c.Lat, c.Lng),
		}
	}
	if g, ok := f.Geometry.Get(); ok {
		if g.Point != nil && !g.Point.InRange() {
			return &domain.InputRejection{Field: domain.FieldGeometry, Reason: "geometry point out of range"}
		}
		if g.Confidence < 0 || g.Confidence > 1 {
			return &domain.InputRejection{Field: domain.FieldGeometry, Reason: "confidence must be within [0,1]"}
		}
	}
	if t, ok := f.TicketType.Get(); ok && !t.Valid() {
		return &domain.InputRejection{
			Field:  domain.FieldTicketType,
			Reason: fmt.Sprintf("unknown ticket type %q", t),
		}
	}
	return nil
}

func newGap(field domain.FieldName, problem domain.ProblemCode, severity domain.Severity, suggested ...string) domain.ValidationGap {
	return domain.ValidationGap{
		Field:           field,
		Problem:         problem,
		Severity:        severity,
		SuggestedPrompt: Prompt(field, problem),
		SuggestedValues: suggested,
	}
}

func present(f domain.Fields, field domain.FieldName) bool {
	v, ok := f.Text(field)
	return ok && v != ""
}

func requiredPresence(field domain.FieldName) rule {
	return func(f domain.Fields) []domain.ValidationGap {
		if present(f, field) {
			return nil
		}
		return []domain.ValidationGap{newGap(field, domain.ProblemFieldMissing, domain.SeverityRequired)}
	}
}

func locationSufficiency(f domain.Fields) []domain.ValidationGap {
	if present(f, domain.FieldAddress) {
		return nil
	}
	if c, ok := f.GPS.Get(); ok && c.InRange() {
		return nil
	}
	return []domain.ValidationGap{newGap(domain.FieldAddress, domain.ProblemAddressOrGPSRequired, domain.SeverityRequired)}
}

func emergencyJustification(f domain.Fields) []domain.ValidationGap {
	if t, ok := f.TicketType.Get(); !ok || t != domain.TicketTypeEmergency {
		return nil
	}
	if present(f, domain.FieldEmergencyJustification) {
		return nil
	}
	return []domain.ValidationGap{newGap(domain.FieldEmergencyJustification, domain.ProblemJustificationRequired, domain.SeverityRequired)}
}

// NormalizePhone strips everything but digits.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)
}

func phoneFormat(f domain.Fields) []domain.ValidationGap {
	phone, ok := f.Text(domain.FieldPhone)
	if !ok || phone == "" {
		return nil
	}
	if len(NormalizePhone(phone)) >= MinPhoneDigits {
		return nil
	}
	return []domain.ValidationGap{newGap(domain.FieldPhone, domain.ProblemInvalidFormat, domain.SeverityRequired)}
}

func emailFormat(f domain.Fields) []domain.ValidationGap {
	email, ok := f.Text(domain.FieldEmail)
	if !ok || email == "" || strings.Contains(email, "@") {
		return nil
	}
	return []domain.ValidationGap{newGap(domain.FieldEmail, domain.ProblemInvalidFormat, domain.SeverityRecommended)}
}

func (e *Engine) regionSanity(f domain.Fields) []domain.ValidationGap {
	if e.opts.Region == nil {
		return nil
	}
	c, ok := f.GPS.Get()
	if !ok || !c.InRange() || e.opts.Region.Contains(c) {
		return nil
	}
	return []domain.ValidationGap{newGap(domain.FieldGPS, domain.ProblemOutOfRegion, domain.SeverityWarning, e.regionSuggestions(c)...)}
}

// regionSuggestions offers the common extraction slips (swapped axes,
// dropped minus sign) that would land the point inside the region.
func (e *Engine) regionSuggestions(c domain.Coordinate) []string {
	candidates := []domain.Coordinate{
		{Lat: c.Lng, Lng: c.Lat},
		{Lat: c.Lat, Lng: -c.Lng},
		{Lat: c.Lng, Lng: -c.Lat},
	}
	var out []string
	for _, cand := range candidates {
		if cand.InRange() && e.opts.Region.Contains(cand) {
			out = append(out, formatCoordinate(cand))
		}
	}
	return out
}

func formatCoordinate(c domain.Coordinate) string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}

func (e *Engine) geometryConfidence(f domain.Fields) []domain.ValidationGap {
	if e.opts.ConfidenceFloor <= 0 {
		return nil
	}
	g, ok := f.Geometry.Get()
	if !ok || g.Confidence >= e.opts.ConfidenceFloor {
		return nil
	}
	return []domain.ValidationGap{newGap(domain.FieldGeometry, domain.ProblemLowConfidence, domain.SeverityWarning)}
}
