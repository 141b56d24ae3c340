package domain

import (
	"slices"
	"strings"
)

// FieldName identifies one entry of the ticket field snapshot.
type FieldName string

const (
	FieldCompany                FieldName = "company"
	FieldContactName            FieldName = "contact_name"
	FieldPhone                  FieldName = "phone"
	FieldEmail                  FieldName = "email"
	FieldTypeOfWork             FieldName = "type_of_work"
	FieldWorkFor                FieldName = "work_for"
	FieldTicketType             FieldName = "ticket_type"
	FieldEmergencyJustification FieldName = "emergency_justification"
	FieldExplosives             FieldName = "explosives"
	FieldWhitePaint             FieldName = "white_paint"
	FieldCounty                 FieldName = "county"
	FieldCity                   FieldName = "city"
	FieldAddress                FieldName = "address"
	FieldCrossStreet            FieldName = "cross_street"
	FieldWorkAreaDescription    FieldName = "work_area_description"
	FieldGPS                    FieldName = "gps"
	FieldGeometry               FieldName = "geometry"
)

// TicketType is the locate request classification.
type TicketType string

const (
	TicketTypeNormal    TicketType = "Normal"
	TicketTypeEmergency TicketType = "Emergency"
	TicketTypeUpdate    TicketType = "Update"
)

// Valid reports whether t is one of the declared classifications.
func (t TicketType) Valid() bool {
	switch t {
	case TicketTypeNormal, TicketTypeEmergency, TicketTypeUpdate:
		return true
	}
	return false
}

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// InRange reports whether the coordinate is a structurally valid point.
func (c Coordinate) InRange() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Geometry is the enrichment-derived shape of the dig site.
type Geometry struct {
	Point       *Coordinate `json:"point,omitempty"`
	Confidence  float64     `json:"confidence"`
	Assumptions []string    `json:"assumptions,omitempty"`
	Warnings    []string    `json:"warnings,omitempty"`
	Parcel      *Parcel     `json:"parcel,omitempty"`
}

// Parcel holds the attributes a parcel lookup attached to the site.
type Parcel struct {
	ParcelID string  `json:"parcel_id,omitempty"`
	Owner    string  `json:"owner,omitempty"`
	Acreage  float64 `json:"acreage,omitempty"`
}

func (g Geometry) clone() Geometry {
	out := g
	if g.Point != nil {
		p := *g.Point
		out.Point = &p
	}
	if g.Parcel != nil {
		p := *g.Parcel
		out.Parcel = &p
	}
	out.Assumptions = slices.Clone(g.Assumptions)
	out.Warnings = slices.Clone(g.Warnings)
	return out
}

func geometryEqual(a, b Geometry) bool {
	if (a.Point == nil) != (b.Point == nil) || (a.Parcel == nil) != (b.Parcel == nil) {
		return false
	}
	if a.Point != nil && *a.Point != *b.Point {
		return false
	}
	if a.Parcel != nil && *a.Parcel != *b.Parcel {
		return false
	}
	return a.Confidence == b.Confidence &&
		slices.Equal(a.Assumptions, b.Assumptions) &&
		slices.Equal(a.Warnings, b.Warnings)
}

// Fields is the progressive field snapshot of a ticket. Partial updates
// use the same shape: absent entries leave the target untouched.
type Fields struct {
	Company                Field[string]     `json:"company,omitzero"`
	ContactName            Field[string]     `json:"contact_name,omitzero"`
	Phone                  Field[string]     `json:"phone,omitzero"`
	Email                  Field[string]     `json:"email,omitzero"`
	TypeOfWork             Field[string]     `json:"type_of_work,omitzero"`
	WorkFor                Field[string]     `json:"work_for,omitzero"`
	TicketType             Field[TicketType] `json:"ticket_type,omitzero"`
	EmergencyJustification Field[string]     `json:"emergency_justification,omitzero"`
	Explosives             Field[bool]       `json:"explosives,omitzero"`
	WhitePaint             Field[bool]       `json:"white_paint,omitzero"`
	County                 Field[string]     `json:"county,omitzero"`
	City                   Field[string]     `json:"city,omitzero"`
	Address                Field[string]     `json:"address,omitzero"`
	CrossStreet            Field[string]     `json:"cross_street,omitzero"`
	WorkAreaDescription    Field[string]     `json:"work_area_description,omitzero"`
	GPS                    Field[Coordinate] `json:"gps,omitzero"`
	Geometry               Field[Geometry]   `json:"geometry,omitzero"`
}

// Text returns a string field by name, trimmed. Unknown names and
// non-string fields report false.
func (f Fields) Text(name FieldName) (string, bool) {
	var field Field[string]
	switch name {
	case FieldCompany:
		field = f.Company
	case FieldContactName:
		field = f.ContactName
	case FieldPhone:
		field = f.Phone
	case FieldEmail:
		field = f.Email
	case FieldTypeOfWork:
		field = f.TypeOfWork
	case FieldWorkFor:
		field = f.WorkFor
	case FieldEmergencyJustification:
		field = f.EmergencyJustification
	case FieldCounty:
		field = f.County
	case FieldCity:
		field = f.City
	case FieldAddress:
		field = f.Address
	case FieldCrossStreet:
		field = f.CrossStreet
	case FieldWorkAreaDescription:
		field = f.WorkAreaDescription
	default:
		return "", false
	}
	v, ok := field.Get()
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// Clone returns a deep copy.
func (f Fields) Clone() Fields {
	out := f
	if g, ok := f.Geometry.Get(); ok {
		out.Geometry = Set(g.clone())
	}
	return out
}

// Merge applies delta onto f and returns the result plus the names of
// fields whose state or value actually changed. String values are
// trimmed on the way in.
func (f Fields) Merge(delta Fields) (Fields, []FieldName) {
	out := f.Clone()
	var changed []FieldName

	mergeText(&out.Company, delta.Company, FieldCompany, &changed)
	mergeText(&out.ContactName, delta.ContactName, FieldContactName, &changed)
	mergeText(&out.Phone, delta.Phone, FieldPhone, &changed)
	mergeText(&out.Email, delta.Email, FieldEmail, &changed)
	mergeText(&out.TypeOfWork, delta.TypeOfWork, FieldTypeOfWork, &changed)
	mergeText(&out.WorkFor, delta.WorkFor, FieldWorkFor, &changed)
	mergeField(&out.TicketType, delta.TicketType, FieldTicketType, &changed, equal[TicketType])
	mergeText(&out.EmergencyJustification, delta.EmergencyJustification, FieldEmergencyJustification, &changed)
	mergeField(&out.Explosives, delta.Explosives, FieldExplosives, &changed, equal[bool])
	mergeField(&out.WhitePaint, delta.WhitePaint, FieldWhitePaint, &changed, equal[bool])
	mergeText(&out.County, delta.County, FieldCounty, &changed)
	mergeText(&out.City, delta.City, FieldCity, &changed)
	mergeText(&out.Address, delta.Address, FieldAddress, &changed)
	mergeText(&out.CrossStreet, delta.CrossStreet, FieldCrossStreet, &changed)
	mergeText(&out.WorkAreaDescription, delta.WorkAreaDescription, FieldWorkAreaDescription, &changed)
	mergeField(&out.GPS, delta.GPS, FieldGPS, &changed, equal[Coordinate])
	if g, ok := delta.Geometry.Get(); ok {
		mergeField(&out.Geometry, Set(g.clone()), FieldGeometry, &changed, geometryEqual)
	} else {
		mergeField(&out.Geometry, delta.Geometry, FieldGeometry, &changed, geometryEqual)
	}

	return out, changed
}

func equal[T comparable](a, b T) bool { return a == b }

func mergeText(dst *Field[string], src Field[string], name FieldName, changed *[]FieldName) {
	if v, ok := src.Get(); ok {
		src = Set(strings.TrimSpace(v))
	}
	mergeField(dst, src, name, changed, equal[string])
}

func mergeField[T any](dst *Field[T], src Field[T], name FieldName, changed *[]FieldName, eq func(a, b T) bool) {
	if src.state == FieldAbsent {
		return
	}
	same := dst.state == src.state && (src.state != FieldSet || eq(dst.value, src.value))
	*dst = src
	if !same {
		*changed = append(*changed, name)
	}
}
