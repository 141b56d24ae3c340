package validation

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/locate-service/internal/domain"
)

var texas = &Region{Name: "TX", MinLat: 25.84, MaxLat: 36.5, MinLng: -106.65, MaxLng: -93.51}

func testEngine() *Engine {
	return NewEngine(Options{Region: texas, ConfidenceFloor: 0.5})
}

func completeFields() domain.Fields {
	return domain.Fields{
		Company:             domain.Set("ABC Co"),
		ContactName:         domain.Set("Dana Reyes"),
		Phone:               domain.Set("(512) 555-0142"),
		TypeOfWork:          domain.Set("Install fiber conduit"),
		County:              domain.Set("Travis"),
		City:                domain.Set("Austin"),
		WorkAreaDescription: domain.Set("Mark 25ft around the pedestal in the front yard"),
		Address:             domain.Set("1200 Barton Springs Rd"),
	}
}

func problems(gaps []domain.ValidationGap) []string {
	out := make([]string, 0, len(gaps))
	for _, g := range gaps {
		out = append(out, string(g.Field)+":"+string(g.Problem)+":"+string(g.Severity))
	}
	return out
}

func TestValidate_CompanyOnly(t *testing.T) {
	gaps := testEngine().Validate(domain.Fields{Company: domain.Set("ABC Co")})

	assert.Equal(t, []string{
		"contact_name:field_missing:required",
		"phone:field_missing:required",
		"type_of_work:field_missing:required",
		"county:field_missing:required",
		"city:field_missing:required",
		"work_area_description:field_missing:required",
		"address:address_or_gps_required:required",
	}, problems(gaps))

	counts := domain.CountBySeverity(gaps)
	assert.Equal(t, 0, counts[domain.SeverityRecommended])
	assert.Equal(t, 0, counts[domain.SeverityWarning])
	for _, g := range gaps {
		assert.NotEmpty(t, g.SuggestedPrompt)
		assert.NotContains(t, g.SuggestedPrompt, "<")
	}
}

func TestValidate_CompleteSnapshotHasNoGaps(t *testing.T) {
	assert.Empty(t, testEngine().Validate(completeFields()))
}

func TestValidate_ShortPhone(t *testing.T) {
	f := completeFields()
	f.Phone = domain.Set("555-123")

	gaps := testEngine().Validate(f)
	require.Len(t, gaps, 1)
	assert.Equal(t, domain.FieldPhone, gaps[0].Field)
	assert.Equal(t, domain.ProblemInvalidFormat, gaps[0].Problem)
	assert.Equal(t, domain.SeverityRequired, gaps[0].Severity)
}

func TestValidate_BlankAndNullCountAsMissing(t *testing.T) {
	f := completeFields()
	f.City = domain.Set("   ")
	f.County = domain.Null[string]()

	gaps := testEngine().Validate(f)
	assert.Equal(t, []string{
		"county:field_missing:required",
		"city:field_missing:required",
	}, problems(gaps))
}

func TestValidate_GPSSatisfiesLocation(t *testing.T) {
	f := completeFields()
	f.Address = domain.Field[string]{}
	assert.Equal(t, []string{"address:address_or_gps_required:required"}, problems(testEngine().Validate(f)))

	f.GPS = domain.Set(domain.Coordinate{Lat: 30.26, Lng: -97.75})
	assert.Empty(t, testEngine().Validate(f))
}

func TestValidate_EmergencyNeedsJustification(t *testing.T) {
	f := completeFields()
	f.TicketType = domain.Set(domain.TicketTypeEmergency)
	assert.Equal(t, []string{"emergency_justification:justification_required:required"}, problems(testEngine().Validate(f)))

	f.EmergencyJustification = domain.Set("Gas main leak reported by utility")
	assert.Empty(t, testEngine().Validate(f))

	f.TicketType = domain.Set(domain.TicketTypeNormal)
	f.EmergencyJustification = domain.Field[string]{}
	assert.Empty(t, testEngine().Validate(f))
}

func TestValidate_EmailIsRecommended(t *testing.T) {
	f := completeFields()
	f.Email = domain.Set("dana.example.com")
	f.Phone = domain.Set("555")

	gaps := testEngine().Validate(f)
	assert.Equal(t, []string{
		"phone:invalid_format:required",
		"email:invalid_format:recommended",
	}, problems(gaps))
}

func TestValidate_OutOfRegionIsWarningWithSuggestion(t *testing.T) {
	f := completeFields()
	f.GPS = domain.Set(domain.Coordinate{Lat: 30.26, Lng: 97.75})

	gaps := testEngine().Validate(f)
	require.Len(t, gaps, 1)
	assert.Equal(t, domain.ProblemOutOfRegion, gaps[0].Problem)
	assert.Equal(t, domain.SeverityWarning, gaps[0].Severity)
	assert.Equal(t, []string{"30.26,-97.75"}, gaps[0].SuggestedValues)
	assert.False(t, domain.HasRequired(gaps))
}

func TestValidate_LowConfidenceGeometry(t *testing.T) {
	f := completeFields()
	f.Geometry = domain.Set(domain.Geometry{Confidence: 0.2})
	assert.Equal(t, []string{"geometry:low_confidence:warning"}, problems(testEngine().Validate(f)))

	f.Geometry = domain.Set(domain.Geometry{Confidence: 0.9})
	assert.Empty(t, testEngine().Validate(f))
}

func TestValidate_SeverityOrdering(t *testing.T) {
	f := domain.Fields{
		Email: domain.Set("nobody"),
		GPS:   domain.Set(domain.Coordinate{Lat: 47.6, Lng: -122.3}),
	}
	gaps := testEngine().Validate(f)
	require.NotEmpty(t, gaps)
	for i := 1; i < len(gaps); i++ {
		assert.LessOrEqual(t, gaps[i-1].Severity.Rank(), gaps[i].Severity.Rank())
	}
	assert.Equal(t, domain.SeverityWarning, gaps[len(gaps)-1].Severity)
}

func TestCheckInput(t *testing.T) {
	e := testEngine()
	var rejection *domain.InputRejection

	err := e.CheckInput(domain.Fields{GPS: domain.Set(domain.Coordinate{Lat: 91, Lng: 0})})
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, domain.FieldGPS, rejection.Field)

	err = e.CheckInput(domain.Fields{GPS: domain.Set(domain.Coordinate{Lat: 0, Lng: -181})})
	require.ErrorAs(t, err, &rejection)

	err = e.CheckInput(domain.Fields{TicketType: domain.Set(domain.TicketType("Routine"))})
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, domain.FieldTicketType, rejection.Field)

	err = e.CheckInput(domain.Fields{Geometry: domain.Set(domain.Geometry{Confidence: 1.5})})
	require.ErrorAs(t, err, &rejection)

	assert.NoError(t, e.CheckInput(completeFields()))
	assert.NoError(t, e.CheckInput(domain.Fields{GPS: domain.Null[domain.Coordinate]()}))
}

func TestValidate_FixRemovesOnlyItsGap(t *testing.T) {
	e := testEngine()
	fixes := map[domain.FieldName]func(*domain.Fields){
		domain.FieldCompany:             func(f *domain.Fields) { f.Company = domain.Set("ABC Co") },
		domain.FieldContactName:         func(f *domain.Fields) { f.ContactName = domain.Set("Dana") },
		domain.FieldPhone:               func(f *domain.Fields) { f.Phone = domain.Set("512-555-0142") },
		domain.FieldTypeOfWork:          func(f *domain.Fields) { f.TypeOfWork = domain.Set("Fence posts") },
		domain.FieldCounty:              func(f *domain.Fields) { f.County = domain.Set("Travis") },
		domain.FieldCity:                func(f *domain.Fields) { f.City = domain.Set("Austin") },
		domain.FieldWorkAreaDescription: func(f *domain.Fields) { f.WorkAreaDescription = domain.Set("Back lot line") },
		domain.FieldAddress:             func(f *domain.Fields) { f.Address = domain.Set("1 Main St") },
	}

	before := e.Validate(domain.Fields{Email: domain.Set("bad")})
	for field, fix := range fixes {
		f := domain.Fields{Email: domain.Set("bad")}
		fix(&f)
		after := e.Validate(f)

		var expected []domain.ValidationGap
		for _, g := range before {
			if g.Field != field {
				expected = append(expected, g)
			}
		}
		assert.Equal(t, expected, after, "fixing %s", field)
	}
}

func TestValidateIsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	e := testEngine()

	optional := func(values ...string) gopter.Gen {
		return gen.OneConstOf(append([]interface{}{"<absent>", "<null>"}, toIface(values)...)...)
	}
	field := func(s string) domain.Field[string] {
		switch s {
		case "<absent>":
			return domain.Field[string]{}
		case "<null>":
			return domain.Null[string]()
		default:
			return domain.Set(s)
		}
	}

	properties.Property("validate twice yields identical gaps", prop.ForAll(
		func(company, phone, email, city string, lat, lng float64) bool {
			f := domain.Fields{
				Company: field(company),
				Phone:   field(phone),
				Email:   field(email),
				City:    field(city),
				GPS:     domain.Set(domain.Coordinate{Lat: lat, Lng: lng}),
			}
			first := e.Validate(f)
			second := e.Validate(f)
			if len(first) != len(second) {
				return false
			}
			for i := range first {
				if first[i].Field != second[i].Field || first[i].Problem != second[i].Problem ||
					first[i].Severity != second[i].Severity || first[i].SuggestedPrompt != second[i].SuggestedPrompt {
					return false
				}
			}
			return true
		},
		optional("ABC Co", " "),
		optional("555-123", "512-555-0142", ""),
		optional("a@b.co", "nope"),
		optional("Austin", ""),
		gen.Float64Range(-90, 90),
		gen.Float64Range(-180, 180),
	))

	properties.TestingRun(t)
}

func toIface(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
