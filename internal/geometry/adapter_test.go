package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/locate-service/internal/domain"
)

func TestApplyEnrichment_Success(t *testing.T) {
	f := domain.Fields{Address: domain.Set("1200 Barton Springs Rd")}
	point := &domain.Coordinate{Lat: 30.2641, Lng: -97.7713}
	r := Result{
		Point:       point,
		Confidence:  0.82,
		Assumptions: []string{"applied default 25ft box"},
		Parcel:      &domain.Parcel{ParcelID: "0101080512"},
	}

	out := ApplyEnrichment(f, r)

	g, ok := out.Geometry.Get()
	require.True(t, ok)
	assert.Equal(t, 0.82, g.Confidence)
	assert.Equal(t, []string{"applied default 25ft box"}, g.Assumptions)
	assert.Equal(t, "0101080512", g.Parcel.ParcelID)
	assert.Equal(t, "1200 Barton Springs Rd", out.Address.OrZero())

	point.Lat = 0
	r.Assumptions[0] = "mutated"
	assert.Equal(t, 30.2641, g.Point.Lat)
	assert.Equal(t, "applied default 25ft box", g.Assumptions[0])
	assert.True(t, f.Geometry.IsZero())
}

func TestApplyEnrichment_FailureClearsGeometry(t *testing.T) {
	f := domain.Fields{Geometry: domain.Set(domain.Geometry{Confidence: 0.9})}

	out := ApplyEnrichment(f, Result{Failed: true, Error: "geocoder timeout"})

	assert.True(t, out.Geometry.IsNull())
	_, ok := f.Geometry.Get()
	assert.True(t, ok)
}

func TestDelta_OnlyTouchesGeometry(t *testing.T) {
	d := Delta(Result{Confidence: 0.5})
	merged, changed := domain.Fields{City: domain.Set("Austin")}.Merge(d)
	assert.Equal(t, []domain.FieldName{domain.FieldGeometry}, changed)
	assert.Equal(t, "Austin", merged.City.OrZero())
}
