// Package geometry folds geocoding and parcel enrichment results into a
// ticket's geometry field. It performs no I/O.
package geometry

import (
	"slices"

	"github.com/spec-kit/locate-service/internal/domain"
)

// Result is what the external geocoding/parcel collaborator resolved.
// Failed marks an unavailable enrichment; the other fields are then
// ignored.
type Result struct {
	Failed      bool               `json:"failed"`
	Error       string             `json:"error,omitempty"`
	Point       *domain.Coordinate `json:"point,omitempty"`
	Confidence  float64            `json:"confidence"`
	Assumptions []string           `json:"assumptions,omitempty"`
	Warnings    []string           `json:"warnings,omitempty"`
	Parcel      *domain.Parcel     `json:"parcel,omitempty"`
}

// Delta is the partial update that carries r into a snapshot.
func Delta(r Result) domain.Fields {
	if r.Failed {
		return domain.Fields{Geometry: domain.Null[domain.Geometry]()}
	}
	g := domain.Geometry{
		Confidence:  r.Confidence,
		Assumptions: slices.Clone(r.Assumptions),
		Warnings:    slices.Clone(r.Warnings),
	}
	if r.Point != nil {
		p := *r.Point
		g.Point = &p
	}
	if r.Parcel != nil {
		p := *r.Parcel
		g.Parcel = &p
	}
	return domain.Fields{Geometry: domain.Set(g)}
}

// ApplyEnrichment returns f with its geometry replaced by r. A failed
// enrichment clears geometry rather than raising.
func ApplyEnrichment(f domain.Fields, r Result) domain.Fields {
	out, _ := f.Merge(Delta(r))
	return out
}
