// Package packet projects a confirmed ticket into its frozen submission
// packet.
package packet

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/gowebpki/jcs"
	"github.com/zeebo/blake3"

	"github.com/spec-kit/locate-service/internal/domain"
)

// ErrNoStartDate is returned when the ticket has no derived start date.
var ErrNoStartDate = errors.New("packet: earliest lawful start not derived")

// Build groups the ticket's fields into the four portal sections and
// stamps the result with a digest over its canonical JSON form. Absent
// optional fields are omitted; nothing else is conditional.
func Build(t *domain.Ticket, now time.Time) (*domain.SubmissionPacket, error) {
	if t.EarliestLawfulStart == nil {
		return nil, ErrNoStartDate
	}
	f := t.Fields

	p := &domain.SubmissionPacket{
		TicketID: t.ID,
		Caller: domain.PacketCaller{
			Company:     text(f.Company),
			ContactName: text(f.ContactName),
			Phone:       text(f.Phone),
			Email:       text(f.Email),
		},
		Work: domain.PacketWork{
			TypeOfWork:             text(f.TypeOfWork),
			WorkFor:                text(f.WorkFor),
			TicketType:             domain.TicketTypeNormal,
			EmergencyJustification: text(f.EmergencyJustification),
			Explosives:             flag(f.Explosives),
			WhitePaint:             flag(f.WhitePaint),
		},
		Location: domain.PacketLocation{
			County:              text(f.County),
			City:                text(f.City),
			Address:             text(f.Address),
			CrossStreet:         text(f.CrossStreet),
			WorkAreaDescription: text(f.WorkAreaDescription),
		},
		Dates: domain.PacketDates{
			RequestedAt:         t.RequestedAt,
			EarliestLawfulStart: *t.EarliestLawfulStart,
		},
		FrozenAt: now,
	}
	if tt, ok := f.TicketType.Get(); ok {
		p.Work.TicketType = tt
	}
	if c, ok := f.GPS.Get(); ok {
		p.Location.GPS = &c
	}
	if g, ok := f.Geometry.Get(); ok {
		confidence := g.Confidence
		p.Location.GeometryConfidence = &confidence
		p.Location.Assumptions = slices.Clone(g.Assumptions)
	}

	digest, err := Digest(p)
	if err != nil {
		return nil, err
	}
	p.Digest = digest
	return p, nil
}

// Digest returns the hex BLAKE3 hash of p's canonical JSON with the
// digest field itself blanked.
func Digest(p *domain.SubmissionPacket) (string, error) {
	body := *p
	body.Digest = ""
	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal packet: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize packet: %w", err)
	}
	sum := blake3.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Verify reports whether p still matches the digest it was frozen with.
func Verify(p *domain.SubmissionPacket) bool {
	if p == nil || p.Digest == "" {
		return false
	}
	digest, err := Digest(p)
	return err == nil && digest == p.Digest
}

func text(f domain.Field[string]) string {
	return f.OrZero()
}

func flag(f domain.Field[bool]) *bool {
	v, ok := f.Get()
	if !ok {
		return nil
	}
	return &v
}
