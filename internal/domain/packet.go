package domain

import "time"

// SubmissionPacket is the frozen, portal-aligned projection of a
// confirmed ticket.
type SubmissionPacket struct {
	TicketID string         `json:"ticket_id"`
	Caller   PacketCaller   `json:"caller"`
	Work     PacketWork     `json:"work"`
	Location PacketLocation `json:"location"`
	Dates    PacketDates    `json:"dates"`
	FrozenAt time.Time      `json:"frozen_at"`
	Digest   string         `json:"digest"`
}

// PacketCaller is the excavator identity section.
type PacketCaller struct {
	Company     string `json:"company"`
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone"`
	Email       string `json:"email,omitempty"`
}

// PacketWork is the work description section.
type PacketWork struct {
	TypeOfWork             string     `json:"type_of_work"`
	WorkFor                string     `json:"work_for,omitempty"`
	TicketType             TicketType `json:"ticket_type"`
	EmergencyJustification string     `json:"emergency_justification,omitempty"`
	Explosives             *bool      `json:"explosives,omitempty"`
	WhitePaint             *bool      `json:"white_paint,omitempty"`
}

// PacketLocation is the dig site section.
type PacketLocation struct {
	County              string      `json:"county"`
	City                string      `json:"city"`
	Address             string      `json:"address,omitempty"`
	CrossStreet         string      `json:"cross_street,omitempty"`
	WorkAreaDescription string      `json:"work_area_description"`
	GPS                 *Coordinate `json:"gps,omitempty"`
	GeometryConfidence  *float64    `json:"geometry_confidence,omitempty"`
	Assumptions         []string    `json:"assumptions,omitempty"`
}

// PacketDates is the compliance dates section.
type PacketDates struct {
	RequestedAt         time.Time `json:"requested_at"`
	EarliestLawfulStart time.Time `json:"earliest_lawful_start"`
}
