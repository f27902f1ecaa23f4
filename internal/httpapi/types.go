// Package httpapi provides a read-only HTTP REST API over the paper
// position book and its event log.
package httpapi

import (
	"stockotter/internal/domain"
)

// PositionJSON is the JSON representation of a paper position. Money and
// quantity fields are decimal strings.
type PositionJSON struct {
	Ticker       string `json:"ticker"`
	State        string `json:"state"`
	EntryPrice   string `json:"entryPrice"`
	EntryDate    string `json:"entryDate"`
	QtyTotal     string `json:"qtyTotal"`
	QtyRemaining string `json:"qtyRemaining"`
	LastClose    string `json:"lastClose"`
	LastAsOf     string `json:"lastAsOf"`
	UpdatedAt    string `json:"updatedAt"`
	SidewaysDays int    `json:"sidewaysDays"`

	HighestClose  string `json:"highestClose,omitempty"`
	ScaleOutClose string `json:"scaleOutClose,omitempty"`
	ExitPrice     string `json:"exitPrice,omitempty"`
	ExitDate      string `json:"exitDate,omitempty"`
}

// EventJSON is the JSON representation of a lifecycle event.
type EventJSON struct {
	Ticker      string `json:"ticker"`
	EventDate   string `json:"eventDate"`
	Type        string `json:"type"`
	Price       string `json:"price"`
	Quantity    string `json:"quantity"`
	StateBefore string `json:"stateBefore"`
	StateAfter  string `json:"stateAfter"`
	Note        string `json:"note,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

// PositionsResponse lists positions.
type PositionsResponse struct {
	Positions []PositionJSON `json:"positions"`
}

// EventsResponse lists lifecycle events.
type EventsResponse struct {
	Events []EventJSON `json:"events"`
}

// SummaryResponse holds book-level counts.
type SummaryResponse struct {
	Total       int `json:"total"`
	Entered     int `json:"entered"`
	PartialExit int `json:"partialExit"`
	Exited      int `json:"exited"`
}

const (
	dateLayout = "2006-01-02"
	timeLayout = "2006-01-02T15:04:05Z07:00"
)

// convertPosition converts a domain.Position to JSON.
func convertPosition(p *domain.Position) PositionJSON {
	out := PositionJSON{
		Ticker:       p.Ticker,
		State:        string(p.State),
		EntryPrice:   p.EntryPrice.String(),
		EntryDate:    p.EntryDate.Format(dateLayout),
		QtyTotal:     p.QtyTotal.String(),
		QtyRemaining: p.QtyRemaining.String(),
		LastClose:    p.LastClose.String(),
		LastAsOf:     p.LastAsOf.Format(dateLayout),
		UpdatedAt:    p.UpdatedAt.Format(timeLayout),
		SidewaysDays: p.SidewaysDays,
	}
	if p.Trailing != nil {
		out.HighestClose = p.Trailing.HighestClose.String()
		out.ScaleOutClose = p.Trailing.ScaleOutClose.String()
	}
	if p.Exit != nil {
		out.ExitPrice = p.Exit.Price.String()
		out.ExitDate = p.Exit.Date.Format(dateLayout)
	}
	return out
}

// convertEvent converts a domain.PositionEvent to JSON.
func convertEvent(e *domain.PositionEvent) EventJSON {
	return EventJSON{
		Ticker:      e.Ticker,
		EventDate:   e.EventDate.Format(dateLayout),
		Type:        string(e.Type),
		Price:       e.Price.String(),
		Quantity:    e.Quantity.String(),
		StateBefore: string(e.StateBefore),
		StateAfter:  string(e.StateAfter),
		Note:        e.Note,
		CreatedAt:   e.CreatedAt.Format(timeLayout),
	}
}
