package flight

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/hugr-lab/nest/search"
	"github.com/hugr-lab/nest/tools"
)

// TicketData represents the decoded content of a Flight ticket.
// Tickets are JSON-encoded search requests: the filter is validated again
// when the ticket is redeemed, so a ticket never bypasses the compiler.
type TicketData struct {
	// Tool is the tool producing the stream. Only search is streamable.
	Tool string `json:"tool"`

	// Filter is the search request. Nil means an unfiltered search.
	Filter *search.FilterRequest `json:"filter,omitempty"`
}

// EncodeTicket creates an opaque ticket for a search.
func EncodeTicket(filter *search.FilterRequest) ([]byte, error) {
	data, err := json.Marshal(TicketData{Tool: tools.ToolSearch, Filter: filter})
	if err != nil {
		return nil, fmt.Errorf("failed to encode ticket: %w", err)
	}
	return data, nil
}

// DecodeTicket parses a ticket produced by EncodeTicket.
func DecodeTicket(ticketBytes []byte) (*TicketData, error) {
	if len(ticketBytes) == 0 {
		return nil, fmt.Errorf("ticket cannot be empty")
	}

	var ticket TicketData
	if err := json.Unmarshal(ticketBytes, &ticket); err != nil {
		return nil, fmt.Errorf("failed to decode ticket: %w", err)
	}
	if ticket.Tool != tools.ToolSearch {
		return nil, fmt.Errorf("ticket tool %q is not streamable", ticket.Tool)
	}
	if ticket.Filter == nil {
		ticket.Filter = &search.FilterRequest{}
	}
	return &ticket, nil
}
