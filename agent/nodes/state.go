// Package nodes holds the per-request pipeline state and the node
// functions the chat graph is assembled from.
package nodes

import (
	contractx "github.com/showeasy/concierge/agent/contract"
	"github.com/showeasy/concierge/agent/variant"
)

// State is the payload threaded through the chat graph for one
// request. It is owned by that request and discarded with it.
type State struct {
	SessionID   string
	UserID      string
	Message     string
	PageContext string

	// Assignments maps module name to the experiment arm pinned for
	// this caller.
	Assignments map[string]variant.Variant

	Bundle        contractx.ContextBundle
	Verdict       contractx.InputVerdict
	AgentResponse contractx.AgentResponse
	FinalReply    string
}

func (s *State) variantFor(module string) variant.Variant {
	if v, ok := s.Assignments[module]; ok {
		return v
	}
	return variant.Control
}
