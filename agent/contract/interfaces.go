package contract

import "context"

// PreGate validates user input before any reasoning begins incurring
// model cost. In strict mode a violation is returned as an error
// wrapping ErrInputRejected instead of an advisory verdict.
type PreGate interface {
	Check(ctx context.Context, in GateInput) (InputVerdict, error)
}

// PostGate reviews and sanitizes a draft answer before delivery.
// Its verdict's Response is never empty.
type PostGate interface {
	Review(ctx context.Context, draft OutputDraft) (OutputVerdict, error)
}

// Agent runs one bounded reasoning-action-observation execution.
type Agent interface {
	Run(ctx context.Context, req AgentRequest) (AgentResponse, error)
}

// ToolGateway dispatches tool requests by name. Errors wrap
// ErrToolNotFound, ErrToolInvalidArgs or ErrToolUpstream; the loop
// converts all of them into observations rather than failures.
type ToolGateway interface {
	Execute(ctx context.Context, req ToolRequest) (ToolResult, error)
	// WriteTools lists tools with side effects that must be invoked
	// at most once per loop execution.
	WriteTools() []string
}

// TurnHistory is the short-term memory boundary: an append-only turn
// log per session with bounded recent reads.
type TurnHistory interface {
	Append(ctx context.Context, sessionID string, turns ...ConversationTurn) error
	Recent(ctx context.Context, sessionID string, rounds int) (TurnWindow, error)
}

// SemanticMemory is the long-term memory boundary. Record submits raw
// turn pairs for asynchronous extraction and is best-effort.
type SemanticMemory interface {
	Query(ctx context.Context, userID, text string, limit int) ([]MemoryFact, error)
	Record(ctx context.Context, userID string, turns []ConversationTurn) error
}
