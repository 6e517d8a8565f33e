package contract

import "time"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one immutable message in a session's turn history.
type ConversationTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TurnWindow is the bounded recent slice of a session's history,
// at most 2*rounds turns, oldest first.
type TurnWindow []ConversationTurn

// MemoryFact is a durable cross-session fact owned by the long-term
// memory collaborator. The agent only ever reads ranked subsets.
type MemoryFact struct {
	UserID    string    `json:"user_id"`
	Category  string    `json:"category,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// ContextBundle is the merged short- and long-term context consumed by
// the reasoning loop. Digest may be empty when the long-term store is
// unavailable; the loop must work with an empty digest.
type ContextBundle struct {
	Window TurnWindow
	Digest string
}

// ToolRequest is a single tool selection made by the reasoning step.
type ToolRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolResult is the outcome of one tool invocation. Fields is always a
// flat map of named scalar values, never a nested blob.
type ToolResult struct {
	Tool   string         `json:"tool"`
	Fields map[string]any `json:"fields,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// TrajectoryStep is one think-act-observe triple of a loop execution.
type TrajectoryStep struct {
	Thought     string         `json:"thought,omitempty"`
	Tool        string         `json:"tool"`
	Args        map[string]any `json:"args,omitempty"`
	Observation string         `json:"observation"`
}

// Trajectory is the ordered record of one loop execution. It is owned
// exclusively by that execution and discarded with the request.
type Trajectory []TrajectoryStep

// ViolationCategory is the closed enum of gate violation kinds.
type ViolationCategory string

const (
	ViolationNone            ViolationCategory = ""
	ViolationPromptInjection ViolationCategory = "prompt_injection"
	ViolationOutOfScope      ViolationCategory = "out_of_scope"
	ViolationSafety          ViolationCategory = "safety"
	ViolationPIIRisk         ViolationCategory = "pii_risk"
	ViolationLeakage         ViolationCategory = "system_leakage"
	ViolationPricing         ViolationCategory = "pricing_integrity"
)

// GateInput is what the pre-gate evaluates before any reasoning runs.
type GateInput struct {
	Message     string
	Window      TurnWindow
	PageContext string
}

// InputVerdict is the pre-gate's decision. When Valid is false, Message
// carries the user-facing redirect for the violation category.
type InputVerdict struct {
	Valid    bool
	Category ViolationCategory
	Message  string
}

// OutputDraft is what the post-gate reviews before delivery.
type OutputDraft struct {
	Answer     string
	Query      string
	IntentHint string
}

// OutputVerdict is the post-gate's decision. Response is never empty:
// it is the original answer, a sanitized rewrite, or the safe fallback.
type OutputVerdict struct {
	Safe     bool
	Category ViolationCategory
	Response string
}

// TerminalState names how a loop execution ended.
type TerminalState string

const (
	LoopFinished     TerminalState = "finished"
	LoopStalled      TerminalState = "stalled"
	LoopLimitReached TerminalState = "iteration_limit_reached"
	LoopFailed       TerminalState = "failed"
)

// AgentRequest is the context bundle handed to one loop execution.
type AgentRequest struct {
	Message     string
	Window      TurnWindow
	Digest      string
	PageContext string
}

// AgentResponse is the outcome of one loop execution. Answer is
// non-empty for every terminal state except LoopFailed.
type AgentResponse struct {
	Answer     string
	IntentHint string
	Steps      Trajectory
	Terminal   TerminalState
}

// ChatRequest is the inbound request at the service boundary.
type ChatRequest struct {
	Message     string
	SessionID   string
	UserID      string
	PageContext string
}

// ChatReply is the service boundary response.
type ChatReply struct {
	Answer string
}
