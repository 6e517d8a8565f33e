package contract

import "errors"

var (
	ErrValidation      = errors.New("validation failed")
	ErrSchemaViolation = errors.New("model response violates schema")

	// ErrInputRejected is returned by a strict pre-gate when the input
	// violates policy. Non-strict gates report the same condition as an
	// advisory verdict instead.
	ErrInputRejected = errors.New("input rejected by guardrail")

	// ErrOutputUnsafe is returned by a strict post-gate when the draft
	// answer cannot be made compliant.
	ErrOutputUnsafe = errors.New("output rejected by guardrail")

	ErrToolNotFound    = errors.New("tool not found")
	ErrToolInvalidArgs = errors.New("tool arguments invalid")
	ErrToolUpstream    = errors.New("tool upstream failure")

	// ErrProviderFailure means the generative provider kept failing
	// after retries. It is the only loop outcome surfaced as an error
	// rather than a degraded answer.
	ErrProviderFailure = errors.New("model provider failure")
)
