package memory

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	contractx "github.com/showeasy/concierge/agent/contract"
)

type FaninConfig struct {
	// HistoryRounds is how many recent exchanges feed the loop.
	HistoryRounds int `envconfig:"HISTORY_ROUNDS" default:"5"`
	// FactLimit caps the long-term facts merged into the digest.
	FactLimit int `envconfig:"FACT_LIMIT" default:"5"`
	// WriteTimeout bounds the asynchronous write-back of a finished
	// exchange.
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
}

// Fanin merges short-term history and long-term facts into a single
// context bundle, and writes finished exchanges back to both stores.
type Fanin struct {
	history  contractx.TurnHistory
	semantic contractx.SemanticMemory
	cfg      FaninConfig
	writers  *pool.Pool
}

func NewFanin(history contractx.TurnHistory, semantic contractx.SemanticMemory, cfg FaninConfig) *Fanin {
	if cfg.HistoryRounds <= 0 {
		cfg.HistoryRounds = 5
	}
	if cfg.FactLimit <= 0 {
		cfg.FactLimit = 5
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	return &Fanin{
		history:  history,
		semantic: semantic,
		cfg:      cfg,
		writers:  pool.New().WithMaxGoroutines(4),
	}
}

// BuildContext loads the session window and, for identified users, the
// relevant long-term facts. A long-term failure degrades to an empty
// digest; the session window is required.
func (f *Fanin) BuildContext(ctx context.Context, sessionID, userID, message string) (contractx.ContextBundle, error) {
	window, err := f.history.Recent(ctx, sessionID, f.cfg.HistoryRounds)
	if err != nil {
		return contractx.ContextBundle{}, err
	}

	bundle := contractx.ContextBundle{Window: window}
	if userID == "" || f.semantic == nil {
		return bundle, nil
	}

	facts, err := f.semantic.Query(ctx, userID, message, f.cfg.FactLimit)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("long-term memory unavailable")
		return bundle, nil
	}
	bundle.Digest = Digest(facts)
	return bundle, nil
}

// Digest renders facts as a bullet list for prompt injection.
func Digest(facts []contractx.MemoryFact) string {
	var b strings.Builder
	for _, fact := range facts {
		text := strings.TrimSpace(fact.Text)
		if text == "" {
			continue
		}
		b.WriteString("- ")
		b.WriteString(text)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// WriteBack persists a finished exchange to both memories. The session
// append runs inline so the next request in the session sees this one;
// the long-term record is asynchronous. Failures are logged and
// swallowed; memory write-back never breaks a delivered reply.
func (f *Fanin) WriteBack(ctx context.Context, sessionID, userID string, turns ...contractx.ConversationTurn) {
	if len(turns) == 0 {
		return
	}
	// Detach from the request context so cancellation after delivery
	// does not lose the exchange.
	base := context.WithoutCancel(ctx)

	appendCtx, cancel := context.WithTimeout(base, f.cfg.WriteTimeout)
	defer cancel()
	if err := f.history.Append(appendCtx, sessionID, turns...); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("session history write failed")
	}

	if userID == "" || f.semantic == nil {
		return
	}
	f.writers.Go(func() {
		writeCtx, cancel := context.WithTimeout(base, f.cfg.WriteTimeout)
		defer cancel()
		if err := f.semantic.Record(writeCtx, userID, turns); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("long-term memory write failed")
		}
	})
}

// Close waits for in-flight write-backs to drain.
func (f *Fanin) Close() {
	f.writers.Wait()
}
