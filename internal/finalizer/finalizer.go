// Package finalizer reconstructs a single finalized message from streamed
// harness events: metadata from message.updated and incremental text parts
// that may arrive out of order and split across many packets. A per-id
// debounce timer coalesces bursts; each id is flushed to the sink at most
// once.
package finalizer

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dxta-dev/clankers/internal/types"
)

// DefaultDebounce is the quiet interval before a staged message is
// finalized. Long enough to coalesce part bursts, short enough to stay
// under interactive latency. Tunable.
const DefaultDebounce = 800 * time.Millisecond

// Metadata is the message-level information staged from a harness
// message.updated event.
type Metadata struct {
	ID               string
	SessionID        string
	Role             string
	Model            string
	Source           string
	PromptTokens     int64
	CompletionTokens int64
	DurationMs       int64
	CreatedAt        int64
	CompletedAt      int64
}

// Part is one streamed message part. Only text parts are staged; other
// part types (tool calls, images) are discarded here.
type Part struct {
	Type      string
	MessageID string
	SessionID string
	Text      string
}

// Sink receives the finalized message. Typically it forwards to
// rpc.Client.UpsertMessage.
type Sink func(msg types.Message)

// Finalizer holds the staging state for one adapter process.
type Finalizer struct {
	mu        sync.Mutex
	metadata  map[string]Metadata
	partsText map[string]string
	timers    map[string]*time.Timer
	gens      map[string]uint64
	finalized map[string]struct{}
	debounce  time.Duration
	sink      Sink
	closed    bool
}

// Option configures a Finalizer.
type Option func(*Finalizer)

// WithDebounce overrides the debounce window. Tests shrink it.
func WithDebounce(d time.Duration) Option {
	return func(f *Finalizer) { f.debounce = d }
}

// New creates a finalizer flushing into sink.
func New(sink Sink, opts ...Option) *Finalizer {
	f := &Finalizer{
		metadata:  make(map[string]Metadata),
		partsText: make(map[string]string),
		timers:    make(map[string]*time.Timer),
		gens:      make(map[string]uint64),
		finalized: make(map[string]struct{}),
		debounce:  DefaultDebounce,
		sink:      sink,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// StageMetadata upserts the metadata entry for a message id.
func (f *Finalizer) StageMetadata(meta Metadata) error {
	if meta.ID == "" {
		return fmt.Errorf("stage metadata: missing message id")
	}
	if meta.SessionID == "" {
		return fmt.Errorf("stage metadata: missing session id")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metadata[meta.ID] = meta
	return nil
}

// StagePart records a streamed part. Text parts replace any previously
// staged text for the id (latest wins); everything else is dropped. A
// metadata entry is created with role "unknown" when the part arrives
// before its message.updated event.
func (f *Finalizer) StagePart(part Part) {
	if part.Type != "text" || part.MessageID == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.partsText[part.MessageID] = part.Text
	if _, ok := f.metadata[part.MessageID]; !ok {
		f.metadata[part.MessageID] = Metadata{
			ID:        part.MessageID,
			SessionID: part.SessionID,
			Role:      types.RoleUnknown,
		}
	}
}

// ScheduleFinalize (re)arms the debounce timer for id. The latest schedule
// wins: any pending timer is canceled, and the generation counter
// invalidates a timer callback that already fired and is waiting on the
// lock.
func (f *Finalizer) ScheduleFinalize(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	if _, done := f.finalized[id]; done {
		return
	}
	if t, ok := f.timers[id]; ok {
		t.Stop()
	}
	f.gens[id]++
	gen := f.gens[id]
	f.timers[id] = time.AfterFunc(f.debounce, func() {
		f.finalize(id, gen)
	})
}

// finalize flushes id to the sink if both metadata and non-blank text have
// been staged. Ids missing either stay staged; a later event can
// re-schedule. Each id flushes at most once. A callback whose generation
// has been superseded by a newer ScheduleFinalize is a no-op.
func (f *Finalizer) finalize(id string, gen uint64) {
	f.mu.Lock()
	if f.closed || f.gens[id] != gen {
		f.mu.Unlock()
		return
	}
	delete(f.timers, id)

	if _, done := f.finalized[id]; done {
		f.mu.Unlock()
		return
	}
	meta, haveMeta := f.metadata[id]
	text, haveText := f.partsText[id]
	if !haveMeta || !haveText || strings.TrimSpace(text) == "" {
		f.mu.Unlock()
		return
	}

	role := meta.Role
	if role == "" || role == types.RoleUnknown {
		role = InferRole(text)
	}

	msg := types.Message{
		ID:               id,
		SessionID:        meta.SessionID,
		Role:             role,
		TextContent:      text,
		Model:            meta.Model,
		Source:           meta.Source,
		PromptTokens:     meta.PromptTokens,
		CompletionTokens: meta.CompletionTokens,
		DurationMs:       meta.DurationMs,
		CreatedAt:        meta.CreatedAt,
		CompletedAt:      meta.CompletedAt,
	}

	f.finalized[id] = struct{}{}
	delete(f.metadata, id)
	delete(f.partsText, id)
	delete(f.gens, id)
	sink := f.sink
	f.mu.Unlock()

	// Sink runs outside the lock; it does RPC.
	if sink != nil {
		sink(msg)
	}
}

// Close cancels all pending timers. Staged but unfinalized messages are
// dropped; the process owns no durability for them.
func (f *Finalizer) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for id, t := range f.timers {
		t.Stop()
		delete(f.timers, id)
	}
}

// Pending returns the number of ids staged but not yet finalized. Used by
// adapters for shutdown diagnostics.
func (f *Finalizer) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.partsText)
}
