// Package diag implements the diagnostic sink described in spec §7: a
// stderr-equivalent destination for warnings that must not flood the user
// when a malformed or unusual object file repeats the same problem across
// thousands of DIEs (one warning per distinct unsupported tag, for
// instance).
package diag

import (
	"context"
	"log/slog"
	"os"
	"sync"

	slogmulti "github.com/samber/slog-multi"
)

// Kind classifies a diagnostic per the error taxonomy in spec §7. OutOfMemory
// and the two Fatal kinds are not expected to flow through Sink.Warn (they
// propagate as Go errors instead); the sink only carries the recoverable
// kinds.
type Kind string

const (
	KindUnsupportedTag        Kind = "unsupported_tag"
	KindMalformedExpression   Kind = "malformed_expression"
	KindDanglingReference     Kind = "dangling_reference"
	KindSecondTopLevelSibling Kind = "second_top_level_sibling"
	KindEmptyInlineRange      Kind = "empty_inline_range"
)

// Sink is a rate-limited, slog-backed diagnostics destination. Each distinct
// (kind, key) pair is logged at most once; repeats are counted and available
// via Counts for a final summary line.
type Sink struct {
	logger *slog.Logger
	ring   *ringHandler

	mu     sync.Mutex
	seen   map[string]int
	strict bool
}

// New creates a Sink that fans out to stderr text output and an in-memory
// ring buffer (read back through Dump, which pkg/dwarf/load copies into
// Result.Diagnostics), mirroring the way the
// teacher wires multiple slog handlers through slog-multi.
func New(strict bool) *Sink {
	ring := newRingHandler(256)
	handler := slogmulti.Fanout(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}),
		ring,
	)

	return &Sink{
		logger: slog.New(handler),
		ring:   ring,
		seen:   make(map[string]int),
		strict: strict,
	}
}

// Strict reports whether the sink was created in strict mode (see spec §9's
// open questions and SPEC_FULL.md §3 for the behaviors this gates).
func (s *Sink) Strict() bool {
	return s.strict
}

// Warn logs a diagnostic once per distinct (kind, key); subsequent calls
// with the same pair only bump the repeat counter.
func (s *Sink) Warn(kind Kind, key string, msg string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rateKey := string(kind) + "\x00" + key
	count := s.seen[rateKey]
	s.seen[rateKey] = count + 1

	if count > 0 {
		return
	}

	s.logger.Warn(msg, append([]any{"kind", string(kind), "key", key}, args...)...)
}

// Counts returns the number of times each distinct (kind, key) diagnostic
// was raised, including the suppressed repeats.
func (s *Sink) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int, len(s.seen))
	for k, v := range s.seen {
		out[k] = v
	}
	return out
}

// Dump returns every distinct diagnostic line captured in the in-memory
// ring buffer, oldest first.
func (s *Sink) Dump() []string {
	return s.ring.lines()
}

// ringHandler is a minimal slog.Handler that keeps the last n formatted
// records in memory, for Sink.Dump.
type ringHandler struct {
	mu  sync.Mutex
	buf []string
	cap int
}

func newRingHandler(capacity int) *ringHandler {
	return &ringHandler{cap: capacity}
}

func (h *ringHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *ringHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	line := r.Message
	r.Attrs(func(a slog.Attr) bool {
		line += " " + a.Key + "=" + a.Value.String()
		return true
	})

	h.buf = append(h.buf, line)
	if len(h.buf) > h.cap {
		h.buf = h.buf[len(h.buf)-h.cap:]
	}
	return nil
}

func (h *ringHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *ringHandler) WithGroup(name string) slog.Handler       { return h }

func (h *ringHandler) lines() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]string, len(h.buf))
	copy(out, h.buf)
	return out
}
