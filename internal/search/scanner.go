package search

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/pders01/chatlens/internal/chat"
	"github.com/pders01/chatlens/internal/debuglog"
)

// ChunkSize is the number of messages checked between yields.
const ChunkSize = 500

// ErrSuperseded is returned by a scan that was replaced by a newer one
// before it finished. Its results are discarded.
var ErrSuperseded = errors.New("search superseded by a newer query")

// ErrCancelled is returned by a scan stopped with Cancel, or wrapped
// around the context error when the caller's context ends.
var ErrCancelled = errors.New("search cancelled")

// ProgressFunc receives floor(processed/total*100) after every chunk.
type ProgressFunc func(percent int)

// Scanner runs chunked scans over a message slice. Only the most recent
// scan started on a Scanner is current; starting another cancels it.
type Scanner struct {
	// Prefilter, when set, narrows the messages that are checked. It must
	// have been built from the same slice that is passed to Scan.
	Prefilter Prefilter
	// Yield is called between chunks. Defaults to runtime.Gosched.
	Yield func()

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	// cancelled is the generation last stopped by Cancel.
	cancelled uint64
}

// NewScanner returns a scanner with the default yield.
func NewScanner() *Scanner {
	return &Scanner{Yield: runtime.Gosched}
}

// Begin starts a new scan generation. The previous generation's context is
// cancelled, so a scan still running on it stops at its next chunk boundary.
func (s *Scanner) Begin(parent context.Context) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	s.gen++
	s.cancel = cancel
	return ctx, s.gen
}

// Current reports whether gen is the latest generation.
func (s *Scanner) Current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

// Cancel stops the in-flight scan, if any. That scan returns ErrCancelled.
func (s *Scanner) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = s.gen
	s.stopLocked()
}

// Supersede stops the in-flight scan, if any, as if a newer scan had
// started. That scan returns ErrSuperseded.
func (s *Scanner) Supersede() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scanner) stopLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}

func (s *Scanner) finish(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == gen && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Scan starts a new generation and checks every message against terms. It
// returns matches in document order. A message that fails to process is
// logged and skipped.
func (s *Scanner) Scan(ctx context.Context, messages []*chat.Message, terms Terms, progress ProgressFunc) ([]*chat.Message, error) {
	return s.ScanWith(ctx, messages, terms, s.Prefilter, progress)
}

// ScanWith is Scan with an explicit prefilter, for callers that swap
// prefilters while scans may be running. pf may be nil.
func (s *Scanner) ScanWith(ctx context.Context, messages []*chat.Message, terms Terms, pf Prefilter, progress ProgressFunc) ([]*chat.Message, error) {
	ctx, gen := s.Begin(ctx)
	defer s.finish(gen)
	return s.run(ctx, gen, messages, terms, pf, progress)
}

func (s *Scanner) run(ctx context.Context, gen uint64, messages []*chat.Message, terms Terms, pf Prefilter, progress ProgressFunc) ([]*chat.Message, error) {
	logger := debuglog.WithFields(debuglog.Fields{"gen": gen, "terms": terms.String()})

	indices := candidates(pf, messages, terms, logger)
	total := len(messages)

	yield := s.Yield
	if yield == nil {
		yield = runtime.Gosched
	}

	// Chunks and progress are counted in message slots. With a prefilter
	// only the candidates inside each chunk are checked.
	results := make([]*chat.Message, 0)
	checked, next := 0, 0
	for start := 0; start < total; start += ChunkSize {
		if err := ctx.Err(); err != nil {
			return nil, s.stopReason(gen, err)
		}

		end := start + ChunkSize
		if end > total {
			end = total
		}
		if indices == nil {
			for i := start; i < end; i++ {
				if s.check(i, messages[i], terms, logger) {
					results = append(results, messages[i])
				}
			}
			checked += end - start
		} else {
			for ; next < len(indices) && indices[next] < end; next++ {
				idx := indices[next]
				if s.check(idx, messages[idx], terms, logger) {
					results = append(results, messages[idx])
				}
				checked++
			}
		}

		if progress != nil {
			progress(end * 100 / total)
		}
		if end < total {
			yield()
		}
	}

	if total == 0 && progress != nil {
		progress(100)
	}

	if !s.Current(gen) {
		return nil, s.stopReason(gen, context.Canceled)
	}
	if err := ctx.Err(); err != nil {
		return nil, s.stopReason(gen, err)
	}

	logger.Debugf("Scan finished: %d of %d checked messages matched", len(results), checked)
	return results, nil
}

// candidates asks the prefilter for message indices. nil means scan all.
func candidates(pf Prefilter, messages []*chat.Message, terms Terms, logger *debuglog.FieldLogger) []int {
	if pf == nil {
		return nil
	}
	if pf.Len() != len(messages) {
		logger.Warnf("Prefilter covers %d messages, scanning %d; ignoring it", pf.Len(), len(messages))
		return nil
	}
	indices, ok := pf.Candidates(terms)
	if !ok {
		logger.Debugf("Prefilter could not answer, scanning all messages")
		return nil
	}
	if indices == nil {
		indices = []int{}
	}
	logger.Debugf("Prefilter narrowed %d messages to %d candidates", len(messages), len(indices))
	return indices
}

// check runs the matcher on one message, recovering from any panic.
func (s *Scanner) check(idx int, msg *chat.Message, terms Terms, logger *debuglog.FieldLogger) (matched bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.With("index", idx).Errorf("Error processing message: %v", r)
			matched = false
		}
	}()

	ok, err := Match(msg, terms)
	if err != nil {
		logger.With("index", idx).Warnf("Error processing message: %v", err)
		return false
	}
	return ok
}

func (s *Scanner) stopReason(gen uint64, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.cancelled == gen && s.gen != gen:
		return ErrCancelled
	case s.gen != gen:
		return ErrSuperseded
	}
	return fmt.Errorf("%w: %w", ErrCancelled, err)
}
