package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/sensorsync/internal/record"
	"github.com/roach88/sensorsync/internal/source"
)

// NewestCursor is the key ScriptedSource uses for the newest-page request.
const NewestCursor = ""

// Reply is the scripted answer to one FetchPage call.
type Reply struct {
	Samples []record.RawSample
	Err     error
}

// Fetch records one FetchPage call.
type Fetch struct {
	Before  string
	Samples int
	Err     error
}

// ScriptedSource is an in-memory page source keyed by cursor.
//
// Each cursor maps to a queue of replies. A call consumes the head of the
// queue; the last reply repeats once the queue is down to one entry. A call
// for an unscripted cursor fails the fetch with an error that is neither
// unavailable nor malformed, which aborts the run and surfaces the mistake.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ScriptedSource struct {
	mu      sync.Mutex
	replies map[string][]Reply
	fetches []Fetch
}

// NewScriptedSource creates an empty scripted source.
func NewScriptedSource() *ScriptedSource {
	return &ScriptedSource{replies: make(map[string][]Reply)}
}

// Page scripts a page of samples for before.
func (s *ScriptedSource) Page(before string, samples ...record.RawSample) *ScriptedSource {
	return s.Reply(before, Reply{Samples: samples})
}

// Fail scripts an error for before.
func (s *ScriptedSource) Fail(before string, err error) *ScriptedSource {
	return s.Reply(before, Reply{Err: err})
}

// Reply appends r to the queue for before.
func (s *ScriptedSource) Reply(before string, r Reply) *ScriptedSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[before] = append(s.replies[before], r)
	return s
}

// FetchPage implements engine.Source.
func (s *ScriptedSource) FetchPage(ctx context.Context, before string) (source.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		wrapped := &source.Error{Code: source.ErrCodeSourceUnavailable, Before: before, Err: err}
		s.fetches = append(s.fetches, Fetch{Before: before, Err: wrapped})
		return source.Page{}, wrapped
	}

	queue, ok := s.replies[before]
	if !ok || len(queue) == 0 {
		err := fmt.Errorf("unscripted fetch before=%q", before)
		s.fetches = append(s.fetches, Fetch{Before: before, Err: err})
		return source.Page{}, err
	}

	r := queue[0]
	if len(queue) > 1 {
		s.replies[before] = queue[1:]
	}
	s.fetches = append(s.fetches, Fetch{Before: before, Samples: len(r.Samples), Err: r.Err})
	if r.Err != nil {
		return source.Page{}, r.Err
	}
	return source.Page{Data: append([]record.RawSample(nil), r.Samples...)}, nil
}

// Fetches returns a copy of every FetchPage call in order.
func (s *ScriptedSource) Fetches() []Fetch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Fetch(nil), s.fetches...)
}

// Cursors returns the before argument of every FetchPage call in order.
func (s *ScriptedSource) Cursors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.fetches))
	for i, f := range s.fetches {
		out[i] = f.Before
	}
	return out
}

// Malformed returns the error a source reports for a page without data.
func Malformed(before string) error {
	return &source.Error{Code: source.ErrCodeMalformedPage, Before: before, Err: fmt.Errorf("missing data field")}
}

// Unavailable returns the error a source reports for a transport failure.
func Unavailable(before string) error {
	return &source.Error{Code: source.ErrCodeSourceUnavailable, Before: before, Err: fmt.Errorf("connection refused")}
}

// Sample builds a raw sample with a well-formed payload.
func Sample(createdAt string, temperature, humidity, soil float64) record.RawSample {
	return record.RawSample{
		CreatedAt: createdAt,
		Value:     fmt.Sprintf(`{"temperature":%g,"humidity":%g,"soil":%g}`, temperature, humidity, soil),
	}
}
