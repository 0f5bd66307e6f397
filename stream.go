package graphdig

import (
	"context"
	"io"
	"iter"
	"sync"

	"github.com/hupe1980/graphdig/internal/engine"
	"github.com/hupe1980/graphdig/model"
	"github.com/hupe1980/graphdig/nodepath"
)

// Stream delivers the batches of one search or explore run in emission
// order. The terminal batch is always the last one.
//
// A Stream buffers batches until they are read; a caller that stops reading
// should Cancel it.
type Stream struct {
	handle   string
	root     nodepath.Path
	notFound bool
	run      *engine.Run
	done     <-chan struct{}

	mu     sync.Mutex
	queue  []model.Batch
	ended  bool
	final  model.Batch
	ready  chan struct{}
	status model.Status
}

func newStream(handle string, root nodepath.Path) *Stream {
	return &Stream{
		handle: handle,
		root:   root,
		ready:  make(chan struct{}, 1),
	}
}

// notFoundStream is a stream whose run never started: the path did not name
// an expandable node. It ends Completed with no matches.
func notFoundStream(handle string, root nodepath.Path) *Stream {
	s := newStream(handle, root)
	s.notFound = true
	s.push(model.Batch{
		Matches:        []model.MatchRecord{},
		IsFinal:        true,
		TerminalReason: model.Completed,
	})
	done := make(chan struct{})
	close(done)
	s.done = done
	return s
}

func (s *Stream) push(b model.Batch) {
	s.mu.Lock()
	s.queue = append(s.queue, b)
	if b.IsFinal {
		s.ended = true
		s.final = b
	}
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

func (s *Stream) setStatus(st model.Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

// Handle returns the id Cancel accepts.
func (s *Stream) Handle() string { return s.handle }

// Root returns the path the run is rooted at.
func (s *Stream) Root() nodepath.Path { return s.root }

// NotFound reports whether the explore path named no expandable node.
func (s *Stream) NotFound() bool { return s.notFound }

// Status returns the most recent progress report.
func (s *Stream) Status() model.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Next returns the next batch, blocking until one is emitted. After the
// terminal batch has been returned it reports io.EOF.
func (s *Stream) Next(ctx context.Context) (model.Batch, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			b := s.queue[0]
			s.queue[0] = model.Batch{}
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return b, nil
		}
		ended := s.ended
		s.mu.Unlock()

		if ended {
			return model.Batch{}, io.EOF
		}

		select {
		case <-s.ready:
		case <-ctx.Done():
			return model.Batch{}, ctx.Err()
		}
	}
}

// All returns an iterator over the remaining batches.
//
// Example:
//
//	for b, err := range s.All(ctx) {
//	    if err != nil {
//	        return err
//	    }
//	    render(b.Matches)
//	}
func (s *Stream) All(ctx context.Context) iter.Seq2[model.Batch, error] {
	return func(yield func(model.Batch, error) bool) {
		for {
			b, err := s.Next(ctx)
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(model.Batch{}, err)
				return
			}
			if !yield(b, nil) {
				return
			}
		}
	}
}

// Collect drains the stream into a ResultSet.
func (s *Stream) Collect(ctx context.Context) (*model.ResultSet, error) {
	rs := &model.ResultSet{}
	for b, err := range s.All(ctx) {
		if err != nil {
			return rs, err
		}
		rs.Apply(b)
	}
	return rs, nil
}

// Cancel requests cancellation. The run still emits a terminal batch.
func (s *Stream) Cancel() {
	if s.run != nil {
		s.run.Cancel()
	}
}

// Done is closed once the terminal batch has been emitted.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Wait blocks until the run ends and returns its terminal reason.
// It does not consume batches.
func (s *Stream) Wait(ctx context.Context) (model.TerminalReason, error) {
	select {
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.final.TerminalReason, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
