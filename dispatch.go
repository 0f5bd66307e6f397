package graphdig

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/hupe1980/graphdig/match"
	"github.com/hupe1980/graphdig/model"
	"github.com/hupe1980/graphdig/stream"
)

// Request actions understood by a Dispatcher.
const (
	ActionStartSearch      = "startSearch"
	ActionExploreObject    = "exploreObject"
	ActionGetProperties    = "getObjectProperties"
	ActionCancelSearch     = "cancelSearch"
	ActionOutputFinalChunk = "outputFinalChunk"
	ActionPing             = "ping"
)

// Response actions sent by a Dispatcher.
const (
	ActionSearchPartial    = "searchPartial"
	ActionSearchComplete   = "searchComplete"
	ActionSearchCancelled  = "searchCancelled"
	ActionExploreResults   = "exploreResults"
	ActionObjectProperties = "objectProperties"
	ActionPong             = "pong"
	ActionSearchError      = "searchError"
	ActionUpdateStatus     = "updateStatus"
)

// Texts carried in error responses.
const (
	ErrTextObjectNotFound = "Object not found"
	ErrTextNotExpandable  = "Object not found or not expandable"
)

// Request is one message from the transport.
type Request struct {
	Action  string         `json:"action"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Response is one message to the transport. Batches and property lists are
// split into chunks of at most 50 records; each chunk is its own Response.
type Response struct {
	Action     string                              `json:"action"`
	Handle     string                              `json:"handle,omitempty"`
	BasePath   string                              `json:"basePath,omitempty"`
	Path       string                              `json:"path,omitempty"`
	Batch      *stream.BatchChunk                  `json:"batch,omitempty"`
	Properties *stream.Chunk[model.PropertyRecord] `json:"properties,omitempty"`
	Status     *model.Status                       `json:"status,omitempty"`
	IsFinal    bool                                `json:"isFinal,omitempty"`
	Success    bool                                `json:"success,omitempty"`
	Message    string                              `json:"message,omitempty"`
	Reason     string                              `json:"reason,omitempty"`
	Error      string                              `json:"error,omitempty"`
	Timestamp  int64                               `json:"timestamp,omitempty"`
}

// Outbox delivers responses to the transport. Send is never called
// concurrently by one Dispatcher.
type Outbox interface {
	Send(ctx context.Context, r Response) error
}

// OutboxFunc adapts a function to Outbox.
type OutboxFunc func(ctx context.Context, r Response) error

// Send calls f(ctx, r).
func (f OutboxFunc) Send(ctx context.Context, r Response) error { return f(ctx, r) }

type requestPayload struct {
	Term         string `mapstructure:"term"`
	Path         string `mapstructure:"path"`
	Mode         string `mapstructure:"mode"`
	MatchType    string `mapstructure:"matchType"`
	MaxDepth     int    `mapstructure:"maxDepth"`
	MaxResults   int    `mapstructure:"maxResults"`
	CharBudget   int    `mapstructure:"charBudget"`
	BudgetPolicy string `mapstructure:"budgetPolicy"`
	Limit        int    `mapstructure:"limit"`
}

func decodePayload(in map[string]any) (requestPayload, error) {
	var p requestPayload
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &p,
	})
	if err != nil {
		return p, err
	}
	if err := dec.Decode(in); err != nil {
		return p, fmt.Errorf("decode payload: %w", err)
	}
	return p, nil
}

func (p requestPayload) searchOptions(def SearchOptions) (SearchOptions, error) {
	so := def
	var err error
	if so.Mode, err = match.ParseMode(p.Mode); err != nil {
		return so, err
	}
	if so.Match, err = match.ParseType(p.MatchType); err != nil {
		return so, err
	}
	if so.Budget, err = ParseBudgetPolicy(p.BudgetPolicy); err != nil {
		return so, err
	}
	if p.MaxDepth > 0 {
		so.MaxDepth = p.MaxDepth
	}
	if p.MaxResults > 0 {
		so.MaxResults = p.MaxResults
	}
	if p.CharBudget > 0 {
		so.CharBudget = p.CharBudget
	}
	return so, nil
}

// flight is one run whose batches a Dispatcher forwards.
type flight struct {
	s       *Stream
	explore bool
	reason  atomic.Pointer[string]
	fin     chan struct{} // closed once the terminal batch is sent

	mu      sync.Mutex
	results model.ResultSet
}

func newFlight(explore bool) *flight {
	return &flight{explore: explore, fin: make(chan struct{})}
}

// cancel keeps the first reason given.
func (f *flight) cancel(reason string) {
	f.reason.CompareAndSwap(nil, &reason)
	f.s.Cancel()
}

func (f *flight) cancelReason() string {
	if r := f.reason.Load(); r != nil {
		return *r
	}
	return "cancelled"
}

// Dispatcher maps transport requests onto a Digger and streams the results
// back through an Outbox. At most one search is active; starting another
// replaces it. Explore runs are independent of the active search.
type Dispatcher struct {
	d      *Digger
	out    Outbox
	logger *Logger

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	sendMu  sync.Mutex
	startMu sync.Mutex

	mu       sync.Mutex
	active   *flight
	explores map[*flight]struct{}
}

// NewDispatcher creates a Dispatcher. Runs it starts live until they end,
// are cancelled, or the Dispatcher is closed.
func NewDispatcher(d *Digger, out Outbox) *Dispatcher {
	ctx, stop := context.WithCancel(context.Background())
	return &Dispatcher{
		d:        d,
		out:      out,
		logger:   d.opts.logger,
		ctx:      ctx,
		stop:     stop,
		explores: make(map[*flight]struct{}),
	}
}

// Handle serves one request. Long-running actions return once their run
// has started; results follow asynchronously.
func (dp *Dispatcher) Handle(ctx context.Context, req Request) error {
	err := dp.handle(ctx, req)
	dp.logger.LogDispatch(ctx, req.Action, err)
	return err
}

func (dp *Dispatcher) handle(ctx context.Context, req Request) error {
	switch req.Action {
	case ActionPing:
		return dp.send(ctx, Response{Action: ActionPong, Success: true})
	case ActionCancelSearch:
		return dp.cancelSearch(ctx)
	case ActionOutputFinalChunk:
		return dp.outputFinalChunk(ctx)
	}

	var serve func(context.Context, requestPayload) error
	switch req.Action {
	case ActionStartSearch:
		serve = dp.startSearch
	case ActionExploreObject:
		serve = dp.exploreObject
	case ActionGetProperties:
		serve = dp.getProperties
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}

	p, err := decodePayload(req.Payload)
	if err != nil {
		return dp.fail(ctx, req.Action, p.Path, err)
	}
	return serve(ctx, p)
}

func (dp *Dispatcher) startSearch(ctx context.Context, p requestPayload) error {
	so, err := p.searchOptions(DefaultSearchOptions())
	if err != nil {
		return dp.fail(ctx, ActionStartSearch, "", err)
	}

	dp.startMu.Lock()
	defer dp.startMu.Unlock()
	dp.replaceActive()

	f := newFlight(false)
	so.OnStatus = dp.statusForwarder(f)
	s, err := dp.d.Search(dp.ctx, p.Term, so)
	if err != nil {
		return dp.fail(ctx, ActionStartSearch, "", err)
	}
	f.s = s

	dp.mu.Lock()
	dp.active = f
	dp.mu.Unlock()

	dp.wg.Add(1)
	go dp.forward(f)
	return nil
}

func (dp *Dispatcher) exploreObject(ctx context.Context, p requestPayload) error {
	so, err := p.searchOptions(DefaultExploreOptions())
	if err != nil {
		return dp.fail(ctx, ActionExploreObject, p.Path, err)
	}

	f := newFlight(true)
	so.OnStatus = dp.statusForwarder(f)
	s, err := dp.d.Explore(dp.ctx, p.Path, p.Term, so)
	if err != nil {
		return dp.fail(ctx, ActionExploreObject, p.Path, err)
	}
	if s.NotFound() {
		return dp.send(ctx, Response{
			Action:   ActionExploreResults,
			Handle:   s.Handle(),
			BasePath: p.Path,
			IsFinal:  true,
			Error:    ErrTextObjectNotFound,
		})
	}
	f.s = s

	dp.mu.Lock()
	dp.explores[f] = struct{}{}
	dp.mu.Unlock()

	dp.wg.Add(1)
	go dp.forward(f)
	return nil
}

func (dp *Dispatcher) getProperties(ctx context.Context, p requestPayload) error {
	res, err := dp.d.Expand(ctx, p.Path, p.Limit)
	if err != nil {
		return dp.fail(ctx, ActionGetProperties, p.Path, err)
	}
	if res.NotFound {
		return dp.send(ctx, Response{
			Action:     ActionObjectProperties,
			Path:       p.Path,
			Properties: &stream.Chunk[model.PropertyRecord]{TotalChunks: 1, IsLastChunk: true, Records: []model.PropertyRecord{}},
			Error:      ErrTextNotExpandable,
		})
	}

	props := res.Properties
	if props == nil {
		props = []model.PropertyRecord{}
	}
	for _, c := range stream.Split(res.Path.String(), props, stream.DefaultUnit) {
		if err := dp.send(ctx, Response{
			Action:     ActionObjectProperties,
			Path:       res.Path.String(),
			Properties: &c,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (dp *Dispatcher) cancelSearch(ctx context.Context) error {
	dp.mu.Lock()
	f := dp.active
	dp.mu.Unlock()

	if f != nil {
		// The terminal batch carries the acknowledgement.
		f.cancel("cancelled")
		return nil
	}
	return dp.send(ctx, cancelledResponse("cancelled"))
}

func (dp *Dispatcher) outputFinalChunk(ctx context.Context) error {
	dp.mu.Lock()
	f := dp.active
	dp.mu.Unlock()
	if f == nil {
		return nil
	}

	f.mu.Lock()
	matches := append([]model.MatchRecord(nil), f.results.Matches()...)
	f.mu.Unlock()
	if len(matches) == 0 {
		return nil
	}

	st := f.s.Status()
	snapshot := model.Batch{
		Seq:       -1,
		Matches:   matches,
		Processed: st.Processed,
		Skipped:   st.Skipped,
		Remaining: st.Queue,
	}
	return dp.sendBatch(ctx, f, ActionSearchPartial, snapshot, Response{IsFinal: true})
}

// replaceActive cancels the active search and waits, bounded by the
// Digger's grace period, until its terminal batch has been sent.
func (dp *Dispatcher) replaceActive() {
	dp.mu.Lock()
	f := dp.active
	dp.active = nil
	dp.mu.Unlock()
	if f == nil {
		return
	}

	f.cancel("replaced")
	timer := time.NewTimer(dp.d.opts.grace)
	defer timer.Stop()
	select {
	case <-f.fin:
	case <-timer.C:
		dp.logger.WarnContext(dp.ctx, "replaced search still active after grace", "handle", f.s.Handle())
	}
}

func (dp *Dispatcher) statusForwarder(f *flight) func(model.Status) {
	return func(st model.Status) {
		if f.explore {
			return
		}
		_ = dp.send(dp.ctx, Response{Action: ActionUpdateStatus, Status: &st})
	}
}

// forward relays every batch of f's stream until the terminal one.
func (dp *Dispatcher) forward(f *flight) {
	defer dp.wg.Done()
	defer close(f.fin)
	defer dp.retire(f)

	for b, err := range f.s.All(dp.ctx) {
		if err != nil {
			f.cancel("closed")
			return
		}

		f.mu.Lock()
		f.results.Apply(b)
		f.mu.Unlock()

		action, extra := dp.describe(f, b)
		if err := dp.sendBatch(dp.ctx, f, action, b, extra); err != nil {
			f.cancel("closed")
		}
	}
}

func (dp *Dispatcher) describe(f *flight, b model.Batch) (string, Response) {
	if f.explore {
		return ActionExploreResults, Response{BasePath: f.s.Root().String(), IsFinal: b.IsFinal}
	}
	switch {
	case !b.IsFinal:
		return ActionSearchPartial, Response{}
	case b.TerminalReason == model.Cancelled:
		r := cancelledResponse(f.cancelReason())
		r.IsFinal = true
		return ActionSearchCancelled, r
	default:
		return ActionSearchComplete, Response{IsFinal: true, Reason: string(b.TerminalReason)}
	}
}

func (dp *Dispatcher) sendBatch(ctx context.Context, f *flight, action string, b model.Batch, extra Response) error {
	for _, c := range stream.BatchChunks(f.s.Handle(), b, stream.DefaultUnit) {
		r := extra
		r.Action = action
		r.Handle = f.s.Handle()
		r.Batch = &c
		if err := dp.send(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (dp *Dispatcher) retire(f *flight) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if dp.active == f {
		dp.active = nil
	}
	delete(dp.explores, f)
}

func (dp *Dispatcher) fail(ctx context.Context, action, path string, err error) error {
	r := Response{Action: ActionSearchError, Error: err.Error()}
	switch action {
	case ActionGetProperties:
		r = Response{Action: ActionObjectProperties, Path: path, Error: err.Error()}
	case ActionExploreObject:
		r = Response{Action: ActionExploreResults, BasePath: path, IsFinal: true, Error: err.Error()}
	}
	if sendErr := dp.send(ctx, r); sendErr != nil {
		return errors.Join(err, sendErr)
	}
	return err
}

func (dp *Dispatcher) send(ctx context.Context, r Response) error {
	dp.sendMu.Lock()
	defer dp.sendMu.Unlock()
	return dp.out.Send(ctx, r)
}

// Wait blocks until every forwarded run has sent its terminal batch.
func (dp *Dispatcher) Wait() { dp.wg.Wait() }

// Close cancels every run the Dispatcher started and waits for their
// terminal batches to be forwarded.
func (dp *Dispatcher) Close() error {
	dp.mu.Lock()
	var all []*flight
	if dp.active != nil {
		all = append(all, dp.active)
	}
	for f := range dp.explores {
		all = append(all, f)
	}
	dp.mu.Unlock()

	for _, f := range all {
		f.cancel("closed")
	}
	dp.wg.Wait()
	dp.stop()
	return nil
}

func cancelledResponse(reason string) Response {
	return Response{
		Action:    ActionSearchCancelled,
		Message:   fmt.Sprintf("Search %s - all processes stopped.", reason),
		Reason:    reason,
		Timestamp: time.Now().UnixMilli(),
	}
}
