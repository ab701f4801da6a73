package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"

	"github.com/leengari/tree-tutor/internal/query"
	"github.com/leengari/tree-tutor/internal/replay"
	"github.com/leengari/tree-tutor/internal/view"
)

// DefaultConfiguration is the tree configuration of a fresh or reset session
const DefaultConfiguration = "paths.root: [\n  {const = root}\n]"

var (
	ErrNoTree   = errors.New("no tree has been built")
	ErrNotFound = errors.New("node not found")
)

var tracer = otel.Tracer("github.com/leengari/tree-tutor/internal/session")

// State is what a client needs to restore its editor
type State struct {
	Input         string `json:"input"`
	Configuration string `json:"configuration"`
	Path          string `json:"path"`
	Ops           string `json:"ops"`
	Stash         string `json:"stash"`
}

// QueryResult holds a query table. Message explains an empty table.
type QueryResult struct {
	Table   *query.Table
	Message string
}

// Cursor replays one session's input into its store, one record at a
// time (Step, Back) or all at once (Build), and keeps the rendered view
// in step with it. All methods are safe for concurrent use; calls are
// applied one at a time in arrival order.
type Cursor struct {
	mu  sync.Mutex
	uid string
	dir string

	input         string
	configuration string
	path          string
	ops           string
	stash         string

	engine *replay.Engine
	view   []*view.Node
	// release closes a replaced or discarded engine
	release func(*replay.Engine) error

	// forward is the offset of the line break that ends the replayed
	// prefix: 0 before the first step, -1 once the whole input is in.
	forward int
	// previous is forward as it was before the last step
	previous int
	built    bool

	observers []Observer
}

// NewCursor creates an empty session whose store lives in dir
func NewCursor(uid, dir string, observers ...Observer) *Cursor {
	return &Cursor{
		uid:           uid,
		dir:           dir,
		configuration: DefaultConfiguration,
		stash:         "[]",
		observers:     append([]Observer(nil), observers...),
		release:       (*replay.Engine).Close,
	}
}

func (c *Cursor) UID() string { return c.uid }

func (c *Cursor) Dir() string { return c.dir }

// Build replays the whole input. It does nothing when the same input and
// configuration were already fully built.
func (c *Cursor) Build(ctx context.Context, input, configuration string) ([]*view.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, span, op := c.begin(ctx, "session.build", EventBuildStart)
	var err error
	defer func() { c.end(span, op, EventBuildEnd, err) }()

	if c.built && input == c.input && configuration == c.configuration {
		return view.Clone(c.view), nil
	}

	savedForward, savedPrevious := c.forward, c.previous
	if err = c.rebuild(ctx, input, configuration); err != nil {
		err = multierr.Append(err, c.rollback(savedForward, savedPrevious))
		return nil, err
	}

	c.view = view.Materialize(c.engine.Reader().RootChildren())
	c.input, c.configuration = input, configuration
	c.forward = -1
	c.built = true
	return view.Clone(c.view), nil
}

// Step replays one more record and merges the new nodes into the view.
// Once the input is exhausted every call rebuilds over the full input.
func (c *Cursor) Step(ctx context.Context, input, configuration string) ([]*view.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, span, op := c.begin(ctx, "session.step", EventStepStart)
	var err error
	defer func() { c.end(span, op, EventStepEnd, err) }()

	changed := input != c.input || configuration != c.configuration
	// a built tree is kept only while input and configuration are
	// unchanged; otherwise stepping starts over from the first record
	if c.built {
		if !changed {
			return view.Clone(c.view), nil
		}
		c.built = false
	}
	if changed {
		c.forward, c.previous = 0, 0
		c.view = nil
	}

	savedForward, savedPrevious := c.forward, c.previous
	prefix := input
	if c.forward != -1 {
		c.previous = c.forward
		next := c.forward
		if next == 0 {
			next = strings.Index(input, "\n")
		}
		c.forward = indexFrom(input, "\n", next+1)
		if c.forward != -1 {
			prefix = input[:c.forward]
		}
	}

	if err = c.rebuild(ctx, prefix, configuration); err != nil {
		err = multierr.Append(err, c.rollback(savedForward, savedPrevious))
		return nil, err
	}

	for {
		var inserted bool
		c.view, inserted = view.Merge(c.view, c.engine.Reader().RootChildren())
		if !inserted {
			break
		}
	}
	c.input, c.configuration = input, configuration

	span.SetAttributes(
		attribute.Int("session.forward", c.forward),
		attribute.Int64("session.records", c.engine.Records()),
	)
	return view.Clone(c.view), nil
}

// Back undoes the last step. ok is false at the undo boundary, when
// there is no tree to show.
func (c *Cursor) Back(ctx context.Context, input, configuration string) (nodes []*view.Node, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, span, op := c.begin(ctx, "session.back", EventBackStart)
	defer func() { c.end(span, op, EventBackEnd, err) }()

	if c.built {
		return view.Clone(c.view), c.engine != nil, nil
	}

	if input != c.input || configuration != c.configuration {
		// nothing of this input was stepped yet
		err = c.rollback(0, 0)
		c.input, c.configuration = input, configuration
		return nil, false, err
	}

	savedForward, savedPrevious := c.forward, c.previous
	if c.previous > len(input) {
		c.previous = len(input)
	}
	prefix := input[:c.previous]
	c.forward = c.previous
	c.previous = strings.LastIndex(prefix, "\n")

	if c.previous == -1 {
		err = c.rollback(0, 0)
		return nil, false, err
	}

	if err = c.rebuild(ctx, prefix, configuration); err != nil {
		err = multierr.Append(err, c.rollback(savedForward, savedPrevious))
		return nil, false, err
	}

	// the store shrank, so the view is rendered afresh
	c.view = view.Materialize(c.engine.Reader().RootChildren())
	span.SetAttributes(
		attribute.Int("session.forward", c.forward),
		attribute.Int64("session.records", c.engine.Records()),
	)
	return view.Clone(c.view), true, nil
}

// Reset forgets the input, restores the default configuration and
// discards the store.
func (c *Cursor) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.closeEngine()
	c.input = ""
	c.configuration = DefaultConfiguration
	c.view = nil
	c.forward, c.previous = 0, 0
	c.built = false

	c.notify(Event{Type: EventReset, UID: c.uid, OpID: uuid.NewString(), Timestamp: time.Now()})
	return err
}

// Query runs a query against the current store
func (c *Cursor) Query(ctx context.Context, path, ops string) (*QueryResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, span, op := c.begin(ctx, "session.query", EventQueryStart)
	var err error
	defer func() { c.end(span, op, EventQueryEnd, err) }()

	c.path, c.ops = path, ops
	if c.engine == nil {
		err = ErrNoTree
		return nil, err
	}

	table, err := query.Run(c.engine.Reader(), path, ops)
	if err != nil {
		return nil, err
	}

	result := &QueryResult{Table: table}
	if table.Len() == 0 {
		result.Message = query.CheckPath(c.engine.Reader(), path)
	}
	span.SetAttributes(attribute.Int("query.rows", table.Len()))
	return result, nil
}

// CheckPath explains why path matches nothing in the current store
func (c *Cursor) CheckPath(path string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine == nil {
		return "", ErrNoTree
	}
	return query.CheckPath(c.engine.Reader(), path), nil
}

// Data returns the data attached to the node at a "/"-separated path of
// titles, or nil when the node carries none
func (c *Cursor) Data(path string) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine == nil {
		return nil, ErrNoTree
	}
	names := strings.Split(strings.Trim(path, "/"), "/")
	for i, name := range names {
		names[i] = strings.TrimSuffix(name, view.DataMarker)
	}
	node := c.engine.Reader().Find(strings.Join(names, "/"))
	if node == nil {
		return nil, ErrNotFound
	}
	return node.AttachedData(), nil
}

func (c *Cursor) UpdateStash(stash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stash = stash
}

// State returns the editor state and rewinds stepping to the start
func (c *Cursor) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.forward, c.previous = 0, 0
	if !c.built {
		c.view = nil
	}
	return State{
		Input:         c.input,
		Configuration: c.configuration,
		Path:          c.path,
		Ops:           c.ops,
		Stash:         c.stash,
	}
}

// View returns a copy of the current view
func (c *Cursor) View() []*view.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return view.Clone(c.view)
}

// Close releases the store. The cursor can still be used afterwards.
func (c *Cursor) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.closeEngine()
	c.view = nil
	c.built = false
	c.notify(Event{Type: EventClosed, UID: c.uid, Timestamp: time.Now()})
	return err
}

func (c *Cursor) AddObserver(observer Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, observer)
}

// rebuild replaces the engine with one replaying text. A failure to close
// the old engine is reported even when the new one opens.
func (c *Cursor) rebuild(ctx context.Context, text, configuration string) error {
	closeErr := c.closeEngine()
	engine, err := replay.OpenText(ctx, text, configuration, c.dir)
	if err != nil {
		return multierr.Append(err, closeErr)
	}
	c.engine = engine
	return closeErr
}

// rollback returns to the no-engine state with the given offsets
func (c *Cursor) rollback(forward, previous int) error {
	err := c.closeEngine()
	c.view = nil
	c.built = false
	c.forward, c.previous = forward, previous
	return err
}

func (c *Cursor) closeEngine() error {
	if c.engine == nil {
		return nil
	}
	err := c.release(c.engine)
	c.engine = nil
	return err
}

func (c *Cursor) begin(ctx context.Context, name string, typ EventType) (context.Context, trace.Span, string) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("session.uid", c.uid),
		attribute.Int("session.forward", c.forward),
		attribute.Int("session.previous", c.previous),
	))
	op := uuid.NewString()
	c.notify(Event{Type: typ, UID: c.uid, OpID: op, Timestamp: time.Now()})
	return ctx, span, op
}

func (c *Cursor) end(span trace.Span, op string, typ EventType, err error) {
	data := map[string]interface{}{
		"forward":  c.forward,
		"previous": c.previous,
		"built":    c.built,
		"records":  c.engine.Records(),
	}
	if err != nil {
		data["error"] = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	c.notify(Event{Type: typ, UID: c.uid, OpID: op, Timestamp: time.Now(), Data: data})
	span.End()
}

// notify sends an event to all registered observers
func (c *Cursor) notify(event Event) {
	for _, observer := range c.observers {
		observer.OnEvent(event)
	}
}

func indexFrom(s, sep string, from int) int {
	if from > len(s) {
		return -1
	}
	i := strings.Index(s[from:], sep)
	if i < 0 {
		return -1
	}
	return from + i
}
