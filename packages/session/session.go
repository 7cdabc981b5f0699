// Package session composes the template resolver, auth resolver, execution
// engine, formatter and store into single logical operations: execute now,
// save, load-then-execute, and chain a captured response into the next
// request. One session may run many operations; captures persist across
// them.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/arkadyv/reqforge/packages/capture"
	"github.com/arkadyv/reqforge/packages/core/config"
	"github.com/arkadyv/reqforge/packages/descriptor"
	"github.com/arkadyv/reqforge/packages/http"
	"github.com/arkadyv/reqforge/packages/output"
	"github.com/arkadyv/reqforge/packages/store"
	"github.com/arkadyv/reqforge/packages/template"
)

// State names the orchestrator's position in the pipeline. Failed is
// terminal and reachable from every non-terminal state.
type State int

const (
	StateBuilding State = iota
	StateResolving
	StateExecuting
	StateFormatting
	StatePersisting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateResolving:
		return "resolving"
	case StateExecuting:
		return "executing"
	case StateFormatting:
		return "formatting"
	case StatePersisting:
		return "persisting"
	case StateDone:
		return "done"
	default:
		return "failed"
	}
}

// Operation is one fully specified request to the core: what to build or
// load, which variables override the scope, whether and where to persist,
// and how to format the result.
type Operation struct {
	// Descriptor is the explicit request input. Ignored when LoadName is
	// set: the stored snapshot wins.
	Descriptor *descriptor.Descriptor
	// LoadName replays a saved request by exact name.
	LoadName string
	// SaveName persists the pre-resolution snapshot under this name;
	// an existing name is overwritten.
	SaveName   string
	Collection string
	// Environment selects the stored variable map seeding the scope.
	// Empty falls back to the configured default environment.
	Environment string
	// Overrides is the highest-priority scope layer.
	Overrides map[string]string
	// CaptureAs stores the response body for later {{name.field}}
	// references within this session.
	CaptureAs string
	Format    output.Format
	// Execute performs the network call. A save-only operation leaves it
	// false.
	Execute   bool
	NoHistory bool
}

// Result is the outcome of a finished operation. Output is masked for
// display; Response is the raw unmasked record handed back for chaining.
type Result struct {
	State      State
	Output     string
	Response   *http.Response
	Resolved   *descriptor.Descriptor
	Saved      *store.SavedRequest
	CaptureSet bool
}

// Session wires the pipeline components together under one configuration
// value. It owns the capture layer shared by chained operations.
type Session struct {
	cfg       *config.Config
	store     *store.Store
	client    *http.Client
	formatter *output.Formatter
	captures  *capture.Layer
}

type SessionOption func(*Session)

// WithClient replaces the HTTP client, mainly for tests.
func WithClient(c *http.Client) SessionOption {
	return func(s *Session) {
		s.client = c
	}
}

// WithFormatter replaces the display formatter.
func WithFormatter(f *output.Formatter) SessionOption {
	return func(s *Session) {
		s.formatter = f
	}
}

func New(cfg *config.Config, st *store.Store, version string, opts ...SessionOption) *Session {
	s := &Session{
		cfg:      cfg,
		store:    st,
		captures: capture.NewLayer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = http.NewClient(
			http.WithMaxRedirects(cfg.MaxRedirects),
			http.WithKeepAuthOnRedirect(cfg.GetKeepAuthOnRedirect()),
			http.WithValidateSSL(cfg.GetValidateSSL()),
			http.WithProxy(cfg.Proxy),
			http.WithUserAgent("reqforge/"+version),
			http.WithDefaultHeaders(cfg.Headers),
		)
	}
	if s.formatter == nil {
		s.formatter = output.NewFormatter(output.WithNoColor(cfg.GetNoColor()))
	}
	return s
}

// Captures exposes the session capture layer, mainly for inspection.
func (s *Session) Captures() *capture.Layer { return s.captures }

// Run drives one operation through the state machine:
// Building -> Resolving -> Executing -> Formatting -> Persisting -> Done.
// Any failure before Executing aborts without network I/O; persistence
// steps are each atomic but not grouped into one transaction, so a crash
// between them leaves the earlier step committed and the later one not.
func (s *Session) Run(ctx context.Context, op Operation) (*Result, error) {
	result := &Result{State: StateBuilding}

	// Building
	base, err := s.build(op)
	if err != nil {
		result.State = StateFailed
		return result, err
	}

	// Save-only operations skip the network entirely.
	if !op.Execute {
		result.State = StatePersisting
		if err := s.persistSnapshot(op, base, result); err != nil {
			result.State = StateFailed
			return result, err
		}
		result.State = StateDone
		return result, nil
	}

	// Resolving
	result.State = StateResolving
	resolved, err := s.resolve(op, base)
	if err != nil {
		result.State = StateFailed
		return result, err
	}
	result.Resolved = resolved

	// Executing: exactly one attempt, no implicit retries.
	result.State = StateExecuting
	resp, execErr := s.client.Do(ctx, resolved)
	if execErr != nil {
		if !op.NoHistory {
			// The failed attempt still lands in history; ignore a
			// secondary storage failure so the transport error stays
			// the one reported.
			_ = s.store.AppendHistory(store.HistoryEntry{
				Timestamp: time.Now().UTC(),
				Method:    resolved.Method,
				URL:       resolved.URL,
				Duration:  0,
				Success:   false,
			})
		}
		result.State = StateFailed
		return result, execErr
	}
	result.Response = resp

	// Formatting
	result.State = StateFormatting
	result.Output = s.formatter.Render(resolved.Method, resolved.URL, resp, op.Format)

	// Persisting
	result.State = StatePersisting
	if err := s.persist(op, base, resolved, resp, result); err != nil {
		result.State = StateFailed
		return result, err
	}

	result.State = StateDone
	return result, nil
}

func (s *Session) build(op Operation) (*descriptor.Descriptor, error) {
	if op.LoadName != "" {
		saved, err := s.store.GetRequest(op.LoadName)
		if err != nil {
			return nil, err
		}
		if err := s.store.MarkUsed(op.LoadName); err != nil {
			return nil, err
		}
		return saved.Descriptor.Clone(), nil
	}
	if op.Descriptor == nil {
		return nil, fmt.Errorf("operation carries neither a request nor a saved-request name")
	}
	return op.Descriptor, nil
}

// scope assembles the layered variable scope in priority order: explicit
// overrides, then captures from earlier operations, then the saved
// environment, then process environment variables.
func (s *Session) scope(op Operation) (*template.Scope, error) {
	scope := template.NewScope(s.captures)

	if len(op.Overrides) > 0 {
		scope.Push(template.NewMapLayer("overrides", op.Overrides))
	}

	envName := op.Environment
	explicit := envName != ""
	if envName == "" {
		envName = s.cfg.DefaultEnvironment
	}
	if envName != "" {
		variables, err := s.store.GetEnvironment(envName)
		if err != nil {
			// A configured default that was never created is not an
			// error; an explicitly requested environment must exist.
			if explicit || !store.IsNotFound(err) {
				return nil, err
			}
		} else {
			scope.Append(template.NewMapLayer("environment:"+envName, variables))
		}
	}

	scope.Append(template.EnvLayer{})
	return scope, nil
}

func (s *Session) resolve(op Operation, base *descriptor.Descriptor) (*descriptor.Descriptor, error) {
	scope, err := s.scope(op)
	if err != nil {
		return nil, err
	}

	resolved, err := scope.ResolveDescriptor(base)
	if err != nil {
		return nil, err
	}

	if resolved.Auth != nil {
		headers, err := resolved.Auth.Headers(scope.Resolve)
		if err != nil {
			return nil, err
		}
		for _, h := range headers {
			resolved.SetHeader(h.Name, h.Value)
		}
		resolved.Auth = nil
	}

	if err := resolved.Validate(); err != nil {
		return nil, err
	}
	return resolved, nil
}

// persistSnapshot handles the save-only path.
func (s *Session) persistSnapshot(op Operation, base *descriptor.Descriptor, result *Result) error {
	if op.SaveName == "" {
		return fmt.Errorf("save operation requires a name")
	}
	saved, err := s.store.SaveRequest(op.SaveName, op.Collection, base)
	if err != nil {
		return err
	}
	result.Saved = saved
	return nil
}

func (s *Session) persist(op Operation, base, resolved *descriptor.Descriptor, resp *http.Response, result *Result) error {
	if !op.NoHistory {
		err := s.store.AppendHistory(store.HistoryEntry{
			Timestamp: resp.Timestamp,
			Method:    resolved.Method,
			URL:       resolved.URL,
			Status:    resp.StatusCode,
			Duration:  resp.Duration,
			Size:      resp.Size,
			Success:   resp.IsSuccess(),
		})
		if err != nil {
			return err
		}
	}

	if op.SaveName != "" {
		// The pre-resolution snapshot is what gets stored: placeholders
		// and real credential values survive so replay resolves against
		// the scope active at replay time.
		saved, err := s.store.SaveRequest(op.SaveName, op.Collection, base)
		if err != nil {
			return err
		}
		result.Saved = saved
	}

	if op.CaptureAs != "" {
		s.captures.Store(op.CaptureAs, resp.Body)
		result.CaptureSet = true
	}
	return nil
}
