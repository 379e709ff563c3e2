// Package aggregate fans out independent dashboard resource fetches and joins
// them into a single snapshot, substituting per-resource fallbacks on failure.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/ashureev/propdesk/internal/metrics"
)

// ErrInvalidSpecs is returned for a malformed spec list. It is the only
// error Load ever returns.
var ErrInvalidSpecs = errors.New("invalid resource specs")

// FetchFunc retrieves one resource value.
type FetchFunc func(ctx context.Context) (any, error)

// Spec describes one resource of a dashboard view.
// Fallback must have the same dynamic type as a successful Fetch result.
type Spec struct {
	Key      string
	Fetch    FetchFunc
	Fallback any
}

// Loader runs resource fetches concurrently.
type Loader struct {
	timeout time.Duration
	logger  *slog.Logger
}

// NewLoader creates a loader. A positive timeout bounds each individual fetch.
func NewLoader(timeout time.Duration, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{timeout: timeout, logger: logger}
}

type outcome struct {
	value any
	err   error
}

// Load fetches every spec concurrently and returns once all have settled.
// Failed fetches hold their fallback and are reported by Snapshot.Degraded.
func (l *Loader) Load(ctx context.Context, specs []Spec) (*Snapshot, error) {
	if err := validateSpecs(specs); err != nil {
		return nil, err
	}

	start := time.Now()
	outcomes := make([]outcome, len(specs))

	var wg sync.WaitGroup
	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec Spec) {
			defer wg.Done()
			v, err := l.fetch(ctx, spec)
			outcomes[i] = outcome{value: v, err: err}
		}(i, spec)
	}
	wg.Wait()

	snap := newSnapshot(len(specs))
	for i, spec := range specs {
		o := outcomes[i]
		if o.err != nil {
			l.logger.Warn("Resource fell back", "resource", spec.Key, "error", o.err)
			metrics.ResourceFetches.WithLabelValues(spec.Key, "fallback").Inc()
			snap.set(spec.Key, spec.Fallback, o.err)
			continue
		}
		metrics.ResourceFetches.WithLabelValues(spec.Key, "ok").Inc()
		snap.set(spec.Key, o.value, nil)
	}

	metrics.SnapshotDuration.Observe(time.Since(start).Seconds())
	l.logger.Debug("Snapshot published", "resources", snap.Len(), "degraded", len(snap.Degraded()), "duration", time.Since(start))
	return snap, nil
}

func (l *Loader) fetch(ctx context.Context, spec Spec) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, fmt.Errorf("fetch %s panicked: %v", spec.Key, r)
		}
	}()

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	v, err := spec.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkCompatible(v, spec.Fallback); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", spec.Key, err)
	}
	return v, nil
}

func checkCompatible(v, fallback any) error {
	if fallback == nil {
		return nil
	}
	if v == nil {
		return errors.New("fetch returned nil value")
	}
	if got, want := reflect.TypeOf(v), reflect.TypeOf(fallback); got != want {
		return fmt.Errorf("fetch returned %s, fallback is %s", got, want)
	}
	if rv := reflect.ValueOf(v); (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Map) && rv.IsNil() {
		return errors.New("fetch returned nil container")
	}
	return nil
}

func validateSpecs(specs []Spec) error {
	if len(specs) == 0 {
		return fmt.Errorf("%w: empty spec list", ErrInvalidSpecs)
	}
	seen := make(map[string]struct{}, len(specs))
	for i, spec := range specs {
		if spec.Key == "" {
			return fmt.Errorf("%w: spec %d has empty key", ErrInvalidSpecs, i)
		}
		if spec.Fetch == nil {
			return fmt.Errorf("%w: spec %q has nil fetch", ErrInvalidSpecs, spec.Key)
		}
		if _, dup := seen[spec.Key]; dup {
			return fmt.Errorf("%w: duplicate key %q", ErrInvalidSpecs, spec.Key)
		}
		seen[spec.Key] = struct{}{}
	}
	return nil
}
