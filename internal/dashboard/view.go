package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/propdesk/internal/aggregate"
	"github.com/ashureev/propdesk/internal/domain"
	"github.com/ashureev/propdesk/internal/messaging"
	"github.com/ashureev/propdesk/internal/notify"
)

// Backend is the upstream API as seen by one signed-in user.
type Backend interface {
	messaging.Backend
	Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error)
}

// Key identifies a view: one browser tab of one device session.
type Key struct {
	SessionID string
	TabID     string
}

func (k Key) String() string {
	return k.SessionID + ":" + k.TabID
}

// View is the live state of one dashboard page.
type View struct {
	key       Key
	identity  domain.Identity
	backend   Backend
	loader    *aggregate.Loader
	catalogue []Resource
	center    *notify.Center
	inbox     *messaging.Inbox
	logger    *slog.Logger

	mu       sync.Mutex
	snapshot *aggregate.Snapshot
	gen      uint64            // bumped on every snapshot publish
	retabbed map[string]uint64 // resource -> gen of its last SelectTab publish
	tabs     map[string]string
	lastSeen time.Time
}

// ViewConfig carries the dependencies of a new view.
type ViewConfig struct {
	FetchTimeout time.Duration
	Notify       notify.Config
	Logger       *slog.Logger
}

// NewView creates a view for identity backed by be. The role must have a catalogue.
func NewView(key Key, identity domain.Identity, be Backend, cfg ViewConfig) (*View, error) {
	catalogue := Catalogue(identity.Role)
	if catalogue == nil {
		return nil, fmt.Errorf("no dashboard for role %q", identity.Role)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("user_id", identity.UserID, "view", key.String())

	center := notify.NewCenter(cfg.Notify)
	return &View{
		key:       key,
		identity:  identity,
		backend:   be,
		loader:    aggregate.NewLoader(cfg.FetchTimeout, logger),
		catalogue: catalogue,
		center:    center,
		inbox: messaging.NewInbox(identity, be, center, messaging.Options{
			BackgroundTimeout: cfg.FetchTimeout,
			Logger:            logger,
		}),
		logger:   logger,
		tabs:     make(map[string]string),
		retabbed: make(map[string]uint64),
		lastSeen: time.Now(),
	}, nil
}

// Key returns the view key.
func (v *View) Key() Key { return v.key }

// Identity returns the user the view acts for.
func (v *View) Identity() domain.Identity { return v.identity }

// Inbox returns the view's messaging state.
func (v *View) Inbox() *messaging.Inbox { return v.inbox }

// Notifications returns the view's notification center.
func (v *View) Notifications() *notify.Center { return v.center }

// Catalogue returns the resources on this dashboard.
func (v *View) Catalogue() []Resource {
	out := make([]Resource, len(v.catalogue))
	copy(out, v.catalogue)
	return out
}

// Load aggregates every resource of the dashboard, honouring the tab
// selected for each status-classified resource. A tab selection that lands
// while Load is in flight wins for its resource.
func (v *View) Load(ctx context.Context) (*aggregate.Snapshot, error) {
	v.Touch()

	v.mu.Lock()
	tabs := make(map[string]string, len(v.tabs))
	for k, s := range v.tabs {
		tabs[k] = s
	}
	startGen := v.gen
	v.mu.Unlock()

	specs := make([]aggregate.Spec, 0, len(v.catalogue))
	for _, r := range v.catalogue {
		specs = append(specs, v.spec(r, tabs[r.Key]))
	}

	snap, err := v.loader.Load(ctx, specs)
	if err != nil {
		return nil, fmt.Errorf("load dashboard: %w", err)
	}
	if degraded := snap.Degraded(); len(degraded) > 0 {
		v.center.Error("Could not load " + strings.Join(degraded, ", "))
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	var newer []string
	for key, gen := range v.retabbed {
		if gen > startGen {
			newer = append(newer, key)
		}
	}
	if len(newer) > 0 && v.snapshot != nil {
		v.logger.Debug("Kept tab selections made during dashboard load", "resources", newer)
		snap = snap.Merge(v.snapshot.Only(newer...))
	}
	v.gen++
	v.snapshot = snap
	return snap, nil
}

// SelectTab re-fetches a status-classified resource filtered by tab and
// merges it into the current snapshot. Other resources are untouched. A
// failed fetch leaves the resource empty and pushes an error notification.
func (v *View) SelectTab(ctx context.Context, resource, tab string) (*aggregate.Snapshot, error) {
	v.Touch()

	r, ok := findResource(v.catalogue, resource)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, resource)
	}
	status, err := StatusFor(resource, tab)
	if err != nil {
		return nil, err
	}

	part, err := v.loader.Load(ctx, []aggregate.Spec{v.spec(r, status)})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", resource, err)
	}
	if part.Err(resource) != nil {
		v.center.Error("Could not load " + resource)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if status == "" {
		delete(v.tabs, resource)
	} else {
		v.tabs[resource] = status
	}
	v.gen++
	v.retabbed[resource] = v.gen
	if v.snapshot == nil {
		v.snapshot = part
	} else {
		v.snapshot = v.snapshot.Merge(part)
	}
	return v.snapshot, nil
}

// Snapshot returns the last published snapshot, or nil before the first Load.
func (v *View) Snapshot() *aggregate.Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshot
}

// Touch records activity on the view.
func (v *View) Touch() {
	v.mu.Lock()
	v.lastSeen = time.Now()
	v.mu.Unlock()
}

// LastSeen returns the time of the last activity.
func (v *View) LastSeen() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastSeen
}

// Close stops background messaging work and pending notification timers.
func (v *View) Close() {
	v.inbox.Close()
	v.center.Close()
}

func (v *View) spec(r Resource, status string) aggregate.Spec {
	var query url.Values
	if status != "" {
		query = url.Values{"status": {status}}
	}
	fetch := func(ctx context.Context) (json.RawMessage, error) {
		return v.backend.Get(ctx, r.Path, query)
	}
	if r.Object {
		return aggregate.JSONObjectSpec(r.Key, fetch)
	}
	return aggregate.JSONListSpec(r.Key, fetch, r.ListKeys, r.ContainerFields)
}
