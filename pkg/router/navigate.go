package router

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/vango-dev/navstack/pkg/routepath"
)

// NavigateOptions configures navigation behavior.
type NavigateOptions struct {
	// Replace replaces the current history entry instead of pushing.
	Replace bool

	// Params are query parameters to add to the location.
	Params map[string]any

	// State overrides the navigator's host state for this navigation.
	State any

	hasState bool
}

// NavigateOption is a functional option for Navigate.
type NavigateOption func(*NavigateOptions)

// WithReplace replaces the current history entry instead of pushing.
func WithReplace() NavigateOption {
	return func(o *NavigateOptions) {
		o.Replace = true
	}
}

// WithParams adds query parameters to the navigation location.
func WithParams(params map[string]any) NavigateOption {
	return func(o *NavigateOptions) {
		o.Params = params
	}
}

// WithState resolves this navigation with state instead of the state set
// by SetState.
func WithState(state any) NavigateOption {
	return func(o *NavigateOptions) {
		o.State = state
		o.hasState = true
	}
}

// NavigationRequest represents a pending navigation.
type NavigationRequest struct {
	Location string
	Options  NavigateOptions
}

// BuildLocation merges the request's query parameters into its location.
// Parameters override query values already present in the location.
func (nr *NavigationRequest) BuildLocation() (string, error) {
	loc, err := routepath.ParseLocation(nr.Location)
	if err != nil {
		return "", fmt.Errorf("invalid location %q: %w", nr.Location, err)
	}
	if len(nr.Options.Params) == 0 {
		return loc.String(), nil
	}

	for k, v := range nr.Options.Params {
		loc.Query[k] = fmt.Sprintf("%v", v)
	}
	loc.RawQuery = ""
	return loc.String(), nil
}

// HistoryEntry is one visited location.
type HistoryEntry struct {
	// Key uniquely identifies the entry.
	Key string

	// Location is the location displayed, after redirects.
	Location string

	// Resolution is the stack shown for Location.
	Resolution *Resolution

	// State is the state given with WithState, if any. Back, Forward and
	// Refresh re-resolve such an entry with it instead of the navigator
	// state.
	State any

	hasState bool
}

// Navigator keeps a back/forward history of resolved locations on top of a
// Resolver. The route tree is swapped atomically with SetTree; navigations
// already in flight finish against the tree they started with.
type Navigator struct {
	resolver *Resolver
	tree     atomic.Pointer[Tree]

	mu      sync.Mutex
	entries []HistoryEntry
	index   int
	state   any
}

// NewNavigator creates a navigator with an empty history.
func NewNavigator(resolver *Resolver, tree *Tree) *Navigator {
	if resolver == nil {
		resolver = NewResolver()
	}
	n := &Navigator{resolver: resolver, index: -1}
	n.tree.Store(tree)
	return n
}

// SetTree replaces the route tree used by later navigations.
func (n *Navigator) SetTree(tree *Tree) {
	n.tree.Store(tree)
}

// Tree returns the current route tree.
func (n *Navigator) Tree() *Tree {
	return n.tree.Load()
}

// SetState sets the host state handed to builders on later navigations.
func (n *Navigator) SetState(state any) {
	n.mu.Lock()
	n.state = state
	n.mu.Unlock()
}

// Navigate resolves location and pushes it onto the history, dropping any
// forward entries. Failed resolutions are pushed too: their error page is
// what the user sees.
func (n *Navigator) Navigate(ctx context.Context, location string, opts ...NavigateOption) *Resolution {
	var options NavigateOptions
	for _, opt := range opts {
		opt(&options)
	}

	req := NavigationRequest{Location: location, Options: options}
	if built, err := req.BuildLocation(); err == nil {
		location = built
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	state := n.state
	if options.hasState {
		state = options.State
	}

	res := n.resolver.Resolve(ctx, n.tree.Load(), location, state)
	entry := HistoryEntry{
		Key:        uuid.NewString(),
		Location:   res.Location,
		Resolution: res,
		State:      options.State,
		hasState:   options.hasState,
	}

	if options.Replace && n.index >= 0 {
		n.entries[n.index] = entry
		return res
	}

	n.entries = append(n.entries[:n.index+1], entry)
	n.index = len(n.entries) - 1
	return res
}

// Back moves one entry back and re-resolves it, since host state may have
// changed since it was shown. An entry pushed with WithState keeps that
// state; others use the current SetState value. It reports false when there is no entry.
func (n *Navigator) Back(ctx context.Context) (*Resolution, bool) {
	return n.step(ctx, -1)
}

// Forward moves one entry forward and re-resolves it.
func (n *Navigator) Forward(ctx context.Context) (*Resolution, bool) {
	return n.step(ctx, 1)
}

func (n *Navigator) step(ctx context.Context, delta int) (*Resolution, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	target := n.index + delta
	if target < 0 || target >= len(n.entries) {
		return nil, false
	}
	n.index = target
	return n.refreshLocked(ctx), true
}

// Refresh re-resolves the current entry, e.g. after the host state changed.
func (n *Navigator) Refresh(ctx context.Context) (*Resolution, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.index < 0 {
		return nil, false
	}
	return n.refreshLocked(ctx), true
}

func (n *Navigator) refreshLocked(ctx context.Context) *Resolution {
	cur := &n.entries[n.index]
	state := n.state
	if cur.hasState {
		state = cur.State
	}
	res := n.resolver.Resolve(ctx, n.tree.Load(), cur.Location, state)
	cur.Location = res.Location
	cur.Resolution = res
	return res
}

// Pop removes the top page of the current stack and replaces the current
// entry with the truncated stack. Nothing is rebuilt.
func (n *Navigator) Pop() (*Resolution, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.index < 0 {
		return nil, ErrPopFailed
	}
	cur := &n.entries[n.index]
	res, err := cur.Resolution.Pop()
	if err != nil {
		return nil, err
	}
	cur.Location = res.Location
	cur.Resolution = res
	return res, nil
}

// Current returns the current history entry.
func (n *Navigator) Current() (HistoryEntry, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.index < 0 {
		return HistoryEntry{}, false
	}
	return n.entries[n.index], true
}

// History returns a copy of the history and the current index (-1 if empty).
func (n *Navigator) History() ([]HistoryEntry, int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]HistoryEntry, len(n.entries))
	copy(out, n.entries)
	return out, n.index
}

// CanGoBack reports whether Back would succeed.
func (n *Navigator) CanGoBack() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.index > 0
}

// CanGoForward reports whether Forward would succeed.
func (n *Navigator) CanGoForward() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.index >= 0 && n.index < len(n.entries)-1
}
