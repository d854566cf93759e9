package crud

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vebgen/accesskit/pkg/apierr"
	"github.com/vebgen/accesskit/pkg/useapi"
)

// Permissions gate the Begin* operations of a Controller.
type Permissions struct {
	CanCreate bool `json:"can_create"`
	CanRead   bool `json:"can_read"`
	CanUpdate bool `json:"can_update"`
	CanDelete bool `json:"can_delete"`
}

// AllowAll grants every operation.
var AllowAll = Permissions{CanCreate: true, CanRead: true, CanUpdate: true, CanDelete: true}

// Controller drives a State from a list source and user operations.
//
// Each new successful result of the source replaces the data set, so local
// edits are lost on reload. Begin* operations are silently ignored when the
// matching permission is missing; the other mutations are not gated.
type Controller[T any, K comparable] struct {
	src   useapi.Source[[]T]
	key   func(T) K
	perms Permissions
	log   *slog.Logger

	mu         sync.Mutex
	state      State[T, K]
	lastResult *[]T
	subs       map[int]func(State[T, K])
	nextID     int
	unsub      func()
}

// NewController builds a Controller fed by src. If src already holds a
// result, it is loaded immediately. Call Close to detach from src.
func NewController[T any, K comparable](src useapi.Source[[]T], key func(T) K, perms Permissions, log *slog.Logger) *Controller[T, K] {
	if log == nil {
		log = slog.Default()
	}
	c := &Controller[T, K]{
		src:   src,
		key:   key,
		perms: perms,
		log:   log,
		state: NewState[T, K](),
		subs:  make(map[int]func(State[T, K])),
	}
	c.onList(src.State())
	c.unsub = src.Subscribe(c.onList)
	return c
}

// onList loads a list result the first time it is seen. Notifications that
// no longer carry the source's current result are stale and dropped, and the
// check and the load share one critical section, so an older list never
// replaces a newer one.
func (c *Controller[T, K]) onList(s useapi.State[[]T]) {
	if s.Error != nil || s.Result == nil {
		return
	}
	data := make(map[K]T, len(*s.Result))
	for _, item := range *s.Result {
		data[c.key(item)] = item
	}

	c.mu.Lock()
	if s.Result == c.lastResult || s.Result != c.src.State().Result {
		c.mu.Unlock()
		return
	}
	c.lastResult = s.Result
	st, subs := c.reduceLocked(SetData[T, K]{Data: data})
	c.mu.Unlock()

	c.log.Debug("crud: list loaded", "items", len(data))
	notify(subs, st)
}

// Permissions returns the permissions the controller was built with.
func (c *Controller[T, K]) Permissions() Permissions { return c.perms }

// BeginCreate enters create mode if creation is allowed.
func (c *Controller[T, K]) BeginCreate() bool {
	return c.gated(c.perms.CanCreate, BeginCreate{})
}

// BeginView selects key for viewing if reading is allowed.
func (c *Controller[T, K]) BeginView(key K) bool {
	return c.gated(c.perms.CanRead, BeginView[K]{Key: key})
}

// BeginEdit selects key for editing if updating is allowed.
func (c *Controller[T, K]) BeginEdit(key K) bool {
	return c.gated(c.perms.CanUpdate, BeginEdit[K]{Key: key})
}

// BeginDelete selects key for deletion if deleting is allowed.
func (c *Controller[T, K]) BeginDelete(key K) bool {
	return c.gated(c.perms.CanDelete, BeginDelete[K]{Key: key})
}

func (c *Controller[T, K]) gated(allowed bool, a Action) bool {
	if !allowed {
		c.log.Debug("crud: operation not permitted", "action", a)
		return false
	}
	c.dispatch(a)
	return true
}

// SetCurrent selects key and, when mode is not nil, switches mode.
func (c *Controller[T, K]) SetCurrent(key K, mode *Mode) {
	c.dispatch(SetCurrent[K]{Key: key, Mode: mode})
}

// ClearCurrent returns to list mode.
func (c *Controller[T, K]) ClearCurrent() { c.dispatch(ClearCurrent{}) }

// AddNewItem stores item under key.
func (c *Controller[T, K]) AddNewItem(key K, item T) {
	c.dispatch(AddNewItem[T, K]{Key: key, Item: item})
}

// EditItem moves the item at oldKey to newKey with new content.
func (c *Controller[T, K]) EditItem(oldKey, newKey K, item T) {
	c.dispatch(EditItem[T, K]{OldKey: oldKey, NewKey: newKey, Item: item})
}

// RemoveItem deletes key.
func (c *Controller[T, K]) RemoveItem(key K) { c.dispatch(RemoveItem[K]{Key: key}) }

// IsListLoading reports whether the list is being fetched.
func (c *Controller[T, K]) IsListLoading() bool { return c.src.State().Loading }

// ErrorInList returns the last list error, if any.
func (c *Controller[T, K]) ErrorInList() *apierr.Error { return c.src.State().Error }

// ReloadList fetches the list again. A successful result replaces the data.
func (c *Controller[T, K]) ReloadList(ctx context.Context) ([]T, error) {
	return c.src.Refresh(ctx)
}

// ResetList resets the list source. The data set is kept.
func (c *Controller[T, K]) ResetList() { c.src.Reset() }

// State returns a snapshot. The returned map must not be modified.
func (c *Controller[T, K]) State() State[T, K] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn to receive every new state.
func (c *Controller[T, K]) Subscribe(fn func(State[T, K])) (cancel func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Close detaches the controller from its list source.
func (c *Controller[T, K]) Close() {
	c.mu.Lock()
	unsub := c.unsub
	c.unsub = nil
	c.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (c *Controller[T, K]) dispatch(a Action) {
	c.mu.Lock()
	st, subs := c.reduceLocked(a)
	c.mu.Unlock()
	notify(subs, st)
}

// reduceLocked applies a and returns the new state with the subscribers to
// notify once c.mu is released.
func (c *Controller[T, K]) reduceLocked(a Action) (State[T, K], []func(State[T, K])) {
	c.state = Reduce(c.state, a)
	subs := make([]func(State[T, K]), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	return c.state, subs
}

func notify[T any, K comparable](subs []func(State[T, K]), s State[T, K]) {
	for _, fn := range subs {
		fn(s)
	}
}
