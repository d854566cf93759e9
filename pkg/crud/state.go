// Package crud keeps a keyed in-memory copy of a remote list together with
// a cursor telling which item the user is working on and how.
package crud

import "maps"

// Mode is what the user is doing with the current item.
type Mode string

// Modes. ModeList and ModeCreate normally go with no current item, the
// others with one. Reduce does not enforce the pairing.
const (
	ModeList   Mode = "list"
	ModeView   Mode = "view"
	ModeEdit   Mode = "edit"
	ModeDelete Mode = "delete"
	ModeCreate Mode = "create"
)

// State is the list snapshot and cursor.
type State[T any, K comparable] struct {
	Data    map[K]T `json:"data"`
	Current *K      `json:"current"`
	Mode    Mode    `json:"mode"`
}

// NewState returns the initial state: empty data, no current item, list mode.
func NewState[T any, K comparable]() State[T, K] {
	return State[T, K]{Data: map[K]T{}, Mode: ModeList}
}

// Action is implemented by the action types of this package.
type Action interface {
	crudAction()
}

type (
	// BeginCreate clears the current item and enters create mode.
	BeginCreate struct{}
	// BeginView selects Key in view mode.
	BeginView[K comparable] struct{ Key K }
	// BeginEdit selects Key in edit mode.
	BeginEdit[K comparable] struct{ Key K }
	// BeginDelete selects Key in delete mode.
	BeginDelete[K comparable] struct{ Key K }
	// SetCurrent selects Key, switching to Mode when it is not nil.
	SetCurrent[K comparable] struct {
		Key  K
		Mode *Mode
	}
	// ClearCurrent drops the selection and returns to list mode.
	ClearCurrent struct{}
	// SetData replaces the whole data set.
	SetData[T any, K comparable] struct{ Data map[K]T }
	// AddNewItem inserts or overwrites Key.
	AddNewItem[T any, K comparable] struct {
		Key  K
		Item T
	}
	// EditItem stores Item under NewKey and removes OldKey when the key
	// changed. A missing OldKey is not an error.
	EditItem[T any, K comparable] struct {
		OldKey K
		NewKey K
		Item   T
	}
	// RemoveItem deletes Key if present.
	RemoveItem[K comparable] struct{ Key K }
)

func (BeginCreate) crudAction()      {}
func (BeginView[K]) crudAction()     {}
func (BeginEdit[K]) crudAction()     {}
func (BeginDelete[K]) crudAction()   {}
func (SetCurrent[K]) crudAction()    {}
func (ClearCurrent) crudAction()     {}
func (SetData[T, K]) crudAction()    {}
func (AddNewItem[T, K]) crudAction() {}
func (EditItem[T, K]) crudAction()   {}
func (RemoveItem[K]) crudAction()    {}

// Reduce returns the state that results from applying a to s. The data map
// of s is never modified; a new map is built whenever data changes. Actions
// whose type parameters do not match are ignored.
func Reduce[T any, K comparable](s State[T, K], a Action) State[T, K] {
	switch a := a.(type) {
	case BeginCreate:
		s.Current, s.Mode = nil, ModeCreate
	case BeginView[K]:
		s.Current, s.Mode = keyRef(a.Key), ModeView
	case BeginEdit[K]:
		s.Current, s.Mode = keyRef(a.Key), ModeEdit
	case BeginDelete[K]:
		s.Current, s.Mode = keyRef(a.Key), ModeDelete
	case SetCurrent[K]:
		s.Current = keyRef(a.Key)
		if a.Mode != nil {
			s.Mode = *a.Mode
		}
	case ClearCurrent:
		s.Current, s.Mode = nil, ModeList
	case SetData[T, K]:
		s.Data = maps.Clone(a.Data)
		if s.Data == nil {
			s.Data = map[K]T{}
		}
	case AddNewItem[T, K]:
		s.Data = cloneData(s.Data)
		s.Data[a.Key] = a.Item
	case EditItem[T, K]:
		s.Data = cloneData(s.Data)
		if a.OldKey != a.NewKey {
			delete(s.Data, a.OldKey)
		}
		s.Data[a.NewKey] = a.Item
	case RemoveItem[K]:
		if _, ok := s.Data[a.Key]; ok {
			s.Data = cloneData(s.Data)
			delete(s.Data, a.Key)
		}
	}
	return s
}

func keyRef[K comparable](k K) *K { return &k }

func cloneData[T any, K comparable](m map[K]T) map[K]T {
	out := make(map[K]T, len(m)+1)
	maps.Copy(out, m)
	return out
}
