package bridge

import "fmt"

// Handle is a generation-checked key into an Arena. A handle stays valid
// until it is released; after that every use reports ErrStaleHandle, even
// when the slot has been reused.
type Handle struct {
	index uint32
	gen   uint32
}

// NoReference is the unset handle. It never resolves.
var NoReference Handle

func (h Handle) Valid() bool { return h.gen != 0 }

func (h Handle) String() string {
	if !h.Valid() {
		return "handle(none)"
	}
	return fmt.Sprintf("handle(%d#%d)", h.index, h.gen)
}

type slot[T any] struct {
	value T
	gen   uint32
	live  bool
}

// Arena owns values referenced by handles. It is not safe for concurrent
// use; the runtime only touches it while holding its guard.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int

	// onRelease runs before a slot is cleared.
	onRelease func(Handle, T)
}

func NewArena[T any]() *Arena[T] {
	return &Arena[T]{}
}

func (a *Arena[T]) Register(value T) Handle {
	a.live++
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.value = value
		s.live = true
		return Handle{index: idx, gen: s.gen}
	}
	a.slots = append(a.slots, slot[T]{value: value, gen: 1, live: true})
	return Handle{index: uint32(len(a.slots) - 1), gen: 1}
}

func (a *Arena[T]) lookup(h Handle) (*slot[T], error) {
	if !h.Valid() || int(h.index) >= len(a.slots) {
		return nil, fmt.Errorf("%w: %s", ErrStaleHandle, h)
	}
	s := &a.slots[h.index]
	if !s.live || s.gen != h.gen {
		return nil, fmt.Errorf("%w: %s", ErrStaleHandle, h)
	}
	return s, nil
}

func (a *Arena[T]) Resolve(h Handle) (T, error) {
	s, err := a.lookup(h)
	if err != nil {
		var zero T
		return zero, err
	}
	return s.value, nil
}

// Update replaces the value behind a live handle.
func (a *Arena[T]) Update(h Handle, value T) error {
	s, err := a.lookup(h)
	if err != nil {
		return err
	}
	s.value = value
	return nil
}

func (a *Arena[T]) Release(h Handle) error {
	s, err := a.lookup(h)
	if err != nil {
		return err
	}
	if a.onRelease != nil {
		a.onRelease(h, s.value)
	}
	var zero T
	s.value = zero
	s.live = false
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	a.free = append(a.free, h.index)
	a.live--
	return nil
}

// Len returns the number of live handles.
func (a *Arena[T]) Len() int { return a.live }
