package host

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/mgomes/luabridge/variant"
)

// Binding is the script-side state attached to an object. The object notifies
// it when it is freed so the binding can tear itself down.
type Binding interface {
	OwnerFreed(ctx context.Context)
}

// Object is a native object that can be exposed to scripts. Implementations
// usually embed Base (or RefCounted) and override ClassName.
type Object interface {
	variant.Object
	ObjectID() uuid.UUID
	Binding() Binding
	SetBinding(b Binding)
	Free(ctx context.Context)
	Freed() bool
}

// Referenced is an Object whose lifetime is governed by a reference count.
type Referenced interface {
	Object
	Reference()
	// Unreference drops one reference and reports whether the count reached
	// zero.
	Unreference() bool
	RefCount() int
}

// Base implements the bookkeeping shared by every Object.
type Base struct {
	idOnce  sync.Once
	id      uuid.UUID
	mu      sync.Mutex
	binding Binding
	freed   bool
}

func (b *Base) ClassName() string { return "Object" }

func (b *Base) ObjectID() uuid.UUID {
	b.idOnce.Do(func() { b.id = uuid.New() })
	return b.id
}

func (b *Base) Binding() Binding {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.binding
}

func (b *Base) SetBinding(binding Binding) {
	b.mu.Lock()
	b.binding = binding
	b.mu.Unlock()
}

func (b *Base) Freed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.freed
}

// Free marks the object dead and notifies its binding. Repeated calls are
// no-ops.
func (b *Base) Free(ctx context.Context) {
	b.mu.Lock()
	if b.freed {
		b.mu.Unlock()
		return
	}
	b.freed = true
	binding := b.binding
	b.mu.Unlock()

	if binding != nil {
		binding.OwnerFreed(ctx)
	}
}

// RefCounted is a Base whose count starts at zero. Holders call Reference
// and Unreference; whoever drops the last reference frees the object.
type RefCounted struct {
	Base
	refs atomic.Int32
}

func (r *RefCounted) ClassName() string { return "RefCounted" }

func (r *RefCounted) Reference() { r.refs.Add(1) }

func (r *RefCounted) Unreference() bool {
	return r.refs.Add(-1) <= 0
}

func (r *RefCounted) RefCount() int { return int(r.refs.Load()) }

// Release drops one reference and frees the object when none remain.
func Release(ctx context.Context, obj Referenced) {
	if obj.Unreference() {
		obj.Free(ctx)
	}
}
