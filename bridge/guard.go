package bridge

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/mgomes/luabridge/host"
	"github.com/mgomes/luabridge/variant"
)

// guard serializes access to one runtime. The outermost entry takes the
// runtime lock and opens a session; the session travels in the context so
// that host code called from a script can re-enter the runtime.
//
// Within a session, the goroutine driving the script state holds the
// session's turn. Host code is always called with the turn released (see
// yield), so any goroutine sharing the session context, including the one
// that made the host call, queues on the turn instead of racing on the
// script state.
type guard struct {
	mu      sync.Mutex
	current atomic.Pointer[session]

	// drain runs at the outermost entry and exit, with the turn held.
	drain func()
}

type sessionKey struct{ g *guard }

type session struct {
	ctx context.Context

	// turn is held while a goroutine drives the session; resumed signals
	// every time depth drops.
	turn    sync.Mutex
	resumed *sync.Cond

	depth  int
	keep   []variant.Value
	closed bool
}

// callToken is one level of nesting inside a session. The outermost token
// owns the session's keep-alive pool.
type callToken struct {
	g *guard
	s *session
	// owned is set when the token took the turn itself.
	owned bool
	done  bool
}

func newGuard(drain func()) *guard {
	return &guard{drain: drain}
}

// enter joins the session carried by ctx, or starts a new one. Joining
// waits for the session's turn.
func (g *guard) enter(ctx context.Context) (context.Context, *callToken) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s, ok := ctx.Value(sessionKey{g}).(*session); ok {
		s.turn.Lock()
		if !s.closed {
			s.depth++
			return ctx, &callToken{g: g, s: s, owned: true}
		}
		s.turn.Unlock()
	}

	g.mu.Lock()
	s := &session{depth: 1}
	s.resumed = sync.NewCond(&s.turn)
	s.ctx = context.WithValue(ctx, sessionKey{g}, s)
	s.turn.Lock()
	g.current.Store(s)
	if g.drain != nil {
		g.drain()
	}
	return s.ctx, &callToken{g: g, s: s, owned: true}
}

// nest joins the active session from a function the script runtime invoked.
// Such functions only ever run on the goroutine holding the turn.
func (g *guard) nest() (context.Context, *callToken) {
	s := g.current.Load()
	if s == nil {
		panic("bridge: script callback outside of a runtime session")
	}
	s.depth++
	return s.ctx, &callToken{g: g, s: s}
}

// yield runs fn, which calls into host code, with the turn released. It
// resumes only after every entry made in the meantime has left, so calls on
// the shared script stack stay strictly nested.
func (g *guard) yield(fn func()) {
	s := g.current.Load()
	if s == nil {
		fn()
		return
	}
	depth := s.depth
	s.turn.Unlock()
	defer func() {
		s.turn.Lock()
		for s.depth > depth {
			s.resumed.Wait()
		}
	}()
	fn()
}

// depth reports the nesting depth of the active session, or 0.
func (g *guard) depth() int {
	if s := g.current.Load(); s != nil {
		return s.depth
	}
	return 0
}

// retain keeps v alive until the outermost token leaves.
func (t *callToken) retain(v variant.Value) {
	if ref, ok := v.Object().(host.Referenced); ok {
		ref.Reference()
	}
	t.s.keep = append(t.s.keep, v)
}

func (t *callToken) leave() {
	if t.done {
		return
	}
	t.done = true
	s := t.s
	if s.depth > 1 {
		s.depth--
		s.resumed.Broadcast()
		if t.owned {
			s.turn.Unlock()
		}
		return
	}

	// Frees below may re-enter the runtime; they join this session.
	for len(s.keep) > 0 {
		keep := s.keep
		s.keep = nil
		t.g.yield(func() {
			for _, v := range keep {
				if ref, ok := v.Object().(host.Referenced); ok {
					host.Release(s.ctx, ref)
				}
			}
		})
	}
	if t.g.drain != nil {
		t.g.drain()
	}
	s.depth = 0
	s.closed = true
	t.g.current.Store(nil)
	s.turn.Unlock()
	t.g.mu.Unlock()
}
