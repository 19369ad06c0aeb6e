package bridge

import (
	"context"
	"sync"
	"time"
)

// pendingSet tracks capability requests awaiting their one result. Each
// entry resolves at most once, by the handler or by its deadline. Resolving
// or dropping an entry cancels the context its handler runs under.
type pendingSet struct {
	mu      sync.Mutex
	handles map[string]pendingHandle
	closed  bool
}

type pendingHandle struct {
	timer  *time.Timer
	cancel context.CancelFunc
}

func (h pendingHandle) stop() {
	h.timer.Stop()
	if h.cancel != nil {
		h.cancel()
	}
}

func newPendingSet() *pendingSet {
	return &pendingSet{handles: make(map[string]pendingHandle)}
}

// add registers id with a deadline and the cancel func of its handler
// context. It reports false when id is already pending or the set is closed.
func (p *pendingSet) add(id string, timeout time.Duration, cancel context.CancelFunc, onExpire func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	if _, exists := p.handles[id]; exists {
		return false
	}
	p.handles[id] = pendingHandle{timer: time.AfterFunc(timeout, onExpire), cancel: cancel}
	return true
}

// resolve removes id and reports whether the caller won the right to answer.
func (p *pendingSet) resolve(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	h, ok := p.handles[id]
	if !ok {
		return false
	}
	h.stop()
	delete(p.handles, id)
	return true
}

// closeAll drops every handle without answering and returns how many there
// were.
func (p *pendingSet) closeAll() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.handles)
	for id, h := range p.handles {
		h.stop()
		delete(p.handles, id)
	}
	p.closed = true
	return n
}

func (p *pendingSet) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handles)
}
