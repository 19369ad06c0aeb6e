package bridge

import (
	"sync"
	"time"

	"github.com/vk/flowbridge/internal/workflow"
)

// rowBuffer collects data rows between debounce flushes. A single timer is
// armed by the first row of a batch.
type rowBuffer struct {
	mu    sync.Mutex
	rows  []workflow.DataRow
	timer *time.Timer
}

// add buffers row and reports whether a flush must be scheduled.
func (r *rowBuffer) add(row workflow.DataRow) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, row)
	return r.timer == nil
}

func (r *rowBuffer) schedule(d time.Duration, fire func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer == nil {
		r.timer = time.AfterFunc(d, fire)
	}
}

// take returns the buffered rows and disarms the timer.
func (r *rowBuffer) take() []workflow.DataRow {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.rows
	r.rows = nil
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	return rows
}

func (r *rowBuffer) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *rowBuffer) discard() {
	r.stop()
	r.mu.Lock()
	r.rows = nil
	r.mu.Unlock()
}
