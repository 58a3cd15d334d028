// Package frontier holds the crawl queue and the dedup set that keeps a
// (method, url) pair from being fetched twice. It is grounded on the
// teacher's channel-based crawl queue (pkg/crawler.Crawler.queue/visited)
// but replaces the polling default-case loop with a condition variable so
// Pop can block correctly until either new work arrives or every worker has
// gone idle with nothing left to do.
package frontier

import (
	"sync"

	"github.com/endabyss/endabyss/internal/model"
)

// Frontier is a FIFO task queue plus a visited set keyed on (method,
// canonical dedup url). Push is idempotent: pushing an already-visited key
// is a silent no-op. Pop blocks while the queue is empty and at least one
// worker is still in flight; it returns ok=false once the queue is empty
// and no worker is in flight, signalling every worker to exit.
type Frontier struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    []model.Task
	visited  map[dedupKey]bool
	inFlight int
	closed   bool
}

type dedupKey struct {
	method string
	url    string
}

// New builds an empty Frontier.
func New() *Frontier {
	f := &Frontier{visited: make(map[dedupKey]bool)}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Push enqueues task unless (method, dedupURL) was already seen. dedupURL
// should be the frontier dedup key produced by internal/urlnorm.DedupKey,
// not necessarily task.URL verbatim (query parameter order, for example,
// is irrelevant to identity but must be preserved in the fetched URL).
func (f *Frontier) Push(task model.Task, dedupURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	key := dedupKey{method: task.Method, url: dedupURL}
	if f.visited[key] {
		return false
	}
	f.visited[key] = true
	f.queue = append(f.queue, task)
	f.cond.Signal()
	return true
}

// markInFlight records that a worker is about to process a task; Pop calls
// it for every task it hands out. Callers must call Done exactly once for
// every successful Pop.
func (f *Frontier) markInFlight() {
	f.inFlight++
}

// Pop removes and returns the next task. It blocks while the queue is
// empty and inFlight > 0 (more work may still be produced by an in-flight
// fetch); it returns ok=false once the queue is empty and inFlight == 0,
// meaning the crawl is finished.
func (f *Frontier) Pop() (task model.Task, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		if len(f.queue) > 0 {
			task = f.queue[0]
			f.queue = f.queue[1:]
			f.markInFlight()
			return task, true
		}
		if f.inFlight == 0 || f.closed {
			return model.Task{}, false
		}
		f.cond.Wait()
	}
}

// Done marks one previously-popped task as finished. It must be called
// exactly once per successful Pop, after any resulting Push calls have
// already happened, so a worker that discovers new tasks doesn't cause a
// spurious "frontier drained" signal to fire between the push and the
// decrement.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	f.cond.Broadcast()
}

// Close forcibly drains the frontier, causing every blocked and future
// Pop to return ok=false. Used on cancellation.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.cond.Broadcast()
}

// Len reports the number of queued (not yet popped) tasks.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Visited reports how many distinct (method, dedupURL) identities have
// been pushed, including ones already popped and processed.
func (f *Frontier) Visited() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited)
}
