package deployer

import "sync"

// projectLocks serializes deployments per project ID without blocking: a
// second deploy of the same project is rejected, not queued.
type projectLocks struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func newProjectLocks() *projectLocks {
	return &projectLocks{active: make(map[string]struct{})}
}

// tryAcquire claims the project, reporting false if already claimed.
func (l *projectLocks) tryAcquire(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.active[id]; held {
		return false
	}
	l.active[id] = struct{}{}
	return true
}

func (l *projectLocks) release(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, id)
}
