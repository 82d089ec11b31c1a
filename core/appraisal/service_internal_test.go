package appraisal

import (
	"sync"
	"testing"
)

func TestLockLifecycle(t *testing.T) {
	svc := &service{locks: make(map[int]*sync.Mutex)}

	unlock := svc.lock(7)
	unlock()
	if len(svc.locks) != 1 {
		t.Fatalf("lock entries = %d; want 1", len(svc.locks))
	}

	svc.releaseLock(7)
	if len(svc.locks) != 0 {
		t.Fatalf("lock entries = %d after release; want 0", len(svc.locks))
	}

	// a released ID can be locked again
	svc.lock(7)()
}
