// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keytypes.
//
// go-keytypes is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.


package keychain

import "sync"

// labelLocks serializes operations on the same label. Entries are reference
// counted and dropped when the last holder unlocks.
type labelLocks struct {
	mu    sync.Mutex
	locks map[string]*labelLock
}

type labelLock struct {
	mu   sync.Mutex
	refs int
}

func newLabelLocks() *labelLocks {
	return &labelLocks{locks: make(map[string]*labelLock)}
}

// lock acquires the lock for name and returns its release function.
func (l *labelLocks) lock(name string) func() {
	l.mu.Lock()
	ll, ok := l.locks[name]
	if !ok {
		ll = &labelLock{}
		l.locks[name] = ll
	}
	ll.refs++
	l.mu.Unlock()

	ll.mu.Lock()
	return func() {
		ll.mu.Unlock()
		l.mu.Lock()
		ll.refs--
		if ll.refs == 0 {
			delete(l.locks, name)
		}
		l.mu.Unlock()
	}
}

func (l *labelLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
