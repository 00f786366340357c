package flow

import (
	"hash/fnv"
	"sync"
)

// userLocks is a small fixed-size stripe of mutexes keyed by user id, giving single-writer
// serialization per user without one lock per user id. Mirrors the per-thread serialization
// gateway.Gateway already does for inbound turns, applied here to flow-state mutation.
type userLocks struct {
	stripes [64]sync.Mutex
}

func (u *userLocks) lock(userID string) (unlock func()) {
	h := fnv.New32a()
	h.Write([]byte(userID))
	idx := h.Sum32() % uint32(len(u.stripes))
	u.stripes[idx].Lock()
	return u.stripes[idx].Unlock
}
