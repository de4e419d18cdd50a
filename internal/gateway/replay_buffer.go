package gateway

import "sync"

// broadcastRecord is one retained envelope, keyed by its channel sequence.
type broadcastRecord struct {
	seq      int64
	envelope []byte
}

// ReplayBuffer retains the most recent envelopes broadcast on one signal
// channel so a reconnecting dashboard can backfill a sequence gap through
// /api/missed instead of replaying the whole stream. Fixed capacity, oldest
// record evicted first. Safe for concurrent use.
type ReplayBuffer struct {
	mu      sync.RWMutex
	records []broadcastRecord
	head    int // index of the oldest record
	size    int
}

// NewReplayBuffer creates a buffer retaining up to capacity envelopes.
func NewReplayBuffer(capacity int) *ReplayBuffer {
	if capacity <= 0 {
		capacity = 500
	}
	return &ReplayBuffer{records: make([]broadcastRecord, capacity)}
}

// Push retains an envelope under its channel sequence, evicting the oldest
// record at capacity. The bytes are copied; the broadcast slice is shared
// with every subscribed client.
func (rb *ReplayBuffer) Push(seq int64, envelope []byte) {
	cp := make([]byte, len(envelope))
	copy(cp, envelope)

	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.size < len(rb.records) {
		rb.records[(rb.head+rb.size)%len(rb.records)] = broadcastRecord{seq: seq, envelope: cp}
		rb.size++
		return
	}
	rb.records[rb.head] = broadcastRecord{seq: seq, envelope: cp}
	rb.head = (rb.head + 1) % len(rb.records)
}

// Between returns the retained envelopes with sequence in [from, to],
// oldest first.
func (rb *ReplayBuffer) Between(from, to int64) [][]byte {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	var out [][]byte
	for i := 0; i < rb.size; i++ {
		r := rb.records[(rb.head+i)%len(rb.records)]
		if r.seq >= from && r.seq <= to {
			out = append(out, r.envelope)
		}
	}
	return out
}

// Len returns the number of retained envelopes.
func (rb *ReplayBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size
}

// OldestSeq returns the sequence of the oldest retained envelope, or 0 when
// empty. A backfill request starting below it cannot be fully served.
func (rb *ReplayBuffer) OldestSeq() int64 {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	if rb.size == 0 {
		return 0
	}
	return rb.records[rb.head].seq
}
