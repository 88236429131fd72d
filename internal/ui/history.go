package ui

import (
	"sync"
	"time"

	"github.com/SpideyPotter/InsightEye/pkg/types"
)

const (
	defaultHistorySize = 200
	subscriberBuffer   = 16
)

// History stores recent view snapshots, assigns their sequence numbers and
// fans them out to subscribers.
type History struct {
	mu      sync.RWMutex
	nextSeq int64
	max     int
	views   []types.View
	subs    map[chan types.View]struct{}
}

// NewHistory creates a bounded in-memory snapshot buffer.
func NewHistory(max int) *History {
	if max <= 0 {
		max = defaultHistorySize
	}
	return &History{
		max:   max,
		views: make([]types.View, 0, max),
		subs:  make(map[chan types.View]struct{}),
	}
}

// Append assigns the next sequence number and timestamp to v and stores it.
func (b *History) Append(v types.View) types.View {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	v.Seq = b.nextSeq
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = time.Now().UTC()
	}
	b.views = append(b.views, v)
	if len(b.views) > b.max {
		trim := len(b.views) - b.max
		b.views = append([]types.View(nil), b.views[trim:]...)
	}
	for ch := range b.subs {
		select {
		case ch <- v:
		default:
			// slow subscriber: drop its oldest snapshot to make room
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
	return v
}

// Since returns snapshots with sequence strictly greater than seq.
func (b *History) Since(seq int64) []types.View {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.views) == 0 {
		return nil
	}
	out := make([]types.View, 0, len(b.views))
	for _, v := range b.views {
		if v.Seq > seq {
			out = append(out, v)
		}
	}
	return out
}

// Seq is the sequence number of the newest snapshot.
func (b *History) Seq() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nextSeq
}

// Subscribe returns a channel of future snapshots and a cancel func that
// closes it.
func (b *History) Subscribe() (<-chan types.View, func()) {
	ch := make(chan types.View, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}
