package auditsink

import (
	"context"
	"sync"

	"github.com/bizcore/backend/internal/domain/audit"
)

type bufferKey struct{}

// Buffer collects audit events for one unit of work in arrival order.
type Buffer struct {
	mu     sync.Mutex
	events []*audit.Event
}

// Append adds an event to the end of the buffer
func (b *Buffer) Append(event *audit.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

// Drain returns the buffered events in FIFO order and empties the buffer
func (b *Buffer) Drain() []*audit.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := b.events
	b.events = nil
	return events
}

// TruncateTo drops events appended after the given watermark. The
// transaction helper uses it to discard a rolled back unit's events while
// keeping what an enclosing transaction already buffered.
func (b *Buffer) TruncateTo(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n < 0 {
		n = 0
	}
	if n < len(b.events) {
		b.events = b.events[:n]
	}
}

// Len returns the number of buffered events
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// WithBuffer attaches a fresh event buffer to the context. The transaction
// helper installs one per unit of work; nested transactions reuse the
// outermost buffer so events flush exactly once.
func WithBuffer(ctx context.Context) (context.Context, *Buffer) {
	if buf, ok := BufferFrom(ctx); ok {
		return ctx, buf
	}
	buf := &Buffer{}
	return context.WithValue(ctx, bufferKey{}, buf), buf
}

// BufferFrom returns the buffer attached to the context, if any
func BufferFrom(ctx context.Context) (*Buffer, bool) {
	buf, ok := ctx.Value(bufferKey{}).(*Buffer)
	return buf, ok
}
