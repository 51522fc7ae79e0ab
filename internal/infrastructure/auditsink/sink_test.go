package auditsink

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bizcore/backend/internal/domain/audit"
)

type fakeWriter struct {
	batches [][]*audit.Event
	err     error
}

func (w *fakeWriter) WriteEvents(_ context.Context, events []*audit.Event) error {
	if w.err != nil {
		return w.err
	}
	w.batches = append(w.batches, events)
	return nil
}

func mustEvent(t *testing.T, description string) *audit.Event {
	t.Helper()
	e, err := audit.NewEvent(audit.CategoryData, audit.ActionUpdate, "items")
	require.NoError(t, err)
	return e.WithDescription(description)
}

func TestDeferredSink(t *testing.T) {
	t.Run("buffers inside a unit of work", func(t *testing.T) {
		w := &fakeWriter{}
		sink := NewDeferredSink(w, zap.NewNop())
		ctx, buf := WithBuffer(context.Background())

		sink.Record(ctx, mustEvent(t, "first"))
		sink.Record(ctx, mustEvent(t, "second"))

		assert.Empty(t, w.batches)
		assert.Equal(t, 2, buf.Len())
	})

	t.Run("writes immediately without a buffer", func(t *testing.T) {
		w := &fakeWriter{}
		sink := NewDeferredSink(w, zap.NewNop())

		sink.Record(context.Background(), mustEvent(t, "standalone"))

		require.Len(t, w.batches, 1)
		require.Len(t, w.batches[0], 1)
		assert.Equal(t, "standalone", w.batches[0][0].Description)
	})

	t.Run("ignores nil events", func(t *testing.T) {
		w := &fakeWriter{}
		sink := NewDeferredSink(w, zap.NewNop())
		sink.Record(context.Background(), nil)
		assert.Empty(t, w.batches)
	})
}

func TestFlush(t *testing.T) {
	t.Run("flushes in arrival order and empties the buffer", func(t *testing.T) {
		w := &fakeWriter{}
		sink := NewDeferredSink(w, zap.NewNop())
		ctx, buf := WithBuffer(context.Background())

		sink.Record(ctx, mustEvent(t, "one"))
		sink.Record(ctx, mustEvent(t, "two"))
		sink.Record(ctx, mustEvent(t, "three"))

		Flush(ctx, w, zap.NewNop())

		require.Len(t, w.batches, 1)
		batch := w.batches[0]
		require.Len(t, batch, 3)
		assert.Equal(t, "one", batch[0].Description)
		assert.Equal(t, "two", batch[1].Description)
		assert.Equal(t, "three", batch[2].Description)
		assert.Equal(t, 0, buf.Len())
	})

	t.Run("write failure is swallowed", func(t *testing.T) {
		w := &fakeWriter{err: errors.New("db down")}
		sink := NewDeferredSink(w, zap.NewNop())
		ctx, _ := WithBuffer(context.Background())
		sink.Record(ctx, mustEvent(t, "doomed"))

		assert.NotPanics(t, func() {
			Flush(ctx, w, zap.NewNop())
		})
	})

	t.Run("no-op without buffer or events", func(t *testing.T) {
		w := &fakeWriter{}
		Flush(context.Background(), w, zap.NewNop())

		ctx, _ := WithBuffer(context.Background())
		Flush(ctx, w, zap.NewNop())
		assert.Empty(t, w.batches)
	})
}

func TestBufferTruncateTo(t *testing.T) {
	ctx, buf := WithBuffer(context.Background())
	sink := NewDeferredSink(&fakeWriter{}, zap.NewNop())

	sink.Record(ctx, mustEvent(t, "outer"))
	mark := buf.Len()
	sink.Record(ctx, mustEvent(t, "inner one"))
	sink.Record(ctx, mustEvent(t, "inner two"))

	buf.TruncateTo(mark)

	events := buf.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, "outer", events[0].Description)

	t.Run("watermark past the end is a no-op", func(t *testing.T) {
		sink.Record(ctx, mustEvent(t, "kept"))
		buf.TruncateTo(10)
		assert.Equal(t, 1, buf.Len())
	})

	t.Run("negative watermark empties the buffer", func(t *testing.T) {
		buf.TruncateTo(-1)
		assert.Equal(t, 0, buf.Len())
	})
}

func TestWithBufferReuse(t *testing.T) {
	ctx, outer := WithBuffer(context.Background())
	ctx2, inner := WithBuffer(ctx)

	// Nested units of work share the outermost buffer.
	assert.Same(t, outer, inner)
	assert.Equal(t, ctx, ctx2)
}

func TestImmediateSink(t *testing.T) {
	t.Run("writes even inside a unit of work", func(t *testing.T) {
		w := &fakeWriter{}
		sink := NewImmediateSink(w, zap.NewNop())
		ctx, buf := WithBuffer(context.Background())

		sink.Record(ctx, mustEvent(t, "denied access"))

		require.Len(t, w.batches, 1)
		assert.Equal(t, 0, buf.Len())
	})

	t.Run("failure is swallowed", func(t *testing.T) {
		sink := NewImmediateSink(&fakeWriter{err: errors.New("unreachable")}, zap.NewNop())
		assert.NotPanics(t, func() {
			sink.Record(context.Background(), mustEvent(t, "lost"))
		})
	})
}
