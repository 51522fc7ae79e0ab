package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bizcore/backend/internal/domain/audit"
	"github.com/bizcore/backend/internal/tenantctx"
)

// EventStore is the slice of the audit repository the archiver needs:
// paged reads plus retention cleanup.
type EventStore interface {
	List(ctx context.Context, filter audit.Filter) ([]audit.Event, int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Archiver exports audit events older than the retention period to object
// storage as gzipped NDJSON and removes them from the database afterwards.
// Events are only deleted once the upload has succeeded.
type Archiver struct {
	events    EventStore
	store     ObjectStore
	prefix    string
	retention time.Duration
	pageSize  int
	logger    *zap.Logger
}

// NewArchiver creates an audit archiver. Retention must be positive.
func NewArchiver(events EventStore, store ObjectStore, prefix string, retention time.Duration, logger *zap.Logger) (*Archiver, error) {
	if events == nil || store == nil {
		return nil, errors.New("event store and object store are required")
	}
	if retention <= 0 {
		return nil, errors.New("retention period must be positive")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "audit-archive"
	}
	return &Archiver{
		events:    events,
		store:     store,
		prefix:    prefix,
		retention: retention,
		pageSize:  200,
		logger:    logger,
	}, nil
}

// Run performs one archive cycle: export everything older than the retention
// cutoff, then delete it. Returns the number of events archived. A run with
// nothing to archive uploads nothing and returns zero.
func (a *Archiver) Run(ctx context.Context) (int, error) {
	// the archive spans all tenants, so reads run unscoped
	ctx = tenantctx.Bypass(ctx)
	cutoff := time.Now().Add(-a.retention)

	archived, err := a.collect(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(archived) == 0 {
		return 0, nil
	}

	key := a.objectKey(cutoff)
	payload, err := encodeArchive(archived)
	if err != nil {
		return 0, fmt.Errorf("encode archive: %w", err)
	}
	if err := a.store.Upload(ctx, key, payload, "application/gzip"); err != nil {
		return 0, fmt.Errorf("upload archive: %w", err)
	}

	deleted, err := a.events.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		// the export exists but the rows remain; the next run re-archives them
		a.logger.Error("archived events could not be deleted",
			zap.String("key", key),
			zap.Error(err))
		return len(archived), err
	}

	a.logger.Info("audit archive written",
		zap.String("key", key),
		zap.Int("archived", len(archived)),
		zap.Int64("deleted", deleted))
	return len(archived), nil
}

func (a *Archiver) collect(ctx context.Context, cutoff time.Time) ([]audit.Event, error) {
	var all []audit.Event
	filter := audit.Filter{To: &cutoff, PageSize: a.pageSize}
	for page := 1; ; page++ {
		filter.Page = page
		events, total, err := a.events.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list events for archive: %w", err)
		}
		all = append(all, events...)
		if len(events) == 0 || int64(len(all)) >= total {
			break
		}
	}
	return all, nil
}

func (a *Archiver) objectKey(cutoff time.Time) string {
	return fmt.Sprintf("%s/%s/audit-%s.ndjson.gz",
		a.prefix,
		cutoff.UTC().Format("2006/01"),
		cutoff.UTC().Format("20060102T150405Z"))
}

func encodeArchive(events []audit.Event) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := json.NewEncoder(gz)
	for i := range events {
		if err := enc.Encode(&events[i]); err != nil {
			return nil, err
		}
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
