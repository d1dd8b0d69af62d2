package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/bastion/id"
)

type recordingStore struct {
	entries []*Entry
}

func (r *recordingStore) CreateAuditEntry(_ context.Context, e *Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

func (r *recordingStore) GetAuditEntry(context.Context, id.AuditID) (*Entry, error) {
	return nil, errors.New("not implemented")
}

func (r *recordingStore) ListAuditEntries(context.Context, *QueryFilter) ([]*Entry, error) {
	return r.entries, nil
}

func (r *recordingStore) CountAuditEntries(context.Context, *QueryFilter) (int64, error) {
	return int64(len(r.entries)), nil
}

func (r *recordingStore) PurgeAuditEntries(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func TestStoreSinkFillsIdentity(t *testing.T) {
	rs := &recordingStore{}
	sink := NewStoreSink(rs)

	require.NoError(t, sink.Record(context.Background(), &Entry{Kind: KindCheck, Decision: "deny_no_permission"}))
	require.Len(t, rs.entries, 1)
	assert.Equal(t, id.PrefixAudit, rs.entries[0].ID.Prefix())
	assert.False(t, rs.entries[0].CreatedAt.IsZero())
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := sink.Record(context.Background(), &Entry{Kind: KindGrant, Module: "asekuracja"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"kind":"grant"`)
	assert.Contains(t, buf.String(), `"module":"asekuracja"`)
}

func TestMultiAttemptsAllSinks(t *testing.T) {
	rs := &recordingStore{}
	boom := errors.New("boom")
	failing := SinkFunc(func(context.Context, *Entry) error { return boom })

	err := Multi(failing, NewStoreSink(rs), Discard).Record(context.Background(), &Entry{Kind: KindRevoke})
	require.ErrorIs(t, err, boom)
	assert.Len(t, rs.entries, 1)
}
