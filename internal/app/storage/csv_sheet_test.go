package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ringi/internal/app/sheet"
)

type memObjects struct {
	objects map[string][]byte
	err     error
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}}
}

func (m *memObjects) ObjectExists(_ context.Context, name string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.objects[name]
	return ok, nil
}

func (m *memObjects) ReadObject(_ context.Context, name string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.objects[name]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return data, nil
}

func (m *memObjects) ObjectURL(_ context.Context, name string, ttl time.Duration) (string, error) {
	return "http://minio.local/ringi/" + name + "?expires=" + ttl.String(), nil
}

func (m *memObjects) WriteObject(_ context.Context, name string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.objects[name] = append([]byte(nil), data...)
	return nil
}

func TestCSV_QuotesAndBlankRows(t *testing.T) {
	rows := []sheet.Row{
		{"id", "title", "description"},
		{},
		{"APR_1", `Monitor 27"`, "line one\nline two, with comma"},
		{"APR_2"},
	}
	data, err := encodeCSV(rows)
	require.NoError(t, err)

	decoded, err := decodeCSV(data)
	require.NoError(t, err)
	require.Len(t, decoded, 4)
	require.Equal(t, rows[0], decoded[0])
	require.Equal(t, sheet.Row{"", ""}, decoded[1])
	require.Equal(t, rows[2], decoded[2])
	require.Equal(t, rows[3], decoded[3])
}

func TestCSVSheet_MissingObject(t *testing.T) {
	store := newMemObjects()

	_, err := NewCSVSheet(store, "approvals", false).Rows(context.Background())
	require.ErrorIs(t, err, sheet.ErrStoreUnavailable)

	rows, err := NewCSVSheet(store, "approvals", true).Rows(context.Background())
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestCSVSheet_StoreErrorIsUnavailable(t *testing.T) {
	store := newMemObjects()
	store.err = errors.New("connection refused")

	err := NewCSVSheet(store, "approvals", true).Append(context.Background(), sheet.Row{"x"})
	require.ErrorIs(t, err, sheet.ErrStoreUnavailable)
}

func TestCSVSheet_AppendUpdate(t *testing.T) {
	ctx := context.Background()
	store := newMemObjects()
	s := NewCSVSheet(store, "approvals", true)

	require.NoError(t, s.Append(ctx, sheet.Row{"id", "title"}))
	require.NoError(t, s.Append(ctx, sheet.Row{"APR_1", "Laptop"}))
	require.Contains(t, store.objects, "approvals.csv")

	require.NoError(t, s.Update(ctx, 1, sheet.Row{"APR_1", "Laptop Pro", "note"}))
	require.ErrorContains(t, s.Update(ctx, 5, sheet.Row{"x"}), "out of range")

	rows, err := s.Rows(ctx)
	require.NoError(t, err)
	require.Equal(t, []sheet.Row{{"id", "title"}, {"APR_1", "Laptop Pro", "note"}}, rows)
}

func TestCSVSheet_ExportURL(t *testing.T) {
	s := NewCSVSheet(newMemObjects(), "approvals", true)

	url, err := s.ExportURL(context.Background(), time.Hour)
	require.NoError(t, err)
	require.Equal(t, "http://minio.local/ringi/approvals.csv?expires=1h0m0s", url)
}
