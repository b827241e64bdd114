package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"ringi/internal/app/sheet"
)

// ObjectStore - минимум, нужный CSVSheet от объектного хранилища
type ObjectStore interface {
	ObjectExists(ctx context.Context, name string) (bool, error)
	ReadObject(ctx context.Context, name string) ([]byte, error)
	WriteObject(ctx context.Context, name string, data []byte) error
	ObjectURL(ctx context.Context, name string, ttl time.Duration) (string, error)
}

// CSVSheet - лист, хранящийся одним CSV-объектом в бакете.
// Каждая операция перечитывает и перезаписывает объект целиком,
// поэтому вызовы должны идти под lock.Section.
type CSVSheet struct {
	store  ObjectStore
	object string
	// CreateIfMissing: отсутствующий объект - пустой лист, иначе ErrStoreUnavailable
	CreateIfMissing bool
}

func NewCSVSheet(store ObjectStore, sheetName string, createIfMissing bool) *CSVSheet {
	return &CSVSheet{
		store:           store,
		object:          sheetName + ".csv",
		CreateIfMissing: createIfMissing,
	}
}

func (s *CSVSheet) Rows(ctx context.Context) ([]sheet.Row, error) {
	return s.load(ctx)
}

func (s *CSVSheet) Append(ctx context.Context, row sheet.Row) error {
	rows, err := s.load(ctx)
	if err != nil {
		return err
	}
	return s.save(ctx, append(rows, row.Clone()))
}

func (s *CSVSheet) Update(ctx context.Context, index int, row sheet.Row) error {
	rows, err := s.load(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(rows) {
		return fmt.Errorf("row %d out of range", index)
	}
	rows[index] = row.Clone()
	return s.save(ctx, rows)
}

// ExportURL - временная ссылка на CSV листа
func (s *CSVSheet) ExportURL(ctx context.Context, ttl time.Duration) (string, error) {
	return s.store.ObjectURL(ctx, s.object, ttl)
}

func (s *CSVSheet) load(ctx context.Context) ([]sheet.Row, error) {
	exists, err := s.store.ObjectExists(ctx, s.object)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", sheet.ErrStoreUnavailable, s.object, err)
	}
	if !exists {
		if s.CreateIfMissing {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: object %s not found", sheet.ErrStoreUnavailable, s.object)
	}

	data, err := s.store.ReadObject(ctx, s.object)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", sheet.ErrStoreUnavailable, s.object, err)
	}
	rows, err := decodeCSV(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.object, err)
	}
	return rows, nil
}

func (s *CSVSheet) save(ctx context.Context, rows []sheet.Row) error {
	data, err := encodeCSV(rows)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.object, err)
	}
	if err := s.store.WriteObject(ctx, s.object, data); err != nil {
		return fmt.Errorf("%w: %s: %v", sheet.ErrStoreUnavailable, s.object, err)
	}
	return nil
}

func encodeCSV(rows []sheet.Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		record := []string(row)
		if isBlank(record) {
			// csv.Reader пропускает пустые строки, а индексы строк должны сохраниться
			record = []string{"", ""}
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeCSV(data []byte) ([]sheet.Row, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	rows := make([]sheet.Row, len(records))
	for i, rec := range records {
		rows[i] = sheet.Row(rec)
	}
	return rows, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if v != "" {
			return false
		}
	}
	return true
}
