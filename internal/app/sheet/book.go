package sheet

import (
	"context"
	"errors"
	"fmt"

	"ringi/internal/app/ds"
)

// ErrHeaderLayoutWithoutHeader - раскладка по заголовкам при листе без строки заголовков
var ErrHeaderLayoutWithoutHeader = errors.New("header layout requires a header row")

// Book связывает Table с раскладкой колонок и форматом данных.
// Сам по себе Book не синхронизирован: цикл Load -> Save выполняется под lock.Section.
type Book struct {
	Table Table
	Codec Codec
	// HeaderRow - первая строка листа содержит заголовки
	HeaderRow bool
	// HeaderLayout - брать раскладку из заголовков, а не из Codec.Layout
	HeaderLayout bool
}

// Record - заявка вместе с позицией её строки
type Record struct {
	Index   int
	Request ds.ApprovalRequest
}

// Snapshot - согласованный срез листа, прочитанный под блокировкой
type Snapshot struct {
	rows    []Row
	codec   Codec
	Records []Record
}

// Load читает лист целиком. Пустой лист с заголовком получает строку заголовков.
func (b *Book) Load(ctx context.Context) (*Snapshot, error) {
	return b.load(ctx, true)
}

// Peek читает лист, ничего в него не записывая (утилиты вне lock.Section)
func (b *Book) Peek(ctx context.Context) (*Snapshot, error) {
	return b.load(ctx, false)
}

func (b *Book) load(ctx context.Context, writeHeader bool) (*Snapshot, error) {
	if b.HeaderLayout && !b.HeaderRow {
		return nil, ErrHeaderLayoutWithoutHeader
	}

	rows, err := b.Table.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}

	codec := b.Codec
	if codec.Layout.Width() == 0 {
		codec.Layout = DefaultLayout()
	}
	start := 0
	if b.HeaderRow {
		if len(rows) == 0 {
			if !writeHeader {
				return &Snapshot{codec: codec}, nil
			}
			header := codec.Layout.Header()
			if err := b.Table.Append(ctx, header); err != nil {
				return nil, fmt.Errorf("write header: %w", err)
			}
			rows = append(rows, header)
		}
		if b.HeaderLayout {
			layout, err := LayoutFromHeader(rows[0])
			if err != nil {
				return nil, fmt.Errorf("sheet header: %w", err)
			}
			codec.Layout = layout
		}
		start = 1
	}

	snap := &Snapshot{rows: rows, codec: codec}
	for i := start; i < len(rows); i++ {
		if codec.ID(rows[i]) == "" {
			continue // пустые строки в листе не редкость
		}
		snap.Records = append(snap.Records, Record{Index: i, Request: codec.Decode(rows[i])})
	}
	return snap, nil
}

// Find ищет заявку по ID
func (s *Snapshot) Find(id string) (Record, bool) {
	for _, rec := range s.Records {
		if rec.Request.ID == id {
			return rec, true
		}
	}
	return Record{}, false
}

// Append добавляет новую заявку в конец листа
func (b *Book) Append(ctx context.Context, snap *Snapshot, req *ds.ApprovalRequest) error {
	row := snap.codec.Encode(nil, req)
	if err := b.Table.Append(ctx, row); err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	snap.rows = append(snap.rows, row)
	snap.Records = append(snap.Records, Record{Index: len(snap.rows) - 1, Request: *req})
	return nil
}

// Save перезаписывает строку заявки, сохраняя ячейки вне раскладки
func (b *Book) Save(ctx context.Context, snap *Snapshot, rec Record, req *ds.ApprovalRequest) error {
	if rec.Index < 0 || rec.Index >= len(snap.rows) {
		return fmt.Errorf("row %d out of range", rec.Index)
	}
	row := snap.codec.Encode(snap.rows[rec.Index], req)
	if err := b.Table.Update(ctx, rec.Index, row); err != nil {
		return fmt.Errorf("update row %d: %w", rec.Index, err)
	}
	snap.rows[rec.Index] = row
	for i := range snap.Records {
		if snap.Records[i].Index == rec.Index {
			snap.Records[i].Request = *req
		}
	}
	return nil
}
