// Package sheet описывает построчное хранилище заявок ("лист"):
// строки адресуются позицией, поддерживаются только добавление, полное чтение
// и перезапись одной строки. Конкретные хранилища лежат в repository и storage.
package sheet

import (
	"context"
	"errors"
)

// ErrStoreUnavailable - лист (таблица, объект) отсутствует или недоступен
var ErrStoreUnavailable = errors.New("store unavailable")

// Row - ячейки одной строки в порядке колонок
type Row []string

// Clone копирует строку, чтобы изменения не затрагивали данные хранилища
func (r Row) Clone() Row {
	cp := make(Row, len(r))
	copy(cp, r)
	return cp
}

// Cell возвращает значение колонки или пустую строку, если строка короче
func (r Row) Cell(col int) string {
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// Table - внешнее хранилище строк.
// Индексы в Update совпадают с индексами в срезе, возвращённом Rows.
type Table interface {
	Append(ctx context.Context, row Row) error
	Rows(ctx context.Context) ([]Row, error)
	Update(ctx context.Context, index int, row Row) error
}
