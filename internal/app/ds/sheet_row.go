package ds

import (
	"time"

	"gorm.io/datatypes"
)

// Строка листа в БД: позиция внутри листа + ячейки в виде JSON-массива
type SheetRow struct {
	ID        uint                        `gorm:"primaryKey"`
	Sheet     string                      `gorm:"type:varchar(100);not null;uniqueIndex:idx_sheet_position"`
	Position  int                         `gorm:"not null;uniqueIndex:idx_sheet_position"`
	Cells     datatypes.JSONSlice[string] `gorm:"not null"`
	UpdatedAt time.Time
}

func (SheetRow) TableName() string {
	return "sheet_rows"
}
