package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"ringi/internal/app/ds"
	"ringi/internal/app/sheet"
)

// Repository хранит один лист в таблице sheet_rows и реализует sheet.Table.
// Позиции строк идут по возрастанию; индекс строки - её номер в этом порядке.
type Repository struct {
	db    *gorm.DB
	sheet string
}

// Open подключается к БД: postgres или sqlite
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Migrate создаёт таблицу строк листа
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&ds.SheetRow{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func New(driver, dsn, sheetName string) (*Repository, error) {
	db, err := Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	// Автоматическая миграция таблицы листов
	if err = Migrate(db); err != nil {
		return nil, err
	}

	return NewWithDB(db, sheetName), nil
}

func NewWithDB(db *gorm.DB, sheetName string) *Repository {
	return &Repository{
		db:    db,
		sheet: sheetName,
	}
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Rows - все строки листа по порядку позиций
func (r *Repository) Rows(ctx context.Context) ([]sheet.Row, error) {
	var dbRows []ds.SheetRow
	err := r.db.WithContext(ctx).
		Where("sheet = ?", r.sheet).
		Order("position").
		Find(&dbRows).Error
	if err != nil {
		return nil, r.wrap(ctx, err)
	}

	rows := make([]sheet.Row, len(dbRows))
	for i, row := range dbRows {
		rows[i] = sheet.Row(row.Cells).Clone()
	}
	return rows, nil
}

// Append добавляет строку после последней позиции
func (r *Repository) Append(ctx context.Context, row sheet.Row) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last ds.SheetRow
		position := 0
		err := tx.Where("sheet = ?", r.sheet).
			Order("position DESC").
			Limit(1).
			Take(&last).Error
		switch {
		case err == nil:
			position = last.Position + 1
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		dbRow := ds.SheetRow{
			Sheet:    r.sheet,
			Position: position,
			Cells:    []string(row.Clone()),
		}
		return tx.Create(&dbRow).Error
	})
	if err != nil {
		return r.wrap(ctx, err)
	}
	return nil
}

// Update перезаписывает строку с индексом index (в порядке Rows)
func (r *Repository) Update(ctx context.Context, index int, row sheet.Row) error {
	if index < 0 {
		return fmt.Errorf("row %d out of range", index)
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dbRow ds.SheetRow
		err := tx.Where("sheet = ?", r.sheet).
			Order("position").
			Offset(index).
			Limit(1).
			Take(&dbRow).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("row %d out of range", index)
		}
		if err != nil {
			return err
		}

		dbRow.Cells = []string(row.Clone())
		return tx.Save(&dbRow).Error
	})
	if err != nil {
		return r.wrap(ctx, err)
	}
	return nil
}

// wrap вызывается вне транзакции: HasTable нужно своё соединение.
// Отсутствие таблицы - это недоступное хранилище, а не ошибка запроса
func (r *Repository) wrap(ctx context.Context, err error) error {
	if !r.db.WithContext(ctx).Migrator().HasTable(&ds.SheetRow{}) {
		logrus.Errorf("sheet table %s is missing: %v", ds.SheetRow{}.TableName(), err)
		return fmt.Errorf("sheet %q: %w", r.sheet, sheet.ErrStoreUnavailable)
	}
	return fmt.Errorf("sheet %q: %w", r.sheet, err)
}
