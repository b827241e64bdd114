package sheet

import (
	"fmt"
	"sort"
	"strings"
)

// Field - логическое имя колонки
type Field string

const (
	FieldID              Field = "id"
	FieldTitle           Field = "title"
	FieldApplicant       Field = "applicant"
	FieldApprover        Field = "approver"
	FieldStatus          Field = "status"
	FieldAmount          Field = "amount"
	FieldDescription     Field = "description"
	FieldBenefits        Field = "benefits"
	FieldAvoidableRisks  Field = "avoidableRisks"
	FieldCreatedAt       Field = "createdAt"
	FieldApprovedAt      Field = "approvedAt"
	FieldRejectionReason Field = "rejectionReason"
	FieldApproverComment Field = "approverComment"
)

// DefaultFields - порядок колонок по умолчанию
var DefaultFields = []Field{
	FieldID,
	FieldTitle,
	FieldApplicant,
	FieldApprover,
	FieldStatus,
	FieldAmount,
	FieldDescription,
	FieldBenefits,
	FieldAvoidableRisks,
	FieldCreatedAt,
	FieldApprovedAt,
	FieldRejectionReason,
	FieldApproverComment,
}

// без этих колонок заявку нельзя ни найти, ни проверить права
var requiredFields = []Field{FieldID, FieldTitle, FieldApplicant, FieldApprover, FieldStatus, FieldCreatedAt}

// Layout - соответствие поле -> номер колонки (с нуля)
type Layout struct {
	cols  map[Field]int
	width int
}

// DefaultLayout - колонки в порядке DefaultFields
func DefaultLayout() Layout {
	cols := make(map[Field]int, len(DefaultFields))
	for i, f := range DefaultFields {
		cols[f] = i
	}
	l, _ := newLayout(cols)
	return l
}

// NewLayout строит раскладку из конфигурации, номера колонок с единицы (как в листе)
func NewLayout(columns map[string]int) (Layout, error) {
	if len(columns) == 0 {
		return DefaultLayout(), nil
	}
	cols := make(map[Field]int, len(columns))
	for name, pos := range columns {
		f, ok := lookupField(name)
		if !ok {
			return Layout{}, fmt.Errorf("unknown column %q", name)
		}
		if pos < 1 {
			return Layout{}, fmt.Errorf("column %q: position must be >= 1, got %d", name, pos)
		}
		cols[f] = pos - 1
	}
	return newLayout(cols)
}

// LayoutFromHeader строит раскладку по строке заголовков.
// Неизвестные заголовки пропускаются, их ячейки сохраняются при обновлении.
func LayoutFromHeader(header Row) (Layout, error) {
	cols := make(map[Field]int, len(header))
	for i, name := range header {
		f, ok := lookupField(name)
		if !ok {
			continue
		}
		if _, dup := cols[f]; dup {
			return Layout{}, fmt.Errorf("duplicate header %q", name)
		}
		cols[f] = i
	}
	return newLayout(cols)
}

func newLayout(cols map[Field]int) (Layout, error) {
	var missing []string
	for _, f := range requiredFields {
		if _, ok := cols[f]; !ok {
			missing = append(missing, string(f))
		}
	}
	if len(missing) > 0 {
		return Layout{}, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	seen := make(map[int]Field, len(cols))
	width := 0
	for f, c := range cols {
		if other, ok := seen[c]; ok {
			return Layout{}, fmt.Errorf("columns %q and %q share position %d", other, f, c+1)
		}
		seen[c] = f
		if c+1 > width {
			width = c + 1
		}
	}
	return Layout{cols: cols, width: width}, nil
}

// Col возвращает номер колонки поля
func (l Layout) Col(f Field) (int, bool) {
	c, ok := l.cols[f]
	return c, ok
}

// Width - минимальная длина строки, вмещающая все колонки
func (l Layout) Width() int {
	return l.width
}

// Header - строка заголовков для пустого листа
func (l Layout) Header() Row {
	row := make(Row, l.width)
	fields := make([]Field, 0, len(l.cols))
	for f := range l.cols {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return l.cols[fields[i]] < l.cols[fields[j]] })
	for _, f := range fields {
		row[l.cols[f]] = string(f)
	}
	return row
}

// допускаем "avoidableRisks", "avoidable_risks", "Avoidable Risks"
func lookupField(name string) (Field, bool) {
	key := normalize(name)
	for _, f := range DefaultFields {
		if normalize(string(f)) == key {
			return f, true
		}
	}
	return "", false
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}
