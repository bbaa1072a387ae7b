package diseasecsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"plant-monitor/internal/domain/entity"
)

// Заголовки таблицы болезней
const (
	ColumnEnglishName  = "병명 (영어)"
	ColumnKoreanName   = "병명 (한국어)"
	ColumnSymptoms     = "증상"
	ColumnCause        = "원인"
	columnPrescription = "처방전 %d"
	prescriptionSlots  = 3
)

var requiredColumns = []string{ColumnEnglishName, ColumnKoreanName, ColumnSymptoms}

// RowError строка, пропущенная при разборе
type RowError struct {
	Line   int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Table разобранная таблица
type Table struct {
	Diseases map[string]entity.DiseaseInfo
	Skipped  []RowError
}

// Read разбирает CSV с заголовком. UTF-8 BOM в начале файла допускается.
// Строки без обязательных колонок пропускаются и попадают в Skipped.
func Read(r io.Reader) (*Table, error) {
	// UTF8BOM снимает BOM, если он есть, и пропускает текст без BOM как есть
	decoded := transform.NewReader(r, unicode.UTF8BOM.NewDecoder())

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "read header")
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, errors.Errorf("missing column %q", col)
		}
	}

	table := &Table{Diseases: make(map[string]entity.DiseaseInfo)}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				table.Skipped = append(table.Skipped, RowError{Line: parseErr.StartLine, Reason: parseErr.Err.Error()})
				continue
			}
			return nil, errors.Wrap(err, "read row")
		}

		line, _ := cr.FieldPos(0)
		key, info, reason := parseRow(record, index)
		if reason != "" {
			table.Skipped = append(table.Skipped, RowError{Line: line, Reason: reason})
			continue
		}
		table.Diseases[key] = info
	}
	return table, nil
}

func parseRow(record []string, index map[string]int) (string, entity.DiseaseInfo, string) {
	get := func(col string) (string, bool) {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return "", false
		}
		return strings.TrimSpace(record[i]), true
	}

	for _, col := range requiredColumns {
		if _, ok := get(col); !ok {
			return "", entity.DiseaseInfo{}, fmt.Sprintf("missing %q", col)
		}
	}

	english, _ := get(ColumnEnglishName)
	key := entity.DiseaseKey(english)
	if key == "" {
		return "", entity.DiseaseInfo{}, "empty disease name"
	}

	info := entity.DiseaseInfo{}
	info.KoreanName, _ = get(ColumnKoreanName)
	info.Symptoms, _ = get(ColumnSymptoms)
	info.Cause, _ = get(ColumnCause)

	var prescriptions []string
	for i := 1; i <= prescriptionSlots; i++ {
		if p, ok := get(fmt.Sprintf(columnPrescription, i)); ok && p != "" {
			prescriptions = append(prescriptions, p)
		}
	}
	info.Prescriptions = strings.Join(prescriptions, "\n")

	return key, info, ""
}
