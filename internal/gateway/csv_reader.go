package gateway

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"fiscal-reconciliation/internal/domain"
)

// PPRS export columns, after snake_case normalization.
const (
	colReportingUnit = "reporting_unit_name"
	colMonth         = "production_month"
	colOil           = "oil_production"
	colGas           = "gas_production"
)

// CSVSeriesSource reads a PPRS monthly production export and hands over a
// validated series for one field.
type CSVSeriesSource struct {
	path  string
	field string
}

// NewCSVSeriesSource creates a source for the CSV at path. An empty field
// accepts every row, which only makes sense for single-field exports.
func NewCSVSeriesSource(path, field string) *CSVSeriesSource {
	return &CSVSeriesSource{path: path, field: field}
}

// Identity includes the file's size and modification time so that an
// edited export invalidates cached results.
func (s *CSVSeriesSource) Identity() string {
	id := fmt.Sprintf("csv:%s#%s", s.path, strings.ToUpper(strings.TrimSpace(s.field)))
	if info, err := os.Stat(s.path); err == nil {
		id += fmt.Sprintf("@%d:%d", info.Size(), info.ModTime().UnixNano())
	}
	return id
}

// Load reads, filters, validates and orders the export.
func (s *CSVSeriesSource) Load(ctx context.Context) ([]domain.ProductionRecord, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open production file %s: %w", s.path, err)
	}
	defer file.Close()

	records, err := ReadPPRS(ctx, file, s.field)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return records, nil
}

type rawRow struct {
	month time.Time
	oil   float64
	gas   *float64
}

// ReadPPRS parses PPRS CSV data. Column names are matched case-insensitively
// in either camelCase (reportingUnitName) or snake_case form. Empty oil
// cells read as zero; empty gas cells are missing readings.
func ReadPPRS(ctx context.Context, r io.Reader, field string) ([]domain.ProductionRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[snakeCase(name)] = i
	}
	for _, required := range []string{colMonth, colOil, colGas} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q: %w", required, domain.ErrMalformedRecord)
		}
	}
	unitCol, hasUnit := cols[colReportingUnit]
	if field != "" && !hasUnit {
		return nil, fmt.Errorf("missing column %q to filter field %q: %w", colReportingUnit, field, domain.ErrMalformedRecord)
	}
	want := strings.ToUpper(strings.TrimSpace(field))

	var rows []rawRow
	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("error reading record on line %d: %w", line, err)
		}
		if want != "" && strings.ToUpper(strings.TrimSpace(record[unitCol])) != want {
			continue
		}

		row, err := parseRow(record, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		if want != "" {
			return nil, fmt.Errorf("%w: '%s'", domain.ErrFieldNotFound, field)
		}
		return nil, domain.ErrEmptySeries
	}
	return buildSeries(rows)
}

func parseRow(record []string, cols map[string]int) (rawRow, error) {
	monthStr := strings.TrimSpace(record[cols[colMonth]])
	month, err := parseMonth(monthStr)
	if err != nil {
		return rawRow{}, fmt.Errorf("could not parse productionMonth '%s': %w", monthStr, domain.ErrMalformedRecord)
	}

	oil, err := parseVolume(record[cols[colOil]])
	if err != nil {
		return rawRow{}, fmt.Errorf("could not parse oilProduction '%s': %w", record[cols[colOil]], err)
	}
	row := rawRow{month: month}
	if oil != nil {
		row.oil = *oil
	}

	row.gas, err = parseVolume(record[cols[colGas]])
	if err != nil {
		return rawRow{}, fmt.Errorf("could not parse gasProduction '%s': %w", record[cols[colGas]], err)
	}
	return row, nil
}

// parseVolume returns nil for an empty cell.
func parseVolume(cell string) (*float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, domain.ErrMalformedRecord
	}
	if v < 0 {
		return nil, fmt.Errorf("negative production: %w", domain.ErrMalformedRecord)
	}
	return &v, nil
}

func parseMonth(s string) (time.Time, error) {
	for _, layout := range []string{time.DateOnly, domain.MonthLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized month %q", s)
}

// buildSeries orders rows chronologically, rejects duplicates and gaps, and
// derives the index, calendar days and shut-in flag of each month.
func buildSeries(rows []rawRow) ([]domain.ProductionRecord, error) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].month.Before(rows[j].month) })

	records := make([]domain.ProductionRecord, 0, len(rows))
	for i, row := range rows {
		if i > 0 {
			prev := rows[i-1].month
			switch {
			case row.month.Equal(prev):
				return nil, fmt.Errorf("duplicate month %s: %w", row.month.Format(domain.MonthLayout), domain.ErrMalformedRecord)
			case !row.month.Equal(prev.AddDate(0, 1, 0)):
				return nil, fmt.Errorf("gap between %s and %s: %w",
					prev.Format(domain.MonthLayout), row.month.Format(domain.MonthLayout), domain.ErrMalformedRecord)
			}
		}

		shutIn := row.oil <= 0 && (row.gas == nil || *row.gas <= 0)
		records = append(records, domain.ProductionRecord{
			Month:         row.month.Format(domain.MonthLayout),
			T:             i,
			OilProduction: row.oil,
			GasProduction: row.gas,
			DaysInMonth:   domain.DaysIn(row.month),
			IsShutIn:      shutIn,
		})
	}
	return records, nil
}

// snakeCase normalizes reportingUnitName, Reporting Unit Name and
// reporting_unit_name to the same key.
func snakeCase(name string) string {
	name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
	var b strings.Builder
	var prev rune
	for i, r := range name {
		switch {
		case r == ' ' || r == '-':
			b.WriteByte('_')
		case unicode.IsUpper(r):
			if i > 0 && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
		prev = r
	}
	return b.String()
}
