package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"biodivcore/pkg/measure"
)

// ReadLongCSV parses a long observation table. The header must name sample,
// species, and count columns; group, x, and y columns are optional. Column
// order is free, unknown columns are ignored.
func ReadLongCSV(r io.Reader) (Records, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", measure.ErrInvalidInput, err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"sample", "species", "count"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: header is missing a %q column", measure.ErrInvalidInput, required)
		}
	}

	var records Records
	for row := 2; ; row++ {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", measure.ErrInvalidInput, row, err)
		}
		record := Record{
			Sample:  cell(fields, columns, "sample"),
			Group:   cell(fields, columns, "group"),
			Species: cell(fields, columns, "species"),
		}
		record.Count, err = intCell(fields, columns, "count", row)
		if err != nil {
			return nil, err
		}
		record.X, err = floatCell(fields, columns, "x", row)
		if err != nil {
			return nil, err
		}
		record.Y, err = floatCell(fields, columns, "y", row)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// WriteLongCSV writes records with a sample,group,x,y,species,count header.
func WriteLongCSV(w io.Writer, records Records) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"sample", "group", "x", "y", "species", "count"}); err != nil {
		return err
	}
	for _, record := range records {
		err := writer.Write([]string{
			record.Sample,
			record.Group,
			formatFloat(record.X),
			formatFloat(record.Y),
			record.Species,
			strconv.Itoa(record.Count),
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadWideCSV parses a site-by-species matrix. The first column is the sample
// identifier; a second column literally named "group" (case-insensitive)
// carries group labels; every remaining column is a species with integer
// counts.
func ReadWideCSV(r io.Reader) (Wide, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return Wide{}, fmt.Errorf("%w: reading header: %v", measure.ErrInvalidInput, err)
	}
	if len(header) < 2 {
		return Wide{}, fmt.Errorf("%w: wide header needs a sample column and at least one species column", measure.ErrInvalidInput)
	}
	speciesFrom := 1
	hasGroup := len(header) > 2 && strings.EqualFold(strings.TrimSpace(header[1]), "group")
	if hasGroup {
		speciesFrom = 2
	}
	species := make([]string, 0, len(header)-speciesFrom)
	for i := speciesFrom; i < len(header); i++ {
		name := strings.TrimSpace(header[i])
		if name == "" {
			return Wide{}, fmt.Errorf("%w: header column %d has an empty species name", measure.ErrInvalidInput, i+1)
		}
		species = append(species, name)
	}

	wide := Wide{Species: species}
	for row := 2; ; row++ {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Wide{}, fmt.Errorf("%w: row %d: %v", measure.ErrInvalidInput, row, err)
		}
		wideRow := WideRow{Sample: strings.TrimSpace(fields[0]), Counts: make([]int, len(species))}
		if wideRow.Sample == "" {
			return Wide{}, fmt.Errorf("%w: row %d has an empty sample identifier", measure.ErrInvalidInput, row)
		}
		if hasGroup {
			wideRow.Group = strings.TrimSpace(fields[1])
		}
		for i := range species {
			col := speciesFrom + i
			count, err := parseCount(fields[col], row, col+1)
			if err != nil {
				return Wide{}, err
			}
			wideRow.Counts[i] = count
		}
		wide.Rows = append(wide.Rows, wideRow)
	}

	// The reshaping below re-sorts species columns and keeps rows aligned.
	if !sort.StringsAreSorted(wide.Species) {
		long := wide.Long()
		return LongToWide(long)
	}
	return wide, nil
}

// WriteWideCSV writes the matrix with a sample,group,<species...> header. The
// group column is omitted when no row carries a label.
func WriteWideCSV(w io.Writer, wide Wide) error {
	writer := csv.NewWriter(w)
	hasGroup := false
	for _, row := range wide.Rows {
		if row.Group != "" {
			hasGroup = true
			break
		}
	}

	header := make([]string, 0, len(wide.Species)+2)
	header = append(header, "sample")
	if hasGroup {
		header = append(header, "group")
	}
	header = append(header, wide.Species...)
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range wide.Rows {
		fields := make([]string, 0, len(header))
		fields = append(fields, row.Sample)
		if hasGroup {
			fields = append(fields, row.Group)
		}
		for i := range wide.Species {
			count := 0
			if i < len(row.Counts) {
				count = row.Counts[i]
			}
			fields = append(fields, strconv.Itoa(count))
		}
		if err := writer.Write(fields); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func cell(fields []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

func intCell(fields []string, columns map[string]int, name string, row int) (int, error) {
	raw := cell(fields, columns, name)
	if raw == "" {
		return 0, fmt.Errorf("%w: row %d has an empty %s cell", measure.ErrInvalidInput, row, name)
	}
	return parseCount(raw, row, columns[name]+1)
}

func floatCell(fields []string, columns map[string]int, name string, row int) (float64, error) {
	raw := cell(fields, columns, name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: row %d column %d: %q is not a number", measure.ErrInvalidInput, row, columns[name]+1, raw)
	}
	return value, nil
}

func parseCount(raw string, row, col int) (int, error) {
	raw = strings.TrimSpace(raw)
	count, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: row %d column %d: %q is not an integer count", measure.ErrInvalidInput, row, col, raw)
	}
	if count < 0 {
		return 0, fmt.Errorf("%w: row %d column %d: negative count %d", measure.ErrInvalidInput, row, col, count)
	}
	return count, nil
}

func formatFloat(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
