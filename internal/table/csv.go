package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadCSVHeader reads only the header record.
func ReadCSVHeader(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty csv: no header")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	return trimHeader(header), nil
}

// ReadCSV reads a delimited table with a header record. When columns is nil
// every column is kept, otherwise only the named ones (in the given order).
// A column is Float when every non-empty cell parses as a number; empty cells
// are nulls.
func ReadCSV(r io.Reader, columns []string) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty csv: no header")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = trimHeader(header)

	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[h] = i
	}
	if columns == nil {
		columns = header
	}
	src := make([]int, len(columns))
	var missing []string
	for j, name := range columns {
		i, ok := pos[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		src[j] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns %v", missing)
	}

	cells := make([][]string, len(columns))
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record %d: %w", line, err)
		}
		line++
		for j, i := range src {
			cells[j] = append(cells[j], strings.TrimSpace(rec[i]))
		}
	}

	cols := make([]*Column, len(columns))
	for j, name := range columns {
		cols[j] = inferColumn(name, cells[j])
	}
	return New(cols...)
}

func trimHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[i] = h
	}
	return out
}

func inferColumn(name string, cells []string) *Column {
	nums := make([]float64, len(cells))
	numeric := true
	for i, s := range cells {
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			numeric = false
			break
		}
		nums[i] = v
	}
	if numeric {
		c := NewColumn(name, Float, len(cells))
		for i, s := range cells {
			if s != "" {
				c.Set(i, F(nums[i]))
			}
		}
		return c
	}
	c := NewColumn(name, String, len(cells))
	for i, s := range cells {
		if s != "" {
			c.Set(i, S(s))
		}
	}
	return c
}

// WriteCSV writes the frame with a header record. Nulls are written as empty cells.
func WriteCSV(w io.Writer, f *Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Names()); err != nil {
		return err
	}
	rec := make([]string, f.Width())
	for i := 0; i < f.Len(); i++ {
		for j, c := range f.cols {
			rec[j] = c.Text(i)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
