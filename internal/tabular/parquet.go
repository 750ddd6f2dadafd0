package tabular

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/AlejandroGNE/PowerGenome/internal/table"
)

// pandas stores a non-default index as an extra column.
const pandasIndexPrefix = "__index_level_"

type parquetField struct {
	name string
	kind table.Kind
	leaf int
}

func openParquet(path string) (*parquet.File, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("open parquet %s: %w", path, err)
	}
	return pf, f, nil
}

func parquetFields(pf *parquet.File, path string) ([]parquetField, error) {
	var out []parquetField
	for _, c := range pf.Root().Columns() {
		if !c.Leaf() {
			return nil, fmt.Errorf("%s: nested column %q is not supported", path, c.Name())
		}
		if strings.HasPrefix(c.Name(), pandasIndexPrefix) {
			continue
		}
		kind := table.Float
		switch c.Type().Kind() {
		case parquet.ByteArray, parquet.FixedLenByteArray, parquet.Int96:
			kind = table.String
		}
		out = append(out, parquetField{name: c.Name(), kind: kind, leaf: c.Index()})
	}
	return out, nil
}

func parquetColumns(path string) ([]string, error) {
	pf, f, err := openParquet(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fields, err := parquetFields(pf, path)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(fields))
	for i, fd := range fields {
		names[i] = fd.name
	}
	return names, nil
}

func readParquet(path string, columns []string) (*table.Frame, error) {
	pf, f, err := openParquet(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fields, err := parquetFields(pf, path)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]parquetField, len(fields))
	for _, fd := range fields {
		byName[fd.name] = fd
	}
	if columns == nil {
		for _, fd := range fields {
			columns = append(columns, fd.name)
		}
	}
	selected := make([]parquetField, len(columns))
	var missing []string
	for j, name := range columns {
		fd, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		selected[j] = fd
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: missing columns %v", path, missing)
	}

	// leaf column index -> output position
	want := make(map[int]int, len(selected))
	for j, fd := range selected {
		want[fd.leaf] = j
	}

	cells := make([][]table.Value, len(selected))
	buf := make([]parquet.Row, 256)
	for _, rg := range pf.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				for _, v := range row {
					j, ok := want[v.Column()]
					if !ok {
						continue
					}
					cells[j] = append(cells[j], parquetValue(v, selected[j].kind))
				}
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("read parquet %s: %w", path, err)
			}
		}
		if err := rows.Close(); err != nil {
			return nil, fmt.Errorf("read parquet %s: %w", path, err)
		}
	}

	cols := make([]*table.Column, len(selected))
	for j, fd := range selected {
		c := table.NewColumn(fd.name, fd.kind, len(cells[j]))
		for i, v := range cells[j] {
			c.Set(i, v)
		}
		cols[j] = c
	}
	return table.New(cols...)
}

func parquetValue(v parquet.Value, kind table.Kind) table.Value {
	if v.IsNull() {
		return table.Null
	}
	if kind == table.String {
		switch v.Kind() {
		case parquet.ByteArray, parquet.FixedLenByteArray:
			return table.S(string(v.ByteArray()))
		default:
			return table.S(v.String())
		}
	}
	switch v.Kind() {
	case parquet.Boolean:
		if v.Boolean() {
			return table.F(1)
		}
		return table.F(0)
	case parquet.Int32:
		return table.F(float64(v.Int32()))
	case parquet.Int64:
		return table.F(float64(v.Int64()))
	case parquet.Float:
		return table.F(float64(v.Float()))
	case parquet.Double:
		return table.F(v.Double())
	default:
		return table.Null
	}
}
