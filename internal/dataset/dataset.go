package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ErrEmptyDataset is returned when the source contains no data rows.
var ErrEmptyDataset = errors.New("dataset: no rows")

// columns lists the CSV headers a dataset file must carry. PAY_1 does not
// exist in the source data; the repayment-status series jumps from PAY_0 to
// PAY_2.
var columns = []string{
	"ID", "LIMIT_BAL", "SEX", "EDUCATION", "MARRIAGE", "AGE",
	"PAY_0", "PAY_2", "PAY_3", "PAY_4", "PAY_5", "PAY_6",
	"BILL_AMT1", "BILL_AMT2", "BILL_AMT3", "BILL_AMT4", "BILL_AMT5", "BILL_AMT6",
	"PAY_AMT1", "PAY_AMT2", "PAY_AMT3", "PAY_AMT4", "PAY_AMT5", "PAY_AMT6",
	"default payment next month",
}

// Row is one customer snapshot from the credit-card default dataset.
// The three six-element arrays are ordered most recent month first.
type Row struct {
	ID        int
	LimitBal  int64
	Sex       int
	Education int
	Marriage  int
	Age       int
	Pay       [6]int64
	BillAmt   [6]int64
	PayAmt    [6]int64
	Default   int
}

// Stats are dataset-level aggregates, computed once at load time.
type Stats struct {
	TotalRecords   int
	DefaultRate    float64
	AvgCreditLimit float64
	AvgAge         float64
}

// Dataset is an immutable, in-memory copy of the source table. Row access is
// index-based; callers wrap their cursor modulo Len.
type Dataset struct {
	rows  []Row
	stats Stats
}

// Load reads a CSV dataset from path. An unreadable or empty file is fatal.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()

	ds, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("dataset: %s: %w", path, err)
	}
	return ds, nil
}

// Read parses CSV dataset content from r. The first record must be the
// header; column order is not significant.
func Read(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, ErrEmptyDataset
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	for _, name := range columns {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row, err := parseRow(rec, idx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}

	return FromRows(rows)
}

// FromRows builds a Dataset from already-parsed rows.
func FromRows(rows []Row) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyDataset
	}

	var defaults, limitSum, ageSum float64
	for _, r := range rows {
		defaults += float64(r.Default)
		limitSum += float64(r.LimitBal)
		ageSum += float64(r.Age)
	}
	n := float64(len(rows))

	return &Dataset{
		rows: rows,
		stats: Stats{
			TotalRecords:   len(rows),
			DefaultRate:    defaults / n,
			AvgCreditLimit: limitSum / n,
			AvgAge:         ageSum / n,
		},
	}, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Row returns the row at index i. Callers are responsible for wrapping.
func (d *Dataset) Row(i int) Row {
	return d.rows[i]
}

// Stats returns the load-time aggregates.
func (d *Dataset) Stats() Stats {
	return d.stats
}

func parseRow(rec []string, idx map[string]int) (Row, error) {
	get := func(name string) (int64, error) {
		i := idx[name]
		if i >= len(rec) {
			return 0, fmt.Errorf("column %q: record too short", name)
		}
		// Exports of the source table sometimes carry float formatting
		// ("20000.0") for integer columns.
		v, err := strconv.ParseFloat(rec[i], 64)
		if err != nil {
			return 0, fmt.Errorf("column %q: %w", name, err)
		}
		return int64(v), nil
	}

	var row Row
	var err error
	fields := []struct {
		name string
		dst  *int64
	}{
		{"LIMIT_BAL", &row.LimitBal},
		{"BILL_AMT1", &row.BillAmt[0]}, {"BILL_AMT2", &row.BillAmt[1]},
		{"BILL_AMT3", &row.BillAmt[2]}, {"BILL_AMT4", &row.BillAmt[3]},
		{"BILL_AMT5", &row.BillAmt[4]}, {"BILL_AMT6", &row.BillAmt[5]},
		{"PAY_AMT1", &row.PayAmt[0]}, {"PAY_AMT2", &row.PayAmt[1]},
		{"PAY_AMT3", &row.PayAmt[2]}, {"PAY_AMT4", &row.PayAmt[3]},
		{"PAY_AMT5", &row.PayAmt[4]}, {"PAY_AMT6", &row.PayAmt[5]},
		{"PAY_0", &row.Pay[0]}, {"PAY_2", &row.Pay[1]}, {"PAY_3", &row.Pay[2]},
		{"PAY_4", &row.Pay[3]}, {"PAY_5", &row.Pay[4]}, {"PAY_6", &row.Pay[5]},
	}
	for _, f := range fields {
		if *f.dst, err = get(f.name); err != nil {
			return Row{}, err
		}
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"ID", &row.ID},
		{"SEX", &row.Sex},
		{"EDUCATION", &row.Education},
		{"MARRIAGE", &row.Marriage},
		{"AGE", &row.Age},
		{"default payment next month", &row.Default},
	}
	for _, f := range ints {
		v, err := get(f.name)
		if err != nil {
			return Row{}, err
		}
		*f.dst = int(v)
	}

	return row, nil
}
