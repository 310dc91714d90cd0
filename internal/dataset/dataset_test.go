package dataset

import (
	"errors"
	"strings"
	"testing"
)

const sampleCSV = `ID,LIMIT_BAL,SEX,EDUCATION,MARRIAGE,AGE,PAY_0,PAY_2,PAY_3,PAY_4,PAY_5,PAY_6,BILL_AMT1,BILL_AMT2,BILL_AMT3,BILL_AMT4,BILL_AMT5,BILL_AMT6,PAY_AMT1,PAY_AMT2,PAY_AMT3,PAY_AMT4,PAY_AMT5,PAY_AMT6,default payment next month
1,20000,2,2,1,24,2,2,-1,-1,-2,-2,3913,3102,689,0,0,0,0,689,0,0,0,0,1
2,120000.0,2,2,2,26,-1,2,0,0,0,2,2682,1725,2682,3272,3455,3261,0,1000,1000,1000,0,2000,1
3,90000,2,2,2,34,0,0,0,0,0,0,29239,14027,13559,14331,14948,15549,1518,1500,1000,1000,1000,5000,0
`

func TestRead(t *testing.T) {
	ds, err := Read(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if ds.Len() != 3 {
		t.Fatalf("Len = %d, want 3", ds.Len())
	}

	r := ds.Row(0)
	if r.ID != 1 || r.LimitBal != 20000 || r.Age != 24 || r.Default != 1 {
		t.Errorf("row 0 mismatch: %+v", r)
	}
	if r.Pay != [6]int64{2, 2, -1, -1, -2, -2} {
		t.Errorf("row 0 pay history: %v", r.Pay)
	}
	if r.BillAmt[0] != 3913 || r.PayAmt[1] != 689 {
		t.Errorf("row 0 amounts: bills %v payments %v", r.BillAmt, r.PayAmt)
	}
}

func TestReadFloatFormattedIntegers(t *testing.T) {
	ds, err := Read(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got := ds.Row(1).LimitBal; got != 120000 {
		t.Errorf("LIMIT_BAL with float formatting: got %d, want 120000", got)
	}
}

func TestReadEmpty(t *testing.T) {
	if _, err := Read(strings.NewReader("")); !errors.Is(err, ErrEmptyDataset) {
		t.Errorf("empty input: got %v, want ErrEmptyDataset", err)
	}

	headerOnly := strings.SplitAfterN(sampleCSV, "\n", 2)[0]
	if _, err := Read(strings.NewReader(headerOnly)); !errors.Is(err, ErrEmptyDataset) {
		t.Errorf("header-only input: got %v, want ErrEmptyDataset", err)
	}
}

func TestReadMissingColumn(t *testing.T) {
	broken := strings.Replace(sampleCSV, "LIMIT_BAL", "LIMIT", 1)
	_, err := Read(strings.NewReader(broken))
	if err == nil {
		t.Fatal("expected error for missing column")
	}
	if !strings.Contains(err.Error(), "LIMIT_BAL") {
		t.Errorf("error should name the missing column: %v", err)
	}
}

func TestReadMalformedRow(t *testing.T) {
	broken := strings.Replace(sampleCSV, "90000", "not-a-number", 1)
	_, err := Read(strings.NewReader(broken))
	if err == nil {
		t.Fatal("expected error for malformed value")
	}
	if !strings.Contains(err.Error(), "line 4") {
		t.Errorf("error should carry the line number: %v", err)
	}
}

func TestStats(t *testing.T) {
	ds, err := Read(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	st := ds.Stats()
	if st.TotalRecords != 3 {
		t.Errorf("TotalRecords = %d, want 3", st.TotalRecords)
	}
	if want := 2.0 / 3.0; !approxEqual(st.DefaultRate, want) {
		t.Errorf("DefaultRate = %v, want %v", st.DefaultRate, want)
	}
	if want := (20000.0 + 120000 + 90000) / 3; !approxEqual(st.AvgCreditLimit, want) {
		t.Errorf("AvgCreditLimit = %v, want %v", st.AvgCreditLimit, want)
	}
	if want := (24.0 + 26 + 34) / 3; !approxEqual(st.AvgAge, want) {
		t.Errorf("AvgAge = %v, want %v", st.AvgAge, want)
	}
}

func TestFromRowsEmpty(t *testing.T) {
	if _, err := FromRows(nil); !errors.Is(err, ErrEmptyDataset) {
		t.Errorf("FromRows(nil): got %v, want ErrEmptyDataset", err)
	}
}

func approxEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
