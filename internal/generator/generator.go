// Package generator replays dataset rows as structured credit events.
// The cursor wraps modulo the dataset size, so long runs cycle through the
// data without mutating it.
package generator

import (
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/mteodoro/riskstream/internal/dataset"
	"github.com/mteodoro/riskstream/internal/event"
)

// EventTypeCreditAssessment is the default event type tag.
const EventTypeCreditAssessment = "CREDIT_ASSESSMENT"

const (
	sourceSystem = "CREDIT_CARD_SYSTEM"
	currency     = "TWD"
)

var educationByCode = map[int]string{
	1: event.EducationGraduateSchool,
	2: event.EducationUniversity,
	3: event.EducationHighSchool,
	4: event.EducationOthers,
}

var maritalByCode = map[int]string{
	1: event.MaritalMarried,
	2: event.MaritalSingle,
	3: event.MaritalOthers,
}

// Stats describe the generator position and the dataset aggregates.
type Stats struct {
	TotalRecords   int
	Cursor         int
	DefaultRate    float64
	AvgCreditLimit float64
	AvgAge         float64
}

// Generator maps dataset rows to events, one per call, advancing a cyclic
// cursor.
type Generator struct {
	ds     *dataset.Dataset
	cursor int
}

// New creates a Generator over ds.
func New(ds *dataset.Dataset) *Generator {
	return &Generator{ds: ds}
}

// Next builds the event for the row at the current cursor position and
// advances the cursor. Row access never goes out of range because the cursor
// wraps.
func (g *Generator) Next(eventType string, ts time.Time) *event.Event {
	row := g.ds.Row(g.cursor % g.ds.Len())
	g.cursor++

	age := row.Age
	return &event.Event{
		EventID:      fmt.Sprintf("EVT-%d-%s", row.ID, uuid.New().String()[:8]),
		EventType:    eventType,
		Timestamp:    ts,
		SourceSystem: sourceSystem,
		Customer: event.Customer{
			CustomerID: fmt.Sprintf("CUST-%06d", row.ID),
			Demographic: event.Demographic{
				Sex:           mapSex(row.Sex),
				Education:     mapCategory(educationByCode, row.Education),
				MaritalStatus: mapCategory(maritalByCode, row.Marriage),
				Age:           &age,
			},
		},
		Credit: event.Credit{
			CreditLimit: row.LimitBal,
			Currency:    currency,
		},
		PaymentHistory: monthly(row.Pay),
		BillingAmounts: monthly(row.BillAmt),
		PaymentAmounts: ptr(monthly(row.PayAmt)),
		Risk: event.Risk{
			DefaultPaymentNextMonth: row.Default,
			RiskLevel:               event.RiskLevelFor(row.Default),
		},
	}
}

// Stream yields count events with timestamps advancing one second per event
// from start. count < 0 replays the full dataset length once; counts beyond
// the dataset size wrap around to the first rows.
func (g *Generator) Stream(count int, eventType string, start time.Time) iter.Seq[*event.Event] {
	if count < 0 {
		count = g.ds.Len()
	}
	return func(yield func(*event.Event) bool) {
		for i := 0; i < count; i++ {
			ev := g.Next(eventType, start.Add(time.Duration(i)*time.Second))
			if !yield(ev) {
				return
			}
		}
	}
}

// Reset rewinds the cursor to the first row.
func (g *Generator) Reset() {
	g.cursor = 0
}

// Stats returns the cursor position and the dataset-level aggregates.
func (g *Generator) Stats() Stats {
	ds := g.ds.Stats()
	return Stats{
		TotalRecords:   ds.TotalRecords,
		Cursor:         g.cursor,
		DefaultRate:    ds.DefaultRate,
		AvgCreditLimit: ds.AvgCreditLimit,
		AvgAge:         ds.AvgAge,
	}
}

func mapSex(code int) string {
	if code == 1 {
		return "M"
	}
	return "F"
}

// mapCategory translates a categorical code, silently falling back to
// UNKNOWN for codes outside the known set.
func mapCategory(table map[int]string, code int) string {
	if v, ok := table[code]; ok {
		return v
	}
	return event.CategoryUnknown
}

func monthly(v [6]int64) event.MonthlyValues {
	return event.MonthlyValues{
		September: v[0],
		August:    v[1],
		July:      v[2],
		June:      v[3],
		May:       v[4],
		April:     v[5],
	}
}

func ptr(m event.MonthlyValues) *event.MonthlyValues {
	return &m
}
