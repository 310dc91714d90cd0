package event

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigFastest

// Severity grades how badly an anomaly corrupts an event.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Risk levels derived from the default-payment flag.
const (
	RiskHigh = "HIGH"
	RiskLow  = "LOW"
)

// Demographic categories produced by the dataset code mapping. Codes outside
// the known set map to CategoryUnknown, never to an error.
const (
	EducationGraduateSchool = "GRADUATE_SCHOOL"
	EducationUniversity     = "UNIVERSITY"
	EducationHighSchool     = "HIGH_SCHOOL"
	EducationOthers         = "OTHERS"

	MaritalMarried = "MARRIED"
	MaritalSingle  = "SINGLE"
	MaritalOthers  = "OTHERS"

	CategoryUnknown = "UNKNOWN"
)

// AnomalyFlag marks one injected corruption pattern.
type AnomalyFlag struct {
	Type        string   `json:"type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// Demographic holds the customer attributes from the dataset snapshot.
// Age is a pointer so the missing-fields anomaly can null it on the wire.
type Demographic struct {
	Sex           string `json:"sex"`
	Education     string `json:"education"`
	MaritalStatus string `json:"marital_status"`
	Age           *int   `json:"age"`
}

// Customer identifies the account holder behind an event.
type Customer struct {
	CustomerID  string      `json:"customer_id"`
	Demographic Demographic `json:"demographic"`
}

// Credit is the customer's credit line.
type Credit struct {
	CreditLimit int64  `json:"credit_limit"`
	Currency    string `json:"currency"`
}

// MonthlyValues holds one value per calendar month of the six-month history,
// most recent month first. The same shape serves payment-status codes,
// billing amounts, and payment amounts.
type MonthlyValues struct {
	September int64 `json:"september"`
	August    int64 `json:"august"`
	July      int64 `json:"july"`
	June      int64 `json:"june"`
	May       int64 `json:"may"`
	April     int64 `json:"april"`
}

// Each returns pointers to the six monthly slots, most recent month first.
func (m *MonthlyValues) Each() [6]*int64 {
	return [6]*int64{&m.September, &m.August, &m.July, &m.June, &m.May, &m.April}
}

// Risk carries the default flag and its derived risk level.
type Risk struct {
	DefaultPaymentNextMonth int    `json:"default_payment_next_month"`
	RiskLevel               string `json:"risk_level"`
}

// RiskLevelFor derives the risk level from the default-payment flag.
func RiskLevelFor(defaulted int) string {
	if defaulted == 1 {
		return RiskHigh
	}
	return RiskLow
}

// Event is one simulated customer credit-risk snapshot flowing through the
// pipeline. AnomalyFlags is absent (not empty) when no anomaly was injected,
// and PaymentAmounts is dropped entirely by the missing-fields pattern.
type Event struct {
	EventID        string         `json:"event_id"`
	EventType      string         `json:"event_type"`
	Timestamp      time.Time      `json:"timestamp"`
	SourceSystem   string         `json:"source_system"`
	Customer       Customer       `json:"customer"`
	Credit         Credit         `json:"credit"`
	PaymentHistory MonthlyValues  `json:"payment_history"`
	BillingAmounts MonthlyValues  `json:"billing_amounts"`
	PaymentAmounts *MonthlyValues `json:"payment_amounts,omitempty"`
	Risk           Risk           `json:"risk"`
	AnomalyFlags   []AnomalyFlag  `json:"anomaly_flags,omitempty"`
	IsDuplicate    bool           `json:"is_duplicate,omitempty"`
}

// Clone returns a deep, independent copy. Anomaly patterns mutate the clone
// only; the original event must never change.
func (e *Event) Clone() *Event {
	c := *e
	if e.PaymentAmounts != nil {
		pa := *e.PaymentAmounts
		c.PaymentAmounts = &pa
	}
	if e.Customer.Demographic.Age != nil {
		age := *e.Customer.Demographic.Age
		c.Customer.Demographic.Age = &age
	}
	if e.AnomalyFlags != nil {
		c.AnomalyFlags = append([]AnomalyFlag(nil), e.AnomalyFlags...)
	}
	return &c
}

// Anomalous reports whether at least one anomaly flag is attached.
func (e *Event) Anomalous() bool {
	return len(e.AnomalyFlags) > 0
}

// Marshal serializes the event to its wire JSON form.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal parses wire JSON into an Event.
func Unmarshal(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
