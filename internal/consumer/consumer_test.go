package consumer

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestDecodePayload(t *testing.T) {
	payload := `{"event_id":"EVT-7-deadbeef","customer":{"customer_id":"CUST-000007"},"risk":{"risk_level":"HIGH"}}`
	values := map[string]interface{}{
		"data":          payload,
		"partition_key": "CUST-000007",
	}

	ev, raw, err := decodePayload(values)
	if err != nil {
		t.Fatalf("decodePayload: %v", err)
	}
	if ev.EventID != "EVT-7-deadbeef" {
		t.Errorf("event id = %q", ev.EventID)
	}
	if ev.Customer.CustomerID != "CUST-000007" {
		t.Errorf("customer id = %q", ev.Customer.CustomerID)
	}
	if string(raw) != payload {
		t.Error("raw payload must be passed through unchanged")
	}
}

func TestDecodePayloadErrors(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]interface{}
		wantMsg string
	}{
		{"missing data", map[string]interface{}{"partition_key": "x"}, "missing data"},
		{"non-string data", map[string]interface{}{"data": 42}, "not a string"},
		{"invalid json", map[string]interface{}{"data": "{nope"}, "unmarshal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := decodePayload(tt.values)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q should mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestWriterPoolProcessesAll(t *testing.T) {
	var mu sync.Mutex
	var ids []string
	pool := newWriterPool(context.Background(), 3, 16, func(_ context.Context, msg redis.XMessage) {
		mu.Lock()
		ids = append(ids, msg.ID)
		mu.Unlock()
	})

	for i := 0; i < 10; i++ {
		if !pool.Submit(redis.XMessage{ID: time.Now().String()}) {
			t.Fatal("submit rejected with queue headroom")
		}
	}
	pool.Drain()

	if len(ids) != 10 {
		t.Errorf("processed %d messages, want 10", len(ids))
	}
}

func TestWriterPoolSubmitRejectsWhenFull(t *testing.T) {
	block := make(chan struct{})
	pool := newWriterPool(context.Background(), 1, 1, func(context.Context, redis.XMessage) {
		<-block
	})

	// First message occupies the worker, second fills the queue.
	pool.Submit(redis.XMessage{ID: "1"})
	pool.Submit(redis.XMessage{ID: "2"})

	// Give the worker a beat to pick up the first message, then any further
	// submit sees a full queue at least once.
	deadline := time.Now().Add(time.Second)
	rejected := false
	for time.Now().Before(deadline) {
		if !pool.Submit(redis.XMessage{ID: "3"}) {
			rejected = true
			break
		}
	}
	close(block)
	pool.Drain()

	if !rejected {
		t.Error("full pool never rejected a submit")
	}
}
