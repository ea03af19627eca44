package amqp

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"metricsdash/internal/core"
)

// RecordBatchMessage carries metric records to the ingest worker. Records
// travel in full; the worker validates them before anything is written.
type RecordBatchMessage struct {
	BatchID   string        `json:"batchId"`
	Records   []core.Record `json:"records"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewRecordBatchMessage wraps recs in a message with a fresh batch id
func NewRecordBatchMessage(recs []core.Record) *RecordBatchMessage {
	return &RecordBatchMessage{
		BatchID:   newBatchID(),
		Records:   recs,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordBatchMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordBatchMessageFromJSON decodes a message from JSON bytes
func RecordBatchMessageFromJSON(data []byte) (*RecordBatchMessage, error) {
	var msg RecordBatchMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Records == nil {
		msg.Records = []core.Record{}
	}
	return &msg, nil
}

func newBatchID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("batch_%d", time.Now().UnixNano())
	}
	return "batch_" + hex.EncodeToString(b)
}
