package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ProcessRequestMessage asks a worker to process one CSV export. The worker
// reads the file, runs the pipeline and stores the result in the shared
// cache under RequestID.
type ProcessRequestMessage struct {
	RequestID string    `json:"request_id"`
	CSVPath   string    `json:"csv_path"`
	StartDate string    `json:"start_date,omitempty"`
	EndDate   string    `json:"end_date,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewProcessRequestMessage creates a request message with a fresh id.
func NewProcessRequestMessage(csvPath, startDate, endDate string) *ProcessRequestMessage {
	return &ProcessRequestMessage{
		RequestID: uuid.NewString(),
		CSVPath:   csvPath,
		StartDate: startDate,
		EndDate:   endDate,
		Timestamp: time.Now(),
	}
}

// Validate checks the message carries what a worker needs.
func (m *ProcessRequestMessage) Validate() error {
	if m.RequestID == "" {
		return errors.New("missing request id")
	}
	if m.CSVPath == "" {
		return errors.New("missing csv path")
	}
	if (m.StartDate == "") != (m.EndDate == "") {
		return errors.New("start and end date must be set together")
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *ProcessRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ProcessRequestMessageFromJSON creates a message from JSON bytes
func ProcessRequestMessageFromJSON(data []byte) (*ProcessRequestMessage, error) {
	var msg ProcessRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
