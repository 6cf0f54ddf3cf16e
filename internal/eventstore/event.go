package eventstore

import (
	"encoding/json"
	"time"
)

// Event is one recorded fact about a pipeline run. Seq is assigned by the
// store on append and is zero for events not yet stored.
type Event struct {
	Seq      int64
	RunID    string
	Type     string
	At       time.Time
	Payload  json.RawMessage
	Metadata map[string]string
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}
