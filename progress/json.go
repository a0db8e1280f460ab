package progress

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

// JSONEmitter writes one JSON Event per line, for machine consumers.
type JSONEmitter struct {
	mu      sync.Mutex
	encoder *json.Encoder
	now     func() time.Time
}

// NewJSONEmitter creates a JSON progress emitter writing to w
func NewJSONEmitter(w io.Writer) *JSONEmitter {
	return &JSONEmitter{
		encoder: json.NewEncoder(w),
		now:     time.Now,
	}
}

func (e *JSONEmitter) emit(typ string, data map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	// progress is best effort; a closed consumer must not fail the conversion
	_ = e.encoder.Encode(Event{Type: typ, Timestamp: e.now(), Data: data})
}

func (e *JSONEmitter) EmitStage(stage string, message string) {
	e.emit("stage", map[string]interface{}{
		"stage":   stage,
		"message": message,
	})
}

func (e *JSONEmitter) EmitProgress(count int, metadata map[string]interface{}) {
	data := map[string]interface{}{
		"count": count,
	}
	for k, v := range metadata {
		data[k] = v
	}
	e.emit("progress", data)
}

func (e *JSONEmitter) EmitComplete(summary map[string]interface{}) {
	e.emit("complete", summary)
}

func (e *JSONEmitter) EmitError(stage string, err error) {
	e.emit("error", map[string]interface{}{
		"stage": stage,
		"error": err.Error(),
	})
}

func (e *JSONEmitter) EmitInfo(message string) {
	e.emit("info", map[string]interface{}{
		"message": message,
	})
}
