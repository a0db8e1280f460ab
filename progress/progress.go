// Package progress is the observational side channel of a conversion.
//
// The pipeline reports stages and counts through an Emitter and never waits on
// it. Implementations render to a terminal (CLIEmitter), emit JSON lines
// (JSONEmitter), or discard everything (Nop). Async decouples any Emitter from
// the caller's goroutine.
package progress

import "time"

// Stage names used by the conversion pipeline
const (
	StageRead    = "read"
	StageFlatten = "flatten"
	StageWrite   = "write"
)

// Metadata keys understood by the bundled emitters
const (
	KeyStage = "stage"
	KeyTotal = "total"
	KeyUnit  = "unit"
)

// Emitter receives progress updates during a conversion.
type Emitter interface {
	// EmitStage announces the start of a processing stage
	EmitStage(stage string, message string)

	// EmitProgress reports a running count. metadata may carry KeyStage,
	// KeyTotal and KeyUnit; count is cumulative within a stage.
	EmitProgress(count int, metadata map[string]interface{})

	// EmitComplete announces successful completion with summary
	EmitComplete(summary map[string]interface{})

	// EmitError announces an error during processing
	EmitError(stage string, err error)

	// EmitInfo emits general informational message
	EmitInfo(message string)
}

// Event is the structured form of one emitted update
type Event struct {
	Type      string                 `json:"type"` // "stage", "progress", "complete", "error", "info"
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// Nop discards every update
type Nop struct{}

func (Nop) EmitStage(string, string)                 {}
func (Nop) EmitProgress(int, map[string]interface{}) {}
func (Nop) EmitComplete(map[string]interface{})      {}
func (Nop) EmitError(string, error)                  {}
func (Nop) EmitInfo(string)                          {}

// OrNop returns e, or Nop when e is nil
func OrNop(e Emitter) Emitter {
	if e == nil {
		return Nop{}
	}
	return e
}

// Counter builds the metadata for a counted stage
func Counter(stage string, total int64, unit string) map[string]interface{} {
	return map[string]interface{}{
		KeyStage: stage,
		KeyTotal: total,
		KeyUnit:  unit,
	}
}

func totalOf(metadata map[string]interface{}) int64 {
	switch t := metadata[KeyTotal].(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return -1
	}
}

func stageOf(metadata map[string]interface{}) string {
	s, _ := metadata[KeyStage].(string)
	return s
}
