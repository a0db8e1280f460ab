package progress

// Gate suppresses counted progress for stages whose total is below a minimum,
// so small inputs finish without flashing a bar. Stages missing from min pass.
type Gate struct {
	Emitter
	min map[string]int64
}

// NewGate wraps next with per-stage minimum totals
func NewGate(next Emitter, min map[string]int64) *Gate {
	return &Gate{Emitter: OrNop(next), min: min}
}

func (g *Gate) EmitProgress(count int, metadata map[string]interface{}) {
	if floor, ok := g.min[stageOf(metadata)]; ok && totalOf(metadata) < floor {
		return
	}
	g.Emitter.EmitProgress(count, metadata)
}
