package logger

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"
)

// Everforest Dark palette
const (
	colorTime      = "\x1b[38;5;107m"
	colorComponent = "\x1b[38;5;208m"
	colorKey       = "\x1b[38;5;65m"
	colorNumber    = "\x1b[38;5;108m"
	colorWarn      = "\x1b[38;5;179m"
	colorWarnBg    = "\x1b[48;5;58m"
	colorError     = "\x1b[38;5;167m"
	colorErrorBg   = "\x1b[48;5;52m"
)

var bufferPool = buffer.NewPool()

// minimalEncoder implements a calm, compact console encoder.
// Format: "13:04:35  WARN  convert  Input is large  input=big.json bytes=912341"
type minimalEncoder struct {
	// accumulates fields added through logger.With
	*zapcore.MapObjectEncoder
	color bool
}

func newMinimalEncoder(color bool) *minimalEncoder {
	return &minimalEncoder{
		MapObjectEncoder: zapcore.NewMapObjectEncoder(),
		color:            color,
	}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	clone := newMinimalEncoder(enc.color)
	for k, v := range enc.Fields {
		clone.Fields[k] = v
	}
	return clone
}

func (enc *minimalEncoder) paint(color, s string) string {
	if !enc.color || color == "" {
		return s
	}
	return color + s + colorReset
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	final := bufferPool.Get()

	final.AppendString(enc.paint(colorTime, ent.Time.Format("15:04:05")))

	// Level: only shown for WARN and above
	if ent.Level >= zapcore.WarnLevel {
		final.AppendString("  ")
		final.AppendString(enc.levelString(ent.Level))
	}

	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(enc.paint(colorComponent, ent.LoggerName))
	}

	final.AppendString("  ")
	final.AppendString(ent.Message)

	if kv := enc.formatFields(fields); kv != "" {
		final.AppendString("  ")
		final.AppendString(kv)
	}

	final.AppendString("\n")
	return final, nil
}

func (enc *minimalEncoder) levelString(level zapcore.Level) string {
	switch {
	case level == zapcore.WarnLevel:
		return enc.paint(colorBold+colorWarnBg+colorWarn, "WARN")
	default:
		return enc.paint(colorBold+colorErrorBg+colorError, level.CapitalString())
	}
}

// formatFields renders every field as key=value: context fields sorted by key,
// then entry fields in the order given. No field is ever dropped.
func (enc *minimalEncoder) formatFields(fields []zapcore.Field) string {
	m := zapcore.NewMapObjectEncoder()
	order := make([]string, 0, len(enc.Fields)+len(fields))
	for k, v := range enc.Fields {
		m.Fields[k] = v
		order = append(order, k)
	}
	sort.Strings(order)
	for _, f := range fields {
		if f.Type == zapcore.SkipType {
			continue
		}
		if _, seen := m.Fields[f.Key]; !seen {
			order = append(order, f.Key)
		}
		f.AddTo(m)
	}

	parts := make([]string, 0, len(order))
	for _, k := range order {
		v, ok := m.Fields[k]
		if !ok {
			continue
		}
		parts = append(parts, enc.paint(colorKey, k+"=")+enc.formatValue(v))
	}
	return strings.Join(parts, " ")
}

func (enc *minimalEncoder) formatValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return enc.paint(colorNumber, fmt.Sprint(val))
	case []interface{}:
		items := make([]string, len(val))
		for i, item := range val {
			items[i] = fmt.Sprint(item)
		}
		return "[" + strings.Join(items, " ") + "]"
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]string, len(keys))
		for i, k := range keys {
			items[i] = k + ":" + fmt.Sprint(val[k])
		}
		return "{" + strings.Join(items, " ") + "}"
	default:
		return fmt.Sprint(val)
	}
}
