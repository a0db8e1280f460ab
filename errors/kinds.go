package errors

import (
	"fmt"
	"strings"
)

// Kind classifies a conversion failure. The CLI maps every Kind except
// KindEmptyInput to exit status 1.
type Kind int

const (
	KindUnknown Kind = iota
	KindParse
	KindEncoding
	KindNotFound
	KindPermission
	KindUnsupportedFormat
	KindWrite
	KindEmptyInput
	KindSchemaCollision
	KindRecordShape
	KindInterrupted
)

var kindNames = map[Kind]string{
	KindUnknown:           "unknown",
	KindParse:             "parse",
	KindEncoding:          "encoding",
	KindNotFound:          "not_found",
	KindPermission:        "permission",
	KindUnsupportedFormat: "unsupported_format",
	KindWrite:             "write",
	KindEmptyInput:        "empty_input",
	KindSchemaCollision:   "schema_collision",
	KindRecordShape:       "record_shape",
	KindInterrupted:       "interrupted",
}

// String returns the snake_case name used in logs and JSON output
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Fatal reports whether the kind aborts a conversion. Empty input is a soft notice.
func (k Kind) Fatal() bool {
	return k != KindEmptyInput
}

// ConversionError is the single classified error object the pipeline surfaces.
// Line, Column, Offset and Context are only populated for parse and encoding errors.
type ConversionError struct {
	Kind    Kind
	Path    string // offending file, if any
	Detail  string // human-readable description
	Line    int    // 1-based
	Column  int    // 1-based
	Offset  int64  // byte offset into the input
	Context string // excerpt around Offset
	Err     error  // underlying cause
}

func (e *ConversionError) Error() string {
	var b strings.Builder
	b.WriteString(e.Detail)
	if e.Path != "" {
		fmt.Fprintf(&b, " (%s)", e.Path)
	}
	if e.Kind == KindParse && e.Line > 0 {
		fmt.Fprintf(&b, " at line %d, column %d", e.Line, e.Column)
	}
	if e.Kind == KindEncoding {
		fmt.Fprintf(&b, " at byte %d", e.Offset)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first ConversionError in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ce *ConversionError
	if As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries a ConversionError of kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// AsConversion extracts the ConversionError from err's chain.
func AsConversion(err error) (*ConversionError, bool) {
	var ce *ConversionError
	if As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// NewParseError reports a malformed input document at a byte position.
func NewParseError(path string, line, column int, offset int64, context string, cause error) error {
	err := &ConversionError{
		Kind:    KindParse,
		Path:    path,
		Detail:  "failed to parse JSON",
		Line:    line,
		Column:  column,
		Offset:  offset,
		Context: context,
		Err:     cause,
	}
	return WithHint(WithStack(err), "check that the file is valid JSON and not truncated")
}

// NewEncodingError reports input bytes that are not valid UTF-8.
func NewEncodingError(path string, offset int64) error {
	err := &ConversionError{
		Kind:   KindEncoding,
		Path:   path,
		Detail: "input is not valid UTF-8",
		Offset: offset,
	}
	return WithHint(WithStack(err), "the file might be corrupted or use another encoding; convert it to UTF-8 and retry")
}

// NewNotFoundError reports a missing input file or output directory.
func NewNotFoundError(path, detail string, cause error) error {
	err := &ConversionError{
		Kind:   KindNotFound,
		Path:   path,
		Detail: detail,
		Err:    cause,
	}
	return WithHint(WithStack(err), "check the path and try again")
}

// NewPermissionError reports an unreadable input or unwritable output location.
func NewPermissionError(path, detail string, cause error) error {
	err := &ConversionError{
		Kind:   KindPermission,
		Path:   path,
		Detail: detail,
		Err:    cause,
	}
	return WithHint(WithStack(err), "check file permissions, or close any program holding the file open")
}

// NewUnsupportedFormatError reports an output kind with no registered writer.
func NewUnsupportedFormatError(format string, supported []string) error {
	err := &ConversionError{
		Kind:   KindUnsupportedFormat,
		Detail: fmt.Sprintf("unsupported output format %q", format),
		Err:    ErrUnsupportedFormat,
	}
	return WithHintf(WithStack(err), "supported formats are: %s", strings.Join(supported, ", "))
}

// NewWriteError reports a sink-level failure while emitting output.
func NewWriteError(path, detail string, cause error) error {
	err := &ConversionError{
		Kind:   KindWrite,
		Path:   path,
		Detail: detail,
		Err:    cause,
	}
	return WithHint(WithStack(err), "the output directory might not exist or the disk might be full")
}

// NewEmptyInputError is the soft notice for an input with zero records.
func NewEmptyInputError(path string) error {
	return &ConversionError{
		Kind:   KindEmptyInput,
		Path:   path,
		Detail: "no data found in the input file",
		Err:    ErrEmptyInput,
	}
}

// NewSchemaCollisionError reports two distinct paths flattening to one key.
func NewSchemaCollisionError(record int, key string) error {
	err := &ConversionError{
		Kind:   KindSchemaCollision,
		Detail: fmt.Sprintf("record %d: key %q produced by more than one path", record, key),
		Err:    ErrKeyCollision,
	}
	return WithHint(WithStack(err), "choose a separator that does not occur in key names, or allow last-wins collisions")
}

// NewRecordShapeError reports a top-level record that is not an object in strict mode.
func NewRecordShapeError(record int, got string) error {
	err := &ConversionError{
		Kind:   KindRecordShape,
		Detail: fmt.Sprintf("record %d is a %s, expected an object", record, got),
		Err:    ErrRecordShape,
	}
	return WithHint(WithStack(err), "disable strict record checking to flatten scalars into an unnamed column")
}

// NewInterruptedError reports a conversion stopped by cancellation or deadline
// during stage. No output is written.
func NewInterruptedError(stage string, cause error) error {
	err := &ConversionError{
		Kind:   KindInterrupted,
		Detail: fmt.Sprintf("conversion interrupted while in %s stage", stage),
		Err:    cause,
	}
	return WithHint(WithStack(err), "no output file was written; run the conversion again")
}
