package record

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/teranos/jflat/errors"
)

// MaxDepth bounds object/array nesting. Deeper documents fail to parse.
const MaxDepth = 10000

// contextRadius is how many bytes either side of a parse error are quoted back
const contextRadius = 20

// StdinPath is the input path that reads standard input
const StdinPath = "-"

// readChunk is the read size used when reporting byte progress
const readChunk = 64 * 1024

// ProgressFunc observes bytes consumed while reading input. total is -1 when unknown.
// It must not block; the loader calls it inline.
type ProgressFunc func(read, total int64)

type loadOptions struct {
	source   string
	total    int64
	progress ProgressFunc
}

// LoadOption configures Load
type LoadOption func(*loadOptions)

// WithSource names the input in error messages.
func WithSource(name string) LoadOption {
	return func(o *loadOptions) { o.source = name }
}

// WithProgress reports bytes read. total is the expected size, or -1.
func WithProgress(total int64, fn ProgressFunc) LoadOption {
	return func(o *loadOptions) {
		o.total = total
		o.progress = fn
	}
}

// LoadFile opens path ("-" for stdin) and loads it.
// Missing files and directories are NotFound errors; access failures are Permission errors.
func LoadFile(ctx context.Context, path string, opts ...LoadOption) (Set, error) {
	opts = append([]LoadOption{WithSource(path)}, opts...)
	if path == StdinPath {
		return Load(ctx, os.Stdin, opts...)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, classifyOpenError(path, err)
	}
	if info.IsDir() {
		return nil, errors.NewNotFoundError(path, "input is a directory, not a file", nil)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, classifyOpenError(path, err)
	}
	defer f.Close()

	o := applyOptions(opts)
	if o.progress != nil && o.total < 0 {
		opts = append(opts, WithProgress(info.Size(), o.progress))
	}
	return Load(ctx, f, opts...)
}

func classifyOpenError(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return errors.NewNotFoundError(path, "input file does not exist", err)
	case errors.Is(err, fs.ErrPermission):
		return errors.NewPermissionError(path, "permission denied reading input", err)
	default:
		return errors.Wrapf(err, "failed to open %s", path)
	}
}

func applyOptions(opts []LoadOption) loadOptions {
	o := loadOptions{total: -1}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Load reads the whole document from r and parses it into a Set.
// The document is fully materialized; schema unification needs every record anyway.
func Load(ctx context.Context, r io.Reader, opts ...LoadOption) (Set, error) {
	o := applyOptions(opts)

	data, err := readAll(ctx, r, o)
	if err != nil {
		return nil, err
	}
	return parse(ctx, data, o.source)
}

// LoadBytes parses an in-memory document.
func LoadBytes(data []byte, opts ...LoadOption) (Set, error) {
	o := applyOptions(opts)
	return parse(context.Background(), data, o.source)
}

func readAll(ctx context.Context, r io.Reader, o loadOptions) ([]byte, error) {
	var buf bytes.Buffer
	if o.total > 0 {
		buf.Grow(int(o.total))
	}
	chunk := make([]byte, readChunk)
	var read int64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
			read += int64(n)
			if o.progress != nil {
				o.progress(read, o.total)
			}
		}
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return nil, errors.NewPermissionError(o.source, "permission denied reading input", err)
			}
			return nil, errors.Wrapf(err, "failed to read %s", o.source)
		}
	}
}

func parse(ctx context.Context, data []byte, source string) (Set, error) {
	if off := invalidUTF8Offset(data); off >= 0 {
		return nil, errors.NewEncodingError(source, int64(off))
	}

	stripped, _, err := transform.Bytes(unicode.UTF8BOM.NewDecoder(), data)
	if err != nil {
		return nil, errors.NewEncodingError(source, 0)
	}
	bomLen := int64(len(data) - len(stripped))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := &parser{
		dec:    json.NewDecoder(bytes.NewReader(stripped)),
		data:   stripped,
		source: source,
		shift:  bomLen,
	}
	p.dec.UseNumber()

	// The scanner behind json.Valid/Unmarshal reports consistent offsets, so malformed
	// documents are positioned from it rather than from the token stream.
	if !json.Valid(stripped) {
		return nil, p.invalid()
	}

	root, err := p.value(0)
	if err != nil {
		return nil, err
	}
	if tok, err := p.dec.Token(); err != io.EOF {
		if err != nil {
			return nil, p.syntaxError(err)
		}
		return nil, p.errorAt(p.dec.InputOffset()-1, errors.Newf("unexpected %v after top-level value", tok))
	}

	if root.Kind() == Array {
		return Set(root.Elements()), nil
	}
	return Set{root}, nil
}

// invalidUTF8Offset returns the byte offset of the first invalid sequence, or -1.
func invalidUTF8Offset(data []byte) int {
	if utf8.Valid(data) {
		return -1
	}
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}

type parser struct {
	dec    *json.Decoder
	data   []byte
	source string
	shift  int64 // bytes removed before data (BOM)
}

func (p *parser) value(depth int) (Value, error) {
	if depth > MaxDepth {
		return Value{}, p.errorAt(p.dec.InputOffset(), errors.Newf("exceeded max nesting depth %d", MaxDepth))
	}

	tok, err := p.dec.Token()
	if err != nil {
		return Value{}, p.syntaxError(err)
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return p.object(depth)
		case '[':
			return p.array(depth)
		default:
			return Value{}, p.errorAt(p.dec.InputOffset()-1, errors.Newf("unexpected %q", rune(t)))
		}
	case nil:
		return NullValue(), nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		return NumberValue(t), nil
	case string:
		return StringValue(t), nil
	default:
		return Value{}, p.errorAt(p.dec.InputOffset(), errors.Newf("unexpected token %v", tok))
	}
}

func (p *parser) object(depth int) (Value, error) {
	var members []Member
	for p.dec.More() {
		tok, err := p.dec.Token()
		if err != nil {
			return Value{}, p.syntaxError(err)
		}
		key, ok := tok.(string)
		if !ok {
			return Value{}, p.errorAt(p.dec.InputOffset()-1, errors.Newf("expected object key, got %v", tok))
		}
		v, err := p.value(depth + 1)
		if err != nil {
			return Value{}, err
		}
		members = append(members, Member{Key: key, Value: v})
	}
	if err := p.closing('}'); err != nil {
		return Value{}, err
	}
	return ObjectValue(members...), nil
}

func (p *parser) array(depth int) (Value, error) {
	elems := []Value{}
	for p.dec.More() {
		v, err := p.value(depth + 1)
		if err != nil {
			return Value{}, err
		}
		elems = append(elems, v)
	}
	if err := p.closing(']'); err != nil {
		return Value{}, err
	}
	return ArrayValue(elems...), nil
}

func (p *parser) closing(want json.Delim) error {
	tok, err := p.dec.Token()
	if err != nil {
		return p.syntaxError(err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return p.errorAt(p.dec.InputOffset()-1, errors.Newf("expected %q, got %v", rune(want), tok))
	}
	return nil
}

// invalid locates the first syntax error in a document json.Valid rejected.
func (p *parser) invalid() error {
	err := json.Unmarshal(p.data, &struct{}{})
	var se *json.SyntaxError
	if !errors.As(err, &se) {
		return p.errorAt(0, errors.New("invalid JSON document"))
	}
	pos := se.Offset - 1 // Offset includes the offending byte
	if se.Offset >= int64(len(p.data)) && strings.HasPrefix(se.Error(), "unexpected end") {
		pos = int64(len(p.data))
	}
	return p.errorAt(pos, errors.New(se.Error()))
}

// syntaxError converts decoder failures into a positioned ParseError.
func (p *parser) syntaxError(err error) error {
	var se *json.SyntaxError
	switch {
	case errors.As(err, &se):
		// Offset counts bytes read before the error; the offending byte is the last one.
		return p.errorAt(se.Offset-1, errors.New(se.Error()))
	case err == io.EOF, errors.Is(err, io.ErrUnexpectedEOF):
		return p.errorAt(int64(len(p.data)), errors.New("unexpected end of JSON input"))
	default:
		return p.errorAt(p.dec.InputOffset(), err)
	}
}

func (p *parser) errorAt(pos int64, cause error) error {
	if pos < 0 {
		pos = 0
	}
	if pos > int64(len(p.data)) {
		pos = int64(len(p.data))
	}
	line, col := position(p.data, pos)
	return errors.NewParseError(p.source, line, col, pos+p.shift, excerpt(p.data, pos), cause)
}

// position converts a byte offset into a 1-based line and column.
func position(data []byte, pos int64) (line, col int) {
	prefix := data[:pos]
	line = 1 + bytes.Count(prefix, []byte{'\n'})
	col = int(pos) - bytes.LastIndexByte(prefix, '\n')
	return line, col
}

// excerpt returns up to contextRadius bytes either side of pos on one line.
func excerpt(data []byte, pos int64) string {
	start := pos - contextRadius
	if start < 0 {
		start = 0
	}
	end := pos + contextRadius
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	s := strings.ToValidUTF8(string(data[start:end]), "")
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}
