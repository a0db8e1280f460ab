package display

import (
	"encoding/json"
	"io"

	"github.com/teranos/jflat/errors"
)

// WriteJSON writes v as indented JSON followed by a newline
func WriteJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal JSON")
	}
	return writeLine(w, data)
}

// WriteJSONLine writes v as a single compact line, for streaming consumers
func WriteJSONLine(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "failed to marshal JSON")
	}
	return writeLine(w, data)
}

func writeLine(w io.Writer, data []byte) error {
	if _, err := w.Write(append(data, '\n')); err != nil {
		return errors.Wrap(err, "failed to write output")
	}
	return nil
}
