package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/teranos/jflat/errors"
)

// PrintError writes "error: <message>" followed by any remediation hints
func PrintError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
	for _, hint := range errors.GetAllHints(err) {
		fmt.Fprintf(w, "  hint: %s\n", hint)
	}

	// relative input paths are resolved against the working directory
	if ce, ok := errors.AsConversion(err); ok && ce.Kind == errors.KindNotFound && ce.Path != "" && !filepath.IsAbs(ce.Path) {
		if cwd, err := os.Getwd(); err == nil {
			fmt.Fprintf(w, "  hint: relative paths are resolved from %s\n", cwd)
		}
	}
}

// ExitCode maps an error to the process exit status
func ExitCode(err error) int {
	if err == nil || errors.IsKind(err, errors.KindEmptyInput) {
		return 0
	}
	return 1
}
