package kernel

import (
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the structured logger type threaded through the kernel and its
// dependent packages (compute, cluster, monitoring, config), backed by the
// teacher's logiface + stumpy stack. Every record carries at least the
// virtual clock time and a component/category field.
type Logger = logiface.Logger[*stumpy.Event]

// NewLogger builds a Logger writing newline-delimited JSON to w, in the
// style the teacher wires stumpy everywhere it needs structured output.
func NewLogger(w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return logiface.New[*stumpy.Event](
		stumpy.L.WithStumpy(stumpy.WithWriter(w)),
		logiface.WithLevel[*stumpy.Event](logiface.LevelDebug),
	)
}

