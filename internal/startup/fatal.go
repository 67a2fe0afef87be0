package startup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"media-watcher/internal/logging"
)

// Error is a startup failure with enough context for an operator to act on.
type Error struct {
	Message string
	Cause   string
	Fix     string
	Err     error
}

// NewError creates an Error wrapping err.
func NewError(msg, cause, fix string, err error) *Error {
	return &Error{Message: msg, Cause: cause, Fix: fix, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format renders the error as an Error/Cause/Fix block. Empty sections are
// omitted. NO_COLOR disables color regardless of noColor.
func (e *Error) Format(noColor bool) string {
	saved := color.NoColor
	defer func() { color.NoColor = saved }()
	color.NoColor = noColor || os.Getenv("NO_COLOR") != ""

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")

	cause := e.Cause
	if cause == "" && e.Err != nil {
		cause = e.Err.Error()
	} else if e.Err != nil {
		cause = fmt.Sprintf("%s (%v)", cause, e.Err)
	}
	if cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(cause)
		out.WriteString("\n")
	}
	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}
	return out.String()
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// writeFatal prints err to w. Color is used only when w is a terminal.
func writeFatal(w io.Writer, err error) {
	var se *Error
	if !errors.As(err, &se) {
		se = &Error{Message: "Startup failed", Err: err}
	}
	fmt.Fprint(w, se.Format(!isTerminal(w)))
}

// Fatal logs err, prints it as a structured block on stderr and exits with
// status 1.
func Fatal(err error) {
	logging.Error("Fatal: %v", err)
	writeFatal(os.Stderr, err)
	_ = logging.Close()
	os.Exit(1)
}
