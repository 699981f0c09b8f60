package viewer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/meshview/internal/decode"
)

// Error taxonomy. Faults wrap exactly one of these; match with errors.Is.
var (
	ErrUnsupportedFormat = decode.ErrUnsupportedFormat
	ErrDecodeFailure     = decode.ErrDecodeFailure
	ErrRuntimeRender     = errors.New("runtime render error")
)

// State is the viewer lifecycle state.
type State int

// Viewer states.
const (
	Empty State = iota
	Loading
	Ready
	Error
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Kind classifies a fault.
type Kind int

// Fault kinds.
const (
	UnsupportedFormat Kind = iota
	DecodeFailure
	RuntimeRenderError
)

func (k Kind) String() string {
	switch k {
	case UnsupportedFormat:
		return "unsupported format"
	case DecodeFailure:
		return "decode failure"
	case RuntimeRenderError:
		return "render error"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Fault is the cause of the Error state.
type Fault struct {
	Kind       Kind
	File       string
	Generation uint64
	Err        error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.File, f.Kind, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// Title is the one-line label shown on the failure surface.
func (f *Fault) Title() string {
	cause := f.Cause()
	switch f.Kind {
	case UnsupportedFormat:
		return fmt.Sprintf("Cannot open %s: unsupported file type", f.File)
	case RuntimeRenderError:
		if cause != "" {
			return fmt.Sprintf("Rendering %s failed (%s); load a file to continue", f.File, cause)
		}
		return fmt.Sprintf("Rendering %s failed; load a file to continue", f.File)
	default:
		if cause != "" {
			return fmt.Sprintf("Cannot read %s: %s", f.File, cause)
		}
		return fmt.Sprintf("Cannot read %s: the file is damaged or not a valid model", f.File)
	}
}

// maxCause bounds the cause text so it fits a window title.
const maxCause = 80

// Cause is a short form of the underlying error: the taxonomy and file-name
// prefixes are dropped and only the first line is kept.
func (f *Fault) Cause() string {
	if f.Err == nil {
		return ""
	}
	msg := f.Err.Error()
	for _, prefix := range []string{
		ErrDecodeFailure.Error() + ": ",
		ErrUnsupportedFormat.Error() + ": ",
		ErrRuntimeRender.Error() + ": ",
	} {
		msg = strings.TrimPrefix(msg, prefix)
	}
	if f.File != "" {
		msg = strings.TrimPrefix(msg, f.File+": ")
	}
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	msg = strings.TrimSpace(msg)
	if r := []rune(msg); len(r) > maxCause {
		msg = string(r[:maxCause-3]) + "..."
	}
	return msg
}

// Classify maps a decode error to its fault kind.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return UnsupportedFormat
	case errors.Is(err, ErrRuntimeRender):
		return RuntimeRenderError
	default:
		return DecodeFailure
	}
}
