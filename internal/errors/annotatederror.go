// Package errors wraps the standard library errors package with errors that carry structured slog annotations
// and the source location where they were created.
package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

type annotatedError struct {
	msg   string
	err   error
	attrs []slog.Attr
	pc    uintptr
}

func (e *annotatedError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *annotatedError) Unwrap() error {
	return e.err
}

// callerPC returns the program counter skip frames above the caller of callerPC.
func callerPC(skip int) uintptr {
	var pcs [1]uintptr
	if runtime.Callers(skip+2, pcs[:]) == 0 { //nolint:mnd // runtime.Callers and callerPC itself.
		return 0
	}
	return pcs[0]
}

// NewSentinel creates an error meant to be declared as a package level variable and compared with [Is].
func NewSentinel(msg string) error {
	return &annotatedError{msg: msg, err: nil, attrs: nil, pc: callerPC(1)}
}

// New creates a new annotated error with optional slog attributes.
func New(msg string, attrs ...slog.Attr) error {
	return &annotatedError{msg: msg, err: nil, attrs: attrs, pc: callerPC(1)}
}

// Wrap annotates err with a message and slog attributes. Wrapping a nil error returns nil.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	return &annotatedError{msg: msg, err: err, attrs: attrs, pc: callerPC(1)}
}

// DecoratePanic converts a recovered panic value to an error pointing at the panicking line.
// It must be called from the deferred function that recovered the panic.
func DecoratePanic(excp any) error {
	if excp == nil {
		return nil
	}
	msg := fmt.Sprintf("panic: %v", excp)
	if err, ok := excp.(error); ok {
		msg = "panic: " + err.Error()
	}

	const maxDepth = 32
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(1, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	var (
		pc           uintptr
		afterGopanic bool
	)
	for {
		frame, more := frames.Next()
		if afterGopanic {
			pc = frame.PC
			break
		}
		if frame.Function == "runtime.gopanic" {
			afterGopanic = true
		}
		if !more {
			break
		}
	}

	return &annotatedError{msg: msg, err: nil, attrs: nil, pc: pc}
}

// SlogError returns a slog attribute describing err including all annotations and the source location of the
// innermost annotated error.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.Attr{Key: "error", Value: slog.StringValue("<nil>")}
	}

	var (
		annotations []any
		pc          uintptr
	)
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		if ae, ok := e.(*annotatedError); ok {
			for _, attr := range ae.attrs {
				annotations = append(annotations, attr)
			}
			if ae.pc != 0 {
				pc = ae.pc
			}
		}
	}

	attrs := []any{slog.String("message", err.Error())}
	if len(annotations) > 0 {
		attrs = append(attrs, slog.Group("annotations", annotations...))
	}
	if pc != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
		if frame.File != "" {
			attrs = append(attrs, slog.String("source", fmt.Sprintf("%s:%d", trimGoPath(frame.File), frame.Line)))
		}
	}
	return slog.Group("error", attrs...)
}

func trimGoPath(file string) string {
	if i := strings.LastIndex(file, "/internal/"); i >= 0 {
		return file[i+1:]
	}
	if i := strings.LastIndex(file, "/cmd/"); i >= 0 {
		return file[i+1:]
	}
	return file
}

// Is reports whether any error in err's tree matches target. See [errors.Is].
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target. See [errors.As].
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err. See [errors.Unwrap].
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// Join returns an error that wraps the given errors. See [errors.Join].
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}
