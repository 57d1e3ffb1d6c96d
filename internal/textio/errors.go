package textio

import "fmt"

// ParseError reports a malformed record in an input file.
type ParseError struct {
	Path string
	Line int // 1-based; 0 when the error is not tied to a line
	Msg  string
}

func (e *ParseError) Error() string {
	path := e.Path
	if path == "" {
		path = "<input>"
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", path, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", path, e.Msg)
}

// Errorf builds a ParseError for the given file and line.
func Errorf(path string, line int, format string, args ...any) *ParseError {
	return &ParseError{Path: path, Line: line, Msg: fmt.Sprintf(format, args...)}
}
