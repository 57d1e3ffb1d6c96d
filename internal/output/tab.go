// Package output provides module report formatters.
package output

import (
	"bufio"
	"io"
	"strings"

	"github.com/inodb/vibe-enhancer/internal/module"
)

// TargetSep separates genes in the target column.
const TargetSep = ", "

// Columns is the fixed report header.
var Columns = []string{"Enhancer", "Regulating TF", "Target genes"}

// TabWriter writes modules in tab-delimited format.
type TabWriter struct {
	w *bufio.Writer
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(Columns, "\t") + "\n")
	return err
}

// Write writes a single (enhancer, TF) row.
func (tw *TabWriter) Write(m module.Module) error {
	_, err := tw.w.WriteString(m.Enhancer + "\t" + m.TF + "\t" + strings.Join(m.Targets, TargetSep) + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}
