// Package tfbs loads transcription-factor binding site calls per element.
package tfbs

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/inodb/vibe-enhancer/internal/textio"
)

// Table maps an element identifier (enhancer locus or gene symbol) to the set
// of upper-cased TF symbols with a qualifying binding site on it.
type Table map[string]map[string]struct{}

// Has reports whether tf binds element.
func (t Table) Has(element, tf string) bool {
	_, ok := t[element][tf]
	return ok
}

// TFs returns the TFs bound to element in sorted order.
func (t Table) TFs(element string) []string {
	set := t[element]
	if len(set) == 0 {
		return nil
	}
	tfs := make([]string, 0, len(set))
	for tf := range set {
		tfs = append(tfs, tf)
	}
	sort.Strings(tfs)
	return tfs
}

// Len returns the number of elements with at least one TF.
func (t Table) Len() int {
	return len(t)
}

func (t Table) add(element, tf string) {
	set, ok := t[element]
	if !ok {
		set = make(map[string]struct{})
		t[element] = set
	}
	set[tf] = struct{}{}
}

// Load reads a TFBS table from path, keeping records whose score is strictly
// greater than threshold.
func Load(path string, threshold int) (Table, error) {
	r, err := textio.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return Read(r, path, threshold)
}

// Read parses tab-delimited records of the form
//
//	element	TF1::TF2	score
//
// The first line is a header and is skipped.
func Read(reader io.Reader, path string, threshold int) (Table, error) {
	scanner := textio.NewScanner(reader)
	table := make(Table)
	cutoff := float64(threshold)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		if lineNum == 1 {
			continue
		}

		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			return nil, textio.Errorf(path, lineNum, "expected 3 columns, got %d", len(fields))
		}

		element := strings.TrimSpace(fields[0])
		if element == "" {
			return nil, textio.Errorf(path, lineNum, "empty element identifier")
		}

		score, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
			return nil, textio.Errorf(path, lineNum, "invalid score %q", fields[2])
		}
		if !(score > cutoff) {
			continue
		}

		for _, tf := range splitTFs(fields[1]) {
			table.add(element, tf)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}

	return table, nil
}

// splitTFs splits a "::" or ";" delimited TF list into canonical symbols.
func splitTFs(s string) []string {
	parts := strings.FieldsFunc(strings.ReplaceAll(s, "::", ";"), func(r rune) bool {
		return r == ';'
	})
	tfs := parts[:0]
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			tfs = append(tfs, p)
		}
	}
	return tfs
}
