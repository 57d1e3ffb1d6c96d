package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/inodb/vibe-enhancer/internal/module"
	"github.com/inodb/vibe-enhancer/internal/textio"
)

// LoadReport reads a module report written by TabWriter.
func LoadReport(path string) ([]module.Module, error) {
	r, err := textio.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	mods, err := ReadReport(r, path)
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	return mods, nil
}

// ReadReport parses a module report. The header must match Columns. Targets
// are split on commas and trimmed, so hand-edited reports without the space
// after each comma are accepted.
func ReadReport(reader io.Reader, path string) ([]module.Module, error) {
	scanner := textio.NewScanner(reader)

	var mods []module.Module
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if lineNum == 1 {
			if line != strings.Join(Columns, "\t") {
				return nil, textio.Errorf(path, lineNum, "unexpected header %q", line)
			}
			continue
		}
		if line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != len(Columns) {
			return nil, textio.Errorf(path, lineNum, "expected %d fields, got %d", len(Columns), len(fields))
		}

		m := module.Module{Enhancer: fields[0], TF: fields[1]}
		for _, g := range strings.Split(fields[2], ",") {
			if g = strings.TrimSpace(g); g != "" {
				m.Targets = append(m.Targets, g)
			}
		}
		if m.Enhancer == "" || m.TF == "" || len(m.Targets) == 0 {
			return nil, textio.Errorf(path, lineNum, "incomplete module row")
		}
		mods = append(mods, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, textio.Errorf(path, lineNum, "%v", err)
	}
	if lineNum == 0 {
		return nil, textio.Errorf(path, 0, "empty report")
	}

	return mods, nil
}
