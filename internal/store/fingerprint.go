package store

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/zeebo/blake3"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file. The path is made
// absolute so the same file reached through different relative paths matches.
func StatFile(path string) (FileFingerprint, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    abs,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Params are the identification parameters that affect results.
type Params struct {
	TFCutoff int
	Corr     float64
	PValue   float64
}

// RunKey returns a hex blake3 digest identifying a run by its input files
// (in order) and parameters. Worker count does not affect results and is not
// part of the key.
func RunKey(inputs []FileFingerprint, p Params) string {
	h := blake3.New()
	for _, fp := range inputs {
		fmt.Fprintf(h, "%s\x00%d\x00%d\n", fp.Path, fp.Size, fp.ModTime.UnixNano())
	}
	fmt.Fprintf(h, "tf=%d\x00r=%s\x00p=%s\n",
		p.TFCutoff,
		strconv.FormatFloat(p.Corr, 'g', -1, 64),
		strconv.FormatFloat(p.PValue, 'g', -1, 64))
	return hex.EncodeToString(h.Sum(nil))
}
