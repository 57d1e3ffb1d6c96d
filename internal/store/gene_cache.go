package store

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/inodb/vibe-enhancer/internal/genome"
)

// GeneCache manages gob-serialized protein-coding genes on disk so large GTF
// files are parsed once:
//
//	{dir}/genes.gob       (serialized genes)
//	{dir}/genes.gob.meta  (source file fingerprint)
type GeneCache struct {
	dir string
}

// NewGeneCache creates a gene cache for the given directory.
func NewGeneCache(dir string) *GeneCache {
	return &GeneCache{dir: dir}
}

func (gc *GeneCache) gobPath() string {
	return filepath.Join(gc.dir, "genes.gob")
}

func (gc *GeneCache) metaPath() string {
	return filepath.Join(gc.dir, "genes.gob.meta")
}

// Valid checks whether the cached genes match the current GTF file.
func (gc *GeneCache) Valid(gtf FileFingerprint) bool {
	meta, err := gc.readMeta()
	if err != nil {
		return false
	}

	checks := []struct{ key, val string }{
		{"gtf_path", gtf.Path},
		{"gtf_size", strconv.FormatInt(gtf.Size, 10)},
		{"gtf_modtime", gtf.ModTime.UTC().Format(time.RFC3339Nano)},
	}
	for _, c := range checks {
		if meta[c.key] != c.val {
			return false
		}
	}

	if _, err := os.Stat(gc.gobPath()); err != nil {
		return false
	}
	return true
}

// Load reads serialized genes from disk.
func (gc *GeneCache) Load() ([]*genome.Gene, error) {
	f, err := os.Open(gc.gobPath())
	if err != nil {
		return nil, fmt.Errorf("open gene cache: %w", err)
	}
	defer f.Close()

	var genes []*genome.Gene
	if err := gob.NewDecoder(f).Decode(&genes); err != nil {
		return nil, fmt.Errorf("decode gene cache: %w", err)
	}
	return genes, nil
}

// Write serializes genes to disk along with the GTF fingerprint.
func (gc *GeneCache) Write(genes []*genome.Gene, gtf FileFingerprint) error {
	if err := os.MkdirAll(gc.dir, 0755); err != nil {
		return fmt.Errorf("create gene cache directory: %w", err)
	}

	f, err := os.Create(gc.gobPath())
	if err != nil {
		return fmt.Errorf("create gene cache: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(genes); err != nil {
		f.Close()
		os.Remove(gc.gobPath())
		return fmt.Errorf("encode gene cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close gene cache: %w", err)
	}

	return gc.writeMeta(gtf)
}

// Clear removes the cached gene files.
func (gc *GeneCache) Clear() {
	os.Remove(gc.gobPath())
	os.Remove(gc.metaPath())
}

func (gc *GeneCache) writeMeta(gtf FileFingerprint) error {
	lines := []string{
		"gtf_path=" + gtf.Path,
		"gtf_size=" + strconv.FormatInt(gtf.Size, 10),
		"gtf_modtime=" + gtf.ModTime.UTC().Format(time.RFC3339Nano),
		"created_at=" + time.Now().UTC().Format(time.RFC3339),
		"",
	}
	return os.WriteFile(gc.metaPath(), []byte(strings.Join(lines, "\n")), 0644)
}

func (gc *GeneCache) readMeta() (map[string]string, error) {
	data, err := os.ReadFile(gc.metaPath())
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}
