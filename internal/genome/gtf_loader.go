package genome

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-enhancer/internal/textio"
)

// GTFLoader loads protein-coding genes from Ensembl or GENCODE GTF files.
type GTFLoader struct {
	path string

	// Unnamed counts protein-coding genes skipped for lacking a gene_name.
	Unnamed int
}

// NewGTFLoader creates a new GTF loader.
func NewGTFLoader(path string) *GTFLoader {
	return &GTFLoader{path: path}
}

// Load reads all protein-coding genes from the GTF file.
func (l *GTFLoader) Load() ([]*Gene, error) {
	r, err := textio.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open GTF file: %w", err)
	}
	defer r.Close()

	return l.parseGTF(r)
}

// ReadGenes parses GTF content from r; path is used in error messages.
func ReadGenes(r io.Reader, path string) ([]*Gene, error) {
	l := &GTFLoader{path: path}
	return l.parseGTF(r)
}

// gtfFeature represents a parsed GTF line.
type gtfFeature struct {
	chrom       string
	featureType string
	start       int64
	end         int64
	strand      string
	attributes  map[string]string
}

// parseGTF keeps "gene" features whose biotype is protein_coding. Lines of
// other feature types are only checked for column count.
func (l *GTFLoader) parseGTF(reader io.Reader) ([]*Gene, error) {
	scanner := textio.NewScanner(reader)

	var genes []*Gene
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		// Skip comments and empty lines
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 9 {
			return nil, textio.Errorf(l.path, lineNum, "invalid GTF line: expected 9 fields, got %d", len(fields))
		}
		if fields[2] != "gene" {
			continue
		}

		feat, err := parseLine(fields)
		if err != nil {
			return nil, textio.Errorf(l.path, lineNum, "%v", err)
		}

		if geneBiotype(feat.attributes) != BiotypeProteinCoding {
			continue
		}

		name := feat.attributes["gene_name"]
		if name == "" {
			l.Unnamed++
			continue
		}

		genes = append(genes, &Gene{
			ID:      stripVersion(feat.attributes["gene_id"]),
			Name:    name,
			Chrom:   feat.chrom,
			Start:   feat.start,
			End:     feat.end,
			Strand:  parseStrand(feat.strand),
			Biotype: BiotypeProteinCoding,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GTF: %w", err)
	}

	return genes, nil
}

// parseLine parses the columns of a single GTF line.
func parseLine(fields []string) (*gtfFeature, error) {
	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse start %q", fields[3])
	}

	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse end %q", fields[4])
	}

	return &gtfFeature{
		chrom:       normalizeChrom(fields[0]),
		featureType: fields[2],
		start:       start,
		end:         end,
		strand:      fields[6],
		attributes:  parseAttributes(fields[8]),
	}, nil
}

// geneBiotype returns the biotype under the Ensembl or GENCODE attribute name.
func geneBiotype(attrs map[string]string) string {
	if bt, ok := attrs["gene_biotype"]; ok {
		return bt
	}
	return attrs["gene_type"]
}

// parseAttributes parses GTF attribute column.
// Format: key "value"; key "value"; ...
func parseAttributes(attrStr string) map[string]string {
	attrs := make(map[string]string)

	for _, part := range strings.Split(attrStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, value, ok := strings.Cut(part, " ")
		if !ok {
			continue
		}

		attrs[key] = strings.Trim(strings.TrimSpace(value), "\"")
	}

	return attrs
}

// parseStrand converts strand string to int8.
func parseStrand(s string) int8 {
	if s == "-" {
		return -1
	}
	return 1
}

// stripVersion removes the version suffix from an Ensembl ID.
// e.g., "ENSG00000129514.8" -> "ENSG00000129514"
func stripVersion(id string) string {
	if idx := strings.LastIndex(id, "."); idx != -1 {
		return id[:idx]
	}
	return id
}
