// Package textio opens line-oriented input files, transparently handling
// gzip and xz compression, and defines the parse error shared by all loaders.
package textio

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	xzMagic   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// maxLineSize bounds a single record; GTF attribute columns can be long.
const maxLineSize = 1024 * 1024

// Reader is an opened input with any decompressor layered on top.
type Reader struct {
	io.Reader
	file         *os.File
	decompressor io.Closer
}

// Open opens path for reading. "-" reads from stdin.
// Compression is detected from magic bytes, not the file extension.
func Open(path string) (*Reader, error) {
	if path == "-" {
		return Wrap(os.Stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	r, err := Wrap(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	r.file = f
	return r, nil
}

// Wrap sniffs r for gzip or xz content and returns a decompressing reader.
func Wrap(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(xzMagic))
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("read header: %w", err)
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		gz, err := pgzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		return &Reader{Reader: gz, decompressor: gz}, nil
	case bytes.HasPrefix(head, xzMagic):
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create xz reader: %w", err)
		}
		return &Reader{Reader: xr}, nil
	default:
		return &Reader{Reader: br}, nil
	}
}

// Close releases the decompressor and the underlying file.
func (r *Reader) Close() error {
	var first error
	if r.decompressor != nil {
		first = r.decompressor.Close()
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewScanner returns a line scanner sized for long annotation records.
func NewScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxLineSize)
	return scanner
}
