package textio

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

const sample = "id,s1,s2\nchr1:1-2,1.5,2.5\n"

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func readAll(t *testing.T, path string) string {
	t.Helper()
	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func TestOpen_Plain(t *testing.T) {
	path := writeFile(t, "plain.csv", []byte(sample))
	assert.Equal(t, sample, readAll(t, path))
}

func TestOpen_Gzip(t *testing.T) {
	var buf bytes.Buffer
	gz := pgzip.NewWriter(&buf)
	_, err := gz.Write([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	// Extension is irrelevant; detection uses magic bytes.
	path := writeFile(t, "compressed.csv", buf.Bytes())
	assert.Equal(t, sample, readAll(t, path))
}

func TestOpen_XZ(t *testing.T) {
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	require.NoError(t, err)
	_, err = xw.Write([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, xw.Close())

	path := writeFile(t, "genes.gtf.xz", buf.Bytes())
	assert.Equal(t, sample, readAll(t, path))
}

func TestOpen_Empty(t *testing.T) {
	path := writeFile(t, "empty.txt", nil)
	assert.Equal(t, "", readAll(t, path))
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestNewScanner_LongLine(t *testing.T) {
	long := strings.Repeat("x", 200*1024)
	scanner := NewScanner(strings.NewReader(long + "\nshort\n"))
	require.True(t, scanner.Scan())
	assert.Len(t, scanner.Text(), len(long))
	require.True(t, scanner.Scan())
	assert.Equal(t, "short", scanner.Text())
	assert.False(t, scanner.Scan())
	assert.NoError(t, scanner.Err())
}

func TestParseError(t *testing.T) {
	err := Errorf("genes.tsv", 12, "expected %d columns, got %d", 3, 2)
	assert.Equal(t, "genes.tsv:12: expected 3 columns, got 2", err.Error())

	var pe *ParseError
	wrapped := errors.Join(errors.New("load"), err)
	require.True(t, errors.As(wrapped, &pe))
	assert.Equal(t, 12, pe.Line)

	assert.Equal(t, "<input>: empty file", Errorf("", 0, "empty file").Error())
}
