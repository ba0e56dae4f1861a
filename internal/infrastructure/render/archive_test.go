package render

import (
	"archive/tar"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dairyledger/internal/domain/billingrun"
)

func TestCombineArchive(t *testing.T) {
	artifacts := []billingrun.Artifact{
		{Name: "INV-2026-00001.txt", ContentType: "text/plain", Data: []byte("statement one")},
		{Name: "INV-2026-00002.txt", ContentType: "text/plain", Data: []byte("statement two")},
	}

	combined, err := CombineArchive(artifacts)
	require.NoError(t, err)

	assert.Equal(t, "application/gzip", combined.ContentType)
	assert.True(t, strings.HasPrefix(combined.Name, "invoices-"))
	assert.True(t, strings.HasSuffix(combined.Name, ".tar.gz"))

	// Round-trip: unpack and compare contents.
	gz, err := gzip.NewReader(bytes.NewReader(combined.Data))
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	contents := make(map[string]string)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		data, err := io.ReadAll(tr)
		require.NoError(t, err)
		contents[hdr.Name] = string(data)
	}

	assert.Equal(t, map[string]string{
		"INV-2026-00001.txt": "statement one",
		"INV-2026-00002.txt": "statement two",
	}, contents)
}

func TestCombineArchive_Empty(t *testing.T) {
	combined, err := CombineArchive(nil)
	require.NoError(t, err)

	gz, err := gzip.NewReader(bytes.NewReader(combined.Data))
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	_, err = tr.Next()
	assert.Equal(t, io.EOF, err)
}
