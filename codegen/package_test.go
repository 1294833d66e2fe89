package codegen

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackageHandler(t *testing.T) {
	source := "def lambda_handler(event, context):\n    return {}\n"
	bundle, err := PackageHandler(source)
	require.NoError(t, err)

	r, err := zip.NewReader(bytes.NewReader(bundle), int64(len(bundle)))
	require.NoError(t, err)
	require.Len(t, r.File, 1)
	assert.Equal(t, HandlerFileName, r.File[0].Name)

	f, err := r.File[0].Open()
	require.NoError(t, err)
	defer f.Close()
	got, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, source, string(got))
}
