package cmd

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 8, 8))))
	return path
}

func noBackends(t *testing.T) {
	t.Setenv("TESSERACT_ENABLED", "false")
	t.Setenv("BARCODE_ENABLED", "false")
	t.Setenv("ONNX_MODEL_PATH", "")
	t.Setenv("GOOGLE_CREDENTIALS_JSON", "")
	t.Setenv("DB_DRIVER", "sqlite")
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	c := NewRootCommand()
	c.SetOut(&out)
	c.SetErr(&bytes.Buffer{})
	c.SetArgs(args)
	require.NoError(t, c.Execute())
	return out.String()
}

func TestDetectFromFilename(t *testing.T) {
	noBackends(t)
	dir := t.TempDir()
	named := writePNG(t, dir, "cust001.png")
	anon := writePNG(t, dir, "package_photo.png")

	out := run(t, named, anon)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, named+"\tCUST001\tfilename", lines[0])
	assert.Equal(t, anon+"\t"+needsReview, lines[1])
}

func TestDetectJSONWithHint(t *testing.T) {
	noBackends(t)
	path := writePNG(t, t.TempDir(), "package_photo.png")

	var res detectResult
	require.NoError(t, json.Unmarshal([]byte(run(t, "--json", "--hint", "jte0012345678", path)), &res))
	assert.Equal(t, "JTE0012345678", res.Code)
	assert.Equal(t, "hint", res.Source)
	assert.False(t, res.NeedsReview)
}

func TestDetectMissingFile(t *testing.T) {
	noBackends(t)
	out := run(t, filepath.Join(t.TempDir(), "nope.png"))
	assert.Contains(t, out, "ERROR")
}

func TestDetectRequiresFiles(t *testing.T) {
	c := NewRootCommand()
	c.SetOut(&bytes.Buffer{})
	c.SetErr(&bytes.Buffer{})
	c.SetArgs(nil)
	assert.Error(t, c.Execute())
}
