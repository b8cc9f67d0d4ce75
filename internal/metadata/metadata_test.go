package metadata

import (
	"errors"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReader struct {
	fields   map[string]string
	err      error
	supports bool
	calls    int
}

func (s *stubReader) SupportsFile(string) bool { return s.supports }

func (s *stubReader) Read(string) (map[string]string, error) {
	s.calls++
	return s.fields, s.err
}

func writeJPEG(t *testing.T, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "photo.jpg")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return path
}

func TestInspect(t *testing.T) {
	path := writeJPEG(t, 2000, 1000)
	r := &stubReader{supports: true, fields: map[string]string{"Model": "X100", "Make": "Fuji"}}

	info, err := Inspect(path, 1200, r)

	require.NoError(t, err)
	assert.Equal(t, "jpeg", info.Format)
	assert.Equal(t, 2000, info.Width)
	assert.Equal(t, 1000, info.Height)
	assert.Equal(t, 1200, info.TargetWidth)
	assert.Equal(t, 600, info.TargetHeight)
	assert.True(t, info.Resized())
	assert.Equal(t, []string{"Make", "Model"}, info.FieldNames())
}

func TestInspect_NarrowImageKeepsSize(t *testing.T) {
	info, err := Inspect(writeJPEG(t, 800, 600), 1200, nil)

	require.NoError(t, err)
	assert.False(t, info.Resized())
	assert.Empty(t, info.Fields)
}

func TestInspect_ReaderFailureIsNotFatal(t *testing.T) {
	r := &stubReader{supports: true, err: errors.New("boom")}

	info, err := Inspect(writeJPEG(t, 10, 10), 1200, r)

	require.NoError(t, err)
	assert.Empty(t, info.Fields)
}

func TestInspect_NotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.jpg")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0o644))

	_, err := Inspect(path, 1200, nil)

	assert.Error(t, err)
}

func TestChainReader(t *testing.T) {
	unsupported := &stubReader{supports: false, fields: map[string]string{"a": "1"}}
	empty := &stubReader{supports: true, err: ErrNoMetadata}
	good := &stubReader{supports: true, fields: map[string]string{"Make": "Canon"}}
	chain := ChainReader{unsupported, empty, good}

	fields, err := chain.Read("x.heic")

	require.NoError(t, err)
	assert.Equal(t, "Canon", fields["Make"])
	assert.Zero(t, unsupported.calls)
	assert.Equal(t, 1, empty.calls)
	assert.True(t, chain.SupportsFile("x.heic"))
}

func TestChainReader_AllFail(t *testing.T) {
	_, err := ChainReader{&stubReader{supports: true, err: ErrNoMetadata}}.Read("x")
	assert.ErrorIs(t, err, ErrNoMetadata)

	_, err = ChainReader{}.Read("x")
	assert.ErrorIs(t, err, ErrNoMetadata)
}

func TestCachedReader(t *testing.T) {
	path := writeJPEG(t, 4, 4)
	inner := &stubReader{supports: true, fields: map[string]string{"Make": "Sony"}}
	c := NewCachedReader(inner)

	for i := 0; i < 3; i++ {
		fields, err := c.Read(path)
		require.NoError(t, err)
		assert.Equal(t, "Sony", fields["Make"])
	}

	assert.Equal(t, 1, inner.calls)
	stats := c.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 1e-9)
}

func TestGoExifReader_NoExif(t *testing.T) {
	r := NewGoExifReader(nil)

	assert.True(t, r.SupportsFile("A.JPG"))
	assert.False(t, r.SupportsFile("a.heic"))

	_, err := r.Read(writeJPEG(t, 4, 4))
	assert.Error(t, err)
}

func TestExiftoolReader(t *testing.T) {
	if _, err := exec.LookPath("exiftool"); err != nil {
		t.Skip("exiftool not installed")
	}
	r, err := NewExiftoolReader()
	require.NoError(t, err)
	defer r.Close()

	fields, err := r.Read(writeJPEG(t, 4, 4))

	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", fields["MIMEType"])
}
