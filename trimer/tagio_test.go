package trimer

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagRoundTrip(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()
	path := filepath.Join(tempDir, "chunk0.tags.rio")

	tags := []Tag{
		{ReadID: "r1", Barcode: "ACG", UMI: "TT", BarcodeConf: []uint8{3, 3, 3}, UMIConf: []uint8{3, 2}},
		{ReadID: "r2", Barcode: "ACG", UMI: "TA", BarcodeConf: []uint8{3, 2, 3}, UMIConf: []uint8{2, 2}},
		{ReadID: "r3", Barcode: "GGT", UMI: "CC", BarcodeConf: []uint8{2, 3, 3}, UMIConf: []uint8{3, 3}},
	}
	stats := Stats{Reads: 5, Decoded: 3, Unanchored: 1, Truncated: 1}

	w, err := NewTagWriter(ctx, path, DefaultOpts)
	require.NoError(t, err)
	for _, tag := range tags {
		w.Write(tag)
	}
	require.NoError(t, w.Close(ctx, stats))

	s, err := NewTagScanner(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, DefaultOpts, s.Opts())
	assert.Equal(t, stats, s.Stats())
	var got []Tag
	for s.Scan() {
		got = append(got, s.Tag())
	}
	require.NoError(t, s.Err())
	assert.Equal(t, tags, got)
	require.NoError(t, s.Close(ctx))
}

func TestTagScannerBadFile(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()

	_, err := NewTagScanner(ctx, filepath.Join(tempDir, "missing.rio"))
	assert.Error(t, err)

	// A file that is not a tag stream fails the version check.
	bogus := filepath.Join(tempDir, "bogus.rio")
	require.NoError(t, ioutil.WriteFile(bogus, []byte("not a recordio file"), 0644))
	_, err = NewTagScanner(ctx, bogus)
	assert.Error(t, err)
}

func TestMain(m *testing.M) {
	shutdown := grail.Init()
	defer shutdown()
	os.Exit(m.Run())
}
