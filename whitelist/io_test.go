package whitelist

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

func TestWhitelistRoundTrip(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()
	path := filepath.Join(tempDir, "whitelist.tsv")

	b := NewBuilder()
	b.AddCount("ACGT", 7)
	b.AddCount("AAAA", 2)
	b.AddCount("TTTT", 11)
	want := b.Build()

	require.NoError(t, Write(ctx, path, want))
	got, err := Read(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, want.Entries, got.Entries)

	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "AAAA\t2\nACGT\t7\nTTTT\t11\n", string(data))
}

// TestReadCatalog parses an external catalog: bare barcodes, comments, and
// blank lines.
func TestReadCatalog(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()
	path := filepath.Join(tempDir, "catalog.txt")
	content := "# external catalog\nACGT\n\nTTTT\nACGT\n"
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))

	got, err := Read(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{"ACGT", 0}, {"TTTT", 0}}, got.Entries)
}

func TestReadErrors(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := vcontext.Background()

	_, err := Read(ctx, filepath.Join(tempDir, "missing.tsv"))
	assert.Error(t, err)

	bad := filepath.Join(tempDir, "bad.tsv")
	require.NoError(t, ioutil.WriteFile(bad, []byte("ACGT\tnotanumber\n"), 0644))
	_, err = Read(ctx, bad)
	assert.Error(t, err)

	extra := filepath.Join(tempDir, "extra.tsv")
	require.NoError(t, ioutil.WriteFile(extra, []byte("ACGT\t1\t2\n"), 0644))
	_, err = Read(ctx, extra)
	assert.Error(t, err)
}

func TestMain(m *testing.M) {
	shutdown := grail.Init()
	defer shutdown()
	os.Exit(m.Run())
}
