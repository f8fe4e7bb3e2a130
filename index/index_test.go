package index

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/nrtkbb/fsrecon/models"
	"github.com/nrtkbb/fsrecon/scanner"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTree(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, afero.WriteFile(fsys, path, []byte(content), 0644))
	}
	return fsys
}

func TestFindDuplicatesSingleGroupOfK(t *testing.T) {
	for _, k := range []int{2, 3, 5} {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			files := map[string]string{
				"/tree/unique1.txt":     "u1",
				"/tree/sub/unique2.txt": "u2",
			}
			want := make([]string, 0, k)
			for n := 0; n < k; n++ {
				p := fmt.Sprintf("/tree/d%d/copy%d.txt", n, n)
				files[p] = "duplicated content"
				want = append(want, p)
			}

			groups, failures, err := FindDuplicates(context.Background(), newTree(t, files), "/tree", scanner.DefaultOptions())
			require.NoError(t, err)
			assert.Empty(t, failures)
			require.Len(t, groups, 1)
			assert.ElementsMatch(t, want, groups[0].Paths())
		})
	}
}

func TestFindDuplicatesNone(t *testing.T) {
	fsys := newTree(t, map[string]string{"/t/a": "1", "/t/b": "2"})
	groups, _, err := FindDuplicates(context.Background(), fsys, "/t", scanner.DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestBuildKeepsEveryRecordPerSignature(t *testing.T) {
	fsys := newTree(t, map[string]string{
		"/c/z.txt":   "X",
		"/c/a/y.txt": "X",
		"/c/m.txt":   "Y",
	})

	idx, _, err := Build(context.Background(), fsys, "/c", scanner.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
	assert.Len(t, idx.Signatures(), 2)

	x, ok := idx.RecordAt("/c/z.txt")
	require.True(t, ok)
	bucket := idx.Lookup(x.Signature)
	require.Len(t, bucket, 2)
	// lexical walk order
	assert.Equal(t, "/c/a/y.txt", bucket[0].Path)
	assert.Equal(t, "/c/z.txt", bucket[1].Path)
}

func TestRepresentativeIsEarliestPath(t *testing.T) {
	idx := New()
	idx.Add(models.FileRecord{Path: "/c/z.txt", Signature: "s"})
	idx.Add(models.FileRecord{Path: "/c/b.txt", Signature: "s"})
	idx.Add(models.FileRecord{Path: "/c/m.txt", Signature: "s"})

	rep, ok := idx.Representative("s")
	require.True(t, ok)
	assert.Equal(t, "/c/b.txt", rep.Path)

	_, ok = idx.Representative("missing")
	assert.False(t, ok)
}

func TestAddAndRemove(t *testing.T) {
	idx := New()
	idx.Add(models.FileRecord{Path: "/a", Signature: "s1"})
	idx.Add(models.FileRecord{Path: "/b", Signature: "s1"})
	assert.True(t, idx.Contains("s1"))

	assert.True(t, idx.Remove("/a"))
	assert.False(t, idx.Remove("/a"))
	assert.Len(t, idx.Lookup("s1"), 1)

	// re-adding a path with new content moves it to the new bucket
	idx.Add(models.FileRecord{Path: "/b", Signature: "s2"})
	assert.False(t, idx.Contains("s1"))
	assert.True(t, idx.Contains("s2"))
	assert.Equal(t, 1, idx.Len())
}

func TestDuplicatesSortedBySignature(t *testing.T) {
	idx := New()
	for _, r := range []models.FileRecord{
		{Path: "/1", Signature: "bb"},
		{Path: "/2", Signature: "aa"},
		{Path: "/3", Signature: "bb"},
		{Path: "/4", Signature: "aa"},
		{Path: "/5", Signature: "cc"},
	} {
		idx.Add(r)
	}

	groups := idx.Duplicates()
	require.Len(t, groups, 2)
	assert.Equal(t, models.Signature("aa"), groups[0].Signature)
	assert.Equal(t, models.Signature("bb"), groups[1].Signature)
	assert.Equal(t, []string{"/2", "/4"}, groups[0].Paths())
}
