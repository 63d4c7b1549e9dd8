package bamprovider_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/phasedsv/encoding/bamprovider"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/require"
)

func testRecords(header *sam.Header) []*sam.Record {
	chr1, chr2 := header.Refs()[0], header.Refs()[1]
	return []*sam.Record{
		bamprovider.NewRecord("a", chr1, 10, 100),
		bamprovider.NewRecord("b", chr1, 150, 100),
		bamprovider.NewRecord("c", chr1, 400, 50),
		bamprovider.NewRecord("d", chr1, 990, 10),
		bamprovider.NewRecord("e", chr2, 0, 20),
	}
}

func readNames(t *testing.T, p bamprovider.Provider, ref *sam.Reference, start, limit int) []string {
	names := []string{}
	iter := p.NewIterator(ref, start, limit)
	for iter.Scan() {
		names = append(names, iter.Record().Name)
	}
	require.NoError(t, iter.Err())
	require.NoError(t, iter.Close())
	return names
}

func checkOverlap(t *testing.T, p bamprovider.Provider, header *sam.Header) {
	chr1, chr2 := header.Refs()[0], header.Refs()[1]
	require.Equal(t, []string{"a", "b", "c", "d"}, readNames(t, p, chr1, 0, 1000))
	// "a" ends at 110, so it overlaps [100, 160); "b" starts inside.
	require.Equal(t, []string{"a", "b"}, readNames(t, p, chr1, 100, 160))
	require.Equal(t, []string{"b"}, readNames(t, p, chr1, 110, 160))
	require.Equal(t, []string{}, readNames(t, p, chr1, 260, 400))
	require.Equal(t, []string{"c"}, readNames(t, p, chr1, 449, 450))
	require.Equal(t, []string{"e"}, readNames(t, p, chr2, 0, 500))
	require.Equal(t, []string{"d"}, readNames(t, p, chr1, 995, 1000))
}

func TestFakeProvider(t *testing.T) {
	header := bamprovider.NewTestHeader([]string{"chr1", "chr2"}, []int{1000, 500})
	p := bamprovider.NewFakeProvider(header, testRecords(header))
	checkOverlap(t, p, header)
	require.NoError(t, p.Close())
}

func TestBAMProvider(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	header := bamprovider.NewTestHeader([]string{"chr1", "chr2"}, []int{1000, 500})
	path := filepath.Join(tempDir, "test.bam")
	w, err := bamprovider.NewIndexedWriter(ctx, path, header)
	require.NoError(t, err)
	for _, r := range testRecords(header) {
		require.NoError(t, w.Write(r))
	}
	require.Equal(t, 5, w.Len())
	require.NoError(t, w.Close())

	p := bamprovider.NewProvider(path)
	h, err := p.GetHeader()
	require.NoError(t, err)
	require.Equal(t, 2, len(h.Refs()))
	// Repeat the test to exercise the iterator-reuse code path.
	for i := 0; i < 2; i++ {
		checkOverlap(t, p, h)
	}
	require.Equal(t, []string{"a"}, readNames(t, p, bamprovider.RefByName(h, "chr1"), 0, 100))
	require.NoError(t, p.Close())
}

// writeBAM writes recs to path through an IndexedWriter.
func writeBAM(t *testing.T, path string, header *sam.Header, recs []*sam.Record) {
	w, err := bamprovider.NewIndexedWriter(context.Background(), path, header)
	require.NoError(t, err)
	for _, r := range recs {
		require.NoError(t, w.Write(r))
	}
	require.NoError(t, w.Close())
}

func TestBAMProviderUnindexedRefs(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	header := bamprovider.NewTestHeader([]string{"chr1", "chr2", "chr3"}, []int{1000, 500, 500})
	chr1 := header.Refs()[0]
	path := filepath.Join(tempDir, "chr1only.bam")
	writeBAM(t, path, header, []*sam.Record{
		bamprovider.NewRecord("a", chr1, 10, 100),
		bamprovider.NewRecord("b", chr1, 150, 100),
	})

	p := bamprovider.NewProvider(path)
	h, err := p.GetHeader()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, readNames(t, p, h.Refs()[0], 0, 1000))
	// The index lists chr1 only.
	require.Equal(t, []string{}, readNames(t, p, h.Refs()[1], 0, 500))
	require.Equal(t, []string{}, readNames(t, p, h.Refs()[2], 0, 500))
	// No chr1 read overlaps the range.
	require.Equal(t, []string{}, readNames(t, p, h.Refs()[0], 900, 1000))
	require.NoError(t, p.Close())
}

func TestBAMProviderEmpty(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	header := bamprovider.NewTestHeader([]string{"chr1", "chr2"}, []int{1000, 500})
	path := filepath.Join(tempDir, "empty.bam")
	writeBAM(t, path, header, nil)

	p := bamprovider.NewProvider(path)
	h, err := p.GetHeader()
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		for _, ref := range h.Refs() {
			require.Equal(t, []string{}, readNames(t, p, ref, 0, ref.Len()))
		}
	}
	require.NoError(t, p.Close())
}

func TestRefByName(t *testing.T) {
	header := bamprovider.NewTestHeader([]string{"chr1", "chr2"}, []int{1000, 500})
	require.Equal(t, header.Refs()[1], bamprovider.RefByName(header, "chr2"))
	require.Nil(t, bamprovider.RefByName(header, "chrX"))
}
