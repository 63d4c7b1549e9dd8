package phaseblock

import (
	"testing"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/phasedsv/encoding/bamprovider"
	"github.com/grailbio/phasedsv/interval"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func read(name string, ref *sam.Reference, pos, length int, ps interface{}, hp interface{}) *sam.Record {
	var auxs []sam.Aux
	if hp != nil {
		auxs = append(auxs, bamprovider.NewAux("HP", hp))
	}
	if ps != nil {
		auxs = append(auxs, bamprovider.NewAux("PS", ps))
	}
	return bamprovider.NewRecord(name, ref, pos, length, auxs...)
}

func TestDetect(t *testing.T) {
	header := bamprovider.NewTestHeader([]string{"chr1", "chr2"}, []int{10000, 10000})
	chr1, chr2 := header.Refs()[0], header.Refs()[1]
	recs := []*sam.Record{
		// Phase set 500: both haplotypes.
		read("r1", chr1, 500, 100, 500, 1),
		read("r2", chr1, 550, 200, 500, 2),
		read("r3", chr1, 700, 100, 500, 1),
		// Phase set 2000: haplotype 2 only.
		read("r4", chr1, 2000, 100, 2000, 2),
		read("r5", chr1, 2100, 150, 2000, 2),
		// Unphased reads, and reads with an unusable tag combination.
		read("r6", chr1, 100, 100, nil, nil),
		read("r7", chr1, 3000, 100, nil, 1),
		read("r8", chr1, 3100, 100, 3100, 3),
		read("r9", chr1, 3200, 100, 3100, nil),
		// Another chromosome.
		read("r10", chr2, 10, 100, 10, 1),
	}
	p := bamprovider.NewFakeProvider(header, recs)

	blocks, stats, err := DetectChrom(p, chr1)
	assert.NoError(t, err)
	assert.EQ(t, len(blocks), 2)

	expect.EQ(t, blocks[0].ID, "500")
	expect.EQ(t, blocks[0].Chrom, "chr1")
	expect.EQ(t, blocks[0].Start, interval.PosType(500))
	expect.EQ(t, blocks[0].End, interval.PosType(800))
	expect.EQ(t, blocks[0].Labels, []interval.Label{interval.Hap1, interval.Hap2})
	expect.EQ(t, blocks[0].Status(), interval.StatusBiphasic)

	expect.EQ(t, blocks[1].ID, "2000")
	expect.EQ(t, blocks[1].Start, interval.PosType(2000))
	expect.EQ(t, blocks[1].End, interval.PosType(2250))
	expect.EQ(t, blocks[1].Labels, []interval.Label{interval.Hap2})
	expect.EQ(t, blocks[1].Status(), interval.StatusMonophasic)

	expect.EQ(t, stats, Stats{Reads: 9, Phased: 5, NoPhaseSet: 1, BadHaplotype: 1})

	blocks, _, err = DetectChrom(p, chr2)
	assert.NoError(t, err)
	assert.EQ(t, len(blocks), 1)
	expect.EQ(t, blocks[0].Labels, []interval.Label{interval.Hap1})
}

func TestDetectBiphasicOrder(t *testing.T) {
	header := bamprovider.NewTestHeader([]string{"chr1"}, []int{10000})
	chr1 := header.Refs()[0]
	// Haplotype 2 is seen first, but a biphasic block always lists {1, 2}.
	p := bamprovider.NewFakeProvider(header, []*sam.Record{
		read("a", chr1, 100, 100, 7, 2),
		read("b", chr1, 150, 100, 7, 1),
		read("c", chr1, 5000, 100, "blockZ", "1"),
	})
	blocks, _, err := DetectChrom(p, chr1)
	assert.NoError(t, err)
	assert.EQ(t, len(blocks), 2)
	expect.EQ(t, blocks[0].Labels, []interval.Label{interval.Hap1, interval.Hap2})
	expect.EQ(t, blocks[1].ID, "blockZ")
	expect.EQ(t, blocks[1].Labels, []interval.Label{interval.Hap1})
}

func TestDetectNoPhasing(t *testing.T) {
	header := bamprovider.NewTestHeader([]string{"chr1"}, []int{10000})
	chr1 := header.Refs()[0]
	p := bamprovider.NewFakeProvider(header, []*sam.Record{
		read("a", chr1, 100, 100, nil, nil),
	})
	blocks, stats, err := DetectChrom(p, chr1)
	assert.NoError(t, err)
	expect.EQ(t, len(blocks), 0)
	expect.EQ(t, stats.Reads, 1)
}

func TestTags(t *testing.T) {
	header := bamprovider.NewTestHeader([]string{"chr1"}, []int{10000})
	r := read("a", header.Refs()[0], 0, 10, 123456789, 2)
	label, ok := Haplotype(r)
	expect.True(t, ok)
	expect.EQ(t, label, interval.Hap2)
	id, ok := PhaseSet(r)
	expect.True(t, ok)
	expect.EQ(t, id, "123456789")

	r = read("b", header.Refs()[0], 0, 10, nil, nil)
	_, ok = Haplotype(r)
	expect.False(t, ok)
	_, ok = PhaseSet(r)
	expect.False(t, ok)
}

func TestDataIntegrityError(t *testing.T) {
	err := &DataIntegrityError{Chrom: "chr3", ID: "42", Msg: "no haplotype-tagged reads"}
	expect.EQ(t, err.Error(), "chr3: phase set 42: no haplotype-tagged reads")
}
