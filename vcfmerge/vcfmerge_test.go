package vcfmerge

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/biogo/hts/bgzf"
	"github.com/brentp/vcfgo"
	"github.com/grailbio/phasedsv/interval"
	"github.com/grailbio/phasedsv/svcall"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

const vcfHeader = `##fileformat=VCFv4.2
##INFO=<ID=SVTYPE,Number=1,Type=String,Description="Type of structural variant">
##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO	FORMAT	S1
`

// writeVCF writes records "chrom:pos" to a new VCF file in dir.
func writeVCF(t *testing.T, dir, name string, recs ...string) string {
	var b strings.Builder
	b.WriteString(vcfHeader)
	for i, rec := range recs {
		parts := strings.Split(rec, ":")
		fmt.Fprintf(&b, "%s\t%s\t%s_%d\tN\t<DEL>\t.\tPASS\tSVTYPE=DEL\tGT\t0/1\n", parts[0], parts[1], name, i)
	}
	path := filepath.Join(dir, name+".vcf")
	assert.NoError(t, ioutil.WriteFile(path, []byte(b.String()), 0644))
	return path
}

// records returns "chrom:pos:id" for every record in the VCF at path.
func records(t *testing.T, path string) []string {
	f, err := os.Open(path)
	assert.NoError(t, err)
	defer f.Close() // nolint: errcheck
	r, err := vcfgo.NewReader(f, false)
	assert.NoError(t, err)
	var out []string
	for v := r.Read(); v != nil; v = r.Read() {
		out = append(out, fmt.Sprintf("%s:%d:%s", v.Chromosome, v.Pos, v.Id()))
	}
	assert.NoError(t, r.Error())
	return out
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestMerge(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	h1 := writeVCF(t, tempDir, "h1", "chr1:100", "chr1:500", "chr1:900")
	h2 := writeVCF(t, tempDir, "h2", "chr1:100", "chr1:200", "chr1:950")
	u := writeVCF(t, tempDir, "u", "chr1:50", "chr1:600", "chr1:601", "chr1:602")
	empty := writeVCF(t, tempDir, "empty")

	out := filepath.Join(tempDir, "merged.vcf")
	n, err := Merge(ctx, []string{h1, h2, empty, u}, out)
	assert.NoError(t, err)
	expect.EQ(t, n, 10)
	expect.EQ(t, records(t, out), []string{
		"chr1:50:u_0",
		"chr1:100:h1_0",
		"chr1:100:h2_0",
		"chr1:200:h2_1",
		"chr1:500:h1_1",
		"chr1:600:u_1",
		"chr1:601:u_2",
		"chr1:602:u_3",
		"chr1:900:h1_2",
		"chr1:950:h2_2",
	})
}

func TestMergeErrors(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	_, err := Merge(ctx, nil, filepath.Join(tempDir, "x.vcf"))
	expect.NotNil(t, err)

	a := writeVCF(t, tempDir, "a", "chr1:100")
	b := writeVCF(t, tempDir, "b", "chr2:100")
	_, err = Merge(ctx, []string{a, b}, filepath.Join(tempDir, "y.vcf"))
	expect.NotNil(t, err)
}

type recordingInvoker struct {
	calls []string
}

func (r *recordingInvoker) Run(ctx context.Context, tool string, args ...string) error {
	r.calls = append(r.calls, tool+" "+strings.Join(args, " "))
	return nil
}

func TestBCFTools(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	inv := &recordingInvoker{}
	b := &BCFTools{Invoker: inv, Tool: "bcftools", TempDir: tempDir}
	ctx := context.Background()

	// workCalls returns the recorded calls with the per-call work directory
	// replaced by "W", and checks that the directory is gone.
	workCalls := func() []string {
		work := filepath.Dir(strings.Fields(inv.calls[0])[4])
		expect.True(t, strings.HasPrefix(work, tempDir+string(os.PathSeparator)))
		expect.False(t, exists(work))
		var calls []string
		for _, c := range inv.calls {
			calls = append(calls, strings.Replace(c, work, "W", -1))
		}
		return calls
	}

	assert.NoError(t, b.Concat(ctx, []string{"/s/a.vcf", "/s/b.vcf"}, "/s/out.vcf.gz"))
	expect.EQ(t, workCalls(), []string{
		"bcftools sort -Oz -o W/in0.vcf.gz /s/a.vcf",
		"bcftools index -f W/in0.vcf.gz",
		"bcftools sort -Oz -o W/in1.vcf.gz /s/b.vcf",
		"bcftools index -f W/in1.vcf.gz",
		"bcftools concat -a -Ov -o W/concat.vcf W/in0.vcf.gz W/in1.vcf.gz",
		"bcftools sort -Oz -o /s/out.vcf.gz W/concat.vcf",
	})

	inv.calls = nil
	b.Threads = 4
	assert.NoError(t, b.Concat(ctx, []string{"/s/a.vcf"}, "/s/chr1.h1.vcf"))
	calls := workCalls()
	expect.EQ(t, calls[2], "bcftools concat -a -Ov -o W/concat.vcf --threads 4 W/in0.vcf.gz")
	expect.EQ(t, calls[3], "bcftools sort -Ov -o /s/chr1.h1.vcf W/concat.vcf")

	// Nothing is left in the temp dir, nor next to the output.
	entries, err := ioutil.ReadDir(tempDir)
	assert.NoError(t, err)
	expect.EQ(t, len(entries), 0)

	// Zero inputs must be short-circuited by the caller.
	inv.calls = nil
	expect.NotNil(t, b.Concat(ctx, nil, "/s/x.vcf"))
	expect.EQ(t, len(inv.calls), 0)
}

func result(path string, label interval.Label, n int) svcall.Result {
	return svcall.Result{Path: path, Label: label, NRecords: n}
}

func TestAggregator(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	a := &Aggregator{Concat: MemConcat{}, Dir: tempDir}

	// chr1: two intervals on haplotype 1, one on 2, one unphased, plus an
	// empty result that must be dropped.
	s := NewStreams("chr1")
	s.Add(ctx, result(writeVCF(t, tempDir, "c1_h1_b", "chr1:5000", "chr1:5100"), interval.Hap1, 2))
	s.Add(ctx, result(writeVCF(t, tempDir, "c1_h1_a", "chr1:1000"), interval.Hap1, 1))
	s.Add(ctx, result(writeVCF(t, tempDir, "c1_h2", "chr1:1200"), interval.Hap2, 1))
	s.Add(ctx, result(writeVCF(t, tempDir, "c1_u", "chr1:10", "chr1:9000"), interval.HapUnphased, 2))
	emptyPath := writeVCF(t, tempDir, "c1_empty")
	s.Add(ctx, result(emptyPath, interval.Hap2, 0))
	expect.False(t, exists(emptyPath))
	expect.EQ(t, len(s.Paths(interval.Hap1)), 2)

	chr1, err := a.FinishChrom(ctx, s)
	assert.NoError(t, err)
	expect.EQ(t, records(t, chr1), []string{
		"chr1:10:c1_u_0",
		"chr1:1000:c1_h1_a_0",
		"chr1:1200:c1_h2_0",
		"chr1:5000:c1_h1_b_0",
		"chr1:5100:c1_h1_b_1",
		"chr1:9000:c1_u_1",
	})
	expect.False(t, exists(filepath.Join(tempDir, "c1_h1_a.vcf")))
	expect.False(t, exists(filepath.Join(tempDir, "chr1.h1.vcf")))

	// chr2 has no calls.
	chr2, err := a.FinishChrom(ctx, NewStreams("chr2"))
	assert.NoError(t, err)
	expect.EQ(t, chr2, "")

	s = NewStreams("chr3")
	s.Add(ctx, result(writeVCF(t, tempDir, "c3_u", "chr3:77"), interval.HapUnphased, 1))
	chr3, err := a.FinishChrom(ctx, s)
	assert.NoError(t, err)

	out := filepath.Join(tempDir, "out", "final.vcf")
	assert.NoError(t, os.MkdirAll(filepath.Dir(out), 0755))
	assert.NoError(t, a.Finish(ctx, []string{chr1, chr2, chr3}, out, "S1"))
	got := records(t, out)
	assert.EQ(t, len(got), 7)
	expect.EQ(t, got[6], "chr3:77:c3_u_0")
	expect.False(t, exists(chr1))
	expect.False(t, exists(chr3))
}

func TestFinishEmpty(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	a := &Aggregator{Concat: MemConcat{}, Dir: tempDir}

	out := filepath.Join(tempDir, "empty.vcf")
	assert.NoError(t, a.Finish(ctx, []string{"", ""}, out, "NA12878"))
	f, err := os.Open(out)
	assert.NoError(t, err)
	r, err := vcfgo.NewReader(f, false)
	assert.NoError(t, err)
	expect.EQ(t, r.Header.SampleNames, []string{"NA12878"})
	expect.NotNil(t, r.Header.Infos[svcall.InfoHaplotype])
	expect.True(t, r.Read() == nil)
	assert.NoError(t, f.Close())

	gz := filepath.Join(tempDir, "empty.vcf.gz")
	assert.NoError(t, a.Finish(ctx, nil, gz, ""))
	f, err = os.Open(gz)
	assert.NoError(t, err)
	bz, err := bgzf.NewReader(f, 1)
	assert.NoError(t, err)
	data, err := ioutil.ReadAll(bz)
	assert.NoError(t, err)
	assert.HasSubstr(t, string(data), "#CHROM\tPOS")
	assert.NoError(t, f.Close())
}

func TestCopy(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	src := writeVCF(t, tempDir, "src", "chr1:1")
	dst := filepath.Join(tempDir, "dst.vcf")
	assert.NoError(t, Copy(context.Background(), src, dst))
	expect.EQ(t, records(t, dst), []string{"chr1:1:src_0"})
}
