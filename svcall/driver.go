package svcall

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/brentp/vcfgo"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/phasedsv/interval"
	"github.com/grailbio/phasedsv/readset"
)

// INFO keys added to every record.
const (
	InfoHaplotype = "PHASE_HP"
	InfoStatus    = "PHASE_STATUS"
)

// Result is the call-result stream produced for one read-set.
type Result struct {
	// Path is a VCF file owned by the caller of Driver.Call.
	Path     string
	Label    interval.Label
	Interval interval.Interval
	// NRecords is the number of variant records in Path.
	NRecords int
}

// Driver runs a Caller and post-processes its output.
type Driver struct {
	Caller Caller
	// Dir receives the VCF files.
	Dir string
	// SampleName, if nonempty, replaces the sample column name of every
	// single-sample output.
	SampleName string
}

// Call runs the caller on an admitted read-set.  The raw caller output is
// replaced by an annotated copy; no record is filtered out.
func (d *Driver) Call(ctx context.Context, rs readset.ReadSet) (Result, error) {
	base := strings.TrimSuffix(filepath.Base(rs.Path), ".bam")
	raw := filepath.Join(d.Dir, base+".raw.vcf")
	out := filepath.Join(d.Dir, base+".vcf")
	status := rs.Interval.Status()
	if err := d.Caller.Call(ctx, rs, status, raw); err != nil {
		_ = file.Remove(ctx, raw)
		return Result{}, err
	}
	n, err := Annotate(ctx, raw, out, rs.Label, status, d.SampleName)
	if rerr := file.Remove(ctx, raw); rerr != nil {
		log.Error.Printf("remove %s: %v", raw, rerr)
	}
	if err != nil {
		_ = file.Remove(ctx, out)
		return Result{}, err
	}
	log.Debug.Printf("%v hap %v: %d calls", rs.Interval, rs.Label, n)
	return Result{Path: out, Label: rs.Label, Interval: rs.Interval, NRecords: n}, nil
}

// AddInfoHeaders declares the PHASE_HP and PHASE_STATUS INFO fields in h.
func AddInfoHeaders(h *vcfgo.Header) {
	if h.Infos == nil {
		h.Infos = map[string]*vcfgo.Info{}
	}
	h.Infos[InfoHaplotype] = &vcfgo.Info{
		Id:          InfoHaplotype,
		Number:      "1",
		Type:        "String",
		Description: "Haplotype of the read-set the call was made on (1, 2, or u for unphased)",
	}
	h.Infos[InfoStatus] = &vcfgo.Info{
		Id:          InfoStatus,
		Number:      "1",
		Type:        "String",
		Description: "Phase status of the interval the call was made on (biphasic, monophasic or unphased)",
	}
}

// Annotate copies the VCF at in to out, declaring and setting the INFO fields
// PHASE_HP=label and PHASE_STATUS=status on every record.  If sample is
// nonempty and the VCF has exactly one sample column, it is renamed to
// sample.  It returns the number of records copied.
func Annotate(ctx context.Context, in, out string, label interval.Label, status interval.Status, sample string) (n int, err error) {
	src, err := file.Open(ctx, in)
	if err != nil {
		return 0, errors.E(err, "open", in)
	}
	defer src.Close(ctx) // nolint: errcheck
	r, err := vcfgo.NewReader(src.Reader(ctx), false)
	if err != nil {
		return 0, errors.E(err, "read vcf header", in)
	}
	h := r.Header
	AddInfoHeaders(h)
	if sample != "" && len(h.SampleNames) == 1 {
		h.SampleNames[0] = sample
	}

	dst, err := file.Create(ctx, out)
	if err != nil {
		return 0, errors.E(err, "create", out)
	}
	defer func() {
		if cerr := dst.Close(ctx); cerr != nil && err == nil {
			err = errors.E(cerr, "close", out)
		}
	}()
	w, err := vcfgo.NewWriter(dst.Writer(ctx), h)
	if err != nil {
		return 0, errors.E(err, "write vcf header", out)
	}
	for {
		v := r.Read()
		if v == nil {
			break
		}
		if err = v.Info().Set(InfoHaplotype, label.String()); err != nil {
			return n, errors.E(err, "annotate", in)
		}
		if err = v.Info().Set(InfoStatus, status.String()); err != nil {
			return n, errors.E(err, "annotate", in)
		}
		w.WriteVariant(v)
		n++
	}
	if err = r.Error(); err != nil {
		return n, errors.E(err, "parse vcf", in)
	}
	return n, nil
}
