package interval

import (
	"context"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

// WriteBED writes the given intervals as a three-column BED file at path.
func WriteBED(ctx context.Context, path string, intervals ...Interval) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	w := tsv.NewWriter(out.Writer(ctx))
	for _, iv := range intervals {
		w.WriteString(iv.Chrom)
		w.WriteInt64(int64(iv.Start))
		w.WriteInt64(int64(iv.End))
		if err = w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}
