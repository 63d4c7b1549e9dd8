package bamprovider

import (
	"context"
	"io"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// IndexedWriter writes a coordinate-sorted BAM file and, on Close, its
// ".bai" index.  Thread compatible.
type IndexedWriter struct {
	ctx  context.Context
	path string
	out  file.File
	w    *bam.Writer
	n    int
}

// NewIndexedWriter creates a BAM file at path.  Records passed to Write must
// be in coordinate order.
func NewIndexedWriter(ctx context.Context, path string, header *sam.Header) (*IndexedWriter, error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.E(err, "create", path)
	}
	w, err := bam.NewWriter(out.Writer(ctx), header, 1)
	if err != nil {
		_ = out.Close(ctx)
		return nil, errors.E(err, "write header", path)
	}
	return &IndexedWriter{ctx: ctx, path: path, out: out, w: w}, nil
}

// Write appends one record.
func (w *IndexedWriter) Write(rec *sam.Record) error {
	w.n++
	return w.w.Write(rec)
}

// Len returns the number of records written so far.
func (w *IndexedWriter) Len() int {
	return w.n
}

// Close flushes the BAM file and writes path + ".bai".
func (w *IndexedWriter) Close() error {
	err := w.w.Close()
	if cerr := w.out.Close(w.ctx); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return errors.E(err, "close", w.path)
	}
	return WriteIndex(w.ctx, w.path, w.path+".bai")
}

// WriteIndex reads the BAM file at bamPath and writes its index to
// indexPath.
func WriteIndex(ctx context.Context, bamPath, indexPath string) (err error) {
	in, err := file.Open(ctx, bamPath)
	if err != nil {
		return errors.E(err, "open", bamPath)
	}
	defer in.Close(ctx) // nolint: errcheck
	r, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		return errors.E(err, "read", bamPath)
	}
	defer r.Close() // nolint: errcheck

	var idx bam.Index
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.E(err, "read", bamPath)
		}
		if err := idx.Add(rec, r.LastChunk()); err != nil {
			return errors.E(err, "index", bamPath)
		}
	}

	out, err := file.Create(ctx, indexPath)
	if err != nil {
		return errors.E(err, "create", indexPath)
	}
	defer func() {
		if cerr := out.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return bam.WriteIndex(out.Writer(ctx), &idx)
}
