package bamprovider

import (
	"bytes"
	"fmt"

	"github.com/biogo/hts/sam"
)

// NewTestHeader creates a header with one reference per (name, length) pair.
// It panics on error and is meant for tests.
func NewTestHeader(names []string, lengths []int) *sam.Header {
	refs := make([]*sam.Reference, len(names))
	for i, name := range names {
		ref, err := sam.NewReference(name, "", "", lengths[i], nil, nil)
		if err != nil {
			panic(fmt.Sprintf("reference %s: %v", name, err))
		}
		refs[i] = ref
	}
	header, err := sam.NewHeader(nil, refs)
	if err != nil {
		panic(fmt.Sprintf("header: %v", err))
	}
	header.SortOrder = sam.Coordinate
	return header
}

// NewRecord creates a mapped read of the given aligned length starting at
// pos, with a plain match cigar, placeholder bases and the given aux fields.
func NewRecord(name string, ref *sam.Reference, pos, length int, auxs ...sam.Aux) *sam.Record {
	r := &sam.Record{
		Name:    name,
		Ref:     ref,
		Pos:     pos,
		MapQ:    60,
		Cigar:   sam.Cigar{sam.NewCigarOp(sam.CigarMatch, length)},
		MateRef: nil,
		MatePos: -1,
		Seq:     sam.NewSeq(bytes.Repeat([]byte{'A'}, length)),
		Qual:    bytes.Repeat([]byte{30}, length),
	}
	r.AuxFields = append(r.AuxFields, auxs...)
	return r
}

// NewAux creates an aux field, panicking on error.
func NewAux(name string, val interface{}) sam.Aux {
	aux, err := sam.NewAux(sam.NewTag(name), val)
	if err != nil {
		panic(fmt.Sprintf("error creating %s %v tag: %v", name, val, err))
	}
	return aux
}
