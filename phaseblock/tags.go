package phaseblock

import (
	"fmt"

	"github.com/biogo/hts/sam"
	"github.com/grailbio/phasedsv/interval"
)

var (
	hpTag = sam.Tag{'H', 'P'}
	psTag = sam.Tag{'P', 'S'}
)

func intValue(aux sam.Aux) (int64, bool) {
	switch v := aux.Value().(type) {
	case int8:
		return int64(v), true
	case uint8:
		return int64(v), true
	case int16:
		return int64(v), true
	case uint16:
		return int64(v), true
	case int32:
		return int64(v), true
	case uint32:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}

// Haplotype returns the haplotype label stored in the read's HP tag.  The
// second return value is false if the tag is absent or isn't 1 or 2.
func Haplotype(r *sam.Record) (interval.Label, bool) {
	aux := r.AuxFields.Get(hpTag)
	if aux == nil {
		return interval.LabelNone, false
	}
	if v, ok := intValue(aux); ok {
		switch v {
		case 1:
			return interval.Hap1, true
		case 2:
			return interval.Hap2, true
		}
		return interval.LabelNone, false
	}
	switch s, _ := aux.Value().(string); s {
	case "1":
		return interval.Hap1, true
	case "2":
		return interval.Hap2, true
	}
	return interval.LabelNone, false
}

// PhaseSet returns the read's PS tag value rendered as a string.
func PhaseSet(r *sam.Record) (string, bool) {
	aux := r.AuxFields.Get(psTag)
	if aux == nil {
		return "", false
	}
	if v, ok := intValue(aux); ok {
		return fmt.Sprint(v), true
	}
	return fmt.Sprint(aux.Value()), true
}
