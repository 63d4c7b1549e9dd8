package bamprovider

import (
	"github.com/biogo/hts/sam"
)

// RefByName finds a sam.Reference with the given name. It returns nil if a
// reference is not found.
func RefByName(h *sam.Header, refName string) *sam.Reference {
	for _, ref := range h.Refs() {
		if ref.Name() == refName {
			return ref
		}
	}
	return nil
}

// NewChromIterator creates an iterator over every mapped read of ref.
func NewChromIterator(p Provider, ref *sam.Reference) Iterator {
	return p.NewIterator(ref, 0, ref.Len())
}
