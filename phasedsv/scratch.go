package phasedsv

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// Scratch is the run-scoped temporary directory.  Every artifact of a run
// lives below Root, and Cleanup removes it.
type Scratch struct {
	Root string
	// Depth holds depth-tool region files and reports.
	Depth string
	keep  bool
}

// ChromDirs is the namespace of one chromosome within a Scratch.
type ChromDirs struct {
	// ReadSets holds the materialized BAM files.
	ReadSets string
	// Calls holds per-read-set VCF files.
	Calls string
	// Merge holds the per-label and chromosome-level VCF files.
	Merge string
}

// NewScratch creates a scratch directory under parent (os.TempDir() if
// empty).  If keep is set, Cleanup leaves it in place.
func NewScratch(parent string, keep bool) (*Scratch, error) {
	if parent != "" {
		if err := os.MkdirAll(parent, 0755); err != nil {
			return nil, errors.E(err, "create", parent)
		}
	}
	root, err := ioutil.TempDir(parent, "phasedsv")
	if err != nil {
		return nil, errors.E(err, "create scratch dir")
	}
	s := &Scratch{Root: root, Depth: filepath.Join(root, "depth"), keep: keep}
	if err := os.Mkdir(s.Depth, 0755); err != nil {
		_ = os.RemoveAll(root)
		return nil, errors.E(err, "create", s.Depth)
	}
	return s, nil
}

// Chrom creates the namespace of the idx'th chromosome.
func (s *Scratch) Chrom(idx int, chrom string) (ChromDirs, error) {
	name := fmt.Sprintf("%03d_%s", idx, strings.Replace(chrom, string(os.PathSeparator), "_", -1))
	base := filepath.Join(s.Root, name)
	d := ChromDirs{
		ReadSets: filepath.Join(base, "readsets"),
		Calls:    filepath.Join(base, "calls"),
		Merge:    filepath.Join(base, "merge"),
	}
	for _, dir := range []string{d.ReadSets, d.Calls, d.Merge} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return ChromDirs{}, errors.E(err, "create", dir)
		}
	}
	return d, nil
}

// Cleanup removes the scratch directory, unless it is to be kept.
func (s *Scratch) Cleanup() {
	if s.keep {
		log.Printf("keeping scratch directory %s", s.Root)
		return
	}
	if err := os.RemoveAll(s.Root); err != nil {
		log.Error.Printf("remove %s: %v", s.Root, err)
	}
}
