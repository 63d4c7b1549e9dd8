/*Package interval defines the genomic intervals a phased chromosome is
  segmented into, and the interval-union operations used to derive the
  unphased complement of a set of phase blocks.

  Every chromosome is partitioned into phased intervals (one per phase set)
  and unphased intervals (the gaps between them); together they cover
  [0, chromosome length) with no gap.  Coordinates are 0-based half-open and
  fit in a PosType, since that's what BAM files are limited to.
*/
package interval
