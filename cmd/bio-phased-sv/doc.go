// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
/*
bio-phased-sv calls structural variants on each haplotype of a phased BAM
file separately.

Reads are grouped into phase blocks by their PS tag; every phase block and
every span between phase blocks is processed as its own interval.  For each
interval, the reads of each haplotype (HP tag 1 or 2; all reads for spans
with no phasing) are written to a temporary BAM.  mosdepth computes the mean
depth of each temporary BAM, and those with a depth of at least -min-depth
are passed to sniffles.  The per-interval VCFs are concatenated per
haplotype with bcftools, merged per chromosome, and concatenated into the
output VCF.  Each record carries INFO fields PHASE_HP (1, 2 or u) and
PHASE_STATUS (biphasic, monophasic or unphased).

mosdepth, sniffles and bcftools must be in $PATH, or named with -mosdepth,
-sniffles and -bcftools.

Sample usage:
bio-phased-sv \
    -bam phased.bam \
    -vcf phased-svs.vcf \
    -parallelism 4
*/
package main
