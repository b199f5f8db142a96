/*******************************************************************************
 * Copyright (c) 2025 Genome Research Ltd.
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/wtsi-hgi/contaminas/alleles"
	"github.com/wtsi-hgi/contaminas/bamfile"
	"github.com/wtsi-hgi/contaminas/fasta"
	"github.com/wtsi-hgi/contaminas/kmer"
	"github.com/wtsi-hgi/contaminas/pileup"
	"github.com/wtsi-hgi/contaminas/tools"
)

// pileupPass is the canonical detection pass: map the trimmed reads to
// the genus database, pick the best-supported allele per gene, remap
// against just those alleles, and count positions showing more than one
// allele's signal. trimmedRev is blank for unpaired samples.
func (r *Run) pileupPass(workDir, sampleDB, trimmedFwd, trimmedRev string) (int, error) {
	sel, err := r.selectBestAlleles(workDir, sampleDB, trimmedFwd, trimmedRev)
	if err != nil {
		return 0, err
	}

	restricted := filepath.Join(workDir, "rmlst.fasta")

	if _, err = sel.WriteRestricted(sampleDB, restricted); err != nil {
		return 0, err
	}

	if err = r.tools.SamtoolsFaidx(restricted); err != nil {
		return 0, err
	}

	sortedBam, err := r.mapAndSort(workDir, "restricted", restricted, trimmedFwd, trimmedRev, false)
	if err != nil {
		return 0, err
	}

	records, err := bamfile.ReadAll(sortedBam)
	if err != nil {
		return 0, err
	}

	total := 0

	for _, contig := range sel.Contigs() {
		positions := pileup.ScanContig(records, contig)
		total += len(positions)
	}

	return total, nil
}

// selectBestAlleles maps reads against the full genus database, keeping
// every placement of multi-mapping reads, and ranks alleles within each
// gene by mapped-read count.
func (r *Run) selectBestAlleles(workDir, sampleDB, trimmedFwd, trimmedRev string) (*alleles.Selection, error) {
	sortedBam, err := r.mapAndSort(workDir, "genus", sampleDB, trimmedFwd, trimmedRev, true)
	if err != nil {
		return nil, err
	}

	records, err := bamfile.ReadAll(sortedBam)
	if err != nil {
		return nil, err
	}

	contigs, err := fasta.ContigNames(sampleDB)
	if err != nil {
		return nil, err
	}

	return alleles.Select(contigs, bamfile.CountByContig(records)), nil
}

// mapAndSort maps reads to a reference and returns the path of the
// sorted, indexed BAM.
func (r *Run) mapAndSort(workDir, label, ref, fwd, rev string, ambigAll bool) (string, error) {
	rawBam := filepath.Join(workDir, label+".bam")
	sortedBam := filepath.Join(workDir, label+"_sorted.bam")

	if err := r.tools.BBMap(ref, fwd, rev, rawBam, ambigAll); err != nil {
		return "", err
	}

	return sortedBam, r.tools.SortAndIndex(rawBam, sortedBam)
}

// kmerCycles is the k-mer evidence path: repeatedly subsample the
// trimmed reads, build a solid k-mer spectrum, align it against itself to
// find one-mismatch k-mer pairs, and confirm each candidate against the
// sample's reference database. Returns one evidence count per cycle and
// the maximum solid k-mer count seen.
func (r *Run) kmerCycles(workDir, sampleDB, trimmedFwd, trimmedRev string) ([]int, int, error) {
	snvs := make([]int, 0, r.opts.Cycles)
	maxKmers := 0

	for cycle := 0; cycle < r.opts.Cycles; cycle++ {
		r.logger.Info("working on detection cycle", "cycle", cycle+1, "of", r.opts.Cycles)

		solid, err := r.solidKmersForCycle(workDir, cycle, trimmedFwd, trimmedRev)
		if err != nil {
			return nil, 0, err
		}

		if len(solid) > maxKmers {
			maxKmers = len(solid)
		}

		if len(solid) == 0 {
			// A spectrum with nothing above the cutoff is a valid
			// zero-evidence cycle.
			snvs = append(snvs, 0)

			continue
		}

		count, err := r.confirmCycleKmers(workDir, cycle, sampleDB, solid)
		if err != nil {
			return nil, 0, err
		}

		r.logger.Debug("found contaminating SNVs", "cycle", cycle+1, "count", count)

		snvs = append(snvs, count)
	}

	return snvs, maxKmers, nil
}

// solidKmersForCycle subsamples the reads and returns the k-mers that
// survive the count cutoff, renamed to unique ids and written back over
// the cycle's spectrum FASTA for the self-alignment step.
func (r *Run) solidKmersForCycle(workDir string, cycle int, trimmedFwd, trimmedRev string) ([]kmer.Solid, error) {
	subFwd := filepath.Join(workDir, fmt.Sprintf("subsample_%d_R1.fastq", cycle))

	var subRev string
	if trimmedRev != "" {
		subRev = filepath.Join(workDir, fmt.Sprintf("subsample_%d_R2.fastq", cycle))
	}

	targetBases := r.opts.SubsampleDepth * rmlstGenomeSize

	err := r.tools.SubsampleReads(trimmedFwd, trimmedRev, subFwd, subRev, targetBases)
	if err != nil {
		return nil, err
	}

	countFile := filepath.Join(workDir, "mer_counts.jf")
	dumpFile := r.cycleKmerFasta(workDir, cycle)

	reads := []string{subFwd}
	if subRev != "" {
		reads = append(reads, subRev)
	}

	if err = r.tools.CountKmers(countFile, r.opts.KmerSize, reads...); err != nil {
		return nil, err
	}

	if err = r.tools.DumpKmers(countFile, dumpFile); err != nil {
		return nil, err
	}

	solid, err := kmer.FilterSolid(dumpFile, r.opts.KmerCutoff)
	if err != nil {
		return nil, err
	}

	return solid, kmer.WriteSolid(dumpFile, solid)
}

// confirmCycleKmers self-aligns the solid k-mer set, pulls out the
// k-mers with exactly one base of divergence from another k-mer of the
// same length, and confirms each by a full-length database hit so that
// overhangs into non-rMLST regions cannot cause false positives.
func (r *Run) confirmCycleKmers(workDir string, cycle int, sampleDB string, solid []kmer.Solid) (int, error) {
	kmerFasta := r.cycleKmerFasta(workDir, cycle)
	selfBam := filepath.Join(workDir, fmt.Sprintf("subsample_%d.bam", cycle))

	if err := r.tools.BBMap(kmerFasta, kmerFasta, "", selfBam, true); err != nil {
		return 0, err
	}

	records, err := bamfile.ReadAll(selfBam)
	if err != nil {
		return 0, err
	}

	seqs := kmer.SequencesByID(solid)

	var toConfirm []string

	for _, name := range bamfile.MismatchKmerNames(records, r.opts.KmerSize) {
		if seq, ok := seqs[name]; ok {
			toConfirm = append(toConfirm, seq)
		}
	}

	if len(toConfirm) == 0 {
		return 0, nil
	}

	if !tools.BlastDBExists(sampleDB) {
		if err = r.tools.MakeBlastDB(sampleDB); err != nil {
			return 0, err
		}
	}

	return kmer.Confirm(toConfirm, r.opts.Threads, func(seq string) (bool, error) {
		return r.tools.BlastFullLength(sampleDB, seq, r.opts.KmerSize)
	})
}

func (r *Run) cycleKmerFasta(workDir string, cycle int) string {
	return filepath.Join(workDir, fmt.Sprintf("kmer_counts_%d.fasta", cycle))
}
