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

package tools

import (
	"os"
	"strconv"
	"strings"
)

const (
	// mashIdentity is the sketch similarity a genus must clear to count
	// as present in a sample.
	mashIdentity = "0.95"

	trimQuality   = "20"
	trimMinLength = "50"

	blastOutFormat    = "6 qseqid sseqid length pident"
	blastLengthColumn = 2
	blastMinColumns   = 4
)

// MashScreen screens the sample reads against the genus sketch index,
// writing the tab-separated report to outTab. Winner-take-all assignment
// with the fixed identity threshold.
func (r *Runner) MashScreen(sketch, outTab string, reads ...string) error {
	args := append([]string{
		"screen",
		"-p", r.threadsArg(),
		"-w",
		"-i", mashIdentity,
		sketch,
	}, reads...)

	_, _, err := r.run(invocation{name: "mash", args: args, stdoutPath: outTab})

	return err
}

// BBDukBait extracts the reads that contain sequence from the given
// reference database. revIn and revOut are blank for unpaired reads.
func (r *Runner) BBDukBait(ref, fwdIn, revIn, fwdOut, revOut string) error {
	args := []string{
		"ref=" + ref,
		"in=" + fwdIn,
		"outm=" + fwdOut,
		"threads=" + r.threadsArg(),
	}

	if revIn != "" {
		args = append(args, "in2="+revIn, "outm2="+revOut)
	}

	_, _, err := r.run(invocation{name: "bbduk.sh", args: args})

	return err
}

// BBDukTrim quality-trims reads. revIn and revOut are blank for unpaired
// reads.
func (r *Runner) BBDukTrim(fwdIn, revIn, fwdOut, revOut string) error {
	args := []string{
		"in=" + fwdIn,
		"out=" + fwdOut,
		"qtrim=w",
		"trimq=" + trimQuality,
		"minlength=" + trimMinLength,
		"threads=" + r.threadsArg(),
	}

	if revIn != "" {
		args = append(args, "in2="+revIn, "out2="+revOut)
	}

	_, _, err := r.run(invocation{name: "bbduk.sh", args: args})

	return err
}

// BBMap maps reads against the given reference, writing an unsorted BAM.
// revIn is blank for unpaired reads. ambigAll keeps all placements of
// multi-mapping reads, which the best-allele count and the k-mer
// self-alignment both need.
func (r *Runner) BBMap(ref, fwdIn, revIn, outBam string, ambigAll bool) error {
	args := []string{
		"ref=" + ref,
		"in=" + fwdIn,
		"out=" + outBam,
		"nodisk",
		"overwrite=true",
		"threads=" + r.threadsArg(),
	}

	if revIn != "" {
		args = append(args, "in2="+revIn)
	}

	if ambigAll {
		args = append(args, "ambig=all")
	}

	_, _, err := r.run(invocation{name: "bbmap.sh", args: args})

	return err
}

// SortAndIndex coordinate-sorts a BAM and indexes the result.
func (r *Runner) SortAndIndex(inBam, sortedBam string) error {
	_, _, err := r.run(invocation{name: "samtools", args: []string{
		"sort", "-@", r.threadsArg(), inBam, "-o", sortedBam,
	}})
	if err != nil {
		return err
	}

	_, _, err = r.run(invocation{name: "samtools", args: []string{"index", sortedBam}})

	return err
}

// SamtoolsFaidx indexes a reference FASTA.
func (r *Runner) SamtoolsFaidx(fastaPath string) error {
	_, _, err := r.run(invocation{name: "samtools", args: []string{"faidx", fastaPath}})

	return err
}

// SubsampleReads subsamples reads down to the given number of bases.
// revIn and revOut are blank for unpaired reads.
func (r *Runner) SubsampleReads(fwdIn, revIn, fwdOut, revOut string, targetBases int) error {
	args := []string{
		"in=" + fwdIn,
		"out=" + fwdOut,
		"samplebasestarget=" + strconv.Itoa(targetBases),
		"overwrite=true",
		"threads=" + r.threadsArg(),
	}

	if revIn != "" {
		args = append(args, "in2="+revIn, "out2="+revOut)
	}

	_, _, err := r.run(invocation{name: "reformat.sh", args: args})

	return err
}

// CountKmers builds a jellyfish k-mer spectrum from the given reads.
func (r *Runner) CountKmers(countFile string, kmerSize int, reads ...string) error {
	args := append([]string{
		"count",
		"-m", strconv.Itoa(kmerSize),
		"-s", "100M",
		"--bf-size", "100M",
		"-C",
		"-t", r.threadsArg(),
		"-o", countFile,
	}, reads...)

	_, _, err := r.run(invocation{name: "jellyfish", args: args})

	return err
}

// DumpKmers writes a jellyfish spectrum as a FASTA file where each record
// header is the k-mer's count.
func (r *Runner) DumpKmers(countFile, outFasta string) error {
	_, _, err := r.run(invocation{name: "jellyfish", args: []string{
		"dump", countFile, "-o", outFasta,
	}})

	return err
}

// BlastDBExists reports whether a nucleotide BLAST database has already
// been built for the given FASTA file.
func BlastDBExists(fastaPath string) bool {
	for _, ext := range []string{".nhr", ".nin", ".nsq"} {
		if _, err := os.Stat(fastaPath + ext); err != nil {
			return false
		}
	}

	return true
}

// MakeBlastDB builds a nucleotide BLAST database for the given FASTA
// file.
func (r *Runner) MakeBlastDB(fastaPath string) error {
	_, _, err := r.run(invocation{name: "makeblastdb", args: []string{
		"-in", fastaPath, "-dbtype", "nucl",
	}})

	return err
}

// BlastFullLength queries the given sequence against a BLAST database and
// reports whether its best hit spans the full query length. This is the
// local-search confirmation used on candidate contaminating k-mers: a
// partial-length best hit means a database-fringe overhang, not a genuine
// rMLST match.
func (r *Runner) BlastFullLength(db, querySeq string, queryLength int) (bool, error) {
	stdout, _, err := r.run(invocation{
		name:  "blastn",
		args:  []string{"-db", db, "-outfmt", blastOutFormat},
		stdin: ">query\n" + querySeq + "\n",
	})
	if err != nil {
		return false, err
	}

	return firstHitIsFullLength(stdout, queryLength), nil
}

// firstHitIsFullLength inspects the first hit of a tabular blastn report;
// later hits never rescue a partial-length best hit.
func firstHitIsFullLength(report string, queryLength int) bool {
	for _, line := range strings.Split(report, "\n") {
		fields := strings.Split(strings.TrimSpace(line), "\t")
		if len(fields) < blastMinColumns {
			continue
		}

		length, err := strconv.Atoi(fields[blastLengthColumn])
		if err != nil {
			continue
		}

		return length == queryLength
	}

	return false
}
