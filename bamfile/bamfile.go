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

// package bamfile reads the BAM files produced by the external aligner
// and answers the two questions the analysis asks of them: how many reads
// mapped to each contig, and which k-mer self-alignments carry exactly
// one mismatching base.

package bamfile

import (
	"errors"
	"io"
	"os"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
)

// ReadAll returns every mapped record in the given BAM file.
func ReadAll(path string) ([]*sam.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	r, err := bam.NewReader(f, 1)
	if err != nil {
		return nil, err
	}

	defer r.Close()

	var records []*sam.Record

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}

		if err != nil {
			return nil, err
		}

		if rec.Flags&sam.Unmapped != 0 || rec.Ref == nil {
			continue
		}

		records = append(records, rec)
	}
}

// CountByContig tallies mapped records per reference contig. The counts
// are only used to rank alleles within a gene.
func CountByContig(records []*sam.Record) map[string]int {
	counts := make(map[string]int)

	for _, rec := range records {
		counts[rec.Ref.Name()]++
	}

	return counts
}

// MismatchKmerNames scans k-mer self-alignments for reference k-mers that
// some other k-mer aligns to full-length with exactly one mismatching
// base: the one-SNP-apart pairs that suggest two alleles of the same
// locus. Returns the reference contig name for each such alignment.
func MismatchKmerNames(records []*sam.Record, kmerSize int) []string {
	var names []string

	for _, rec := range records {
		if hasSingleBaseMismatch(rec.Cigar) && alignedQueryLength(rec.Cigar) == kmerSize {
			names = append(names, rec.Ref.Name())
		}
	}

	return names
}

func hasSingleBaseMismatch(cigar sam.Cigar) bool {
	for _, co := range cigar {
		if co.Type() == sam.CigarMismatch && co.Len() == 1 {
			return true
		}
	}

	return false
}

// alignedQueryLength is the number of query bases in the alignment,
// excluding soft-clipped ends.
func alignedQueryLength(cigar sam.Cigar) int {
	length := 0

	for _, co := range cigar {
		if co.Type() == sam.CigarSoftClipped {
			continue
		}

		if co.Type().Consumes().Query == 1 {
			length += co.Len()
		}
	}

	return length
}
