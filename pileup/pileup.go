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

// package pileup decides whether reference positions carry more than one
// true allele's signal. This is the central statistical judgement of the
// whole analysis: a position only counts as multi-base when every
// observed base is backed by at least two high-quality reads, trading
// sensitivity for specificity so that singleton or low-quality evidence
// never calls heterozygosity.

package pileup

import (
	"sort"

	"github.com/biogo/hts/sam"
)

const (
	// qualityFloor is the phred score a read base must reach to count as
	// high-confidence support.
	qualityFloor = 35

	// minSupport is how many high-confidence reads each observed base
	// needs.
	minSupport = 2

	// minDistinctBases observed at a position before it can be
	// multi-base at all.
	minDistinctBases = 2
)

// Column is one reference position with, per observed base, the quality
// scores of the reads covering it.
type Column struct {
	Pos   int
	Quals map[byte][]byte
}

// BuildColumns assembles pileup columns for the named contig from the
// given mapped records, in ascending position order. Read bases are
// placed by walking each record's CIGAR; deletions and reference skips
// contribute nothing, so the aligner artifact of an undefined read offset
// at a column never arises here.
func BuildColumns(records []*sam.Record, contig string) []Column {
	byPos := make(map[int]map[byte][]byte)

	for _, rec := range records {
		if rec.Ref.Name() != contig {
			continue
		}

		addRecord(byPos, rec)
	}

	return sortColumns(byPos)
}

func addRecord(byPos map[int]map[byte][]byte, rec *sam.Record) {
	seq := rec.Seq.Expand()
	if len(seq) == 0 || len(rec.Qual) < len(seq) {
		return
	}

	refPos := rec.Pos
	readPos := 0

	for _, co := range rec.Cigar {
		consumes := co.Type().Consumes()

		if consumes.Query == 1 && consumes.Reference == 1 {
			for i := 0; i < co.Len(); i++ {
				addBase(byPos, refPos+i, seq[readPos+i], rec.Qual[readPos+i])
			}
		}

		refPos += co.Len() * consumes.Reference
		readPos += co.Len() * consumes.Query
	}
}

func addBase(byPos map[int]map[byte][]byte, pos int, base, qual byte) {
	quals, ok := byPos[pos]
	if !ok {
		quals = make(map[byte][]byte)
		byPos[pos] = quals
	}

	quals[base] = append(quals[base], qual)
}

func sortColumns(byPos map[int]map[byte][]byte) []Column {
	columns := make([]Column, 0, len(byPos))

	for pos, quals := range byPos {
		columns = append(columns, Column{Pos: pos, Quals: quals})
	}

	sort.Slice(columns, func(i, j int) bool {
		return columns[i].Pos < columns[j].Pos
	})

	return columns
}

// MultiBase applies the two-tier decision rule to a column: at least two
// distinct bases must be observed, and then every observed base must have
// at least two supporting reads at or above the quality floor. A base
// that fails the quality bar marks the whole position as sequencing noise
// rather than a genuine second allele.
func (c Column) MultiBase() bool {
	if len(c.Quals) < minDistinctBases {
		return false
	}

	for _, quals := range c.Quals {
		if !hasHighQualitySupport(quals) {
			return false
		}
	}

	return true
}

func hasHighQualitySupport(quals []byte) bool {
	count := 0

	for _, q := range quals {
		if q >= qualityFloor {
			count++
			if count >= minSupport {
				return true
			}
		}
	}

	return false
}

// FlaggedPositions returns the positions of the multi-base columns, in
// ascending order.
func FlaggedPositions(columns []Column) []int {
	var positions []int

	for _, c := range columns {
		if c.MultiBase() {
			positions = append(positions, c.Pos)
		}
	}

	return positions
}

// ScanContig builds the contig's pileup and returns its flagged
// positions.
func ScanContig(records []*sam.Record, contig string) []int {
	return FlaggedPositions(BuildColumns(records, contig))
}
