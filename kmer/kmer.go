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

// package kmer implements the k-mer evidence path: filtering a jellyfish
// spectrum down to solid k-mers, and confirming candidate contaminating
// k-mers against the sample's reference database.

package kmer

import (
	"strconv"
	"sync"

	"github.com/wtsi-hgi/contaminas/fasta"
)

// Solid is one k-mer that survived the count cutoff. ID is the unique
// "count_ordinal" label it is renamed to, so that every record in the
// solid k-mer FASTA has a distinct identifier.
type Solid struct {
	ID    string
	Count int
	Seq   string
}

// FilterSolid reads a jellyfish dump FASTA, where each record's header is
// the k-mer's count, and returns the k-mers whose count is at least the
// cutoff, renamed to count_ordinal with ordinals starting at 1.
func FilterSolid(dumpPath string, cutoff int) ([]Solid, error) {
	var solid []Solid

	err := fasta.EachInFile(dumpPath, func(r fasta.Record) error {
		count, err := strconv.Atoi(r.ID)
		if err != nil || count < cutoff {
			return nil
		}

		ordinal := len(solid) + 1
		solid = append(solid, Solid{
			ID:    r.ID + "_" + strconv.Itoa(ordinal),
			Count: count,
			Seq:   r.Seq,
		})

		return nil
	})

	return solid, err
}

// WriteSolid writes the solid k-mers as a FASTA file, overwriting any
// existing file (the jellyfish dump is usually overwritten in place).
func WriteSolid(path string, solid []Solid) error {
	records := make([]fasta.Record, len(solid))
	for i, s := range solid {
		records[i] = fasta.Record{ID: s.ID, Seq: s.Seq}
	}

	return fasta.WriteRecords(path, records)
}

// SequencesByID indexes solid k-mer sequences by their renamed id, for
// looking up the sequence behind a BAM reference name.
func SequencesByID(solid []Solid) map[string]string {
	seqs := make(map[string]string, len(solid))

	for _, s := range solid {
		seqs[s.ID] = s.Seq
	}

	return seqs
}

// ConfirmFunc checks one candidate sequence against a fixed database,
// reporting whether it is a genuine full-length hit.
type ConfirmFunc func(seq string) (bool, error)

// Confirm runs the confirmation check over every candidate sequence using
// a pool of workers, and returns how many were confirmed. Each unit of
// work is independent and stateless, so the workers share nothing;
// results are collected positionally. The first error any worker hits is
// returned and the count is not meaningful in that case.
func Confirm(seqs []string, workers int, confirm ConfirmFunc) (int, error) {
	if workers < 1 {
		workers = 1
	}

	results := make([]bool, len(seqs))
	errs := make([]error, len(seqs))
	jobs := make(chan int)

	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range jobs {
				results[i], errs[i] = confirm(seqs[i])
			}
		}()
	}

	for i := range seqs {
		jobs <- i
	}

	close(jobs)
	wg.Wait()

	confirmed := 0

	for i := range seqs {
		if errs[i] != nil {
			return 0, errs[i]
		}

		if results[i] {
			confirmed++
		}
	}

	return confirmed, nil
}
