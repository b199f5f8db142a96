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

// package alleles picks one representative allele per rMLST gene: the
// allele with the most reads mapped to it. Selection is deterministic for
// a fixed contig order; ties keep the first-seen allele.

package alleles

import (
	"strings"

	"github.com/wtsi-hgi/contaminas/fasta"
)

// Allele is the best-supported allele of one gene.
type Allele struct {
	Gene      string
	Name      string
	ReadCount int
}

// Selection is an ordered gene to best-allele map. Gene order is the
// order genes were first seen in the source contig list, which keeps the
// tie-break stable.
type Selection struct {
	genes []string
	best  map[string]Allele
}

// Select walks the database contigs in their FASTA order, grouping them
// by the gene token before the first underscore, and keeps for each gene
// the allele with the highest mapped-read count. A later allele only
// replaces the current best when its count is strictly greater.
func Select(contigs []string, counts map[string]int) *Selection {
	s := &Selection{best: make(map[string]Allele)}

	for _, contig := range contigs {
		gene, allele, found := strings.Cut(contig, "_")
		if !found {
			continue
		}

		count := counts[contig]

		current, seen := s.best[gene]
		if !seen {
			s.genes = append(s.genes, gene)
			s.best[gene] = Allele{Gene: gene, Name: allele, ReadCount: count}

			continue
		}

		if count > current.ReadCount {
			s.best[gene] = Allele{Gene: gene, Name: allele, ReadCount: count}
		}
	}

	return s
}

// Genes returns the gene names in selection order.
func (s *Selection) Genes() []string {
	return s.genes
}

// Best returns the selected allele for the given gene.
func (s *Selection) Best(gene string) (Allele, bool) {
	a, ok := s.best[gene]

	return a, ok
}

// Contigs returns the <gene>_<allele> contig name for each selected
// allele, in gene order. These are the contigs of the restricted
// reference.
func (s *Selection) Contigs() []string {
	contigs := make([]string, len(s.genes))

	for i, gene := range s.genes {
		contigs[i] = gene + "_" + s.best[gene].Name
	}

	return contigs
}

// WriteRestricted writes the restricted reference: the subset of the
// genus database containing exactly the selected allele of each gene.
// Returns the number of records written.
func (s *Selection) WriteRestricted(genusDB, outPath string) (int, error) {
	keep := make(map[string]bool, len(s.genes))
	for _, contig := range s.Contigs() {
		keep[contig] = true
	}

	return fasta.CopyRecords(genusDB, outPath, func(id string) bool {
		return keep[id]
	})
}
