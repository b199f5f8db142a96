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

// package refdb manages the rMLST reference databases: the combined
// multi-genus FASTA, the per-genus subset databases derived from it, and
// the downloadable bundle that contains them.

package refdb

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/wtsi-hgi/contaminas/fasta"
)

type Error string

func (e Error) Error() string { return string(e) }

const (
	// The four files a database directory must contain.
	CombinedFasta   = "rMLST_combined.fasta"
	GeneAlleleTable = "gene_allele.txt"
	ProfilesTable   = "profiles.txt"
	SketchIndex     = "refseq.msh"

	genusDBSuffix = "_db.fasta"
)

// CombinedPath returns the path of the combined multi-genus reference in
// the given database directory.
func CombinedPath(dbDir string) string {
	return filepath.Join(dbDir, CombinedFasta)
}

// GenusDatabasePath returns the path a genus-specific database is cached
// at in the given database directory.
func GenusDatabasePath(dbDir, genus string) string {
	return filepath.Join(dbDir, genus+genusDBSuffix)
}

// SketchPath returns the path of the genus sketch index in the given
// database directory.
func SketchPath(dbDir string) string {
	return filepath.Join(dbDir, SketchIndex)
}

// AlleleWhitelist parses a genus membership table and returns the allele
// identifiers whitelisted for the target genus. The table has one genus
// per line in the form "genus:allele1_1,allele2_5,"; a trailing empty
// token from the final comma is dropped. The last matching line wins.
// A genus with no line yields an empty whitelist.
func AlleleWhitelist(tablePath, targetGenus string) ([]string, error) {
	return tableLookup(tablePath, targetGenus)
}

// GenesToExclude parses the alternate form of the membership table, where
// the list names gene tokens to exclude from the genus database (such as
// BACT000060 and BACT000065 for Escherichia, which are multi-copy there).
// A genus with no line yields an empty exclusion list, meaning nothing is
// excluded.
func GenesToExclude(tablePath, targetGenus string) ([]string, error) {
	return tableLookup(tablePath, targetGenus)
}

func tableLookup(tablePath, targetGenus string) ([]string, error) {
	data, err := os.ReadFile(tablePath)
	if err != nil {
		return nil, err
	}

	var tokens []string

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r\n")

		genus, list, found := strings.Cut(line, ":")
		if !found || genus != targetGenus {
			continue
		}

		tokens = splitTokens(list)
	}

	return tokens, nil
}

func splitTokens(list string) []string {
	tokens := strings.Split(list, ",")
	if len(tokens) > 0 && tokens[len(tokens)-1] == "" {
		tokens = tokens[:len(tokens)-1]
	}

	if len(tokens) == 1 && tokens[0] == "" {
		return nil
	}

	return tokens
}

// BuildAlleleDatabase creates the genus database at
// GenusDatabasePath(dbDir, genus) containing only the whitelisted records
// of the combined reference. If the database file already exists it is
// left untouched; delete it to force a rebuild after a table update. The
// path of the database is returned along with whether it was (re)built.
func BuildAlleleDatabase(dbDir, genus string, whitelist []string) (string, bool, error) {
	target := GenusDatabasePath(dbDir, genus)
	if fileExists(target) {
		return target, false, nil
	}

	keep := make(map[string]bool, len(whitelist))
	for _, id := range whitelist {
		keep[id] = true
	}

	_, err := fasta.CopyRecords(CombinedPath(dbDir), target, func(id string) bool {
		return keep[id]
	})

	return target, true, err
}

// BuildGenusDatabase is the gene-exclusion variant of
// BuildAlleleDatabase: it copies every combined-reference record whose
// gene token is not in the exclusion list. An empty exclusion list copies
// the full reference.
func BuildGenusDatabase(dbDir, genus string, genesToExclude []string) (string, bool, error) {
	target := GenusDatabasePath(dbDir, genus)
	if fileExists(target) {
		return target, false, nil
	}

	exclude := make(map[string]bool, len(genesToExclude))
	for _, gene := range genesToExclude {
		exclude[gene] = true
	}

	_, err := fasta.CopyRecords(CombinedPath(dbDir), target, func(id string) bool {
		return !exclude[fasta.GeneToken(id)]
	})

	return target, true, err
}

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return !os.IsNotExist(err)
}
