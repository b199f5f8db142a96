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

// package screen turns a mash screen report into a genus call for a
// sample. Finding more than one genus in a read set is the
// cross-contamination signal that short-circuits the rest of the analysis.

package screen

import (
	"bufio"
	"io"
	"os"
	"strings"
)

const (
	// NoGenus is the call when no genus sketch cleared the similarity
	// threshold.
	NoGenus = "NA"

	// CallSeparator joins genus names when more than one genus was found.
	CallSeparator = ":"

	reportQueryColumn = 4
	minReportColumns  = 5
	genusPathDepth    = 3
)

// ParseReport reads a mash screen tab-separated report and returns the
// distinct genera present, in first-seen order. The genus is the
// third-from-last path component of the query id; Shigella is reported as
// Escherichia since the rMLST databases treat them as one genus.
func ParseReport(r io.Reader) ([]string, error) {
	var genera []string

	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		genus, ok := genusFromReportLine(scanner.Text())
		if !ok || seen[genus] {
			continue
		}

		seen[genus] = true
		genera = append(genera, genus)
	}

	return genera, scanner.Err()
}

func genusFromReportLine(line string) (string, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) < minReportColumns {
		return "", false
	}

	parts := strings.Split(fields[reportQueryColumn], "/")
	if len(parts) < genusPathDepth {
		return "", false
	}

	genus := parts[len(parts)-genusPathDepth]
	if genus == "Shigella" {
		genus = "Escherichia"
	}

	return genus, true
}

// ParseReportFile is ParseReport on the contents of the given path.
func ParseReportFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	return ParseReport(f)
}

// Call encodes a genus list as the single genus call string: NoGenus for
// an empty list, the bare genus name for one entry, and a colon-joined
// list for more.
func Call(genera []string) string {
	switch len(genera) {
	case 0:
		return NoGenus
	case 1:
		return genera[0]
	default:
		return strings.Join(genera, CallSeparator)
	}
}

// IsCrossContaminated reports whether the given call names more than one
// genus.
func IsCrossContaminated(call string) bool {
	return strings.Contains(call, CallSeparator)
}
