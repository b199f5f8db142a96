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

// package report classifies a sample's accumulated evidence and appends
// its row to the shared per-run CSV report.

package report

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/wtsi-hgi/contaminas/screen"
)

const (
	// Header is the first line of the report CSV.
	Header = "Sample,Genus,NumContamSNVs,NumUniqueKmers,ContamStatus"

	// ErrorGenus marks samples whose processing failed.
	ErrorGenus = "Error processing sample"

	// medianThreshold is the number of multi-base sites (median across
	// cycles) above which a sample is called contaminated.
	medianThreshold = 2

	// maxKmersThreshold is the solid k-mer count above which the k-mer
	// spectrum alone calls the sample contaminated.
	maxKmersThreshold = 45000

	filePerm = 0644
)

// Row is one sample's report entry.
type Row struct {
	Sample   string
	Genus    string
	SNVs     []int
	MaxKmers int
}

// ErrorRow is the Row recorded for a sample whose processing failed.
func ErrorRow(sample string) Row {
	return Row{Sample: sample, Genus: ErrorGenus, SNVs: []int{0}, MaxKmers: 0}
}

// Median returns the median of the given evidence counts. An empty list
// is treated as a single zero-valued entry. For even-length lists the two
// middle values are averaged.
func Median(counts []int) float64 {
	if len(counts) == 0 {
		return 0
	}

	sorted := make([]int, len(counts))
	copy(sorted, counts)
	sort.Ints(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}

	return float64(sorted[mid-1]+sorted[mid]) / 2
}

// Contaminated applies the classification rule: a sample is contaminated
// when the median evidence count exceeds the threshold, or the genus call
// names more than one genus, or the solid k-mer count exceeds its
// threshold.
func (r Row) Contaminated() bool {
	return Median(r.SNVs) > medianThreshold ||
		screen.IsCrossContaminated(r.Genus) ||
		r.MaxKmers > maxKmersThreshold
}

// CSV renders the row as a report line. The median is printed with
// minimal digits, so whole-number medians have no decimal point.
func (r Row) CSV() string {
	return fmt.Sprintf("%s,%s,%s,%d,%s",
		r.Sample, r.Genus,
		strconv.FormatFloat(Median(r.SNVs), 'f', -1, 64),
		r.MaxKmers,
		pythonicBool(r.Contaminated()))
}

// Downstream QC dashboards expect True/False capitalisation in the
// ContamStatus column.
func pythonicBool(b bool) string {
	if b {
		return "True"
	}

	return "False"
}

// Writer appends rows to the shared report file, serializing writers so
// that a future concurrent caller cannot interleave rows.
type Writer struct {
	path string
	mu   sync.Mutex
}

// NewWriter truncates or creates the report file, writes the header, and
// returns a Writer that appends to it.
func NewWriter(path string) (*Writer, error) {
	if err := os.WriteFile(path, []byte(Header+"\n"), filePerm); err != nil {
		return nil, err
	}

	return &Writer{path: path}, nil
}

// Path returns the report file's path.
func (w *Writer) Path() string {
	return w.path
}

// Append adds one row to the report.
func (w *Writer) Append(row Row) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_WRONLY|os.O_APPEND, filePerm)
	if err != nil {
		return err
	}

	if _, err = f.WriteString(row.CSV() + "\n"); err != nil {
		f.Close()

		return err
	}

	return f.Close()
}
