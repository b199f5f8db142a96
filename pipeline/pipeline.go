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

// package pipeline runs the contamination analysis over every sample in
// an input directory, one sample at a time. Each sample gets a temporary
// working directory that is removed whatever the outcome, and a failing
// sample is recorded in the report and skipped rather than aborting the
// batch.

package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/inconshreveable/log15"
	"github.com/wtsi-hgi/contaminas/refdb"
	"github.com/wtsi-hgi/contaminas/report"
	"github.com/wtsi-hgi/contaminas/samples"
	"github.com/wtsi-hgi/contaminas/screen"
	"github.com/wtsi-hgi/contaminas/tools"
)

const (
	// ReportBasename and LogBasename are created in the output directory.
	ReportBasename = "contaminas_report.csv"
	LogBasename    = "contaminas_log.txt"

	// rmlstGenomeSize is the sum of the longest allele for each rMLST
	// gene, used to convert subsample depth to a base count.
	rmlstGenomeSize = 35000

	dirPerm = 0755
)

// Options are the per-run settings, threaded explicitly through every
// component call.
type Options struct {
	InputDir    string
	OutputDir   string
	DatabaseDir string

	Threads        int
	Cycles         int
	KmerSize       int
	SubsampleDepth int
	KmerCutoff     int

	ForwardID string
	ReverseID string

	// UseKmerPath switches from the mapping+pileup detector to the
	// subsampled k-mer evidence path.
	UseKmerPath bool
}

// Run processes samples according to one invocation's Options.
type Run struct {
	opts     Options
	tools    *tools.Runner
	report   *report.Writer
	logger   log15.Logger
	expected map[string]string
}

// New creates the output directory, the report file with its header, and
// the external tool runner whose diagnostics go to the run log.
func New(opts Options, logger log15.Logger) (*Run, error) {
	if err := os.MkdirAll(opts.OutputDir, dirPerm); err != nil {
		return nil, err
	}

	w, err := report.NewWriter(filepath.Join(opts.OutputDir, ReportBasename))
	if err != nil {
		return nil, err
	}

	return &Run{
		opts:   opts,
		tools:  tools.New(filepath.Join(opts.OutputDir, LogBasename), opts.Threads),
		report: w,
		logger: logger,
	}, nil
}

// ReportPath returns the path of the run's CSV report.
func (r *Run) ReportPath() string {
	return r.report.Path()
}

// SetExpectedOrganisms provides LIMS-recorded organisms keyed by sample
// name. When set, a screened genus that disagrees with the expectation is
// logged as a warning.
func (r *Run) SetExpectedOrganisms(expected map[string]string) {
	r.expected = expected
}

// ProcessAll discovers and processes every sample in the input directory,
// paired read sets first, then unpaired ones. Every discovered sample
// ends up in the report exactly once; failures are warned about and
// recorded with the error sentinel.
func (r *Run) ProcessAll() error {
	paired, unpaired, err := samples.Discover(r.opts.InputDir, r.opts.ForwardID, r.opts.ReverseID)
	if err != nil {
		return err
	}

	for _, s := range append(paired, unpaired...) {
		r.logger.Info("beginning analysis of sample", "sample", s.Name)

		row, err := r.processSample(s)
		if err != nil {
			r.logger.Warn("error processing sample; skipping", "sample", s.Name, "err", err)

			row = report.ErrorRow(s.Name)
		}

		if err = r.report.Append(row); err != nil {
			return err
		}

		r.logger.Info("finished analysis of sample", "sample", s.Name)
	}

	return nil
}

// processSample runs the full detection flow for one sample inside a
// temporary working directory.
func (r *Run) processSample(s samples.Sample) (report.Row, error) {
	workDir := filepath.Join(r.opts.OutputDir, s.Name)
	if err := os.MkdirAll(workDir, dirPerm); err != nil {
		return report.Row{}, err
	}

	defer os.RemoveAll(workDir)

	call, err := r.screenGenus(s, workDir)
	if err != nil {
		return report.Row{}, err
	}

	if screen.IsCrossContaminated(call) {
		r.logger.Info("found cross-contamination, skipping rest of analysis",
			"sample", s.Name, "genera", call)

		return report.Row{Sample: s.Name, Genus: call, SNVs: []int{0}}, nil
	}

	r.checkExpectedOrganism(s.Name, call)

	sampleDB, err := r.genusDatabase(call)
	if err != nil {
		return report.Row{}, err
	}

	trimmedFwd, trimmedRev, err := r.extractAndTrim(s, sampleDB, workDir)
	if err != nil {
		return report.Row{}, err
	}

	if r.opts.UseKmerPath {
		snvs, maxKmers, err := r.kmerCycles(workDir, sampleDB, trimmedFwd, trimmedRev)

		return report.Row{Sample: s.Name, Genus: call, SNVs: snvs, MaxKmers: maxKmers}, err
	}

	count, err := r.pileupPass(workDir, sampleDB, trimmedFwd, trimmedRev)

	return report.Row{Sample: s.Name, Genus: call, SNVs: []int{count}}, err
}

func (r *Run) screenGenus(s samples.Sample, workDir string) (string, error) {
	screenTab := filepath.Join(workDir, "screen.tab")

	reads := []string{s.Forward}
	if s.Paired() {
		reads = append(reads, s.Reverse)
	}

	r.logger.Info("checking for cross-species contamination", "sample", s.Name)

	err := r.tools.MashScreen(refdb.SketchPath(r.opts.DatabaseDir), screenTab, reads...)
	if err != nil {
		return "", err
	}

	genera, err := screen.ParseReportFile(screenTab)
	if err != nil {
		return "", err
	}

	return screen.Call(genera), nil
}

// checkExpectedOrganism warns when the LIMS-recorded organism for a
// sample does not start with the screened genus. A mismatch is worth a
// look even when the sample is otherwise clean: it usually means a swap.
func (r *Run) checkExpectedOrganism(sampleName, call string) {
	if call == screen.NoGenus {
		return
	}

	expected, ok := r.expected[sampleName]
	if !ok {
		return
	}

	if !strings.HasPrefix(expected, call) {
		r.logger.Warn("screened genus disagrees with LIMS expectation",
			"sample", sampleName, "screened", call, "expected", expected)
	}
}

// extractAndTrim pulls out the reads containing rMLST sequence and
// quality-trims them, returning the trimmed read paths.
func (r *Run) extractAndTrim(s samples.Sample, sampleDB, workDir string) (string, string, error) {
	r.logger.Info("extracting rMLST genes", "sample", s.Name)

	rmlstFwd := filepath.Join(workDir, "rmlst_R1.fastq.gz")
	trimmedFwd := filepath.Join(workDir, "trimmed_R1.fastq.gz")

	var rmlstRev, trimmedRev string

	if s.Paired() {
		rmlstRev = filepath.Join(workDir, "rmlst_R2.fastq.gz")
		trimmedRev = filepath.Join(workDir, "trimmed_R2.fastq.gz")
	}

	if err := r.tools.BBDukBait(sampleDB, s.Forward, s.Reverse, rmlstFwd, rmlstRev); err != nil {
		return "", "", err
	}

	r.logger.Info("quality trimming", "sample", s.Name)

	if err := r.tools.BBDukTrim(rmlstFwd, rmlstRev, trimmedFwd, trimmedRev); err != nil {
		return "", "", err
	}

	return trimmedFwd, trimmedRev, nil
}
