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

package cmd

import (
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/contaminas/config"
	"github.com/wtsi-hgi/contaminas/pipeline"
	"github.com/wtsi-hgi/contaminas/samples"
	"github.com/wtsi-hgi/contaminas/tools"
)

// options for this cmd.
var (
	checkInput          string
	checkOutput         string
	checkDatabases      string
	checkThreads        int
	checkSubsamples     int
	checkKmerSize       int
	checkSubsampleDepth int
	checkKmerCutoff     int
	checkForwardID      string
	checkReverseID      string
	checkKmerPath       bool
)

// checkCmd represents the check command.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check samples for within-species contamination.",
	Long: `Check samples for within-species contamination.

mash, bbduk.sh, bbmap.sh, samtools, jellyfish, blastn, makeblastdb and
reformat.sh must be in your PATH before calling this command.

Every FASTQ read set in the input directory is processed: forward/reverse
pairs are detected using the --forward-id and --reverse-id filename tokens,
and anything else is treated as unpaired. Each sample is screened for its
genus (cross-genus contamination is reported immediately), its rMLST reads
are extracted and trimmed, and positions showing more than one allele's
signal are counted. Results go to contaminas_report.csv in the output
directory, which will be created if it doesn't exist; diagnostics from the
external tools go to contaminas_log.txt alongside it.

The reference databases are fetched automatically on first use; see the
databases sub-command to fetch them ahead of time or to a custom location.

If LIMS connection details are configured via the CONTAMINAS_SQL_*
environment variables (or a .env file), each sample's screened genus is
checked against the organism it was submitted as, and disagreements are
logged.

An example command line could look like this:
$ contaminas check -i /path/to/fastqs -o /output/dir
`,
	Run: func(_ *cobra.Command, _ []string) {
		if missing := tools.CheckDependencies(); len(missing) > 0 {
			die("missing required tools: %s", strings.Join(missing, ", "))
		}

		conf, err := config.FromEnv()
		if err != nil {
			die("%s", err.Error())
		}

		if checkDatabases == "" {
			checkDatabases = conf.DatabaseDir
		}

		if err = ensureDatabases(checkDatabases, ""); err != nil {
			die("%s", err.Error())
		}

		run, err := pipeline.New(pipeline.Options{
			InputDir:       checkInput,
			OutputDir:      checkOutput,
			DatabaseDir:    checkDatabases,
			Threads:        checkThreads,
			Cycles:         checkSubsamples,
			KmerSize:       checkKmerSize,
			SubsampleDepth: checkSubsampleDepth,
			KmerCutoff:     checkKmerCutoff,
			ForwardID:      checkForwardID,
			ReverseID:      checkReverseID,
			UseKmerPath:    checkKmerPath,
		}, appLogger)
		if err != nil {
			die("%s", err.Error())
		}

		if err = lookupExpectedOrganisms(conf, run); err != nil {
			die("%s", err.Error())
		}

		if err = run.ProcessAll(); err != nil {
			die("%s", err.Error())
		}

		info("contamination report written to %s", run.ReportPath())
	},
}

// lookupExpectedOrganisms asks the LIMS, when one is configured, what
// organism each discovered sample was submitted as.
func lookupExpectedOrganisms(conf *config.Config, run *pipeline.Run) error {
	l, err := connectLIMS(conf)
	if err != nil || l == nil {
		return err
	}

	defer l.Close()

	paired, unpaired, err := samples.Discover(checkInput, checkForwardID, checkReverseID)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(paired)+len(unpaired))
	for _, s := range append(paired, unpaired...) {
		names = append(names, s.Name)
	}

	expected, err := l.ExpectedOrganisms(names)
	if err != nil {
		return err
	}

	run.SetExpectedOrganisms(expected)

	return nil
}

func init() {
	RootCmd.AddCommand(checkCmd)

	// flags specific to this sub-command
	checkCmd.Flags().StringVarP(&checkInput, "input", "i", "",
		"directory containing FASTQ files to check")
	markFlagRequired(checkCmd, "input")
	checkCmd.Flags().StringVarP(&checkOutput, "output", "o", "",
		"output directory for the report and log")
	markFlagRequired(checkCmd, "output")
	checkCmd.Flags().StringVarP(&checkDatabases, "databases", "d", "",
		"reference database directory (defaults to $CONTAMINAS_DB_DIR or ~/.contaminas_db)")
	checkCmd.Flags().IntVarP(&checkThreads, "threads", "t", runtime.NumCPU(),
		"number of threads to give the external tools")
	checkCmd.Flags().IntVarP(&checkSubsamples, "subsamples", "n", 3,
		"number of subsampling cycles on the k-mer evidence path")
	checkCmd.Flags().IntVarP(&checkKmerSize, "kmer-size", "k", 31,
		"k-mer size on the k-mer evidence path")
	checkCmd.Flags().IntVarP(&checkSubsampleDepth, "subsample-depth", "s", 20,
		"depth to subsample to on the k-mer evidence path")
	checkCmd.Flags().IntVarP(&checkKmerCutoff, "kmer-cutoff", "c", 3,
		"minimum count for a k-mer to be considered trustworthy")
	checkCmd.Flags().StringVar(&checkForwardID, "forward-id", samples.DefaultForwardID,
		"filename token identifying forward read files")
	checkCmd.Flags().StringVar(&checkReverseID, "reverse-id", samples.DefaultReverseID,
		"filename token identifying reverse read files")
	checkCmd.Flags().BoolVar(&checkKmerPath, "kmer", false,
		"use the legacy subsampled k-mer evidence path instead of read mapping")
}

func markFlagRequired(cmd *cobra.Command, flagName string) {
	err := cmd.MarkFlagRequired(flagName)
	if err != nil {
		die("%s", err.Error())
	}
}
