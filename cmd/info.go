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
	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/contaminas/config"
	"github.com/wtsi-hgi/contaminas/samples"
)

// options for this cmd.
var (
	infoInput     string
	infoForwardID string
	infoReverseID string
)

// infoCmd represents the info command.
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the samples that check would process.",
	Long: `Show the samples that check would process.

Lists the FASTQ read sets found in the input directory, paired ones first,
along with the file paths each sample name was derived from.

If LIMS connection details are configured via the CONTAMINAS_SQL_*
environment variables (or a .env file), the organism each sample was
submitted as is shown too.
`,
	Run: func(_ *cobra.Command, _ []string) {
		paired, unpaired, err := samples.Discover(infoInput, infoForwardID, infoReverseID)
		if err != nil {
			die("%s", err.Error())
		}

		expected, err := expectedOrganisms(append(paired, unpaired...))
		if err != nil {
			die("%s", err.Error())
		}

		for _, s := range paired {
			printSample(s, expected)
		}

		for _, s := range unpaired {
			printSample(s, expected)
		}

		cliPrint("%d paired and %d unpaired samples\n", len(paired), len(unpaired))
	},
}

func printSample(s samples.Sample, expected map[string]string) {
	files := s.Forward
	if s.Paired() {
		files += " " + s.Reverse
	}

	if organism, ok := expected[s.Name]; ok {
		cliPrint("%s (%s): %s\n", s.Name, organism, files)

		return
	}

	cliPrint("%s: %s\n", s.Name, files)
}

func expectedOrganisms(all []samples.Sample) (map[string]string, error) {
	conf, err := config.FromEnv()
	if err != nil {
		return nil, err
	}

	l, err := connectLIMS(conf)
	if err != nil || l == nil {
		return nil, err
	}

	defer l.Close()

	names := make([]string, 0, len(all))
	for _, s := range all {
		names = append(names, s.Name)
	}

	return l.ExpectedOrganisms(names)
}

func init() {
	RootCmd.AddCommand(infoCmd)

	// flags specific to this sub-command
	infoCmd.Flags().StringVarP(&infoInput, "input", "i", "",
		"directory containing FASTQ files")
	markFlagRequired(infoCmd, "input")
	infoCmd.Flags().StringVar(&infoForwardID, "forward-id", samples.DefaultForwardID,
		"filename token identifying forward read files")
	infoCmd.Flags().StringVar(&infoReverseID, "reverse-id", samples.DefaultReverseID,
		"filename token identifying reverse read files")
}
