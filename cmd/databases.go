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
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/contaminas/config"
	"github.com/wtsi-hgi/contaminas/refdb"
)

const dirPerm = 0755

// options for this cmd.
var (
	databasesDir string
	databasesURL string
)

// databasesCmd represents the databases command.
var databasesCmd = &cobra.Command{
	Use:   "databases",
	Short: "Fetch the reference databases.",
	Long: `Fetch the reference databases.

Downloads and unpacks the bundle containing the combined rMLST reference,
the genus membership tables and the genus sketch index, into the database
directory. The directory defaults to $CONTAMINAS_DB_DIR (which can be set
in a .env file), falling back to ~/.contaminas_db.

Files already present are kept; if all are present, nothing is downloaded.

The check sub-command does this automatically on first use, so you only
need this command to fetch the databases ahead of time, eg. on a host with
internet access when your compute nodes have none.
`,
	Run: func(_ *cobra.Command, _ []string) {
		if databasesDir == "" {
			conf, err := config.FromEnv()
			if err != nil {
				die("%s", err.Error())
			}

			databasesDir = conf.DatabaseDir
		}

		if err := ensureDatabases(databasesDir, databasesURL); err != nil {
			die("%s", err.Error())
		}

		info("reference databases ready in %s", databasesDir)
	},
}

// ensureDatabases creates the database directory if needed and downloads
// the bundle when any of the required files are missing.
func ensureDatabases(dbDir, url string) error {
	if err := os.MkdirAll(dbDir, dirPerm); err != nil {
		return err
	}

	if missing := refdb.MissingFiles(dbDir); len(missing) > 0 {
		info("downloading reference databases (missing: %s)", strings.Join(missing, ", "))
	}

	return refdb.EnsureBundle(dbDir, dbDir, url)
}

func init() {
	RootCmd.AddCommand(databasesCmd)

	// flags specific to this sub-command
	databasesCmd.Flags().StringVarP(&databasesDir, "databases", "d", "",
		"database directory (defaults to $CONTAMINAS_DB_DIR or ~/.contaminas_db)")
	databasesCmd.Flags().StringVar(&databasesURL, "url", "",
		"alternative URL to download the database bundle from")
}
