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

package pipeline

import (
	"path/filepath"

	"github.com/wtsi-hgi/contaminas/refdb"
	"github.com/wtsi-hgi/contaminas/screen"
)

// genusDatabase returns the reference database to use for a sample with
// the given genus call: the lazily-built genus-specific database when a
// genus was determined, otherwise the full combined reference. A genus
// with no membership-table entry also falls back to the combined
// reference, since an empty whitelist would produce an empty database and
// silently zero all evidence.
func (r *Run) genusDatabase(call string) (string, error) {
	if call == screen.NoGenus {
		return refdb.CombinedPath(r.opts.DatabaseDir), nil
	}

	whitelist, err := refdb.AlleleWhitelist(
		filepath.Join(r.opts.DatabaseDir, refdb.GeneAlleleTable), call)
	if err != nil {
		return "", err
	}

	if len(whitelist) == 0 {
		r.logger.Warn("genus has no entry in the membership table, using combined reference",
			"genus", call)

		return refdb.CombinedPath(r.opts.DatabaseDir), nil
	}

	path, built, err := refdb.BuildAlleleDatabase(r.opts.DatabaseDir, call, whitelist)
	if err != nil {
		return "", err
	}

	if built {
		r.logger.Info("set up genus-specific database", "genus", call)

		if err = r.tools.SamtoolsFaidx(path); err != nil {
			return "", err
		}
	}

	return path, nil
}
