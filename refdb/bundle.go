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

package refdb

import (
	"archive/tar"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

const (
	// BundleURL is where the compressed database bundle lives.
	BundleURL = "https://ndownloader.figshare.com/files/11864267"

	bundleBasename  = "contaminas_db.tar.gz"
	bundleSubDir    = "databases"
	dirPerm         = 0755
	bundleFilePerm  = 0644
	maxDecompressed = 16 << 30
)

const (
	ErrBundleFetch = Error("failed to download database bundle")
	ErrBundlePath  = Error("database bundle contains an unsafe path")
)

// MissingFiles returns which of the four required database files are not
// present in the given database directory.
func MissingFiles(dbDir string) []string {
	var missing []string

	for _, name := range []string{CombinedFasta, GeneAlleleTable, ProfilesTable, SketchIndex} {
		if !fileExists(filepath.Join(dbDir, name)) {
			missing = append(missing, name)
		}
	}

	return missing
}

// EnsureBundle makes sure the database directory contains the four
// required files, downloading and extracting the bundle from the given
// url (BundleURL if blank) when any are missing. tmpDir is used for the
// downloaded archive and is expected to already exist.
func EnsureBundle(dbDir, tmpDir, url string) error {
	if len(MissingFiles(dbDir)) == 0 {
		return nil
	}

	if url == "" {
		url = BundleURL
	}

	archivePath := filepath.Join(tmpDir, bundleBasename)

	if err := download(url, archivePath); err != nil {
		return err
	}

	defer os.Remove(archivePath)

	if err := extract(archivePath, dbDir); err != nil {
		return err
	}

	return relocateBundleContents(dbDir)
}

func download(url, dest string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ErrBundleFetch
	}

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, bundleFilePerm)
	if err != nil {
		return err
	}

	if _, err = io.Copy(f, resp.Body); err != nil {
		f.Close()

		return err
	}

	return f.Close()
}

func extract(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}

	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}

	defer gz.Close()

	tr := tar.NewReader(io.LimitReader(gz, maxDecompressed))

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		if err = extractEntry(tr, hdr, destDir); err != nil {
			return err
		}
	}
}

func extractEntry(tr *tar.Reader, hdr *tar.Header, destDir string) error {
	dest, err := safeJoin(destDir, hdr.Name)
	if err != nil {
		return err
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(dest, dirPerm)
	case tar.TypeReg:
		return writeEntry(tr, dest)
	default:
		return nil
	}
}

func writeEntry(tr *tar.Reader, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), dirPerm); err != nil {
		return err
	}

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, bundleFilePerm)
	if err != nil {
		return err
	}

	if _, err = io.Copy(f, tr); err != nil {
		f.Close()

		return err
	}

	return f.Close()
}

func safeJoin(destDir, name string) (string, error) {
	dest := filepath.Join(destDir, filepath.Clean(name))
	if !strings.HasPrefix(dest, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", ErrBundlePath
	}

	return dest, nil
}

// relocateBundleContents moves files out of the bundle's databases/
// subdirectory into the database directory itself, then removes the
// subdirectory.
func relocateBundleContents(dbDir string) error {
	subDir := filepath.Join(dbDir, bundleSubDir)

	entries, err := os.ReadDir(subDir)
	if os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return err
	}

	for _, entry := range entries {
		src := filepath.Join(subDir, entry.Name())
		dst := filepath.Join(dbDir, entry.Name())

		if err = os.Rename(src, dst); err != nil {
			return err
		}
	}

	return os.RemoveAll(subDir)
}
