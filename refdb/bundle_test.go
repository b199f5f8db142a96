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
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	. "github.com/smartystreets/goconvey/convey"
)

func makeBundle(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, name := range []string{CombinedFasta, GeneAlleleTable, ProfilesTable, SketchIndex} {
		content := []byte("content of " + name)

		err := tw.WriteHeader(&tar.Header{
			Name:     "databases/" + name,
			Typeflag: tar.TypeReg,
			Mode:     0644,
			Size:     int64(len(content)),
		})
		if err != nil {
			t.Fatal(err)
		}

		if _, err = tw.Write(content); err != nil {
			t.Fatal(err)
		}
	}

	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}

	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}

	return buf.Bytes()
}

func TestBundle(t *testing.T) {
	Convey("MissingFiles reports which database files are absent", t, func() {
		dir := t.TempDir()

		missing := MissingFiles(dir)
		So(missing, ShouldResemble, []string{CombinedFasta, GeneAlleleTable, ProfilesTable, SketchIndex})

		err := os.WriteFile(CombinedPath(dir), []byte(">a\nACGT\n"), filePerm)
		So(err, ShouldBeNil)

		missing = MissingFiles(dir)
		So(missing, ShouldResemble, []string{GeneAlleleTable, ProfilesTable, SketchIndex})
	})

	Convey("Given a served bundle, EnsureBundle downloads and unpacks it", t, func() {
		bundle := makeBundle(t)

		requests := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			requests++
			w.Write(bundle)
		}))

		defer server.Close()

		dir := t.TempDir()

		err := EnsureBundle(dir, dir, server.URL)
		So(err, ShouldBeNil)
		So(requests, ShouldEqual, 1)
		So(MissingFiles(dir), ShouldBeEmpty)

		Convey("relocating files out of the bundle's sub-directory", func() {
			_, err := os.Stat(filepath.Join(dir, "databases"))
			So(os.IsNotExist(err), ShouldBeTrue)

			content, err := os.ReadFile(CombinedPath(dir))
			So(err, ShouldBeNil)
			So(string(content), ShouldEqual, "content of "+CombinedFasta)
		})

		Convey("and does nothing when all files are already present", func() {
			err := EnsureBundle(dir, dir, server.URL)
			So(err, ShouldBeNil)
			So(requests, ShouldEqual, 1)
		})
	})

	Convey("EnsureBundle fails on a bad response", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))

		defer server.Close()

		err := EnsureBundle(t.TempDir(), t.TempDir(), server.URL)
		So(err, ShouldEqual, ErrBundleFetch)
	})

	Convey("safeJoin rejects paths that escape the destination", t, func() {
		_, err := safeJoin("/dest", "../escape")
		So(err, ShouldEqual, ErrBundlePath)

		dest, err := safeJoin("/dest", "databases/file.txt")
		So(err, ShouldBeNil)
		So(dest, ShouldEqual, "/dest/databases/file.txt")
	})
}
