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

package samples

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

const filePerm = 0644

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()

	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("@r\nACGT\n+\nIIII\n"), filePerm); err != nil {
			t.Fatal(err)
		}
	}
}

func TestDiscover(t *testing.T) {
	Convey("Given a directory of FASTQ files", t, func() {
		dir := t.TempDir()
		touch(t, dir,
			"sampleA_R1.fastq.gz",
			"sampleA_R2.fastq.gz",
			"sampleB.fastq",
			"sampleC_R1.fq.gz",
			"notreads.txt",
		)

		paired, unpaired, err := Discover(dir, DefaultForwardID, DefaultReverseID)
		So(err, ShouldBeNil)

		Convey("forward/reverse pairs are found and named up to the forward token", func() {
			So(paired, ShouldHaveLength, 1)
			So(paired[0].Name, ShouldEqual, "sampleA")
			So(paired[0].Forward, ShouldEqual, filepath.Join(dir, "sampleA_R1.fastq.gz"))
			So(paired[0].Reverse, ShouldEqual, filepath.Join(dir, "sampleA_R2.fastq.gz"))
			So(paired[0].Paired(), ShouldBeTrue)
		})

		Convey("everything else is unpaired, named up to the first dot", func() {
			So(unpaired, ShouldHaveLength, 2)
			So(unpaired[0].Name, ShouldEqual, "sampleB")
			So(unpaired[0].Paired(), ShouldBeFalse)

			// sampleC has the forward token but no reverse file
			So(unpaired[1].Name, ShouldEqual, "sampleC_R1")
			So(unpaired[1].Reverse, ShouldBeBlank)
		})

		Convey("non-FASTQ files are ignored entirely", func() {
			for _, s := range append(paired, unpaired...) {
				So(s.Forward, ShouldNotContainSubstring, "notreads")
			}
		})
	})

	Convey("A reverse file without its forward counterpart is unpaired", t, func() {
		dir := t.TempDir()
		touch(t, dir, "lonely_R2.fastq")

		paired, unpaired, err := Discover(dir, DefaultForwardID, DefaultReverseID)
		So(err, ShouldBeNil)
		So(paired, ShouldBeEmpty)
		So(unpaired, ShouldHaveLength, 1)
		So(unpaired[0].Name, ShouldEqual, "lonely_R2")
	})

	Convey("Custom pair tokens are honoured", t, func() {
		dir := t.TempDir()
		touch(t, dir, "s_1.fastq", "s_2.fastq")

		paired, unpaired, err := Discover(dir, "_1", "_2")
		So(err, ShouldBeNil)
		So(unpaired, ShouldBeEmpty)
		So(paired, ShouldHaveLength, 1)
		So(paired[0].Name, ShouldEqual, "s")
	})

	Convey("An empty directory yields no samples", t, func() {
		paired, unpaired, err := Discover(t.TempDir(), DefaultForwardID, DefaultReverseID)
		So(err, ShouldBeNil)
		So(paired, ShouldBeEmpty)
		So(unpaired, ShouldBeEmpty)
	})
}
