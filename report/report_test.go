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

package report

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMedian(t *testing.T) {
	Convey("Median handles odd, even and empty lists", t, func() {
		So(Median([]int{3, 1, 2}), ShouldEqual, 2)
		So(Median([]int{4, 1, 2, 3}), ShouldEqual, 2.5)
		So(Median([]int{7}), ShouldEqual, 7)
		So(Median(nil), ShouldEqual, 0)
	})
}

func TestClassification(t *testing.T) {
	Convey("A clean sample is not contaminated", t, func() {
		row := Row{Sample: "s1", Genus: "Salmonella", SNVs: []int{0, 0, 0}}
		So(row.Contaminated(), ShouldBeFalse)
		So(row.CSV(), ShouldEqual, "s1,Salmonella,0,0,False")
	})

	Convey("A median above the threshold means contaminated", t, func() {
		row := Row{Sample: "s1", Genus: "Salmonella", SNVs: []int{3, 3, 3}}
		So(row.Contaminated(), ShouldBeTrue)
		So(row.CSV(), ShouldEqual, "s1,Salmonella,3,0,True")

		Convey("but a median at the threshold does not", func() {
			row := Row{Sample: "s1", Genus: "Salmonella", SNVs: []int{2, 2, 2}}
			So(row.Contaminated(), ShouldBeFalse)
		})

		Convey("and a fractional median is printed without padding", func() {
			row := Row{Sample: "s1", Genus: "Salmonella", SNVs: []int{2, 3}}
			So(row.CSV(), ShouldEqual, "s1,Salmonella,2.5,0,True")
		})
	})

	Convey("More than one genus means contaminated regardless of counts", t, func() {
		row := Row{Sample: "s1", Genus: "Escherichia:Salmonella", SNVs: []int{0}}
		So(row.Contaminated(), ShouldBeTrue)
		So(row.CSV(), ShouldEqual, "s1,Escherichia:Salmonella,0,0,True")
	})

	Convey("An oversized k-mer spectrum means contaminated", t, func() {
		row := Row{Sample: "s1", Genus: "Salmonella", SNVs: []int{0}, MaxKmers: 50000}
		So(row.Contaminated(), ShouldBeTrue)
		So(row.CSV(), ShouldEqual, "s1,Salmonella,0,50000,True")

		Convey("but a spectrum at the threshold does not", func() {
			row := Row{Sample: "s1", Genus: "Salmonella", SNVs: []int{0}, MaxKmers: 45000}
			So(row.Contaminated(), ShouldBeFalse)
		})
	})

	Convey("An error row carries the error sentinel", t, func() {
		row := ErrorRow("s1")
		So(row.Genus, ShouldEqual, ErrorGenus)
		So(row.Contaminated(), ShouldBeFalse)
		So(row.CSV(), ShouldEqual, "s1,Error processing sample,0,0,False")
	})
}

func TestWriter(t *testing.T) {
	Convey("Given a Writer", t, func() {
		path := filepath.Join(t.TempDir(), "report.csv")

		w, err := NewWriter(path)
		So(err, ShouldBeNil)
		So(w.Path(), ShouldEqual, path)

		Convey("the report starts with just the header", func() {
			content, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(content), ShouldEqual, Header+"\n")
		})

		Convey("appended rows accumulate after the header", func() {
			err := w.Append(Row{Sample: "s1", Genus: "Salmonella", SNVs: []int{0}})
			So(err, ShouldBeNil)

			err = w.Append(ErrorRow("s2"))
			So(err, ShouldBeNil)

			content, err := os.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(content), ShouldEqual, Header+"\n"+
				"s1,Salmonella,0,0,False\n"+
				"s2,Error processing sample,0,0,False\n")
		})
	})
}
