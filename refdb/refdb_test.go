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
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-hgi/contaminas/fasta"
)

const filePerm = 0644

func TestMembershipTables(t *testing.T) {
	Convey("Given a membership table", t, func() {
		dir := t.TempDir()
		tablePath := filepath.Join(dir, GeneAlleleTable)

		table := "Salmonella:BACT000001_1,BACT000002_5,\n" +
			"Escherichia:BACT000060,BACT000065,\n" +
			"Salmonella:BACT000001_2,\n"

		err := os.WriteFile(tablePath, []byte(table), filePerm)
		So(err, ShouldBeNil)

		Convey("AlleleWhitelist returns the listed tokens, dropping the trailing comma", func() {
			whitelist, err := AlleleWhitelist(tablePath, "Escherichia")
			So(err, ShouldBeNil)
			So(whitelist, ShouldResemble, []string{"BACT000060", "BACT000065"})
		})

		Convey("the last matching line wins when a genus appears twice", func() {
			whitelist, err := AlleleWhitelist(tablePath, "Salmonella")
			So(err, ShouldBeNil)
			So(whitelist, ShouldResemble, []string{"BACT000001_2"})
		})

		Convey("an unlisted genus yields an empty list", func() {
			whitelist, err := AlleleWhitelist(tablePath, "Listeria")
			So(err, ShouldBeNil)
			So(whitelist, ShouldBeEmpty)

			exclude, err := GenesToExclude(tablePath, "Listeria")
			So(err, ShouldBeNil)
			So(exclude, ShouldBeEmpty)
		})

		Convey("a missing table is an error", func() {
			_, err := AlleleWhitelist(filepath.Join(dir, "nope.txt"), "Salmonella")
			So(err, ShouldNotBeNil)
		})
	})
}

func writeCombined(t *testing.T, dir string) {
	t.Helper()

	err := fasta.WriteRecords(CombinedPath(dir), []fasta.Record{
		{ID: "BACT000001_1", Seq: "ACGT"},
		{ID: "BACT000001_2", Seq: "ACGA"},
		{ID: "BACT000060_1", Seq: "GGGG"},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestBuildDatabases(t *testing.T) {
	Convey("Given a combined reference", t, func() {
		dir := t.TempDir()
		writeCombined(t, dir)

		Convey("BuildAlleleDatabase keeps only whitelisted records", func() {
			path, built, err := BuildAlleleDatabase(dir, "Salmonella", []string{"BACT000001_2"})
			So(err, ShouldBeNil)
			So(built, ShouldBeTrue)
			So(path, ShouldEqual, GenusDatabasePath(dir, "Salmonella"))

			names, err := fasta.ContigNames(path)
			So(err, ShouldBeNil)
			So(names, ShouldResemble, []string{"BACT000001_2"})

			Convey("and leaves an existing database untouched", func() {
				err := os.WriteFile(path, []byte(">sentinel\nAA\n"), filePerm)
				So(err, ShouldBeNil)

				_, built, err := BuildAlleleDatabase(dir, "Salmonella", nil)
				So(err, ShouldBeNil)
				So(built, ShouldBeFalse)

				names, err := fasta.ContigNames(path)
				So(err, ShouldBeNil)
				So(names, ShouldResemble, []string{"sentinel"})
			})
		})

		Convey("BuildGenusDatabase drops records of excluded genes", func() {
			path, built, err := BuildGenusDatabase(dir, "Escherichia", []string{"BACT000060"})
			So(err, ShouldBeNil)
			So(built, ShouldBeTrue)

			names, err := fasta.ContigNames(path)
			So(err, ShouldBeNil)
			So(names, ShouldResemble, []string{"BACT000001_1", "BACT000001_2"})
		})

		Convey("with no exclusions, BuildGenusDatabase copies everything", func() {
			path, _, err := BuildGenusDatabase(dir, "Listeria", nil)
			So(err, ShouldBeNil)

			names, err := fasta.ContigNames(path)
			So(err, ShouldBeNil)
			So(names, ShouldHaveLength, 3)
		})
	})
}
