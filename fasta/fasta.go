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

// package fasta reads and writes the FASTA reference files used for the
// rMLST databases. Record ids are of the form <gene>_<allele>.

package fasta

import (
	"bufio"
	"io"
	"os"
	"strings"
)

const filePerm = 0644

// Record is one FASTA sequence.
type Record struct {
	ID  string
	Seq string
}

// Gene returns the gene token of the record id, which is everything before
// the first underscore.
func (r Record) Gene() string {
	return GeneToken(r.ID)
}

// GeneToken returns the gene part of a <gene>_<allele> identifier. An id
// with no underscore is returned whole.
func GeneToken(id string) string {
	gene, _, _ := strings.Cut(id, "_")

	return gene
}

// Each streams the records of r, calling cb for each one. The id is the
// header text up to the first whitespace.
func Each(r io.Reader, cb func(Record) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)

	var (
		id  string
		seq strings.Builder
	)

	flush := func() error {
		if id == "" {
			return nil
		}

		err := cb(Record{ID: id, Seq: seq.String()})
		seq.Reset()

		return err
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.HasPrefix(line, ">") {
			if err := flush(); err != nil {
				return err
			}

			id = headerID(line)

			continue
		}

		seq.WriteString(line)
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	return flush()
}

func headerID(line string) string {
	header := strings.TrimPrefix(line, ">")
	if i := strings.IndexAny(header, " \t"); i >= 0 {
		header = header[:i]
	}

	return header
}

// EachInFile is Each on the contents of the given path.
func EachInFile(path string, cb func(Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}

	defer f.Close()

	return Each(f, cb)
}

// ReadAll returns every record in the given file, in file order.
func ReadAll(path string) ([]Record, error) {
	var records []Record

	err := EachInFile(path, func(r Record) error {
		records = append(records, r)

		return nil
	})

	return records, err
}

// ContigNames returns the record ids in the given file, in file order.
func ContigNames(path string) ([]string, error) {
	var names []string

	err := EachInFile(path, func(r Record) error {
		names = append(names, r.ID)

		return nil
	})

	return names, err
}

// WriteRecords writes the given records to path, one header line and one
// sequence line per record.
func WriteRecords(path string, records []Record) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)

	for _, r := range records {
		if _, err = w.WriteString(">" + r.ID + "\n" + r.Seq + "\n"); err != nil {
			f.Close()

			return err
		}
	}

	if err = w.Flush(); err != nil {
		f.Close()

		return err
	}

	return f.Close()
}

// CopyRecords streams src to dst, keeping only records for which keep
// returns true. It returns the number of records written.
func CopyRecords(src, dst string, keep func(id string) bool) (int, error) {
	var kept []Record

	err := EachInFile(src, func(r Record) error {
		if keep(r.ID) {
			kept = append(kept, r)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(kept), WriteRecords(dst, kept)
}
