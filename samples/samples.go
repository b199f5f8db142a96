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

// package samples discovers the FASTQ read sets in an input directory and
// classifies them as paired or unpaired.

package samples

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// DefaultForwardID and DefaultReverseID are the filename tokens that
	// identify forward and reverse read files.
	DefaultForwardID = "_R1"
	DefaultReverseID = "_R2"

	fastqGlob = "*.f*q*"
)

// Sample is one sequencing run's read set. Reverse is blank for unpaired
// samples.
type Sample struct {
	Name    string
	Forward string
	Reverse string
}

// Paired reports whether the sample has both forward and reverse reads.
func (s Sample) Paired() bool {
	return s.Reverse != ""
}

// Discover finds the FASTQ files in dir (anything matching *.f*q*, so
// .fastq, .fq and their gzipped forms all count) and returns the paired
// read sets followed by the unpaired ones.
//
// A file is half of a pair when its name contains the forward token and
// the file named by swapping in the reverse token exists. Everything else
// is unpaired: no token at all, or a token whose counterpart file is
// missing. Paired sample names are the basename up to the forward token;
// unpaired names are the basename up to the first dot.
func Discover(dir, forwardID, reverseID string) (paired, unpaired []Sample, err error) {
	files, err := filepath.Glob(filepath.Join(dir, fastqGlob))
	if err != nil {
		return nil, nil, err
	}

	sort.Strings(files)

	for _, file := range files {
		switch {
		case isForwardOfPair(file, forwardID, reverseID):
			paired = append(paired, Sample{
				Name:    pairedName(file, forwardID),
				Forward: file,
				Reverse: strings.Replace(file, forwardID, reverseID, 1),
			})
		case isUnpaired(file, forwardID, reverseID):
			unpaired = append(unpaired, Sample{
				Name:    unpairedName(file),
				Forward: file,
			})
		}
	}

	return paired, unpaired, nil
}

func isForwardOfPair(file, forwardID, reverseID string) bool {
	return strings.Contains(file, forwardID) &&
		fileExists(strings.Replace(file, forwardID, reverseID, 1))
}

// isUnpaired covers the three unpaired cases: neither token in the name,
// forward token without its reverse counterpart on disk, and reverse
// token without its forward counterpart.
func isUnpaired(file, forwardID, reverseID string) bool {
	hasForward := strings.Contains(file, forwardID)
	hasReverse := strings.Contains(file, reverseID)

	switch {
	case !hasForward && !hasReverse:
		return true
	case hasForward:
		return !fileExists(strings.Replace(file, forwardID, reverseID, 1))
	default:
		return !fileExists(strings.Replace(file, reverseID, forwardID, 1))
	}
}

func pairedName(file, forwardID string) string {
	base := filepath.Base(file)

	name, _, _ := strings.Cut(base, forwardID)

	return name
}

func unpairedName(file string) string {
	base := filepath.Base(file)

	name, _, _ := strings.Cut(base, ".")

	return name
}

func fileExists(path string) bool {
	_, err := os.Stat(path)

	return !os.IsNotExist(err)
}
