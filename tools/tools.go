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

// package tools wraps the external binaries the analysis shells out to.
// Every invocation blocks until the tool exits, and the command line plus
// captured stdout and stderr are appended to the run's log file.

package tools

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
)

type Error string

func (e Error) Error() string { return string(e) }

const logFilePerm = 0644

// Dependencies are the binaries that must be on PATH for a run.
var Dependencies = []string{
	"mash",
	"bbduk.sh",
	"bbmap.sh",
	"samtools",
	"jellyfish",
	"blastn",
	"makeblastdb",
	"reformat.sh",
}

// CheckDependencies returns the names of required binaries that could not
// be found on PATH.
func CheckDependencies() []string {
	var missing []string

	for _, dep := range Dependencies {
		if _, err := exec.LookPath(dep); err != nil {
			missing = append(missing, dep)
		}
	}

	return missing
}

// Runner executes external tools for one run, sharing a log file and a
// thread count across invocations.
type Runner struct {
	logPath string
	threads int
	logMu   sync.Mutex
}

// New returns a Runner that appends tool diagnostics to the given log
// file (no logging if blank) and passes the given thread count to tools
// that accept one.
func New(logPath string, threads int) *Runner {
	if threads < 1 {
		threads = 1
	}

	return &Runner{logPath: logPath, threads: threads}
}

// invocation describes a single external command to run: where its stdin
// comes from and where its stdout goes, if anywhere.
type invocation struct {
	name       string
	args       []string
	stdin      string
	stdoutPath string
}

// run executes the invocation, logs it, and returns captured stdout and
// stderr. When inv.stdoutPath is set, stdout goes to that file instead of
// being returned.
func (r *Runner) run(inv invocation) (string, string, error) {
	cmd := exec.Command(inv.name, inv.args...)

	if inv.stdin != "" {
		cmd.Stdin = strings.NewReader(inv.stdin)
	}

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	var stdoutFile *os.File

	if inv.stdoutPath != "" {
		f, err := os.Create(inv.stdoutPath)
		if err != nil {
			return "", "", err
		}

		stdoutFile = f
		cmd.Stdout = f
	}

	runErr := cmd.Run()

	if stdoutFile != nil {
		if closeErr := stdoutFile.Close(); runErr == nil {
			runErr = closeErr
		}
	}

	logErr := r.logInvocation(inv, stdout.String(), stderr.String())
	if runErr == nil {
		runErr = logErr
	}

	if runErr != nil {
		runErr = fmt.Errorf("%s: %w; stderr: %s", inv.name, runErr, lastLine(stderr.String()))
	}

	return stdout.String(), stderr.String(), runErr
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")

	return lines[len(lines)-1]
}

// logInvocation appends one block per tool invocation to the run log, in
// the same shape the analysis has always used: the command line, then the
// captured stdout, then the captured stderr.
func (r *Runner) logInvocation(inv invocation, stdout, stderr string) error {
	if r.logPath == "" {
		return nil
	}

	r.logMu.Lock()
	defer r.logMu.Unlock()

	f, err := os.OpenFile(r.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePerm)
	if err != nil {
		return err
	}

	block := fmt.Sprintf("Command used: %s %s\n\nSTDOUT: %s\n\nSTDERR: %s\n\n",
		inv.name, strings.Join(inv.args, " "), stdout, stderr)

	if _, err = f.WriteString(block); err != nil {
		f.Close()

		return err
	}

	return f.Close()
}

func (r *Runner) threadsArg() string {
	return fmt.Sprintf("%d", r.threads)
}
