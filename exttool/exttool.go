package exttool

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/retry"
	"v.io/x/lib/lookpath"
)

// maxStderr is the number of trailing stderr bytes kept in an Error.
const maxStderr = 4096

// Invoker runs one external tool to completion.
type Invoker interface {
	// Run executes tool with args and blocks until it exits.  It returns nil
	// iff the tool exited with status 0; otherwise the error is an *Error.
	Run(ctx context.Context, tool string, args ...string) error
}

// Error describes a failed external tool invocation.
type Error struct {
	// Tool is the tool name, as passed to Run.
	Tool string
	Args []string
	// ExitCode is the process exit status, or -1 if the process did not exit
	// normally (it could not be started, was killed, or timed out).
	ExitCode int
	// Region is the genomic interval being processed, if known.
	Region string
	// Stderr holds the tail of the tool's standard error.
	Stderr string
	// Err is the underlying error.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: exit code %d", e.Tool, strings.Join(e.Args, " "), e.ExitCode)
	if e.Region != "" {
		fmt.Fprintf(&b, " (region %s)", e.Region)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		fmt.Fprintf(&b, "\nstderr:\n%s", s)
	}
	return b.String()
}

// WithRegion annotates err with the genomic region being processed if err is
// an *Error, and returns it.
func WithRegion(err error, region string) error {
	if e, ok := err.(*Error); ok && e.Region == "" {
		e.Region = region
	}
	return err
}

// Runner is the Invoker used in production: it runs tools with os/exec.
type Runner struct {
	// Paths maps a tool name to the binary to execute.  Tools not listed are
	// looked up in $PATH.
	Paths map[string]string
	// Timeout bounds each attempt.  Zero means no timeout.
	Timeout time.Duration
	// Retries is the number of additional attempts after a failure.
	Retries int
	// RetryPolicy spaces out the retries.  If nil, a 1s-1m exponential backoff
	// is used.
	RetryPolicy retry.Policy
}

func (r *Runner) binary(tool string) string {
	if p, ok := r.Paths[tool]; ok && p != "" {
		return p
	}
	return tool
}

func environ() map[string]string {
	env := map[string]string{}
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i > 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	return env
}

// Check resolves every tool to an executable, and returns an error naming the
// first one that can't be found.
func (r *Runner) Check(tools ...string) error {
	env := environ()
	for _, tool := range tools {
		bin := r.binary(tool)
		if strings.ContainsRune(bin, os.PathSeparator) {
			if _, err := os.Stat(bin); err != nil {
				return errors.E(errors.NotExist, err, fmt.Sprintf("%s: %s", tool, bin))
			}
			continue
		}
		path, err := lookpath.Look(env, bin)
		if err != nil {
			return errors.E(errors.NotExist, err, fmt.Sprintf("%s: %s not in $PATH", tool, bin))
		}
		log.Debug.Printf("%s: using %s", tool, path)
	}
	return nil
}

// Run implements Invoker.
func (r *Runner) Run(ctx context.Context, tool string, args ...string) error {
	policy := r.RetryPolicy
	if policy == nil {
		policy = retry.Backoff(time.Second, time.Minute, 2)
	}
	var err error
	for attempt := 0; ; attempt++ {
		if err = r.runOnce(ctx, tool, args); err == nil {
			return nil
		}
		if attempt >= r.Retries || ctx.Err() != nil {
			return err
		}
		log.Error.Printf("%v; retrying (%d/%d)", err, attempt+1, r.Retries)
		if werr := retry.Wait(ctx, policy, attempt); werr != nil {
			return err
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, tool string, args []string) error {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	start := time.Now()
	cmd := exec.CommandContext(ctx, r.binary(tool), args...)
	stderr := &tailBuffer{max: maxStderr}
	cmd.Stderr = stderr
	log.Debug.Printf("running %s %s", tool, strings.Join(args, " "))
	err := cmd.Run()
	if err == nil {
		log.Debug.Printf("%s finished in %v", tool, time.Since(start))
		return nil
	}
	e := &Error{Tool: tool, Args: args, ExitCode: -1, Stderr: stderr.String(), Err: err}
	if exitErr, ok := err.(*exec.ExitError); ok {
		e.ExitCode = exitErr.ExitCode()
	}
	if ctx.Err() == context.DeadlineExceeded {
		e.Err = fmt.Errorf("timed out after %v", r.Timeout)
		e.ExitCode = -1
	}
	return e
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	max int
	buf bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) > t.max {
		p = p[len(p)-t.max:]
	}
	if over := t.buf.Len() + len(p) - t.max; over > 0 {
		t.buf.Next(over)
	}
	t.buf.Write(p)
	return n, nil
}

func (t *tailBuffer) String() string {
	return t.buf.String()
}
