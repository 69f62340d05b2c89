// Package shell runs a small whitelist of host commands under a pty and
// relays their output to the session terminal. Admin-only screen; the
// whitelist is fixed at build time and arguments are never taken from
// user input.
package shell

import (
	"fmt"
	"io"
	"os/exec"
	"sort"
	"time"

	"github.com/creack/pty"
)

// runTimeout bounds a single command run.
const runTimeout = 10 * time.Second

var allowed = map[string][]string{
	"date":   nil,
	"df":     {"-h"},
	"free":   {"-m"},
	"uptime": nil,
}

// Runner executes whitelisted commands.
type Runner struct{}

// New creates a Runner.
func New() *Runner { return &Runner{} }

// Commands returns the whitelist in sorted order for display.
func (r *Runner) Commands() []string {
	names := make([]string, 0, len(allowed))
	for name := range allowed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Allowed reports whether a command name is on the whitelist.
func (r *Runner) Allowed(name string) bool {
	_, ok := allowed[name]
	return ok
}

// Run executes a whitelisted command under a pty, copying its output to
// w until the command exits or the run timeout fires.
func (r *Runner) Run(name string, w io.Writer) error {
	args, ok := allowed[name]
	if !ok {
		return fmt.Errorf("command %q is not allowed", name)
	}

	cmd := exec.Command(name, args...)
	f, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}
	defer f.Close()

	done := make(chan struct{})
	go func() {
		// Reading the pty ends with an error once the child exits.
		io.Copy(w, f)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(runTimeout):
		cmd.Process.Kill()
		<-done
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("run %s: %w", name, err)
	}
	return nil
}
