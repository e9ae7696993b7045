// Package maincmd implements the command-line front end for the lox
// bytecode interpreter: a REPL when invoked with no positional argument, or
// a single-file interpreter when given exactly one (spec §6).
package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
)

const binName = "lox"

var (
	shortUsage = fmt.Sprintf("usage: %s [script]\n", binName)

	longUsage = fmt.Sprintf(`usage: %[1]s [script]
       %[1]s -h|--help
       %[1]s -v|--version

With no script argument, %[1]s starts an interactive prompt: each line you
enter is compiled and run immediately, with variables and functions
persisting across lines. An end-of-file on stdin (ctrl-D) ends the session.

With a script argument, %[1]s compiles and runs the file, exiting with:
       0    on success
       65   on a compile-time error
       70   on a runtime error

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
`, binName)
)

// exit codes follow the sysexits.h convention the book this interpreter
// implements uses: 64 for command-line usage errors, 65 for data (here,
// compile-time) errors, 70 for internal software (here, runtime) errors.
const (
	exitUsage   = mainer.ExitCode(64)
	exitCompile = mainer.ExitCode(65)
	exitRuntime = mainer.ExitCode(70)
)

// Cmd is the loxvm command-line entry point, wired the way mainer.Parser
// expects: exported bool fields tagged with their flag names, a Validate
// method, and a Main method dispatching on the parsed state.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	args []string
}

// SetArgs is called by mainer.Parser with the non-flag positional arguments.
func (c *Cmd) SetArgs(args []string) { c.args = args }

// Validate rejects more than a single script path; mainer.Parser calls this
// after parsing flags and positional arguments.
func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) > 1 {
		return fmt.Errorf("%s: expected at most one script argument, got %d", binName, len(c.args))
	}
	return nil
}

// Main parses args, dispatches to the REPL or file runner, and returns the
// process exit code.
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return exitUsage
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)

	if len(c.args) == 1 {
		return runFile(ctx, stdio, c.args[0])
	}
	return runPrompt(ctx, stdio)
}
