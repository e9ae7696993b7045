package maincmd

import (
	"bufio"
	"context"
	"fmt"

	"github.com/mna/loxvm/lang/value"
	"github.com/mna/loxvm/lang/vm"
	"github.com/mna/mainer"
)

// runPrompt runs an interactive read-compile-run loop over stdio.Stdin.
// Unlike file mode, a compile or runtime error on one line is reported and
// the session continues; only an end-of-file on stdin (or a cancelled
// context) ends it, always with a success exit code (spec §6). The VM and
// its interner persist across lines, so top-level variable and function
// declarations accumulate the way a REPL user expects.
func runPrompt(ctx context.Context, stdio mainer.Stdio) mainer.ExitCode {
	machine := vm.New(value.NewInterner())
	machine.Stdout = stdio.Stdout
	machine.Stderr = stdio.Stderr

	scanner := bufio.NewScanner(stdio.Stdin)
	for {
		if ctx.Err() != nil {
			return mainer.Success
		}

		fmt.Fprint(stdio.Stdout, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(stdio.Stdout)
			return mainer.Success
		}

		line := scanner.Text()
		if line == "" {
			continue
		}
		if err := machine.Interpret(line); err != nil {
			fmt.Fprintf(stdio.Stderr, "%s\n", err)
		}
	}
}
