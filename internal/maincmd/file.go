package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mna/loxvm/lang/value"
	"github.com/mna/loxvm/lang/vm"
	"github.com/mna/mainer"
)

func runFile(_ context.Context, stdio mainer.Stdio, path string) mainer.ExitCode {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s: %s\n", binName, err)
		return exitUsage
	}

	machine := vm.New(value.NewInterner())
	machine.Stdout = stdio.Stdout
	machine.Stderr = stdio.Stderr

	if err := machine.Interpret(string(src)); err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		var rerr *vm.RuntimeError
		if errors.As(err, &rerr) {
			return exitRuntime
		}
		return exitCompile
	}
	return mainer.Success
}
