package maincmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mna/mainer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stdio(stdin string) (mainer.Stdio, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return mainer.Stdio{
		Stdin:  strings.NewReader(stdin),
		Stdout: &out,
		Stderr: &errOut,
	}, &out, &errOut
}

func writeScript(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.lox")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestMainRunsScriptSuccessfully(t *testing.T) {
	path := writeScript(t, `print "hello";`)
	io, out, _ := stdio("")
	c := Cmd{}
	code := c.Main([]string{"lox", path}, io)
	assert.Equal(t, mainer.Success, code)
	assert.Equal(t, "hello\n", out.String())
}

func TestMainExitsSixtyFiveOnCompileError(t *testing.T) {
	path := writeScript(t, `print ;`)
	io, _, errOut := stdio("")
	c := Cmd{}
	code := c.Main([]string{"lox", path}, io)
	assert.Equal(t, exitCompile, code)
	assert.NotEmpty(t, errOut.String())
}

func TestMainExitsSeventyOnRuntimeError(t *testing.T) {
	path := writeScript(t, `print 1 + "x";`)
	io, _, errOut := stdio("")
	c := Cmd{}
	code := c.Main([]string{"lox", path}, io)
	assert.Equal(t, exitRuntime, code)
	assert.Contains(t, errOut.String(), "Operands must be two numbers or two strings.")
}

func TestMainExitsUsageErrorOnTooManyArguments(t *testing.T) {
	io, _, _ := stdio("")
	c := Cmd{}
	code := c.Main([]string{"lox", "one.lox", "two.lox"}, io)
	assert.Equal(t, exitUsage, code)
}

func TestMainMissingScriptFileIsUsageError(t *testing.T) {
	io, _, errOut := stdio("")
	c := Cmd{}
	code := c.Main([]string{"lox", filepath.Join(t.TempDir(), "missing.lox")}, io)
	assert.Equal(t, exitUsage, code)
	assert.NotEmpty(t, errOut.String())
}

func TestMainReplEvaluatesLinesAndPersistsState(t *testing.T) {
	io, out, _ := stdio("var x = 1;\nprint x + 1;\n")
	c := Cmd{}
	code := c.Main([]string{"lox"}, io)
	assert.Equal(t, mainer.Success, code)
	assert.Contains(t, out.String(), "2\n")
}

func TestMainReplContinuesAfterError(t *testing.T) {
	io, out, errOut := stdio("print nope;\nprint \"still alive\";\n")
	c := Cmd{}
	code := c.Main([]string{"lox"}, io)
	assert.Equal(t, mainer.Success, code)
	assert.Contains(t, errOut.String(), "Undefined variable 'nope'.")
	assert.Contains(t, out.String(), "still alive\n")
}

func TestMainVersionFlag(t *testing.T) {
	io, out, _ := stdio("")
	c := Cmd{BuildVersion: "1.2.3", BuildDate: "2026-01-01"}
	code := c.Main([]string{"lox", "--version"}, io)
	assert.Equal(t, mainer.Success, code)
	assert.Contains(t, out.String(), "1.2.3")
}

func TestMainHelpFlag(t *testing.T) {
	io, out, _ := stdio("")
	c := Cmd{}
	code := c.Main([]string{"lox", "--help"}, io)
	assert.Equal(t, mainer.Success, code)
	assert.Contains(t, out.String(), "usage: lox")
}
