package forge

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOutput(t *testing.T) {
	out := strings.Join([]string{
		"Compiling 3 files with 0.8.27",
		"  Foo=0xabc123",
		"garbage line",
		"Bar=42\r",
		"\x1b[32mColored=0xDEAD\x1b[0m",
		"Name=hello",
		"Bar=43 trailing",
		"Partial=0xzz",
		"Dashed-Key=1",
	}, "\n")

	assert.Equal(t, map[string]string{
		"Foo":     "0xabc123",
		"Bar":     "43",
		"Colored": "0xDEAD",
	}, ParseOutput(out))
}

func TestParseOutputEmpty(t *testing.T) {
	assert.Empty(t, ParseOutput(""))
}

func writeFakeForge(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "forge")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestRunScript(t *testing.T) {
	binary := writeFakeForge(t, `echo "args: $*"
echo "pwd: $(pwd)"
echo "index: $INDEX"
echo "Dahlia=0xabc123"
`)
	projectDir := t.TempDir()
	var stdout bytes.Buffer

	r := NewRunner(projectDir, WithBinary(binary), WithOutput(&stdout, &bytes.Buffer{}))
	out, err := r.RunScript(context.Background(), Invocation{
		Script:     "Dahlia",
		RPCURL:     "http://localhost:8546",
		PrivateKey: "0x01",
		Env:        map[string]string{"INDEX": "2"},
	})
	require.NoError(t, err)

	assert.Contains(t, out, "args: script script/Dahlia.s.sol --rpc-url http://localhost:8546 --broadcast --private-key 0x01")
	resolved, err := filepath.EvalSymlinks(projectDir)
	require.NoError(t, err)
	assert.Contains(t, out, "pwd: "+resolved)
	assert.Contains(t, out, "index: 2")
	assert.Equal(t, out, stdout.String(), "stdout is streamed while captured")
	assert.Equal(t, map[string]string{"Dahlia": "0xabc123"}, ParseOutput(out))
}

func TestRunScriptFailure(t *testing.T) {
	binary := writeFakeForge(t, `echo "partial=0x01"
echo "revert: not owner" >&2
exit 3
`)

	r := NewRunner(t.TempDir(), WithBinary(binary), WithOutput(&bytes.Buffer{}, &bytes.Buffer{}))
	out, err := r.RunScript(context.Background(), Invocation{Script: "Timelock", RPCURL: "http://x", PrivateKey: "0x01"})
	require.Error(t, err)

	var scriptErr *ScriptError
	require.True(t, errors.As(err, &scriptErr))
	assert.Equal(t, "Timelock", scriptErr.Script)
	assert.Equal(t, "revert: not owner", scriptErr.Output)
	assert.Contains(t, out, "partial=0x01")
}

func TestRunScriptMissingBinary(t *testing.T) {
	r := NewRunner(t.TempDir(), WithBinary(filepath.Join(t.TempDir(), "absent")))
	_, err := r.RunScript(context.Background(), Invocation{Script: "Dahlia"})

	var scriptErr *ScriptError
	require.True(t, errors.As(err, &scriptErr))
}

func TestTail(t *testing.T) {
	assert.Equal(t, "c\nd", tail("a\nb\nc\nd\n", 2))
	assert.Equal(t, "a", tail("a", 5))
}
