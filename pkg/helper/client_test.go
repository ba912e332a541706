//go:build linux

package helper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klasnalol/Limits-droper/pkg/rapl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHelper installs a shell script standing in for the privileged
// binary. It logs its argv and replays canned stdout/stderr.
func fakeHelper(t *testing.T, script string) (path, argvLog string) {
	t.Helper()
	dir := t.TempDir()
	path = filepath.Join(dir, "limits_helper")
	argvLog = filepath.Join(dir, "argv")
	full := "#!/bin/sh\necho \"$@\" >> " + argvLog + "\n" + script
	require.NoError(t, os.WriteFile(path, []byte(full), 0o755))
	return path, argvLog
}

func TestClient_State(t *testing.T) {
	path, _ := fakeHelper(t, `cat <<EOF
POWER_UNIT=3
UNIT_WATTS=0.125
MSR=0x004284e800df81b8
MMIO=0x00000004e80001b8
EOF`)

	st, err := NewClient(path).State()
	require.NoError(t, err)
	assert.Equal(t, sampleState(), st)
}

func TestClient_State_IncompleteReplyIsHardFailure(t *testing.T) {
	path, _ := fakeHelper(t, `cat <<EOF
POWER_UNIT=3
UNIT_WATTS=0.125
EOF`)

	_, err := NewClient(path).State()
	assert.ErrorIs(t, err, ErrInconsistentState)
}

func TestClient_State_NonZeroExitSurfacesStderr(t *testing.T) {
	path, _ := fakeHelper(t, `echo "MCHBAR appears disabled" >&2
exit 1`)

	_, err := NewClient(path).State()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MCHBAR appears disabled")
}

func TestClient_WriteRegister_Argv(t *testing.T) {
	path, argvLog := fakeHelper(t, "")
	c := NewClient(path)

	require.NoError(t, c.WriteRegister(rapl.TargetMSR, 0x00000004E80001B8))
	require.NoError(t, c.WriteRegister(rapl.TargetMMIO, 0x1))

	log, err := os.ReadFile(argvLog)
	require.NoError(t, err)
	assert.Equal(t,
		"--write-msr 0x00000004e80001b8\n--write-mmio 0x0000000000000001\n",
		string(log))
}

func TestClient_WriteRegister_RejectsBothTarget(t *testing.T) {
	path, argvLog := fakeHelper(t, "")
	err := NewClient(path).WriteRegister(rapl.TargetBoth, 1)
	assert.Error(t, err)
	_, statErr := os.Stat(argvLog)
	assert.True(t, os.IsNotExist(statErr), "helper must not have been invoked")
}

func TestClient_WritePowercap_Argv(t *testing.T) {
	path, argvLog := fakeHelper(t, "")
	require.NoError(t, NewClient(path).WritePowercap(55_000_000, 157_000_000))

	log, err := os.ReadFile(argvLog)
	require.NoError(t, err)
	assert.Equal(t, "--write-powercap 55000000 157000000\n", string(log))
}

func TestClient_MissingBinary(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "limits_helper"))
	_, err := c.State()
	assert.Error(t, err)
}

func TestNewClient_DefaultPath(t *testing.T) {
	assert.Equal(t, DefaultPath, NewClient("").path)
}
