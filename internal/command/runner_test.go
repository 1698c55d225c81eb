package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Azure/cmdpilot/internal/apperrors"
)

func TestRun_Success(t *testing.T) {
	r := NewRunner(0)
	res, err := r.Run(context.Background(), Request{Command: "echo hello"})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, 0, res.ExitCode)
	require.Contains(t, res.Stdout, "hello")
}

func TestRun_ShellMetacharacters(t *testing.T) {
	r := NewRunner(0)
	res, err := r.Run(context.Background(), Request{Command: "echo one && echo two"})
	require.NoError(t, err)
	require.Contains(t, res.Stdout, "one")
	require.Contains(t, res.Stdout, "two")
}

func TestRun_ExitCode(t *testing.T) {
	r := NewRunner(0)
	res, err := r.Run(context.Background(), Request{Command: "false"})
	require.Error(t, err)
	require.False(t, res.Success)
	require.Equal(t, apperrors.CodeExit, res.ErrorKind)
}

func TestRun_Timeout(t *testing.T) {
	r := NewRunner(0)
	res, err := r.Run(context.Background(), Request{Command: "sleep 5", Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	require.Equal(t, apperrors.CodeTimeout, res.ErrorKind)
}

func TestRun_DryRun(t *testing.T) {
	r := NewRunner(0)
	res, err := r.Run(context.Background(), Request{Command: "rm -rf /tmp/whatever", DryRun: true})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Contains(t, res.Stdout, "dry-run")
}

func TestRun_SpawnMissingBinary(t *testing.T) {
	r := NewRunner(0)
	res, err := r.Run(context.Background(), Request{Command: "definitely-not-a-real-binary-xyz"})
	require.Error(t, err)
	require.Equal(t, apperrors.CodeSpawn, res.ErrorKind)
}

func TestBoundedBuffer_Truncates(t *testing.T) {
	b := newBoundedBuffer(10)
	_, _ = b.Write([]byte("0123456789ABCDEF"))
	require.Contains(t, b.String(), "truncated")
}
