package approval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Azure/cmdpilot/internal/safety"
)

func TestConfirm_AutoApproveBypassesLowRisk(t *testing.T) {
	p := New(true, nil)

	choice, err := p.Confirm("install a package", safety.Low, []string{"run", "skip", "abort"})
	require.NoError(t, err)
	require.Equal(t, "run", choice)

	choice, err = p.Confirm("read a file", safety.Safe, []string{"run", "abort"})
	require.NoError(t, err)
	require.Equal(t, "run", choice)
}

func TestConfirm_NoOptionsIsError(t *testing.T) {
	p := New(true, nil)
	_, err := p.Confirm("do a thing", safety.Safe, nil)
	require.Error(t, err)
}
