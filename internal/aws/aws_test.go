package aws

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProfileName(t *testing.T) {
	t.Setenv("AWS_PROFILE", "")
	require.Equal(t, "default", profileName())

	t.Setenv("AWS_PROFILE", "signer")
	require.Equal(t, "signer", profileName())
}
