package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-auth/internal/auth"
)

func TestGenKeyPrintsInstallableKey(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"genkey"})

	require.NoError(t, root.Execute())

	key := strings.TrimSpace(out.String())
	assert.NoError(t, auth.NewKeyManager().Validate([]byte(key)))
}

func TestRootRegistersCommands(t *testing.T) {
	root := newRootCommand()

	for _, name := range []string{"serve", "migrate", "genkey"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}
