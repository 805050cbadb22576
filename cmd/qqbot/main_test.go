package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQQBotCommand(t *testing.T) {
	cmd := NewQQBotCommand()

	require.NotNil(t, cmd)
	assert.Equal(t, "qqbot", cmd.Use)
	assert.True(t, cmd.HasSubCommands())
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))

	for _, name := range []string{"serve", "db", "version"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestVersionCommandOutput(t *testing.T) {
	cmd := NewQQBotCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "qqbot dev")
	assert.Contains(t, out.String(), "Go version")
}
