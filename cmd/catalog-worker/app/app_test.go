package app

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/hmreg/catalog-reconciler/internal/pkg/errors"
)

func TestRootCommand_RegistersCommands(t *testing.T) {
	root := New("test").createRootCommand()

	groups := map[string]string{}
	for _, c := range root.Commands() {
		groups[c.Name()] = c.GroupID
	}

	tests := map[string]string{
		"serve":   "core",
		"submit":  "core",
		"preview": "core",
		"retry":   "core",
		"status":  "core",
		"sweep":   "management",
		"migrate": "management",
		"health":  "management",
	}
	for name, group := range tests {
		t.Run(name, func(t *testing.T) {
			got, ok := groups[name]
			require.True(t, ok, "command %s not registered", name)
			assert.Equal(t, group, got)
		})
	}
}

func TestExecute_ValidatesArgsBeforeLoadingConfig(t *testing.T) {
	a := New("test")

	err := a.Execute(context.Background(), []string{"retry"})

	assert.ErrorContains(t, err, "accepts 1 arg(s)")
	assert.Nil(t, a.config)
}

func TestExecute_Version(t *testing.T) {
	a := New("1.2.3")
	root := a.createRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--version"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "catalog-worker 1.2.3\n", out.String())
}

func TestParseID(t *testing.T) {
	_, err := parseID("supplier", "not-a-uuid")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBadRequest))

	id, err := parseID("file", "6f1c6c2e-1f2a-4c4b-9d55-0f8c2a1d7e10")
	require.NoError(t, err)
	assert.Equal(t, "6f1c6c2e-1f2a-4c4b-9d55-0f8c2a1d7e10", id.String())
}

func TestWriteJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, writeJSON(&out, map[string]int{"inserted": 2}))
	assert.Equal(t, "{\n  \"inserted\": 2\n}\n", out.String())
}
