package codeaction_test

import (
	"testing"

	"github.com/atomicobject/moxide/pkg/codeaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinVaultPath(t *testing.T) {
	got, err := codeaction.JoinVaultPath("/vault", "Notes/New Idea.md")
	require.NoError(t, err)
	assert.Equal(t, "/vault/Notes/New Idea.md", got)
}

func TestJoinVaultPath_RejectsEscape(t *testing.T) {
	_, err := codeaction.JoinVaultPath("/vault", "../outside.md")
	assert.Error(t, err)
}

func TestJoinVaultPath_RejectsAbsolute(t *testing.T) {
	_, err := codeaction.JoinVaultPath("/vault", "/etc/passwd")
	assert.Error(t, err)
}
