package dateparse_test

import (
	"testing"
	"time"

	"github.com/atomicobject/moxide/pkg/dateparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAt(t *testing.T) {
	now := time.Date(2024, 3, 7, 9, 0, 0, 0, time.UTC) // a Thursday

	p := dateparse.New(dateparse.Config{Folder: "Daily", Format: "YYYY-MM-DD"})

	cases := []struct {
		phrase string
		want   string
	}{
		{"today", "Daily/2024-03-07.md"},
		{"tomorrow", "Daily/2024-03-08.md"},
		{"yesterday", "Daily/2024-03-06.md"},
	}

	for _, tc := range cases {
		t.Run(tc.phrase, func(t *testing.T) {
			got, ok := p.ResolveAt(tc.phrase, now)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveAt_NotADate(t *testing.T) {
	p := dateparse.New(dateparse.Config{})
	_, ok := p.ResolveAt("Project Roadmap", time.Now())
	assert.False(t, ok)
}

func TestFilenameFor_NoFolder(t *testing.T) {
	p := dateparse.New(dateparse.Config{Format: "YYYY-MM-DD"})
	got := p.FilenameFor(time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-03-07.md", got)
}
