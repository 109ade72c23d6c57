package psh

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buckleypaul/pshtest/internal/testing/fakes/fakepsh"
)

func TestCommands(t *testing.T) {
	s, _ := newSession(t)

	names, err := s.Commands(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "date", "exit", "help", "history", "ls", "mkdir", "ps", "reboot", "touch"}, names)
}

func TestCommandsEmptyHelp(t *testing.T) {
	s, _ := newSession(t, fakepsh.WithHandler("help", func(*fakepsh.Device, []string) []string {
		return []string{"Available commands:"}
	}))

	_, err := s.Commands(context.Background())
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "help", ae.Cmd)
}

func TestListContains(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()

	seen, err := s.ListContains(ctx, "ls bin", []string{"date", "ls", "touch", "history", "exit"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"date": true, "ls": true, "touch": true}, seen)

	// The listing consumed its prompt.
	_, err = s.AssertCmd(ctx, "date +%Y", Literal("1970"), "")
	require.NoError(t, err)
}

func TestListContainsColoredNames(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()
	require.NoError(t, s.MkdirFresh(ctx, "dev2"))

	seen, err := s.ListContains(ctx, "ls", []string{"dev", "dev2", "bin"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"dev": true, "dev2": true, "bin": true}, seen)
}

func TestListContainsIgnoresPrefixes(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()
	require.NoError(t, s.MkdirFresh(ctx, "x"))
	_, err := s.AssertCmd(ctx, "touch x/lsof", NoOutput(), "")
	require.NoError(t, err)

	seen, err := s.ListContains(ctx, "ls x", []string{"ls"})
	require.NoError(t, err)
	assert.Empty(t, seen)
}

func TestListContainsRowStarts(t *testing.T) {
	tests := []struct {
		name string
		rows []string
		want map[string]bool
	}{
		{
			name: "after unlisted name",
			rows: []string{"cat    foo", "ls     mkdir"},
			want: map[string]bool{"cat": true, "ls": true, "mkdir": true},
		},
		{
			name: "after colored entry",
			rows: []string{"cat    \x1b[1;34mfoo\x1b[0m", "ls     mkdir"},
			want: map[string]bool{"cat": true, "ls": true, "mkdir": true},
		},
		{
			name: "colored row start",
			rows: []string{"foo", "\x1b[1;32mls\x1b[0m   mkdir"},
			want: map[string]bool{"ls": true, "mkdir": true},
		},
		{
			name: "wrapped columns",
			rows: []string{"ps      psh", "reboot  touch"},
			want: map[string]bool{"ps": true, "reboot": true, "touch": true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := tt.rows
			s, _ := newSession(t, fakepsh.WithHandler("ls", func(*fakepsh.Device, []string) []string {
				return rows
			}))
			ctx := context.Background()

			seen, err := s.ListContains(ctx, "ls bin", []string{"cat", "ls", "mkdir", "ps", "reboot", "touch"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, seen)

			require.NoError(t, s.AssertPrompt(ctx, ""))
		})
	}
}

func TestMkdirFresh(t *testing.T) {
	s, dev := newSession(t)
	ctx := context.Background()

	require.NoError(t, s.MkdirFresh(ctx, "test_dir"))
	assert.True(t, dev.Exists("test_dir"))

	err := s.MkdirFresh(ctx, "test_dir")
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Msg, "already been created")
}
