package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/nova-guide/pkg/wakeword"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "nova v"+version+"\n", out)
}

func TestRooms_SaveAndList(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, store := range []string{"commands.json", "rooms.db"} {
		t.Run(store, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), store)

			out, err := execute(t, "--rooms", path, "rooms", "list")
			require.NoError(t, err)
			assert.Contains(t, out, "No rooms saved.")

			out, err = execute(t, "--rooms", path, "rooms", "save", "Living Room", "1.5", "2")
			require.NoError(t, err)
			assert.Contains(t, out, "Saved living room at [1.5, 2]")

			out, err = execute(t, "--rooms", path, "rooms", "list")
			require.NoError(t, err)
			assert.Contains(t, out, "living room")
			assert.Contains(t, out, "1.5")
		})
	}
}

func TestRooms_SaveRejectsBadCoordinates(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := execute(t, "--rooms", "rooms.json", "rooms", "save", "hall", "north", "2")
	assert.ErrorContains(t, err, `invalid x "north"`)
}

func TestRun_MissingWakeWordModelIsFatal(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := execute(t, "run")
	assert.ErrorIs(t, err, wakeword.ErrModelMissing)
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := execute(t, "--motion-driver", "tank", "run")
	assert.ErrorContains(t, err, "unknown motion driver")
}
