package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.Save("run-1/timetable.csv", []byte("day,hour\n"))
	require.NoError(t, err)
	assert.Equal(t, "run-1/timetable.csv", name)

	f, err := store.Open(name)
	require.NoError(t, err)
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "day,hour\n", string(body))

	require.NoError(t, store.Delete(name))
	require.NoError(t, store.Delete(name))
	_, err = store.Open(name)
	assert.Error(t, err)
}

func TestLocalStorageStaysInsideBaseDir(t *testing.T) {
	base := t.TempDir()
	store, err := NewLocalStorage(base)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(base, "etc/passwd"), store.Path("../../etc/passwd"))
	assert.Equal(t, filepath.Join(base, "tmp/x.pdf"), store.Path("/tmp/x.pdf"))
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("old/a.csv", []byte("a"))
	require.NoError(t, err)
	_, err = store.Save("new/b.csv", []byte("b"))
	require.NoError(t, err)
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path("old/a.csv"), past, past))

	deleted, err := store.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("old", "a.csv")}, deleted)
	_, err = os.Stat(store.Path("new/b.csv"))
	assert.NoError(t, err)
	_, err = os.Stat(store.Path("old"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStorageSaveLeavesNoTempFiles(t *testing.T) {
	base := t.TempDir()
	store, err := NewLocalStorage(base)
	require.NoError(t, err)

	_, err = store.Save("run-2/timetable.xlsx", []byte("x"))
	require.NoError(t, err)
	_, err = store.Save("run-2/timetable.xlsx", []byte("xy"))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(base, "run-2"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "timetable.xlsx", entries[0].Name())
}
