package local_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/speech-scraper/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		tempDir := t.TempDir()
		cfg := local.Config{BaseDir: tempDir}
		store, err := local.New(cfg)
		require.NoError(t, err)
		assert.NotNil(t, store)
	})
	t.Run("MissingBaseDir", func(t *testing.T) {
		cfg := local.Config{}
		_, err := local.New(cfg)
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		tempFile, err := os.CreateTemp("", "testfile")
		require.NoError(t, err)
		t.Cleanup(func() {
			removeErr := os.Remove(tempFile.Name())
			if removeErr != nil && !os.IsNotExist(removeErr) {
				t.Fatalf("failed to remove temp file: %v", removeErr)
			}
		})

		cfg := local.Config{BaseDir: tempFile.Name()}
		_, err = local.New(cfg)
		assert.Error(t, err)
	})

	t.Run("BaseDirNotWritable", func(t *testing.T) {
		tempDir := t.TempDir()
		// Change permissions to read-only
		// #nosec G302 -- directory permissions adjusted intentionally for test coverage.
		err := os.Chmod(tempDir, 0o500)
		require.NoError(t, err)

		cfg := local.Config{BaseDir: tempDir}
		_, err = local.New(cfg)
		assert.Error(t, err)

		// Change back to writable so cleanup can happen
		// #nosec G302 -- reverting permissions to allow cleanup in the test environment.
		err = os.Chmod(tempDir, 0o700)
		require.NoError(t, err)
	})
}

func TestPutObject(t *testing.T) {
	tempDir := t.TempDir()
	cfg := local.Config{BaseDir: tempDir}
	store, err := local.New(cfg)
	require.NoError(t, err)

	t.Run("ValidPut", func(t *testing.T) {
		path := "test/object.txt"
		data := []byte("hello world")
		uri, err := store.PutObject(context.Background(), path, "text/plain", bytes.NewReader(data))
		require.NoError(t, err)

		expectedURI := "file://" + filepath.Join(tempDir, path)
		assert.Equal(t, expectedURI, uri)

		// Verify the file was written correctly.
		// #nosec G304 -- test reads from the controlled temp directory.
		readData, err := os.ReadFile(filepath.Join(tempDir, path))
		require.NoError(t, err)
		assert.Equal(t, data, readData)
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := store.PutObject(context.Background(), "", "text/plain", bytes.NewReader([]byte("data")))
		assert.Error(t, err)
	})

	t.Run("NestedPath", func(t *testing.T) {
		path := "a/b/c/object.txt"
		data := []byte("nested hello")
		uri, err := store.PutObject(context.Background(), path, "text/plain", bytes.NewReader(data))
		require.NoError(t, err)

		expectedURI := "file://" + filepath.Join(tempDir, path)
		assert.Equal(t, expectedURI, uri)

		// Verify the file was written correctly.
		// #nosec G304 -- test reads from the controlled temp directory.
		readData, err := os.ReadFile(filepath.Join(tempDir, path))
		require.NoError(t, err)
		assert.Equal(t, data, readData)
	})
}

func TestPutObjectReplacesAtomically(t *testing.T) {
	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)
	assert.Equal(t, tempDir, store.Dir())

	_, err = store.PutObject(context.Background(), "metadata.csv", "text/csv", bytes.NewReader([]byte("old")))
	require.NoError(t, err)
	_, err = store.PutObject(context.Background(), "metadata.csv", "text/csv", bytes.NewReader([]byte("new")))
	require.NoError(t, err)

	// #nosec G304 -- test reads from the controlled temp directory.
	data, err := os.ReadFile(filepath.Join(tempDir, "metadata.csv"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	leftovers, err := filepath.Glob(filepath.Join(tempDir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestPutObjectRejectsTraversal(t *testing.T) {
	store, err := local.New(local.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	_, err = store.PutObject(context.Background(), "../escape.txt", "", bytes.NewReader([]byte("x")))
	assert.Error(t, err)
}

func TestRunDir(t *testing.T) {
	now := time.Date(2024, 11, 8, 9, 5, 3, 0, time.UTC)
	assert.Equal(t, filepath.Join("out", "SpeechScraperResult"), local.RunDir("out", true, now))
	assert.Equal(t, filepath.Join("out", "SpeechScraperResult_2024-11-08_09-05-03"), local.RunDir("out", false, now))
}

func TestPrepareRunDir(t *testing.T) {
	root := t.TempDir()
	now := time.Date(2024, 11, 8, 9, 5, 3, 0, time.UTC)

	fresh, err := local.PrepareRunDir(root, false, now)
	require.NoError(t, err)
	info, err := os.Stat(fresh)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = local.PrepareRunDir(root, false, now)
	require.Error(t, err, "timestamped directories are never reused")

	reused, err := local.PrepareRunDir(root, true, now)
	require.NoError(t, err)
	again, err := local.PrepareRunDir(root, true, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, reused, again)
}
