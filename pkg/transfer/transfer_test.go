package transfer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/flatr/pkg/config"
)

func writeFile(t *testing.T, dir, name, content string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
	return path
}

func newTask(src, dst string) Task {
	return Task{SourcePath: src, DestinationPath: dst, RelativePath: filepath.Base(dst)}
}

func TestTransfer_Copy(t *testing.T) {
	tests := []struct {
		name   string
		verify bool
	}{
		{name: "plain"},
		{name: "verified", verify: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := writeFile(t, dir, "src.bin", "payload bytes", 0o640)
			dst := filepath.Join(dir, "dst.bin")

			outcome := Transfer(context.Background(), newTask(src, dst), config.ActionCopy, tt.verify)
			require.True(t, outcome.Success, "detail: %s", outcome.Detail)

			// Source still exists after a copy.
			_, err := os.Stat(src)
			require.NoError(t, err)

			got, err := os.ReadFile(dst)
			require.NoError(t, err)
			assert.Equal(t, "payload bytes", string(got))

			// Mode is preserved from the source.
			info, err := os.Stat(dst)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

			srcSum, err := HashFile(src)
			require.NoError(t, err)
			dstSum, err := HashFile(dst)
			require.NoError(t, err)
			assert.Equal(t, srcSum, dstSum)
		})
	}
}

func TestTransfer_Copy_PreservesTimestamps(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "src.txt", "x", 0o644)

	old := time.Date(2020, 3, 14, 15, 9, 26, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, old, old))

	dst := filepath.Join(dir, "dst.txt")
	outcome := Transfer(context.Background(), newTask(src, dst), config.ActionCopy, false)
	require.True(t, outcome.Success, "detail: %s", outcome.Detail)

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(old), "got mtime %v", info.ModTime())
}

func TestTransfer_Move(t *testing.T) {
	tests := []struct {
		name   string
		verify bool
	}{
		{name: "plain"},
		{name: "verified", verify: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := writeFile(t, dir, "src.bin", "move me", 0o644)
			wantSum, err := HashFile(src)
			require.NoError(t, err)

			dst := filepath.Join(dir, "dst.bin")
			outcome := Transfer(context.Background(), newTask(src, dst), config.ActionMove, tt.verify)
			require.True(t, outcome.Success, "detail: %s", outcome.Detail)

			// Source no longer exists after a move.
			_, err = os.Stat(src)
			assert.True(t, os.IsNotExist(err))

			gotSum, err := HashFile(dst)
			require.NoError(t, err)
			assert.Equal(t, wantSum, gotSum)
		})
	}
}

func TestTransfer_Failures(t *testing.T) {
	dir := t.TempDir()
	existing := writeFile(t, dir, "exists.txt", "content", 0o644)

	tests := []struct {
		name   string
		task   Task
		action config.Action
		verify bool
		detail string
	}{
		{
			name:   "copy_missing_source",
			task:   newTask(filepath.Join(dir, "absent.txt"), filepath.Join(dir, "out.txt")),
			action: config.ActionCopy,
			detail: "copying",
		},
		{
			name:   "copy_verified_missing_source",
			task:   newTask(filepath.Join(dir, "absent.txt"), filepath.Join(dir, "out.txt")),
			action: config.ActionCopy,
			verify: true,
			detail: "copying",
		},
		{
			name:   "move_missing_source",
			task:   newTask(filepath.Join(dir, "absent.txt"), filepath.Join(dir, "out.txt")),
			action: config.ActionMove,
			detail: "moving",
		},
		{
			name:   "move_verified_missing_source",
			task:   newTask(filepath.Join(dir, "absent.txt"), filepath.Join(dir, "out.txt")),
			action: config.ActionMove,
			verify: true,
			detail: "hashing",
		},
		{
			name:   "copy_into_missing_directory",
			task:   newTask(existing, filepath.Join(dir, "no-such-dir", "out.txt")),
			action: config.ActionCopy,
			detail: "copying",
		},
		{
			name:   "unknown_action",
			task:   newTask(existing, filepath.Join(dir, "out.txt")),
			action: config.Action("archive"),
			detail: "unknown action",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := Transfer(context.Background(), tt.task, tt.action, tt.verify)
			assert.False(t, outcome.Success)
			assert.Contains(t, outcome.Detail, tt.detail)
		})
	}
}

func TestTransfer_Verify_DetectsMismatch(t *testing.T) {
	// A destination whose re-hash never matches the source simulates
	// corruption between write and verification.
	orig := rehashFile
	rehashFile = func(path string) (string, error) {
		return "0000000000000000000000000000000000000000000000000000000000000000", nil
	}
	t.Cleanup(func() { rehashFile = orig })

	tests := []struct {
		name   string
		action config.Action
		detail string
	}{
		{name: "copy", action: config.ActionCopy, detail: "hash mismatch for copied"},
		{name: "move", action: config.ActionMove, detail: "hash mismatch for moved"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := writeFile(t, dir, "src.bin", "payload bytes", 0o644)
			dst := filepath.Join(dir, "dst.bin")

			outcome := Transfer(context.Background(), newTask(src, dst), tt.action, true)
			assert.False(t, outcome.Success)
			assert.Contains(t, outcome.Detail, tt.detail)

			// The mismatched destination stays in place as evidence.
			_, err := os.Stat(dst)
			assert.NoError(t, err)
		})
	}
}

func TestTransfer_Verify_PassesWithRealHash(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "src.bin", "payload bytes", 0o644)
	dst := filepath.Join(dir, "dst.bin")

	outcome := Transfer(context.Background(), newTask(src, dst), config.ActionCopy, true)
	require.True(t, outcome.Success, "detail: %s", outcome.Detail)
}

func TestTransfer_Move_FallbackReportsRenameError(t *testing.T) {
	dir := t.TempDir()
	task := newTask(filepath.Join(dir, "absent.txt"), filepath.Join(dir, "out.txt"))

	outcome := Transfer(context.Background(), task, config.ActionMove, false)
	assert.False(t, outcome.Success)
	// Both the failed rename and the failed copy fallback are reported.
	assert.Contains(t, outcome.Detail, "moving")
	assert.Contains(t, outcome.Detail, "rename:")
}

func TestTransfer_Copy_OverwritesDestination(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "src.txt", "new content", 0o644)
	dst := writeFile(t, dir, "dst.txt", "old content", 0o644)

	outcome := Transfer(context.Background(), newTask(src, dst), config.ActionCopy, true)
	require.True(t, outcome.Success, "detail: %s", outcome.Detail)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new content", string(got))
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.txt", "hello", 0o644)

	sum, err := HashFile(path)
	require.NoError(t, err)
	// sha256("hello")
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", sum)

	_, err = HashFile(filepath.Join(dir, "absent"))
	require.Error(t, err)
}
