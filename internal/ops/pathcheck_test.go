package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/harp/internal/config"
	"github.com/hpungsan/harp/internal/errors"
)

func TestValidatePath_Rejects(t *testing.T) {
	unsafe := config.DefaultConfig()
	unsafe.AllowUnsafePaths = true

	tests := []struct {
		name string
		path string
		cfg  *config.Config
	}{
		{"empty", "", unsafe},
		{"parent traversal", "../backup.jsonl", unsafe},
		{"mid-path traversal", "/tmp/../etc/backup.jsonl", unsafe},
		{"no extension", "/tmp/backup", unsafe},
		{"wrong extension", "/tmp/backup.json", unsafe},
		{"outside allowed dirs", "/tmp/backup.jsonl", config.DefaultConfig()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.path, PathCheckWrite, tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
		})
	}
}

func TestValidatePath_AllowedPaths(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{dir}

	file := filepath.Join(dir, "in.jsonl")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0600))
	assert.NoError(t, ValidatePath(file, PathCheckRead, cfg))
	assert.NoError(t, ValidatePath(filepath.Join(dir, "out.jsonl"), PathCheckWrite, cfg))

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(sub, 0755))
	assert.Error(t, ValidatePath(filepath.Join(sub, "out.jsonl"), PathCheckWrite, cfg), "nested path")

	other := filepath.Join(t.TempDir(), "other.jsonl")
	assert.Error(t, ValidatePath(other, PathCheckWrite, cfg))
}

func TestValidatePath_FileNotFoundOnRead(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true

	err := ValidatePath(filepath.Join(t.TempDir(), "missing.jsonl"), PathCheckRead, cfg)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestValidatePath_SymlinkRejectedEvenWhenUnsafe(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true

	target := filepath.Join(dir, "target.jsonl")
	require.NoError(t, os.WriteFile(target, []byte("{}"), 0600))
	link := filepath.Join(dir, "link.jsonl")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	assert.Error(t, ValidatePath(link, PathCheckRead, cfg))
	assert.Error(t, ValidatePath(link, PathCheckWrite, cfg))
}

func TestContainsTraversal(t *testing.T) {
	assert.False(t, containsTraversal("/home/user/file.jsonl"))
	assert.False(t, containsTraversal("file..name.jsonl"))
	assert.True(t, containsTraversal("../file.jsonl"))
	assert.True(t, containsTraversal("/tmp/a/b/../c.jsonl"))
}

func TestSanitizeForFilename(t *testing.T) {
	tests := map[string]string{
		"harp_files":          "harp_files",
		"harp_files_/a/b.rs":  "harp_files_-a-b.rs",
		"harp_marks!rust":     "harp_marks-rust",
		"../../etc/passwd":    "etc-passwd",
		"foo\x00bar":          "foobar",
		"///":                 "unnamed",
	}
	for input, want := range tests {
		assert.Equal(t, want, SanitizeForFilename(input), input)
	}
}
