package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/harp/internal/config"
	"github.com/hpungsan/harp/internal/errors"
	"github.com/hpungsan/harp/internal/store"
)

// ExportSchemaVersion is written in every export header.
const ExportSchemaVersion = "1.0"

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path               string // optional, default: ~/.harp/exports/<prefix>-<timestamp>.jsonl
	Prefix             string // optional section name prefix filter
	IncludeBookkeeping bool
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	SnapshotID string `json:"snapshot_id"`
	Sections   int    `json:"sections"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// ExportRecord is one line of a JSONL export. The first line is a header
// (HarpExport set); a line with a Section and no Register keeps an empty
// section; every other line carries one register.
type ExportRecord struct {
	HarpExport    bool   `json:"_harp_export,omitempty"`
	SchemaVersion string `json:"schema_version,omitempty"`
	SnapshotID    string `json:"snapshot_id,omitempty"`
	ExportedAt    int64  `json:"exported_at,omitempty"`

	Section  string       `json:"section,omitempty"`
	Register string       `json:"register,omitempty"`
	Entry    *store.Entry `json:"entry,omitempty"`
}

// Export writes a JSONL snapshot of the store. The file is written to a
// temp name and renamed into place, so an existing export survives failures.
func Export(ctx context.Context, backend store.Backend, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	now := time.Now()
	snapshotID := ulid.Make().String()

	exportPath := input.Path
	if exportPath == "" {
		dir, err := DefaultExportsDir()
		if err != nil {
			return nil, err
		}
		name := "all"
		if input.Prefix != "" {
			name = SanitizeForFilename(input.Prefix)
		}
		exportPath = filepath.Join(dir, fmt.Sprintf("%s-%s.jsonl", name, now.Format("2006-01-02T150405")))
	}
	if err := ValidatePath(exportPath, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	conn, err := open(backend)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewIO("create export directory", err)
	}

	tempPath := exportPath + "." + snapshotID + ".tmp"
	file, err := openNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}
	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	header := ExportRecord{
		HarpExport:    true,
		SchemaVersion: ExportSchemaVersion,
		SnapshotID:    snapshotID,
		ExportedAt:    now.Unix(),
	}
	if err := enc.Encode(header); err != nil {
		return nil, errors.NewIO("write export", err)
	}

	sections, count := 0, 0
	for _, name := range conn.Sections() {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewInternal(fmt.Errorf("export cancelled: %w", err))
		}
		if !strings.HasPrefix(name, input.Prefix) {
			continue
		}
		if !input.IncludeBookkeeping && IsBookkeeping(name) {
			continue
		}
		sections++

		sec := conn.Section(name)
		if sec.Len() == 0 {
			if err := enc.Encode(ExportRecord{Section: name}); err != nil {
				return nil, errors.NewIO("write export", err)
			}
			continue
		}
		for _, reg := range sec.Keys() {
			if err := enc.Encode(ExportRecord{Section: name, Register: reg, Entry: sec[reg]}); err != nil {
				return nil, errors.NewIO("write export", err)
			}
			count++
		}
	}

	if err := w.Flush(); err != nil {
		return nil, errors.NewIO("write export", err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewIO("sync export", err)
	}
	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return nil, errors.NewIO("close export", err)
	}
	file = nil

	if info, err := os.Lstat(exportPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInvalidRequest("export path is a symlink")
	}
	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return nil, errors.NewIO("finalize export", err)
	}
	success = true
	glog.V(1).Infof("[harp]exported %d registers in %d sections to %s\n", count, sections, exportPath)

	return &ExportOutput{
		Path:       exportPath,
		SnapshotID: snapshotID,
		Sections:   sections,
		Count:      count,
		ExportedAt: now.Unix(),
	}, nil
}
