package store

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/oklog/ulid/v2"
	"github.com/tailscale/hujson"

	"github.com/hpungsan/harp/internal/errors"
)

// JSONFile keeps the store in one JSON document. Comments and trailing
// commas are accepted on load; saves always write plain indented JSON.
type JSONFile struct {
	Path string
}

// NewJSONFile returns a JSONFile backend for path.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{Path: path}
}

// Location implements Backend.
func (j *JSONFile) Location() string {
	return j.Path
}

// Load implements Backend.
func (j *JSONFile) Load() (Store, error) {
	data, err := os.ReadFile(j.Path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			glog.V(1).Infof("[harp]%s missing, starting empty\n", j.Path)
			return Store{}, nil
		}
		return nil, errors.NewIO("read "+j.Path, err)
	}
	return decodeDocument(j.Path, data)
}

func decodeDocument(location string, data []byte) (Store, error) {
	data, err := standardize(data)
	if err != nil {
		return nil, errors.NewFormat(location, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Store{}, nil
	}
	var st Store
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, errors.NewFormat(location, err)
	}
	return st.normalize(), nil
}

// standardize turns a JSONC document into plain JSON. A document holding
// only whitespace and comments standardizes to nothing.
func standardize(data []byte) ([]byte, error) {
	v, err := hujson.Parse(data)
	if err != nil {
		if _, perr := hujson.Parse(append([]byte("null"), data...)); perr == nil {
			return nil, nil
		}
		return nil, err
	}
	v.Standardize()
	return v.Pack(), nil
}

// Save implements Backend. The document is written to a temp file next to
// the target and renamed over it, so a failed save leaves the old content.
func (j *JSONFile) Save(st Store) error {
	target := j.Path
	// Keep a symlinked document (dotfile managers) pointing where it was.
	if resolved, err := filepath.EvalSymlinks(target); err == nil {
		target = resolved
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.NewIO("create "+dir, err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return errors.NewInternal(fmt.Errorf("encode store: %w", err))
	}
	data = append(data, '\n')

	tempPath := target + "." + ulid.Make().String() + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewIO("create "+tempPath, err)
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

	if _, err := file.Write(data); err != nil {
		return errors.NewIO("write "+tempPath, err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewIO("sync "+tempPath, err)
	}
	// Close before rename (required on Windows; fine elsewhere).
	if err := file.Close(); err != nil {
		return errors.NewIO("close "+tempPath, err)
	}
	file = nil

	if err := os.Rename(tempPath, target); err != nil {
		return errors.NewIO("replace "+target, err)
	}

	success = true
	return nil
}
