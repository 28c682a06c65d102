package ops

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/golang/glog"

	"github.com/hpungsan/harp/internal/config"
	"github.com/hpungsan/harp/internal/errors"
	"github.com/hpungsan/harp/internal/store"
)

// ImportMode controls collision behavior during import.
type ImportMode string

const (
	ImportModeError   ImportMode = "error"   // fail on any collision, write nothing
	ImportModeReplace ImportMode = "replace" // the file wins on collision
	ImportModeMerge   ImportMode = "merge"   // existing registers win on collision
)

// maxImportLine bounds a single JSONL line.
const maxImportLine = 16 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError represents an error that occurred during import.
type ImportError struct {
	Line     int    `json:"line"`
	Section  string `json:"section,omitempty"`
	Register string `json:"register,omitempty"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

type importRecord struct {
	line int
	ExportRecord
}

// Import reads a JSONL export into the store and saves once. In error mode
// any parse error or collision aborts the import before anything is written.
func Import(backend store.Backend, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	switch input.Mode {
	case ImportModeError, ImportModeReplace, ImportModeMerge:
	default:
		return nil, errors.NewInvalidRequest("mode must be one of: error, replace, merge")
	}
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	file, err := openNoFollow(input.Path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, parseErrors := parseExportFile(file)
	if input.Mode == ImportModeError && len(parseErrors) > 0 {
		return &ImportOutput{Errors: parseErrors}, nil
	}

	conn, err := open(backend)
	if err != nil {
		return nil, err
	}

	out := &ImportOutput{Errors: parseErrors, Skipped: len(parseErrors)}
	for _, rec := range records {
		if rec.Register == "" {
			conn.SectionMut(rec.Section)
			continue
		}

		existing, collides := conn.Entry(rec.Section, rec.Register)
		if collides && !existing.Equal(rec.Entry) {
			switch input.Mode {
			case ImportModeError:
				return &ImportOutput{Errors: []ImportError{{
					Line:     rec.line,
					Section:  rec.Section,
					Register: rec.Register,
					Code:     "REGISTER_COLLISION",
					Message:  fmt.Sprintf("register %q already set in section %q", rec.Register, rec.Section),
				}}}, nil
			case ImportModeMerge:
				out.Skipped++
				continue
			}
		}

		e, err := conn.EntryMut(rec.Section, rec.Register)
		if err != nil {
			return nil, err
		}
		*e = *rec.Entry
		out.Imported++
	}

	if err := conn.Save(); err != nil {
		return nil, err
	}
	glog.V(1).Infof("[harp]imported %d registers from %s (mode %s, skipped %d)\n", out.Imported, input.Path, input.Mode, out.Skipped)

	if out.Errors == nil {
		out.Errors = []ImportError{}
	}
	return out, nil
}

// parseExportFile decodes every line, collecting per-line errors.
func parseExportFile(file *os.File) ([]importRecord, []ImportError) {
	var records []importRecord
	var parseErrors []ImportError

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxImportLine)
	lineNum := 0
	sawHeader := false

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record ExportRecord
		if err := json.Unmarshal(line, &record); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}

		if record.HarpExport {
			if sawHeader {
				parseErrors = append(parseErrors, ImportError{Line: lineNum, Code: "INVALID_RECORD", Message: "duplicate header"})
			}
			sawHeader = true
			continue
		}

		switch {
		case record.Section == "":
			parseErrors = append(parseErrors, ImportError{Line: lineNum, Code: "INVALID_RECORD", Message: "missing section field"})
			continue
		case record.Register != "" && record.Entry == nil:
			parseErrors = append(parseErrors, ImportError{
				Line:     lineNum,
				Section:  record.Section,
				Register: record.Register,
				Code:     "INVALID_RECORD",
				Message:  "missing entry field",
			})
			continue
		case record.Entry != nil && record.Entry.Empty():
			parseErrors = append(parseErrors, ImportError{
				Line:     lineNum,
				Section:  record.Section,
				Register: record.Register,
				Code:     "INVALID_RECORD",
				Message:  "entry holds no value",
			})
			continue
		}

		records = append(records, importRecord{line: lineNum, ExportRecord: record})
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return records, parseErrors
}
