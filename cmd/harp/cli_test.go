package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/harp/internal/actions"
	"github.com/hpungsan/harp/internal/config"
	"github.com/hpungsan/harp/internal/editor"
	"github.com/hpungsan/harp/internal/ops"
	"github.com/hpungsan/harp/internal/protocol"
	"github.com/hpungsan/harp/internal/store"
	"github.com/hpungsan/harp/internal/terminal"
)

// setupTestStore creates a JSON store in a temporary directory.
func setupTestStore(t *testing.T) store.Backend {
	t.Helper()
	return store.NewJSONFile(filepath.Join(t.TempDir(), "harp.jsonc"))
}

// testConfig returns a default config whose import/export may use dir.
func testConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{dir}
	return cfg
}

// runCLI runs args against a fresh app and returns what it printed to stdout.
func runCLI(t *testing.T, backend store.Backend, cfg *config.Config, stdin string, args ...string) (string, error) {
	t.Helper()
	app := newCLIApp(backend, cfg, "/work")

	// Capture stdout
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	if stdin != "" {
		oldStdin := os.Stdin
		stdinR, stdinW, _ := os.Pipe()
		os.Stdin = stdinR
		go func() {
			_, _ = stdinW.WriteString(stdin)
			stdinW.Close()
		}()
		defer func() { os.Stdin = oldStdin }()
	}

	err := app.Run(append([]string{"harp"}, args...))

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	return buf.String(), err
}

func TestCLISetGet(t *testing.T) {
	backend := setupTestStore(t)

	out, err := runCLI(t, backend, nil, "", "set", "-r", "global", "harp_commands", "b", "make build", "make test")
	if err != nil {
		t.Fatalf("set failed: %v", err)
	}
	var set ops.SetOutput
	if err := json.Unmarshal([]byte(out), &set); err != nil {
		t.Fatalf("failed to parse set output: %v", err)
	}
	if set.Section != "harp_commands" || set.Replaced {
		t.Errorf("unexpected set output: %+v", set)
	}

	out, err = runCLI(t, backend, nil, "", "get", "-r", "global", "harp_commands", "b")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	var get ops.GetOutput
	if err := json.Unmarshal([]byte(out), &get); err != nil {
		t.Fatalf("failed to parse get output: %v", err)
	}
	if got := strings.Join(get.Entry.Values, "|"); got != "make build|make test" {
		t.Errorf("values = %q", got)
	}
}

func TestCLISetRecordBufferRelative(t *testing.T) {
	backend := setupTestStore(t)

	_, err := runCLI(t, backend, nil, "",
		"set", "-r", "buffer", "--buffer", "src/main.go",
		"--path", "/work/src/main.go", "--line", "10", "--column", "3", "--extra", "func main() {",
		"harp_marks", "m")
	if err != nil {
		t.Fatalf("set failed: %v", err)
	}

	out, err := runCLI(t, backend, nil, "", "get", "--exact", "harp_marks_/work/src/main.go", "m")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	var get ops.GetOutput
	if err := json.Unmarshal([]byte(out), &get); err != nil {
		t.Fatalf("failed to parse get output: %v", err)
	}
	r := get.Entry.Record
	if r == nil || r.Line == nil || r.Column == nil {
		t.Fatalf("expected record with position, got %+v", get.Entry)
	}
	if *r.Line != 9 || *r.Column != 2 {
		t.Errorf("position = %d:%d, want 9:2 (stored 0-based)", *r.Line, *r.Column)
	}
}

func TestCLISetFromStdin(t *testing.T) {
	backend := setupTestStore(t)

	_, err := runCLI(t, backend, nil, "line one\nline two\n", "set", "-e", "harp_searches", "s")
	if err != nil {
		t.Fatalf("set failed: %v", err)
	}

	conn, err := store.Open(backend)
	if err != nil {
		t.Fatal(err)
	}
	e, ok := conn.Entry("harp_searches", "s")
	if !ok {
		t.Fatal("register not written")
	}
	if got := e.Values(); len(got) != 1 || got[0] != "line one\nline two" {
		t.Errorf("values = %q", got)
	}
}

func TestCLIErrors(t *testing.T) {
	backend := setupTestStore(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"get unset", []string{"get", "-e", "harp_files", "zz"}, "[REGISTER_UNSET]"},
		{"get missing register", []string{"get", "harp_files"}, "[INVALID_REQUEST]"},
		{"set values and record", []string{"set", "--path", "/x", "harp_files", "a", "v"}, "mutually exclusive"},
		{"set bad line", []string{"set", "--line", "0", "harp_marks", "a"}, "--line must be at least 1"},
		{"bad relativity", []string{"get", "-r", "sideways", "harp_files", "a"}, "[INVALID_REQUEST]"},
		{"buffer without path", []string{"get", "-r", "buffer", "harp_files", "a"}, "[UNPATHED_BUFFER]"},
		{"clear missing section", []string{"clear"}, "section argument is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, backend, nil, "", tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestCLIDelClearList(t *testing.T) {
	backend := setupTestStore(t)
	for _, reg := range []string{"a", "b", "c"} {
		if _, err := runCLI(t, backend, nil, "", "set", "--cwd", "/proj", "-r", "directory", "harp_cwds", reg, "/proj/"+reg); err != nil {
			t.Fatalf("set %s: %v", reg, err)
		}
	}

	out, err := runCLI(t, backend, nil, "", "del", "--cwd", "/proj", "-r", "directory", "harp_cwds", "b")
	if err != nil {
		t.Fatalf("del failed: %v", err)
	}
	var del ops.DeleteOutput
	if err := json.Unmarshal([]byte(out), &del); err != nil {
		t.Fatalf("failed to parse del output: %v", err)
	}
	if !del.Deleted || del.Section != "harp_cwds_/proj" {
		t.Errorf("unexpected del output: %+v", del)
	}

	out, err = runCLI(t, backend, nil, "", "list", "-e", "--limit", "1", "harp_cwds_/proj")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	var list ops.ListOutput
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("failed to parse list output: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].Register != "a" || !list.Pagination.HasMore || list.Pagination.Total != 2 {
		t.Errorf("unexpected list output: %+v", list)
	}

	out, err = runCLI(t, backend, nil, "", "clear", "-e", "harp_cwds_/proj")
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	var clr ops.ClearOutput
	if err := json.Unmarshal([]byte(out), &clr); err != nil {
		t.Fatalf("failed to parse clear output: %v", err)
	}
	if clr.Cleared != 2 {
		t.Errorf("cleared = %d, want 2", clr.Cleared)
	}
}

func TestCLISections(t *testing.T) {
	backend := setupTestStore(t)
	if _, err := runCLI(t, backend, nil, "", "set", "-e", "harp_files", "a", "/x"); err != nil {
		t.Fatal(err)
	}
	if _, err := runCLI(t, backend, nil, "", "get", "harp_files", "."); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, backend, nil, "", "sections", "harp_files")
	if err != nil {
		t.Fatalf("sections failed: %v", err)
	}
	var sections ops.SectionsOutput
	if err := json.Unmarshal([]byte(out), &sections); err != nil {
		t.Fatalf("failed to parse sections output: %v", err)
	}
	if sections.Total != 1 {
		t.Errorf("total = %d, want 1 (%+v)", sections.Total, sections.Items)
	}

	out, err = runCLI(t, backend, nil, "", "sections", "--all", "harp_files")
	if err != nil {
		t.Fatalf("sections --all failed: %v", err)
	}
	if err := json.Unmarshal([]byte(out), &sections); err != nil {
		t.Fatalf("failed to parse sections output: %v", err)
	}
	if sections.Total != 2 {
		t.Errorf("total with bookkeeping = %d, want 2 (%+v)", sections.Total, sections.Items)
	}
}

func TestCLIExportImport(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	path := filepath.Join(dir, "snapshot.jsonl")

	src := setupTestStore(t)
	if _, err := runCLI(t, src, cfg, "", "set", "-e", "harp_files", "a", "/x"); err != nil {
		t.Fatal(err)
	}
	out, err := runCLI(t, src, cfg, "", "export", "--path", path)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	var exp ops.ExportOutput
	if err := json.Unmarshal([]byte(out), &exp); err != nil {
		t.Fatalf("failed to parse export output: %v", err)
	}
	if exp.Count != 1 {
		t.Errorf("exported %d registers, want 1", exp.Count)
	}

	dst := setupTestStore(t)
	out, err = runCLI(t, dst, cfg, "", "import", "--path", path, "--mode", "merge")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	var imp ops.ImportOutput
	if err := json.Unmarshal([]byte(out), &imp); err != nil {
		t.Fatalf("failed to parse import output: %v", err)
	}
	if imp.Imported != 1 {
		t.Errorf("imported = %d, want 1", imp.Imported)
	}

	if _, err := runCLI(t, dst, cfg, "", "import", "--path", path, "--mode", "rename"); err == nil {
		t.Error("expected unknown mode to fail")
	}
}

// pickFixture returns a file action definition on a fresh store.
func pickFixture(t *testing.T) (store.Backend, *config.Config, actions.Definition) {
	t.Helper()
	cfg := config.DefaultConfig()
	catalog, err := actions.NewCatalog(cfg)
	if err != nil {
		t.Fatal(err)
	}
	def, err := catalog.Lookup(actions.File)
	if err != nil {
		t.Fatal(err)
	}
	return setupTestStore(t), cfg, def
}

func TestRunPick_GetOpensFile(t *testing.T) {
	backend, cfg, def := pickFixture(t)
	conn, err := store.Open(backend)
	if err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(t.TempDir(), "notes.md")
	if err := conn.SetRecord("harp_files", "n", store.Record{Path: store.Str(target)}); err != nil {
		t.Fatal(err)
	}
	if err := conn.Save(); err != nil {
		t.Fatal(err)
	}

	var screen bytes.Buffer
	ed := editor.NewHeadless(&screen)
	out, err := runPick(context.Background(), backend, cfg, def, protocol.Get, ed, terminal.NewKeys(strings.NewReader("n")))
	if err != nil {
		t.Fatalf("runPick: %v", err)
	}
	if len(out.Opened) != 1 || out.Opened[0] != target {
		t.Errorf("opened = %v, want [%s]", out.Opened, target)
	}
	if out.Section != "harp_files" || out.Relativity != "global" {
		t.Errorf("unexpected session state: %+v", out)
	}
	if !strings.Contains(screen.String(), "notes.md") {
		t.Error("expected preview on screen")
	}
}

func TestRunPick_SetFromBuffer(t *testing.T) {
	backend, cfg, def := pickFixture(t)

	ed := editor.NewHeadless(nil)
	ed.Buf = &editor.Buffer{FilePath: "/work/main.go", Lang: "go"}
	out, err := runPick(context.Background(), backend, cfg, def, protocol.Set, ed, terminal.NewKeys(strings.NewReader("x")))
	if err != nil {
		t.Fatalf("runPick: %v", err)
	}
	if out.Reciprocation != "set" {
		t.Errorf("reciprocation = %q", out.Reciprocation)
	}

	conn, err := store.Open(backend)
	if err != nil {
		t.Fatal(err)
	}
	e, ok := conn.Entry("harp_files", "x")
	if !ok {
		t.Fatal("register x not written")
	}
	if r, _ := e.Record(); r.Path == nil || *r.Path != "/work/main.go" {
		t.Errorf("record = %+v", r)
	}
}

func TestRunPick_EndOfInputCancels(t *testing.T) {
	backend, cfg, def := pickFixture(t)

	ed := editor.NewHeadless(nil)
	out, err := runPick(context.Background(), backend, cfg, def, protocol.Get, ed, terminal.NewKeys(strings.NewReader("")))
	if err != nil {
		t.Fatalf("end of input should cancel quietly: %v", err)
	}
	if len(out.Opened) != 0 {
		t.Errorf("opened = %v", out.Opened)
	}
}

func TestCRLF(t *testing.T) {
	var buf bytes.Buffer
	w := crlf{&buf}
	n, err := w.Write([]byte("a\nb\r\nc"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 6 {
		t.Errorf("n = %d, want 6", n)
	}
	if buf.String() != "a\r\nb\r\nc" {
		t.Errorf("got %q", buf.String())
	}
}
