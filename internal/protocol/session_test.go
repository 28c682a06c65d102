package protocol

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/harp/internal/config"
	"github.com/hpungsan/harp/internal/editor"
	"github.com/hpungsan/harp/internal/errors"
	"github.com/hpungsan/harp/internal/relativity"
	"github.com/hpungsan/harp/internal/store"
)

type call struct {
	rec      Reciprocation
	section  string
	register string
}

type harness struct {
	t      *testing.T
	path   string
	conn   *store.Connection
	ui     *editor.Headless
	calls  []call
	result error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	path := filepath.Join(t.TempDir(), "harp.jsonc")
	conn, err := store.Open(store.NewJSONFile(path))
	require.NoError(t, err)

	ui := editor.NewHeadless(io.Discard)
	ui.Cwd = "/work"
	ui.Buf = &editor.Buffer{FilePath: "/work/a.rs", Lang: "rust"}
	return &harness{t: t, path: path, conn: conn, ui: ui}
}

func (h *harness) session(rec Reciprocation) *Session {
	p := Prompt{
		Name:          "file",
		Base:          "harp_files",
		Relativity:    relativity.Global,
		Reciprocation: rec,
		Format: func(e *store.Entry, _ relativity.Relativity, _ int) (string, bool) {
			return e.First()
		},
		Action: func(_ *store.Connection, rec Reciprocation, section, register string) error {
			h.calls = append(h.calls, call{rec, section, register})
			return h.result
		},
	}
	return NewSession(h.conn, p, DefaultHotkeys(), editor.Scope{Editor: h.ui}, h.ui)
}

// disk reopens the document to see what was saved.
func (h *harness) disk() *store.Connection {
	h.t.Helper()
	conn, err := store.Open(store.NewJSONFile(h.path))
	require.NoError(h.t, err)
	return conn
}

type keys []string

func (k *keys) NextKey(context.Context) (string, error) {
	if len(*k) == 0 {
		return "", io.EOF
	}
	key := (*k)[0]
	*k = (*k)[1:]
	return key, nil
}

func TestReciprocation(t *testing.T) {
	assert.Equal(t, Set, Get.Toggle())
	assert.Equal(t, Get, Set.Toggle())
	assert.Equal(t, Get, Delete.Toggle())
	assert.Equal(t, "del", Delete.String())

	r, err := ParseReciprocation("DELETE")
	require.NoError(t, err)
	assert.Equal(t, Delete, r)
	_, err = ParseReciprocation("peek")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestHotkeysFrom(t *testing.T) {
	h := HotkeysFrom(config.Hotkeys{Switch: "<space>"})
	assert.Equal(t, "<space>", h.Switch)
	assert.Equal(t, "<C-d>", h.DeleteAll)
	assert.Equal(t, "'", h.Global)
}

func TestSession_GetInvokesAction(t *testing.T) {
	h := newHarness(t)
	s := h.session(Get)

	require.False(t, s.Start())
	assert.Equal(t, "file get (global)", h.ui.Title)

	assert.True(t, s.HandleKey("a"))
	require.Len(t, h.calls, 1)
	assert.Equal(t, call{Get, "harp_files", "a"}, h.calls[0])
}

func TestSession_SwitchRelativityAndMode(t *testing.T) {
	h := newHarness(t)
	s := h.session(Get)
	s.Start()

	assert.False(t, s.HandleKey(","))
	assert.Equal(t, "file get (buffer)", h.ui.Title)
	assert.False(t, s.HandleKey("<tab>"))
	assert.Equal(t, "file set (buffer)", h.ui.Title)

	assert.True(t, s.HandleKey("a"))
	assert.Equal(t, call{Set, "harp_files_/work/a.rs", "a"}, h.calls[0])
}

func TestSession_RelativitySwitchIsRemembered(t *testing.T) {
	h := newHarness(t)
	s := h.session(Get)
	s.Start()
	s.HandleKey(".")

	again := NewSession(h.disk(), Prompt{Name: "file", Base: "harp_files"}, DefaultHotkeys(), editor.Scope{Editor: h.ui}, h.ui)
	assert.Equal(t, relativity.Directory, again.Relativity())
}

func TestSession_EscapeSafety(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.conn.Replace("harp_files", "a", "/x"))
	require.NoError(t, h.conn.Save())

	for _, rec := range []Reciprocation{Get, Set, Delete} {
		s := h.session(rec)
		s.Start()
		assert.True(t, s.HandleKey("<esc>"))
		assert.Empty(t, h.calls)
		assert.Empty(t, h.ui.Info, "popup cleared")
	}

	_, ok := h.disk().Entry("harp_files", "a")
	assert.True(t, ok)
}

func TestSession_EscapeAfterDeleteKeepsDelete(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.conn.Replace("harp_files", "a", "/x"))
	require.NoError(t, h.conn.Replace("harp_files", "b", "/y"))
	require.NoError(t, h.conn.Save())

	s := h.session(Get)
	src := keys{"<backspace>", "a", "<esc>"}
	require.NoError(t, s.Run(context.Background(), &src))

	disk := h.disk()
	_, ok := disk.Entry("harp_files", "a")
	assert.False(t, ok, "delete was saved before escape")
	_, ok = disk.Entry("harp_files", "b")
	assert.True(t, ok)
	assert.Empty(t, h.calls)
}

func TestSession_DeleteReturnsToGet(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.conn.Replace("harp_files", "a", "/x"))

	s := h.session(Set)
	s.Start()
	s.HandleKey("<backspace>")
	assert.Equal(t, Delete, s.Reciprocation())
	assert.Equal(t, "file del (global)", h.ui.Title)

	assert.False(t, s.HandleKey("a"))
	assert.Equal(t, Get, s.Reciprocation())
	assert.Empty(t, h.ui.Info, "deleted register gone from preview")

	// Deleting an unset register is harmless.
	s.HandleKey("<backspace>")
	assert.False(t, s.HandleKey("zz"))
}

func TestSession_DeleteAllScoping(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.conn.Replace("harp_files", "g", "/global"))
	require.NoError(t, h.conn.Replace("harp_files_/work/a.rs", "x", "/x"))
	require.NoError(t, h.conn.Replace("harp_files_/work/a.rs", "y", "/y"))
	require.NoError(t, h.conn.Save())

	s := h.session(Get)
	src := keys{",", "<C-d>", "<esc>"}
	require.NoError(t, s.Run(context.Background(), &src))

	disk := h.disk()
	assert.Equal(t, 0, disk.Section("harp_files_/work/a.rs").Len())
	_, ok := disk.Entry("harp_files", "g")
	assert.True(t, ok, "sibling section untouched")
}

func TestSession_DeleteAllSwitchesToSet(t *testing.T) {
	h := newHarness(t)
	s := h.session(Get)
	s.Start()

	s.HandleKey("<C-d>")
	assert.Equal(t, Set, s.Reciprocation())
	assert.Equal(t, "file set (global)", h.ui.Title)
}

func TestSession_ActionErrorEndsSession(t *testing.T) {
	h := newHarness(t)
	h.result = errors.NewRegisterUnset("harp_files", "b")

	s := h.session(Get)
	src := keys{"b", "c"}
	err := s.Run(context.Background(), &src)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrRegisterUnset))
	assert.Equal(t, "harp `b` unset", h.ui.Err)
	assert.Len(t, h.calls, 1, "no retry")
	assert.Equal(t, keys{"c"}, src)
}

func TestSession_UnpathedBufferEndsSession(t *testing.T) {
	h := newHarness(t)
	h.ui.Buf = &editor.Buffer{}

	s := h.session(Get)
	s.Start()
	assert.True(t, s.HandleKey(","))
	assert.True(t, errors.Is(s.Err(), errors.ErrUnpathedBuffer))
	assert.Equal(t, "harp: current buffer doesn't have a path", h.ui.Err)
	assert.True(t, s.HandleKey("a"), "ended sessions ignore keys")
	assert.Empty(t, h.calls)
}

func TestSession_UnusableRememberedRelativityFallsBack(t *testing.T) {
	h := newHarness(t)
	h.ui.Buf = &editor.Buffer{}

	first := h.session(Get)
	first.Start()
	first.HandleKey(",")
	require.True(t, first.Done())

	s := NewSession(h.disk(), Prompt{
		Name:       "file",
		Base:       "harp_files",
		Relativity: relativity.Global,
		Format: func(e *store.Entry, _ relativity.Relativity, _ int) (string, bool) {
			return e.First()
		},
		Action: func(_ *store.Connection, rec Reciprocation, section, register string) error {
			h.calls = append(h.calls, call{rec, section, register})
			return nil
		},
	}, DefaultHotkeys(), editor.Scope{Editor: h.ui}, h.ui)

	require.False(t, s.Start(), "session should stay open")
	assert.Equal(t, relativity.Global, s.Relativity())
	assert.NoError(t, s.Err())

	assert.True(t, s.HandleKey("a"))
	assert.Equal(t, []call{{Get, "harp_files", "a"}}, h.calls)

	// The stored default is untouched: a pathed buffer still gets buffer.
	h.ui.Buf = &editor.Buffer{FilePath: "/work/a.rs"}
	again := NewSession(h.disk(), Prompt{Name: "file", Base: "harp_files"}, DefaultHotkeys(), editor.Scope{Editor: h.ui}, h.ui)
	assert.Equal(t, relativity.Buffer, again.Relativity())
}

func TestSession_SaveFailureContinues(t *testing.T) {
	h := newHarness(t)
	// The backend's parent directory is a regular file, so saves fail.
	broken, err := store.Open(store.NewJSONFile(filepath.Join(h.path+".missing", "sub", "harp.jsonc")))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(h.path+".missing", nil, 0600))
	require.NoError(t, broken.Replace("harp_files", "a", "/x"))
	h.conn = broken

	s := h.session(Get)
	s.Start()
	s.HandleKey("<backspace>")
	assert.False(t, s.HandleKey("a"))
	assert.NotEmpty(t, h.ui.Err)
	assert.False(t, s.Done())
}

func TestSession_RunStopsOnSourceError(t *testing.T) {
	h := newHarness(t)
	s := h.session(Get)
	src := keys{}
	assert.ErrorIs(t, s.Run(context.Background(), &src), io.EOF)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s = h.session(Get)
	src = keys{"a"}
	assert.ErrorIs(t, s.Run(ctx, &src), context.Canceled)
	assert.Empty(t, h.calls)
}

func TestPreview(t *testing.T) {
	sec := store.Section{
		"b": store.NewListEntry("bee"),
		"a": store.NewListEntry("alpha"),
		"h": store.NewListEntry(),
	}
	var seen []int
	width := func(e *store.Entry) int { return e.Len() * 10 }
	format := func(e *store.Entry, _ relativity.Relativity, w int) (string, bool) {
		seen = append(seen, w)
		return e.First()
	}

	rows := Preview(sec, relativity.Global, 8, width, format)
	require.Len(t, rows, 2)
	assert.Equal(t, editor.InfoRow{Key: "a", Value: "alpha   "}, rows[0])
	assert.Equal(t, editor.InfoRow{Key: "b", Value: "bee     "}, rows[1])
	for _, w := range seen {
		assert.Equal(t, 10, w, "single global max")
	}
}
