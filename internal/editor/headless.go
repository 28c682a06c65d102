package editor

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fatih/color"
)

var (
	titleColor  = color.New(color.Bold)
	keyColor    = color.New(color.FgCyan)
	statusColor = color.New(color.FgGreen)
	errorColor  = color.New(color.FgRed)
)

// Buffer is an in-memory Document.
type Buffer struct {
	FilePath string
	Lang     string
	Lines    []string
	Row      int
	Col      int
}

// LoadBuffer reads path into a Buffer. A missing file yields an empty
// buffer that still carries the path, the way editors open new files.
func LoadBuffer(path string) (*Buffer, error) {
	b := &Buffer{FilePath: path, Lang: LanguageFor(path)}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return b, nil
	}
	if err != nil {
		return nil, err
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		b.Lines = append(b.Lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Buffer) Path() (string, bool) { return b.FilePath, b.FilePath != "" }

func (b *Buffer) Language() (string, bool) { return b.Lang, b.Lang != "" }

func (b *Buffer) Cursor() (int, int) { return b.Row, b.Col }

func (b *Buffer) Line(n int) string {
	if n < 0 || n >= len(b.Lines) {
		return ""
	}
	return b.Lines[n]
}

// Span is a byte range [From, To) of a buffer's text.
type Span struct {
	From int
	To   int
}

func (b *Buffer) text() string { return strings.Join(b.Lines, "\n") }

func (b *Buffer) setText(s string) { b.Lines = strings.Split(s, "\n") }

// offset converts a clamped line and column into a byte offset of text().
func (b *Buffer) offset(row, col int) int {
	if len(b.Lines) == 0 {
		return 0
	}
	row = clamp(row, 0, len(b.Lines)-1)
	off := 0
	for _, l := range b.Lines[:row] {
		off += len(l) + 1
	}
	return off + clamp(col, 0, len(b.Lines[row]))
}

func (b *Buffer) position(off int) (int, int) {
	for row, l := range b.Lines {
		if off <= len(l) {
			return row, off
		}
		off -= len(l) + 1
	}
	return 0, 0
}

var languages = map[string]string{
	".go":   "go",
	".rs":   "rust",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".md":   "markdown",
	".json": "json",
	".toml": "toml",
	".yaml": "yaml",
	".yml":  "yaml",
	".sh":   "bash",
	".c":    "c",
	".h":    "c",
	".lua":  "lua",
}

// LanguageFor guesses a language name from a file extension.
func LanguageFor(path string) string {
	return languages[strings.ToLower(filepath.Ext(path))]
}

// RegisterFile is an in-memory Registers.
type RegisterFile struct {
	slots map[rune][]string
}

func NewRegisterFile() *RegisterFile {
	return &RegisterFile{slots: map[rune][]string{}}
}

func (r *RegisterFile) Read(name rune) []string {
	return append([]string(nil), r.slots[name]...)
}

func (r *RegisterFile) Write(name rune, values []string) error {
	r.slots[name] = append([]string(nil), values...)
	return nil
}

func (r *RegisterFile) Push(name rune, value string) error {
	r.slots[name] = append(r.slots[name], value)
	return nil
}

func (r *RegisterFile) Last(name rune) (string, bool) {
	values := r.slots[name]
	if len(values) == 0 {
		return "", false
	}
	return values[len(values)-1], true
}

// Headless is an Editor without a screen. Effects that need a real editor
// (executing commands, pasting) are recorded; status and info popups are
// written to Out.
type Headless struct {
	Buf    *Buffer
	Cwd    string
	Regs   *RegisterFile
	Yank   rune
	Insert bool
	Out    io.Writer

	// Selections are byte ranges into the buffer text, lines joined by '\n'.
	Selections []Span

	Opened   []string
	Executed []string
	Pasted   [][]string
	Status   string
	Err      string
	Info     []InfoRow
	Title    string
}

// NewHeadless returns a Headless editor on an unpathed empty buffer in the
// process working directory.
func NewHeadless(out io.Writer) *Headless {
	cwd, _ := os.Getwd()
	if out == nil {
		out = io.Discard
	}
	return &Headless{
		Buf:  &Buffer{},
		Cwd:  cwd,
		Regs: NewRegisterFile(),
		Yank: '"',
		Out:  out,
	}
}

func (h *Headless) Document() Document { return h.Buf }

func (h *Headless) Open(path string) error {
	b, err := LoadBuffer(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	h.Buf = b
	h.Opened = append(h.Opened, path)
	return nil
}

// SetCursor moves the cursor, clamped to the buffer's content.
func (h *Headless) SetCursor(line, column int) error {
	line = clamp(line, 0, max(len(h.Buf.Lines)-1, 0))
	column = clamp(column, 0, len(h.Buf.Line(line)))
	h.Buf.Row, h.Buf.Col = line, column
	return nil
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func (h *Headless) WorkingDir() string { return h.Cwd }

func (h *Headless) SetWorkingDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	h.Cwd = dir
	return nil
}

func (h *Headless) Registers() Registers { return h.Regs }

func (h *Headless) DefaultYankRegister() rune { return h.Yank }

func (h *Headless) InsertMode() bool { return h.Insert }

// Paste inserts values at the cursor, one per line, and selects the
// inserted text. The cursor ends up after it.
func (h *Headless) Paste(values []string) error {
	h.Pasted = append(h.Pasted, append([]string(nil), values...))
	text := h.Buf.text()
	at := h.Buf.offset(h.Buf.Row, h.Buf.Col)
	ins := strings.Join(values, "\n")
	h.Buf.setText(text[:at] + ins + text[at:])
	h.Selections = []Span{{From: at, To: at + len(ins)}}
	h.Buf.Row, h.Buf.Col = h.Buf.position(at + len(ins))
	return nil
}

func (h *Headless) SelectMatches(pattern string) (bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	text := h.Buf.text()
	var found []Span
	for _, sel := range h.Selections {
		for _, loc := range re.FindAllStringIndex(text[sel.From:sel.To], -1) {
			found = append(found, Span{From: sel.From + loc[0], To: sel.From + loc[1]})
		}
	}
	if len(found) == 0 {
		return false, nil
	}
	h.Selections = found
	return true, nil
}

func (h *Headless) ChangeSelection() error {
	text := h.Buf.text()
	carets := make([]Span, len(h.Selections))
	removed := 0
	var sb strings.Builder
	last := 0
	for i, sel := range h.Selections {
		sb.WriteString(text[last:sel.From])
		carets[i] = Span{From: sel.From - removed, To: sel.From - removed}
		removed += sel.To - sel.From
		last = sel.To
	}
	sb.WriteString(text[last:])
	h.Buf.setText(sb.String())
	h.Selections = carets
	if len(carets) > 0 {
		h.Buf.Row, h.Buf.Col = h.Buf.position(carets[0].From)
	}
	h.Insert = true
	return nil
}

func (h *Headless) Execute(commandLine string) error {
	h.Executed = append(h.Executed, commandLine)
	return nil
}

// SearchNext moves the cursor to the next match of the last '/' pattern,
// wrapping around the end of the buffer.
func (h *Headless) SearchNext() error {
	pattern, ok := h.Regs.Last('/')
	if !ok {
		return fmt.Errorf("no search pattern")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid search pattern %q: %w", pattern, err)
	}
	n := len(h.Buf.Lines)
	for i := 0; i <= n; i++ {
		row := (h.Buf.Row + i) % max(n, 1)
		line := h.Buf.Line(row)
		from := 0
		if i == 0 {
			from = min(h.Buf.Col+1, len(line))
		}
		if loc := re.FindStringIndex(line[from:]); loc != nil {
			h.Buf.Row, h.Buf.Col = row, from+loc[0]
			return nil
		}
	}
	return fmt.Errorf("pattern not found: %s", pattern)
}

func (h *Headless) SetStatus(msg string) {
	h.Status = msg
	fmt.Fprintln(h.Out, statusColor.Sprint(msg))
}

func (h *Headless) SetError(msg string) {
	h.Err = msg
	fmt.Fprintln(h.Out, errorColor.Sprint(msg))
}

// ShowInfo prints the popup: a title line, then one aligned line per row.
func (h *Headless) ShowInfo(title string, rows []InfoRow) {
	h.Title = title
	h.Info = append([]InfoRow(nil), rows...)

	keyWidth := 0
	for _, r := range rows {
		keyWidth = max(keyWidth, len(r.Key))
	}
	var sb strings.Builder
	sb.WriteString(titleColor.Sprint(title))
	sb.WriteByte('\n')
	for _, r := range rows {
		fmt.Fprintf(&sb, "%s  %s\n", keyColor.Sprint(padRight(r.Key, keyWidth)), r.Value)
	}
	io.WriteString(h.Out, sb.String())
}

func (h *Headless) ClearInfo() {
	h.Title = ""
	h.Info = nil
}

func padRight(s string, width int) string {
	if n := len([]rune(s)); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
