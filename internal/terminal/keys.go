// Package terminal reads key chords from a terminal in raw mode and names
// them the way hotkeys are configured ("a", "<tab>", "<C-d>", "<esc>").
package terminal

import (
	"context"
	"io"
	"os"
	"sync"
	"unicode/utf8"

	"github.com/golang/glog"
	"golang.org/x/term"

	"github.com/hpungsan/harp/internal/errors"
)

// Keys is a protocol.KeySource over a reader, usually stdin.
type Keys struct {
	in      io.Reader
	fd      int
	restore *term.State

	once    sync.Once
	keys    chan string
	readErr error
}

// Open puts f into raw mode when it is a terminal. Non-terminals (pipes in
// tests and scripts) are read as they are. Close restores the terminal.
func Open(f *os.File) (*Keys, error) {
	k := &Keys{in: f, fd: int(f.Fd())}
	if term.IsTerminal(k.fd) {
		state, err := term.MakeRaw(k.fd)
		if err != nil {
			return nil, errors.NewIO("enter raw mode", err)
		}
		k.restore = state
		glog.V(2).Infof("[harp]terminal fd %d in raw mode\n", k.fd)
	}
	return k, nil
}

// NewKeys reads key chords from r without touching any terminal state.
func NewKeys(r io.Reader) *Keys {
	return &Keys{in: r, fd: -1}
}

// Close restores the terminal state saved by Open.
func (k *Keys) Close() error {
	if k.restore == nil {
		return nil
	}
	err := term.Restore(k.fd, k.restore)
	k.restore = nil
	return err
}

// NextKey blocks until a key arrives, the reader ends, or ctx is done.
func (k *Keys) NextKey(ctx context.Context) (string, error) {
	k.once.Do(k.start)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case key, ok := <-k.keys:
		if !ok {
			if k.readErr != nil {
				return "", k.readErr
			}
			return "", io.EOF
		}
		return key, nil
	}
}

func (k *Keys) start() {
	k.keys = make(chan string, 16)
	go func() {
		defer close(k.keys)
		buf := make([]byte, 64)
		var pending []byte
		for {
			n, err := k.in.Read(buf)
			pending = append(pending, buf[:n]...)
			for len(pending) > 0 {
				key, size := Decode(pending)
				if size == 0 {
					break
				}
				if key != "" {
					k.keys <- key
				}
				pending = pending[size:]
			}
			if err != nil {
				if err != io.EOF {
					k.readErr = errors.NewIO("read key", err)
				}
				return
			}
		}
	}()
}

// Decode names the first key chord in b and returns how many bytes it used.
// It returns size 0 when b ends inside a multi-byte character.
func Decode(b []byte) (string, int) {
	if len(b) == 0 {
		return "", 0
	}
	c := b[0]
	switch {
	case c == 0x1b:
		if len(b) >= 3 && b[1] == '[' {
			if name, ok := arrows[b[2]]; ok {
				return name, 3
			}
		}
		return "<esc>", 1
	case c == '\t':
		return "<tab>", 1
	case c == '\r' || c == '\n':
		return "<ret>", 1
	case c == 0x7f || c == 0x08:
		return "<backspace>", 1
	case c == ' ':
		return "<space>", 1
	case c == 0:
		return "<C-space>", 1
	case c < 0x20:
		return "<C-" + string(rune('a'+c-1)) + ">", 1
	case c < utf8.RuneSelf:
		return string(rune(c)), 1
	}

	if !utf8.FullRune(b) {
		return "", 0
	}
	r, size := utf8.DecodeRune(b)
	if r == utf8.RuneError {
		return "", 1
	}
	return string(r), size
}

var arrows = map[byte]string{
	'A': "<up>",
	'B': "<down>",
	'C': "<right>",
	'D': "<left>",
}
