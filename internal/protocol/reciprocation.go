package protocol

import (
	"fmt"
	"strings"

	"github.com/hpungsan/harp/internal/config"
	"github.com/hpungsan/harp/internal/errors"
)

// Reciprocation is what a literal register key will do.
type Reciprocation int

const (
	Get Reciprocation = iota
	Set
	Delete
)

func (r Reciprocation) String() string {
	switch r {
	case Get:
		return "get"
	case Set:
		return "set"
	case Delete:
		return "del"
	}
	return fmt.Sprintf("reciprocation(%d)", int(r))
}

// Toggle flips Get and Set. Delete goes back to Get.
func (r Reciprocation) Toggle() Reciprocation {
	if r == Get {
		return Set
	}
	return Get
}

// ParseReciprocation accepts get, set, del or delete.
func ParseReciprocation(s string) (Reciprocation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "get":
		return Get, nil
	case "set":
		return Set, nil
	case "del", "delete":
		return Delete, nil
	}
	return Get, errors.NewInvalidRequest(fmt.Sprintf("unknown mode %q (want get, set or del)", s))
}

// Hotkeys are the control chords of a prompt.
type Hotkeys struct {
	Global    string
	Buffer    string
	Directory string
	Filetype  string
	Switch    string
	Delete    string
	DeleteAll string
	Escape    string
}

// DefaultHotkeys returns the built-in chords.
func DefaultHotkeys() Hotkeys {
	return Hotkeys{
		Global:    "'",
		Buffer:    ",",
		Directory: ".",
		Filetype:  ";",
		Switch:    "<tab>",
		Delete:    "<backspace>",
		DeleteAll: "<C-d>",
		Escape:    "<esc>",
	}
}

// HotkeysFrom overlays configured chords on the defaults.
func HotkeysFrom(c config.Hotkeys) Hotkeys {
	h := DefaultHotkeys()
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&h.Global, c.Global)
	set(&h.Buffer, c.Buffer)
	set(&h.Directory, c.Directory)
	set(&h.Filetype, c.Filetype)
	set(&h.Switch, c.Switch)
	set(&h.Delete, c.Delete)
	set(&h.DeleteAll, c.DeleteAll)
	set(&h.Escape, c.Escape)
	return h
}
