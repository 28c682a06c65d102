package protocol

import (
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/harp/internal/editor"
	"github.com/hpungsan/harp/internal/relativity"
	"github.com/hpungsan/harp/internal/store"
)

// Preview formats every register of sec, sorted by key. Values are padded
// to titleWidth so the popup is never narrower than its title.
func Preview(sec store.Section, rel relativity.Relativity, titleWidth int, width WidthFunc, format Formatter) []editor.InfoRow {
	if format == nil {
		return nil
	}
	widest := 0
	if width != nil {
		for _, e := range sec {
			widest = max(widest, width(e))
		}
	}

	var rows []editor.InfoRow
	for _, key := range sec.Keys() {
		value, ok := format(sec[key], rel, widest)
		if !ok {
			continue
		}
		rows = append(rows, editor.InfoRow{Key: key, Value: padRight(value, titleWidth)})
	}
	return rows
}

func padRight(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
