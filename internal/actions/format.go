package actions

import (
	"path/filepath"
	"strings"
)

// happyFamily shortens a path to its parent directory and file name.
func happyFamily(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	clean := filepath.Clean(path)
	file := filepath.Base(clean)
	dir := filepath.Dir(clean)
	if dir == "." {
		return file, true
	}
	return filepath.Join(filepath.Base(dir), file), true
}

// registerText is the one-line preview of a stored text: its first
// non-blank line, trimmed, followed by newline when the text has more lines.
// Search patterns lose their surrounding \b word anchors.
func registerText(text, newline string, search bool) (string, bool) {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	shown := ""
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			shown = trimmed
			break
		}
	}
	if shown == "" {
		return "", false
	}
	if search {
		for strings.HasPrefix(shown, `\b`) {
			shown = shown[2:]
		}
		for strings.HasSuffix(shown, `\b`) {
			shown = shown[:len(shown)-2]
		}
	}
	if len(lines) > 1 {
		shown += newline
	}
	return shown, true
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
