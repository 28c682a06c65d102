package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Backend names accepted in Config.Backend.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Config holds application configuration.
type Config struct {
	// StorePath is the harp document location. Relative paths are resolved
	// against the base directory (~/.harp). Ignored by the sqlite backend,
	// which always uses <base>/harp.db.
	StorePath string `json:"store_path,omitempty"`

	// Backend selects the persistence backend: "json" (default) or "sqlite".
	Backend string `json:"backend,omitempty"`

	// Relativity holds the default relativity per action, used until the user
	// picks one interactively (which is then remembered in the store itself).
	Relativity Relativities `json:"relativity,omitempty"`

	// Hotkeys are the control keys of the interactive resolve prompt.
	Hotkeys Hotkeys `json:"hotkeys,omitempty"`

	// NewlineChar marks multi-line values in previews.
	NewlineChar string `json:"newline_char,omitempty"`

	// AllowedPaths is an allowlist of directories for import/export operations.
	// Paths outside ~/.harp/exports require either being in this list or AllowUnsafePaths=true.
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// Relativities holds one relativity name per harp action.
// Valid names: global, buffer, directory, filetype.
type Relativities struct {
	File         string `json:"file,omitempty"`
	RelativeFile string `json:"relative_file,omitempty"`
	Cwd          string `json:"cwd,omitempty"`
	Search       string `json:"search,omitempty"`
	Register     string `json:"register,omitempty"`
	Command      string `json:"command,omitempty"`
	Mark         string `json:"mark,omitempty"`
}

// Hotkeys holds the key chords that control the resolve prompt.
// Chords use the normalized form produced by the key source ("a", "<tab>", "<C-d>").
type Hotkeys struct {
	Global    string `json:"global,omitempty"`
	Buffer    string `json:"buffer,omitempty"`
	Directory string `json:"directory,omitempty"`
	Filetype  string `json:"filetype,omitempty"`
	Switch    string `json:"switch,omitempty"`
	Delete    string `json:"delete,omitempty"`
	DeleteAll string `json:"delete_all,omitempty"`
	Escape    string `json:"escape,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		StorePath: "harp.jsonc",
		Backend:   BackendJSON,
		Relativity: Relativities{
			File:         "global",
			RelativeFile: "directory",
			Cwd:          "global",
			Search:       "global",
			Register:     "global",
			Command:      "directory",
			Mark:         "buffer",
		},
		Hotkeys: Hotkeys{
			Global:    "'",
			Buffer:    ",",
			Directory: ".",
			Filetype:  ";",
			Switch:    "<tab>",
			Delete:    "<backspace>",
			DeleteAll: "<C-d>",
			Escape:    "<esc>",
		},
		NewlineChar: "⏎",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.harp.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// LoadWithRepo loads configuration from both global (~/.harp) and repo (.harp) directories.
// Repo config is found by walking upward from startDir to find the nearest .harp/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .harp/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".harp", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// StoreLocation returns the absolute harp document path for baseDir.
func (c *Config) StoreLocation(baseDir string) string {
	p := c.StorePath
	if p == "" {
		p = DefaultConfig().StorePath
	}
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[2:])
		}
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(baseDir, p)
	}
	return p
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.StorePath = pick(overlay.StorePath, base.StorePath)
	result.Backend = pick(overlay.Backend, base.Backend)
	result.NewlineChar = pick(overlay.NewlineChar, base.NewlineChar)

	result.Relativity = Relativities{
		File:         pick(overlay.Relativity.File, base.Relativity.File),
		RelativeFile: pick(overlay.Relativity.RelativeFile, base.Relativity.RelativeFile),
		Cwd:          pick(overlay.Relativity.Cwd, base.Relativity.Cwd),
		Search:       pick(overlay.Relativity.Search, base.Relativity.Search),
		Register:     pick(overlay.Relativity.Register, base.Relativity.Register),
		Command:      pick(overlay.Relativity.Command, base.Relativity.Command),
		Mark:         pick(overlay.Relativity.Mark, base.Relativity.Mark),
	}

	result.Hotkeys = Hotkeys{
		Global:    pick(overlay.Hotkeys.Global, base.Hotkeys.Global),
		Buffer:    pick(overlay.Hotkeys.Buffer, base.Hotkeys.Buffer),
		Directory: pick(overlay.Hotkeys.Directory, base.Hotkeys.Directory),
		Filetype:  pick(overlay.Hotkeys.Filetype, base.Hotkeys.Filetype),
		Switch:    pick(overlay.Hotkeys.Switch, base.Hotkeys.Switch),
		Delete:    pick(overlay.Hotkeys.Delete, base.Hotkeys.Delete),
		DeleteAll: pick(overlay.Hotkeys.DeleteAll, base.Hotkeys.DeleteAll),
		Escape:    pick(overlay.Hotkeys.Escape, base.Hotkeys.Escape),
	}

	// Security: either config can enable unsafe paths
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// pick returns overlay unless it is blank.
func pick(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
