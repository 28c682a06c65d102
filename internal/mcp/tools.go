package mcp

import "github.com/mark3labs/mcp-go/mcp"

// Arguments shared by every addressed tool.
func addressOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("section", mcp.Required(),
			mcp.Description("Logical section name, e.g. harp_files. Resolved through relativity unless exact is set.")),
		mcp.WithString("relativity",
			mcp.Description("Override the remembered relativity for this call only."),
			mcp.Enum("global", "buffer", "directory", "filetype")),
		mcp.WithBoolean("exact",
			mcp.Description("Use section verbatim, without relativity.")),
	}
}

// Arguments describing the editor state relativity is derived from.
func scopeOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("buffer_path",
			mcp.Description("Current file, for buffer relativity. Relative paths are joined to cwd.")),
		mcp.WithString("cwd",
			mcp.Description("Working directory, for directory relativity. Defaults to the server's.")),
		mcp.WithString("language",
			mcp.Description("Language name, for filetype relativity. Guessed from buffer_path when empty.")),
	}
}

func registerOption() mcp.ToolOption {
	return mcp.WithString("register", mcp.Required(),
		mcp.Description("Register name. A leading relativity token (' , . ;) selects and remembers that relativity."))
}

func tool(name, description string, groups ...[]mcp.ToolOption) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(description)}
	for _, g := range groups {
		opts = append(opts, g...)
	}
	return mcp.NewTool(name, opts...)
}

var getToolDef = tool("harp_get",
	"Read one register.",
	addressOptions(), []mcp.ToolOption{registerOption()}, scopeOptions())

var setToolDef = tool("harp_set",
	"Write one register. Give exactly one of values (list form) or record.",
	addressOptions(), []mcp.ToolOption{
		registerOption(),
		mcp.WithArray("values",
			mcp.Description("Ordered string values."),
			mcp.Items(map[string]any{"type": "string"})),
		mcp.WithObject("record",
			mcp.Description("Structured entry."),
			mcp.Properties(map[string]any{
				"path":   map[string]any{"type": "string"},
				"line":   map[string]any{"type": "integer"},
				"column": map[string]any{"type": "integer"},
				"extra":  map[string]any{"type": "string"},
			})),
	}, scopeOptions())

var deleteToolDef = tool("harp_delete",
	"Delete one register.",
	addressOptions(), []mcp.ToolOption{registerOption()}, scopeOptions())

var clearToolDef = tool("harp_clear",
	"Delete every register of one resolved section. Other relativities of the same section are kept.",
	addressOptions(), scopeOptions())

var listToolDef = tool("harp_list",
	"List the registers of one resolved section in lexicographic order.",
	addressOptions(), []mcp.ToolOption{
		mcp.WithNumber("limit", mcp.Description("Max items (default 100, max 1000).")),
		mcp.WithNumber("offset", mcp.Description("Items to skip.")),
	}, scopeOptions())

var sectionsToolDef = tool("harp_sections",
	"List section names with their register counts.",
	[]mcp.ToolOption{
		mcp.WithString("prefix", mcp.Description("Only sections starting with this prefix.")),
		mcp.WithBoolean("include_bookkeeping", mcp.Description("Include sections that remember relativities.")),
	})

var exportToolDef = tool("harp_export",
	"Export the store to a JSONL file.",
	[]mcp.ToolOption{
		mcp.WithString("path", mcp.Description("Destination .jsonl file. Defaults to ~/.harp/exports.")),
		mcp.WithString("prefix", mcp.Description("Only sections starting with this prefix.")),
		mcp.WithBoolean("include_bookkeeping", mcp.Description("Include sections that remember relativities.")),
	})

var importToolDef = tool("harp_import",
	"Import registers from a JSONL export.",
	[]mcp.ToolOption{
		mcp.WithString("path", mcp.Required(), mcp.Description("Source .jsonl file.")),
		mcp.WithString("mode",
			mcp.Description("Collision handling: error (default, writes nothing), replace (file wins), merge (store wins)."),
			mcp.Enum("error", "replace", "merge")),
	})
