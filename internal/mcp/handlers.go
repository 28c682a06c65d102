package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/harp/internal/config"
	"github.com/hpungsan/harp/internal/errors"
	"github.com/hpungsan/harp/internal/ops"
	"github.com/hpungsan/harp/internal/store"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	backend store.Backend
	cfg     *config.Config
	cwd     string
}

// NewHandlers creates a new Handlers instance. cwd is the default working
// directory for directory relativity.
func NewHandlers(backend store.Backend, cfg *config.Config, cwd string) *Handlers {
	return &Handlers{backend: backend, cfg: cfg, cwd: cwd}
}

// Request types for each tool

// AddressRequest names a register.
type AddressRequest struct {
	Section    string `json:"section"`
	Register   string `json:"register"`
	Relativity string `json:"relativity,omitempty"`
	Exact      bool   `json:"exact,omitempty"`
	ScopeArgs
}

func (r AddressRequest) address() ops.Address {
	return ops.Address{Section: r.Section, Register: r.Register, Relativity: r.Relativity, Exact: r.Exact}
}

// SetRequest represents the arguments for set.
type SetRequest struct {
	AddressRequest
	Values []string      `json:"values,omitempty"`
	Record *store.Record `json:"record,omitempty"`
}

// SectionRequest names a section without a register.
type SectionRequest struct {
	Section    string `json:"section"`
	Relativity string `json:"relativity,omitempty"`
	Exact      bool   `json:"exact,omitempty"`
	ScopeArgs
}

// ListRequest represents the arguments for list.
type ListRequest struct {
	SectionRequest
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// SectionsRequest represents the arguments for sections.
type SectionsRequest struct {
	Prefix             string `json:"prefix,omitempty"`
	IncludeBookkeeping bool   `json:"include_bookkeeping,omitempty"`
}

// ExportRequest represents the arguments for export.
type ExportRequest struct {
	Path               string `json:"path,omitempty"`
	Prefix             string `json:"prefix,omitempty"`
	IncludeBookkeeping bool   `json:"include_bookkeeping,omitempty"`
}

// ImportRequest represents the arguments for import.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// Handler implementations

// HandleGet handles the get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddressRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Get(h.backend, input.scope(h.cwd), ops.GetInput{Address: input.address()})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSet handles the set tool call.
func (h *Handlers) HandleSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Set(h.backend, input.scope(h.cwd), ops.SetInput{
		Address: input.address(),
		Values:  input.Values,
		Record:  input.Record,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDelete handles the delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddressRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Delete(h.backend, input.scope(h.cwd), ops.DeleteInput{Address: input.address()})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleClear handles the clear tool call.
func (h *Handlers) HandleClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SectionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Clear(h.backend, input.scope(h.cwd), ops.ClearInput{
		Section:    input.Section,
		Relativity: input.Relativity,
		Exact:      input.Exact,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(h.backend, input.scope(h.cwd), ops.ListInput{
		Section:    input.Section,
		Relativity: input.Relativity,
		Exact:      input.Exact,
		Limit:      input.Limit,
		Offset:     input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSections handles the sections tool call.
func (h *Handlers) HandleSections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SectionsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Sections(h.backend, ops.SectionsInput{
		Prefix:             input.Prefix,
		IncludeBookkeeping: input.IncludeBookkeeping,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExport handles the export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Export(ctx, h.backend, h.cfg, ops.ExportInput{
		Path:               input.Path,
		Prefix:             input.Prefix,
		IncludeBookkeeping: input.IncludeBookkeeping,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleImport handles the import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Import(h.backend, h.cfg, ops.ImportInput{
		Path: input.Path,
		Mode: ops.ImportMode(input.Mode),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if harpErr, ok := errors.As(err); ok {
		message := harpErr.Message
		if err != error(harpErr) {
			message = err.Error()
		}
		errorObj := map[string]any{
			"code":    harpErr.Code,
			"message": message,
			"status":  harpErr.Status,
		}
		if harpErr.Code != errors.ErrInternal && harpErr.Details != nil {
			errorObj["details"] = harpErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
