package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/clerk/internal/errors"
	"github.com/hpungsan/clerk/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	rt *ops.Runtime
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(rt *ops.Runtime) *Handlers {
	return &Handlers{rt: rt}
}

// ListRequest represents the arguments for document_list.
type ListRequest struct {
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// DeleteRequest represents the arguments for document_delete.
type DeleteRequest struct {
	ID string `json:"id"`
}

// PurgeRequest represents the arguments for document_purge.
type PurgeRequest struct {
	OlderThanDays *int `json:"older_than_days,omitempty"`
}

// SummarizeRequest represents the arguments for template_summarize.
type SummarizeRequest struct {
	Category string `json:"category,omitempty"`
	Subtype  string `json:"subtype,omitempty"`
}

// decode unmarshals MCP request arguments into a typed struct by
// round-tripping them through JSON.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("unmarshal args: %w", err)
	}
	return result, nil
}

// call decodes the arguments into In, runs op and wraps its result.
func call[In, Out any](ctx context.Context, req mcp.CallToolRequest, op func(context.Context, In) (Out, error)) (*mcp.CallToolResult, error) {
	input, err := decode[In](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := op(ctx, input)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCategories handles the template_categories tool call.
func (h *Handlers) HandleCategories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Categories(ctx, h.rt)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCatalog handles the template_catalog tool call.
func (h *Handlers) HandleCatalog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in ops.ScopeInput) (*ops.CatalogOutput, error) {
		return ops.Catalog(ctx, h.rt, in)
	})
}

// HandleSections handles the template_sections tool call.
func (h *Handlers) HandleSections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in ops.TemplateInput) (*ops.SectionsOutput, error) {
		return ops.Sections(ctx, h.rt, in)
	})
}

// HandleSummarize handles the template_summarize tool call.
func (h *Handlers) HandleSummarize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in SummarizeRequest) (*ops.SummarizeOutput, error) {
		return ops.Summarize(ctx, h.rt, ops.SummarizeInput{Category: in.Category, Subtype: in.Subtype})
	})
}

// HandleStart handles the dialogue_start tool call.
func (h *Handlers) HandleStart(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in ops.StartInput) (*ops.StartOutput, error) {
		return ops.Start(ctx, h.rt, in)
	})
}

// HandleNext handles the dialogue_next tool call.
func (h *Handlers) HandleNext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in ops.NextInput) (*ops.NextOutput, error) {
		return ops.Next(ctx, h.rt, in)
	})
}

// HandleComplete handles the dialogue_complete tool call. The document itself
// stays on disk; the result names its id and path.
func (h *Handlers) HandleComplete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in ops.CompleteInput) (*ops.CompleteOutput, error) {
		return ops.Complete(ctx, h.rt, in)
	})
}

// HandleList handles the document_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in ListRequest) (*ops.ListDocumentsOutput, error) {
		return ops.ListDocuments(ctx, h.rt, ops.ListDocumentsInput{
			Category: in.Category,
			Limit:    in.Limit,
			Offset:   in.Offset,
		})
	})
}

// HandleDelete handles the document_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in DeleteRequest) (*ops.DeleteDocumentOutput, error) {
		return ops.DeleteDocument(ctx, h.rt, ops.DeleteDocumentInput{ID: in.ID})
	})
}

// HandlePurge handles the document_purge tool call.
func (h *Handlers) HandlePurge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return call(ctx, req, func(ctx context.Context, in PurgeRequest) (*ops.PurgeDocumentsOutput, error) {
		return ops.PurgeDocuments(ctx, h.rt, ops.PurgeDocumentsInput{OlderThanDays: in.OlderThanDays})
	})
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Errors outside the ClerkError family are reported as INTERNAL.
func errorResult(err error) *mcp.CallToolResult {
	cErr := errors.From(err)
	errorObj := map[string]any{
		"code":    cErr.Code,
		"message": cErr.Message,
		"status":  cErr.Status,
	}
	// Internal errors carry file paths and SQL text; keep them out.
	if cErr.Code == errors.ErrInternal {
		errorObj["message"] = "an internal error occurred"
	} else if cErr.Details != nil {
		errorObj["details"] = cErr.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
