package mcp

import "github.com/mark3labs/mcp-go/mcp"

var turnSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"role":    map[string]any{"type": "string", "enum": []string{"system", "user", "assistant"}},
		"content": map[string]any{"type": "string"},
	},
	"required": []string{"role", "content"},
}

func selectionOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("token", mcp.Description("Selection token returned by dialogue_start")),
		mcp.WithString("category", mcp.Description("Template category; must match the token when both are sent")),
		mcp.WithString("subtype", mcp.Description("Optional subtype folder")),
		mcp.WithString("filename", mcp.Description("Template filename, when no token is sent")),
		mcp.WithArray("messages",
			mcp.Description("Dialogue so far: alternating assistant questions and user answers"),
			mcp.Items(turnSchema),
		),
	}
}

var categoriesToolDef = mcp.NewTool("template_categories",
	mcp.WithDescription("List template categories and their subtypes."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var catalogToolDef = mcp.NewTool("template_catalog",
	mcp.WithDescription("List the catalog (title, summary, filename) of a category or subtype."),
	mcp.WithString("category", mcp.Required(), mcp.Description("Template category")),
	mcp.WithString("subtype", mcp.Description("Optional subtype folder")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var sectionsToolDef = mcp.NewTool("template_sections",
	mcp.WithDescription(`List the "Template for ..." sections of a template file.`),
	mcp.WithString("category", mcp.Required(), mcp.Description("Template category")),
	mcp.WithString("subtype", mcp.Description("Optional subtype folder")),
	mcp.WithString("name", mcp.Required(), mcp.Description("Template filename")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var summarizeToolDef = mcp.NewTool("template_summarize",
	mcp.WithDescription("Generate catalog entries for templates that have none yet. Without a category every folder is processed."),
	mcp.WithString("category", mcp.Description("Restrict to one category")),
	mcp.WithString("subtype", mcp.Description("Restrict to one subtype of the category")),
)

var startToolDef = mcp.NewTool("dialogue_start",
	mcp.WithDescription("Pick the template that best fits an issue and return the first question together with a selection token."),
	mcp.WithString("category", mcp.Required(), mcp.Description("Template category")),
	mcp.WithString("subtype", mcp.Description("Optional subtype folder")),
	mcp.WithString("user_input", mcp.Required(), mcp.Description("The user's description of their issue")),
)

var nextToolDef = mcp.NewTool("dialogue_next",
	append([]mcp.ToolOption{
		mcp.WithDescription("Ask the next question for the selected template. Returns complete=true once enough is known."),
	}, selectionOptions()...)...,
)

var completeToolDef = mcp.NewTool("dialogue_complete",
	append([]mcp.ToolOption{
		mcp.WithDescription("Fill the selected template from the dialogue and store the document. Returns its id, path and any unresolved placeholders."),
	}, selectionOptions()...)...,
)

var listToolDef = mcp.NewTool("document_list",
	mcp.WithDescription("List generated documents, newest first."),
	mcp.WithString("category", mcp.Description("Filter by category")),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Page offset")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var deleteToolDef = mcp.NewTool("document_delete",
	mcp.WithDescription("Delete a generated document. The file is removed by the next purge."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Document id")),
	mcp.WithDestructiveHintAnnotation(true),
)

var purgeToolDef = mcp.NewTool("document_purge",
	mcp.WithDescription("Permanently remove deleted documents and, with older_than_days, documents older than that."),
	mcp.WithNumber("older_than_days", mcp.Description("Also purge documents created more than N days ago")),
	mcp.WithDestructiveHintAnnotation(true),
)
