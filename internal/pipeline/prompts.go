package pipeline

import (
	"fmt"
	"strings"

	"github.com/hpungsan/clerk/internal/session"
	"github.com/hpungsan/clerk/internal/templates"
)

func selectionPrompt(issue string, catalog []templates.Descriptor) string {
	var sb strings.Builder
	sb.WriteString("You are a legal assistant. A user described their issue as:\n\n")
	sb.WriteString(strings.TrimSpace(issue))
	sb.WriteString("\n\nHere are the available legal document templates:\n\n")
	for i, d := range catalog {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "Filename: %s\nTitle: %s\nSummary: %s", d.Filename, d.Title, d.Summary)
	}
	sb.WriteString("\n\nRespond ONLY with the exact filename of the template that best matches the user's issue. ")
	sb.WriteString("Always choose the closest match, even if none fits perfectly. Never refuse and never add any other text.")
	return sb.String()
}

func questionPrompt(token string) string {
	return "You are an AI legal assistant helping the user fill out the document template below.\n" +
		"Inspect the template for information that is still missing: bracketed placeholders such as [Tenant Name], " +
		"blank underscores, and lists of options the user must choose from.\n" +
		"Ask exactly ONE clear question about the most important missing item. " +
		"Never repeat a question that has already been answered in the conversation.\n" +
		"When nothing is missing any more, reply with exactly: " + token
}

func templateTurn(text string) session.Turn {
	return session.User(session.TemplateTurnPrefix + "\n\n" + text)
}

const extractionPrompt = "You are a document filling assistant. Below is a legal template followed by a chat conversation.\n" +
	"Extract placeholder-value pairs as a JSON object. Each key is a placeholder label exactly as it appears " +
	"between the square brackets in the template (for example \"Claimant Name\" for [Claimant Name]) and each " +
	"value is the matching information the user provided in the conversation.\n" +
	"Leave out placeholders the conversation does not answer.\n\n" +
	"ONLY return a valid JSON object. Do NOT include any explanation."

// extractionInput renders the answered questions only: each user answer is
// paired with the assistant question it follows.
func extractionInput(templateText string, tr session.Transcript) string {
	var sb strings.Builder
	sb.WriteString("TEMPLATE:\n")
	sb.WriteString(templateText)
	sb.WriteString("\n\nCONVERSATION:")
	for _, ex := range tr.Exchanges() {
		fmt.Fprintf(&sb, "\nQ: %s\nA: %s", ex.Question, ex.Answer)
	}
	return sb.String()
}

// rewriteInput keeps the whole dialogue, since the rewrite also decides
// whether another question is needed.
func rewriteInput(templateText string, tr session.Transcript) string {
	return "TEMPLATE:\n" + templateText + "\n\nCONVERSATION:\n" + tr.Format()
}

func rewritePrompt() string {
	return "You are a document filling assistant. Below is a legal template followed by a chat conversation.\n" +
		"If the conversation does not yet contain everything needed to complete the template, reply with the JSON object " +
		`{"status": "question", "question": "<the single next question to ask the user>"}` + ".\n" +
		"Otherwise rewrite the complete template with every placeholder, blank and option list resolved from the " +
		"user's answers, keeping the original wording and line structure, and reply with the JSON object " +
		`{"status": "document", "document": "<the full document text, one paragraph per line>"}` + ".\n\n" +
		"ONLY return a valid JSON object. Do NOT include any explanation."
}
