package web

import (
	"bytes"
	"html/template"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"

	"github.com/hpungsan/clerk/internal/docx"
	"github.com/hpungsan/clerk/internal/errors"
)

// APIError is the body of every error response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// ErrorEnvelope wraps APIError as {"error": {...}}.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// respondError renders err as a JSON error envelope.
func respondError(c *gin.Context, err error) {
	cErr := errors.From(err)
	if cErr.Status >= http.StatusInternalServerError {
		logFrom(c).Error("request failed", "code", string(cErr.Code), "error", cErr.Message)
	}
	c.AbortWithStatusJSON(cErr.Status, ErrorEnvelope{
		Error: APIError{
			Code:    string(cErr.Code),
			Message: cErr.Message,
			Status:  cErr.Status,
		},
	})
}

// respondDocx streams a generated document as an attachment.
func respondDocx(c *gin.Context, name string, data []byte) {
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Data(http.StatusOK, docx.ContentType, data)
}

// renderMarkdown converts markdown text to HTML using goldmark.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// PreviewPageData is the template data for the document preview page.
type PreviewPageData struct {
	Title     string
	Version   string
	CreatedAt int64
	Body      template.HTML
}

var previewTmpl = template.Must(template.New("preview").Funcs(template.FuncMap{
	"formatTime": formatTime,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<header><small>clerk {{.Version}} · generated {{formatTime .CreatedAt}} UTC</small></header>
<main>
{{.Body}}
</main>
</body>
</html>
`))

func renderPreview(c *gin.Context, data PreviewPageData) {
	var buf bytes.Buffer
	if err := previewTmpl.Execute(&buf, data); err != nil {
		respondError(c, errors.NewInternal(err))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

// parseIntParam reads an integer query parameter, returning def when absent
// or invalid.
func parseIntParam(c *gin.Context, name string, def int) int {
	v := c.Query(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// optionalIntParam returns nil when the parameter is absent.
func optionalIntParam(c *gin.Context, name string) (*int, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, errors.NewInvalidRequest(name + " must be an integer")
	}
	return &n, nil
}
