package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hpungsan/clerk/internal/errors"
	"github.com/hpungsan/clerk/internal/ops"
)

// Handlers contains HTTP route handlers for the API.
type Handlers struct {
	rt      *ops.Runtime
	version string
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}

// HandleCategories handles GET /api/categories: category -> subtypes.
func (h *Handlers) HandleCategories(c *gin.Context) {
	out, err := ops.Categories(c.Request.Context(), h.rt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out.Categories)
}

// HandleTemplates handles GET /api/templates/:category.
func (h *Handlers) HandleTemplates(c *gin.Context) {
	out, err := ops.Templates(c.Request.Context(), h.rt, ops.ScopeInput{
		Category: c.Param("category"),
		Subtype:  c.Query("subtype"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// HandleCatalog handles GET /api/catalog/:category.
func (h *Handlers) HandleCatalog(c *gin.Context) {
	out, err := ops.Catalog(c.Request.Context(), h.rt, ops.ScopeInput{
		Category: c.Param("category"),
		Subtype:  c.Query("subtype"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func templateInput(c *gin.Context) ops.TemplateInput {
	return ops.TemplateInput{
		Category: c.Query("category"),
		Subtype:  c.Query("subtype"),
		Name:     c.Query("name"),
	}
}

// HandleTemplateFile handles GET /api/template: the raw file as base64.
func (h *Handlers) HandleTemplateFile(c *gin.Context) {
	out, err := ops.TemplateFile(c.Request.Context(), h.rt, templateInput(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// HandleSections handles GET /api/template/sections.
func (h *Handlers) HandleSections(c *gin.Context) {
	out, err := ops.Sections(c.Request.Context(), h.rt, templateInput(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		respondError(c, errors.NewInvalidRequest("invalid request body: "+err.Error()))
		return false
	}
	return true
}

// HandleStart handles POST /api/ai/start.
func (h *Handlers) HandleStart(c *gin.Context) {
	var input ops.StartInput
	if !bindJSON(c, &input) {
		return
	}
	out, err := ops.Start(c.Request.Context(), h.rt, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// HandleNext handles POST /api/ai/next.
func (h *Handlers) HandleNext(c *gin.Context) {
	var input ops.NextInput
	if !bindJSON(c, &input) {
		return
	}
	out, err := ops.Next(c.Request.Context(), h.rt, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// HandleComplete handles POST /api/ai/complete. A filled document is
// streamed as filled_<template>; under the whole-document strategy the model
// may ask one more question instead, returned as JSON.
func (h *Handlers) HandleComplete(c *gin.Context) {
	var input ops.CompleteInput
	if !bindJSON(c, &input) {
		return
	}
	out, err := ops.Complete(c.Request.Context(), h.rt, input)
	if err != nil {
		respondError(c, err)
		return
	}
	if !out.HasDocument() {
		c.JSON(http.StatusOK, gin.H{"next_question": out.NextQuestion, "messages": out.Transcript})
		return
	}
	if out.DocumentID != "" {
		c.Header(HeaderArtifactID, out.DocumentID)
	}
	if len(out.Unresolved) > 0 {
		c.Header(HeaderUnresolved, out.UnresolvedHeader())
	}
	respondDocx(c, out.DownloadName, out.Data)
}

// HandleListDocuments handles GET /api/documents.
func (h *Handlers) HandleListDocuments(c *gin.Context) {
	out, err := ops.ListDocuments(c.Request.Context(), h.rt, ops.ListDocumentsInput{
		Category: c.Query("category"),
		Limit:    parseIntParam(c, "limit", ops.DefaultListLimit),
		Offset:   parseIntParam(c, "offset", 0),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// HandleDownload handles GET /api/documents/:id.
func (h *Handlers) HandleDownload(c *gin.Context) {
	out, err := ops.FetchDocument(c.Request.Context(), h.rt, ops.FetchDocumentInput{ID: c.Param("id")})
	if err != nil {
		respondError(c, err)
		return
	}
	respondDocx(c, out.DownloadName, out.Data)
}

// HandlePreview handles GET /api/documents/:id/preview.
func (h *Handlers) HandlePreview(c *gin.Context) {
	out, err := ops.FetchDocument(c.Request.Context(), h.rt, ops.FetchDocumentInput{ID: c.Param("id")})
	if err != nil {
		respondError(c, err)
		return
	}
	md, err := out.Markdown()
	if err != nil {
		respondError(c, err)
		return
	}
	renderPreview(c, PreviewPageData{
		Title:     out.DownloadName,
		Version:   h.version,
		CreatedAt: out.CreatedAt,
		Body:      renderMarkdown(md),
	})
}

// HandleDelete handles DELETE /api/documents/:id.
func (h *Handlers) HandleDelete(c *gin.Context) {
	out, err := ops.DeleteDocument(c.Request.Context(), h.rt, ops.DeleteDocumentInput{ID: c.Param("id")})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// HandlePurge handles POST /api/documents/purge.
func (h *Handlers) HandlePurge(c *gin.Context) {
	days, err := optionalIntParam(c, "older_than_days")
	if err != nil {
		respondError(c, err)
		return
	}
	out, err := ops.PurgeDocuments(c.Request.Context(), h.rt, ops.PurgeDocumentsInput{OlderThanDays: days})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
