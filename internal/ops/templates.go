package ops

import (
	"context"
	"encoding/base64"

	"github.com/hpungsan/clerk/internal/errors"
	"github.com/hpungsan/clerk/internal/templates"
)

// CategoriesOutput maps each category to its subtypes.
type CategoriesOutput struct {
	Categories map[string][]string `json:"categories"`
}

// Categories lists categories that hold templates.
func Categories(ctx context.Context, rt *Runtime) (*CategoriesOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cats, err := rt.Templates.Categories()
	if err != nil {
		return nil, err
	}
	return &CategoriesOutput{Categories: cats}, nil
}

// ScopeInput addresses a category and optional subtype.
type ScopeInput struct {
	Category string `json:"category"`
	Subtype  string `json:"subtype,omitempty"`
}

// CatalogOutput contains the descriptors of one scope.
type CatalogOutput struct {
	Scope     templates.Scope        `json:"scope"`
	Templates []templates.Descriptor `json:"templates"`
}

// Catalog returns the parsed metadata.json of a scope.
func Catalog(ctx context.Context, rt *Runtime, input ScopeInput) (*CatalogOutput, error) {
	scope := scopeOf(input.Category, input.Subtype)
	descs, err := rt.Templates.Catalog(ctx, scope)
	if err != nil {
		return nil, err
	}
	return &CatalogOutput{Scope: scope, Templates: descs}, nil
}

// TemplatesOutput lists template file names.
type TemplatesOutput struct {
	Templates []string `json:"templates"`
}

// Templates lists the .docx files of a scope.
func Templates(ctx context.Context, rt *Runtime, input ScopeInput) (*TemplatesOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	files, err := rt.Templates.Files(scopeOf(input.Category, input.Subtype))
	if err != nil {
		return nil, err
	}
	return &TemplatesOutput{Templates: files}, nil
}

// TemplateInput addresses one template file.
type TemplateInput struct {
	Category string `json:"category"`
	Subtype  string `json:"subtype,omitempty"`
	Name     string `json:"name"`
}

func (in TemplateInput) validate() error {
	if in.Name == "" {
		return errors.NewInvalidRequest("name is required")
	}
	return nil
}

// SectionsOutput lists the sections of a template.
type SectionsOutput struct {
	Sections []string `json:"sections"`
}

// Sections returns the "template for" headings of a template file.
func Sections(ctx context.Context, rt *Runtime, input TemplateInput) (*SectionsOutput, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	sections, err := rt.Templates.Sections(ctx, scopeOf(input.Category, input.Subtype), input.Name)
	if err != nil {
		return nil, err
	}
	return &SectionsOutput{Sections: sections}, nil
}

// TemplateFileOutput carries a template file as base64.
type TemplateFileOutput struct {
	Base64 string `json:"base64"`
}

// TemplateFile returns the raw bytes of a template, base64 encoded.
func TemplateFile(ctx context.Context, rt *Runtime, input TemplateInput) (*TemplateFileOutput, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	data, err := rt.Templates.Bytes(ctx, scopeOf(input.Category, input.Subtype), input.Name)
	if err != nil {
		return nil, err
	}
	return &TemplateFileOutput{Base64: base64.StdEncoding.EncodeToString(data)}, nil
}
