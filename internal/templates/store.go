// Package templates is the filesystem template store.
//
// Layout:
//
//	<root>/<category>/[<subtype>/]<name>.docx
//	<root>/<category>/[<subtype>/]metadata.json
//
// metadata.json holds the catalog: an array of {title, summary, filename}.
package templates

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/hpungsan/clerk/internal/docx"
	"github.com/hpungsan/clerk/internal/errors"
)

const (
	// MetadataFile is the catalog file name inside a scope directory.
	MetadataFile = "metadata.json"
	// Ext is the template file extension.
	Ext = ".docx"

	// FullDocumentSection is reported when a template has no "template for" headings.
	FullDocumentSection = "Full Document"
	sectionPrefix       = "template for"
)

// Scope addresses one catalog: a category and an optional subtype.
type Scope struct {
	Category string `json:"category"`
	Subtype  string `json:"subtype,omitempty"`
}

func (s Scope) String() string {
	if s.Subtype == "" {
		return s.Category
	}
	return s.Category + "/" + s.Subtype
}

// Validate rejects names that could escape the template root.
func (s Scope) Validate() error {
	if err := validateName("category", s.Category); err != nil {
		return err
	}
	if s.Subtype != "" {
		return validateName("subtype", s.Subtype)
	}
	return nil
}

func validateName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.NewInvalidRequest(field + " is required")
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid %s: %q", field, name))
	}
	return nil
}

// validateFilename accepts only .docx names, so a catalog or any other file
// sharing the folder is never served as a template.
func validateFilename(name string) error {
	if err := validateName("filename", name); err != nil {
		return err
	}
	if !strings.EqualFold(filepath.Ext(name), Ext) {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid filename: %q is not a %s file", name, Ext))
	}
	return nil
}

// Descriptor is one catalog entry. Filename is unique within a scope.
type Descriptor struct {
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Filename string `json:"filename"`
}

// Store reads templates and catalogs from disk. Parsed catalogs and template
// bytes are cached for a TTL; concurrent misses for the same key share one
// read.
type Store struct {
	root  string
	cache *cache.Cache
	group singleflight.Group
}

// New creates a store rooted at root. A non-positive ttl disables caching.
func New(root string, ttl time.Duration) *Store {
	s := &Store{root: root}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

// Root returns the template root directory.
func (s *Store) Root() string {
	return s.root
}

// Dir returns the directory of a scope after validating its names.
func (s *Store) Dir(scope Scope) (string, error) {
	if err := scope.Validate(); err != nil {
		return "", err
	}
	if scope.Subtype == "" {
		return filepath.Join(s.root, scope.Category), nil
	}
	return filepath.Join(s.root, scope.Category, scope.Subtype), nil
}

// Invalidate drops cached entries for a scope, e.g. after its catalog was rewritten.
func (s *Store) Invalidate(scope Scope) {
	if s.cache == nil {
		return
	}
	prefix := scope.String() + "|"
	for key := range s.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			s.cache.Delete(key)
		}
	}
}

// cached returns the value under key, loading it at most once concurrently.
func (s *Store) cached(key string, load func() (any, error)) (any, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return v, nil
		}
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		if s.cache != nil {
			if v, ok := s.cache.Get(key); ok {
				return v, nil
			}
		}
		v, err := load()
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.SetDefault(key, v)
		}
		return v, nil
	})
	return v, err
}

// Catalog returns the descriptors of a scope in file order. A missing scope,
// a missing catalog and an empty catalog are all NotFound; malformed entries
// are InvalidCatalog.
func (s *Store) Catalog(ctx context.Context, scope Scope) ([]Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := s.Dir(scope)
	if err != nil {
		return nil, err
	}

	v, err := s.cached(scope.String()+"|catalog", func() (any, error) {
		return loadCatalog(dir, scope)
	})
	if err != nil {
		return nil, err
	}
	descs := v.([]Descriptor)
	return append([]Descriptor(nil), descs...), nil
}

func loadCatalog(dir string, scope Scope) ([]Descriptor, error) {
	if !isDir(dir) {
		return nil, errors.NewNotFound("scope", scope.String())
	}

	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if os.IsNotExist(err) {
		return nil, errors.NewNotFound("catalog", scope.String())
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	var descs []Descriptor
	if err := json.Unmarshal(data, &descs); err != nil {
		return nil, errors.NewInvalidCatalog(scope.String(), []string{MetadataFile + ": " + err.Error()})
	}
	if len(descs) == 0 {
		return nil, errors.NewNotFound("catalog", scope.String())
	}
	if problems := ValidateCatalog(descs); len(problems) > 0 {
		return nil, errors.NewInvalidCatalog(scope.String(), problems)
	}
	return descs, nil
}

// ValidateCatalog lists the problems with a set of descriptors: missing
// fields and filenames repeated (case-insensitively).
func ValidateCatalog(descs []Descriptor) []string {
	var problems []string
	seen := make(map[string]int)
	for i, d := range descs {
		var missing []string
		if strings.TrimSpace(d.Title) == "" {
			missing = append(missing, "title")
		}
		if strings.TrimSpace(d.Summary) == "" {
			missing = append(missing, "summary")
		}
		if strings.TrimSpace(d.Filename) == "" {
			missing = append(missing, "filename")
		}
		if len(missing) > 0 {
			problems = append(problems, fmt.Sprintf("entry %d: missing %s", i, strings.Join(missing, ", ")))
			continue
		}
		key := strings.ToLower(strings.TrimSpace(d.Filename))
		if first, ok := seen[key]; ok {
			problems = append(problems, fmt.Sprintf("entry %d: filename %q duplicates entry %d", i, d.Filename, first))
			continue
		}
		seen[key] = i
	}
	return problems
}

// Bytes returns the raw .docx bytes of a template. The returned slice is
// shared with the cache and must not be modified.
func (s *Store) Bytes(ctx context.Context, scope Scope, filename string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := s.Dir(scope)
	if err != nil {
		return nil, err
	}
	if err := validateFilename(filename); err != nil {
		return nil, err
	}

	v, err := s.cached(scope.String()+"|file|"+filename, func() (any, error) {
		path := filepath.Join(dir, filename)
		info, err := os.Stat(path)
		if os.IsNotExist(err) || (err == nil && !info.Mode().IsRegular()) {
			return nil, errors.NewNotFound("template", scope.String()+"/"+filename)
		}
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Document opens a fresh, mutable copy of a template.
func (s *Store) Document(ctx context.Context, scope Scope, filename string) (*docx.Document, error) {
	data, err := s.Bytes(ctx, scope, filename)
	if err != nil {
		return nil, err
	}
	doc, err := docx.Open(data)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("template %s/%s: %w", scope, filename, err))
	}
	return doc, nil
}

// Text returns the template's non-blank paragraphs, table cells included, in
// document order.
func (s *Store) Text(ctx context.Context, scope Scope, filename string) (string, error) {
	doc, err := s.Document(ctx, scope, filename)
	if err != nil {
		return "", err
	}
	return doc.Text(), nil
}

// Sections returns body paragraphs starting with "template for", used by
// files that bundle several templates. Single-template files report
// FullDocumentSection.
func (s *Store) Sections(ctx context.Context, scope Scope, filename string) ([]string, error) {
	doc, err := s.Document(ctx, scope, filename)
	if err != nil {
		return nil, err
	}
	var sections []string
	for _, p := range doc.Paragraphs() {
		text := strings.TrimSpace(p.Text())
		if strings.HasPrefix(strings.ToLower(text), sectionPrefix) {
			sections = append(sections, text)
		}
	}
	if len(sections) == 0 {
		sections = []string{FullDocumentSection}
	}
	return sections, nil
}

// Files lists the .docx files directly inside a scope, sorted by name.
func (s *Store) Files(scope Scope) ([]string, error) {
	dir, err := s.Dir(scope)
	if err != nil {
		return nil, err
	}
	if !isDir(dir) {
		return nil, errors.NewNotFound("scope", scope.String())
	}
	files, err := docxFiles(dir)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return files, nil
}

// Categories maps every category to its subtypes. A directory counts when it
// holds .docx files or a catalog, either itself or in a subtype folder.
func (s *Store) Categories() (map[string][]string, error) {
	entries, err := os.ReadDir(s.root)
	if os.IsNotExist(err) {
		return map[string][]string{}, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	out := make(map[string][]string)
	for _, cat := range entries {
		if !cat.IsDir() {
			continue
		}
		catDir := filepath.Join(s.root, cat.Name())
		subs, err := os.ReadDir(catDir)
		if err != nil {
			return nil, errors.NewInternal(err)
		}

		subtypes := []string{}
		for _, sub := range subs {
			if sub.IsDir() && hasTemplates(filepath.Join(catDir, sub.Name())) {
				subtypes = append(subtypes, sub.Name())
			}
		}
		if len(subtypes) > 0 || hasTemplates(catDir) {
			sort.Strings(subtypes)
			out[cat.Name()] = subtypes
		}
	}
	return out, nil
}

// Folders returns every scope that should carry a catalog: a category with
// .docx files at its root, otherwise each of its subtype folders.
func (s *Store) Folders() ([]Scope, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	var out []Scope
	for _, cat := range entries {
		if !cat.IsDir() {
			continue
		}
		catDir := filepath.Join(s.root, cat.Name())
		files, err := docxFiles(catDir)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		if len(files) > 0 {
			out = append(out, Scope{Category: cat.Name()})
			continue
		}
		subs, err := os.ReadDir(catDir)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		for _, sub := range subs {
			if sub.IsDir() {
				out = append(out, Scope{Category: cat.Name(), Subtype: sub.Name()})
			}
		}
	}
	return out, nil
}

func hasTemplates(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, MetadataFile)); err == nil {
		return true
	}
	files, err := docxFiles(dir)
	return err == nil && len(files) > 0
}

func docxFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	files := []string{}
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), Ext) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
