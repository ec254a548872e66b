// Package summarize builds metadata.json catalogs by asking the model for a
// title and summary of every template. Entries already in a catalog are
// reused, so re-running only pays for new files.
package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hpungsan/clerk/internal/config"
	"github.com/hpungsan/clerk/internal/errors"
	"github.com/hpungsan/clerk/internal/gateway"
	"github.com/hpungsan/clerk/internal/logger"
	"github.com/hpungsan/clerk/internal/session"
	"github.com/hpungsan/clerk/internal/templates"
)

const (
	systemPrompt = "You are a legal document analyst."
	userPrompt   = "Below is a legal document template. Generate:\n" +
		"1. A clear, user-friendly title (max 8 words)\n" +
		"2. A concise summary (2-3 sentences max) explaining what the template is used for, " +
		"what legal argument it supports, and any unique context it applies to.\n\n" +
		`Reply with a JSON object {"title": "...", "summary": "..."}.` + "\n\n" +
		"Document content:\n"
)

// Options tunes a run.
type Options struct {
	Params   config.CallParams
	Interval time.Duration // minimum spacing of gateway calls; 0 disables pacing
	Workers  int           // folders processed concurrently
}

// OptionsFromConfig copies the summarizer settings out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Params:   cfg.Summarize,
		Interval: time.Duration(cfg.SummarizeIntervalMillis) * time.Millisecond,
		Workers:  cfg.SummarizeWorkers,
	}
}

// FolderResult reports what happened in one folder.
type FolderResult struct {
	Scope      templates.Scope `json:"scope"`
	Summarized int             `json:"summarized"`
	Cached     int             `json:"cached"`
	Failed     []string        `json:"failed"`
	Total      int             `json:"total"`
}

// Summarizer fills catalogs for a template store.
type Summarizer struct {
	gw    gateway.Gateway
	store *templates.Store
	opts  Options
	log   *logger.Logger
}

// New creates a summarizer.
func New(gw gateway.Gateway, store *templates.Store, opts Options, log *logger.Logger) *Summarizer {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Summarizer{gw: gw, store: store, opts: opts, log: log}
}

func (s *Summarizer) limiter() *rate.Limiter {
	if s.opts.Interval <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(s.opts.Interval), 1)
}

// Run summarizes every folder of the store. A per-file failure is recorded
// and skipped; only context cancellation and catalog write failures abort.
func (s *Summarizer) Run(ctx context.Context) ([]FolderResult, error) {
	folders, err := s.store.Folders()
	if err != nil {
		return nil, err
	}
	return s.run(ctx, folders)
}

// Folders summarizes the given scopes only.
func (s *Summarizer) Folders(ctx context.Context, scopes ...templates.Scope) ([]FolderResult, error) {
	return s.run(ctx, scopes)
}

func (s *Summarizer) run(ctx context.Context, scopes []templates.Scope) ([]FolderResult, error) {
	results := make([]FolderResult, len(scopes))
	limiter := s.limiter()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.opts.Workers)
	for i, scope := range scopes {
		i, scope := i, scope
		eg.Go(func() error {
			res, err := s.folder(egCtx, scope, limiter)
			if err != nil {
				return fmt.Errorf("folder %s: %w", scope, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Summarizer) folder(ctx context.Context, scope templates.Scope, limiter *rate.Limiter) (FolderResult, error) {
	res := FolderResult{Scope: scope, Failed: []string{}}
	dir, err := s.store.Dir(scope)
	if err != nil {
		return res, err
	}
	metaPath := filepath.Join(dir, templates.MetadataFile)

	existing := s.readExisting(metaPath)
	files, err := s.store.Files(scope)
	if err != nil {
		return res, err
	}
	s.log.Info("processing folder", "scope", scope.String(), "files", len(files))

	updated := make([]templates.Descriptor, 0, len(files))
	for _, name := range files {
		if d, ok := existing[name]; ok {
			s.log.Debug("skipping cached template", "scope", scope.String(), "filename", name)
			updated = append(updated, d)
			res.Cached++
			continue
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return res, err
			}
		}
		d, err := s.summarize(ctx, scope, name)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			s.log.Warn("failed to summarize template", "scope", scope.String(), "filename", name, "error", err)
			res.Failed = append(res.Failed, name)
			continue
		}
		updated = append(updated, d)
		res.Summarized++
	}

	data, err := json.MarshalIndent(updated, "", "  ")
	if err != nil {
		return res, errors.NewInternal(err)
	}
	if err := os.WriteFile(metaPath, append(data, '\n'), 0o644); err != nil {
		return res, errors.NewInternal(err)
	}
	s.store.Invalidate(scope)

	res.Total = len(updated)
	s.log.Info("saved catalog", "path", metaPath, "entries", res.Total)
	return res, nil
}

// readExisting loads the current catalog keyed by filename. An unreadable
// catalog is treated as empty.
func (s *Summarizer) readExisting(path string) map[string]templates.Descriptor {
	out := make(map[string]templates.Descriptor)
	data, err := os.ReadFile(path)
	if err != nil {
		return out
	}
	var descs []templates.Descriptor
	if err := json.Unmarshal(data, &descs); err != nil {
		s.log.Warn("could not read existing catalog, starting fresh", "path", path, "error", err)
		return out
	}
	for _, d := range descs {
		if d.Filename != "" {
			out[d.Filename] = d
		}
	}
	return out
}

func (s *Summarizer) summarize(ctx context.Context, scope templates.Scope, name string) (templates.Descriptor, error) {
	doc, err := s.store.Document(ctx, scope, name)
	if err != nil {
		return templates.Descriptor{}, err
	}

	reply, err := s.gw.Complete(ctx, gateway.Request{
		System:      systemPrompt,
		History:     []session.Turn{session.User(userPrompt + doc.Text())},
		Temperature: s.opts.Params.Temperature,
		MaxTokens:   s.opts.Params.MaxTokens,
		JSON:        true,
	})
	if err != nil {
		return templates.Descriptor{}, errors.AsService(err)
	}

	title, summary := parseSummary(reply.Text)
	if title == "" {
		return templates.Descriptor{}, errors.NewMalformedAIOutput("no title in summary reply")
	}
	if summary == "" {
		summary = title
	}
	s.log.Info("summary generated", "scope", scope.String(), "filename", name, "tokens", reply.Usage.TotalTokens)
	return templates.Descriptor{Title: title, Summary: summary, Filename: name}, nil
}

// parseSummary accepts the requested JSON object and falls back to
// "Title: ..." / "Summary: ..." lines. Either may arrive inside a code fence.
func parseSummary(text string) (string, string) {
	var obj struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
	}
	text = gateway.StripCodeFence(text)
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		return strings.TrimSpace(obj.Title), strings.TrimSpace(obj.Summary)
	}

	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return "", ""
	}
	title := strings.TrimSpace(trimLabel(lines[0], "Title:"))
	summary := ""
	if len(lines) > 1 {
		summary = strings.TrimSpace(trimLabel(strings.Join(lines[1:], " "), "Summary:"))
	}
	return title, summary
}

func trimLabel(s, label string) string {
	s = strings.TrimLeft(s, "0123456789.) ")
	if len(s) >= len(label) && strings.EqualFold(s[:len(label)], label) {
		return s[len(label):]
	}
	return s
}
