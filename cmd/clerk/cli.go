package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/clerk/internal/config"
	"github.com/hpungsan/clerk/internal/errors"
	"github.com/hpungsan/clerk/internal/logger"
	"github.com/hpungsan/clerk/internal/mcp"
	"github.com/hpungsan/clerk/internal/ops"
	"github.com/hpungsan/clerk/internal/session"
	"github.com/hpungsan/clerk/internal/web"
)

// stdout is swapped by tests.
var stdout io.Writer = os.Stdout

// newCLIApp creates the CLI application with all commands.
func newCLIApp(rt *ops.Runtime, cfg *config.Config, log *logger.Logger) *cli.App {
	if log == nil {
		log = logger.Nop()
	}
	app := &cli.App{
		Name:    "clerk",
		Usage:   "Pick a legal template, interview the user and fill it in",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(rt, cfg, log),
			mcpCmd(rt, cfg, log),
			categoriesCmd(rt),
			catalogCmd(rt),
			sectionsCmd(rt),
			summarizeCmd(rt),
			startCmd(rt),
			nextCmd(rt),
			completeCmd(rt),
			documentsCmd(rt),
			deleteCmd(rt),
			purgeCmd(rt),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// serveCmd creates the serve command.
func serveCmd(rt *ops.Runtime, cfg *config.Config, log *logger.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Address to bind (overrides config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port to listen on (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			if bind := c.String("bind"); bind != "" {
				cfg.Bind = bind
			}
			if c.IsSet("port") {
				cfg.Port = c.Int("port")
			}
			srv := web.NewServer(rt, cfg, Version, log)
			return web.Run(srv, log)
		},
	}
}

// mcpCmd creates the mcp command. Piped stdin without a command also runs it.
func mcpCmd(rt *ops.Runtime, cfg *config.Config, log *logger.Logger) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve MCP tools over stdio",
		Action: func(c *cli.Context) error {
			return runMCP(rt, cfg, log)
		},
	}
}

func runMCP(rt *ops.Runtime, cfg *config.Config, log *logger.Logger) error {
	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Warn("unknown tools in disabled_tools", "tools", unknown)
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		log.Warn("unknown types in disabled_types", "types", unknown, "known", mcp.KnownTypes)
	}
	return mcp.Run(rt, cfg, Version)
}

// categoriesCmd creates the categories command.
func categoriesCmd(rt *ops.Runtime) *cli.Command {
	return &cli.Command{
		Name:  "categories",
		Usage: "List template categories and their subtypes",
		Action: func(c *cli.Context) error {
			output, err := ops.Categories(c.Context, rt)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func scopeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Template category"},
		&cli.StringFlag{Name: "subtype", Aliases: []string{"s"}, Usage: "Subtype folder within the category"},
	}
}

// catalogCmd creates the catalog command.
func catalogCmd(rt *ops.Runtime) *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Show the catalog of a category or subtype",
		Flags: scopeFlags(),
		Action: func(c *cli.Context) error {
			output, err := ops.Catalog(c.Context, rt, ops.ScopeInput{
				Category: c.String("category"),
				Subtype:  c.String("subtype"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// sectionsCmd creates the sections command.
func sectionsCmd(rt *ops.Runtime) *cli.Command {
	return &cli.Command{
		Name:      "sections",
		Usage:     `List the "Template for ..." sections of a template`,
		ArgsUsage: "<filename>",
		Flags:     scopeFlags(),
		Action: func(c *cli.Context) error {
			output, err := ops.Sections(c.Context, rt, ops.TemplateInput{
				Category: c.String("category"),
				Subtype:  c.String("subtype"),
				Name:     c.Args().First(),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// summarizeCmd creates the summarize command.
func summarizeCmd(rt *ops.Runtime) *cli.Command {
	return &cli.Command{
		Name:  "summarize",
		Usage: "Generate catalog entries for templates that have none (all folders by default)",
		Flags: scopeFlags(),
		Action: func(c *cli.Context) error {
			output, err := ops.Summarize(c.Context, rt, ops.SummarizeInput{
				Category: c.String("category"),
				Subtype:  c.String("subtype"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// startCmd creates the start command.
func startCmd(rt *ops.Runtime) *cli.Command {
	return &cli.Command{
		Name:      "start",
		Usage:     "Pick a template for an issue and print the first question (issue from args or stdin)",
		ArgsUsage: "[issue...]",
		Flags:     scopeFlags(),
		Action: func(c *cli.Context) error {
			issue := strings.Join(c.Args().Slice(), " ")
			if issue == "" && stdinHasData() {
				text, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				issue = text
			}
			if issue == "" {
				return outputError(errors.NewInvalidRequest("describe the issue as arguments or via stdin"))
			}

			output, err := ops.Start(c.Context, rt, ops.StartInput{
				Category: c.String("category"),
				Subtype:  c.String("subtype"),
				Issue:    issue,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

func selectionFlags() []cli.Flag {
	return append(scopeFlags(),
		&cli.StringFlag{Name: "token", Aliases: []string{"t"}, Usage: "Selection token printed by start"},
		&cli.StringFlag{Name: "filename", Aliases: []string{"f"}, Usage: "Template filename, when no token is given"},
		&cli.StringFlag{Name: "messages", Aliases: []string{"m"}, Usage: `JSON file with the dialogue so far ("-" for stdin)`},
	)
}

// selectionInput reads the selection flags and the transcript file.
func selectionInput(c *cli.Context) (ops.SelectionInput, session.Transcript, error) {
	sel := ops.SelectionInput{
		Token:    c.String("token"),
		Category: c.String("category"),
		Subtype:  c.String("subtype"),
		Filename: c.String("filename"),
	}
	tr, err := readTranscript(c.String("messages"))
	return sel, tr, err
}

// nextCmd creates the next command.
func nextCmd(rt *ops.Runtime) *cli.Command {
	return &cli.Command{
		Name:  "next",
		Usage: "Ask the next question for a dialogue",
		Flags: selectionFlags(),
		Action: func(c *cli.Context) error {
			sel, tr, err := selectionInput(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Next(c.Context, rt, ops.NextInput{SelectionInput: sel, Messages: tr})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// completeCmd creates the complete command.
func completeCmd(rt *ops.Runtime) *cli.Command {
	return &cli.Command{
		Name:  "complete",
		Usage: "Fill the template from a dialogue",
		Flags: append(selectionFlags(),
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Also write the document to this path"},
		),
		Action: func(c *cli.Context) error {
			sel, tr, err := selectionInput(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Complete(c.Context, rt, ops.CompleteInput{SelectionInput: sel, Messages: tr})
			if err != nil {
				return outputError(err)
			}
			if out := c.String("out"); out != "" && output.HasDocument() {
				if err := os.WriteFile(out, output.Data, 0o600); err != nil {
					return outputError(errors.NewInternal(err))
				}
				output.Path = out
			}
			return outputJSON(output)
		},
	}
}

// documentsCmd creates the documents command.
func documentsCmd(rt *ops.Runtime) *cli.Command {
	return &cli.Command{
		Name:  "documents",
		Usage: "List generated documents, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "Filter by category"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListDocuments(c.Context, rt, ops.ListDocumentsInput{
				Category: c.String("category"),
				Limit:    c.Int("limit"),
				Offset:   c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(rt *ops.Runtime) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Mark a generated document deleted",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.DeleteDocument(c.Context, rt, ops.DeleteDocumentInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// purgeCmd creates the purge command.
func purgeCmd(rt *ops.Runtime) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Permanently remove deleted documents and their files",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "older-than", Usage: "Also purge documents created more than N days ago (e.g., 30d)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.PurgeDocumentsInput{}
			if olderThan := c.String("older-than"); olderThan != "" {
				days, err := parseDuration(olderThan)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				input.OlderThanDays = &days
			}

			output, err := ops.PurgeDocuments(c.Context, rt, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	cErr := errors.From(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", cErr.Code, cErr.Message), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// readTranscript loads a JSON array of turns from path, or stdin for "-".
// An empty path is an empty transcript.
func readTranscript(path string) (session.Transcript, error) {
	var data []byte
	var err error
	switch path {
	case "":
		return session.Transcript{}, nil
	case "-":
		data, err = io.ReadAll(os.Stdin)
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return session.Transcript{}, errors.NewInvalidRequest(fmt.Sprintf("read messages: %v", err))
	}

	var tr session.Transcript
	if err := json.Unmarshal(data, &tr); err != nil {
		return session.Transcript{}, errors.NewInvalidRequest(fmt.Sprintf("invalid messages: %v", err))
	}
	return tr, nil
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be non-negative")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 30d")
}
