package main

// Ingest and query documents from the command line:
//   go run ./cmd/docflow ingest --owner guest:me ./invoice.pdf
//   go run ./cmd/docflow ask "What is the total?"

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"docflow-backend/internal/bootstrap"
	"docflow-backend/internal/documents"
	"docflow-backend/internal/ingest"
	"docflow-backend/internal/shared/config"
	"docflow-backend/internal/shared/telemetry"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "docflow",
		Usage:  "ingest documents and ask questions about them",
		Writer: out,
		Before: func(c *cli.Context) error {
			telemetry.Init(config.Load().Env)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "store, extract, enrich and persist one or more files",
				ArgsUsage: "<path>...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "owner", Usage: "owner user id", Required: true},
					&cli.BoolFlag{Name: "categorize-only", Usage: "skip summary and suggested queries"},
				},
				Action: ingestAction,
			},
			{
				Name:      "ask",
				Usage:     "answer a question from the most recent document",
				ArgsUsage: "<question>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "owner", Usage: "owner user id, required with --document"},
					&cli.StringFlag{Name: "document", Usage: "document id to ask about"},
				},
				Action: askAction,
			},
		},
	}
}

func buildApp() (*bootstrap.App, error) {
	cfg := config.Load()
	return bootstrap.Build(cfg)
}

func ingestAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one file path is required")
	}
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	owner := c.String("owner")
	if _, err := app.UsersService.Resolve(c.Context, owner, true); err != nil {
		return fmt.Errorf("resolve owner: %w", err)
	}

	opts := ingest.FullOptions()
	if c.Bool("categorize-only") {
		opts = ingest.CategorizeOptions()
	}
	for _, path := range c.Args().Slice() {
		doc, err := ingestFile(c, app.Pipeline, path, owner, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		printDocument(c.App.Writer, doc)
	}
	return nil
}

func ingestFile(c *cli.Context, p *ingest.Pipeline, path, owner string, opts ingest.Options) (documents.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return documents.Document{}, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return documents.Document{}, err
	}
	return p.IngestWith(c.Context, &ingest.UploadedFile{
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: contentTypeFor(path),
		Content:     f,
	}, owner, opts)
}

func askAction(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return errors.New("a question is required")
	}
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.Close()

	var answer string
	if docID := c.String("document"); docID != "" {
		answer, err = app.Pipeline.AnswerFor(c.Context, c.String("owner"), docID, question)
	} else {
		answer, err = app.Pipeline.Answer(c.Context, question)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, answer)
	return err
}

func printDocument(w io.Writer, doc documents.Document) {
	fmt.Fprintf(w, "%s\t%s\t%s/%s\n", doc.ID, doc.FileName, doc.Category, doc.SubCategory)
	if doc.Summary != "" {
		fmt.Fprintf(w, "  summary: %s\n", doc.Summary)
	}
	for _, q := range doc.SuggestedQueries {
		fmt.Fprintf(w, "  - %s\n", q)
	}
}

func contentTypeFor(path string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		if i := strings.Index(ct, ";"); i >= 0 {
			ct = ct[:i]
		}
		return ct
	}
	return "application/octet-stream"
}
