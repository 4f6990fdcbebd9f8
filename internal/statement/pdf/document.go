// Package pdf reads commission statement PDFs through the pdftotext and
// tabula-java command line tools.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/brokerledger/brokerledger/internal/statement"
)

const magic = "%PDF-"

// Config locates the external extraction tools.
type Config struct {
	PdftotextBin string
	JavaBin      string
	TabulaJar    string
}

func (c Config) withDefaults() Config {
	if c.PdftotextBin == "" {
		c.PdftotextBin = "pdftotext"
	}
	if c.JavaBin == "" {
		c.JavaBin = "java"
	}
	if c.TabulaJar == "" {
		c.TabulaJar = "tabula.jar"
	}
	return c
}

// Runner executes an external command and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Document is a statement PDF on disk. It implements statement.Source.
type Document struct {
	path string
	cfg  Config
	run  Runner
}

// Option customises a Document.
type Option func(*Document)

// WithRunner replaces the command runner.
func WithRunner(run Runner) Option {
	return func(d *Document) {
		if run != nil {
			d.run = run
		}
	}
}

// Open checks that path names a PDF file and prepares it for extraction.
func Open(path string, cfg Config, opts ...Option) (*Document, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return nil, fmt.Errorf("%w: only .pdf files are supported", statement.ErrDocumentFormat)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pdf: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, len(magic))
	if _, err := io.ReadFull(f, head); err != nil || string(head) != magic {
		return nil, fmt.Errorf("%w: invalid pdf format", statement.ErrDocumentFormat)
	}

	doc := &Document{path: path, cfg: cfg.withDefaults(), run: ExecRunner}
	for _, opt := range opts {
		opt(doc)
	}
	return doc, nil
}

// Path returns the file location.
func (d *Document) Path() string {
	return d.path
}

// HeaderText extracts the text of the first page in content-stream order.
func (d *Document) HeaderText(ctx context.Context) (string, error) {
	out, err := d.run(ctx, d.cfg.PdftotextBin, "-f", "1", "-l", "1", "-raw", d.path, "-")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// TableRows extracts the statement table as CSV lines. Header rows, repeated
// at the top of every page, are dropped.
func (d *Document) TableRows(ctx context.Context) ([]string, error) {
	out, err := d.run(ctx, d.cfg.JavaBin, "-jar", d.cfg.TabulaJar, "--pages", "all", "--guess", "--format", "CSV", "--silent", d.path)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(out), "\n")
	rows := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if isHeaderRow(line) {
			continue
		}
		rows = append(rows, line)
	}
	return rows, nil
}

func isHeaderRow(line string) bool {
	squeezed := strings.Join(strings.Fields(strings.ReplaceAll(line, `"`, "")), "")
	return strings.HasPrefix(squeezed, "AppID")
}
