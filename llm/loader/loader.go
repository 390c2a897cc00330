// Package loader reads the knowledge base from disk. The root directory's
// immediate subdirectories are category folders; every markdown (or HTML)
// file below a category folder becomes one document tagged with that
// category as its doc_type.
package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"docent/llm"
)

// ErrMissingRoot is returned when the knowledge base root directory does not
// exist. Ingestion treats this as fatal.
var ErrMissingRoot = errors.New("knowledge base root directory does not exist")

// DefaultPattern matches the file types the loader understands.
const DefaultPattern = "**/*.{md,markdown,html,htm}"

// Loader collects documents from a knowledge base directory tree.
type Loader struct {
	root      string
	pattern   string
	logger    *zap.Logger
	converter *md.Converter
}

// New creates a loader for the given root. pattern is a doublestar glob
// matched against paths relative to each category folder; empty means
// DefaultPattern.
func New(root, pattern string, logger *zap.Logger) *Loader {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		root:      root,
		pattern:   pattern,
		logger:    logger,
		converter: md.NewConverter("", true, nil),
	}
}

// Load walks the knowledge base and returns all readable documents in a
// deterministic order. A missing root aborts with ErrMissingRoot; an
// unreadable file is logged and skipped.
func (l *Loader) Load(ctx context.Context) ([]llm.Document, error) {
	info, err := os.Stat(l.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingRoot, l.root)
		}
		return nil, fmt.Errorf("failed to stat knowledge base root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrMissingRoot, l.root)
	}

	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge base root: %w", err)
	}

	var docs []llm.Document
	for _, entry := range entries {
		if !entry.IsDir() {
			// Files directly under the root have no category; skip them.
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		categoryDocs, err := l.loadCategory(entry.Name())
		if err != nil {
			return nil, err
		}
		docs = append(docs, categoryDocs...)
	}

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].DocType != docs[j].DocType {
			return docs[i].DocType < docs[j].DocType
		}
		return docs[i].Source < docs[j].Source
	})

	l.logger.Info("knowledge base loaded",
		zap.String("root", l.root),
		zap.Int("documents", len(docs)))
	return docs, nil
}

// loadCategory collects the documents of one category folder.
func (l *Loader) loadCategory(category string) ([]llm.Document, error) {
	dir := filepath.Join(l.root, category)

	var docs []llm.Document
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			l.logger.Warn("skipping unreadable path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		ok, err := doublestar.Match(l.pattern, filepath.ToSlash(rel))
		if err != nil {
			return fmt.Errorf("bad file pattern %q: %w", l.pattern, err)
		}
		if !ok {
			return nil
		}

		doc, err := l.readDocument(path, category)
		if err != nil {
			l.logger.Warn("skipping unreadable file", zap.String("path", path), zap.Error(err))
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// readDocument reads one file, decodes its character encoding to UTF-8, and
// converts HTML to markdown.
func (l *Loader) readDocument(path, category string) (llm.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return llm.Document{}, fmt.Errorf("failed to read file: %w", err)
	}

	reader, err := charset.NewReader(bytes.NewReader(raw), "")
	if err != nil {
		return llm.Document{}, fmt.Errorf("failed to detect encoding: %w", err)
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return llm.Document{}, fmt.Errorf("failed to decode file: %w", err)
	}

	content := string(decoded)
	title := ""

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".html" || ext == ".htm" {
		title = htmlTitle(content)
		content, err = l.converter.ConvertString(content)
		if err != nil {
			return llm.Document{}, fmt.Errorf("failed to convert HTML: %w", err)
		}
	}
	if title == "" {
		title = markdownTitle(content, path)
	}

	return llm.Document{
		Content: strings.TrimSpace(content),
		Source:  path,
		DocType: category,
		Title:   title,
	}, nil
}

// htmlTitle pulls the page title, falling back to the first h1.
func htmlTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// markdownTitle returns the first heading, or the first short non-empty
// line, or the file name.
func markdownTitle(content, path string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimSpace(strings.TrimLeft(line, "#"))
		if line != "" && len(line) < 100 {
			return line
		}
		break
	}

	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
