package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadCategorizesByFolder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "policies", "refunds.md"), "# Refund policy\n\nRefunds within 30 days.")
	writeFile(t, filepath.Join(root, "policies", "shipping.md"), "# Shipping policy\n\nShips in 2 days.")
	writeFile(t, filepath.Join(root, "faq", "returns.md"), "# Returns FAQ\n\nHow do I return an item?")

	docs, err := New(root, "", zap.NewNop()).Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(docs))
	}

	// Deterministic order: doc_type, then path.
	if docs[0].DocType != "faq" || docs[1].DocType != "policies" || docs[2].DocType != "policies" {
		t.Errorf("unexpected doc types: %s, %s, %s", docs[0].DocType, docs[1].DocType, docs[2].DocType)
	}
	if docs[0].Title != "Returns FAQ" {
		t.Errorf("expected title from heading, got %q", docs[0].Title)
	}
	if !strings.Contains(docs[0].Content, "return an item") {
		t.Errorf("document content missing: %q", docs[0].Content)
	}
}

func TestLoadSkipsRootLevelFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "README.md"), "# Not a category")
	writeFile(t, filepath.Join(root, "guides", "intro.md"), "# Intro\n\nWelcome.")

	docs, err := New(root, "", zap.NewNop()).Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].DocType != "guides" {
		t.Errorf("expected doc type guides, got %s", docs[0].DocType)
	}
}

func TestLoadMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"), "", zap.NewNop()).Load(context.Background())
	if !errors.Is(err, ErrMissingRoot) {
		t.Fatalf("expected ErrMissingRoot, got %v", err)
	}
}

func TestLoadRootIsFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "kb")
	writeFile(t, root, "not a directory")

	_, err := New(root, "", zap.NewNop()).Load(context.Background())
	if !errors.Is(err, ErrMissingRoot) {
		t.Fatalf("expected ErrMissingRoot for non-directory root, got %v", err)
	}
}

func TestLoadPatternFiltering(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "notes", "keep.md"), "# Keep")
	writeFile(t, filepath.Join(root, "notes", "skip.txt"), "plain text")
	writeFile(t, filepath.Join(root, "notes", "skip.go"), "package notes")

	docs, err := New(root, "", zap.NewNop()).Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if filepath.Base(docs[0].Source) != "keep.md" {
		t.Errorf("wrong document loaded: %s", docs[0].Source)
	}
}

func TestLoadNestedFolders(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "guides", "advanced", "deep.md"), "# Deep guide\n\nNested content.")

	docs, err := New(root, "", zap.NewNop()).Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	// The doc type is the top-level category, not the nested folder.
	if docs[0].DocType != "guides" {
		t.Errorf("expected doc type guides, got %s", docs[0].DocType)
	}
}

func TestLoadConvertsHTML(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "manuals", "setup.html"),
		"<html><head><title>Setup Guide</title></head><body><h1>Setup</h1><p>Plug it in.</p></body></html>")

	docs, err := New(root, "", zap.NewNop()).Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].Title != "Setup Guide" {
		t.Errorf("expected title from <title>, got %q", docs[0].Title)
	}
	if strings.Contains(docs[0].Content, "<p>") {
		t.Errorf("content still contains HTML: %q", docs[0].Content)
	}
	if !strings.Contains(docs[0].Content, "Plug it in.") {
		t.Errorf("content lost during conversion: %q", docs[0].Content)
	}
}

func TestLoadSkipsUnreadableFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "faq", "good.md"), "# Good\n\nReadable content.")
	// A dangling symlink matches the pattern but cannot be read.
	if err := os.Symlink(filepath.Join(root, "gone.md"), filepath.Join(root, "faq", "broken.md")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	docs, err := New(root, "", zap.NewNop()).Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected the unreadable file to be skipped, got %d docs", len(docs))
	}
	if filepath.Base(docs[0].Source) != "good.md" {
		t.Errorf("wrong document survived: %s", docs[0].Source)
	}
}

func TestMarkdownTitleFallsBackToFilename(t *testing.T) {
	title := markdownTitle("", "/kb/faq/returns-and-refunds.md")
	if title != "returns-and-refunds" {
		t.Errorf("expected filename stem, got %q", title)
	}
}
