// cmd/tools/index-builder/documents.go
package main

import (
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	ks "clinical-decision-pipeline/internal/pipeline/knowledge-store"
)

const defaultPattern = "**/*.{txt,md}"

// pageBreak separates pages in text extracted from PDFs (pdftotext -layout).
const pageBreak = "\f"

// findDocuments returns the sorted, de-duplicated paths under root matching
// any of the patterns.
func findDocuments(fsys fs.FS, patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid pattern %q", p)
		}
		matches, err := doublestar.Glob(fsys, p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", p, err)
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

// chunkDocuments reads each document and splits it page by page. The source
// recorded on each chunk is the path relative to the document root.
func chunkDocuments(fsys fs.FS, paths []string, chunker *ks.Chunker) ([]ks.DocumentChunk, error) {
	var chunks []ks.DocumentChunk
	for _, p := range paths {
		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		for i, page := range strings.Split(string(raw), pageBreak) {
			chunks = append(chunks, chunker.Split(page, p, i+1)...)
		}
	}
	return chunks, nil
}

func loadDocuments(root string, patterns []string, chunker *ks.Chunker) ([]string, []ks.DocumentChunk, error) {
	fsys := os.DirFS(root)
	paths, err := findDocuments(fsys, patterns)
	if err != nil {
		return nil, nil, err
	}
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("no documents under %s match %s", root, strings.Join(patterns, ", "))
	}
	chunks, err := chunkDocuments(fsys, paths, chunker)
	return paths, chunks, err
}
