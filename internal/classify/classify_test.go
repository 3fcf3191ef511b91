// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package classify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pdiddy/manuscript-engine/pkg/types"
)

func TestClassify_Categories(t *testing.T) {
	tests := []struct {
		path string
		want types.Category
	}{
		{"figure1.png", types.CategoryFigure},
		{"photo.JPG", types.CategoryFigure},
		{"diagram.svg", types.CategoryFigure},
		{"results.csv", types.CategoryData},
		{"config.yaml", types.CategoryData},
		{"notes.txt", types.CategoryData},
		{"paper.pdf", types.CategoryDocument},
		{"report.docx", types.CategoryDocument},
		{"page.html", types.CategoryDocument},
		{"readme.md", types.CategoryDocument},
		{"main.tex", types.CategoryManuscript},
		{"binary.exe", types.CategoryUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			p := Classify([]string{tt.path})
			all := p.All()
			if len(all) != 1 {
				t.Fatalf("expected 1 artifact, got %d", len(all))
			}
			if all[0].Category != tt.want {
				t.Errorf("category = %q, want %q", all[0].Category, tt.want)
			}
		})
	}
}

func TestClassify_EveryFileInExactlyOneCategory(t *testing.T) {
	paths := []string{
		"a.png", "b.csv", "c.docx", "d.tex", "e.unknown", "f.json", "g.pdf",
	}
	p := Classify(paths)

	if p.Count() != len(paths) {
		t.Fatalf("count = %d, want %d", p.Count(), len(paths))
	}

	seen := make(map[string]int)
	for _, a := range p.All() {
		seen[a.Path]++
	}
	for _, path := range paths {
		if seen[path] != 1 {
			t.Errorf("%s appears %d times, want 1", path, seen[path])
		}
	}
}

func TestClassify_DeterministicAcrossOrder(t *testing.T) {
	forward := []string{"z.png", "a.csv", "m.pdf", "q.weird", "b.tex"}
	reversed := []string{"b.tex", "q.weird", "m.pdf", "a.csv", "z.png"}

	p1 := Classify(forward)
	p2 := Classify(reversed)

	if diff := cmp.Diff(p1, p2); diff != "" {
		t.Errorf("partition differs by input order (-forward +reversed):\n%s", diff)
	}
}

func TestSniff_MagicBytes(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   types.Category
	}{
		{"png header", []byte("\x89PNG\r\n\x1a\nrest"), types.CategoryFigure},
		{"jpeg header", []byte("\xff\xd8\xff\xe0data"), types.CategoryFigure},
		{"pdf header", []byte("%PDF-1.7\n"), types.CategoryDocument},
		{"zip header", []byte("PK\x03\x04data"), types.CategoryDocument},
		{"plain bytes", []byte("hello world"), types.CategoryUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			// No extension, so classification must fall back to sniffing.
			path := filepath.Join(dir, "blob")
			if err := os.WriteFile(path, tt.header, 0o644); err != nil {
				t.Fatal(err)
			}
			p := Classify([]string{path})
			got := p.All()[0].Category
			if got != tt.want {
				t.Errorf("category = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestScanDir_MissingDirectory(t *testing.T) {
	p, err := ScanDir(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Count() != 0 {
		t.Errorf("expected empty partition, got %d artifacts", p.Count())
	}
}

func TestScanDir_SkipsSubdirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "fig.png"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}

	p, err := ScanDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if p.Count() != 1 {
		t.Errorf("count = %d, want 1", p.Count())
	}
}
