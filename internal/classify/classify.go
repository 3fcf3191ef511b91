// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify partitions dropped input files into workspace
// categories: figures, data, convertible documents, manuscripts, and
// unsupported leftovers.
package classify

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/manuscript-engine/pkg/types"
)

// Extension sets per category. A file matches at most one set; manuscript
// wins over document so .tex inputs reach the drafts area.
var (
	figureExts = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
		".bmp": true, ".tiff": true, ".tif": true, ".svg": true,
		".webp": true, ".ico": true,
	}

	dataExts = map[string]bool{
		".csv": true, ".json": true, ".txt": true, ".xlsx": true,
		".xls": true, ".tsv": true, ".xml": true, ".yaml": true,
		".yml": true, ".sql": true,
	}

	documentExts = map[string]bool{
		".md": true, ".docx": true, ".pdf": true, ".html": true,
		".htm": true, ".odt": true,
	}

	manuscriptExts = map[string]bool{
		".tex": true,
	}
)

// Magic prefixes for content sniffing of extension-less or unknown files.
var magicPrefixes = []struct {
	prefix   []byte
	category types.Category
}{
	{[]byte("\x89PNG\r\n\x1a\n"), types.CategoryFigure},
	{[]byte("\xff\xd8\xff"), types.CategoryFigure},
	{[]byte("GIF87a"), types.CategoryFigure},
	{[]byte("GIF89a"), types.CategoryFigure},
	{[]byte("%PDF"), types.CategoryDocument},
	{[]byte("PK\x03\x04"), types.CategoryDocument},
}

// Partition is the classifier output: every input path appears in exactly
// one category list.
type Partition struct {
	Figures     []types.Artifact
	Data        []types.Artifact
	Documents   []types.Artifact
	Manuscripts []types.Artifact
	Unsupported []types.Artifact
}

// All returns every artifact in deterministic (path-sorted within
// category, category-major) order.
func (p Partition) All() []types.Artifact {
	out := make([]types.Artifact, 0,
		len(p.Figures)+len(p.Data)+len(p.Documents)+len(p.Manuscripts)+len(p.Unsupported))
	out = append(out, p.Figures...)
	out = append(out, p.Data...)
	out = append(out, p.Documents...)
	out = append(out, p.Manuscripts...)
	out = append(out, p.Unsupported...)
	return out
}

// Count returns the total number of classified artifacts.
func (p Partition) Count() int {
	return len(p.Figures) + len(p.Data) + len(p.Documents) +
		len(p.Manuscripts) + len(p.Unsupported)
}

// Classify assigns each path to a category. Input order is irrelevant:
// paths are sorted first so the same set always yields the same
// partition. Classification never touches the files beyond a short read
// for content sniffing and never relocates anything.
func Classify(paths []string) Partition {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	var p Partition
	for _, path := range sorted {
		a := types.Artifact{Path: path, Category: categorize(path)}
		switch a.Category {
		case types.CategoryFigure:
			p.Figures = append(p.Figures, a)
		case types.CategoryData:
			p.Data = append(p.Data, a)
		case types.CategoryDocument:
			p.Documents = append(p.Documents, a)
		case types.CategoryManuscript:
			p.Manuscripts = append(p.Manuscripts, a)
		default:
			p.Unsupported = append(p.Unsupported, a)
		}
	}
	return p
}

// ScanDir classifies every regular file in dir. A missing directory
// yields an empty partition.
func ScanDir(dir string) (Partition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Partition{}, nil
		}
		return Partition{}, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return Classify(paths), nil
}

func categorize(path string) types.Category {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case manuscriptExts[ext]:
		return types.CategoryManuscript
	case figureExts[ext]:
		return types.CategoryFigure
	case dataExts[ext]:
		return types.CategoryData
	case documentExts[ext]:
		return types.CategoryDocument
	}
	return sniff(path)
}

// sniff reads the first bytes of a file with an unknown extension and
// matches known magic prefixes. Unreadable or unrecognized files are
// unsupported, never an error.
func sniff(path string) types.Category {
	f, err := os.Open(path)
	if err != nil {
		return types.CategoryUnsupported
	}
	defer f.Close()

	header := make([]byte, 8)
	n, _ := f.Read(header)
	header = header[:n]

	for _, m := range magicPrefixes {
		if bytes.HasPrefix(header, m.prefix) {
			return m.category
		}
	}
	return types.CategoryUnsupported
}
