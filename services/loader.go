package services

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// Loader discovers corpus files on disk and turns them into plain text.
// Extraction is format-specific with a generic salvage fallback, so an
// unknown extension degrades to "whatever readable text is in there"
// instead of failing the whole reindex.
type Loader struct {
	excluded map[string]bool
}

func NewLoader(excluded map[string]bool) *Loader {
	if excluded == nil {
		excluded = make(map[string]bool)
	}
	return &Loader{excluded: excluded}
}

// ListFiles walks root and returns every regular file whose extension is
// not excluded. Hidden files and directories are skipped.
func (l *Loader) ListFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if l.excluded[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return files, nil
}

// ExtractFile returns the plain text content of a single file.
func (l *Loader) ExtractFile(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(path)
	case ".docx":
		return extractDOCX(path)
	case ".eml":
		return extractEML(path)
	case ".xlsx", ".xlsm":
		return extractXLSX(path)
	default:
		// .txt, .doc, .xls and anything else go through the generic path.
		return extractPlain(path)
	}
}
