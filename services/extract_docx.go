package services

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// extractDOCX reads word/document.xml out of the OOXML archive and
// flattens it to text, one line per paragraph.
func extractDOCX(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("failed to open DOCX %s: %w", path, err)
	}
	defer archive.Close()

	var doc io.ReadCloser
	for _, file := range archive.File {
		if file.Name == "word/document.xml" {
			doc, err = file.Open()
			if err != nil {
				return "", fmt.Errorf("failed to read document body of %s: %w", path, err)
			}
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("%s has no word/document.xml", path)
	}
	defer doc.Close()

	var sb strings.Builder
	decoder := xml.NewDecoder(doc)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("malformed DOCX body in %s: %w", path, err)
		}
		switch t := token.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			if t.Name.Local == "tab" {
				sb.WriteString("\t")
			}
			if t.Name.Local == "br" {
				sb.WriteString("\n")
			}
		case xml.EndElement:
			if t.Name.Local == "p" {
				sb.WriteString("\n")
			}
		}
	}

	return strings.TrimSpace(sb.String()), nil
}
