package services

import (
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"
)

// extractPlain reads a file as UTF-8 text. Binary content (legacy .doc
// and .xls, mostly) is salvaged by keeping printable runs of at least
// four characters, which recovers the prose embedded in those formats.
func extractPlain(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	if utf8.Valid(data) {
		return strings.TrimSpace(string(data)), nil
	}
	return salvageText(data), nil
}

const minSalvageRun = 4

func salvageText(data []byte) string {
	var sb strings.Builder
	var run []byte
	flush := func() {
		if len(run) >= minSalvageRun {
			if sb.Len() > 0 {
				sb.WriteString(" ")
			}
			sb.Write(run)
		}
		run = run[:0]
	}

	for _, b := range data {
		r := rune(b)
		if r == '\n' || r == '\t' || unicode.IsPrint(r) && r < utf8.RuneSelf {
			run = append(run, b)
		} else {
			flush()
		}
	}
	flush()

	return strings.TrimSpace(sb.String())
}
