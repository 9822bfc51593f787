package services

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"strings"
)

// extractEML flattens an RFC 5322 message to text: a few headers, then
// every text/* body part. HTML-only messages fall back to the HTML part
// with the markup left in, which still chunks and embeds usefully.
func extractEML(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open email %s: %w", path, err)
	}
	defer f.Close()

	msg, err := mail.ReadMessage(f)
	if err != nil {
		return "", fmt.Errorf("failed to parse email %s: %w", path, err)
	}

	var sb strings.Builder
	for _, header := range []string{"Subject", "From", "To", "Date"} {
		if value := msg.Header.Get(header); value != "" {
			sb.WriteString(header)
			sb.WriteString(": ")
			sb.WriteString(value)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")

	if err := writeMailBody(&sb, msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body); err != nil {
		return "", fmt.Errorf("failed to read body of %s: %w", path, err)
	}

	return strings.TrimSpace(sb.String()), nil
}

func writeMailBody(sb *strings.Builder, contentType, transferEncoding string, body io.Reader) error {
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return fmt.Errorf("multipart message without boundary")
		}
		reader := multipart.NewReader(body, boundary)
		for {
			part, err := reader.NextPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			err = writeMailBody(sb, part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part)
			part.Close()
			if err != nil {
				return err
			}
		}
	}

	if !strings.HasPrefix(mediaType, "text/") {
		return nil
	}

	var decoded io.Reader = body
	switch strings.ToLower(strings.TrimSpace(transferEncoding)) {
	case "quoted-printable":
		decoded = quotedprintable.NewReader(body)
	case "base64":
		decoded = base64.NewDecoder(base64.StdEncoding, body)
	}

	content, err := io.ReadAll(decoded)
	if err != nil {
		return err
	}
	sb.Write(content)
	sb.WriteString("\n")
	return nil
}
