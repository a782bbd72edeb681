// Package extract turns uploaded PDF and plain-text files into raw text.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/charmap"
)

const (
	MaxPDFPages  = 100
	MaxTextBytes = 10 << 20
)

var (
	ErrUnsupported       = errors.New("unsupported file type, only .pdf and .txt files are supported")
	ErrTooLarge          = errors.New("document too large")
	ErrNoExtractableText = errors.New("document contains no extractable text")
	ErrCorrupted         = errors.New("file is empty or corrupted")
	ErrEncrypted         = errors.New("pdf is password-protected, please upload an unencrypted pdf")
)

// Extractor dispatches on the file extension. The zero value is ready to use.
type Extractor struct {
	MaxPages     int
	MaxTextBytes int
}

func New() *Extractor {
	return &Extractor{MaxPages: MaxPDFPages, MaxTextBytes: MaxTextBytes}
}

func (e *Extractor) Extract(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return e.extractPDF(data)
	case ".txt":
		return e.extractText(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, filename)
	}
}

func (e *Extractor) extractText(data []byte) (string, error) {
	limit := e.MaxTextBytes
	if limit <= 0 {
		limit = MaxTextBytes
	}
	if len(data) > limit {
		return "", fmt.Errorf("%w: %.1fMB, maximum allowed is %dMB", ErrTooLarge, float64(len(data))/(1<<20), limit>>20)
	}

	text := string(data)
	if !utf8.Valid(data) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("decode latin-1 text failed: %w", err)
		}
		text = string(decoded)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: txt file is empty", ErrNoExtractableText)
	}
	return text, nil
}

func (e *Extractor) extractPDF(data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", ErrCorrupted
	}
	// The pdf package panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrCorrupted, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "encrypt") || strings.Contains(strings.ToLower(err.Error()), "password") {
			return "", ErrEncrypted
		}
		return "", fmt.Errorf("%w: %v", ErrCorrupted, err)
	}

	maxPages := e.MaxPages
	if maxPages <= 0 {
		maxPages = MaxPDFPages
	}
	if pages := reader.NumPage(); pages > maxPages {
		return "", fmt.Errorf("%w: %d pages, maximum allowed is %d pages", ErrTooLarge, pages, maxPages)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if strings.TrimSpace(string(out)) == "" {
		return "", fmt.Errorf("%w: this might be a scanned or image-based pdf", ErrNoExtractableText)
	}
	return string(out), nil
}
