package extractor

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SupportedTypes lists the file extensions the indexing pipeline accepts.
var SupportedTypes = []string{".pdf", ".docx", ".txt", ".md"}

// FileType returns the lowercase extension of filename, or an error when the
// format is not supported.
func FileType(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, supported := range SupportedTypes {
		if ext == supported {
			return ext, nil
		}
	}
	return "", fmt.Errorf("unsupported file type %q (supported: %s)", ext, strings.Join(SupportedTypes, ", "))
}

// Extract dispatches to the format-specific extractor based on the filename
// extension and returns the document's plain text.
func Extract(filename string, data []byte) (string, error) {
	ext, err := FileType(filename)
	if err != nil {
		return "", err
	}

	switch ext {
	case ".pdf":
		return ExtractPDF(data)
	case ".docx":
		return ExtractDOCX(data)
	case ".txt", ".md":
		return ExtractTXT(data)
	default:
		return "", fmt.Errorf("unsupported file type %q", ext)
	}
}
