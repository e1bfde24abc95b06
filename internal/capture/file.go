package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kanjo-app/kanjo/internal/scanning"
)

// ReadFile loads a receipt image from disk for a file-fed session. PDFs
// and HEIC shots are converted to PNG first so the result always carries
// a MIME type the session accepts.
func ReadFile(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading capture file: %w", err)
	}

	contentType := contentTypeForExt(filepath.Ext(path))
	normalized, finalType, converted, err := scanning.NormalizeImage(data, contentType)
	if err != nil {
		return nil, "", fmt.Errorf("normalizing capture file: %w", err)
	}
	if converted {
		return normalized, finalType, nil
	}
	return data, contentType, nil
}

func contentTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".pdf":
		return "application/pdf"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	default:
		return "application/octet-stream"
	}
}
