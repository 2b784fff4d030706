package constants

import "strings"

// Format is the declared document format of a window sticker.
type Format string

// Stable values (recorded in reports and logs).
const (
	PDF   Format = "PDF"
	IMAGE Format = "IMAGE"
)

// AllowedExtensions holds the default allowed file extensions for sticker ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"tif":  {},
	"tiff": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat maps a normalized file extension to a document format.
// Returns "" for extensions the pipeline does not handle.
func MapExtToFormat(ext string) Format {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "jpg", "jpeg", "png", "tif", "tiff":
		return IMAGE
	default:
		return ""
	}
}
