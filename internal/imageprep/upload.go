package imageprep

import (
	"mime"
	"net/http"

	"github.com/vbonduro/nutriscan/internal/domain"
)

// MaxUploadSize is the largest photo accepted from a user.
const MaxUploadSize = 5 * 1024 * 1024

// allowedImageTypes is the set of MIME types accepted for uploaded photos.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. WebP is detected separately because the WHATWG sniff spec does not
// include a WebP signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// DetectMIME returns the sniffed MIME type and true if data is an accepted
// image format.
func DetectMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

// AllowedMIME reports whether a declared MIME type, parameters ignored, is one
// of the accepted image formats.
func AllowedMIME(mimeType string) bool {
	base, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return false
	}
	return base == "image/webp" || allowedImageTypes[base]
}

// CheckSize rejects uploads larger than limit bytes. A non-positive limit
// means MaxUploadSize.
func CheckSize(size, limit int64) error {
	if limit <= 0 {
		limit = MaxUploadSize
	}
	if size > limit {
		return domain.NewValidationError("File is too large. Please upload an image under %dMB.", limit/(1024*1024))
	}
	return nil
}
