package handlers

import (
	"path/filepath"
	"strings"
)

// Accepted input media. Anything else is rejected with 415 before any bytes
// are spooled.
var videoMIMETypes = map[string]string{
	".mp4": "video/mp4",
	".mov": "video/quicktime",
	".avi": "video/x-msvideo",
	".mkv": "video/x-matroska",
}

var imageMIMETypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// mediaType resolves a filename against the allowed extension set, returning
// the extension, the MIME type to upload with, and whether it is accepted.
func mediaType(filename string, allowed map[string]string) (ext, mimeType string, ok bool) {
	ext = strings.ToLower(filepath.Ext(filename))
	mimeType, ok = allowed[ext]
	return ext, mimeType, ok
}
