package portal

import "bytes"

// DetectExtension classifies downloaded attachment bytes by their magic
// numbers. Zip containers holding a word/ directory are docx; other zip or
// unrecognized content falls back to the legacy .doc extension, matching
// how the portal serves untyped attachments.
func DetectExtension(content []byte) string {
	if bytes.HasPrefix(content, []byte("%PDF")) {
		return ".pdf"
	}
	if bytes.HasPrefix(content, []byte("PK\x03\x04")) {
		if bytes.Contains(content, []byte("word/")) {
			return ".docx"
		}
	}
	return ".doc"
}
