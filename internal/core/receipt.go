package core

import (
	"errors"
	"strings"
)

// ErrInvalidExtension is the recoverable validation failure for a receipt
// whose extension is not accepted. Its text is the exact inline message shown
// next to the file input.
var ErrInvalidExtension = errors.New("Please upload a file with a valid extension: jpg, jpeg or png")

var allowedExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
}

// ReceiptFileName strips any directory prefix from a selected file path.
// Browsers may report a full client-side path with either separator.
func ReceiptFileName(path string) string {
	if i := strings.LastIndexAny(path, `\/`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// FileExtension returns the last dot-delimited segment of name, lowercased.
// A name without a dot yields the whole name, which then simply fails the
// allowed-set check.
func FileExtension(name string) string {
	parts := strings.Split(name, ".")
	return strings.ToLower(parts[len(parts)-1])
}

// ValidateReceiptName checks the selected receipt file name against the
// allowed extension set {jpg, jpeg, png}, case-insensitively. A rejection is
// ErrInvalidExtension: user-correctable, no upload must be attempted.
func ValidateReceiptName(name string) error {
	if !allowedExtensions[FileExtension(name)] {
		return ErrInvalidExtension
	}
	return nil
}

// ReceiptContentType maps an accepted extension to its MIME type. Unknown
// extensions fall back to a generic binary type; they never reach storage
// through the validated path anyway.
func ReceiptContentType(name string) string {
	switch FileExtension(name) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}
