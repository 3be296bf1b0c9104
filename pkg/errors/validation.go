package errors

import (
	"strings"
	"unicode"
)

// ValidateEcosystem validates a packaging ecosystem identifier.
// Ecosystem names are interpolated into graph queries, so the validation
// is intentionally conservative: lowercase letters, digits, and hyphens
// only, resembling "npm", "pypi", or "maven".
func ValidateEcosystem(ecosystem string) error {
	if ecosystem == "" {
		return New(ErrCodeInvalidEcosystem, "ecosystem cannot be empty")
	}
	if len(ecosystem) > 64 {
		return New(ErrCodeInvalidEcosystem, "ecosystem too long (max 64 characters)")
	}
	for _, r := range ecosystem {
		if !unicode.IsLower(r) && !unicode.IsDigit(r) && r != '-' {
			return New(ErrCodeInvalidEcosystem, "ecosystem contains invalid character %q", r)
		}
	}
	return nil
}

// ValidatePackageName validates a package name for safety and correctness.
// It rejects names that could be used for query injection or path traversal.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No quote characters (package names become graph-query literals)
//   - No path traversal sequences (.., //, etc.)
//   - Maximum length of 256 characters
//
// Ecosystem-specific validation is the upstream resolver's responsibility.
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "package name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "package name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "package name contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash
		"'",    // Query-literal delimiter
		"\"",   // Query-literal delimiter
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidInput, "package name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidateManifestFilename validates a manifest filename for safety.
// It ensures the filename is a simple basename without path components.
func ValidateManifestFilename(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidManifest, "manifest filename cannot be empty")
	}

	// Must be a simple filename, not a path
	if strings.ContainsAny(filename, "/\\") {
		return New(ErrCodeInvalidManifest, "manifest filename cannot contain path separators")
	}

	return nil
}

// ValidateRequestID validates an externally supplied request identifier.
// Request ids key the persisted report, so the same conservative rules as
// package names apply plus a stricter character set.
func ValidateRequestID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidRequest, "request id cannot be empty")
	}
	if len(id) > 128 {
		return New(ErrCodeInvalidRequest, "request id too long (max 128 characters)")
	}
	for _, r := range id {
		ok := unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_'
		if !ok {
			return New(ErrCodeInvalidRequest, "request id contains invalid character %q", r)
		}
	}
	return nil
}
