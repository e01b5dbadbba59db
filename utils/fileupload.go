package utils

import (
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"
)

// AllowedDocumentExtensions lists the file types that may be attached to a card
var AllowedDocumentExtensions = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".xls":  true,
	".xlsx": true,
	".csv":  true,
	".txt":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".heic": true,
	".zip":  true,
	".dwg":  true,
	".dxf":  true,
	".vsdx": true,
}

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidateDocumentFile checks the name, size and extension of an uploaded file
func ValidateDocumentFile(fileName string, size, maxBytes int64) error {
	if strings.TrimSpace(fileName) == "" {
		return &FileUploadError{Code: "MISSING_FILE_NAME", Message: "File name is required"}
	}
	if size <= 0 {
		return &FileUploadError{Code: "EMPTY_FILE", Message: "File is empty"}
	}
	if maxBytes > 0 && size > maxBytes {
		return &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", maxBytes>>20),
		}
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if !AllowedDocumentExtensions[ext] {
		allowed := make([]string, 0, len(AllowedDocumentExtensions))
		for e := range AllowedDocumentExtensions {
			allowed = append(allowed, e)
		}
		sort.Strings(allowed)
		return &FileUploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: fmt.Sprintf("Only %s files are allowed", strings.Join(allowed, ", ")),
		}
	}
	return nil
}

// SanitizePathSegment turns user input into a single safe path segment
func SanitizePathSegment(value string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, strings.TrimSpace(value))
	cleaned = strings.Trim(cleaned, ". ")
	if cleaned == "" {
		return "unassigned"
	}
	return cleaned
}

// ContentTypeFor prefers the declared content type and falls back to the extension
func ContentTypeFor(fileName, declared string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(fileName))); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}
