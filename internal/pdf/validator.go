package pdf

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/paperlens-ai/paperlens/internal/domain"
)

// pdfMagic is the header every PDF file starts with.
var pdfMagic = []byte("%PDF-")

// Validator provides input validation for uploaded PDF files.
type Validator struct {
	maxSize int64
}

// NewValidator creates a validator enforcing the given size limit in bytes.
func NewValidator(maxSize int64) *Validator {
	return &Validator{maxSize: maxSize}
}

// MaxSize returns the configured upload size limit.
func (v *Validator) MaxSize() int64 {
	return v.maxSize
}

// Validate checks an uploaded file's name, size and content header.
func (v *Validator) Validate(filename string, size int64, content []byte) error {
	if strings.TrimSpace(filename) == "" {
		return domain.ValidationError("filename cannot be empty", nil)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext != ".pdf" {
		return domain.ValidationError("Invalid file format. Please upload a PDF file.", nil)
	}

	if size > v.maxSize {
		return domain.ValidationError(
			fmt.Sprintf("File size exceeds %dMB limit.", v.maxSize/(1024*1024)), nil)
	}

	if len(content) < len(pdfMagic) || !bytes.HasPrefix(content, pdfMagic) {
		return domain.ValidationError("Invalid file format. Please upload a PDF file.", nil)
	}

	return nil
}
