// Package storage provides database models and repositories for PaperLens.
package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/paperlens-ai/paperlens/internal/domain"
)

// User represents an account that can log in and own analyses.
type User struct {
	ID               uuid.UUID
	Username         string
	Email            string
	PasswordHash     string
	IsAdmin          bool
	SessionID        string
	SessionExpiresAt *time.Time
	LastLoginIP      string
	LoginAttempts    int
	LockedUntil      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PaperAnalysis stores one analyzed paper: the uploaded PDF's location and
// the structured summary returned by the LLM.
type PaperAnalysis struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	Title            string
	OriginalFilename string
	StoredPath       string
	FileSizeBytes    int64
	SHA256           string

	Summary domain.Summary

	// AnalysisData keeps the complete LLM response for forward compatibility
	// with prompt changes.
	AnalysisData json.RawMessage

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FileSizeMB returns the stored PDF size in megabytes, rounded to 2 decimals.
func (p *PaperAnalysis) FileSizeMB() float64 {
	return float64(int64(float64(p.FileSizeBytes)/(1024*1024)*100+0.5)) / 100
}

// DisplayTitle returns the title, falling back to the original filename.
func (p *PaperAnalysis) DisplayTitle() string {
	if p.Title != "" {
		return p.Title
	}
	return p.OriginalFilename
}
