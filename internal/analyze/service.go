// Package analyze orchestrates the paper analysis pipeline:
// validate PDF -> extract text -> call LLM -> parse summary -> persist.
package analyze

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paperlens-ai/paperlens/internal/cache"
	"github.com/paperlens-ai/paperlens/internal/domain"
	"github.com/paperlens-ai/paperlens/internal/llm"
	"github.com/paperlens-ai/paperlens/internal/observability"
	"github.com/paperlens-ai/paperlens/internal/pdf"
	"github.com/paperlens-ai/paperlens/internal/storage"
)

// minTextLength is the minimum amount of extracted text needed to attempt an
// analysis. Below this the PDF is likely scanned images.
const minTextLength = 100

// Analyzer abstracts the LLM client so the pipeline can be tested without
// network access.
type Analyzer interface {
	Analyze(ctx context.Context, prompt string) (*domain.Summary, json.RawMessage, error)
}

// TextExtractor abstracts PDF text extraction.
type TextExtractor interface {
	ExtractText(content []byte) (string, error)
}

// Service runs the analysis pipeline.
type Service struct {
	validator *pdf.Validator
	extractor TextExtractor
	llm       Analyzer
	cache     cache.Client
	analyses  *storage.AnalysisRepository
	logger    *observability.Logger

	mediaDir       string
	maxPromptChars int
	cacheTTL       time.Duration

	// sem caps concurrent LLM calls.
	sem chan struct{}
}

// Config holds pipeline settings.
type Config struct {
	MediaDir          string
	MaxPromptChars    int
	MaxConcurrentJobs int
	CacheTTL          time.Duration
}

// NewService creates the analysis pipeline service.
func NewService(
	validator *pdf.Validator,
	extractor TextExtractor,
	analyzer Analyzer,
	cacheClient cache.Client,
	analyses *storage.AnalysisRepository,
	logger *observability.Logger,
	cfg Config,
) *Service {
	if cfg.MaxConcurrentJobs <= 0 {
		cfg.MaxConcurrentJobs = 4
	}
	if cfg.MaxPromptChars <= 0 {
		cfg.MaxPromptChars = 25000
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}

	return &Service{
		validator:      validator,
		extractor:      extractor,
		llm:            analyzer,
		cache:          cacheClient,
		analyses:       analyses,
		logger:         logger.WithComponent("analyze"),
		mediaDir:       cfg.MediaDir,
		maxPromptChars: cfg.MaxPromptChars,
		cacheTTL:       cfg.CacheTTL,
		sem:            make(chan struct{}, cfg.MaxConcurrentJobs),
	}
}

// Analyze runs the full pipeline for one uploaded PDF and returns the
// persisted record.
func (s *Service) Analyze(ctx context.Context, userID uuid.UUID, filename string, content []byte) (*storage.PaperAnalysis, error) {
	if err := s.validator.Validate(filename, int64(len(content)), content); err != nil {
		return nil, err
	}

	hash := sha256.Sum256(content)
	hashHex := hex.EncodeToString(hash[:])

	summary, raw, cached := s.lookupCached(ctx, hashHex)
	if !cached {
		text, err := s.extractor.ExtractText(content)
		if err != nil {
			return nil, err
		}
		if len(strings.TrimSpace(text)) < minTextLength {
			return nil, domain.ExtractionError(
				"Unable to extract sufficient text from the PDF. Please ensure it's a valid text-based PDF.", nil)
		}

		summary, raw, err = s.callLLM(ctx, text)
		if err != nil {
			return nil, err
		}

		s.storeCached(ctx, hashHex, raw)
	}

	storedPath, err := s.storePDF(userID, filename, content)
	if err != nil {
		return nil, err
	}

	record := &storage.PaperAnalysis{
		UserID:           userID,
		Title:            titleFromFilename(filename),
		OriginalFilename: filename,
		StoredPath:       storedPath,
		FileSizeBytes:    int64(len(content)),
		SHA256:           hashHex,
		Summary:          *summary,
		AnalysisData:     raw,
	}

	if err := s.analyses.Create(ctx, record); err != nil {
		return nil, domain.StorageError("failed to persist analysis", err)
	}

	s.logger.Info().
		Str("analysis_id", record.ID.String()).
		Str("filename", filename).
		Bool("cache_hit", cached).
		Int64("size_bytes", record.FileSizeBytes).
		Msg("Paper analyzed")

	return record, nil
}

// callLLM invokes the model under the concurrency cap.
func (s *Service) callLLM(ctx context.Context, text string) (*domain.Summary, json.RawMessage, error) {
	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}

	prompt := llm.BuildAnalysisPrompt(text, s.maxPromptChars)

	start := time.Now()
	summary, raw, err := s.llm.Analyze(ctx, prompt)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Debug().Dur("elapsed", time.Since(start)).Msg("LLM analysis complete")
	return summary, raw, nil
}

func (s *Service) lookupCached(ctx context.Context, hashHex string) (*domain.Summary, json.RawMessage, bool) {
	if s.cache == nil {
		return nil, nil, false
	}

	data, err := s.cache.Get(ctx, cache.AnalysisKey(hashHex))
	if err != nil {
		return nil, nil, false
	}

	var summary domain.Summary
	if err := json.Unmarshal(data, &summary); err != nil || summary.IsEmpty() {
		return nil, nil, false
	}

	return &summary, json.RawMessage(data), true
}

func (s *Service) storeCached(ctx context.Context, hashHex string, raw json.RawMessage) {
	if s.cache == nil || len(raw) == 0 {
		return
	}
	if err := s.cache.Set(ctx, cache.AnalysisKey(hashHex), raw, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to cache analysis result")
	}
}

// storePDF writes the upload under media/papers/<userID>/ with a timestamp
// suffix so repeated uploads of the same filename do not collide.
func (s *Service) storePDF(userID uuid.UUID, filename string, content []byte) (string, error) {
	if s.mediaDir == "" {
		return "", nil
	}

	dir := filepath.Join(s.mediaDir, "papers", userID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", domain.IOError("failed to create media directory", err)
	}

	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	timestamp := time.Now().UTC().Format("20060102_150405")
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.pdf", base, timestamp))

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", domain.IOError("failed to store PDF", err)
	}

	return path, nil
}

var nonTitleChars = regexp.MustCompile(`[_\-]+`)

// titleFromFilename derives a readable title from the uploaded filename.
func titleFromFilename(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	title := nonTitleChars.ReplaceAllString(base, " ")
	return strings.TrimSpace(title)
}
