package ingest

import (
	"context"
	"fmt"
	"path/filepath"

	"manual-chatbot-be/internal/apperror"
	"manual-chatbot-be/pkg/document"
	"manual-chatbot-be/pkg/session"
	"manual-chatbot-be/pkg/vectorindex"
)

// Progress bands per phase.
const (
	percentInit          = 5
	percentListed        = 10
	percentExtracted     = 50
	percentChunking      = 60
	percentChunked       = 70
	percentIndexing      = 75
	percentIndexingSpan  = 20
	percentExtractedSpan = percentExtracted - percentListed
)

type sourceFile struct {
	name  string
	path  string
	pages int
}

func (r *Runner) pipeline(ctx context.Context, s session.Session) error {
	r.progress(s.ID, session.Patch{}.
		WithStatus(session.StatusProcessing).
		WithPercent(percentInit).
		WithMessage("Starting processing...").
		WithStep("initialization"))

	files, total := r.listFiles(s)
	r.progress(s.ID, session.Patch{}.
		WithPercent(percentListed).
		WithMessage(fmt.Sprintf("%d file(s) found, extracting %d pages...", len(files), total)).
		WithStep("listing").
		WithTotalUnits(total))

	pages, processed := r.extract(s.ID, files, total)
	if len(pages) == 0 {
		return apperror.Extraction("no text could be extracted from the uploaded documents")
	}
	r.progress(s.ID, session.Patch{}.
		WithPercent(percentExtracted).
		WithMessage(fmt.Sprintf("%d pages extracted", len(pages))).
		WithStep("extraction_complete").
		WithProcessedUnits(processed))

	r.progress(s.ID, session.Patch{}.
		WithPercent(percentChunking).
		WithMessage("Splitting text...").
		WithStep("chunking"))
	chunks := document.ChunkPages(pages, document.ChunkConfig{Size: r.cfg.ChunkSize, Overlap: r.cfg.ChunkOverlap})
	r.progress(s.ID, session.Patch{}.
		WithPercent(percentChunked).
		WithMessage(fmt.Sprintf("%d segments created", len(chunks))).
		WithStep("chunking_complete"))

	r.progress(s.ID, session.Patch{}.
		WithPercent(percentIndexing).
		WithMessage("Indexing...").
		WithStep("indexing"))
	if err := r.index(ctx, s, chunks); err != nil {
		return err
	}

	if r.onReady != nil {
		r.onReady(s.ID)
	}
	r.progress(s.ID, session.Patch{}.
		WithStatus(session.StatusReady).
		WithPercent(100).
		WithMessage("Chatbot ready!").
		WithStep("complete"))

	r.logger.Info(logModule, "Processing complete", map[string]interface{}{
		"session_id": s.ID,
		"pages":      len(pages),
		"chunks":     len(chunks),
	})
	return nil
}

// listFiles pre-scans page counts. A file that cannot be scanned counts 0 and
// is still attempted during extraction.
func (r *Runner) listFiles(s session.Session) ([]sourceFile, int) {
	seen := make(map[string]bool, len(s.UploadedFiles))
	var files []sourceFile
	total := 0
	for _, name := range s.UploadedFiles {
		if seen[name] {
			continue
		}
		seen[name] = true

		f := sourceFile{name: name, path: filepath.Join(s.FilesDir(), name)}
		if ex, err := r.extractors.For(name); err == nil {
			n, err := ex.PageCount(f.path)
			if err != nil {
				r.logger.Warn(logModule, "Page count failed", map[string]interface{}{
					"session_id": s.ID,
					"file":       name,
					"error":      err.Error(),
				})
			}
			f.pages = n
		}
		total += f.pages
		files = append(files, f)
	}
	return files, total
}

// extract visits every page of every file. Per-file failures are logged and
// skipped; blank pages are counted as processed but not kept.
func (r *Runner) extract(sessionID string, files []sourceFile, total int) ([]document.SourcePage, int) {
	var pages []document.SourcePage
	processed := 0

	for _, f := range files {
		ex, err := r.extractors.For(f.name)
		if err != nil {
			r.logger.Warn(logModule, "Unsupported file skipped", map[string]interface{}{
				"session_id": sessionID,
				"file":       f.name,
			})
			continue
		}

		err = ex.ExtractPages(f.path, func(p document.Page) error {
			processed++
			if !p.Blank() {
				pages = append(pages, document.SourcePage{SourceFile: f.name, Page: p})
			}
			expected := max(total, processed)
			r.progress(sessionID, session.Patch{}.
				WithPercent(extractionPercent(processed, expected)).
				WithProcessedUnits(processed).
				WithMessage(fmt.Sprintf("Extraction: %d/%d pages", processed, expected)).
				WithStep("extraction"))
			return nil
		})
		if err != nil {
			r.logger.Warn(logModule, "File extraction failed", map[string]interface{}{
				"session_id": sessionID,
				"file":       f.name,
				"error":      err.Error(),
			})
		}
	}
	return pages, processed
}

// extractionPercent maps processed pages onto the extraction band. The result
// stays inside the band when the pre-scan undercounted.
func extractionPercent(processed, expected int) int {
	if expected < processed {
		expected = processed
	}
	if expected == 0 {
		return percentListed
	}
	return percentListed + processed*percentExtractedSpan/expected
}

// index replaces the namespace wholesale: drop, then add in batches through a
// handle created on the first batch.
func (r *Runner) index(ctx context.Context, s session.Session, chunks []document.Chunk) error {
	ns := vectorindex.Namespace{Name: s.ID, Dir: s.IndexDir()}
	if err := r.store.Drop(ctx, ns); err != nil {
		return apperror.Index("drop previous index", err)
	}

	batches := (len(chunks) + r.cfg.BatchSize - 1) / r.cfg.BatchSize
	var h vectorindex.Handle
	defer func() {
		if h != nil {
			h.Close()
		}
	}()

	for i := 0; i < len(chunks); i += r.cfg.BatchSize {
		end := i + r.cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := i/r.cfg.BatchSize + 1

		// A session deleted mid-run must not get its namespace refilled.
		if !r.exists(s.ID) {
			return apperror.NotFound("session %s deleted during indexing", s.ID)
		}

		if h == nil {
			var err error
			if h, err = r.store.Create(ctx, ns); err != nil {
				return apperror.Index("create index", err)
			}
		}
		if err := h.Add(ctx, chunks[i:end]); err != nil {
			return apperror.Index(fmt.Sprintf("index batch %d/%d", batch, batches), err)
		}
		// The delete may have dropped the namespace while this batch was in flight.
		if !r.exists(s.ID) {
			h.Close()
			h = nil
			r.dropOrphan(ctx, ns)
			return apperror.NotFound("session %s deleted during indexing", s.ID)
		}

		r.progress(s.ID, session.Patch{}.
			WithPercent(percentIndexing+batch*percentIndexingSpan/batches).
			WithMessage(fmt.Sprintf("Indexing: batch %d/%d", batch, batches)))
	}
	return nil
}

func (r *Runner) exists(sessionID string) bool {
	_, ok := r.sessions.Get(sessionID)
	return ok
}

func (r *Runner) dropOrphan(ctx context.Context, ns vectorindex.Namespace) {
	if err := r.store.Drop(ctx, ns); err != nil {
		r.logger.Error(logModule, "Failed to drop index of deleted session", map[string]interface{}{
			"session_id": ns.Name,
			"error":      err.Error(),
		})
		return
	}
	r.logger.Info(logModule, "Index of deleted session dropped", map[string]interface{}{"session_id": ns.Name})
}

func (r *Runner) progress(sessionID string, p session.Patch) {
	r.sessions.UpdateProgress(sessionID, p)
}
