package dedupe

import (
	"context"
	"fmt"
	"strings"

	"proposal-ai/internal/contextutil"
	"proposal-ai/internal/storage"
)

// Verdict is the outcome of duplicate detection for one upload.
type Verdict struct {
	// IsDuplicate is true when the upload matched an existing document at or
	// above the warn threshold.
	IsDuplicate bool
	// DuplicateFile names the existing document that matched.
	DuplicateFile string
	// Similarity is the word-set similarity against DuplicateFile, 1.0 for an
	// exact hash match.
	Similarity float64
	// Reason is a human-readable explanation for the verdict.
	Reason string
	// ShouldProceed is false only above the block threshold; a near-duplicate
	// proceeds with a warning.
	ShouldProceed bool
}

// DocumentLister is the storage surface the detector needs.
type DocumentLister interface {
	GetByHash(ctx context.Context, hash string) (*storage.DocumentRecord, error)
	ListRecent(ctx context.Context, limit int) ([]*storage.DocumentRecord, error)
}

// Detector flags uploads that duplicate already-ingested documents. An exact
// content-hash match is a hard duplicate; otherwise the upload's word set is
// compared against the most recent documents with Jaccard similarity.
type Detector struct {
	store          DocumentLister
	warnThreshold  float64
	blockThreshold float64
	candidateLimit int
}

func NewDetector(store DocumentLister, warnThreshold, blockThreshold float64, candidateLimit int) *Detector {
	return &Detector{
		store:          store,
		warnThreshold:  warnThreshold,
		blockThreshold: blockThreshold,
		candidateLimit: candidateLimit,
	}
}

// Check inspects an upload before ingestion. Re-uploading under the same
// filename is a versioned update, never a duplicate; comparison skips the
// record with the same filename. The returned error covers storage failures
// only — a duplicate is reported through the Verdict, not as an error.
func (d *Detector) Check(ctx context.Context, filename, text, hash string) (Verdict, error) {
	logger := contextutil.LoggerFromContext(ctx)

	existing, err := d.store.GetByHash(ctx, hash)
	if err != nil && err != storage.ErrNotFound {
		return Verdict{}, fmt.Errorf("failed to look up content hash: %w", err)
	}
	if existing != nil && existing.Filename != filename {
		logger.InfoContext(ctx, "upload blocked as exact duplicate", "filename", filename, "duplicate_of", existing.Filename)
		return Verdict{
			IsDuplicate:   true,
			DuplicateFile: existing.Filename,
			Similarity:    1.0,
			Reason:        fmt.Sprintf("identical content already ingested as %q", existing.Filename),
			ShouldProceed: false,
		}, nil
	}

	recent, err := d.store.ListRecent(ctx, d.candidateLimit)
	if err != nil {
		return Verdict{}, fmt.Errorf("failed to list recent documents: %w", err)
	}

	uploadWords := wordSet(text)
	bestSimilarity := 0.0
	bestFile := ""
	for _, doc := range recent {
		if doc.Filename == filename {
			continue
		}
		similarity := jaccard(uploadWords, wordSet(doc.Text))
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			bestFile = doc.Filename
		}
	}

	if bestSimilarity >= d.blockThreshold {
		logger.InfoContext(ctx, "upload blocked as near duplicate", "filename", filename, "duplicate_of", bestFile, "similarity", bestSimilarity)
		return Verdict{
			IsDuplicate:   true,
			DuplicateFile: bestFile,
			Similarity:    bestSimilarity,
			Reason:        fmt.Sprintf("content is %.0f%% similar to %q", bestSimilarity*100, bestFile),
			ShouldProceed: false,
		}, nil
	}
	if bestSimilarity >= d.warnThreshold {
		logger.WarnContext(ctx, "upload resembles existing document", "filename", filename, "duplicate_of", bestFile, "similarity", bestSimilarity)
		return Verdict{
			IsDuplicate:   true,
			DuplicateFile: bestFile,
			Similarity:    bestSimilarity,
			Reason:        fmt.Sprintf("content is %.0f%% similar to %q", bestSimilarity*100, bestFile),
			ShouldProceed: true,
		}, nil
	}

	return Verdict{ShouldProceed: true}, nil
}

// wordSet builds the lowercase word set used for similarity comparison.
func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(text)) {
		set[strings.Trim(word, ".,;:!?\"'()")] = struct{}{}
	}
	delete(set, "")
	return set
}

// jaccard computes |a∩b| / |a∪b|. Two empty sets are identical.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	intersection := 0
	for word := range a {
		if _, ok := b[word]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
