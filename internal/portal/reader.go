package portal

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tenderscope/tenderscope/internal/cache"
	"github.com/tenderscope/tenderscope/internal/logging"
)

// Reader turns an attachment into page text, serving cached pages and
// sending only the uncached complement to the OCR collaborator. Newly
// extracted pages are written back to the cache one by one, so a partial
// OCR failure still leaves the successful pages reusable.
type Reader struct {
	cache    *cache.Manager
	ocr      OCR
	maxPages int
	log      *logging.Logger
}

// NewReader builds a Reader extracting up to maxPages pages per document.
func NewReader(c *cache.Manager, ocr OCR, maxPages int, log *logging.Logger) *Reader {
	if maxPages <= 0 {
		maxPages = 5
	}
	return &Reader{cache: c, ocr: ocr, maxPages: maxPages, log: log}
}

// ExtractText returns the concatenated text of the first maxPages pages of
// a document, in page order.
func (r *Reader) ExtractText(ctx context.Context, tenderID string, rowID int, content []byte) (string, error) {
	pages := r.cache.GetOCRRange(tenderID, rowID, 0, r.maxPages-1)

	var missing []int
	for p := 0; p < r.maxPages; p++ {
		if _, ok := pages[p]; !ok {
			missing = append(missing, p)
		}
	}

	if len(missing) > 0 {
		r.log.Debugf("ocr_extract tender=%s row=%d cached=%d missing=%d", tenderID, rowID, len(pages), len(missing))
		extracted, err := r.ocr.ExtractPages(ctx, content, missing)
		if err != nil {
			if len(pages) == 0 {
				return "", fmt.Errorf("extract pages for row %d: %w", rowID, err)
			}
			// Serve what the cache has; the complement is retried on the
			// next run.
			r.log.Warnf("ocr_partial tender=%s row=%d error=%v", tenderID, rowID, err)
		}
		for page, text := range extracted {
			pages[page] = text
			if err := r.cache.SetOCRPage(tenderID, rowID, page, text); err != nil {
				r.log.Warnf("ocr_cache_write_failed tender=%s row=%d page=%d error=%v", tenderID, rowID, page, err)
			}
		}
	}

	nums := make([]int, 0, len(pages))
	for p := range pages {
		nums = append(nums, p)
	}
	sort.Ints(nums)

	var sb strings.Builder
	for _, p := range nums {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(pages[p])
	}
	return sb.String(), nil
}
