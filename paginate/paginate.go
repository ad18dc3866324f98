// Package paginate drives "read page, extract rows, advance, repeat"
// loops with an explicit termination condition instead of a hardcoded
// page count.
package paginate

import (
	"context"
	"log/slog"

	"github.com/use-agent/gleaner/document"
	"github.com/use-agent/gleaner/models"
	"github.com/use-agent/gleaner/retry"
	"github.com/use-agent/gleaner/selector"
)

// AdvanceResult reports whether an advance moved to a next page.
type AdvanceResult int

const (
	// Advanced means a next page is now current.
	Advanced AdvanceResult = iota
	// Terminal means no next page exists; collection stops.
	Terminal
)

// Source yields the current page. fetcher.Dynamic satisfies it.
type Source interface {
	CurrentDocument(ctx context.Context) (document.Document, error)
}

// ExtractFunc maps one page to its rows.
type ExtractFunc func(document.Document) ([]document.Row, error)

// AdvanceFunc attempts to move the source to the next page.
type AdvanceFunc func(ctx context.Context) (AdvanceResult, error)

// pageReader produces the current page's rows in one step.
type pageReader func(ctx context.Context) ([]document.Row, error)

// Collect loops over pages: read the current document, extract its rows,
// append them (preserving cross-page order), then advance. It stops when
// advance reports Terminal or after maxIterations pages, whichever comes
// first. Rows are not deduplicated across pages; extract owns any needed
// distinctness.
//
// On error the rows accumulated so far are returned alongside it.
// maxIterations must be positive.
func Collect(ctx context.Context, src Source, extract ExtractFunc, advance AdvanceFunc, maxIterations int) ([]document.Row, error) {
	read := func(ctx context.Context) ([]document.Row, error) {
		doc, err := src.CurrentDocument(ctx)
		if err != nil {
			return nil, err
		}
		return extract(doc)
	}
	return collect(ctx, read, advance, maxIterations)
}

// CollectWithRetry is Collect with each page read placed under policy.
// After a click the next page may still be rendering, so the
// read-and-extract step re-reads the live DOM on each attempt until
// extract succeeds or the classified-transient budget runs out. A fresh
// CurrentDocument per attempt is essential: a Document is an immutable
// snapshot, so re-extracting the old one could never succeed.
func CollectWithRetry(ctx context.Context, src Source, extract ExtractFunc, advance AdvanceFunc, maxIterations int, policy retry.Policy, isTransient retry.Classifier) ([]document.Row, error) {
	read := func(ctx context.Context) ([]document.Row, error) {
		var rows []document.Row
		_, err := policy.Do(ctx, func(ctx context.Context) (document.Document, error) {
			doc, err := src.CurrentDocument(ctx)
			if err != nil {
				return document.Document{}, err
			}
			rows, err = extract(doc)
			if err != nil {
				return document.Document{}, err
			}
			return doc, nil
		}, isTransient)
		if err != nil {
			return nil, err
		}
		return rows, nil
	}
	return collect(ctx, read, advance, maxIterations)
}

func collect(ctx context.Context, read pageReader, advance AdvanceFunc, maxIterations int) ([]document.Row, error) {
	if maxIterations <= 0 {
		return nil, models.NewScrapeError(
			models.ErrCodeInvalidInput,
			"maxIterations must be positive",
			nil,
		)
	}

	var rows []document.Row
	for page := 0; page < maxIterations; page++ {
		pageRows, err := read(ctx)
		if err != nil {
			return rows, err
		}
		rows = append(rows, pageRows...)
		slog.Debug("page collected", "page", page+1, "rows", len(pageRows))

		if page == maxIterations-1 {
			break
		}
		res, err := advance(ctx)
		if err != nil {
			return rows, err
		}
		if res == Terminal {
			break
		}
	}
	return rows, nil
}

// Clicker clicks an element on a live page. fetcher.Dynamic satisfies it.
type Clicker interface {
	Click(ctx context.Context, sel selector.Selector) error
}

// ClickNext builds an AdvanceFunc that clicks the page's "next" control.
// An absent control is the terminal condition, not an error, so a missing
// next link ends collection cleanly. Pages that disable rather than remove
// the control should exclude the disabled form in the selector, e.g.
// "a.next:not(.disabled)".
func ClickNext(c Clicker, next selector.Selector) AdvanceFunc {
	return func(ctx context.Context) (AdvanceResult, error) {
		err := c.Click(ctx, next)
		if err == nil {
			return Advanced, nil
		}
		if models.IsCode(err, models.ErrCodeElementNotFound) {
			return Terminal, nil
		}
		return Terminal, err
	}
}

// TableExtractor builds an ExtractFunc reading the first table matching
// sel on each page.
func TableExtractor(sel selector.Selector, opts ...document.TableOption) ExtractFunc {
	return func(doc document.Document) ([]document.Row, error) {
		return doc.ExtractTable(sel, opts...)
	}
}
