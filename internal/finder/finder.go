// Package finder answers a search request with a ready-to-send report.
package finder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dealmungchi/bestdeal/internal/deal"
	"github.com/dealmungchi/bestdeal/internal/marketplace"
	"github.com/dealmungchi/bestdeal/internal/report"
	"github.com/dealmungchi/bestdeal/logger"
	"github.com/dealmungchi/bestdeal/pkg/errors"
)

// Status is the outcome of one request
type Status string

const (
	StatusOK            Status = "ok"
	StatusEmpty         Status = "empty"
	StatusFailed        Status = "failed"
	StatusUnknownSource Status = "unknown_source"
)

// Plain message texts. Reports carry them Markdown escaped.
const (
	MessageFailed      = "😔 Sorry, something went wrong during the search. Please try again later."
	MessageUnavailable = "⚠️ Search is unavailable right now. Please contact the bot administrator."
	MessageNoTerm      = "Please enter a search term."
	MessageEmptyAll    = "No products found in any marketplace. Try different search terms."
	messageEmptyOne    = "No products found on %s. Try different search terms."
	messageUnknownOne  = "Unknown marketplace %q. Available: %s"
)

// Request is one search asked for by a chat user or the CLI
type Request struct {
	ID     string `json:"id"`
	Term   string `json:"term"`
	Source string `json:"source,omitempty"`
	Region string `json:"region,omitempty"`
	ChatID string `json:"chat_id,omitempty"`
}

// SourceResult summarizes one source's part of a report
type SourceResult struct {
	Source      string               `json:"source"`
	DisplayName string               `json:"display_name"`
	Count       int                  `json:"count"`
	Best        *marketplace.Product `json:"best,omitempty"`
	Failed      bool                 `json:"failed,omitempty"`
}

// Report is the answer to a Request
type Report struct {
	RequestID string               `json:"request_id"`
	ChatID    string               `json:"chat_id,omitempty"`
	Term      string               `json:"term"`
	Source    string               `json:"source,omitempty"`
	Status    Status               `json:"status"`
	Best      *marketplace.Product `json:"best,omitempty"`
	PerSource []SourceResult       `json:"per_source"`
	Message   string               `json:"message"`
	Error     string               `json:"error,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// Searcher is the aggregator the finder drives
type Searcher interface {
	Sources() []string
	DisplayName(source string) string
	SearchOne(ctx context.Context, source, term, region string) ([]marketplace.Product, error)
	SearchAllDetailed(ctx context.Context, term string) (map[string][]marketplace.Product, map[string]error)
}

// Finder turns requests into reports
type Finder struct {
	searcher Searcher
	timeout  time.Duration
}

// New creates a finder. A zero timeout leaves deadlines to the caller.
func New(searcher Searcher, timeout time.Duration) *Finder {
	return &Finder{searcher: searcher, timeout: timeout}
}

// Sources lists the registered source identifiers
func (f *Finder) Sources() []string {
	return f.searcher.Sources()
}

// DisplayName returns the human readable name of a source
func (f *Finder) DisplayName(source string) string {
	return f.searcher.DisplayName(source)
}

// Find runs req and always returns a report; failures are reported through Status.
func (f *Finder) Find(ctx context.Context, req Request) *Report {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	rep := &Report{
		RequestID: req.ID,
		ChatID:    req.ChatID,
		Term:      strings.TrimSpace(req.Term),
		Source:    strings.ToLower(strings.TrimSpace(req.Source)),
		PerSource: []SourceResult{},
		CreatedAt: time.Now().UTC(),
	}

	if rep.Term == "" {
		err := errors.NewValidation(rep.Source, "empty search term")
		rep.Status, rep.Message, rep.Error = StatusFailed, report.EscapeMarkdown(MessageNoTerm), err.Error()
		return rep
	}

	start := time.Now()
	if rep.Source == "" {
		f.findAll(ctx, rep)
	} else {
		f.findOne(ctx, rep, req.Region)
	}

	logger.Info("Request %s for %q on %s finished with status %s in %s",
		rep.RequestID, rep.Term, sourceLabel(rep.Source), rep.Status, time.Since(start).Round(time.Millisecond))
	return rep
}

func (f *Finder) findOne(ctx context.Context, rep *Report, region string) {
	name := f.searcher.DisplayName(rep.Source)

	products, err := f.searcher.SearchOne(ctx, rep.Source, rep.Term, region)
	if err != nil {
		rep.Error = err.Error()
		if errors.IsUnknownSource(err) {
			rep.Status = StatusUnknownSource
			rep.Message = report.EscapeMarkdown(fmt.Sprintf(messageUnknownOne, rep.Source, strings.Join(f.searcher.Sources(), ", ")))
			return
		}
		logger.LogError("finder", err, "Error during search on %s", rep.Source)
		rep.Status = StatusFailed
		rep.Message = failureMessage(err)
		rep.PerSource = append(rep.PerSource, SourceResult{Source: rep.Source, DisplayName: name, Failed: true})
		return
	}

	best := deal.SelectBest(products)
	rep.PerSource = append(rep.PerSource, SourceResult{
		Source:      rep.Source,
		DisplayName: name,
		Count:       len(products),
		Best:        best,
	})

	if best == nil {
		rep.Status = StatusEmpty
		rep.Message = report.EscapeMarkdown(fmt.Sprintf(messageEmptyOne, name))
		return
	}

	rep.Status = StatusOK
	rep.Best = best
	rep.Message = report.Single(best)
}

func (f *Finder) findAll(ctx context.Context, rep *Report) {
	results, failures := f.searcher.SearchAllDetailed(ctx, rep.Term)

	var all []marketplace.Product
	var sections []report.Section
	for _, source := range f.searcher.Sources() {
		products := results[source]
		name := f.searcher.DisplayName(source)
		best := deal.BestByRating(products)

		rep.PerSource = append(rep.PerSource, SourceResult{
			Source:      source,
			DisplayName: name,
			Count:       len(products),
			Best:        best,
			Failed:      failures[source] != nil,
		})
		sections = append(sections, report.Section{DisplayName: name, Best: best})
		all = append(all, products...)
	}

	if len(all) == 0 {
		if len(failures) > 0 && len(failures) == len(rep.PerSource) {
			errs := make([]error, 0, len(failures))
			for _, err := range failures {
				errs = append(errs, err)
			}
			rep.Status = StatusFailed
			rep.Message = failureMessage(errs...)
			rep.Error = "all sources failed"
			return
		}
		rep.Status = StatusEmpty
		rep.Message = report.EscapeMarkdown(MessageEmptyAll)
		return
	}

	rep.Status = StatusOK
	rep.Best = deal.SelectBest(all)
	rep.Message = report.Combined(sections)
}

// failureMessage asks the user to try again unless none of errs can go away
// on a later attempt, such as a rejected API token.
func failureMessage(errs ...error) string {
	for _, err := range errs {
		if errors.IsRetryable(err) {
			return report.EscapeMarkdown(MessageFailed)
		}
	}
	return report.EscapeMarkdown(MessageUnavailable)
}

func sourceLabel(source string) string {
	if source == "" {
		return "all sources"
	}
	return source
}
