// Package pipeline wires the extraction flow together: crawled pages
// are classified, run through an extraction strategy, gated for
// validity, fingerprinted, and upserted into the event store.
package pipeline

import (
	"context"

	"infracal/internal/classify"
	"infracal/internal/crawler"
	"infracal/internal/dedup"
	"infracal/internal/extract"
	"infracal/internal/model"
	"infracal/internal/store"

	appLog "infracal/internal/log"
)

// Pipeline owns one classification strategy and one extraction strategy,
// selected at construction. It holds no mutable state of its own.
type Pipeline struct {
	store      *store.Store
	crawl      *crawler.Client
	classifier classify.Classifier
	extractor  extract.Extractor

	minDescriptionLen int
	allMatches        bool
	version           string
}

// Config carries pipeline construction parameters.
type Config struct {
	MinDescriptionLen int
	AllMatches        bool
	Version           string
}

// New constructs a Pipeline. crawl may be nil when only stored pages are
// processed.
func New(st *store.Store, crawl *crawler.Client, cl classify.Classifier, ex extract.Extractor, cfg Config) *Pipeline {
	minLen := cfg.MinDescriptionLen
	if minLen <= 0 {
		minLen = dedup.DefaultMinDescriptionLen
	}
	version := cfg.Version
	if version == "" {
		version = "v1"
	}
	return &Pipeline{
		store:             st,
		crawl:             crawl,
		classifier:        cl,
		extractor:         ex,
		minDescriptionLen: minLen,
		allMatches:        cfg.AllMatches,
		version:           version,
	}
}

// Result summarizes one extraction run. PagesWithoutEvents counts pages
// where classification, extraction, or the validity gate produced no
// persisted candidate; that is a normal outcome, reported as a count
// rather than logged as failures.
type Result struct {
	TotalPages         int                 `json:"total_pages"`
	EventsExtracted    int                 `json:"events_extracted"`
	EventsSaved        int                 `json:"events_saved"`
	PagesWithoutEvents int                 `json:"pages_without_events"`
	Events             []model.StoredEvent `json:"events"`
}

// FetchAndStore pulls pages from the crawler export and upserts them
// into the page store. Returns the number of pages saved.
func (p *Pipeline) FetchAndStore(ctx context.Context, config string, limit int) (int, error) {
	pages, err := p.crawl.Export(ctx, config, limit)
	if err != nil {
		return 0, err
	}

	saved := 0
	for i := range pages {
		// The config we fetched under wins over whatever the export row
		// carried; it is the grouping key for calendars.
		pages[i].ConfigID = config
		if _, err := p.store.UpsertPage(ctx, &pages[i]); err != nil {
			appLog.Error("page upsert failed", err, "page_url", pages[i].URL)
			continue
		}
		saved++
	}
	return saved, nil
}

// Run processes stored pages for a config: classify, extract, gate,
// upsert. Failures on individual pages are recovered and counted; a
// batch run never aborts because one page misbehaved. Cancellation of
// ctx stops between pages.
func (p *Pipeline) Run(ctx context.Context, configID string, limit int, save bool) (Result, error) {
	var res Result

	pages, err := p.store.FetchPages(ctx, configID, limit)
	if err != nil {
		return res, err
	}
	res.TotalPages = len(pages)

	for i := range pages {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		p.processPage(ctx, &pages[i], save, &res)
	}

	appLog.Info("extraction run complete",
		"config_id", configID,
		"total_pages", res.TotalPages,
		"events_extracted", res.EventsExtracted,
		"events_saved", res.EventsSaved,
		"pages_without_events", res.PagesWithoutEvents,
	)
	return res, nil
}

func (p *Pipeline) processPage(ctx context.Context, page *model.Page, save bool, res *Result) {
	if !p.classifier.IsCalendar(ctx, page.PlainText) {
		res.PagesWithoutEvents++
		return
	}

	candidates := p.extractCandidates(ctx, page)
	if len(candidates) == 0 {
		res.PagesWithoutEvents++
		return
	}

	kept := 0
	for _, ev := range candidates {
		if !dedup.IsValid(ev, p.minDescriptionLen) {
			continue
		}
		kept++
		res.EventsExtracted++

		se := model.StoredEvent{
			Event:             *ev,
			PageID:            page.ID,
			ExtractionVersion: p.version,
			IsValid:           true,
			ContentHash:       dedup.Fingerprint(ev),
		}
		if save && page.ID != 0 {
			if _, err := p.store.UpsertEvent(ctx, &se); err != nil {
				appLog.Error("event upsert failed", err, "page_url", page.URL)
				continue
			}
			res.EventsSaved++
		}
		res.Events = append(res.Events, se)
	}

	if kept == 0 {
		res.PagesWithoutEvents++
	}
}

// extractCandidates applies the configured strategy. With AllMatches set
// and a multi-capable extractor, every date-anchored candidate on the
// page is returned; otherwise only the first.
func (p *Pipeline) extractCandidates(ctx context.Context, page *model.Page) []*model.Event {
	if p.allMatches {
		if multi, ok := p.extractor.(extract.MultiExtractor); ok {
			events, err := multi.ExtractAll(ctx, *page)
			if err != nil {
				appLog.Error("extraction failed", err, "page_url", page.URL)
				return nil
			}
			return events
		}
	}

	ev, err := p.extractor.Extract(ctx, *page)
	if err != nil {
		appLog.Error("extraction failed", err, "page_url", page.URL)
		return nil
	}
	if ev == nil {
		return nil
	}
	return []*model.Event{ev}
}
