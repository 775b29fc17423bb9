package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cheggaaa/pb/v3"

	"offerwatch/internal/offer"
	"offerwatch/internal/scrape/util"
	"offerwatch/internal/scrape/wttj"
	"offerwatch/internal/store"
)

type Lister interface {
	ListOfferLinks(ctx context.Context, query string) ([]string, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
}

// Sink receives every offer after it reached the store.
type Sink interface {
	Put(ctx context.Context, o offer.Offer) error
}

// Pipeline lists offers for a query and appends each one to the store,
// one page at a time.
type Pipeline struct {
	Lister    Lister
	Fetcher   Fetcher
	StorePath string
	MaxOffers int // 0 = no cap
	Pacer     *util.Pacer
	Mirror    Sink
	Now       func() time.Time

	// Progress, when set, receives a progress bar.
	Progress io.Writer
}

// RunResult tallies one pipeline run.
type RunResult struct {
	Links    int
	Appended int
	Skipped  int
	Mirrored int
}

// Run scrapes query into the store. Pages that fail to download or no
// longer have the expected shape are skipped; a store failure stops the
// run and is returned with the partial tally.
func (p *Pipeline) Run(ctx context.Context, query string) (RunResult, error) {
	var res RunResult
	if p.Lister == nil || p.Fetcher == nil {
		return res, errors.New("pipeline: lister and fetcher are required")
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}
	pacer := p.Pacer
	if pacer == nil {
		pacer = util.NewPacer(0)
	}

	links, err := p.Lister.ListOfferLinks(ctx, query)
	if err != nil {
		return res, fmt.Errorf("list offers: %w", err)
	}
	if p.MaxOffers > 0 && len(links) > p.MaxOffers {
		links = links[:p.MaxOffers]
	}
	res.Links = len(links)

	var bar *pb.ProgressBar
	if p.Progress != nil && len(links) > 0 {
		bar = pb.New(len(links))
		bar.SetWriter(p.Progress)
		bar.Start()
		defer bar.Finish()
	}

	for _, link := range links {
		if err := pacer.Wait(ctx); err != nil {
			return res, err
		}
		out, err := p.one(ctx, link, now())
		if bar != nil {
			bar.Increment()
		}
		if err != nil {
			return res, err
		}
		switch out {
		case skipped:
			res.Skipped++
		case mirrored:
			res.Mirrored++
			res.Appended++
		default:
			res.Appended++
		}
	}

	log.Printf("[scrape] done query=%q links=%d appended=%d skipped=%d",
		query, res.Links, res.Appended, res.Skipped)
	return res, nil
}

type outcome int

const (
	skipped outcome = iota
	appended
	mirrored
)

// one handles a single offer. It returns an error only when the run must
// stop.
func (p *Pipeline) one(ctx context.Context, link string, at time.Time) (outcome, error) {
	doc, err := p.Fetcher.Fetch(ctx, link)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			log.Printf("[scrape] skip url=%s err=%v", link, err)
			return skipped, nil
		}
		return skipped, err
	}

	fields, err := wttj.Extract(doc, link)
	if err != nil {
		var ee *wttj.ExtractionError
		if errors.As(err, &ee) {
			log.Printf("[scrape] skip url=%s field=%s", link, ee.Field)
			return skipped, nil
		}
		return skipped, err
	}

	rec, schema := offer.Build(fields, link, at)
	if err := store.Append(ctx, rec, schema, p.StorePath); err != nil {
		return skipped, fmt.Errorf("append offer: %w", err)
	}

	if p.Mirror == nil {
		return appended, nil
	}
	if err := p.Mirror.Put(ctx, rec); err != nil {
		log.Printf("[mirror] put url=%s err=%v", link, err)
		return appended, nil
	}
	return mirrored, nil
}
