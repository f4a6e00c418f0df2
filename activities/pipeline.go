package activities

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/go-strava-proxy/internal/config"
	apperrors "github.com/jrsteele09/go-strava-proxy/internal/errors"
	"github.com/jrsteele09/go-strava-proxy/internal/metrics"
	"github.com/jrsteele09/go-strava-proxy/token"
	"github.com/jrsteele09/go-strava-proxy/weather"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPageSize = 9
	defaultWorkers  = 4

	listPath   = "athlete/activities"
	detailPath = "activities/"
)

// APIClient is the authenticated resource client the pipeline reads through
type APIClient interface {
	GetJSON(ctx context.Context, path string, query url.Values, cred *token.Credential, out any) error
}

// Pipeline lists a page of activities then enriches each one with its detail record.
type Pipeline struct {
	client   APIClient
	weather  weather.Provider
	pageSize int
	workers  int
}

type PipelineOption func(*Pipeline)

func WithWeather(provider weather.Provider) PipelineOption {
	return func(p *Pipeline) {
		p.weather = provider
	}
}

// WithWorkers bounds the number of concurrent detail requests
func WithWorkers(workers int) PipelineOption {
	return func(p *Pipeline) {
		p.workers = workers
	}
}

func NewPipeline(client APIClient, cfg config.FetchConfig, options ...PipelineOption) *Pipeline {
	p := &Pipeline{
		client:   client,
		pageSize: cfg.GetActivitiesPageSize(),
		workers:  cfg.GetDetailWorkers(),
	}
	for _, opt := range options {
		opt(p)
	}

	if p.weather == nil {
		p.weather = weather.Nop{}
	}
	if p.pageSize <= 0 {
		p.pageSize = defaultPageSize
	}
	if p.workers <= 0 {
		p.workers = defaultWorkers
	}
	return p
}

// PageSize is the list size used when Fetch is given none
func (p *Pipeline) PageSize() int {
	return p.pageSize
}

// ListActivities returns the most recent activity summaries in provider order.
// Errors are returned unchanged; there is nothing to degrade to.
func (p *Pipeline) ListActivities(ctx context.Context, cred *token.Credential, pageSize int) ([]Record, error) {
	if pageSize <= 0 {
		pageSize = p.pageSize
	}
	var summaries []Record
	if err := p.client.GetJSON(ctx, listPath, url.Values{"per_page": {strconv.Itoa(pageSize)}}, cred, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// Result is one pipeline run. Unauthorized is set when the provider rejected the
// credential on a detail call; those items still carry their summaries.
type Result struct {
	Records      []Record
	Unauthorized bool
}

// FetchDetail returns the detail record for summary, enriched with weather when
// available. Any failure returns summary itself.
func (p *Pipeline) FetchDetail(ctx context.Context, cred *token.Credential, summary Record) Record {
	record, _ := p.fetchDetail(ctx, cred, summary)
	return record
}

// fetchDetail always returns a usable record; the error says why it is the summary
func (p *Pipeline) fetchDetail(ctx context.Context, cred *token.Credential, summary Record) (Record, error) {
	id, ok := summary.ID()
	if !ok {
		metrics.RecordDegradedDetail()
		return summary, errors.New("summary has no id")
	}

	var detail Record
	err := p.client.GetJSON(ctx, detailPath+url.PathEscape(id), url.Values{"include_all_efforts": {"true"}}, cred, &detail)
	if err == nil && detail == nil {
		err = errors.New("empty detail")
	}
	if err != nil {
		metrics.RecordDegradedDetail()
		log.Debug().Err(err).Str("activity_id", id).Msg("Detail fetch failed, using summary")
		return summary, err
	}

	p.attachWeather(ctx, detail)
	return detail, nil
}

// Fetch runs the list then fans out the detail fetches. The result has one record per
// summary, in list order, however many detail fetches fail.
func (p *Pipeline) Fetch(ctx context.Context, cred *token.Credential, pageSize int) ([]Record, error) {
	res, err := p.Run(ctx, cred, pageSize)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// Run is Fetch that also reports whether any detail call was answered 401.
func (p *Pipeline) Run(ctx context.Context, cred *token.Credential, pageSize int) (*Result, error) {
	start := time.Now()
	defer func() {
		metrics.ObserveFetch(time.Since(start).Seconds())
	}()

	summaries, err := p.ListActivities(ctx, cred, pageSize)
	if err != nil {
		return nil, err
	}

	records := make([]Record, len(summaries))
	var unauthorized atomic.Bool
	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, summary := range summaries {
		g.Go(func() error {
			record, err := p.fetchDetail(ctx, cred, summary)
			if errors.Is(err, apperrors.ErrUnauthorized) {
				unauthorized.Store(true)
			}
			records[i] = record
			return nil
		})
	}
	_ = g.Wait()

	// caller went away; partial results are not worth returning
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Result{Records: records, Unauthorized: unauthorized.Load()}, nil
}

func (p *Pipeline) attachWeather(ctx context.Context, detail Record) {
	lat, lng, ok := detail.StartLatLng()
	if !ok {
		return
	}
	startedAt, ok := detail.StartDate()
	if !ok {
		return
	}

	conditions, err := p.weather.Lookup(ctx, lat, lng, startedAt)
	if err != nil {
		log.Debug().Err(err).Msg("Weather lookup failed")
		return
	}
	if conditions != nil {
		detail[WeatherField] = conditions
	}
}
