package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"veracity-service/internal/models"
	"veracity-service/internal/record"
	"veracity-service/internal/signal"
	"veracity-service/internal/social"
	"veracity-service/internal/verdict"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultFallbackKeyword is searched on social platforms when the input yields no keyword
const DefaultFallbackKeyword = "news"

// RecordStore persists analysis records and batch jobs
type RecordStore interface {
	Create(ctx context.Context, rec *record.Record) (int64, error)
	Get(ctx context.Context, id int64) (*record.Record, error)
	List(ctx context.Context, limit, offset int) ([]*record.Record, error)
	Stats(ctx context.Context) (*models.Stats, error)
	CreateJob(ctx context.Context, job *models.Job) error
	UpdateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
}

// SocialAggregator corroborates a keyword across social platforms
type SocialAggregator interface {
	Aggregate(ctx context.Context, keyword string) social.Snapshot
}

// LinkAnalyzer scrapes and classifies a linked article
type LinkAnalyzer interface {
	Analyze(ctx context.Context, url string) signal.LinkAnalysis
}

// Analyzers are the primary signal sources, one per input kind
type Analyzers struct {
	Text  signal.Source
	Link  LinkAnalyzer
	Image signal.Source
	Video signal.Source
}

// Options configure a Verifier
type Options struct {
	Policy          verdict.Policy
	FallbackKeyword string
	TrustedSources  []TrustedSource
	Now             func() time.Time
}

// Request is one verification request
type Request struct {
	Kind     string
	Data     string
	FilePath string
	Title    string
	Source   string
}

// Outcome is a verdict plus the id of the record it was stored under, if any
type Outcome struct {
	Verdict  verdict.Verdict
	RecordID *int64
	Headings []string
}

// Verifier orchestrates primary analysis, social corroboration and persistence
type Verifier struct {
	analyzers Analyzers
	social    SocialAggregator
	store     RecordStore
	opts      Options
	logger    *zap.Logger
}

// NewVerifier creates a verifier
func NewVerifier(analyzers Analyzers, aggregator SocialAggregator, store RecordStore, opts Options, logger *zap.Logger) *Verifier {
	if opts.Policy == (verdict.Policy{}) {
		opts.Policy = verdict.DefaultPolicy()
	}
	if opts.FallbackKeyword == "" {
		opts.FallbackKeyword = DefaultFallbackKeyword
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Verifier{
		analyzers: analyzers,
		social:    aggregator,
		store:     store,
		opts:      opts,
		logger:    logger,
	}
}

// Verify analyzes one piece of content. Text and link verdicts are stored;
// image and video verdicts are only returned.
func (v *Verifier) Verify(ctx context.Context, req Request) (*Outcome, error) {
	kind, input, err := validate(req)
	if err != nil {
		return nil, err
	}

	// Social runs alongside the primary analysis, so link keywords come from the
	// request title rather than the scraped headings.
	keyword := DeriveKeyword(kind, req.Data, req.Title, v.opts.FallbackKeyword)

	var (
		primary  signal.Result
		headings []string
		snap     social.Snapshot
	)

	var g errgroup.Group
	g.Go(func() error {
		primary, headings = v.primary(ctx, kind, input)
		return nil
	})
	g.Go(func() error {
		snap = v.social.Aggregate(ctx, keyword)
		return nil
	})
	_ = g.Wait() // analyzers report failures through their results

	vd := v.opts.Policy.Combine(kind, primary, snap)
	out := &Outcome{Verdict: vd, Headings: headings}

	v.logger.Info("Content verified",
		zap.String("kind", string(kind)),
		zap.String("keyword", keyword),
		zap.Float64("primary_score", vd.Primary.Score),
		zap.Float64("social_score", vd.Social.MeanScore),
		zap.Float64("final_score", vd.FinalScore),
		zap.Bool("is_authentic", vd.IsAuthentic))

	if !kind.Persisted() {
		return out, nil
	}

	title := req.Title
	if strings.TrimSpace(title) == "" && len(headings) > 0 {
		title = headings[0]
	}

	rec, err := record.FromVerdict(vd, record.Meta{
		Title:       title,
		Content:     req.Data,
		Source:      req.Source,
		PublishedAt: v.opts.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	id, err := v.store.Create(ctx, rec)
	if err != nil {
		v.logger.Error("Failed to store analysis record", zap.String("kind", string(kind)), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	out.RecordID = &id

	return out, nil
}

func (v *Verifier) primary(ctx context.Context, kind signal.Kind, input string) (signal.Result, []string) {
	switch kind {
	case signal.KindText:
		return evaluate(ctx, "text", v.analyzers.Text, input), nil
	case signal.KindLink:
		if v.analyzers.Link == nil {
			return signal.Unavailable("link analysis is not configured"), nil
		}
		a := v.analyzers.Link.Analyze(ctx, input)
		return a.Result, a.Headings
	case signal.KindImage:
		return evaluate(ctx, "image", v.analyzers.Image, input), nil
	default:
		return evaluate(ctx, "video", v.analyzers.Video, input), nil
	}
}

func evaluate(ctx context.Context, name string, src signal.Source, input string) signal.Result {
	if src == nil {
		return signal.Unavailable(name + " analysis is not configured")
	}
	return signal.Guard(name, func() signal.Result {
		return src.Evaluate(ctx, input)
	})
}

func validate(req Request) (signal.Kind, string, error) {
	kind, err := signal.ParseKind(req.Kind)
	if err != nil {
		return "", "", invalid("input_kind", "must be one of text, link, image, video")
	}

	switch kind {
	case signal.KindText:
		if strings.TrimSpace(req.Data) == "" {
			return "", "", invalid("input_data", "text content is required")
		}
		return kind, req.Data, nil
	case signal.KindLink:
		link := strings.TrimSpace(req.Data)
		if link == "" {
			return "", "", invalid("input_data", "a URL is required")
		}
		u, err := url.Parse(link)
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return "", "", invalid("input_data", "must be an absolute http or https URL")
		}
		return kind, link, nil
	default:
		if req.FilePath == "" {
			return "", "", invalid("file", fmt.Sprintf("a file upload is required for %s analysis", kind))
		}
		return kind, req.FilePath, nil
	}
}

// DeriveKeyword picks the social search term: the first word of the text content,
// or of the title for other kinds, else the fallback.
func DeriveKeyword(kind signal.Kind, data, title, fallback string) string {
	text := title
	if kind == signal.KindText {
		text = data
	}
	if fields := strings.Fields(text); len(fields) > 0 {
		return fields[0]
	}
	return fallback
}

// Policy returns the active scoring policy
func (v *Verifier) Policy() verdict.Policy {
	return v.opts.Policy
}

// GetRecord returns one stored record
func (v *Verifier) GetRecord(ctx context.Context, id int64) (*record.Record, error) {
	return v.store.Get(ctx, id)
}

// ListRecords returns stored records newest first
func (v *Verifier) ListRecords(ctx context.Context, limit, offset int) ([]*record.Record, error) {
	return v.store.List(ctx, limit, offset)
}

// Stats returns record statistics
func (v *Verifier) Stats(ctx context.Context) (*models.Stats, error) {
	return v.store.Stats(ctx)
}
