// README: Media service generates cover images and video teasers and applies image edits.
package media

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nest/internal/ai"
	"nest/internal/logger"
	"nest/internal/metrics"
)

// Stock covers used when generation is unavailable.
const (
	StockCoverUnconfigured = "https://images.unsplash.com/photo-1476514525535-07fb3b4ae5f1?q=80&w=2070&auto=format&fit=crop"
	StockCoverFailed       = "https://images.unsplash.com/photo-1469854523086-cc02fe5d8800?q=80&w=2021&auto=format&fit=crop"
)

const (
	DefaultPollInterval = 10 * time.Second
	DefaultMaxPolls     = 60
)

const (
	coverPrompt  = "A breathtaking, cinematic, 4k highly detailed travel photography shot of %s at golden hour. Wide angle, vibrant colors, photorealistic, professional travel magazine style. No text."
	teaserPrompt = "Cinematic drone shot of %s. %s. 4k, hyper-realistic, travel documentary style, wide angle, slow smooth motion."
)

// errVideoDownload marks a failed download of a finished clip. It says
// nothing about model access, so it never triggers a key change.
var errVideoDownload = errors.New("video download failed")

// KeySelector is an optional interactive credential-selection hook.
type KeySelector interface {
	HasSelectedKey(ctx context.Context) (bool, error)
	SelectKey(ctx context.Context) error
}

// Sleeper suspends for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type Options struct {
	PollInterval time.Duration
	MaxPolls     int
	// Selector enables the key prompt and the one-shot retry on access denial.
	Selector   KeySelector
	Classifier ai.ErrorClassifier
	Fetcher    *ai.Fetcher
	Sleep      Sleeper
}

type Service struct {
	creds   ai.CredentialProvider
	factory ai.ClientFactory
	log     logger.Logger
	opts    Options
}

func NewService(creds ai.CredentialProvider, factory ai.ClientFactory, log logger.Logger, opts Options) *Service {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxPolls <= 0 {
		opts.MaxPolls = DefaultMaxPolls
	}
	if opts.Classifier == nil {
		opts.Classifier = ai.GeminiClassifier{}
	}
	if opts.Fetcher == nil {
		opts.Fetcher = ai.NewFetcher()
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{creds: creds, factory: factory, log: log, opts: opts}
}

// GenerateCoverImage never fails: a missing credential or any provider
// problem yields a stock photo URL.
func (s *Service) GenerateCoverImage(ctx context.Context, destination string) ai.MediaAsset {
	const op = "cover_image"
	start := time.Now()

	client, _, err := ai.Connect(ctx, s.creds, s.factory, op)
	if err != nil {
		metrics.ObserveAI(op, start, err)
		metrics.Fallback(op)
		return ai.AssetFromURL(StockCoverUnconfigured)
	}

	resp, err := client.Generate(ctx, &ai.GenerateRequest{
		Model:  ai.ModelImage,
		Prompt: fmt.Sprintf(coverPrompt, destination),
	})
	if err != nil {
		err = &ai.ProviderError{Op: op, Err: err}
	}
	metrics.ObserveAI(op, start, err)
	if err != nil {
		s.log.Warn("cover image generation failed", map[string]interface{}{"destination": destination, "error": err.Error()})
		metrics.Fallback(op)
		return ai.AssetFromURL(StockCoverFailed)
	}
	blob := resp.FirstBlob()
	if blob == nil {
		s.log.Warn("cover image response had no image", map[string]interface{}{"destination": destination})
		metrics.Fallback(op)
		return ai.AssetFromURL(StockCoverFailed)
	}
	return ai.AssetFromBlob(*blob)
}

// EditImage applies instruction to asset. A successful answer without an
// image part returns nil, nil. Provider failures are returned.
func (s *Service) EditImage(ctx context.Context, asset ai.MediaAsset, instruction string) (out *ai.MediaAsset, err error) {
	const op = "edit_image"
	start := time.Now()
	defer func() { metrics.ObserveAI(op, start, err) }()

	client, _, err := ai.Connect(ctx, s.creds, s.factory, op)
	if err != nil {
		return nil, err
	}

	src, err := s.opts.Fetcher.Resolve(ctx, asset)
	if err != nil {
		return nil, fmt.Errorf("load image to edit: %w", err)
	}
	img := *src
	if img.MIMEType == "" {
		img.MIMEType = ai.DefaultImageMIME
	}

	resp, err := client.Generate(ctx, &ai.GenerateRequest{
		Model: ai.ModelImage,
		Parts: []ai.Part{{Blob: &img}, {Text: instruction}},
	})
	if err != nil {
		return nil, &ai.ProviderError{Op: op, Err: err}
	}
	blob := resp.FirstBlob()
	if blob == nil {
		s.log.Info("image edit produced no image", map[string]interface{}{"instruction": instruction})
		return nil, nil
	}
	edited := ai.AssetFromBlob(*blob)
	return &edited, nil
}

// GenerateVideoTeaser returns a short destination clip, or nil when the
// teaser could not be produced. The error is non-nil only when ctx ends.
func (s *Service) GenerateVideoTeaser(ctx context.Context, destination, vibe string) (*ai.MediaAsset, error) {
	const op = "video_teaser"
	start := time.Now()
	log := s.log.WithFields(map[string]interface{}{"destination": destination})

	s.ensureKeySelected(ctx, log)

	asset, err := s.teaserAttempt(ctx, destination, vibe)
	if err != nil && ctx.Err() == nil && s.opts.Selector != nil &&
		!errors.Is(err, errVideoDownload) && s.opts.Classifier.ModelAccessDenied(err) {
		log.Warn("video model access denied, prompting for a new key", map[string]interface{}{"error": err.Error()})
		if selErr := s.opts.Selector.SelectKey(ctx); selErr != nil {
			log.Warn("key selection failed", map[string]interface{}{"error": selErr.Error()})
		} else {
			asset, err = s.teaserAttempt(ctx, destination, vibe)
		}
	}
	metrics.ObserveAI(op, start, err)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		log.WithError(err).Warn("video teaser unavailable", nil)
		metrics.Fallback(op)
		return nil, nil
	}
	return asset, nil
}

func (s *Service) ensureKeySelected(ctx context.Context, log logger.Logger) {
	if s.opts.Selector == nil {
		return
	}
	ok, err := s.opts.Selector.HasSelectedKey(ctx)
	if err != nil {
		log.Warn("key selection check failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if ok {
		return
	}
	if err := s.opts.Selector.SelectKey(ctx); err != nil {
		log.Warn("key selection failed", map[string]interface{}{"error": err.Error()})
	}
}

// teaserAttempt runs one full generate, poll, fetch cycle with a freshly
// resolved credential. A job that outlives the poll ceiling yields nil, nil.
func (s *Service) teaserAttempt(ctx context.Context, destination, vibe string) (*ai.MediaAsset, error) {
	const op = "video_teaser"
	client, key, err := ai.Connect(ctx, s.creds, s.factory, op)
	if err != nil {
		return nil, err
	}

	job, err := client.GenerateVideos(ctx, &ai.VideoRequest{
		Model:          ai.ModelVideo,
		Prompt:         fmt.Sprintf(teaserPrompt, destination, vibe),
		NumberOfVideos: 1,
		Resolution:     "720p",
		AspectRatio:    "16:9",
	})
	if err != nil {
		return nil, &ai.ProviderError{Op: op, Err: err}
	}

	for polls := 0; !job.Done && polls < s.opts.MaxPolls; polls++ {
		if err := s.opts.Sleep(ctx, s.opts.PollInterval); err != nil {
			return nil, err
		}
		metrics.VideoPolls.Inc()
		next, err := client.PollVideos(ctx, job)
		if err != nil {
			return nil, &ai.ProviderError{Op: op, Err: err}
		}
		job = next
	}
	if !job.Done {
		s.log.Warn("video teaser poll ceiling reached", map[string]interface{}{
			"destination": destination, "operation": job.Name, "polls": s.opts.MaxPolls,
		})
		return nil, nil
	}
	if job.Failure != "" {
		return nil, &ai.ProviderError{Op: op, Err: errors.New(job.Failure)}
	}
	if len(job.VideoURIs) == 0 {
		s.log.Warn("video operation finished without a video", map[string]interface{}{"operation": job.Name})
		return nil, nil
	}

	blob, err := s.opts.Fetcher.Fetch(ctx, job.VideoURIs[0], key)
	if err != nil {
		return nil, &ai.ProviderError{Op: op, Err: fmt.Errorf("%w: %w", errVideoDownload, err)}
	}
	asset := ai.AssetFromBlob(*blob)
	return &asset, nil
}
