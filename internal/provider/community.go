package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"pumpcards/internal/domain"
)

// ObjectGetter is the subset of the S3 client used to read community feeds.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// communityFeed is the document shape served by community endpoints.
type communityFeed struct {
	Streamers []map[string]any `json:"streamers"`
}

// CommunityProvider reads community-curated streamer lists from http(s) or s3:// URLs.
type CommunityProvider struct {
	urls     []string
	s3Region string
	fetcher  *Fetcher
	logger   logrus.FieldLogger
	now      func() time.Time

	s3Once sync.Once
	s3     ObjectGetter
	s3Err  error
}

// NewCommunityProvider creates the community adapter. It is disabled without URLs.
func NewCommunityProvider(urls []string, s3Region string, fetcher *Fetcher, logger logrus.FieldLogger) *CommunityProvider {
	return &CommunityProvider{
		urls:     urls,
		s3Region: s3Region,
		fetcher:  fetcher,
		logger:   logger.WithField("provider", "community"),
		now:      time.Now,
	}
}

// WithObjectGetter sets the S3 client used for s3:// URLs.
func (p *CommunityProvider) WithObjectGetter(g ObjectGetter) *CommunityProvider {
	p.s3Once.Do(func() {})
	p.s3 = g
	return p
}

func (p *CommunityProvider) Name() string    { return "community" }
func (p *CommunityProvider) Enabled() bool   { return len(p.urls) > 0 }
func (p *CommunityProvider) Synthetic() bool { return false }

// FetchStreamers implements Provider. Records are deduplicated by lower-cased handle,
// keeping the first occurrence.
func (p *CommunityProvider) FetchStreamers(ctx context.Context) ([]domain.NormalizedRecord, error) {
	if !p.Enabled() {
		return nil, ErrDisabled
	}

	now := p.now()
	seen := make(map[string]bool)
	var out []domain.NormalizedRecord
	var errs []error

	for _, u := range p.urls {
		feed, err := p.load(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.logger.WithError(err).WithField("url", u).Warn("Failed to load community feed")
			errs = append(errs, err)
			continue
		}
		for _, item := range feed.Streamers {
			rec := parseRaw(item, communityFields, p.Name(), now)
			if !Sanitize(&rec) {
				continue
			}
			key := strings.ToLower(rec.Handle)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, rec)
		}
	}

	if len(out) == 0 && len(errs) == len(p.urls) {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func (p *CommunityProvider) load(ctx context.Context, raw string) (*communityFeed, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	var feed communityFeed
	switch u.Scheme {
	case "http", "https":
		if err := p.fetcher.GetJSON(ctx, raw, &feed); err != nil {
			return nil, err
		}
	case "s3":
		if err := p.loadS3(ctx, u.Host, strings.TrimPrefix(u.Path, "/"), &feed); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	if feed.Streamers == nil {
		return nil, fmt.Errorf("invalid response format: missing streamers array")
	}
	return &feed, nil
}

func (p *CommunityProvider) loadS3(ctx context.Context, bucket, key string, out *communityFeed) error {
	client, err := p.s3Client(ctx)
	if err != nil {
		return err
	}
	obj, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 get object s3://%s/%s: %w", bucket, key, err)
	}
	defer obj.Body.Close()

	body, err := io.ReadAll(io.LimitReader(obj.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read s3 object: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal s3 object: %w", err)
	}
	return nil
}

func (p *CommunityProvider) s3Client(ctx context.Context) (ObjectGetter, error) {
	p.s3Once.Do(func() {
		var loadOpts []func(*awsconfig.LoadOptions) error
		if p.s3Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(p.s3Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			p.s3Err = fmt.Errorf("load aws config: %w", err)
			return
		}
		p.s3 = s3.NewFromConfig(awsCfg)
	})
	return p.s3, p.s3Err
}
