// Package publisher uploads the realm list to S3-compatible storage after
// every registry refresh, so edge proxies can serve it without a database.
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/realmd/internal/logging"
	"github.com/dmitrijs2005/realmd/internal/server/models"
	"github.com/google/uuid"
)

const LatestKey = "realmlist/latest.json"

// PutObjectAPI is the subset of the S3 client the publisher needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Settings struct {
	User         string
	Password     string
	Bucket       string
	Region       string
	BaseEndpoint string
}

type Snapshot struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Realms      []SnapshotRealm `json:"realms"`
}

type SnapshotRealm struct {
	ID         uint32  `json:"id"`
	Name       string  `json:"name"`
	Address    string  `json:"address"`
	Port       uint16  `json:"port"`
	Type       uint8   `json:"type"`
	Flags      uint8   `json:"flags"`
	Timezone   uint8   `json:"timezone"`
	Population float32 `json:"population"`
	Build      uint32  `json:"build"`
}

type Publisher struct {
	client  PutObjectAPI
	bucket  string
	archive bool
	logger  logging.Logger
	now     func() time.Time
}

type Option func(*Publisher)

// WithArchive additionally keeps every snapshot under a dated key.
func WithArchive() Option { return func(p *Publisher) { p.archive = true } }

func WithClock(now func() time.Time) Option { return func(p *Publisher) { p.now = now } }

func New(client PutObjectAPI, bucket string, l logging.Logger, opts ...Option) *Publisher {
	p := &Publisher{
		client: client,
		bucket: bucket,
		logger: l.With("module", "publisher"),
		now:    time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// NewS3Client builds an S3 client with static credentials against
// BaseEndpoint (MinIO in development).
func NewS3Client(ctx context.Context, s Settings) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(s.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.User, s.Password, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// ArchiveKey returns a dated, unique key for one snapshot.
func ArchiveKey(t time.Time) string {
	return fmt.Sprintf("realmlist/%d/%02d/%02d/%v.json", t.Year(), t.Month(), t.Day(), uuid.New())
}

func (p *Publisher) Publish(ctx context.Context, realms []models.Realm) error {
	snap := Snapshot{GeneratedAt: p.now().UTC(), Realms: make([]SnapshotRealm, 0, len(realms))}
	for _, r := range realms {
		snap.Realms = append(snap.Realms, SnapshotRealm{
			ID:         r.ID,
			Name:       r.Name,
			Address:    r.ExternalAddress.String(),
			Port:       r.Port,
			Type:       uint8(r.Type),
			Flags:      uint8(r.Flags),
			Timezone:   r.Timezone,
			Population: r.PopulationLevel,
			Build:      r.Build,
		})
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	keys := []string{LatestKey}
	if p.archive {
		keys = append(keys, ArchiveKey(snap.GeneratedAt))
	}

	for _, key := range keys {
		_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(p.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return fmt.Errorf("put %s: %w", key, err)
		}
	}
	return nil
}

// Listener adapts Publish to the registry refresh hook. Upload failures
// are logged; the registry keeps serving either way.
func (p *Publisher) Listener() func(ctx context.Context, realms []models.Realm) {
	return func(ctx context.Context, realms []models.Realm) {
		if err := p.Publish(ctx, realms); err != nil {
			p.logger.Warn(ctx, "realm list upload failed", "bucket", p.bucket, "error", err)
			return
		}
		p.logger.Debug(ctx, "realm list uploaded", "bucket", p.bucket, "realms", len(realms))
	}
}
