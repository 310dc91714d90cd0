package sink

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ArchiveConfig configures the bronze archive sink.
type ArchiveConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	BatchSize int
}

// ArchiveSink batches serialized events into JSON-lines objects in an
// S3-compatible bucket, mirroring a bronze data-lake layer. The sink is
// owned by the single-threaded driver and is not safe for concurrent use.
type ArchiveSink struct {
	client    *minio.Client
	bucket    string
	batchSize int
	logger    *slog.Logger

	buf   bytes.Buffer
	count int
}

// NewArchiveSink connects to the object store and ensures the bucket exists.
func NewArchiveSink(cfg ArchiveConfig, logger *slog.Logger) (*ArchiveSink, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("sink: object store client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("sink: check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("sink: create bucket %s: %w", cfg.Bucket, err)
		}
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &ArchiveSink{
		client:    client,
		bucket:    cfg.Bucket,
		batchSize: cfg.BatchSize,
		logger:    logger.With("component", "archive_sink", "bucket", cfg.Bucket),
	}, nil
}

// Name identifies the sink in driver accounting.
func (s *ArchiveSink) Name() string {
	return "bronze-archive"
}

// Send buffers one event; a full batch is written as a single object.
func (s *ArchiveSink) Send(ctx context.Context, payload []byte, partitionKey string) error {
	s.buf.Write(payload)
	s.buf.WriteByte('\n')
	s.count++
	if s.count >= s.batchSize {
		return s.flush(ctx)
	}
	return nil
}

// Close flushes any buffered tail batch.
func (s *ArchiveSink) Close(ctx context.Context) error {
	return s.flush(ctx)
}

func (s *ArchiveSink) flush(ctx context.Context) error {
	if s.count == 0 {
		return nil
	}
	now := time.Now().UTC()
	object := fmt.Sprintf("bronze/%s/%s.jsonl",
		now.Format("2006-01-02"), now.Format("150405.000000000"))

	_, err := s.client.PutObject(ctx, s.bucket, object,
		bytes.NewReader(s.buf.Bytes()), int64(s.buf.Len()),
		minio.PutObjectOptions{ContentType: "application/x-ndjson"})
	if err != nil {
		return fmt.Errorf("sink: put %s: %w", object, err)
	}

	s.logger.Info("batch archived", "object", object, "events", s.count, "bytes", s.buf.Len())
	s.buf.Reset()
	s.count = 0
	return nil
}
