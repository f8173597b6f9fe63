package attachments

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	appconfig "github.com/nativeai/nativechat/internal/pkg/config"
)

// Store archives attachment bytes to S3-compatible object storage so persisted
// messages can reference the original file. Archival is strictly best-effort:
// every failure is logged and the chat turn proceeds without a stored object.
type Store struct {
	client *s3.Client
	bucket string
}

// NewStore builds an attachment store from configuration. Returns nil when
// archival is disabled or misconfigured; a nil *Store is safe to use.
func NewStore(cfg *appconfig.Config) *Store {
	if !cfg.S3Enabled || cfg.S3Bucket == "" || cfg.S3AccessKeyID == "" || cfg.S3SecretAccessKey == "" {
		return nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		log.Warnf("[Attachments] S3 config failed, archival disabled: %v", err)
		return nil
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.S3EndpointURL)
			o.UsePathStyle = true
		}
	})

	return &Store{client: client, bucket: cfg.S3Bucket}
}

// Archive uploads one attachment and returns its object key. A nil store or
// any upload failure returns an empty key.
func (s *Store) Archive(ctx context.Context, userID uint, filename, contentType string, data []byte) string {
	if s == nil || len(data) == 0 {
		return ""
	}

	key := fmt.Sprintf("attachments/%d/%s/%s-%s", userID, time.Now().UTC().Format("2006/01"), uuid.NewString(), filename)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		log.Warnf("[Attachments] upload of %s failed: %v", filename, err)
		return ""
	}
	return key
}
