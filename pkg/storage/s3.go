package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/aws/smithy-go/logging"
	"go.uber.org/zap"

	"github.com/noah-isme/geophoto-api/pkg/config"
)

const s3PartSize = 10 * 1024 * 1024

// S3Uploader puts photos into an S3 compatible bucket.
type S3Uploader struct {
	uploader   *manager.Uploader
	presigner  *s3.PresignClient
	bucket     string
	prefix     string
	publicURL  string
	presignTTL time.Duration
}

// NewS3Uploader builds the client from static credentials when given, otherwise
// from the default AWS credential chain.
func NewS3Uploader(ctx context.Context, cfg config.ObjectStoreConfig, logger *zap.Logger) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3.Region),
		awsconfig.WithLogger(smithyLogger(logger)),
	}
	if cfg.S3.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := cfg.S3.Endpoint
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return &S3Uploader{
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = s3PartSize
		}),
		presigner:  s3.NewPresignClient(client),
		bucket:     cfg.Bucket,
		prefix:     cfg.KeyPrefix,
		publicURL:  strings.TrimRight(cfg.PublicURL, "/"),
		presignTTL: cfg.PresignTTL,
	}, nil
}

// Upload stores the object privately and returns the public URL when one is
// configured, otherwise a presigned GET link.
func (u *S3Uploader) Upload(ctx context.Context, name string, body io.Reader, size int64, contentType string) (string, error) {
	key := ObjectKey(u.prefix, name)
	in := &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
		ACL:         s3types.ObjectCannedACLPrivate,
		IfNoneMatch: aws.String("*"),
	}
	if size > 0 {
		in.ContentLength = aws.Int64(size)
	}
	if _, err := u.uploader.Upload(ctx, in); err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
			return "", fmt.Errorf("s3 put %s: %w", key, ErrObjectExists)
		}
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}

	if u.publicURL != "" {
		return fmt.Sprintf("%s/%s", u.publicURL, escapeKey(key)), nil
	}
	out, err := u.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(u.presignTTL))
	if err != nil {
		return "", fmt.Errorf("s3 presign %s: %w", key, err)
	}
	return out.URL, nil
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func smithyLogger(logger *zap.Logger) logging.Logger {
	sugar := logger.Sugar().Named("aws")
	return logging.LoggerFunc(func(classification logging.Classification, format string, v ...interface{}) {
		if classification == logging.Warn {
			sugar.Warnf(format, v...)
			return
		}
		sugar.Debugf(format, v...)
	})
}
