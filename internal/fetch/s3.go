package fetch

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"tourcache/internal/config"
	"tourcache/internal/offline"
)

// S3Fetcher downloads asset payloads addressed as s3://bucket/key URLs.
// Useful when tour media is published to a bucket rather than a CDN.
type S3Fetcher struct {
	downloader *manager.Downloader
}

// NewS3Fetcher creates an S3Fetcher from configuration. Credentials fall
// back to the default AWS chain (env vars, IAM roles) when not set in the
// config; a custom endpoint supports S3-compatible services.
func NewS3Fetcher(cfg config.FetcherConfig) (*S3Fetcher, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKeyID != "" && cfg.S3SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.S3Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = cfg.S3UsePathStyle
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return &S3Fetcher{downloader: manager.NewDownloader(client)}, nil
}

// Fetch retrieves the payload for an s3://bucket/key URL.
func (f *S3Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	bucket, key, err := splitS3URL(url)
	if err != nil {
		return nil, err
	}

	buf := manager.NewWriteAtBuffer(nil)
	_, err = f.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("S3 get object %s: %w", url, err)
	}

	payload := buf.Bytes()
	if len(payload) == 0 {
		return nil, fmt.Errorf("fetching %s: empty payload", url)
	}
	return payload, nil
}

// splitS3URL parses "s3://bucket/key" into its parts.
func splitS3URL(url string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(url, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 URL: %s", url)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed s3 URL: %s", url)
	}
	return bucket, key, nil
}

// Compile-time check that S3Fetcher implements offline.AssetFetcher
var _ offline.AssetFetcher = (*S3Fetcher)(nil)
