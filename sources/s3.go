package sources

import (
	"context"
	"fmt"
	"os"
	"strings"

	"wifski/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type s3Backend struct {
	bucket     string
	prefix     string
	downloader *manager.Downloader
}

func newS3Backend(cfg config.S3Source) *s3Backend {
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  creds,
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	// a bucket of the form "name/prefix" scopes keys under prefix
	bucket, prefix, _ := strings.Cut(cfg.Bucket, "/")
	return &s3Backend{
		bucket:     bucket,
		prefix:     strings.Trim(prefix, "/"),
		downloader: manager.NewDownloader(s3.New(opts)),
	}
}

func (b *s3Backend) key(p string) string {
	if b.prefix == "" {
		return p
	}
	return b.prefix + "/" + p
}

func (b *s3Backend) fetch(ctx context.Context, p string, dst *os.File) error {
	key := b.key(p)
	n, err := b.downloader.Download(ctx, dst, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to download object %s from bucket %s: %w", key, b.bucket, err)
	}
	if n == 0 {
		return fmt.Errorf("object %s in bucket %s is empty", key, b.bucket)
	}
	return nil
}
