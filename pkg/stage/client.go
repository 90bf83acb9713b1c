// Package stage fetches OTA package objects from S3 into the local work
// directory so they can be handed to the installer. Staging is operator
// tooling that runs before an install; the installer and verifier cores
// never touch the network.
package stage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/otacore/recovery/pkg/errors"
)

// Client provides S3 package-staging operations.
type Client struct {
	s3Client *s3.Client
	bucket   string
}

// NewClient creates an S3 client for anonymous access to the package
// bucket.
func NewClient(ctx context.Context, bucket, region string) (*Client, error) {
	slog.Info("stage_client_init", "bucket", bucket, "region", region)

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		slog.Error("aws_config_load_failed", "error", err)
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	return &Client{
		s3Client: s3.NewFromConfig(cfg),
		bucket:   bucket,
	}, nil
}

// DownloadResult describes a staged package.
type DownloadResult struct {
	LocalPath string
	SHA256    string
	Size      int64
}

// Download fetches s3Key into localPath, computing the package digest on
// the way through.
func (c *Client) Download(ctx context.Context, s3Key, localPath string) (*DownloadResult, error) {
	slog.Info("stage_download_start", "s3_key", s3Key, "local_path", localPath)

	result, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(s3Key),
	})
	if err != nil {
		slog.Error("stage_get_object_failed", "s3_key", s3Key, "error", err)
		return nil, errors.Wrap(err, "failed to get object from S3")
	}
	defer result.Body.Close()

	f, err := os.Create(localPath)
	if err != nil {
		slog.Error("stage_local_file_failed", "path", localPath, "error", err)
		return nil, errors.Wrap(err, "failed to create local file")
	}
	defer f.Close()

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, hash), result.Body)
	if err != nil {
		slog.Error("stage_download_failed", "s3_key", s3Key, "error", err)
		return nil, errors.Wrap(err, "failed to download package")
	}

	checksum := hex.EncodeToString(hash.Sum(nil))
	slog.Info("stage_download_complete",
		"s3_key", s3Key,
		"size_mb", size/1024/1024,
		"sha256", checksum[:16]+"...",
	)

	return &DownloadResult{
		LocalPath: localPath,
		SHA256:    checksum,
		Size:      size,
	}, nil
}

// ListPackages lists package objects in the bucket under prefix.
func (c *Client) ListPackages(ctx context.Context, prefix string) ([]string, error) {
	slog.Info("stage_list_start", "bucket", c.bucket, "prefix", prefix)

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(c.s3Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			slog.Error("stage_list_failed", "prefix", prefix, "error", err)
			return nil, errors.Wrap(err, "failed to list packages")
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				keys = append(keys, *obj.Key)
			}
		}
	}

	slog.Info("stage_list_complete", "count", len(keys))
	return keys, nil
}
