// Package media pushes locally staged uploads to the object store that serves
// avatars and cover images.
package media

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/chantube/internal/filex"
	"github.com/dmitrijs2005/chantube/internal/logging"
	sc "github.com/dmitrijs2005/chantube/internal/server/config"
	"github.com/dmitrijs2005/chantube/internal/server/metrics"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

// UploadResult describes a stored object.
type UploadResult struct {
	Key string
	URL string
}

// Uploader stores a local file and returns its public location. It returns
// nil when the path is empty or the upload fails. The local file is removed
// in every case.
type Uploader interface {
	Upload(ctx context.Context, localPath string) *UploadResult
}

type S3Uploader struct {
	config *sc.Config
	log    logging.Logger
}

func NewS3Uploader(cfg *sc.Config, log logging.Logger) *S3Uploader {
	return &S3Uploader{config: cfg, log: log}
}

// StorageKey returns a date-sharded random object key that keeps the
// extension of name.
func StorageKey(name string) string {
	d := time.Now()
	return fmt.Sprintf("media/%d/%d/%d/%v%s", d.Year(), d.Month(), d.Day(), uuid.New(), strings.ToLower(filepath.Ext(name)))
}

func (u *S3Uploader) client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(u.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			u.config.S3RootUser,
			u.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(u.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

func (u *S3Uploader) Upload(ctx context.Context, localPath string) *UploadResult {
	if localPath == "" {
		return nil
	}
	defer func() {
		if err := filex.RemoveQuietly(localPath); err != nil {
			u.log.Warn(ctx, "failed to remove staged upload", "path", localPath, "error", err)
		}
	}()

	res, err := u.upload(ctx, localPath)
	metrics.MediaUploadsTotal.WithLabelValues(metrics.Status(err)).Inc()
	if err != nil {
		u.log.Error(ctx, "media upload failed", "path", localPath, "error", err)
		return nil
	}
	return res
}

func (u *S3Uploader) upload(ctx context.Context, localPath string) (*UploadResult, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}
	if fi.IsDir() {
		return nil, errors.New("not a regular file")
	}

	client, err := u.client(ctx)
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}

	key := StorageKey(localPath)
	in := &s3.PutObjectInput{
		Bucket:        aws.String(u.config.S3Bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(fi.Size()),
	}
	if ct := mime.TypeByExtension(filepath.Ext(localPath)); ct != "" {
		in.ContentType = aws.String(ct)
	}

	if _, err := putObject(client, ctx, in); err != nil {
		return nil, fmt.Errorf("put object: %w", err)
	}

	return &UploadResult{
		Key: key,
		URL: strings.TrimRight(u.config.S3PublicBaseURL, "/") + "/" + key,
	}, nil
}
