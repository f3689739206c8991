// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package ebook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"codeberg.org/mathrix/autonomouslab/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PresignExpiry is how long a download URL stays valid.
const PresignExpiry = 15 * time.Minute

// ErrFileUnavailable is returned when no download source exists.
var ErrFileUnavailable = errors.New("ebook file unavailable")

// Downloads hands out the ebook file, preferring presigned S3 URLs.
type Downloads struct {
	presign  *s3.PresignClient
	bucket   string
	key      string
	filePath string
	fileName string
}

// NewDownloads creates a Downloads. S3 is used when s3cfg is complete.
func NewDownloads(s3cfg config.S3Config, ebookCfg config.EbookConfig) *Downloads {
	d := &Downloads{
		filePath: ebookCfg.FilePath,
		fileName: ebookCfg.FileName,
	}

	if s3cfg.Enabled() {
		opts := s3.Options{
			Region:      s3cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(s3cfg.AccessKeyID, s3cfg.SecretAccessKey, ""),
		}
		if s3cfg.Endpoint != "" {
			opts.BaseEndpoint = aws.String(s3cfg.Endpoint)
			opts.UsePathStyle = true
		}
		d.presign = s3.NewPresignClient(s3.New(opts))
		d.bucket = s3cfg.Bucket
		d.key = s3cfg.Key
	}
	return d
}

// UsesS3 reports whether downloads redirect to S3.
func (d *Downloads) UsesS3() bool {
	return d.presign != nil
}

// PresignedURL returns a short-lived GET URL for the ebook object.
func (d *Downloads) PresignedURL(ctx context.Context) (string, error) {
	if d.presign == nil {
		return "", ErrFileUnavailable
	}

	req, err := d.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(d.bucket),
		Key:                        aws.String(d.key),
		ResponseContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", d.fileName)),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return "", fmt.Errorf("presigning ebook download: %w", err)
	}
	return req.URL, nil
}

// LocalFile returns the path and download name of the local ebook file.
func (d *Downloads) LocalFile() (path, name string, err error) {
	info, err := os.Stat(d.filePath)
	if err != nil || info.IsDir() {
		return "", "", ErrFileUnavailable
	}
	return d.filePath, d.fileName, nil
}
