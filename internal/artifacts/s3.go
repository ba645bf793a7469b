package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"path"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	apperrors "github.com/nishad/enaimport/internal/errors"
)

// S3Config selects the bucket receiving artifacts. Endpoint and PathStyle
// support S3-compatible stores such as MinIO.
type S3Config struct {
	Bucket          string
	Region          string
	Prefix          string
	Endpoint        string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
}

// S3Sink uploads lists as objects.
type S3Sink struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Sink builds a client from the default AWS credential chain, or from
// static keys when they are configured.
func NewS3Sink(ctx context.Context, cfg S3Config) (*S3Sink, error) {
	const op = apperrors.Op("artifacts.NewS3Sink")
	if cfg.Bucket == "" {
		return nil, apperrors.E(op, apperrors.KindConfig, fmt.Errorf("s3 bucket required"))
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, apperrors.E(op, apperrors.KindConfig, err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewS3SinkFromClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3SinkFromClient wraps an existing client.
func NewS3SinkFromClient(client *s3.Client, bucket, prefix string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, prefix: prefix}
}

// Write uploads the list, overwriting an earlier upload of the same name.
func (s *S3Sink) Write(ctx context.Context, name string, accessions []string) (string, error) {
	key := path.Join(s.prefix, name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(render(accessions)),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return "", apperrors.E(apperrors.Op("artifacts.S3Sink.Write"), apperrors.KindIO, err, key)
	}
	return "s3://" + s.bucket + "/" + key, nil
}
