// Package blob resolves image references against S3-compatible object
// storage. The camera uploads through a presigned PUT URL and records the
// object as s3://bucket/key; chat cards need a presigned GET URL instead.
package blob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const scheme = "s3://"

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}

	now = time.Now
)

// Config holds the object storage settings.
type Config struct {
	RootUser     string
	RootPassword string
	Bucket       string
	Region       string
	BaseEndpoint string
	Expiry       time.Duration
}

// S3Store presigns object URLs.
type S3Store struct {
	config Config
}

func NewS3Store(c Config) *S3Store {
	if c.Expiry <= 0 {
		c.Expiry = 15 * time.Minute
	}
	return &S3Store{config: c}
}

// StorageKey builds the object key for a new motion image of userID.
func StorageKey(userID string) string {
	d := now()
	return fmt.Sprintf("intrusions/%s/%d/%02d/%02d/%v", userID, d.Year(), d.Month(), d.Day(), uuid.New())
}

// Ref turns a key of the configured bucket into an s3:// reference.
func (s *S3Store) Ref(key string) string {
	return scheme + s.config.Bucket + "/" + key
}

// ParseRef splits s3://bucket/key. ok is false for any other reference.
func ParseRef(ref string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(ref, scheme)
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

func (s *S3Store) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.RootUser,
			s.config.RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// PresignPut reserves a key for a new image of userID and returns it with a
// presigned upload URL.
func (s *S3Store) PresignPut(ctx context.Context, userID string) (string, string, error) {
	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return "", "", err
	}

	bucket := s.config.Bucket
	key := StorageKey(userID)

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.config.Expiry))
	if err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}

// Resolve returns a URL a chat client can load. s3:// references are
// presigned; anything else is returned unchanged.
func (s *S3Store) Resolve(ctx context.Context, ref string) (string, error) {
	bucket, key, ok := ParseRef(ref)
	if !ok {
		return ref, nil
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return "", err
	}

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.config.Expiry))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

// PassThrough resolves every reference to itself. It stands in for S3Store
// when no object storage is configured.
type PassThrough struct{}

func (PassThrough) Resolve(_ context.Context, ref string) (string, error) {
	return ref, nil
}
