package blob

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *S3Store {
	return NewS3Store(Config{
		Region:       "us-east-1",
		RootUser:     "minioadmin",
		RootPassword: "minioadmin",
		BaseEndpoint: "http://127.0.0.1:9000",
		Bucket:       "intrusions",
	})
}

// stubAWS replaces the SDK constructors for the duration of the test.
func stubAWS(t *testing.T) *string {
	t.Helper()

	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	origPut := presignPutObject
	origGet := presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		presignPutObject = origPut
		presignGetObject = origGet
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				t.Fatalf("load options fn error: %v", err)
			}
		}
		if lo.Region != "us-east-1" {
			t.Fatalf("region not applied: %q", lo.Region)
		}
		return aws.Config{}, nil
	}

	var baseEndpoint string
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var opts s3.Options
		for _, fn := range optFns {
			fn(&opts)
		}
		baseEndpoint = aws.ToString(opts.BaseEndpoint)
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient { return &s3.PresignClient{} }

	return &baseEndpoint
}

func TestPresignPut(t *testing.T) {
	endpoint := stubAWS(t)

	var gotBucket, gotKey string
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		gotBucket, gotKey = aws.ToString(in.Bucket), aws.ToString(in.Key)
		var po s3.PresignOptions
		for _, fn := range optFns {
			fn(&po)
		}
		assert.Equal(t, 15*time.Minute, po.Expires)
		return &v4.PresignedHTTPRequest{URL: "https://put.example/" + gotKey}, nil
	}

	key, url, err := newTestStore().PresignPut(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9000", *endpoint)
	assert.Equal(t, "intrusions", gotBucket)
	assert.Equal(t, key, gotKey)
	assert.Regexp(t, regexp.MustCompile(`^intrusions/abc123/\d{4}/\d{2}/\d{2}/[0-9a-f-]{36}$`), key)
	assert.Equal(t, "https://put.example/"+key, url)
}

func TestPresignPut_Errors(t *testing.T) {
	stubAWS(t)

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("sign-fail")
	}
	_, _, err := newTestStore().PresignPut(context.Background(), "abc123")
	require.EqualError(t, err, "sign-fail")

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}
	_, _, err = newTestStore().PresignPut(context.Background(), "abc123")
	require.EqualError(t, err, "load-fail")
}

func TestResolve(t *testing.T) {
	stubAWS(t)

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: "https://get.example/" + aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key)}, nil
	}

	s := newTestStore()

	got, err := s.Resolve(context.Background(), s.Ref("intrusions/u1/2018/05/10/x"))
	require.NoError(t, err)
	assert.Equal(t, "https://get.example/intrusions/intrusions/u1/2018/05/10/x", got)

	got, err = s.Resolve(context.Background(), "https://firebasestorage.example/img.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://firebasestorage.example/img.jpg", got)
}

func TestResolve_PresignError(t *testing.T) {
	stubAWS(t)
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("get-fail")
	}

	_, err := newTestStore().Resolve(context.Background(), "s3://b/k")
	require.EqualError(t, err, "get-fail")
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		ref    string
		bucket string
		key    string
		ok     bool
	}{
		{ref: "s3://bucket/a/b.jpg", bucket: "bucket", key: "a/b.jpg", ok: true},
		{ref: "s3://bucket/", ok: false},
		{ref: "s3:///key", ok: false},
		{ref: "s3://bucket", ok: false},
		{ref: "https://x/y", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			bucket, key, ok := ParseRef(tt.ref)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestStorageKey_UsesClock(t *testing.T) {
	orig := now
	t.Cleanup(func() { now = orig })
	now = func() time.Time { return time.Date(2018, 5, 10, 12, 0, 0, 0, time.UTC) }

	assert.Regexp(t, `^intrusions/u1/2018/05/10/`, StorageKey("u1"))
}

func TestPassThrough(t *testing.T) {
	got, err := PassThrough{}.Resolve(context.Background(), "s3://b/k")
	require.NoError(t, err)
	assert.Equal(t, "s3://b/k", got)
}
