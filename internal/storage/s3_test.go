package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method      string
	Path        string
	ContentType string
	Body        []byte
}

func fakeS3(t *testing.T, status int) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var mu sync.Mutex
	var reqs []recordedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recordedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
			Body:        body,
		})
		mu.Unlock()
		if status >= 300 {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>denied</Message></Error>`)
			return
		}
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), reqs...)
	}
}

func newTestS3Store(t *testing.T, endpoint string) *S3Store {
	t.Helper()
	s, err := NewS3Store(context.Background(), S3Config{
		Region:       "us-east-1",
		AccessKey:    "admin",
		SecretKey:    "secretpassword",
		Bucket:       "photos",
		BaseEndpoint: endpoint,
	})
	require.NoError(t, err)
	return s
}

func TestS3Store_UploadAndDeletePathStyle(t *testing.T) {
	srv, requests := fakeS3(t, http.StatusOK)
	s := newTestS3Store(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, "thumbnails/abc.webp", []byte("RIFFdata"), "image/webp"))
	require.NoError(t, s.Delete(ctx, "thumbnails/abc.webp"))

	got := requests()
	require.Len(t, got, 2)

	assert.Equal(t, http.MethodPut, got[0].Method)
	assert.Equal(t, "/photos/thumbnails/abc.webp", got[0].Path)
	assert.Equal(t, "image/webp", got[0].ContentType)
	assert.Contains(t, string(got[0].Body), "RIFFdata")

	assert.Equal(t, http.MethodDelete, got[1].Method)
	assert.Equal(t, "/photos/thumbnails/abc.webp", got[1].Path)
}

func TestS3Store_UploadError(t *testing.T) {
	srv, _ := fakeS3(t, http.StatusForbidden)
	s := newTestS3Store(t, srv.URL)

	err := s.Upload(context.Background(), "a.webp", []byte("x"), "image/webp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3 put a.webp")
}

func TestS3Store_PublicURL(t *testing.T) {
	s := newTestS3Store(t, "http://127.0.0.1:9000/")
	assert.Equal(t, "http://127.0.0.1:9000/photos/abc.webp", s.PublicURL("abc.webp"))

	s2, err := NewS3Store(context.Background(), S3Config{
		Region: "us-east-1", Bucket: "photos", PublicBaseURL: "https://cdn.example.com/",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/thumbnails/abc.webp", s2.PublicURL("thumbnails/abc.webp"))
}

func TestNewS3Store_ConfigSeams(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-west-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		creds, err := lo.Credentials.Retrieve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "user", creds.AccessKeyID)
		assert.Equal(t, "pass", creds.SecretAccessKey)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	_, err := NewS3Store(context.Background(), S3Config{
		Region: "eu-west-1", AccessKey: "user", SecretKey: "pass", Bucket: "b", BaseEndpoint: "http://minio:9000",
	})
	require.NoError(t, err)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://minio:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)

	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}
	_, err = NewS3Store(context.Background(), S3Config{})
	require.Error(t, err)
}
