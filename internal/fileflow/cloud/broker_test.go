package cloud

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileflow/pkg/config"
	apperrors "fileflow/pkg/errors"
)

// fakeProvider records calls and serves objects from memory.
type fakeProvider struct {
	name    string
	objects map[string][]byte

	uploads   int
	copies    int
	failWith  error
	presignFn func() (*SignedURL, error)
}

func newFakeProvider(name string) *fakeProvider {
	return &fakeProvider{name: name, objects: make(map[string][]byte)}
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Upload(ctx context.Context, target Target, src io.Reader, contentLength int64, contentType string) (string, error) {
	if f.failWith != nil {
		return "", f.failWith
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return "", err
	}
	f.uploads++
	f.objects[target.Bucket+"/"+target.Key] = data
	return f.name + "://" + target.Bucket + "/" + target.Key, nil
}

func (f *fakeProvider) Download(ctx context.Context, target Target) (io.ReadCloser, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	data, ok := f.objects[target.Bucket+"/"+target.Key]
	if !ok {
		return nil, errors.New("object missing")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeProvider) Copy(ctx context.Context, src, dst Target) (string, error) {
	if f.failWith != nil {
		return "", f.failWith
	}
	data, ok := f.objects[src.Bucket+"/"+src.Key]
	if !ok {
		return "", errors.New("source missing")
	}
	f.copies++
	f.objects[dst.Bucket+"/"+dst.Key] = data
	return f.name + "://" + dst.Bucket + "/" + dst.Key, nil
}

func (f *fakeProvider) Presign(ctx context.Context, target Target, op Operation, expiry time.Duration, contentType string) (*SignedURL, error) {
	if f.presignFn != nil {
		return f.presignFn()
	}
	return &SignedURL{
		URL:       "https://" + f.name + ".example/" + target.Key + "?sig=x",
		ExpiresAt: time.Now().Add(expiry),
	}, nil
}

// newTestBroker builds a broker whose real providers are shadowed by
// the given fakes.
func newTestBroker(providers ...Provider) *Broker {
	b := NewBroker(config.CloudConfig{
		Retry: config.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   config.Duration(time.Millisecond),
		},
	})
	b.providers = make(map[string]Provider)
	for _, p := range providers {
		b.Register(p)
	}
	return b
}

func TestBroker_UploadAndDownloadStream(t *testing.T) {
	fake := newFakeProvider("s3")
	b := newTestBroker(fake)
	ctx := context.Background()

	target := Target{Provider: "s3", Bucket: "data", Key: "report.pdf"}
	uri, err := b.UploadStream(ctx, target, strings.NewReader("content-bytes"), 13, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "s3://data/report.pdf", uri)

	var sink bytes.Buffer
	n, err := b.DownloadStream(ctx, target, &sink)
	require.NoError(t, err)
	assert.Equal(t, int64(13), n)
	assert.Equal(t, "content-bytes", sink.String())
}

func TestBroker_UnsupportedProvider(t *testing.T) {
	b := newTestBroker()
	ctx := context.Background()

	_, err := b.UploadStream(ctx, Target{Provider: "ftp"}, strings.NewReader("x"), 1, "")
	assert.True(t, apperrors.IsUnsupportedProvider(err))

	_, _, err = b.Copy(ctx, Target{Provider: "s3", Bucket: "b", Key: "k"}, Target{Provider: "ftp"})
	assert.True(t, apperrors.IsUnsupportedProvider(err))
}

func TestBroker_ProviderErrorsAreTagged(t *testing.T) {
	fake := newFakeProvider("gcs")
	fake.failWith = errors.New("quota exceeded")
	b := newTestBroker(fake)

	_, err := b.UploadStream(context.Background(), Target{Provider: "gcs", Bucket: "b", Key: "k"},
		strings.NewReader("x"), 1, "")
	require.Error(t, err)

	var provErr *apperrors.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "gcs", provErr.Provider)
	assert.Equal(t, "upload", provErr.Op)
	assert.ErrorIs(t, err, fake.failWith)
}

func TestBroker_SameProviderCopyIsNative(t *testing.T) {
	fake := newFakeProvider("s3")
	fake.objects["src/a"] = []byte("payload")
	b := newTestBroker(fake)

	uri, native, err := b.Copy(context.Background(),
		Target{Provider: "s3", Bucket: "src", Key: "a"},
		Target{Provider: "s3", Bucket: "dst", Key: "b"})
	require.NoError(t, err)
	assert.True(t, native)
	assert.Equal(t, "s3://dst/b", uri)
	assert.Equal(t, 1, fake.copies)
	assert.Equal(t, 0, fake.uploads, "native copy must not stream through the broker")
	assert.Equal(t, []byte("payload"), fake.objects["dst/b"])
}

func TestBroker_CrossProviderCopyStreamsThroughPipe(t *testing.T) {
	src := newFakeProvider("s3")
	src.objects["src/a"] = []byte("cross-provider payload")
	dst := newFakeProvider("gcs")
	b := newTestBroker(src, dst)

	uri, native, err := b.Copy(context.Background(),
		Target{Provider: "s3", Bucket: "src", Key: "a"},
		Target{Provider: "gcs", Bucket: "dst", Key: "b"})
	require.NoError(t, err)
	assert.False(t, native)
	assert.Equal(t, "gcs://dst/b", uri)
	assert.Equal(t, 0, src.copies)
	assert.Equal(t, []byte("cross-provider payload"), dst.objects["dst/b"])
}

func TestBroker_CrossProviderCopySourceFailure(t *testing.T) {
	src := newFakeProvider("azure")
	src.failWith = errors.New("blob sealed")
	dst := newFakeProvider("gcs")
	b := newTestBroker(src, dst)

	_, _, err := b.Copy(context.Background(),
		Target{Provider: "azure", Bucket: "src", Key: "a"},
		Target{Provider: "gcs", Bucket: "dst", Key: "b"})
	require.Error(t, err)

	var provErr *apperrors.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "azure", provErr.Provider)
}

func TestBroker_PresignedURLValidation(t *testing.T) {
	fake := newFakeProvider("s3")
	b := newTestBroker(fake)
	ctx := context.Background()
	target := Target{Provider: "s3", Bucket: "b", Key: "k"}

	_, err := b.PresignedURL(ctx, target, Operation("append"), time.Minute, "")
	assert.True(t, apperrors.IsValidation(err))

	_, err = b.PresignedURL(ctx, target, OpRead, 0, "")
	assert.True(t, apperrors.IsValidation(err))

	signed, err := b.PresignedURL(ctx, target, OpRead, time.Minute, "")
	require.NoError(t, err)
	assert.Contains(t, signed.URL, "sig=")
	assert.True(t, signed.ExpiresAt.After(time.Now()))
}

func TestBroker_PresignedURLRetriesTransientFailures(t *testing.T) {
	fake := newFakeProvider("s3")
	attempts := 0
	fake.presignFn = func() (*SignedURL, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("throttled")
		}
		return &SignedURL{URL: "https://ok", ExpiresAt: time.Now().Add(time.Minute)}, nil
	}
	b := newTestBroker(fake)

	signed, err := b.PresignedURL(context.Background(), Target{Provider: "s3", Bucket: "b", Key: "k"},
		OpRead, time.Minute, "")
	require.NoError(t, err)
	assert.Equal(t, "https://ok", signed.URL)
	assert.Equal(t, 3, attempts)
}

func TestBroker_StreamsAreNotRetried(t *testing.T) {
	fake := newFakeProvider("s3")
	calls := 0
	fake.failWith = errors.New("connection reset")
	b := newTestBroker(&countingProvider{Provider: fake, calls: &calls})

	_, err := b.UploadStream(context.Background(), Target{Provider: "s3", Bucket: "b", Key: "k"},
		strings.NewReader("x"), 1, "")
	require.Error(t, err)
	assert.Equal(t, 1, calls, "in-flight streams must surface failure to the caller, not retry")
}

type countingProvider struct {
	Provider
	calls *int
}

func (c *countingProvider) Upload(ctx context.Context, target Target, src io.Reader, contentLength int64, contentType string) (string, error) {
	*c.calls++
	return c.Provider.Upload(ctx, target, src, contentLength, contentType)
}
