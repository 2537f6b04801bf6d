package cloud

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"fileflow/pkg/buffer"
	"fileflow/pkg/config"
)

// gcsProvider talks to Google Cloud Storage. Clients are built per
// call so per-request service-account credentials are never cached.
type gcsProvider struct {
	cfg config.GCSConfig
}

func newGCSProvider(cfg config.GCSConfig) *gcsProvider {
	return &gcsProvider{cfg: cfg}
}

func (p *gcsProvider) Name() string { return ProviderGCS }

func (p *gcsProvider) client(ctx context.Context, target Target) (*gcs.Client, error) {
	var opts []option.ClientOption
	switch {
	case len(target.Credentials.ServiceAccountJSON) > 0:
		opts = append(opts, option.WithCredentialsJSON(target.Credentials.ServiceAccountJSON))
	case p.cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(p.cfg.CredentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}
	return client, nil
}

func (p *gcsProvider) Upload(ctx context.Context, target Target, src io.Reader, contentLength int64, contentType string) (string, error) {
	client, err := p.client(ctx, target)
	if err != nil {
		return "", err
	}
	defer client.Close()

	w := client.Bucket(target.Bucket).Object(target.Key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}

	if _, err := buffer.Copy(w, src); err != nil {
		_ = w.Close()
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	return fmt.Sprintf("gs://%s/%s", target.Bucket, target.Key), nil
}

func (p *gcsProvider) Download(ctx context.Context, target Target) (io.ReadCloser, error) {
	client, err := p.client(ctx, target)
	if err != nil {
		return nil, err
	}

	r, err := client.Bucket(target.Bucket).Object(target.Key).NewReader(ctx)
	if err != nil {
		client.Close()
		return nil, err
	}

	return &clientClosingReader{ReadCloser: r, client: client}, nil
}

func (p *gcsProvider) Copy(ctx context.Context, src, dst Target) (string, error) {
	client, err := p.client(ctx, dst)
	if err != nil {
		return "", err
	}
	defer client.Close()

	srcObj := client.Bucket(src.Bucket).Object(src.Key)
	dstObj := client.Bucket(dst.Bucket).Object(dst.Key)

	if _, err := dstObj.CopierFrom(srcObj).Run(ctx); err != nil {
		return "", err
	}

	return fmt.Sprintf("gs://%s/%s", dst.Bucket, dst.Key), nil
}

func (p *gcsProvider) Presign(ctx context.Context, target Target, op Operation, expiry time.Duration, contentType string) (*SignedURL, error) {
	client, err := p.client(ctx, target)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	expiresAt := time.Now().Add(expiry)
	opts := &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: expiresAt,
	}

	headers := map[string]string{}
	if op == OpWrite {
		opts.Method = http.MethodPut
		if contentType != "" {
			opts.ContentType = contentType
			headers["Content-Type"] = contentType
		}
	}

	url, err := client.Bucket(target.Bucket).SignedURL(target.Key, opts)
	if err != nil {
		return nil, err
	}

	return &SignedURL{URL: url, Headers: headers, ExpiresAt: expiresAt}, nil
}

// clientClosingReader ties the lifetime of a per-call client to the
// returned stream.
type clientClosingReader struct {
	io.ReadCloser
	client *gcs.Client
}

func (c *clientClosingReader) Close() error {
	err := c.ReadCloser.Close()
	if cerr := c.client.Close(); err == nil {
		err = cerr
	}
	return err
}
