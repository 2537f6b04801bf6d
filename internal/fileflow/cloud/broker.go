package cloud

import (
	"context"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"fileflow/pkg/buffer"
	"fileflow/pkg/config"
	apperrors "fileflow/pkg/errors"
	"fileflow/pkg/logger"
)

// Broker routes uniform streaming operations to the registered
// providers. Stream operations are never auto-retried: a partial
// transfer surfaces to the caller, who decides whether to resume or
// restart. Idempotent URL minting goes through bounded retry.
type Broker struct {
	providers map[string]Provider
	retry     config.RetryConfig
	logger    *logger.Logger
}

func NewBroker(cfg config.CloudConfig) *Broker {
	b := &Broker{
		providers: make(map[string]Provider),
		retry:     cfg.Retry,
		logger:    logger.WithField("component", "cloud-broker"),
	}

	b.Register(newS3Provider(cfg.S3))
	b.Register(newGCSProvider(cfg.GCS))
	b.Register(newAzureProvider(cfg.Azure))

	return b
}

// Register installs a provider under its name, replacing any previous
// registration. Tests use this to swap in fakes.
func (b *Broker) Register(p Provider) {
	b.providers[p.Name()] = p
}

func (b *Broker) provider(tag string) (Provider, error) {
	p, ok := b.providers[tag]
	if !ok {
		return nil, &apperrors.UnsupportedProviderError{Provider: tag}
	}
	return p, nil
}

// UploadStream sends src to the target object and returns its URI.
func (b *Broker) UploadStream(ctx context.Context, target Target, src io.Reader, contentLength int64, contentType string) (string, error) {
	p, err := b.provider(target.Provider)
	if err != nil {
		return "", err
	}

	uri, err := p.Upload(ctx, target, src, contentLength, contentType)
	if err != nil {
		return "", apperrors.NewProvider(target.Provider, "upload", err)
	}

	b.logger.Info("cloud upload finished",
		"provider", target.Provider,
		"bucket", target.Bucket,
		"key", target.Key,
		"bytes", contentLength)

	return uri, nil
}

// DownloadStream copies the target object into sink, returning the
// byte count.
func (b *Broker) DownloadStream(ctx context.Context, target Target, sink io.Writer) (int64, error) {
	p, err := b.provider(target.Provider)
	if err != nil {
		return 0, err
	}

	rc, err := p.Download(ctx, target)
	if err != nil {
		return 0, apperrors.NewProvider(target.Provider, "download", err)
	}
	defer rc.Close()

	n, err := buffer.Copy(sink, rc)
	if err != nil {
		return n, apperrors.NewProvider(target.Provider, "download", err)
	}

	b.logger.Info("cloud download finished",
		"provider", target.Provider,
		"bucket", target.Bucket,
		"key", target.Key,
		"bytes", n)

	return n, nil
}

// Copy moves src to dst. Same-provider copies use the provider's
// native server-side copy, so no bytes flow through this service;
// cross-provider copies stream through a pipe. The second return
// reports which path ran.
func (b *Broker) Copy(ctx context.Context, src, dst Target) (string, bool, error) {
	srcProvider, err := b.provider(src.Provider)
	if err != nil {
		return "", false, err
	}
	dstProvider, err := b.provider(dst.Provider)
	if err != nil {
		return "", false, err
	}

	if src.Provider == dst.Provider {
		uri, err := srcProvider.Copy(ctx, src, dst)
		if err != nil {
			return "", false, apperrors.NewProvider(src.Provider, "copy", err)
		}
		b.logger.Info("native copy finished",
			"provider", src.Provider,
			"srcKey", src.Key,
			"dstKey", dst.Key)
		return uri, true, nil
	}

	uri, err := b.pipeCopy(ctx, srcProvider, dstProvider, src, dst)
	if err != nil {
		return "", false, err
	}

	b.logger.Info("cross-provider copy finished",
		"srcProvider", src.Provider,
		"dstProvider", dst.Provider,
		"dstKey", dst.Key)

	return uri, false, nil
}

// pipeCopy streams the source object into the destination upload. The
// download and upload run concurrently on the two ends of a pipe so
// the object is never buffered whole.
func (b *Broker) pipeCopy(ctx context.Context, srcProvider, dstProvider Provider, src, dst Target) (string, error) {
	pr, pw := io.Pipe()
	var uri string

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rc, err := srcProvider.Download(gctx, src)
		if err != nil {
			pw.CloseWithError(err)
			return apperrors.NewProvider(src.Provider, "copy-download", err)
		}
		defer rc.Close()

		_, err = buffer.Copy(pw, rc)
		pw.CloseWithError(err)
		if err != nil {
			return apperrors.NewProvider(src.Provider, "copy-download", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		uri, err = dstProvider.Upload(gctx, dst, pr, -1, "")
		if err != nil {
			pr.CloseWithError(err)
			return apperrors.NewProvider(dst.Provider, "copy-upload", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return "", err
	}
	return uri, nil
}

// PresignedURL mints a direct-access URL. Minting is idempotent, so
// transient provider failures are retried with backoff.
func (b *Broker) PresignedURL(ctx context.Context, target Target, op Operation, expiry time.Duration, contentType string) (*SignedURL, error) {
	if op != OpRead && op != OpWrite {
		return nil, apperrors.Validationf("operation", "must be %q or %q, got %q", OpRead, OpWrite, op)
	}
	if expiry <= 0 {
		return nil, apperrors.NewValidation("expirySeconds", "must be positive")
	}

	p, err := b.provider(target.Provider)
	if err != nil {
		return nil, err
	}

	var signed *SignedURL
	err = retryDo(ctx, b.retry, func() error {
		var err error
		signed, err = p.Presign(ctx, target, op, expiry, contentType)
		return err
	})
	if err != nil {
		return nil, apperrors.NewProvider(target.Provider, "presign", err)
	}

	b.logger.Debug("presigned url minted",
		"provider", target.Provider,
		"key", target.Key,
		"operation", string(op),
		"expiry", expiry)

	return signed, nil
}
