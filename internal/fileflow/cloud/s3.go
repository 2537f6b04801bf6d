package cloud

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"fileflow/pkg/config"
)

const (
	// multipartThreshold is the object size above which uploads switch
	// from a single PutObject to a multipart transfer.
	multipartThreshold = 64 * 1024 * 1024
	// s3PartSize is the size of each uploaded part. 8MiB keeps the part
	// count under S3's 10000-part cap for objects up to ~78GiB.
	s3PartSize = 8 * 1024 * 1024
)

// s3Provider talks to S3 and S3-compatible endpoints. A fresh SDK
// client is built per call so request credentials never outlive it.
type s3Provider struct {
	cfg config.S3Config
}

func newS3Provider(cfg config.S3Config) *s3Provider {
	return &s3Provider{cfg: cfg}
}

func (p *s3Provider) Name() string { return ProviderS3 }

func (p *s3Provider) client(ctx context.Context, target Target) (*s3.Client, error) {
	region := target.Region
	if region == "" {
		region = p.cfg.Region
	}

	accessKey, secretKey := target.Credentials.AccessKey, target.Credentials.SecretKey
	if accessKey == "" {
		accessKey, secretKey = p.cfg.AccessKey, p.cfg.SecretKey
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, target.Credentials.SessionToken)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	endpoint := target.Endpoint
	if endpoint == "" {
		endpoint = p.cfg.Endpoint
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		} else if p.cfg.PathStyle {
			o.UsePathStyle = true
		}
	}), nil
}

func (p *s3Provider) Upload(ctx context.Context, target Target, src io.Reader, contentLength int64, contentType string) (string, error) {
	client, err := p.client(ctx, target)
	if err != nil {
		return "", err
	}

	uri := fmt.Sprintf("s3://%s/%s", target.Bucket, target.Key)

	if contentLength >= 0 && contentLength < multipartThreshold {
		input := &s3.PutObjectInput{
			Bucket:        aws.String(target.Bucket),
			Key:           aws.String(target.Key),
			Body:          src,
			ContentLength: aws.Int64(contentLength),
		}
		if contentType != "" {
			input.ContentType = aws.String(contentType)
		}
		if _, err := client.PutObject(ctx, input); err != nil {
			return "", err
		}
		return uri, nil
	}

	if err := p.multipartUpload(ctx, client, target, src, contentType); err != nil {
		return "", err
	}
	return uri, nil
}

// multipartUpload streams src in s3PartSize windows. It also serves
// unknown-length sources, reading until EOF. A failure aborts the
// upload so no orphaned parts accrue charges.
func (p *s3Provider) multipartUpload(ctx context.Context, client *s3.Client, target Target, src io.Reader, contentType string) error {
	createInput := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(target.Bucket),
		Key:    aws.String(target.Key),
	}
	if contentType != "" {
		createInput.ContentType = aws.String(contentType)
	}

	created, err := client.CreateMultipartUpload(ctx, createInput)
	if err != nil {
		return err
	}
	uploadID := aws.ToString(created.UploadId)

	abort := func() {
		_, _ = client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
			Bucket:   aws.String(target.Bucket),
			Key:      aws.String(target.Key),
			UploadId: aws.String(uploadID),
		})
	}

	var parts []s3types.CompletedPart
	part := make([]byte, s3PartSize)
	for partNumber := int32(1); ; partNumber++ {
		n, readErr := io.ReadFull(src, part)
		if readErr == io.EOF {
			break
		}
		if readErr != nil && readErr != io.ErrUnexpectedEOF {
			abort()
			return readErr
		}

		out, err := client.UploadPart(ctx, &s3.UploadPartInput{
			Bucket:        aws.String(target.Bucket),
			Key:           aws.String(target.Key),
			UploadId:      aws.String(uploadID),
			PartNumber:    aws.Int32(partNumber),
			Body:          bytes.NewReader(part[:n]),
			ContentLength: aws.Int64(int64(n)),
		})
		if err != nil {
			abort()
			return err
		}

		parts = append(parts, s3types.CompletedPart{
			ETag:       out.ETag,
			PartNumber: aws.Int32(partNumber),
		})

		if readErr == io.ErrUnexpectedEOF {
			break
		}
	}

	if len(parts) == 0 {
		// zero-byte object still needs one (empty) part
		out, err := client.UploadPart(ctx, &s3.UploadPartInput{
			Bucket:        aws.String(target.Bucket),
			Key:           aws.String(target.Key),
			UploadId:      aws.String(uploadID),
			PartNumber:    aws.Int32(1),
			Body:          bytes.NewReader(nil),
			ContentLength: aws.Int64(0),
		})
		if err != nil {
			abort()
			return err
		}
		parts = append(parts, s3types.CompletedPart{ETag: out.ETag, PartNumber: aws.Int32(1)})
	}

	_, err = client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(target.Bucket),
		Key:             aws.String(target.Key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &s3types.CompletedMultipartUpload{Parts: parts},
	})
	if err != nil {
		abort()
		return err
	}
	return nil
}

func (p *s3Provider) Download(ctx context.Context, target Target) (io.ReadCloser, error) {
	client, err := p.client(ctx, target)
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(target.Bucket),
		Key:    aws.String(target.Key),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func (p *s3Provider) Copy(ctx context.Context, src, dst Target) (string, error) {
	client, err := p.client(ctx, dst)
	if err != nil {
		return "", err
	}

	copySource := url.PathEscape(src.Bucket + "/" + src.Key)
	_, err = client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(dst.Bucket),
		Key:        aws.String(dst.Key),
		CopySource: aws.String(copySource),
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("s3://%s/%s", dst.Bucket, dst.Key), nil
}

func (p *s3Provider) Presign(ctx context.Context, target Target, op Operation, expiry time.Duration, contentType string) (*SignedURL, error) {
	client, err := p.client(ctx, target)
	if err != nil {
		return nil, err
	}

	presigner := s3.NewPresignClient(client)
	expiresAt := time.Now().Add(expiry)

	if op == OpWrite {
		input := &s3.PutObjectInput{
			Bucket: aws.String(target.Bucket),
			Key:    aws.String(target.Key),
		}
		headers := map[string]string{}
		if contentType != "" {
			input.ContentType = aws.String(contentType)
			headers["Content-Type"] = contentType
		}
		req, err := presigner.PresignPutObject(ctx, input, func(o *s3.PresignOptions) {
			o.Expires = expiry
		})
		if err != nil {
			return nil, err
		}
		return &SignedURL{URL: req.URL, Headers: headers, ExpiresAt: expiresAt}, nil
	}

	req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(target.Bucket),
		Key:    aws.String(target.Key),
	}, func(o *s3.PresignOptions) {
		o.Expires = expiry
	})
	if err != nil {
		return nil, err
	}
	return &SignedURL{URL: req.URL, ExpiresAt: expiresAt}, nil
}
