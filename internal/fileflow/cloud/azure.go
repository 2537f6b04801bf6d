package cloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"

	"fileflow/pkg/config"
)

// azureCopyPollInterval is how often a pending server-side copy is
// re-checked. Azure copies are asynchronous; small blobs usually land
// on the first poll.
const azureCopyPollInterval = 500 * time.Millisecond

// azureProvider talks to Azure Blob Storage using shared-key
// credentials. The target's bucket maps to a container, the key to a
// blob path.
type azureProvider struct {
	cfg config.AzureConfig
}

func newAzureProvider(cfg config.AzureConfig) *azureProvider {
	return &azureProvider{cfg: cfg}
}

func (p *azureProvider) Name() string { return ProviderAzure }

func (p *azureProvider) credential(target Target) (string, *azblob.SharedKeyCredential, error) {
	account, key := target.Credentials.AccountName, target.Credentials.AccountKey
	if account == "" {
		account, key = p.cfg.AccountName, p.cfg.AccountKey
	}
	if account == "" || key == "" {
		return "", nil, errors.New("azure shared key credentials missing")
	}

	cred, err := azblob.NewSharedKeyCredential(account, key)
	if err != nil {
		return "", nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	serviceURL := target.Endpoint
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net/", account)
	}
	if !strings.HasSuffix(serviceURL, "/") {
		serviceURL += "/"
	}

	return serviceURL, cred, nil
}

func (p *azureProvider) client(target Target) (string, *azblob.Client, *azblob.SharedKeyCredential, error) {
	serviceURL, cred, err := p.credential(target)
	if err != nil {
		return "", nil, nil, err
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	return serviceURL, client, cred, nil
}

func blobURL(serviceURL string, target Target) string {
	return serviceURL + target.Bucket + "/" + target.Key
}

func (p *azureProvider) Upload(ctx context.Context, target Target, src io.Reader, contentLength int64, contentType string) (string, error) {
	serviceURL, client, _, err := p.client(target)
	if err != nil {
		return "", err
	}

	opts := &azblob.UploadStreamOptions{}
	if contentType != "" {
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &contentType}
	}

	if _, err := client.UploadStream(ctx, target.Bucket, target.Key, src, opts); err != nil {
		return "", err
	}

	return blobURL(serviceURL, target), nil
}

func (p *azureProvider) Download(ctx context.Context, target Target) (io.ReadCloser, error) {
	_, client, _, err := p.client(target)
	if err != nil {
		return nil, err
	}

	resp, err := client.DownloadStream(ctx, target.Bucket, target.Key, nil)
	if err != nil {
		return nil, err
	}

	return resp.Body, nil
}

// Copy starts a native server-side copy and polls until the copy
// leaves the pending state. The source is authorized with a short-
// lived read SAS, so cross-container copies within the account work
// without exposing the blob.
func (p *azureProvider) Copy(ctx context.Context, src, dst Target) (string, error) {
	serviceURL, client, _, err := p.client(dst)
	if err != nil {
		return "", err
	}

	signedSrc, err := p.Presign(ctx, src, OpRead, 15*time.Minute, "")
	if err != nil {
		return "", fmt.Errorf("failed to authorize copy source: %w", err)
	}

	blobClient := client.ServiceClient().NewContainerClient(dst.Bucket).NewBlobClient(dst.Key)
	resp, err := blobClient.StartCopyFromURL(ctx, signedSrc.URL, nil)
	if err != nil {
		return "", err
	}

	status := resp.CopyStatus
	for status != nil && *status == blob.CopyStatusTypePending {
		timer := time.NewTimer(azureCopyPollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}

		props, err := blobClient.GetProperties(ctx, nil)
		if err != nil {
			return "", err
		}
		status = props.CopyStatus
	}

	if status == nil || *status != blob.CopyStatusTypeSuccess {
		return "", fmt.Errorf("copy did not succeed: status %v", status)
	}

	return blobURL(serviceURL, dst), nil
}

func (p *azureProvider) Presign(ctx context.Context, target Target, op Operation, expiry time.Duration, contentType string) (*SignedURL, error) {
	serviceURL, cred, err := p.credential(target)
	if err != nil {
		return nil, err
	}

	permissions := sas.BlobPermissions{Read: true}
	headers := map[string]string{}
	if op == OpWrite {
		permissions = sas.BlobPermissions{Write: true, Create: true}
		if contentType != "" {
			headers["Content-Type"] = contentType
			headers["x-ms-blob-type"] = "BlockBlob"
		} else {
			headers["x-ms-blob-type"] = "BlockBlob"
		}
	}

	expiresAt := time.Now().UTC().Add(expiry)
	values := sas.BlobSignatureValues{
		Protocol:      sas.ProtocolHTTPS,
		ExpiryTime:    expiresAt,
		ContainerName: target.Bucket,
		BlobName:      target.Key,
		Permissions:   permissions.String(),
	}

	params, err := values.SignWithSharedKey(cred)
	if err != nil {
		return nil, err
	}

	return &SignedURL{
		URL:       blobURL(serviceURL, target) + "?" + params.Encode(),
		Headers:   headers,
		ExpiresAt: expiresAt,
	}, nil
}
