package storage

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

const csvContentType = "text/csv; charset=utf-8"

// AzureArchive uploads reports to a blob container.
type AzureArchive struct {
	client    *azblob.Client
	container string
}

// NewAzureArchive authenticates with a shared key.
func NewAzureArchive(accountName, accountKey, container string) (*AzureArchive, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, err
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &AzureArchive{client: client, container: container}, nil
}

// EnsureContainer creates the container if it does not exist yet.
func (a *AzureArchive) EnsureContainer(ctx context.Context) error {
	_, err := a.client.CreateContainer(ctx, a.container, nil)
	if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return fmt.Errorf("create container %s: %w", a.container, err)
	}
	return nil
}

func (a *AzureArchive) Store(ctx context.Context, name string, data []byte) (string, error) {
	clean, err := safeName(name)
	if err != nil {
		return "", err
	}

	contentType := csvContentType
	_, err = a.client.UploadBuffer(ctx, a.container, clean, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	return fmt.Sprintf("%s%s/%s", a.client.URL(), a.container, clean), nil
}
