// Package storage archives finished result CSVs to Azure Blob Storage so a
// run's output survives the workstation it ran on. Works against real Azure
// and local Azurite instances over HTTP.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"go.uber.org/zap"
)

// RunMetadata describes the run a result file came from. It is attached to
// the blob as metadata.
type RunMetadata struct {
	RunID       string
	TotalRows   int
	FailedRows  int
	Cancelled   bool
	CompletedAt time.Time
}

// Archiver uploads result files to a blob container.
type Archiver struct {
	client        *azblob.Client
	containerName string
	logger        *zap.Logger
	containerInit bool
}

// NewArchiver creates an archiver from a standard Azure storage connection
// string. HTTP endpoints (Azurite) are allowed with shared-key credentials.
func NewArchiver(connectionString, containerName string, logger *zap.Logger) (*Archiver, error) {
	if connectionString == "" {
		return nil, errors.New("connection string is required")
	}
	if containerName == "" {
		return nil, errors.New("container name is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	params := parseConnectionString(connectionString)
	accountName := params["AccountName"]
	accountKey := params["AccountKey"]
	serviceURL := params["BlobEndpoint"]
	if accountName == "" || accountKey == "" {
		return nil, errors.New("account name and key are required in the connection string")
	}
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net", accountName)
	}

	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared key credential: %w", err)
	}

	var clientOpts *azblob.ClientOptions
	if strings.HasPrefix(strings.ToLower(serviceURL), "http://") {
		clientOpts = &azblob.ClientOptions{
			ClientOptions: azcore.ClientOptions{
				InsecureAllowCredentialWithHTTP: true,
			},
		}
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return &Archiver{
		client:        client,
		containerName: containerName,
		logger:        logger,
	}, nil
}

// Archive uploads a result CSV and returns the blob URL. The blob path is
// derived from the completion time and run ID.
func (a *Archiver) Archive(ctx context.Context, data []byte, meta RunMetadata) (string, error) {
	if err := a.ensureContainer(ctx); err != nil {
		return "", err
	}

	blobPath := fmt.Sprintf("results/%s/run-%s.csv", meta.CompletedAt.UTC().Format("2006/01/02"), meta.RunID)

	metadata := map[string]*string{
		"run_id":       to.Ptr(meta.RunID),
		"total_rows":   to.Ptr(strconv.Itoa(meta.TotalRows)),
		"failed_rows":  to.Ptr(strconv.Itoa(meta.FailedRows)),
		"cancelled":    to.Ptr(strconv.FormatBool(meta.Cancelled)),
		"completed_at": to.Ptr(meta.CompletedAt.UTC().Format(time.RFC3339)),
	}

	blobClient := a.client.ServiceClient().NewContainerClient(a.containerName).NewBlockBlobClient(blobPath)

	_, err := blobClient.UploadBuffer(ctx, data, &azblob.UploadBufferOptions{
		Metadata: metadata,
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: to.Ptr("text/csv; charset=utf-8"),
		},
	})
	if err != nil {
		a.logger.Error("failed to archive result csv",
			zap.String("blob_path", blobPath),
			zap.Int("size", len(data)),
			zap.Error(err))
		return "", fmt.Errorf("result archive upload failed: %w", err)
	}

	a.logger.Info("archived result csv",
		zap.String("blob_path", blobPath),
		zap.Int("size_bytes", len(data)))

	return blobClient.URL(), nil
}

func (a *Archiver) ensureContainer(ctx context.Context) error {
	if a.containerInit {
		return nil
	}

	_, err := a.client.CreateContainer(ctx, a.containerName, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.ErrorCode == "ContainerAlreadyExists" {
			a.containerInit = true
			return nil
		}
		if strings.Contains(strings.ToLower(err.Error()), "containeralreadyexists") {
			a.containerInit = true
			return nil
		}
		return fmt.Errorf("failed to ensure container: %w", err)
	}

	a.containerInit = true
	return nil
}

func parseConnectionString(connectionString string) map[string]string {
	parts := strings.Split(connectionString, ";")
	params := make(map[string]string, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.Index(part, "=")
		if idx <= 0 {
			continue
		}
		params[part[:idx]] = part[idx+1:]
	}
	return params
}
