package storage

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/voltworks/portal/internal/auth"
	"github.com/voltworks/portal/internal/integrations/msgraph"
	"github.com/voltworks/portal/pkg/config"
)

const sharePointUploadFolder = "Portal Uploads"

// SharePoint stores objects in a document library using the app-only Graph token.
type SharePoint struct {
	graph   *msgraph.Client
	driveID string
	folder  string
}

func NewSharePoint(ctx context.Context, cfg *config.Config) (*SharePoint, error) {
	if !cfg.MicrosoftEnabled() || cfg.SharePointDriveID == "" {
		return nil, fmt.Errorf("sharepoint storage requires AZURE_AD_* and SHAREPOINT_DRIVE_ID")
	}
	client := auth.AppOnlyConfig(cfg).Client(context.Background())
	return NewSharePointWithClient(msgraph.New(client), cfg.SharePointDriveID), nil
}

// NewSharePointWithClient wraps an existing Graph client.
func NewSharePointWithClient(graph *msgraph.Client, driveID string) *SharePoint {
	return &SharePoint{graph: graph, driveID: driveID, folder: sharePointUploadFolder}
}

func (s *SharePoint) Driver() string { return DriverSharePoint }

func (s *SharePoint) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	item, err := s.graph.Upload(ctx, s.driveID, path.Join(s.folder, key), data)
	if err != nil {
		return "", err
	}
	return item.ID, nil
}

func (s *SharePoint) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.graph.Download(ctx, s.driveID, key)
}

func (s *SharePoint) Delete(ctx context.Context, key string) error {
	return s.graph.Delete(ctx, s.driveID, key)
}
