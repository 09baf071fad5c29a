package sink

import (
	"context"
	"fmt"
	"log/slog"

	"shopetl/internal/dataset"
	"shopetl/internal/metrics"
	"shopetl/internal/storage"
)

// RepoFactory opens a table repository; storage.New in production.
type RepoFactory func(ctx context.Context, cfg storage.Config) (storage.TableRepository, error)

// Uploader replaces a database table with the contents of a dataset.
type Uploader struct {
	newRepo RepoFactory
	cfg     storage.Config
}

// NewUploader returns an Uploader for cfg. A nil newRepo means storage.New.
func NewUploader(newRepo RepoFactory, cfg storage.Config) *Uploader {
	if newRepo == nil {
		newRepo = storage.New
	}
	return &Uploader{newRepo: newRepo, cfg: cfg}
}

// Upload drops table if it exists, recreates it from ds's layout and loads
// every row. The repository is closed on every path.
func (u *Uploader) Upload(ctx context.Context, ds *dataset.Dataset, table string) (int64, error) {
	if table == "" {
		return 0, fmt.Errorf("upload: table is empty")
	}
	spec, err := SpecFromDataset(table, ds)
	if err != nil {
		return 0, fmt.Errorf("upload %s: %w", table, err)
	}

	repo, err := u.newRepo(ctx, u.cfg)
	if err != nil {
		return 0, fmt.Errorf("new repo (kind=%s table=%s): %w", u.cfg.Kind, table, err)
	}
	defer repo.Close()

	n, err := repo.ReplaceTable(ctx, spec, Rows(ds))
	if err != nil {
		return 0, fmt.Errorf("replace table %s: %w", table, err)
	}
	return n, nil
}

// UploadAndReport runs Upload and turns the outcome into a log line and a
// record count. Failures are reported, never returned; the caller's exit
// status does not depend on the upload.
func UploadAndReport(ctx context.Context, logger *slog.Logger, u *Uploader, ds *dataset.Dataset, table string) bool {
	n, err := u.Upload(ctx, ds, table)
	if err != nil {
		logger.Error("upload failed", "table", table, "backend", u.cfg.Kind, "err", err)
		return false
	}
	metrics.RecordRows(metrics.KindUploaded, int(n))
	logger.Info("data uploaded", "table", table, "backend", u.cfg.Kind, "rows", n)
	return true
}
