package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"tourcache/internal/config"
	"tourcache/internal/connectivity"
	"tourcache/internal/encryption"
	"tourcache/internal/fetch"
	"tourcache/internal/model"
	"tourcache/internal/offline"
	"tourcache/internal/quota"
	"tourcache/internal/remote"
	"tourcache/internal/store"
)

// Default byte budget for the local store when retention config gives none.
const defaultQuotaBytes = 2 << 30 // 2 GiB

// App is the application layer between the CLI and the offline Service.
// It constructs all dependencies from config, starts the connectivity
// monitor, and manages resource lifecycles on Close.
type App struct {
	cfg       *config.Config
	store     offline.Store
	service   *offline.Service
	monitor   *offline.Monitor
	source    offline.ConnectivitySource
	encryptor offline.Encryptor
	probe     *connectivity.ProbeSource // non-nil only for probe connectivity
	logFile   *os.File
}

// NewApp creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "DownloadTour", "Sync") and
// tags every log line. The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, operation string) (*App, error) {
	opID := time.Now().UTC().Format("20060102T150405Z") + "-" + operation
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	clock := offline.RealClock{}

	st, err := store.NewStoreFromConfig(cfg.Database, clock)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating store: %w", err)
	}
	if err := st.Initialize(ctx); err != nil {
		st.Close()
		logFile.Close()
		return nil, fmt.Errorf("initializing store: %w", err)
	}

	client := remote.NewClient(cfg.Remote)

	fetcher, err := fetch.NewFetcherFromConfig(cfg.Fetcher)
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating fetcher: %w", err)
	}

	encryptor, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	source, probe, err := newConnectivitySource(ctx, cfg.Connectivity, cfg.Remote.BaseURL)
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating connectivity source: %w", err)
	}

	var qp offline.QuotaProbe
	if cfg.Database.Type == "sqlite" {
		qp = quota.NewDiskProbe(cfg.Database.DataDir, defaultQuotaBytes)
	}

	svc := offline.NewService(offline.Deps{
		Store:        st,
		Tours:        client,
		Progress:     client,
		Status:       client,
		Fetcher:      fetcher,
		Connectivity: source,
		Quota:        qp,
		Encryptor:    encryptor,
		Logger:       &slogAdapter{l: logger},
		Clock:        clock,
		IDGen:        offline.UUIDGenerator{},
		UserID:       cfg.UserID,
	})

	monitor := offline.NewMonitor(source, svc, &slogAdapter{l: logger})
	monitor.Start(ctx)

	return &App{
		cfg:       cfg,
		store:     st,
		service:   svc,
		monitor:   monitor,
		source:    source,
		encryptor: encryptor,
		probe:     probe,
		logFile:   logFile,
	}, nil
}

// newConnectivitySource builds the configured platform adapter. A probe
// source with no probe_url falls back to the remote base URL; with neither
// configured the app starts offline until an endpoint is set.
func newConnectivitySource(ctx context.Context, cfg config.ConnectivityConfig, fallbackURL string) (offline.ConnectivitySource, *connectivity.ProbeSource, error) {
	switch cfg.Type {
	case "probe", "":
		url := cfg.ProbeURL
		if url == "" {
			url = fallbackURL
		}
		if url == "" {
			return connectivity.NewManualSource(false), nil, nil
		}
		p := connectivity.NewProbeSource(url, time.Duration(cfg.ProbeIntervalSeconds)*time.Second)
		p.Start(ctx)
		return p, p, nil
	case "manual":
		return connectivity.NewManualSource(cfg.ManualOnline), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown connectivity type: %s", cfg.Type)
	}
}

// DownloadTour downloads a tour for offline use, reporting progress.
func (a *App) DownloadTour(ctx context.Context, tourID string, onProgress offline.ProgressFunc) error {
	return a.service.DownloadTour(ctx, tourID, onProgress)
}

// Sync flushes queued progress records to the remote backend.
func (a *App) Sync(ctx context.Context) error {
	return a.service.SyncOfflineData(ctx)
}

// RecordProgress queues a playback-progress payload for a tour.
func (a *App) RecordProgress(ctx context.Context, tourID string, payload []byte) (*model.ProgressRecord, error) {
	return a.service.RecordProgress(ctx, tourID, payload)
}

// ListTours returns locally stored tours with their sizes.
func (a *App) ListTours(ctx context.Context) ([]*model.Tour, map[string]int64, error) {
	tours, err := a.service.ListTours(ctx)
	if err != nil {
		return nil, nil, err
	}
	sizes := make(map[string]int64, len(tours))
	for _, t := range tours {
		size, err := a.service.TourSizeBytes(ctx, t.ID)
		if err != nil {
			return nil, nil, err
		}
		sizes[t.ID] = size
	}
	return tours, sizes, nil
}

// DeleteTour removes a downloaded tour and everything it owns.
func (a *App) DeleteTour(ctx context.Context, tourID string) error {
	return a.service.DeleteTour(ctx, tourID)
}

// StorageStats reports local storage capacity.
func (a *App) StorageStats(ctx context.Context) offline.StorageStats {
	return a.service.StorageStats(ctx)
}

// Cleanup evicts tours not accessed within maxAgeDays. A negative value
// falls back to the configured retention window.
func (a *App) Cleanup(ctx context.Context, maxAgeDays int) (int, error) {
	if maxAgeDays < 0 {
		maxAgeDays = a.cfg.Retention.MaxAgeDays
	}
	return a.service.CleanupOldData(ctx, maxAgeDays)
}

// Online reports the current connectivity state.
func (a *App) Online() bool {
	return a.source.Online()
}

// ExportAudio writes a downloaded track's raw payload to w. When at-rest
// encryption is enabled the passphrase unlocks the private key first.
func (a *App) ExportAudio(ctx context.Context, trackID, passphrase string, w io.Writer) error {
	var dec offline.DecryptionContext
	if a.encryptor != nil {
		var err error
		dec, err = a.encryptor.Unlock(passphrase)
		if err != nil {
			return fmt.Errorf("unlocking encryption key: %w", err)
		}
	}
	return a.service.ExportAudio(ctx, trackID, dec, w)
}

// EncryptionConfigured reports whether at-rest encryption is enabled and
// has key material.
func (a *App) EncryptionConfigured() bool {
	return a.encryptor != nil && a.encryptor.IsConfigured()
}

// SetupEncryption generates the at-rest encryption key pair.
func (a *App) SetupEncryption(passphrase string) error {
	if a.encryptor == nil {
		return fmt.Errorf("encryption is not enabled in config")
	}
	return a.encryptor.Setup(passphrase)
}

// Close stops the monitor and closes all resources.
func (a *App) Close() error {
	a.monitor.Stop()
	if a.probe != nil {
		a.probe.Stop()
	}

	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
