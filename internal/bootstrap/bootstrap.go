// Package bootstrap provides dependency initialization for the VoicePulse API.
package bootstrap

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/voicepulse/voicepulse-api/internal/analysis"
	"github.com/voicepulse/voicepulse-api/internal/audio"
	"github.com/voicepulse/voicepulse-api/internal/classifier"
	"github.com/voicepulse/voicepulse-api/internal/config"
	"github.com/voicepulse/voicepulse-api/internal/emotion"
	"github.com/voicepulse/voicepulse-api/internal/record"
	"github.com/voicepulse/voicepulse-api/internal/service"
	"github.com/voicepulse/voicepulse-api/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	AnalysisService *service.AnalysisService

	closeRepo func() error
}

// Close releases resources held by the dependencies, such as the sqlite
// repository connection.
func (d *Dependencies) Close() error {
	if d.closeRepo == nil {
		return nil
	}
	return d.closeRepo()
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	// Initialize storage
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize the record repository
	repo, closeRepo, err := initRepository(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize the classifier backend
	clf, err := initClassifier(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Build the pipeline parameters, applying the tuning file when set
	params, err := buildParams(cfg)
	if err != nil {
		return nil, err
	}

	// Initialize the decoder and the analysis service
	decoder := audio.NewFFmpegDecoder(cfg.FFmpegPath)

	opts := service.DefaultOptions()
	opts.Decode = audio.DecodeOpts{
		TargetRate: cfg.TargetSampleRate,
		MaxSeconds: cfg.MaxAudioSeconds,
	}

	svc, err := service.NewAnalysisService(decoder, clf, params, store, repo, logger, opts)
	if err != nil {
		return nil, fmt.Errorf("create analysis service: %w", err)
	}

	return &Dependencies{
		AnalysisService: svc,
		closeRepo:       closeRepo,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.DataDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("data_dir", cfg.DataDir),
	)
	return localStore, nil
}

// initRepository creates the record repository based on configuration. The
// returned close function is nil for backends without resources to release.
func initRepository(cfg *config.Config, logger *slog.Logger) (record.Repository, func() error, error) {
	if cfg.RepoBackend == "sqlite" {
		path := cfg.DBPath
		if path == "" {
			path = filepath.Join(cfg.DataDir, "voicepulse.db")
		}
		repo, err := record.NewSQLiteRepository(path)
		if err != nil {
			return nil, nil, fmt.Errorf("create sqlite repository: %w", err)
		}
		logger.Info("sqlite repository configured",
			slog.String("path", path),
		)
		return repo, repo.Close, nil
	}

	logger.Info("in-memory repository configured")
	return record.NewMemoryRepository(), nil, nil
}

// initClassifier creates the classifier backend, wrapped in an LRU cache
// when caching is enabled.
func initClassifier(cfg *config.Config, logger *slog.Logger) (classifier.Classifier, error) {
	var base classifier.Classifier
	switch cfg.ClassifierBackend {
	case "http":
		var opts []classifier.ClientOption
		if cfg.InferenceAPIKey != "" {
			opts = append(opts, classifier.WithAPIKey(cfg.InferenceAPIKey))
		}
		httpClf, err := classifier.NewHTTPClassifier(cfg.InferenceURL, opts...)
		if err != nil {
			return nil, fmt.Errorf("create HTTP classifier: %w", err)
		}
		base = httpClf
		logger.Info("inference classifier configured",
			slog.String("url", cfg.InferenceURL),
		)
	default:
		base = classifier.NewEnergyClassifier()
		logger.Info("energy classifier configured")
	}

	if cfg.ClassifierCacheSize > 0 {
		cached, err := classifier.NewCachedClassifier(base, cfg.ClassifierCacheSize)
		if err != nil {
			return nil, fmt.Errorf("create classifier cache: %w", err)
		}
		return cached, nil
	}
	return base, nil
}

// buildParams derives the pipeline parameters from the environment
// configuration and the optional tuning file.
func buildParams(cfg *config.Config) (analysis.Params, error) {
	params := analysis.DefaultParams()
	params.WindowSeconds = cfg.WindowSeconds
	params.OverlapSeconds = cfg.OverlapSeconds
	params.SignificanceThreshold = cfg.SignificanceThreshold
	params.PositiveThreshold = cfg.PositiveThreshold
	params.NegativeThreshold = cfg.NegativeThreshold
	params.MaxConcurrency = cfg.MaxConcurrentClassifications

	if cfg.TuningFile != "" {
		tuning, err := config.LoadTuning(cfg.TuningFile)
		if err != nil {
			return analysis.Params{}, err
		}
		if err := applyTuning(&params, tuning); err != nil {
			return analysis.Params{}, err
		}
	}

	if params.OverlapSeconds >= params.WindowSeconds {
		return analysis.Params{}, config.ErrInvalidWindowGeometry
	}
	return params, nil
}

// applyTuning overlays the tuning file values onto the parameters.
func applyTuning(params *analysis.Params, t *config.Tuning) error {
	if t.WindowSeconds != nil {
		params.WindowSeconds = *t.WindowSeconds
	}
	if t.OverlapSeconds != nil {
		params.OverlapSeconds = *t.OverlapSeconds
	}
	if t.MinWindowFraction != nil {
		params.MinWindowFraction = *t.MinWindowFraction
	}
	if t.SignificanceThreshold != nil {
		params.SignificanceThreshold = *t.SignificanceThreshold
	}
	if t.PositiveThreshold != nil {
		params.PositiveThreshold = *t.PositiveThreshold
	}
	if t.NegativeThreshold != nil {
		params.NegativeThreshold = *t.NegativeThreshold
	}
	for name, polarity := range t.SentimentTable {
		label, err := emotion.Parse(name)
		if err != nil {
			return fmt.Errorf("tuning sentiment table: %w", err)
		}
		params.SentimentTable[label] = polarity
	}
	return nil
}
