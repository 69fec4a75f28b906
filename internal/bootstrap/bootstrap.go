package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/config"
	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/ports"
	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/usecase"
	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/infrastructure/analyzer/ollama"
	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/infrastructure/crypto/chacha"
	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/infrastructure/extractor/fileextract"
	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/infrastructure/queue/nats"
	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/infrastructure/repository/postgres"
	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/infrastructure/storage/localfs"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Docs      ports.DocumentRepository
	Analyses  ports.AnalysisRepository
	Roster    ports.RosterRepository
	IngestUC  ports.DocumentIngestor
	ProcessUC ports.DocumentProcessor
	ReviewUC  ports.ReviewResolver

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	docs := postgres.NewDocumentRepository(db)
	analyses := postgres.NewAnalysisRepository(db)
	notes := postgres.NewNoteRepository(db)
	roster := postgres.NewRosterRepository(db)
	store := postgres.NewPipelineStore(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.New(cfg.NATSURL, cfg.NATSSubject, cfg.NATSAuditSubject)
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	cipher, err := newContentCipher(cfg.ContentKeyHex)
	if err != nil {
		return nil, fmt.Errorf("init content cipher: %w", err)
	}

	extractor := fileextract.New(storage)
	analyzer := ollama.New(
		cfg.AnalyzerURL,
		cfg.AnalyzerModel,
		float64(cfg.AnalyzerRPS),
		time.Duration(cfg.AnalyzerTimeoutSeconds)*time.Second,
	)

	processUC := usecase.NewProcessDocumentUseCase(docs, store, roster, extractor, analyzer, cipher, queue)
	ingestUC := usecase.NewIngestDocumentUseCase(docs, storage, processUC, cfg.MaxUploadBytes)
	reviewUC := usecase.NewOverrideUseCase(docs, roster, notes, cipher, queue)

	return &App{
		Config: cfg,

		Queue:    queue,
		Docs:     docs,
		Analyses: analyses,
		Roster:   roster,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		ReviewUC:  reviewUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func newContentCipher(hexKey string) (ports.ContentCipher, error) {
	if hexKey == "" {
		slog.Warn("CONTENT_KEY not set, using ephemeral key; sealed note content will not survive a restart")
		return chacha.NewEphemeral()
	}
	return chacha.NewFromHexKey(hexKey)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
