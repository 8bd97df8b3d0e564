package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studynotes/config"
	"studynotes/config/database"
	notesHandler "studynotes/internal/notes"
	"studynotes/internal/notes/repository"
	"studynotes/internal/notes/service"
	"studynotes/internal/study"
	"studynotes/pkg/logger"
	"studynotes/router"
	"studynotes/socket"
	"studynotes/web"
)

func main() {
	logger.Init("info")

	// Configuration comes from the environment, optionally seeded by a .env file.
	cfg, envLoaded, err := config.Load()
	if err != nil {
		logger.Sugar.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.LogLevel)
	defer logger.Log.Sync()
	if !envLoaded {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		logger.Sugar.Fatalf("Failed to open notes store: %v", err)
	}
	defer closeRepo()

	// The hub pushes document replacements to every open tab.
	hub := socket.NewHub(repo)
	go hub.Run(ctx)

	// All writes to the store go through one worker. It outlives ctx so the
	// UI's last save can still land during shutdown.
	svc := service.NewNotesService(repo, hub)
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go svc.SaveWorker(workerCtx)

	var remote study.Remote = svc
	if cfg.RemoteURL != "" {
		logger.Sugar.Infof("Study UI is using notes server at %s", cfg.RemoteURL)
		remote = study.NewHTTPRemote(cfg.RemoteURL, cfg.RemoteTimeout)
	}
	store := study.NewTopicStore(remote, study.Topics, study.WithSaveTimeout(cfg.RemoteTimeout))
	if err := store.Mount(ctx); err != nil {
		logger.Sugar.Warnf("Starting with empty notes: %v", err)
	}

	if cfg.Backend == config.BackendFile && cfg.WatchFile {
		watchNotesFile(ctx, cfg.NotesPath(), repo, hub, store, cfg.RemoteURL == "")
	}

	ui, err := web.NewHandler(study.NewAppShell(store))
	if err != nil {
		logger.Sugar.Fatalf("Failed to load page templates: %v", err)
	}

	notes := notesHandler.NewNotesHandler(svc)
	notes.Clients = hub.ClientCount

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Setup(notes, hub, ui, cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Sugar.Infof("Study notes server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Sugar.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Sugar.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar.Errorf("Server shutdown: %v", err)
	}
	if err := store.Flush(shutdownCtx); err != nil {
		logger.Sugar.Errorf("Last notes save did not complete: %v", err)
	}
}

func openRepository(ctx context.Context, cfg *config.Config) (repository.NotesRepository, func(), error) {
	switch cfg.Backend {
	case config.BackendPostgres, config.BackendSQLite:
		driver, dsn, dialect := database.DriverPostgres, cfg.DatabaseURL, repository.PostgresDialect
		if cfg.Backend == config.BackendSQLite {
			driver, dsn, dialect = database.DriverSQLite, cfg.SQLitePath, repository.SQLiteDialect
		}
		db, err := database.Connect(driver, dsn)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewSQLRepository(db, dialect)
		if err := repo.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repo, func() { db.Close() }, nil
	default:
		path := cfg.NotesPath()
		repo, err := repository.NewFileRepository(path)
		if err != nil {
			return nil, nil, err
		}
		logger.Sugar.Infof("Storing notes in %s", path)
		return repo, func() {}, nil
	}
}

// watchNotesFile reloads tabs and, when the UI shares this process's store,
// the UI state whenever the notes file is edited outside the server. The
// server's own saves are muted at the watcher.
func watchNotesFile(ctx context.Context, path string, repo repository.NotesRepository, hub *socket.Hub, store *study.TopicStore, applyToStore bool) {
	watcher, err := repository.NewFileWatcher(path, func() {
		hub.Reload(ctx)
		if !applyToStore {
			return
		}
		doc, err := repo.Load(ctx)
		if err != nil {
			return
		}
		if store.Apply(doc) {
			logger.Sugar.Info("Study notes refreshed from disk")
		}
	})
	if err != nil {
		logger.Sugar.Warnf("Notes file will not be watched: %v", err)
		return
	}
	if fileRepo, ok := repo.(*repository.FileRepository); ok {
		fileRepo.OnWrite = watcher.IgnoreOwnWrite
	}
	go watcher.Run(ctx)
}
