package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/dastanaron/dial/internal/cache"
	"github.com/dastanaron/dial/internal/commands"
	"github.com/dastanaron/dial/internal/config"
	"github.com/dastanaron/dial/internal/logging"
	"github.com/dastanaron/dial/internal/reconciler"
	"github.com/dastanaron/dial/internal/repository"
	"github.com/dastanaron/dial/internal/service"
	"github.com/dastanaron/dial/internal/settings"
	"github.com/dastanaron/dial/internal/ui"
	"github.com/dastanaron/dial/internal/watcher"
)

func main() {
	importPath := flag.String("import", "", "Path to HTML bookmarks file to import")
	importInto := flag.String("into", commands.DefaultImportParent, "Folder id to import into")
	exportPath := flag.String("export", "", "Path to HTML bookmarks file to export")
	clearDoubles := flag.Bool("clear-doubles", false, "Remove duplicate bookmarks (same URL)")
	dbPath := flag.String("db", "", "Path to database file (default: ~/.bookmarks/bookmarks.db)")
	settingsPath := flag.String("settings", "", "Path to settings file (default: ~/.bookmarks/settings.db)")
	configPath := flag.String("config", config.ConfigPath(), "Path to config file")
	logPath := flag.String("log", "", "Log file, - for stderr (default: ~/.bookmarks/dial.log)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	flag.Parse()

	cfg := config.NewConfig()
	if _, err := config.LoadFile(cfg, config.ExpandHome(*configPath)); err != nil {
		log.Fatal("Failed to read config", "path", *configPath, "err", err)
	}
	if *dbPath != "" {
		cfg.WithDBPath(*dbPath)
	}
	if *settingsPath != "" {
		cfg.WithSettingsPath(*settingsPath)
	}
	if *logPath != "" {
		cfg.WithLogPath(*logPath)
	}
	if *logLevel != "" {
		cfg.WithLogLevel(*logLevel)
	}

	runCommand := *importPath != "" || *exportPath != "" || *clearDoubles
	if runCommand {
		// the terminal is free, so commands log to stderr
		cfg.WithLogPath("-")
	}
	logger, closeLog, err := logging.New(cfg.LogPath, cfg.LogLevel)
	if err != nil {
		log.Fatal("Failed to set up logging", "err", err)
	}
	defer closeLog.Close()

	// Ensure database directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		logger.Fatal("Failed to create database directory", "err", err)
	}

	repo, err := repository.NewSQLiteRepository(cfg.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize database", "path", cfg.DBPath, "err", err)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Handle import command
	if *importPath != "" {
		importCmd := commands.NewImportCommand(repo, *importInto, logger)
		if err := importCmd.Execute(ctx, *importPath); err != nil {
			logger.Fatal("Import failed", "err", err)
		}
		return
	}

	// Handle export command
	if *exportPath != "" {
		exportCmd := commands.NewExportCommand(repo)
		if err := exportCmd.Execute(ctx, *exportPath); err != nil {
			logger.Fatal("Export failed", "err", err)
		}
		return
	}

	// Handle clear doubles command
	if *clearDoubles {
		clearCmd := commands.NewClearDoublesCommand(repo, logger)
		if err := clearCmd.Execute(ctx); err != nil {
			logger.Fatal("Clear doubles failed", "err", err)
		}
		return
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SettingsPath), 0755); err != nil {
		logger.Fatal("Failed to create settings directory", "err", err)
	}
	store, err := settings.Open(cfg.SettingsPath)
	if err != nil {
		logger.Fatal("Failed to open settings", "path", cfg.SettingsPath, "err", err)
	}
	defer store.Close()

	keeper := service.NewFolderKeeper(repo, store, cfg.FolderTitle, logger)
	dial := reconciler.NewDial(repo, keeper, reconciler.Options{Debounce: cfg.Debounce, Logger: logger})
	defer dial.Close()
	tree := cache.New()
	treeSync := reconciler.NewTreeSync(tree, repo, logger)
	defer treeSync.Close()

	// Writes from another process, such as -import in a second terminal
	w, err := watcher.New(cfg.DBPath, cfg.Debounce, func() {
		if _, err := repo.CheckExternalChanges(ctx); err != nil {
			logger.Warn("failed to check for external changes", "err", err)
		}
	}, logger)
	if err != nil {
		logger.Warn("database watcher disabled", "err", err)
	} else {
		go w.Start()
		defer w.Stop()
	}

	app := ui.NewApp(ui.Deps{
		Dial:        dial,
		TreeSync:    treeSync,
		Tree:        tree,
		Reader:      repo,
		Service:     service.NewDialService(repo),
		Settings:    store,
		Logger:      logger,
		TileWidth:   cfg.TileWidth,
		TileHeight:  cfg.TileHeight,
		ShowSidebar: cfg.TreeMode,
	})
	if err := app.Run(ctx); err != nil {
		logger.Fatal("Dial exited", "err", err)
	}
}
