// Package app is the presentation shell: a command-line entry point and a
// local HTTP server that drive the catalogue model.
package app

import (
	"context"
	"flag"
	"fmt"

	"github.com/avholm/bookdb/catalog"
	"github.com/avholm/bookdb/config"
	"github.com/avholm/bookdb/importer"
	"github.com/avholm/bookdb/logger"
	"github.com/avholm/bookdb/repo"
)

func CLI(args []string) int {
	var app appEnv
	if err := app.fromArgs(args); err != nil {
		fmt.Println(err)
		return 2
	}

	if err := app.run(); err != nil {
		logger.Error("Runtime error", "error", err)
		return 1
	}
	return 0
}

type appEnv struct {
	config  *config.Config
	cmd     string
	cmdArgs []string
	storage *repo.Repo
	catalog *catalog.Catalog
}

func (app *appEnv) fromArgs(args []string) error {
	fl := flag.NewFlagSet("bookdb", flag.ContinueOnError)

	cfg := config.Default()

	fl.IntVar(&cfg.Server.Port, "p", cfg.Server.Port, "Port number")
	fl.StringVar(&cfg.Database.URL, "d", cfg.Database.URL, "Database connection URL")
	fl.StringVar(&cfg.Database.User, "u", cfg.Database.User, "Database user")
	fl.StringVar(&cfg.Database.Password, "w", cfg.Database.Password, "Database password")
	fl.StringVar(&cfg.LogLevel, "v", cfg.LogLevel, "Log level (debug, info, warn, error)")

	if err := fl.Parse(args); err != nil {
		fl.Usage()
		return err
	}

	if fl.NArg() < 1 {
		return fmt.Errorf("please provide a command to run: init, serve or import")
	}

	app.cmd = fl.Arg(0)
	app.cmdArgs = fl.Args()[1:]
	app.config = cfg

	return nil
}

func (app *appEnv) run() error {
	logger.Init(app.config.LogLevel)

	app.storage = repo.New(app.config.Database.URL, app.config.Database.User, app.config.Database.Password)

	switch app.cmd {
	case "init":
		if err := app.storage.EnsureSchema(); err != nil {
			return err
		}
		logger.Info("Schema ready", "url", app.config.Database.URL)
	case "serve":
		if err := app.connect(); err != nil {
			return err
		}
		app.serve()
	case "import":
		if len(app.cmdArgs) < 1 {
			return fmt.Errorf("import needs a library directory")
		}
		if err := app.connect(); err != nil {
			return err
		}

		ctx := context.Background()
		stats, err := importer.ScanLibrary(ctx, app.cmdArgs[0], app.catalog)
		if err != nil {
			return err
		}
		logger.Info("Import finished",
			"books", stats.Books, "authors", stats.Authors, "skipped", stats.Skipped)

		if err := app.catalog.Flush(ctx); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown command %s", app.cmd)
	}
	return nil
}

// connect bootstraps the schema and loads the whole catalogue into memory.
func (app *appEnv) connect() error {
	if err := app.storage.EnsureSchema(); err != nil {
		return err
	}
	app.catalog = catalog.New(app.storage)
	if err := app.catalog.Load(context.Background()); err != nil {
		return err
	}
	logger.Info("Catalogue loaded",
		"books", len(app.catalog.Books()), "authors", len(app.catalog.Authors()))
	return nil
}
