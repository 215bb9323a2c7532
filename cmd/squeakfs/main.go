// Command squeakfs serves the classes of a live Smalltalk image as a
// read-only filesystem over NFS and FUSE.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/pkg/config"
	"github.com/marmos91/squeakfs/pkg/server"
	"github.com/marmos91/squeakfs/pkg/squeak"
	"github.com/marmos91/squeakfs/pkg/vfs"
)

const usage = `SqueakFS - browse a live Smalltalk image as a filesystem

Usage:
  squeakfs <command> [flags]

Commands:
  init     Write a default configuration file
  start    Start the server

Run 'squeakfs <command> -h' for the flags of a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = runInit(os.Args[2:])
	case "start":
		err = runStart(os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runInit(args []string) error {
	flags := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := flags.String("config", "", "Where to write the file (default: "+config.GetDefaultConfigPath()+")")
	force := flags.Bool("force", false, "Overwrite an existing file")
	_ = flags.Parse(args)

	path := *configPath
	if path == "" {
		var err error
		if path, err = config.InitConfig(*force); err != nil {
			return err
		}
	} else if err := config.InitConfigToPath(path, *force); err != nil {
		return err
	}

	fmt.Printf("Configuration written to %s\n", path)
	return nil
}

func runStart(args []string) error {
	flags := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := flags.String("config", "", "Configuration file (default: "+config.GetDefaultConfigPath()+")")
	_ = flags.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Println("SqueakFS - Smalltalk image filesystem")
	logger.Info("Log level set to: %s", cfg.Logging.Level)

	// The health probe is wired before the source exists so the source can
	// be created with the metrics it reports to.
	var src squeak.Source
	metricsResult := config.InitializeMetrics(cfg, func(ctx context.Context) error {
		if src == nil {
			return errors.New("image source not ready")
		}
		return src.Ping(ctx)
	})

	src, err = config.CreateSource(ctx, &cfg.Source, metricsResult.SourceMetrics)
	if err != nil {
		return err
	}
	if closer, ok := src.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := src.Ping(pingCtx); err != nil {
		logger.Warn("Image does not answer yet: %v", err)
	}
	pingCancel()

	store, err := config.CreateHandleStore(ctx, &cfg.Handles)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	fs := vfs.New(src, vfs.Options{
		RootClass: cfg.Views.RootClass,
		Metrics:   metricsResult.FSMetrics,
	})

	srv := server.New(fs, server.Options{ShutdownTimeout: cfg.ShutdownTimeout})

	adapters, err := config.CreateAdapters(cfg, store, metricsResult.NFSMetrics)
	if err != nil {
		return err
	}
	for _, a := range adapters {
		if err := srv.AddAdapter(a); err != nil {
			return err
		}
	}

	if metricsResult.Server != nil {
		go func() {
			if err := metricsResult.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	logger.Info("Server is running. Press Ctrl+C to stop.")

	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("Server stopped gracefully")
	return nil
}
