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

	"github.com/nomis52/journeyid/buildinfo"
	"github.com/nomis52/journeyid/server"
	serverconfig "github.com/nomis52/journeyid/server/config"
)

type Args struct {
	ConfigPath  string
	ShowVersion bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(argv []string) error {
	args, err := parseArgs(argv, os.Stderr)
	if err != nil {
		return err
	}

	if args.ShowVersion {
		fmt.Printf("journeyid-server %s\n", buildinfo.Get())
		return nil
	}

	srvCfg, err := serverconfig.LoadConfig(args.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load server config: %w", err)
	}

	srv, err := server.New(srvCfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go reloadOnHangup(ctx, srv)

	return srv.Run(ctx)
}

// reloadOnHangup rebuilds the activation pipeline on every SIGHUP until ctx
// is done.
func reloadOnHangup(ctx context.Context, srv *server.Server) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := srv.Reload(ctx); err != nil {
				srv.Logger().Error("reload on SIGHUP failed", "error", err)
			}
		}
	}
}

func parseArgs(argv []string, output io.Writer) (Args, error) {
	fs := flag.NewFlagSet("journeyid-server", flag.ContinueOnError)
	fs.SetOutput(output)

	var args Args
	fs.StringVar(&args.ConfigPath, "config", "", "Path to server config file")
	fs.StringVar(&args.ConfigPath, "c", "", "Path to server config file (shorthand)")
	fs.BoolVar(&args.ShowVersion, "version", false, "Show version information")

	fs.Usage = func() {
		fmt.Fprintf(output, "Usage: %s [options]\n", fs.Name())
		fmt.Fprintf(output, "\njourneyid server - journey activation and tracking id API\n\n")
		fmt.Fprintf(output, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(output, "\nSend SIGHUP to reload the activation config.\n")
		fmt.Fprintf(output, "\nExamples:\n")
		fmt.Fprintf(output, "  %s --config /etc/journeyid/server_config.yaml\n", fs.Name())
		fmt.Fprintf(output, "  %s -c server_config.yaml\n", fs.Name())
	}

	if err := fs.Parse(argv); err != nil {
		return args, err
	}
	if fs.NArg() > 0 {
		return args, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if args.ConfigPath == "" && !args.ShowVersion {
		return args, fmt.Errorf("config flag (-c or --config) is required")
	}
	return args, nil
}
