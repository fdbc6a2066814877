package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"capture-bridge/internal/application"
	"capture-bridge/internal/domain"
	"capture-bridge/internal/platform/config"
)

const shutdownTimeout = 10 * time.Second

// Config holds the command line configuration. Defaults come from the
// environment.
type Config struct {
	Addr         string
	LogLevel     string
	LogFormat    string
	Debug        bool
	ListDevices  bool
	Kind         string
	PollInterval time.Duration
	VideoQueue   int
	AudioQueue   int
}

// ParseFlags parses args into a Config. Errors are returned, not printed;
// -h prints the usage and returns flag.ErrHelp.
func ParseFlags(args []string) (*Config, error) {
	cfg := &Config{}
	fs := flag.NewFlagSet("capture-bridge", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage of capture-bridge:")
		fs.SetOutput(os.Stderr)
		fs.PrintDefaults()
		fs.SetOutput(io.Discard)
	}

	fs.StringVar(&cfg.Addr, "addr", config.GetEnv("CAPTURE_ADDR", ":8080"), "listen address")
	fs.StringVar(&cfg.LogLevel, "log-level", config.GetEnv("LOG_LEVEL", "info"), "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", config.GetEnv("LOG_FORMAT", "text"), "log format (text, json)")
	fs.BoolVar(&cfg.Debug, "debug", config.GetEnvBool("CAPTURE_DEBUG", false), "shorthand for -log-level debug")
	fs.BoolVar(&cfg.ListDevices, "list-devices", false, "print available inputs and exit")
	fs.StringVar(&cfg.Kind, "kind", "", "restrict -list-devices to video or audio")
	fs.DurationVar(&cfg.PollInterval, "poll-interval", config.GetEnvDuration("DEVICE_POLL_INTERVAL", 2*time.Second), "device hot-plug poll interval")
	fs.IntVar(&cfg.VideoQueue, "video-queue", config.GetEnvInt("VIDEO_QUEUE", 4), "video delivery queue size")
	fs.IntVar(&cfg.AudioQueue, "audio-queue", config.GetEnvInt("AUDIO_QUEUE", 256), "audio delivery queue size")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}
	if cfg.Kind != "" {
		if _, ok := domain.ParseMediaKind(cfg.Kind); !ok {
			return nil, fmt.Errorf("unknown input kind %q", cfg.Kind)
		}
	}
	return cfg, nil
}

// CLI runs the bridge from the command line.
type CLI struct {
	controller *application.CaptureController
	logger     application.Logger
	config     *Config
	out        io.Writer
}

// NewCLI creates a CLI printing to out.
func NewCLI(controller *application.CaptureController, logger application.Logger, cfg *Config, out io.Writer) *CLI {
	return &CLI{
		controller: controller,
		logger:     logger,
		config:     cfg,
		out:        out,
	}
}

// Run prints the device list when asked to. Otherwise it serves srv until ctx
// is done, then shuts the server down and closes every source.
func (c *CLI) Run(ctx context.Context, srv *http.Server) error {
	if c.config.ListDevices {
		return c.listDevices()
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	c.logger.Info("server starting", "addr", srv.Addr, "poll_interval", c.config.PollInterval)

	select {
	case err := <-errCh:
		if err != nil {
			c.controller.Close()
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		c.logger.Info("shutdown signal received, draining connections")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown: %w", err))
	}
	if err := c.controller.Close(); err != nil {
		errs = append(errs, err)
	}
	c.logger.Info("server stopped")
	return errors.Join(errs...)
}

func (c *CLI) listDevices() error {
	kinds := []domain.MediaKind{domain.MediaKindVideo, domain.MediaKindAudio}
	if c.config.Kind != "" {
		k, _ := domain.ParseMediaKind(c.config.Kind)
		kinds = []domain.MediaKind{k}
	}

	for _, kind := range kinds {
		devices, err := c.controller.ListInputs(kind)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s inputs:\n", kind)
		for i, d := range devices {
			fmt.Fprintf(c.out, "[%d] %s (%s)\n", i, d.DisplayName, d.UniqueID)
		}
	}
	return nil
}
