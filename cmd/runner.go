package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/snooze/internal/lifecycle"
	"github.com/desertthunder/snooze/internal/repositories"
	"github.com/desertthunder/snooze/internal/services"
	"github.com/desertthunder/snooze/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The service, storage medium and controller are built on first use so commands that
// never talk to the story service (setup, serve) do not open storage.
type Runner struct {
	config     *shared.Config
	configPath string
	service    services.Service
	medium     repositories.Medium
	closer     io.Closer
	ctrl       *lifecycle.Controller
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Service    services.Service    // overrides the HTTP client built from Config.Remote
	Medium     repositories.Medium // overrides the medium selected by Config.Storage
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		service:    opts.Service,
		medium:     opts.Medium,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, storiesCommand, favoritesCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by the runner and everything it builds afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// loadConfig reloads configuration when --config was given explicitly.
func (r *Runner) loadConfig(cmd *cli.Command) error {
	if !cmd.IsSet("config") {
		return nil
	}

	path := cmd.String("config")
	config, err := shared.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrMissingConfig, err)
	}
	r.config = config
	r.configPath = path
	return nil
}

// controller builds the lifecycle controller on first use.
func (r *Runner) controller(ctx context.Context, cmd *cli.Command) (*lifecycle.Controller, error) {
	if r.ctrl != nil {
		return r.ctrl, nil
	}
	if err := r.loadConfig(cmd); err != nil {
		return nil, err
	}
	r.logger.Debug("building controller", "config", r.configPath, "remote", r.config.Remote.BaseURL)

	if r.service == nil {
		client := *r.httpClient
		client.Timeout = r.config.Remote.Timeout()
		r.service = services.NewStoryService(services.StoryServiceOpts{
			BaseURL:    r.config.Remote.BaseURL,
			HTTPClient: &client,
			RateLimit:  r.config.Remote.RateLimit,
			Logger:     r.logger,
		})
	}

	if r.medium == nil {
		medium, closer, err := repositories.Open(ctx, r.config)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s storage: %w", r.config.Storage.Driver, err)
		}
		r.medium = medium
		r.closer = closer
	}

	r.ctrl = lifecycle.New(lifecycle.Options{
		Service: r.service,
		Medium:  r.medium,
		Logger:  shared.WithLogger(r.logger, "storage", r.config.Storage.Driver),
	})
	return r.ctrl, nil
}

// started returns a controller that has restored any persisted session and loaded the feed.
func (r *Runner) started(ctx context.Context, cmd *cli.Command) (*lifecycle.Controller, error) {
	ctrl, err := r.controller(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if ctrl.State() == lifecycle.Anonymous {
		if err := ctrl.Startup(ctx); err != nil {
			return nil, err
		}
	}
	return ctrl, nil
}

// signedIn is [Runner.started] for commands that need an authenticated session.
func (r *Runner) signedIn(ctx context.Context, cmd *cli.Command) (*lifecycle.Controller, error) {
	ctrl, err := r.started(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if ctrl.State() != lifecycle.Authenticated {
		return nil, fmt.Errorf("%w: run 'snooze auth login' first", shared.ErrNotAuthenticated)
	}
	return ctrl, nil
}

// Close releases the controller and storage connection.
func (r *Runner) Close() error {
	if r.ctrl != nil {
		r.ctrl.Close()
	}
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
