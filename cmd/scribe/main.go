package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/alkime/scribe/internal/audio"
	"github.com/alkime/scribe/internal/backend"
	"github.com/alkime/scribe/internal/config"
	"github.com/alkime/scribe/internal/dictation"
	"github.com/alkime/scribe/internal/editor"
	"github.com/alkime/scribe/internal/export"
	"github.com/alkime/scribe/internal/keyring"
	"github.com/alkime/scribe/internal/logger"
	"github.com/alkime/scribe/internal/platform/git"
	"github.com/alkime/scribe/internal/session"
	"github.com/alkime/scribe/internal/tui"
	"github.com/alkime/scribe/internal/workdir"
	"github.com/alkime/scribe/pkg/uictl"
)

// updateBuffer bounds session updates waiting for the UI.
const updateBuffer = 64

// CLI defines the scribe command structure.
type CLI struct {
	// Default TUI command (runs when no subcommand given)
	TUI TUICmd `cmd:"" default:"withargs" help:"Launch terminal UI for a notes session"`

	// Subcommands
	Notes   NotesCmd   `cmd:"" help:"Generate notes from a text file, audio file or video URL"`
	Devices DevicesCmd `cmd:"" help:"List available audio devices"`
	Config  ConfigCmd  `cmd:"" help:"Manage configuration"`
}

// BackendFlags select the backend a client command talks to.
type BackendFlags struct {
	BackendURL string        `flag:"" optional:"" help:"Backend URL (default: $SCRIBE_BACKEND_URL)"`
	Timeout    time.Duration `flag:"" optional:"" help:"Request timeout (default: $SCRIBE_REQUEST_TIMEOUT)"`
}

func (f BackendFlags) client(cfg *config.Client, sessionID string) *backend.Client {
	if f.BackendURL != "" {
		cfg.BackendURL = f.BackendURL
	}
	if f.Timeout > 0 {
		cfg.RequestTimeout = f.Timeout
	}
	return backend.New(backend.Config{
		BaseURL:   cfg.BackendURL,
		SessionID: sessionID,
		Timeout:   cfg.RequestTimeout,
	})
}

// TUICmd is the default command that runs the TUI.
type TUICmd struct {
	BackendFlags `embed:""`

	Name     string `flag:"" optional:"" help:"Working name (overrides git branch detection)"`
	Language string `flag:"" optional:"" help:"Dictation language (default: $SCRIBE_LANGUAGE)"`
	Debug    bool   `flag:"" help:"Log debug output to the session log file"`
}

// Run executes the TUI command.
func (c *TUICmd) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	if c.Language != "" {
		cfg.Language = c.Language
	}

	dir, err := workdir.Prep(workingName(ctx, c.Name))
	if err != nil {
		return fmt.Errorf("failed to prepare working directory: %w", err)
	}

	// stdout belongs to the UI from here on
	log, closer, err := logger.SetupFile(dir, c.Debug)
	if err != nil {
		return err
	}
	defer closer.Close()

	sessionID := uuid.NewString()
	client := c.client(cfg, sessionID)
	log.Info("Starting session", "session_id", sessionID, "dir", dir, "backend", cfg.BackendURL)

	var levels uictl.Levels[float64]
	capability := dictation.Probe(ctx, func(context.Context) (dictation.Recognizer, error) {
		if err := audio.Probe(); err != nil {
			return nil, err
		}
		rec, err := audio.NewRecognizer(audio.RecognizerConfig{Language: cfg.Language}, client, log)
		if err != nil {
			return nil, err
		}
		levels = rec.Levels()
		return rec, nil
	})
	if u, ok := capability.(dictation.Unavailable); ok {
		log.Warn("Live dictation unavailable", "reason", u.Reason)
	}

	ctl := session.New(session.Config{
		Backend:    client,
		Capability: capability,
		Sink:       export.DirSink{Dir: dir},
		Logger:     log,
	})
	updates := make(chan session.Update, updateBuffer)
	if err := ctl.Subscribe(updates); err != nil {
		return fmt.Errorf("failed to subscribe to session: %w", err)
	}

	wg := sync.WaitGroup{}
	wg.Go(func() {
		if err := ctl.Run(ctx); err != nil {
			log.Error("Session loop failed", "error", err)
		}
	})

	p := tea.NewProgram(tui.New(tui.Config{
		Controller: ctl,
		Updates:    updates,
		Initial:    session.Update{DictationAvailable: ctl.DictationAvailable()},
		Levels:     levels,
		Composer:   editor.New(nil, log),
		WorkDir:    dir,
		Logger:     log,
	}), tea.WithAltScreen())

	_, runErr := p.Run()
	cancel()
	wg.Wait()
	if runErr != nil {
		return fmt.Errorf("failed to run TUI: %w", runErr)
	}

	fmt.Printf("Session files are in %s\n", dir)

	return nil
}

// DevicesCmd lists available audio devices.
type DevicesCmd struct{}

// Run executes the devices command.
func (dcmd *DevicesCmd) Run() error {
	slog.Info("Enumerating audio devices...")

	devices, err := audio.ListDevices()
	if err != nil {
		return fmt.Errorf("failed to enumerate audio devices: %w", err)
	}

	for _, dev := range devices {
		slog.Info("Audio Device",
			"name", dev.Name,
			"isDefault", dev.IsDefault,
			"formats", dev.Formats,
		)
	}

	return nil
}

// ConfigCmd groups configuration-related subcommands.
type ConfigCmd struct {
	SetKey   SetKeyCmd   `cmd:"" help:"Store an API key in system keychain"`
	ListKeys ListKeysCmd `cmd:"" name:"list-keys" help:"Show which API keys are configured"`
}

// SetKeyCmd stores an API key in the system keychain.
type SetKeyCmd struct {
	Service string `arg:"" enum:"openai,anthropic,groq" help:"Service name (openai, anthropic or groq)"`
	Secret  string `arg:"" help:"API key value"`
}

// Run executes the set-key command.
func (c *SetKeyCmd) Run() error {
	if strings.TrimSpace(c.Secret) == "" {
		return errors.New("API key cannot be empty")
	}

	apiKey, err := keyring.APIKeyFromServiceName(c.Service)
	if err != nil {
		return fmt.Errorf("invalid service: %w", err)
	}

	if err := keyring.Set(apiKey, c.Secret); err != nil {
		return fmt.Errorf("failed to store API key: %w", err)
	}

	fmt.Printf("%s API key stored in keychain\n", c.Service)

	return nil
}

// ListKeysCmd shows which API keys are configured for the backend.
type ListKeysCmd struct{}

// Run executes the list-keys command.
//
//nolint:unparam // error return required by Kong interface
func (c *ListKeysCmd) Run() error {
	allSet := true

	for _, apiKey := range keyring.AllAPIKeys() {
		switch {
		case os.Getenv(apiKey.EnvVar()) != "":
			fmt.Printf("%s: configured (%s)\n", apiKey.DisplayName(), apiKey.EnvVar())
		case keyring.IsSet(apiKey):
			fmt.Printf("%s: configured\n", apiKey.DisplayName())
		default:
			fmt.Printf("%s: not set\n", apiKey.DisplayName())
			allSet = false
		}
	}

	if !allSet {
		fmt.Println("\nRun 'scribe config set-key <service> <key>' to configure.")
	}

	return nil
}

func main() {
	logger.SetupCLI(os.Stderr, false)

	cli := &CLI{} //nolint:exhaustruct // Kong fills in command fields
	ctx := kong.Parse(cli,
		kong.Name("scribe"),
		kong.Description("Turn dictation, audio, videos and typed text into structured notes."),
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
	os.Exit(0)
}

// workingName determines the session directory name.
// Priority: explicit name > git branch > date.
func workingName(ctx context.Context, explicit string) string {
	if explicit != "" {
		return git.SafeName(explicit)
	}

	branch, err := git.CurrentBranch(ctx)
	if err != nil {
		slog.Debug("No git branch for working name", "error", err)
	}

	return workdir.DefaultName(git.SafeName(branch), time.Now())
}
