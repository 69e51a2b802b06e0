package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"aidebate/internal/api"
	"aidebate/internal/audio/miniaudio"
	"aidebate/internal/commands"
	"aidebate/internal/config"
	"aidebate/internal/db"
	"aidebate/internal/debate"
	"aidebate/internal/logging"
	"aidebate/internal/notify"
	"aidebate/internal/session"
	"aidebate/internal/ui"
)

var (
	configFile string
	modeFlag   string
	topicFlag  string
	langFlag   string
	noAudio    bool
	styleFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "aidebate",
	Short: "Terminal client for live AI debates",
	Long: `aidebate follows a debate streamed by the debate server: two AI debaters,
or you against one, argue a motion over several rounds while the judges score
each round. Arguments can be read aloud and finished debates are archived.

` + commands.HelpText(),
	SilenceUsage: true,
	RunE:         runTUI,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $XDG_CONFIG_HOME/aidebate/config.yaml)")

	rootCmd.Flags().StringVarP(&modeFlag, "mode", "m", "", "debate mode: automated or interactive")
	rootCmd.Flags().StringVarP(&topicFlag, "topic", "t", "", "topic ID to set up on launch")
	rootCmd.Flags().StringVarP(&langFlag, "lang", "l", "", "language: en or zh")
	rootCmd.Flags().BoolVar(&noAudio, "no-audio", false, "disable speech playback")
	rootCmd.Flags().StringVar(&styleFlag, "style", "dark", "markdown style: dark, light, notty")
}

// loadConfig reads .env, then the config file, then applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Debate.Mode = modeFlag
	}
	if flags.Changed("topic") {
		cfg.Debate.TopicID = topicFlag
	}
	if flags.Changed("lang") {
		cfg.Server.Language = langFlag
	}
	if noAudio {
		cfg.Audio.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openLogger sends logs to a file; the TUI owns the terminal.
func openLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	path := cfg.Log.File
	if path == "" {
		path = logging.DefaultPath()
	}
	return logging.New(path, cfg.Log.Level)
}

func newClient(cfg *config.Config, logger *slog.Logger) *api.Client {
	return api.New(api.Options{
		BaseURL: cfg.Server.BaseURL,
		Timeout: time.Duration(cfg.HTTP.Timeout) * time.Second,
		Retry: api.RetryConfig{
			MaxAttempts: cfg.HTTP.RetryAttempts,
			BaseDelay:   time.Duration(cfg.HTTP.RetryDelay) * time.Millisecond,
			MaxDelay:    10 * time.Second,
		},
		Logger: logger,
	})
}

func openArchive(cfg *config.Config) (*db.Store, error) {
	if !cfg.Archive.Enabled {
		return nil, nil
	}
	return db.Open(cfg.Archive.Path)
}

func engineConfig(cfg *config.Config) debate.Config {
	return debate.Config{
		Mode:          debate.Mode(cfg.Debate.Mode),
		Language:      cfg.Server.Language,
		MaxRounds:     cfg.Debate.MaxRounds,
		RoundDuration: time.Duration(cfg.Debate.RoundSeconds) * time.Second,
		UserID:        cfg.Server.UserID,
		Defaults: session.Config{
			TopicID:  cfg.Debate.TopicID,
			UserSide: cfg.Debate.UserSide,
			Affirmative: session.Persona{
				Personality:    cfg.Debate.Affirmative.Personality,
				ExpertiseLevel: cfg.Debate.Affirmative.ExpertiseLevel,
			},
			Negative: session.Persona{
				Personality:    cfg.Debate.Negative.Personality,
				ExpertiseLevel: cfg.Debate.Negative.ExpertiseLevel,
			},
			AutoPlaySpeed: cfg.Debate.AutoPlaySpeed,
		},
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, closer, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()
	logger.Info("starting", "server", cfg.Server.BaseURL, "mode", cfg.Debate.Mode)

	client := newClient(cfg, logger)

	engineOpts := debate.Options{
		Backend: client,
		Logger:  logger,
	}

	if cfg.Audio.Enabled {
		player, err := miniaudio.NewPlayer(logger)
		if err != nil {
			logger.Warn("audio unavailable", "error", err)
		} else {
			defer player.Close()
			engineOpts.Player = player
		}
	}

	var archive ui.Archive
	store, err := openArchive(cfg)
	if err != nil {
		logger.Warn("archive unavailable", "error", err)
	} else if store != nil {
		defer store.Close()
		engineOpts.Archiver = store
		archive = store
	}

	if cfg.Notify.Enabled {
		engineOpts.Notifier = notify.NewClient(cfg.Notify.Endpoint, logger)
	}

	relay := ui.NewRelay()
	engineOpts.OnChange = relay.Publish

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	engine := debate.NewEngine(engineConfig(cfg), engineOpts)
	go func() {
		if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("engine stopped", "error", err)
		}
	}()

	if cfg.Debate.TopicID != "" {
		engine.Initialize(cfg.Debate.TopicID, "")
	}

	model := ui.New(ui.Options{
		Engine:        engine,
		Topics:        client,
		Archive:       archive,
		TopicID:       cfg.Debate.TopicID,
		ExportDir:     cfg.Export.Dir,
		MarkdownStyle: styleFlag,
		Logger:        logger,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	go relay.Run(ctx, p.Send)

	_, err = p.Run()
	cancel()
	<-engine.Done()
	return err
}
