package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/cardstudio/internal"
)

// Actions is what the commands run. The processor implements it.
type Actions interface {
	RunGUIMode() error
	ImportFile(path string) error
	GenerateDeck(ctx context.Context) error
	Serve(ctx context.Context) error
	Archive() error
	ListModels(ctx context.Context) error
}

// DefaultOutputDir is where exported decks are written
func DefaultOutputDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "cardstudio", "exports")
}

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags, actions Actions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cardstudio",
		Short: "Flashcard deck studio with Anki export",
		Long: `cardstudio builds flashcard decks and exports them for Anki.

Cards can be written by hand in the desktop editor, imported from a text
file, or generated by an AI model from a topic or a YouTube link.

Examples:
  cardstudio                                  # Launch the card editor (default)
  cardstudio import cards.txt --title Biology # One "front = back" per line
  cardstudio generate --topic "cell biology"  # AI-generated deck
  cardstudio serve --listen :8484             # Local JSON API for sessions`,
		Args:    cobra.NoArgs,
		Version: internal.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return actions.RunGUIMode()
		},
	}

	setupFlags(rootCmd, flags)

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "gui",
			Short: "Launch the card editor",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return actions.RunGUIMode()
			},
		},
		&cobra.Command{
			Use:   "import FILE",
			Short: "Build a deck from a text file and export it",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return actions.ImportFile(args[0])
			},
		},
		newGenerateCommand(flags, actions),
		newServeCommand(flags, actions),
		&cobra.Command{
			Use:   "archive",
			Short: "Move previous exports into a timestamped archive directory",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return actions.Archive()
			},
		},
		&cobra.Command{
			Use:   "models",
			Short: "List OpenAI chat models available for the current API key",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return actions.ListModels(cmd.Context())
			},
		},
	)

	return rootCmd
}

func newGenerateCommand(flags *Flags, actions Actions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a deck with an AI model and export it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return actions.GenerateDeck(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&flags.Topic, "topic", "", "Topic to generate cards about")
	cmd.Flags().StringVar(&flags.SourceURL, "url", "", "YouTube link to generate cards from")
	cmd.Flags().IntVarP(&flags.Count, "count", "n", flags.Count, "Number of cards (1 to 50)")
	cmd.Flags().StringVar(&flags.Difficulty, "difficulty", flags.Difficulty, "Difficulty: easy, medium or hard")
	cmd.Flags().StringVar(&flags.Language, "language", flags.Language, "Language of the cards")

	viper.BindPFlag("ai.language", cmd.Flags().Lookup("language"))

	return cmd
}

func newServeCommand(flags *Flags, actions Actions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the creation flow as a local JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return actions.Serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&flags.Listen, "listen", flags.Listen, "Address to listen on")
	viper.BindPFlag("server.listen", cmd.Flags().Lookup("listen"))

	return cmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	pf := cmd.PersistentFlags()

	pf.StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.cardstudio.yaml)")
	pf.StringVarP(&flags.OutputDir, "output", "o", DefaultOutputDir(), "Export directory")
	pf.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Diagnostic log level: debug, info, warn or error")

	pf.StringVarP(&flags.DeckTitle, "title", "t", flags.DeckTitle, "Deck title")
	pf.StringVar(&flags.Description, "description", "", "Deck description")
	pf.StringVar(&flags.Folder, "folder", "", "Folder the deck belongs to")
	pf.StringSliceVar(&flags.Tags, "tags", nil, "Comma separated deck tags")

	pf.BoolVar(&flags.AnkiCSV, "anki-csv", false, "Export legacy CSV instead of APKG")
	pf.BoolVar(&flags.Reverse, "reverse", false, "Also create a back-to-front card for every note")

	pf.StringVar(&flags.Provider, "provider", flags.Provider, "AI provider: openai or gemini")
	pf.StringVar(&flags.Model, "model", "", "AI model (default depends on the provider)")
	pf.StringVar(&flags.BaseURL, "base-url", "", "OpenAI-compatible API endpoint")

	pf.BoolVar(&flags.NoFade, "no-fade", false, "Disable the card transition animation in the editor")

	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()

	viper.BindPFlag("output.directory", pf.Lookup("output"))
	viper.BindPFlag("output.csv", pf.Lookup("anki-csv"))
	viper.BindPFlag("output.reverse", pf.Lookup("reverse"))
	viper.BindPFlag("log.level", pf.Lookup("log-level"))
	viper.BindPFlag("deck.title", pf.Lookup("title"))
	viper.BindPFlag("deck.folder", pf.Lookup("folder"))
	viper.BindPFlag("ai.provider", pf.Lookup("provider"))
	viper.BindPFlag("ai.model", pf.Lookup("model"))
	viper.BindPFlag("ai.base_url", pf.Lookup("base-url"))
	viper.BindPFlag("gui.no_fade", pf.Lookup("no-fade"))
}

// InitConfig loads .env and initializes viper configuration
func InitConfig(cfgFile string) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load .env: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".cardstudio")
	}

	viper.SetEnvPrefix("CARDSTUDIO")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// GetOpenAIKey retrieves the OpenAI API key from environment or config
func GetOpenAIKey() string {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("ai.openai_key")
}

// GetGeminiKey retrieves the Gemini API key from environment or config
func GetGeminiKey() string {
	for _, env := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		if key := os.Getenv(env); key != "" {
			return key
		}
	}
	return viper.GetString("ai.gemini_key")
}

// GetAPIKey returns the key for the given provider
func GetAPIKey(provider string) string {
	if provider == "gemini" {
		return GetGeminiKey()
	}
	return GetOpenAIKey()
}
