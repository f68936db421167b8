package cli

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile   string
	OutputDir string
	LogLevel  string

	// Deck metadata used by import and generate
	DeckTitle   string
	Description string
	Folder      string
	Tags        []string

	// Export flags
	AnkiCSV bool
	Reverse bool

	// AI generation flags
	Provider   string
	Model      string
	BaseURL    string
	Topic      string
	SourceURL  string
	Count      int
	Difficulty string
	Language   string

	// Server flags
	Listen string

	// GUI flags
	NoFade bool
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		LogLevel:   "warn",
		DeckTitle:  "Card Studio Deck",
		Provider:   "openai",
		Count:      10,
		Difficulty: "medium",
		Language:   "English",
		Listen:     "127.0.0.1:8484",
	}
}
