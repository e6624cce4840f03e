package config

import (
	"time"

	"clubbot/internal/repository"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Repo         repository.Config `envPrefix:"REPO_"`
	DiscordToken string            `env:"DISCORD_TOKEN" envDefault:""`
	GuildID      string            `env:"DISCORD_GUILD_ID" envDefault:""`
	LogLevel     string            `env:"LOGGER_LEVEL" envDefault:"debug"`

	AllowedChannelID string   `env:"ALLOWED_CHANNEL_ID" envDefault:""`
	AdminUserIDs     []string `env:"ADMIN_USER_IDS" envSeparator:"," envDefault:""`

	TelegramToken   string  `env:"TELEGRAM_TOKEN" envDefault:""`
	TelegramChatIDs []int64 `env:"TELEGRAM_CHAT_IDS" envSeparator:"," envDefault:""`

	GoogleCredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE" envDefault:""`
	GoogleSpreadsheetID   string `env:"GOOGLE_SPREADSHEET_ID" envDefault:""`

	AutosaveInterval time.Duration `env:"AUTOSAVE_INTERVAL" envDefault:"10m"`
}

func ReadEnvConfig(cfg *Config) error {
	return env.Parse(cfg)
}
