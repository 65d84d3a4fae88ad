package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"github.com/zalando/go-keyring"
)

// ErrTokenNotFound is returned by ResolveToken when neither the environment nor
// the OS keyring holds a Discord token.
var ErrTokenNotFound = errors.New(ErrTokenMissing)

// Settings holds the runtime configuration read from the environment.
// Tag defaults must stay in sync with the Default* constants (see settings_test.go).
type Settings struct {
	Token        string `envconfig:"DISCORD_TOKEN"`
	GuildID      string `envconfig:"DISCORD_GUILD_ID"` // empty: commands are registered globally
	StorePath    string `envconfig:"STORE_PATH" default:"./birthdays.json"`
	Timezone     string `envconfig:"TIMEZONE" default:"UTC"`
	AnnounceCron string `envconfig:"ANNOUNCE_CRON" default:"0 9 * * *"`
	FeedAddr     string `envconfig:"FEED_ADDR"`     // opt-in, e.g. 127.0.0.1:18080; empty disables the feed
	FeedReminder string `envconfig:"FEED_REMINDER"` // ISO8601 duration, e.g. -P1D
	Language     string `envconfig:"DEFAULT_LANGUAGE" default:"en"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`  // debug|info|warn|error
	LogFormat    string `envconfig:"LOG_FORMAT" default:"json"` // json|text

	// Credentials for `import --url`.
	ImportUser     string `envconfig:"IMPORT_USER"`
	ImportPassword string `envconfig:"IMPORT_PASSWORD"`
}

// Load reads an optional dotenv file and then the process environment.
// A missing dotenv file is not an error; a malformed one is.
func Load(envFile string) (Settings, error) {
	var s Settings

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return s, fmt.Errorf("%s: %w", ErrEnvFile, err)
			}
			slog.Debug(MsgEnvFileSkip,
				LogKeyComponent, CompConfig,
				LogKeyFile, envFile)
		}
	}

	if err := envconfig.Process(EnvPrefix, &s); err != nil {
		return s, fmt.Errorf("%s: %w", ErrEnvLoad, err)
	}

	s.Token = strings.TrimSpace(s.Token)
	if err := s.validate(); err != nil {
		return s, err
	}
	return s, nil
}

// validate checks values that would otherwise only fail once the bot is running.
func (s Settings) validate() error {
	if _, err := time.LoadLocation(s.Timezone); err != nil {
		return fmt.Errorf("%s %q: %w", ErrTimezone, s.Timezone, err)
	}
	if _, err := cron.ParseStandard(s.AnnounceCron); err != nil {
		return fmt.Errorf("%s %q: %w", ErrCronSpec, s.AnnounceCron, err)
	}
	if _, err := s.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel (debug, info, warn, error).
func (s Settings) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("%s %q: %w", ErrLogLevel, s.LogLevel, err)
	}
	return level, nil
}

// Location returns the reference timezone used for "today".
// Load has already validated the name, so the UTC fallback is never hit in practice.
func (s Settings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ResolveToken fills Token from the OS keyring when the environment did not provide one.
func (s *Settings) ResolveToken() error {
	if s.Token != "" {
		return nil
	}

	token, err := keyring.Get(KeyringService, KeyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrTokenNotFound
		}
		return fmt.Errorf("%s: %w", ErrKeyring, err)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrTokenNotFound
	}

	slog.Info(MsgTokenKeyring, LogKeyComponent, CompConfig)
	s.Token = token
	return nil
}

// StoreToken saves token in the OS keyring so it can be omitted from the environment.
func StoreToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New(ErrTokenEmpty)
	}
	if err := keyring.Set(KeyringService, KeyringUser, token); err != nil {
		return fmt.Errorf("%s: %w", ErrKeyring, err)
	}
	return nil
}

// BotToken returns the token in the form expected by the Discord API.
func (s Settings) BotToken() string {
	if strings.HasPrefix(s.Token, BotTokenPrefix) {
		return s.Token
	}
	return BotTokenPrefix + s.Token
}
