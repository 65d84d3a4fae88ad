// Package i18n loads the embedded reply templates and renders them per Discord locale.
package i18n

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/FP2003/discord-birthday-bot/internal/config"
)

//go:embed locales/*.json
var localeFS embed.FS

// Catalog translates message keys. It is safe for concurrent use once built.
type Catalog struct {
	bundle    *i18n.Bundle
	languages []string
	fallback  string
}

// New loads every embedded active.<lang>.json file. fallback is used when the
// requested locale has no translation for a key; English is the last resort.
func New(fallback string) (*Catalog, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrLocalesAccess, err)
	}

	var detectedLangs []string

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		langCode := strings.TrimSuffix(strings.TrimPrefix(name, "active."), ".json")
		if langCode == "" {
			slog.Warn(config.MsgLocaleBadName,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
			return nil, fmt.Errorf("%s %s: %w", config.ErrLocaleLoad, name, err)
		}
		detectedLangs = append(detectedLangs, langCode)

		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, langCode,
			config.LogKeyFile, name,
		)
	}

	if fallback == "" {
		fallback = config.DefaultLanguage
	}
	return &Catalog{bundle: bundle, languages: detectedLangs, fallback: fallback}, nil
}

// Languages lists the loaded locale codes.
func (c *Catalog) Languages() []string {
	return c.languages
}

// T renders key for the given locale (a Discord locale such as "fr" or "en-US").
// Missing keys are logged and rendered as the key itself.
func (c *Catalog) T(locale, key string, data map[string]any) string {
	if c == nil || c.bundle == nil {
		return key
	}

	localizer := i18n.NewLocalizer(c.bundle, locale, c.fallback)
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		var notFound *i18n.MessageNotFoundErr
		// A message found only in the bundle's default language comes back with MessageNotFoundErr.
		if errors.As(err, &notFound) && msg != "" {
			return msg
		}
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, key,
			config.LogKeyLang, locale,
			config.LogKeyError, err,
		)
		return key
	}
	return msg
}

// Summary formats a feed event title, matching engine.Generator.FormatSummary.
func (c *Catalog) Summary(locale string) func(name string, age int, yearKnown bool) string {
	return func(name string, age int, yearKnown bool) string {
		switch {
		case !yearKnown:
			return c.T(locale, config.TKeyFeedSummary, map[string]any{"Name": name})
		case age == 0:
			return c.T(locale, config.TKeyFeedSummaryBirth, map[string]any{"Name": name})
		default:
			return c.T(locale, config.TKeyFeedSummaryAge, map[string]any{"Name": name, "Age": age})
		}
	}
}
