package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/FP2003/discord-birthday-bot/internal/config"
	"github.com/FP2003/discord-birthday-bot/internal/discord"
	"github.com/FP2003/discord-birthday-bot/internal/engine"
	"github.com/FP2003/discord-birthday-bot/internal/i18n"
	"github.com/FP2003/discord-birthday-bot/internal/store"
)

var errGuildRequired = errors.New(config.ErrGuildRequired)

// Export writes a server's birthdays to w as an iCalendar (ics) or vCard (vcf) document.
// Display names are looked up over the REST API when a token is configured.
func Export(ctx context.Context, settings config.Settings, guildID, format string, w io.Writer) error {
	if guildID == "" {
		return errGuildRequired
	}

	catalog, err := i18n.New(settings.Language)
	if err != nil {
		return err
	}
	gen := &engine.Generator{
		Clock:           engine.RealClock{Location: settings.Location()},
		FormatSummary:   catalog.Summary(settings.Language),
		ReminderTrigger: settings.FeedReminder,
	}

	st := store.Open(settings.StorePath)
	members := namedMembers(ctx, settings, guildID, st.Members(guildID))

	var data []byte
	switch format {
	case config.FormatICS:
		data, err = gen.Calendar(ctx, members)
	case config.FormatVCF:
		data, err = gen.Contacts(members)
	default:
		return fmt.Errorf("%s: %q", config.ErrUnknownFormat, format)
	}
	if err != nil {
		return err
	}

	_, err = w.Write(data)
	return err
}

func namedMembers(ctx context.Context, settings config.Settings, guildID string, members []engine.Member) []engine.NamedMember {
	var directory *discord.Adapter
	if err := settings.ResolveToken(); err == nil {
		if session, err := discordgo.New(settings.BotToken()); err == nil {
			directory = discord.NewAdapter(session, nil, nil, "")
		}
	} else {
		slog.Debug(config.ErrTokenMissing, config.LogKeyComponent, config.CompApp)
	}

	named := make([]engine.NamedMember, 0, len(members))
	for _, m := range members {
		name := m.UserID
		if directory != nil {
			if n, err := directory.DisplayName(ctx, guildID, m.UserID); err == nil {
				name = n
			}
		}
		named = append(named, engine.NamedMember{Member: m, Name: name})
	}
	return named
}

// Import reads a vCard document (card UID = member id) into a server's birthdays.
// Cards with an invalid date for the current year range are skipped.
func Import(ctx context.Context, settings config.Settings, guildID string, r io.Reader) (imported, skipped int, err error) {
	if guildID == "" {
		return 0, 0, errGuildRequired
	}

	members, skipped, err := engine.ParseContacts(ctx, r)
	if err != nil {
		return 0, skipped, err
	}

	now := engine.RealClock{Location: settings.Location()}.Now()
	valid := members[:0]
	for _, m := range members {
		if err := engine.ValidateBirthday(m.Birthday, now); err != nil {
			skipped++
			slog.Warn(config.MsgSkippedDate,
				config.LogKeyComponent, config.CompApp,
				config.LogKeyMember, m.UserID,
				config.LogKeyError, err,
			)
			continue
		}
		valid = append(valid, m)
	}

	st := store.Open(settings.StorePath)
	return st.Import(guildID, valid), skipped, nil
}
