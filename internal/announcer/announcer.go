// Package announcer posts the daily birthday messages.
package announcer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FP2003/discord-birthday-bot/internal/config"
	"github.com/FP2003/discord-birthday-bot/internal/engine"
)

// Source is the read side of the store the announcer walks.
type Source interface {
	engine.MemberSource
	Guilds() []string
	Channel(guildID string) (string, bool)
}

// Profile is the display information of a member.
type Profile struct {
	UserID      string
	DisplayName string
}

// Gateway is the platform side: channel and member resolution plus message sending.
type Gateway interface {
	ResolveChannel(ctx context.Context, channelID string) error
	ResolveMember(ctx context.Context, guildID, userID string) (Profile, error)
	SendMessage(ctx context.Context, channelID, content string) error
}

// Translator renders the announcement template.
type Translator interface {
	T(locale, key string, data map[string]any) string
}

// Report summarizes one pass.
type Report struct {
	Guilds  int // servers with at least one birthday today and a usable channel
	Sent    int
	Failed  int // member lookups or sends that failed
	Skipped int // servers skipped for lack of birthdays, channel or channel access
}

// Announcer emits one message per member whose birthday is today.
type Announcer struct {
	Source     Source
	Gateway    Gateway
	Translator Translator
	Clock      engine.Clock
	Locale     string
}

// Run performs one announcement pass over every known server.
// A failing server or member never stops the others.
func (a *Announcer) Run(ctx context.Context) Report {
	start := time.Now()
	now := a.Clock.Now()
	var report Report

	slog.Info(config.MsgAnnounceStart,
		config.LogKeyComponent, config.CompAnnouncer,
		config.LogKeyDate, now.Format(config.DateFormatFullDash),
	)

	for _, guildID := range a.Source.Guilds() {
		if ctx.Err() != nil {
			break
		}
		a.runGuild(ctx, guildID, now, &report)
	}

	slog.Info(config.MsgAnnounceDone,
		config.LogKeyComponent, config.CompAnnouncer,
		config.LogKeyGuilds, report.Guilds,
		config.LogKeySent, report.Sent,
		config.LogKeyFailed, report.Failed,
		config.LogKeyDuration, time.Since(start).Milliseconds(),
	)
	return report
}

func (a *Announcer) runGuild(ctx context.Context, guildID string, now time.Time, report *Report) {
	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompAnnouncer),
		slog.String(config.LogKeyGuild, guildID),
	)

	defer func() {
		if r := recover(); r != nil {
			report.Failed++
			log.Error(config.ErrAnnounceSend, config.LogKeyPanic, fmt.Sprint(r))
		}
	}()

	today := engine.TodaysBirthdays(a.Source.Members(guildID), now)
	if len(today) == 0 {
		report.Skipped++
		log.Debug(config.MsgAnnounceSkip, config.LogKeyReason, config.ReasonNoBirthdays)
		return
	}

	channelID, ok := a.Source.Channel(guildID)
	if !ok {
		report.Skipped++
		log.Info(config.MsgAnnounceSkip, config.LogKeyReason, config.ReasonNoChannel)
		return
	}
	log = log.With(slog.String(config.LogKeyChannel, channelID))

	if err := a.Gateway.ResolveChannel(ctx, channelID); err != nil {
		report.Skipped++
		log.Warn(config.ErrChannelResolve, config.LogKeyError, err)
		return
	}
	report.Guilds++

	for _, m := range today {
		profile, err := a.Gateway.ResolveMember(ctx, guildID, m.UserID)
		if err != nil {
			report.Failed++
			log.Warn(config.ErrMemberResolve,
				config.LogKeyMember, m.UserID,
				config.LogKeyError, err,
			)
			continue
		}

		if err := a.Gateway.SendMessage(ctx, channelID, a.message(profile, m.Birthday, now)); err != nil {
			report.Failed++
			log.Error(config.ErrAnnounceSend,
				config.LogKeyMember, m.UserID,
				config.LogKeyError, err,
			)
			continue
		}

		report.Sent++
		log.Info(config.MsgAnnounceSent, config.LogKeyMember, m.UserID)
	}
}

// message renders the announcement. The age is the one turned today.
func (a *Announcer) message(p Profile, b engine.Birthday, now time.Time) string {
	data := map[string]any{
		"Mention": fmt.Sprintf(config.FormatUserMention, p.UserID),
		"Name":    p.DisplayName,
	}
	if b.Year == nil {
		return a.Translator.T(a.Locale, config.TKeyAnnounce, data)
	}
	data["Age"] = now.Year() - *b.Year
	return a.Translator.T(a.Locale, config.TKeyAnnounceAge, data)
}
