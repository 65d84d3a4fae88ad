package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/FP2003/discord-birthday-bot/internal/config"
	"github.com/FP2003/discord-birthday-bot/internal/engine"
)

func (d *Dispatcher) handleSetBirthday(_ context.Context, inv Invocation) (Reply, error) {
	cmd, ok := inv.Command.(SetBirthday)
	if !ok {
		return Reply{}, fmt.Errorf("%s: %T", config.ErrOptionType, inv.Command)
	}

	now := d.clock.Now()
	b := engine.Birthday{Month: cmd.Month, Day: cmd.Day, Year: cmd.Year}

	if err := engine.ValidateBirthday(b, now); err != nil {
		slog.Info(config.MsgCommandRejected,
			config.LogKeyComponent, config.CompBot,
			config.LogKeyCommand, cmd.Name(),
			config.LogKeyReason, err.Error(),
		)
		if errors.Is(err, engine.ErrYearOutOfRange) {
			return d.reject(inv, config.TKeyErrYearRange, map[string]any{
				"Min": config.MinBirthYear,
				"Max": now.Year(),
			}), nil
		}
		return d.reject(inv, config.TKeyErrInvalidDate, nil), nil
	}

	d.store.SetBirthday(inv.GuildID, inv.UserID, b)

	age, known := engine.CalculateAge(b, now)
	if !known {
		return d.say(inv, config.TKeySetDone, map[string]any{"Date": b.String()}), nil
	}
	return d.say(inv, config.TKeySetDoneAge, map[string]any{
		"Date": b.String(),
		"Age":  age + 1,
	}), nil
}

func (d *Dispatcher) handleShowBirthday(ctx context.Context, inv Invocation) (Reply, error) {
	cmd, ok := inv.Command.(ShowBirthday)
	if !ok {
		return Reply{}, fmt.Errorf("%s: %T", config.ErrOptionType, inv.Command)
	}

	target := cmd.Target
	if target == "" {
		target = inv.UserID
	}
	self := target == inv.UserID

	b, found := d.store.Birthday(inv.GuildID, target)
	if !found {
		if self {
			return d.say(inv, config.TKeyNotSetSelf, nil), nil
		}
		name, err := d.displayName(ctx, inv.GuildID, target)
		if err != nil {
			return Reply{}, err
		}
		return d.say(inv, config.TKeyNotSetOther, map[string]any{"Name": name}), nil
	}

	data := map[string]any{"Date": b.String()}
	age, known := engine.CalculateAge(b, d.clock.Now())
	if known {
		data["Age"] = age
	}

	if self {
		if known {
			return d.say(inv, config.TKeyShowSelfAge, data), nil
		}
		return d.say(inv, config.TKeyShowSelf, data), nil
	}

	name, err := d.displayName(ctx, inv.GuildID, target)
	if err != nil {
		return Reply{}, err
	}
	data["Name"] = name
	if known {
		return d.say(inv, config.TKeyShowOtherAge, data), nil
	}
	return d.say(inv, config.TKeyShowOther, data), nil
}

func (d *Dispatcher) handleListBirthdays(ctx context.Context, inv Invocation) (Reply, error) {
	entries := engine.Upcoming(d.store.Members(inv.GuildID), d.clock.Now(), config.DefaultUpcomingMax)
	if len(entries) == 0 {
		return d.say(inv, config.TKeyListEmpty, nil), nil
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.UserID
	}
	names, err := d.displayNames(ctx, inv.GuildID, ids)
	if err != nil {
		return Reply{}, err
	}

	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, d.tr.T(inv.Locale, config.TKeyListTitle, nil))

	for i, e := range entries {
		data := map[string]any{
			"Name": names[i],
			"Date": e.Birthday.WithoutYear().String(),
			"When": d.when(inv.Locale, e.DaysUntil),
		}
		key := config.TKeyListLine
		if e.Birthday.YearKnown() {
			data["Age"] = e.AgeNext
			key = config.TKeyListLineAge
		}
		lines = append(lines, d.tr.T(inv.Locale, key, data))
	}
	return Reply{Content: strings.Join(lines, config.ListSeparator)}, nil
}

func (d *Dispatcher) when(locale string, days int) string {
	switch days {
	case 0:
		return d.tr.T(locale, config.TKeyWhenToday, nil)
	case 1:
		return d.tr.T(locale, config.TKeyWhenTomorrow, nil)
	default:
		return d.tr.T(locale, config.TKeyWhenDays, map[string]any{"Days": days})
	}
}

func (d *Dispatcher) handleRemoveBirthday(_ context.Context, inv Invocation) (Reply, error) {
	if !d.store.RemoveBirthday(inv.GuildID, inv.UserID) {
		return d.say(inv, config.TKeyRemoveNothing, nil), nil
	}
	return d.say(inv, config.TKeyRemoveDone, nil), nil
}

func (d *Dispatcher) handleSetChannel(_ context.Context, inv Invocation) (Reply, error) {
	cmd, ok := inv.Command.(SetChannel)
	if !ok {
		return Reply{}, fmt.Errorf("%s: %T", config.ErrOptionType, inv.Command)
	}
	if cmd.ChannelID == "" {
		return Reply{}, errors.New(config.ErrChannelResolve)
	}

	d.store.SetAnnouncementChannel(inv.GuildID, cmd.ChannelID)
	return d.say(inv, config.TKeyChannelDone, map[string]any{
		"Channel": fmt.Sprintf(config.FormatChannelMention, cmd.ChannelID),
	}), nil
}
