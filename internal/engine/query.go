package engine

import (
	"slices"
	"time"

	"github.com/FP2003/discord-birthday-bot/internal/config"
)

// MemberSource exposes a server's members in insertion order.
// store.Store satisfies it.
type MemberSource interface {
	Members(guildID string) []Member
}

// Upcoming ranks members by days until their next birthday.
// The sort is stable, so ties keep insertion order. limit <= 0 selects the default of 10.
func Upcoming(members []Member, now time.Time, limit int) []UpcomingEntry {
	if limit <= 0 {
		limit = config.DefaultUpcomingMax
	}

	entries := make([]UpcomingEntry, 0, len(members))
	for _, m := range members {
		_, ageNext := NextOccurrence(now, m.Birthday)
		entries = append(entries, UpcomingEntry{
			Member:    m,
			DaysUntil: DaysUntil(m.Birthday.Month, m.Birthday.Day, now),
			AgeNext:   ageNext,
		})
	}

	slices.SortStableFunc(entries, func(a, b UpcomingEntry) int {
		return a.DaysUntil - b.DaysUntil
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// TodaysBirthdays filters the members whose (month, day) is the reference date.
func TodaysBirthdays(members []Member, now time.Time) []Member {
	var today []Member
	for _, m := range members {
		if IsBirthdayToday(m.Birthday, now) {
			today = append(today, m)
		}
	}
	return today
}

// Query binds the pure ranking functions to a member source and a clock.
type Query struct {
	Source MemberSource
	Clock  Clock
}

// Upcoming returns the next birthdays of a server; empty for an unknown server.
func (q Query) Upcoming(guildID string, limit int) []UpcomingEntry {
	return Upcoming(q.Source.Members(guildID), q.Clock.Now(), limit)
}

// Today returns the members of a server whose birthday is today.
func (q Query) Today(guildID string) []Member {
	return TodaysBirthdays(q.Source.Members(guildID), q.Clock.Now())
}
