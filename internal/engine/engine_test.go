package engine_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FP2003/discord-birthday-bot/internal/config"
	"github.com/FP2003/discord-birthday-bot/internal/engine"
)

func named(id, name string, month, day int, year *int) engine.NamedMember {
	return engine.NamedMember{Member: member(id, month, day, year), Name: name}
}

func TestCalendar_GeneratesYearRange(t *testing.T) {
	// Scenario: Verify that we generate events for Prev Year, Current Year, Next Year (Total 3).
	gen := &engine.Generator{
		Clock: MockClock{CurrentTime: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	ics, err := gen.Calendar(context.Background(), []engine.NamedMember{
		named("111", "Range Test", 12, 31, engine.IntPtr(1990)),
	})
	require.NoError(t, err)

	icsStr := string(ics)
	assert.Contains(t, icsStr, "BEGIN:VCALENDAR")
	assert.Contains(t, icsStr, "DTSTART;VALUE=DATE:20241231", "Should include previous year")
	assert.Contains(t, icsStr, "DTSTART;VALUE=DATE:20251231", "Should include current year")
	assert.Contains(t, icsStr, "DTSTART;VALUE=DATE:20261231", "Should include next year")
	assert.Contains(t, icsStr, "SUMMARY:Birthday: Range Test (35)")
	assert.Contains(t, icsStr, "UID:111-2025@"+config.ICalDomain)
	assert.Equal(t, 3, strings.Count(icsStr, "BEGIN:VEVENT"))
}

func TestCalendar_BabyBornThisYear(t *testing.T) {
	// Scenario: Baby born on 2025-05-01. Current date is 2025-01-01.
	// Expected: 2024 (skipped), 2025 (Birth), 2026 (1 year).
	gen := &engine.Generator{
		Clock: MockClock{CurrentTime: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		FormatSummary: func(name string, age int, yearKnown bool) string {
			if age == 0 {
				return fmt.Sprintf("Birthday: %s (Birth)", name)
			}
			return fmt.Sprintf("Birthday: %s (%d)", name, age)
		},
	}

	ics, err := gen.Calendar(context.Background(), []engine.NamedMember{
		named("222", "Baby", 5, 1, engine.IntPtr(2025)),
	})
	require.NoError(t, err)

	icsStr := string(ics)
	assert.NotContains(t, icsStr, "DTSTART;VALUE=DATE:20240501", "Should NOT generate event before birth")
	assert.Contains(t, icsStr, "SUMMARY:Birthday: Baby (Birth)")
	assert.Contains(t, icsStr, "SUMMARY:Birthday: Baby (1)")
	assert.Equal(t, 2, strings.Count(icsStr, "BEGIN:VEVENT"))
}

func TestCalendar_WithReminders(t *testing.T) {
	gen := &engine.Generator{
		Clock:           MockClock{CurrentTime: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		ReminderTrigger: "-P1D",
	}

	ics, err := gen.Calendar(context.Background(), []engine.NamedMember{named("333", "Alarm Test", 1, 1, nil)})
	require.NoError(t, err)

	icsStr := string(ics)
	assert.Contains(t, icsStr, "BEGIN:VALARM")
	assert.Contains(t, icsStr, "TRIGGER:-P1D")
	assert.Contains(t, icsStr, "ACTION:DISPLAY")
	assert.Contains(t, icsStr, "SUMMARY:Birthday: Alarm Test\r\n")
}

func TestCalendar_EmptyIsStub(t *testing.T) {
	gen := &engine.Generator{Clock: MockClock{CurrentTime: time.Now()}}

	ics, err := gen.Calendar(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, config.StubVCalendar, string(ics))
}

func TestCalendar_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &engine.Generator{Clock: MockClock{CurrentTime: time.Now()}}
	_, err := gen.Calendar(ctx, []engine.NamedMember{named("1", "x", 1, 1, nil)})
	assert.Equal(t, context.Canceled, err)
}

// TestContacts_ExportImport checks that an export can be imported back unchanged.
func TestContacts_ExportImport(t *testing.T) {
	gen := &engine.Generator{Clock: MockClock{CurrentTime: time.Now()}}
	in := []engine.NamedMember{
		named("111", "Ada", 12, 10, engine.IntPtr(1990)),
		named("222", "Leap", 2, 29, nil),
	}

	vcf, err := gen.Contacts(in)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(vcf), "BEGIN:VCARD"))

	members, skipped, err := engine.ParseContacts(context.Background(), strings.NewReader(string(vcf)))
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Equal(t, []engine.Member{in[0].Member, in[1].Member}, members)
}

func TestParseContacts_SkipsIncompleteCards(t *testing.T) {
	content := "BEGIN:VCARD\r\nVERSION:4.0\r\nFN:No Uid\r\nBDAY:19900101\r\nEND:VCARD\r\n" +
		"BEGIN:VCARD\r\nVERSION:4.0\r\nUID:42\r\nFN:Bad Date\r\nBDAY:not-a-date\r\nEND:VCARD\r\n" +
		"BEGIN:VCARD\r\nVERSION:4.0\r\nUID:43\r\nFN:Good\r\nBDAY:--0704\r\nEND:VCARD\r\n"

	members, skipped, err := engine.ParseContacts(context.Background(), strings.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, []engine.Member{member("43", 7, 4, nil)}, members)
}
