package bot_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FP2003/discord-birthday-bot/internal/bot"
	"github.com/FP2003/discord-birthday-bot/internal/config"
	"github.com/FP2003/discord-birthday-bot/internal/engine"
	"github.com/FP2003/discord-birthday-bot/internal/i18n"
	"github.com/FP2003/discord-birthday-bot/internal/store"
)

// -----------------------------------------------------------------------------
// Mocks
// -----------------------------------------------------------------------------

// MockDirectory simulates member lookups using `testify/mock`.
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) DisplayName(ctx context.Context, guildID, userID string) (string, error) {
	args := m.Called(ctx, guildID, userID)
	return args.String(0), args.Error(1)
}

// MockClock controls time for deterministic testing.
type MockClock struct {
	CurrentTime time.Time
}

func (m MockClock) Now() time.Time {
	return m.CurrentTime
}

const guildID = "g1"

type fixture struct {
	dispatcher *bot.Dispatcher
	store      *store.Store
	directory  *MockDirectory
}

func newFixture(t *testing.T, now time.Time) fixture {
	t.Helper()

	catalog, err := i18n.New(config.DefaultLanguage)
	require.NoError(t, err)

	st := store.Open(filepath.Join(t.TempDir(), "birthdays.json"))
	dir := &MockDirectory{}

	d, err := bot.NewDispatcher(st, dir, catalog, MockClock{CurrentTime: now})
	require.NoError(t, err)

	return fixture{dispatcher: d, store: st, directory: dir}
}

func (f fixture) run(userID string, cmd bot.Command) bot.Reply {
	return f.dispatcher.Dispatch(context.Background(), bot.Invocation{
		GuildID: guildID,
		UserID:  userID,
		Locale:  "en-US",
		Command: cmd,
	})
}

var refDate = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

// -----------------------------------------------------------------------------
// Test Cases
// -----------------------------------------------------------------------------

func TestSetThenShow_EndToEnd(t *testing.T) {
	// Scenario: member A sets (6, 15, 1990) on 2024-06-15 and then looks it up.
	f := newFixture(t, refDate)

	reply := f.run("A", bot.SetBirthday{Month: 6, Day: 15, Year: engine.IntPtr(1990)})
	assert.Equal(t, "Your birthday is set to 15 June, 1990 (turning 35).", reply.Content)
	assert.False(t, reply.Ephemeral)

	reply = f.run("A", bot.ShowBirthday{})
	assert.Contains(t, reply.Content, "15 June, 1990")
	assert.Contains(t, reply.Content, "34")
	assert.Equal(t, "Your birthday is 15 June, 1990 (age 34).", reply.Content)
}

func TestSetBirthday_WithoutYear(t *testing.T) {
	f := newFixture(t, refDate)

	reply := f.run("A", bot.SetBirthday{Month: 2, Day: 29})
	assert.Equal(t, "Your birthday is set to 29 February.", reply.Content)

	b, ok := f.store.Birthday(guildID, "A")
	require.True(t, ok)
	assert.Equal(t, engine.Birthday{Month: 2, Day: 29}, b)
}

func TestSetBirthday_Validation(t *testing.T) {
	tests := []struct {
		name string
		cmd  bot.SetBirthday
		want string
	}{
		{"Day overflow", bot.SetBirthday{Month: 2, Day: 30}, "That date does not exist"},
		{"Month overflow", bot.SetBirthday{Month: 13, Day: 1}, "That date does not exist"},
		{"29 Feb in common year", bot.SetBirthday{Month: 2, Day: 29, Year: engine.IntPtr(2023)}, "That date does not exist"},
		{"Year too old", bot.SetBirthday{Month: 1, Day: 1, Year: engine.IntPtr(1899)}, "between 1900 and 2024"},
		{"Year in the future", bot.SetBirthday{Month: 1, Day: 1, Year: engine.IntPtr(2025)}, "between 1900 and 2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, refDate)

			reply := f.run("A", tt.cmd)
			assert.Contains(t, reply.Content, tt.want)
			assert.True(t, reply.Ephemeral)

			_, ok := f.store.Birthday(guildID, "A")
			assert.False(t, ok, "A rejected date must not be stored")
		})
	}
}

func TestShowBirthday_NotSet(t *testing.T) {
	f := newFixture(t, refDate)
	f.directory.On("DisplayName", mock.Anything, guildID, "B").Return("Bob", nil)

	assert.Equal(t, "You have not set your birthday yet. Use /setbirthday.", f.run("A", bot.ShowBirthday{}).Content)
	assert.Equal(t, "You have not set your birthday yet. Use /setbirthday.", f.run("A", bot.ShowBirthday{Target: "A"}).Content)
	assert.Equal(t, "Bob has not set a birthday.", f.run("A", bot.ShowBirthday{Target: "B"}).Content)

	f.directory.AssertExpectations(t)
}

func TestShowBirthday_Other(t *testing.T) {
	f := newFixture(t, refDate)
	f.store.SetBirthday(guildID, "B", engine.Birthday{Month: 6, Day: 16, Year: engine.IntPtr(2000)})
	f.store.SetBirthday(guildID, "C", engine.Birthday{Month: 1, Day: 3})

	f.directory.On("DisplayName", mock.Anything, guildID, "B").Return("Bob", nil)
	f.directory.On("DisplayName", mock.Anything, guildID, "C").Return("", errors.New("unknown member"))

	assert.Equal(t, "Bob's birthday is 16 June, 2000 (age 23).", f.run("A", bot.ShowBirthday{Target: "B"}).Content)
	assert.Equal(t, "<@C>'s birthday is 3 January.", f.run("A", bot.ShowBirthday{Target: "C"}).Content,
		"An unresolvable member falls back to a mention")
}

func TestListBirthdays_Order(t *testing.T) {
	// Scenario: B is 5 days away and inserted first, A is 2 days away.
	f := newFixture(t, refDate)
	f.store.SetBirthday(guildID, "B", engine.Birthday{Month: 6, Day: 20})
	f.store.SetBirthday(guildID, "A", engine.Birthday{Month: 6, Day: 17, Year: engine.IntPtr(2000)})
	f.store.SetBirthday(guildID, "C", engine.Birthday{Month: 6, Day: 15})
	f.store.SetBirthday(guildID, "D", engine.Birthday{Month: 6, Day: 16})

	for id, name := range map[string]string{"A": "Alice", "B": "Bob", "C": "Carol", "D": "Dan"} {
		f.directory.On("DisplayName", mock.Anything, guildID, id).Return(name, nil)
	}

	reply := f.run("X", bot.ListBirthdays{})
	lines := strings.Split(reply.Content, config.ListSeparator)
	require.Len(t, lines, 5)

	assert.Equal(t, "**Upcoming birthdays**", lines[0])
	assert.Equal(t, "Carol: 15 June (Today)", lines[1])
	assert.Equal(t, "Dan: 16 June (Tomorrow)", lines[2])
	assert.Equal(t, "Alice: 17 June (turning 24) (In 2 days)", lines[3])
	assert.Equal(t, "Bob: 20 June (In 5 days)", lines[4])
}

func TestListBirthdays_Empty(t *testing.T) {
	f := newFixture(t, refDate)
	assert.Equal(t, "No upcoming birthdays.", f.run("X", bot.ListBirthdays{}).Content)
}

func TestListBirthdays_Truncated(t *testing.T) {
	f := newFixture(t, refDate)
	f.directory.On("DisplayName", mock.Anything, guildID, mock.Anything).Return("Someone", nil)
	for d := 1; d <= 12; d++ {
		f.store.SetBirthday(guildID, string(rune('a'+d)), engine.Birthday{Month: 7, Day: d})
	}

	lines := strings.Split(f.run("X", bot.ListBirthdays{}).Content, config.ListSeparator)
	assert.Len(t, lines, 1+config.DefaultUpcomingMax)
}

func TestRemoveBirthday(t *testing.T) {
	f := newFixture(t, refDate)
	f.store.SetBirthday(guildID, "A", engine.Birthday{Month: 6, Day: 20})

	assert.Equal(t, "Your birthday has been removed.", f.run("A", bot.RemoveBirthday{}).Content)
	assert.Equal(t, "You have no birthday to remove.", f.run("A", bot.RemoveBirthday{}).Content)
}

func TestSetChannel_AdminOnly(t *testing.T) {
	f := newFixture(t, refDate)

	reply := f.run("A", bot.SetChannel{ChannelID: "c1"})
	assert.Equal(t, "Only server administrators can use this command.", reply.Content)
	assert.True(t, reply.Ephemeral)
	_, ok := f.store.Channel(guildID)
	assert.False(t, ok)

	reply = f.dispatcher.Dispatch(context.Background(), bot.Invocation{
		GuildID: guildID, UserID: "admin", IsAdmin: true, Command: bot.SetChannel{ChannelID: "c1"},
	})
	assert.Equal(t, "Birthday announcements will be posted in <#c1>.", reply.Content)

	ch, ok := f.store.Channel(guildID)
	assert.True(t, ok)
	assert.Equal(t, "c1", ch)
}

func TestDispatch_GuildOnly(t *testing.T) {
	f := newFixture(t, refDate)

	reply := f.dispatcher.Dispatch(context.Background(), bot.Invocation{UserID: "A", Command: bot.ListBirthdays{}})
	assert.Equal(t, "This command can only be used inside a server.", reply.Content)
	assert.True(t, reply.Ephemeral)
}

// TestDispatch_PanicBecomesGenericReply ensures an internal fault still yields exactly one
// reply, and that it carries no raw detail.
func TestDispatch_PanicBecomesGenericReply(t *testing.T) {
	f := newFixture(t, refDate)
	f.store.SetBirthday(guildID, "B", engine.Birthday{Month: 1, Day: 1})
	f.directory.On("DisplayName", mock.Anything, guildID, "B").Run(func(mock.Arguments) {
		panic("gateway exploded")
	})

	reply := f.run("A", bot.ShowBirthday{Target: "B"})
	assert.True(t, reply.Ephemeral)
	assert.True(t, strings.HasPrefix(reply.Content, "Something went wrong."))
	assert.Contains(t, reply.Content, "incident")
	assert.NotContains(t, reply.Content, "gateway exploded")
}

func TestDispatch_NilCommand(t *testing.T) {
	f := newFixture(t, refDate)

	reply := f.run("A", nil)
	assert.True(t, strings.HasPrefix(reply.Content, "Something went wrong."))
}

func TestDispatch_Localized(t *testing.T) {
	f := newFixture(t, refDate)

	reply := f.dispatcher.Dispatch(context.Background(), bot.Invocation{
		GuildID: guildID, UserID: "A", Locale: "fr", Command: bot.RemoveBirthday{},
	})
	assert.Equal(t, "Vous n'avez aucun anniversaire à supprimer.", reply.Content)
}

func TestDefinitions(t *testing.T) {
	defs := bot.Definitions()
	require.Len(t, defs, 5)

	admin := 0
	for _, def := range defs {
		assert.NotEmpty(t, def.Description, def.Name)
		if def.AdminOnly {
			admin++
			assert.Equal(t, config.CmdBirthdayChan, def.Name)
		}
	}
	assert.Equal(t, 1, admin)

	year := defs[0].Options[2]
	assert.Equal(t, config.OptYear, year.Name)
	assert.Equal(t, config.MinBirthYear, year.Min)
	assert.Equal(t, time.Now().Year(), year.Max)
}

// TestDispatch_LookupOutlivesContext shows another member's birthday while the
// directory is still busy when the context ends.
// Scenario: the reply names the member by mention instead of waiting.
func TestDispatch_LookupOutlivesContext(t *testing.T) {
	f := newFixture(t, refDate)
	f.store.SetBirthday(guildID, "B", engine.Birthday{Month: 1, Day: 1})

	release := make(chan time.Time)
	defer close(release)
	f.directory.On("DisplayName", mock.Anything, guildID, "B").WaitUntil(release).Return("Bob", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	reply := f.dispatcher.Dispatch(ctx, bot.Invocation{
		GuildID: guildID,
		UserID:  "A",
		Locale:  "en",
		Command: bot.ShowBirthday{Target: "B"},
	})
	assert.False(t, reply.Ephemeral)
	assert.Contains(t, reply.Content, "<@B>")
	assert.NotContains(t, reply.Content, "Bob")
}
