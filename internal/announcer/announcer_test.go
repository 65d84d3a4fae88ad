package announcer_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FP2003/discord-birthday-bot/internal/announcer"
	"github.com/FP2003/discord-birthday-bot/internal/config"
	"github.com/FP2003/discord-birthday-bot/internal/engine"
	"github.com/FP2003/discord-birthday-bot/internal/i18n"
	"github.com/FP2003/discord-birthday-bot/internal/store"
)

// -----------------------------------------------------------------------------
// Mocks
// -----------------------------------------------------------------------------

// MockGateway simulates Discord using `testify/mock`.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) ResolveChannel(ctx context.Context, channelID string) error {
	return m.Called(ctx, channelID).Error(0)
}

func (m *MockGateway) ResolveMember(ctx context.Context, guildID, userID string) (announcer.Profile, error) {
	args := m.Called(ctx, guildID, userID)
	return args.Get(0).(announcer.Profile), args.Error(1)
}

func (m *MockGateway) SendMessage(ctx context.Context, channelID, content string) error {
	return m.Called(ctx, channelID, content).Error(0)
}

// MockClock controls time for deterministic testing.
type MockClock struct {
	CurrentTime time.Time
}

func (m MockClock) Now() time.Time {
	return m.CurrentTime
}

var today = time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

func newAnnouncer(t *testing.T, st *store.Store, gw *MockGateway) *announcer.Announcer {
	t.Helper()
	catalog, err := i18n.New(config.DefaultLanguage)
	require.NoError(t, err)

	return &announcer.Announcer{
		Source:     st,
		Gateway:    gw,
		Translator: catalog,
		Clock:      MockClock{CurrentTime: today},
		Locale:     config.DefaultLanguage,
	}
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
	return store.Open(filepath.Join(t.TempDir(), "birthdays.json"))
}

// -----------------------------------------------------------------------------
// Test Cases
// -----------------------------------------------------------------------------

func TestRun_OneAnnouncementPerMatch(t *testing.T) {
	// Scenario: G has a channel and member A matches today; G2 has a match but no channel.
	st := newStore(t)
	st.SetBirthday("G", "A", engine.Birthday{Month: 6, Day: 15, Year: engine.IntPtr(1990)})
	st.SetBirthday("G", "B", engine.Birthday{Month: 6, Day: 16})
	st.SetAnnouncementChannel("G", "chan")
	st.SetBirthday("G2", "C", engine.Birthday{Month: 6, Day: 15})

	gw := &MockGateway{}
	gw.On("ResolveChannel", mock.Anything, "chan").Return(nil).Once()
	gw.On("ResolveMember", mock.Anything, "G", "A").Return(announcer.Profile{UserID: "A", DisplayName: "Alice"}, nil).Once()
	gw.On("SendMessage", mock.Anything, "chan", "Happy birthday <@A>! Alice turns 34 today!").Return(nil).Once()

	report := newAnnouncer(t, st, gw).Run(context.Background())

	assert.Equal(t, announcer.Report{Guilds: 1, Sent: 1, Skipped: 1}, report)
	gw.AssertExpectations(t)
	gw.AssertNumberOfCalls(t, "SendMessage", 1)
}

func TestRun_NoChannelNoMessage(t *testing.T) {
	st := newStore(t)
	st.SetBirthday("G", "A", engine.Birthday{Month: 6, Day: 15})

	gw := &MockGateway{}
	report := newAnnouncer(t, st, gw).Run(context.Background())

	assert.Zero(t, report.Sent)
	gw.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything, mock.Anything)
	gw.AssertNotCalled(t, "ResolveChannel", mock.Anything, mock.Anything)
}

func TestRun_UnresolvableChannelSkipsGuildOnly(t *testing.T) {
	st := newStore(t)
	st.SetBirthday("G1", "A", engine.Birthday{Month: 6, Day: 15})
	st.SetAnnouncementChannel("G1", "deleted")
	st.SetBirthday("G2", "B", engine.Birthday{Month: 6, Day: 15})
	st.SetAnnouncementChannel("G2", "ok")

	gw := &MockGateway{}
	gw.On("ResolveChannel", mock.Anything, "deleted").Return(errors.New("404 Unknown Channel"))
	gw.On("ResolveChannel", mock.Anything, "ok").Return(nil)
	gw.On("ResolveMember", mock.Anything, "G2", "B").Return(announcer.Profile{UserID: "B", DisplayName: "Bob"}, nil)
	gw.On("SendMessage", mock.Anything, "ok", mock.Anything).Return(nil)

	report := newAnnouncer(t, st, gw).Run(context.Background())

	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.Skipped)
	gw.AssertNotCalled(t, "ResolveMember", mock.Anything, "G1", "A")
}

func TestRun_MemberFailuresAreIsolated(t *testing.T) {
	st := newStore(t)
	st.SetBirthday("G", "gone", engine.Birthday{Month: 6, Day: 15})
	st.SetBirthday("G", "flaky", engine.Birthday{Month: 6, Day: 15})
	st.SetBirthday("G", "ok", engine.Birthday{Month: 6, Day: 15})
	st.SetAnnouncementChannel("G", "chan")

	gw := &MockGateway{}
	gw.On("ResolveChannel", mock.Anything, "chan").Return(nil)
	gw.On("ResolveMember", mock.Anything, "G", "gone").Return(announcer.Profile{}, errors.New("unknown member"))
	gw.On("ResolveMember", mock.Anything, "G", "flaky").Return(announcer.Profile{UserID: "flaky", DisplayName: "Flaky"}, nil)
	gw.On("ResolveMember", mock.Anything, "G", "ok").Return(announcer.Profile{UserID: "ok", DisplayName: "Okay"}, nil)
	gw.On("SendMessage", mock.Anything, "chan", "Happy birthday <@flaky>! Everyone wish Flaky a great day!").Return(errors.New("rate limited"))
	gw.On("SendMessage", mock.Anything, "chan", "Happy birthday <@ok>! Everyone wish Okay a great day!").Return(nil)

	report := newAnnouncer(t, st, gw).Run(context.Background())

	assert.Equal(t, announcer.Report{Guilds: 1, Sent: 1, Failed: 2}, report)
	gw.AssertExpectations(t)
}

func TestRun_PanicInOneGuildDoesNotStopOthers(t *testing.T) {
	st := newStore(t)
	st.SetBirthday("G1", "A", engine.Birthday{Month: 6, Day: 15})
	st.SetAnnouncementChannel("G1", "boom")
	st.SetBirthday("G2", "B", engine.Birthday{Month: 6, Day: 15})
	st.SetAnnouncementChannel("G2", "ok")

	gw := &MockGateway{}
	gw.On("ResolveChannel", mock.Anything, "boom").Run(func(mock.Arguments) { panic("nil session") })
	gw.On("ResolveChannel", mock.Anything, "ok").Return(nil)
	gw.On("ResolveMember", mock.Anything, "G2", "B").Return(announcer.Profile{UserID: "B", DisplayName: "Bob"}, nil)
	gw.On("SendMessage", mock.Anything, "ok", mock.Anything).Return(nil)

	report := newAnnouncer(t, st, gw).Run(context.Background())

	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.Failed)
}

func TestRun_CancelledContext(t *testing.T) {
	st := newStore(t)
	st.SetBirthday("G", "A", engine.Birthday{Month: 6, Day: 15})
	st.SetAnnouncementChannel("G", "chan")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gw := &MockGateway{}
	report := newAnnouncer(t, st, gw).Run(ctx)

	assert.Equal(t, announcer.Report{}, report)
	gw.AssertNotCalled(t, "ResolveChannel", mock.Anything, mock.Anything)
}
