package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-vcard"

	"github.com/FP2003/discord-birthday-bot/internal/config"
)

// Generator renders a server's birthdays as iCalendar and vCard documents.
type Generator struct {
	Clock Clock // Interface for time mocking.

	// FormatSummary allows callers to inject localized strings into the event titles.
	FormatSummary func(name string, age int, yearKnown bool) string

	// ReminderTrigger is an ISO8601 duration (e.g. "-P1D"); empty disables alarms.
	ReminderTrigger string
}

// Calendar builds an iCalendar feed with events for the previous, current and next year.
func (g *Generator) Calendar(ctx context.Context, members []NamedMember) ([]byte, error) {
	cal := ical.NewCalendar()

	// Set standard iCalendar headers
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	// RFC 7986: Suggest a refresh interval
	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	// Birthdays are defined by the reference calendar date, UTC is only used for stamping.
	now := g.Clock.Now()
	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(now.UTC())

	for _, m := range members {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, e := range g.createEvents(m, now) {
			e.Props.Set(dtStampProp)
			cal.Children = append(cal.Children, e.Component)
		}
	}

	// An empty VCALENDAR still has to be a valid feed for subscribed clients.
	if len(cal.Children) == 0 {
		return []byte(config.StubVCalendar), nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}
	return buf.Bytes(), nil
}

// createEvents generates calendar events for CurrentYear-1, CurrentYear, and CurrentYear+1.
// It ensures no events are created before the person is born.
func (g *Generator) createEvents(m NamedMember, now time.Time) []*ical.Event {
	currentYear := now.Year()
	targetYears := []int{currentYear - 1, currentYear, currentYear + 1}
	loc := now.Location()
	b := m.Birthday

	var events []*ical.Event
	for _, y := range targetYears {
		if b.Year != nil && y < *b.Year {
			continue
		}

		event := ical.NewEvent()
		event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, m.UserID, y, config.ICalDomain))

		age := 0
		if b.Year != nil {
			age = y - *b.Year
		}

		summary := g.summary(m.Name, age, b.YearKnown())
		event.Props.SetText(config.PropSummary, summary)

		dtStartProp := ical.NewProp(config.PropDTStart)
		dtStartProp.SetDate(time.Date(y, time.Month(b.Month), b.Day, 0, 0, 0, 0, loc))
		event.Props.Set(dtStartProp)

		if g.ReminderTrigger != "" {
			addAlarm(event, g.ReminderTrigger, summary)
		}

		events = append(events, event)
	}
	return events
}

func (g *Generator) summary(name string, age int, yearKnown bool) string {
	if g.FormatSummary != nil {
		return g.FormatSummary(name, age, yearKnown)
	}
	switch {
	case !yearKnown:
		return fmt.Sprintf(config.FallbackSummary, name)
	case age == 0:
		return fmt.Sprintf(config.FallbackSummaryBirth, name)
	default:
		return fmt.Sprintf(config.FallbackSummaryAge, name, age)
	}
}

// addAlarm appends a DISPLAY alarm (notification) to the event.
func addAlarm(event *ical.Event, trigger, description string) {
	alarm := ical.NewComponent(config.ICalComponent)
	alarm.Props.SetText(config.PropAction, config.ICalAction)
	alarm.Props.SetText(config.PropDescription, description)

	// Set trigger manually to avoid "VALUE=TEXT" param
	triggerProp := ical.NewProp(config.PropTrigger)
	triggerProp.Value = trigger
	alarm.Props.Set(triggerProp)

	event.Children = append(event.Children, alarm)
}

// Contacts renders one vCard 4.0 per member. The card UID carries the member id
// so that ParseContacts can read the export back.
func (g *Generator) Contacts(members []NamedMember) ([]byte, error) {
	var buf bytes.Buffer
	enc := vcard.NewEncoder(&buf)

	for _, m := range members {
		card := make(vcard.Card)
		card.SetValue(vcard.FieldVersion, "4.0")
		card.SetValue(vcard.FieldUID, m.UserID)
		card.SetValue(vcard.FieldFormattedName, m.Name)
		card.SetValue(vcard.FieldBirthday, formatVCardDate(m.Birthday))

		if err := enc.Encode(card); err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrVCardEncode, err)
		}
	}
	return buf.Bytes(), nil
}

func formatVCardDate(b Birthday) string {
	if b.Year == nil {
		return time.Date(config.DefaultLeapYear, time.Month(b.Month), b.Day, 0, 0, 0, 0, time.UTC).
			Format(config.DateFormatNoYearB)
	}
	return time.Date(*b.Year, time.Month(b.Month), b.Day, 0, 0, 0, 0, time.UTC).
		Format(config.DateFormatFullBasic)
}

// ParseContacts reads a vCard stream and returns the cards that carry both a UID
// (the member id) and a parsable BDAY. Malformed cards are skipped and counted.
func ParseContacts(ctx context.Context, r io.Reader) ([]Member, int, error) {
	decoder := vcard.NewDecoder(r)
	var (
		members []Member
		skipped int
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// A broken card usually leaves the decoder unable to resync, stop here.
			return members, skipped, fmt.Errorf("%s: %w", config.ErrVCardParse, err)
		}

		uid := strings.TrimSpace(card.Value(vcard.FieldUID))
		bday := strings.TrimSpace(card.Value(vcard.FieldBirthday))
		if uid == "" || bday == "" {
			skipped++
			slog.Warn(config.MsgSkippedCard, config.LogKeyComponent, config.CompEngine)
			continue
		}

		b, err := parseDate(bday)
		if err != nil {
			skipped++
			slog.Debug(config.MsgSkippedDate,
				config.LogKeyComponent, config.CompEngine,
				config.LogKeyValue, bday)
			continue
		}

		members = append(members, Member{UserID: uid, Birthday: b})
	}
	return members, skipped, nil
}

// parseDate handles various vCard date formats.
func parseDate(value string) (Birthday, error) {
	// Full dates (Year known)
	formatsWithYear := []string{
		config.DateFormatFullDash,
		config.DateFormatFullBasic,
		config.DateFormatRFC3339,
		config.DateFormatFullT,
	}

	for _, f := range formatsWithYear {
		if t, err := time.Parse(f, value); err == nil {
			return Birthday{Month: int(t.Month()), Day: t.Day(), Year: IntPtr(t.Year())}, nil
		}
	}

	// Truncated dates (Year unknown) - vCard specific.
	// time.Parse uses year 0 which is a leap year, so --02-29 is accepted.
	formatsWithoutYear := []string{config.DateFormatNoYearD, config.DateFormatNoYearB}
	for _, f := range formatsWithoutYear {
		if t, err := time.Parse(f, value); err == nil {
			return Birthday{Month: int(t.Month()), Day: t.Day()}, nil
		}
	}

	return Birthday{}, errors.New(config.ErrDateParse)
}
