// Package bot maps slash command invocations to handlers and renders their replies.
// It performs no network I/O itself: display names come from a Directory.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/FP2003/discord-birthday-bot/internal/config"
	"github.com/FP2003/discord-birthday-bot/internal/engine"
)

// Invocation is an inbound command with its caller context.
type Invocation struct {
	GuildID string
	UserID  string
	Locale  string
	IsAdmin bool
	Command Command
}

// Reply is the single response to an Invocation.
type Reply struct {
	Content   string
	Ephemeral bool
}

// Store is the subset of store.Store the handlers need.
type Store interface {
	engine.MemberSource
	SetBirthday(guildID, memberID string, b engine.Birthday)
	RemoveBirthday(guildID, memberID string) bool
	SetAnnouncementChannel(guildID, channelID string)
	Birthday(guildID, memberID string) (engine.Birthday, bool)
}

// Directory resolves member display names.
type Directory interface {
	DisplayName(ctx context.Context, guildID, userID string) (string, error)
}

// Translator renders localized reply templates.
type Translator interface {
	T(locale, key string, data map[string]any) string
}

type handlerFunc func(ctx context.Context, inv Invocation) (Reply, error)

// Dispatcher routes invocations to their handler.
type Dispatcher struct {
	store     Store
	directory Directory
	tr        Translator
	clock     engine.Clock

	handlers  map[string]handlerFunc
	adminOnly map[string]bool
}

// NewDispatcher builds the handler table and checks it against Definitions.
func NewDispatcher(store Store, directory Directory, tr Translator, clock engine.Clock) (*Dispatcher, error) {
	d := &Dispatcher{
		store:     store,
		directory: directory,
		tr:        tr,
		clock:     clock,
		adminOnly: make(map[string]bool),
	}
	d.handlers = map[string]handlerFunc{
		config.CmdSetBirthday:    d.handleSetBirthday,
		config.CmdBirthday:       d.handleShowBirthday,
		config.CmdBirthdays:      d.handleListBirthdays,
		config.CmdRemoveBirthday: d.handleRemoveBirthday,
		config.CmdBirthdayChan:   d.handleSetChannel,
	}

	defs := Definitions()
	if err := checkTable(defs, d.handlers); err != nil {
		return nil, err
	}
	for _, def := range defs {
		d.adminOnly[def.Name] = def.AdminOnly
	}
	return d, nil
}

// checkTable fails when a published command has no handler or a handler is not published.
func checkTable(defs []Definition, handlers map[string]handlerFunc) error {
	var problems []string
	published := make(map[string]bool, len(defs))
	for _, def := range defs {
		published[def.Name] = true
		if _, ok := handlers[def.Name]; !ok {
			problems = append(problems, fmt.Sprintf("%s: %s", config.ErrHandlerMissing, def.Name))
		}
	}
	for name := range handlers {
		if !published[name] {
			problems = append(problems, fmt.Sprintf("%s: %s", config.ErrHandlerOrphan, name))
		}
	}
	if len(problems) > 0 {
		slices.Sort(problems)
		return fmt.Errorf("%s: %s", config.ErrCommandTable, strings.Join(problems, "; "))
	}
	return nil
}

// Dispatch runs the handler for inv and always returns exactly one Reply.
// Handler errors and panics are logged with an incident id; the member only
// sees a generic message carrying that id.
func (d *Dispatcher) Dispatch(ctx context.Context, inv Invocation) (reply Reply) {
	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompBot),
		slog.String(config.LogKeyGuild, inv.GuildID),
		slog.String(config.LogKeyMember, inv.UserID),
	)

	defer func() {
		if r := recover(); r != nil {
			reply = d.failure(log, inv, fmt.Errorf("%s: %v", config.ErrHandlerPanic, r))
		}
	}()

	if inv.Command == nil {
		return d.failure(log, inv, errors.New(config.ErrUnknownCommand))
	}
	name := inv.Command.Name()
	log = log.With(slog.String(config.LogKeyCommand, name))

	handler, ok := d.handlers[name]
	if !ok {
		return d.failure(log, inv, fmt.Errorf("%s: %s", config.ErrUnknownCommand, name))
	}
	if inv.GuildID == "" {
		log.Info(config.MsgCommandRejected, config.LogKeyReason, config.ErrNotInGuild)
		return d.reject(inv, config.TKeyErrGuildOnly, nil)
	}
	if d.adminOnly[name] && !inv.IsAdmin {
		log.Info(config.MsgCommandRejected, config.LogKeyReason, config.TKeyErrAdminOnly)
		return d.reject(inv, config.TKeyErrAdminOnly, nil)
	}

	reply, err := handler(ctx, inv)
	if err != nil {
		return d.failure(log, inv, fmt.Errorf("%s: %w", config.ErrHandlerFailed, err))
	}
	log.Debug(config.MsgCommandHandled)
	return reply
}

func (d *Dispatcher) failure(log *slog.Logger, inv Invocation, err error) Reply {
	incident := uuid.NewString()
	log.Error(config.ErrHandlerFailed,
		config.LogKeyIncident, incident,
		config.LogKeyError, err,
	)
	return Reply{
		Content:   d.tr.T(inv.Locale, config.TKeyErrGeneric, map[string]any{"Incident": incident}),
		Ephemeral: true,
	}
}

func (d *Dispatcher) reject(inv Invocation, key string, data map[string]any) Reply {
	return Reply{Content: d.tr.T(inv.Locale, key, data), Ephemeral: true}
}

func (d *Dispatcher) say(inv Invocation, key string, data map[string]any) Reply {
	return Reply{Content: d.tr.T(inv.Locale, key, data)}
}

// displayName resolves one member, see displayNames.
func (d *Dispatcher) displayName(ctx context.Context, guildID, userID string) (string, error) {
	names, err := d.displayNames(ctx, guildID, []string{userID})
	if err != nil {
		return "", err
	}
	return names[0], nil
}

// displayNames resolves members concurrently. A failed lookup, or one still
// running when ctx ends, falls back to a mention so the reply is never held back.
// A panicking lookup is returned as an error.
func (d *Dispatcher) displayNames(ctx context.Context, guildID string, userIDs []string) ([]string, error) {
	var mu sync.Mutex
	names := make([]string, len(userIDs))
	for i, id := range userIDs {
		names[i] = fmt.Sprintf(config.FormatUserMention, id)
	}
	if d.directory == nil || len(userIDs) == 0 {
		return names, nil
	}

	var g errgroup.Group
	for i, id := range userIDs {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%s: %v", config.ErrHandlerPanic, r)
				}
			}()

			name, lookupErr := d.directory.DisplayName(ctx, guildID, id)
			if lookupErr != nil || name == "" {
				slog.Debug(config.ErrMemberResolve,
					config.LogKeyComponent, config.CompBot,
					config.LogKeyGuild, guildID,
					config.LogKeyMember, id,
					config.LogKeyError, lookupErr,
				)
				return nil
			}
			mu.Lock()
			names[i] = name
			mu.Unlock()
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		slog.Warn(config.MsgLookupBudget,
			config.LogKeyComponent, config.CompBot,
			config.LogKeyGuild, guildID,
			config.LogKeyCount, len(userIDs),
		)
	}

	mu.Lock()
	defer mu.Unlock()
	return slices.Clone(names), nil
}
