// Package app wires the store, the bot core, Discord, the scheduler and the feed server.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/sync/errgroup"

	"github.com/FP2003/discord-birthday-bot/internal/announcer"
	"github.com/FP2003/discord-birthday-bot/internal/bot"
	"github.com/FP2003/discord-birthday-bot/internal/config"
	"github.com/FP2003/discord-birthday-bot/internal/discord"
	"github.com/FP2003/discord-birthday-bot/internal/engine"
	"github.com/FP2003/discord-birthday-bot/internal/i18n"
	"github.com/FP2003/discord-birthday-bot/internal/server"
	"github.com/FP2003/discord-birthday-bot/internal/store"
)

// App owns every long-running component of the bot.
type App struct {
	settings config.Settings

	store      *store.Store
	session    *discordgo.Session
	adapter    *discord.Adapter
	dispatcher *bot.Dispatcher
	announcer  *announcer.Announcer
	scheduler  *announcer.Scheduler
	feed       *server.FeedServer
}

// New builds the application. The token must already be resolved.
func New(settings config.Settings) (*App, error) {
	if settings.Token == "" {
		return nil, config.ErrTokenNotFound
	}

	catalog, err := i18n.New(settings.Language)
	if err != nil {
		return nil, err
	}

	clock := engine.RealClock{Location: settings.Location()}
	st := store.Open(settings.StorePath)

	session, err := discordgo.New(settings.BotToken())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrSessionCreate, err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds
	session.UserAgent = config.UserAgent

	adapter := discord.NewAdapter(session, session.State, nil, settings.GuildID)
	dispatcher, err := bot.NewDispatcher(st, adapter, catalog, clock)
	if err != nil {
		return nil, err
	}
	adapter.SetDispatcher(dispatcher)

	ann := &announcer.Announcer{
		Source:     st,
		Gateway:    adapter,
		Translator: catalog,
		Clock:      clock,
		Locale:     settings.Language,
	}
	sched, err := announcer.NewScheduler(settings.AnnounceCron, clock.Location, func(ctx context.Context) {
		ann.Run(ctx)
	})
	if err != nil {
		return nil, err
	}

	gen := &engine.Generator{
		Clock:           clock,
		FormatSummary:   catalog.Summary(settings.Language),
		ReminderTrigger: settings.FeedReminder,
	}

	return &App{
		settings:   settings,
		store:      st,
		session:    session,
		adapter:    adapter,
		dispatcher: dispatcher,
		announcer:  ann,
		scheduler:  sched,
		feed:       server.NewFeedServer(settings.FeedAddr, st, adapter, gen),
	}, nil
}

// Run connects to Discord and runs every component until ctx is cancelled or one fails.
func (a *App) Run(ctx context.Context) error {
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompApp,
		config.LogKeyPath, a.store.Path(),
		config.LogKeyTimezone, a.settings.Timezone,
		config.LogKeySchedule, a.settings.AnnounceCron,
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.runGateway(ctx)
	})
	g.Go(func() error {
		return a.scheduler.Run(ctx)
	})
	g.Go(func() error {
		return a.feed.Start(ctx)
	})

	return g.Wait()
}

// runGateway holds the websocket session open until ctx is cancelled.
func (a *App) runGateway(ctx context.Context) error {
	removeReady := a.session.AddHandler(a.adapter.OnReady(ctx))
	removeInteraction := a.session.AddHandler(a.adapter.OnInteraction(ctx))
	defer removeReady()
	defer removeInteraction()

	if err := a.session.Open(); err != nil {
		return fmt.Errorf("%s: %w", config.ErrSessionOpen, err)
	}

	<-ctx.Done()
	slog.Info(config.MsgCtxCancel, config.LogKeyComponent, config.CompApp)
	return a.session.Close()
}
