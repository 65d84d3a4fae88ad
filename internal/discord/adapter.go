// Package discord is the only package that talks to Discord. It turns gateway
// interactions into dispatcher invocations and implements the lookups the core needs.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/FP2003/discord-birthday-bot/internal/announcer"
	"github.com/FP2003/discord-birthday-bot/internal/bot"
	"github.com/FP2003/discord-birthday-bot/internal/config"
)

// Session is the subset of *discordgo.Session used by the adapter.
type Session interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Dispatcher handles a parsed invocation.
type Dispatcher interface {
	Dispatch(ctx context.Context, inv bot.Invocation) bot.Reply
}

// Adapter bridges a Discord session and the bot core.
type Adapter struct {
	session    Session
	state      *discordgo.State // optional cache consulted before REST lookups
	dispatcher Dispatcher
	guildID    string // empty: commands are published globally
}

var (
	_ bot.Directory     = (*Adapter)(nil)
	_ announcer.Gateway = (*Adapter)(nil)
)

// NewAdapter wraps session. state may be nil.
func NewAdapter(session Session, state *discordgo.State, dispatcher Dispatcher, guildID string) *Adapter {
	return &Adapter{session: session, state: state, dispatcher: dispatcher, guildID: guildID}
}

// SetDispatcher completes the wiring when the dispatcher needs the adapter as its Directory.
func (a *Adapter) SetDispatcher(d Dispatcher) {
	a.dispatcher = d
}

// RegisterCommands publishes the command table, replacing whatever was registered before.
func (a *Adapter) RegisterCommands(ctx context.Context, appID string) error {
	cmds := ApplicationCommands(bot.Definitions())
	if _, err := a.session.ApplicationCommandBulkOverwrite(appID, a.guildID, cmds, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("%s: %w", config.ErrCommandRegister, err)
	}

	scope := a.guildID
	if scope == "" {
		scope = "global"
	}
	slog.Info(config.MsgCommandsSynced,
		config.LogKeyComponent, config.CompDiscord,
		config.LogKeyScope, scope,
		config.LogKeyCount, len(cmds),
	)
	return nil
}

// OnReady is registered with discordgo.Session.AddHandler.
func (a *Adapter) OnReady(ctx context.Context) func(*discordgo.Session, *discordgo.Ready) {
	return func(_ *discordgo.Session, r *discordgo.Ready) {
		slog.Info(config.MsgGatewayReady,
			config.LogKeyComponent, config.CompDiscord,
			config.LogKeyUser, r.User.Username,
			config.LogKeyGuilds, len(r.Guilds),
		)
		regCtx, cancel := context.WithTimeout(ctx, config.LookupTimeout)
		defer cancel()
		if err := a.RegisterCommands(regCtx, r.User.ID); err != nil {
			slog.Error(config.ErrCommandRegister,
				config.LogKeyComponent, config.CompDiscord,
				config.LogKeyError, err,
			)
		}
	}
}

// OnInteraction is registered with discordgo.Session.AddHandler.
func (a *Adapter) OnInteraction(ctx context.Context) func(*discordgo.Session, *discordgo.InteractionCreate) {
	return func(_ *discordgo.Session, ic *discordgo.InteractionCreate) {
		if ic.Type != discordgo.InteractionApplicationCommand {
			return
		}
		if err := a.Handle(ctx, ic.Interaction); err != nil {
			slog.Error(config.ErrRespond,
				config.LogKeyComponent, config.CompDiscord,
				config.LogKeyGuild, ic.GuildID,
				config.LogKeyError, err,
			)
		}
	}
}

// Handle dispatches one interaction and responds to it exactly once.
// Dispatch runs under config.ReplyBudget. Replies never ping anyone.
func (a *Adapter) Handle(ctx context.Context, i *discordgo.Interaction) error {
	inv, err := ToInvocation(i)
	if err != nil {
		slog.Warn(config.ErrCommandParse,
			config.LogKeyComponent, config.CompDiscord,
			config.LogKeyError, err,
		)
		inv.Command = nil
	}

	// The initial response must reach Discord within 3s or the token is dropped.
	dispatchCtx, cancel := context.WithTimeout(ctx, config.ReplyBudget)
	reply := a.dispatcher.Dispatch(dispatchCtx, inv)
	cancel()

	data := &discordgo.InteractionResponseData{
		Content:         reply.Content,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
	if reply.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return a.session.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

// DisplayName implements bot.Directory.
func (a *Adapter) DisplayName(ctx context.Context, guildID, userID string) (string, error) {
	p, err := a.ResolveMember(ctx, guildID, userID)
	if err != nil {
		return "", err
	}
	return p.DisplayName, nil
}

// ResolveMember implements announcer.Gateway.
func (a *Adapter) ResolveMember(ctx context.Context, guildID, userID string) (announcer.Profile, error) {
	var m *discordgo.Member
	if a.state != nil {
		m, _ = a.state.Member(guildID, userID)
	}
	if m == nil {
		ctx, cancel := context.WithTimeout(ctx, config.LookupTimeout)
		defer cancel()

		var err error
		m, err = a.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
		if err != nil {
			return announcer.Profile{}, fmt.Errorf("%s: %w", config.ErrMemberResolve, err)
		}
	}
	if m == nil || m.User == nil {
		return announcer.Profile{}, errors.New(config.ErrMemberResolve)
	}
	return announcer.Profile{UserID: m.User.ID, DisplayName: memberName(m)}, nil
}

// memberName prefers the server nickname, then the global display name, then the username.
func memberName(m *discordgo.Member) string {
	switch {
	case m.Nick != "":
		return m.Nick
	case m.User.GlobalName != "":
		return m.User.GlobalName
	default:
		return m.User.Username
	}
}

// ResolveChannel implements announcer.Gateway.
func (a *Adapter) ResolveChannel(ctx context.Context, channelID string) error {
	if a.state != nil {
		if ch, err := a.state.Channel(channelID); err == nil && ch != nil {
			return nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, config.LookupTimeout)
	defer cancel()
	if _, err := a.session.Channel(channelID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("%s: %w", config.ErrChannelResolve, err)
	}
	return nil
}

// SendMessage implements announcer.Gateway. Announcements may ping users, nothing else.
func (a *Adapter) SendMessage(ctx context.Context, channelID, content string) error {
	ctx, cancel := context.WithTimeout(ctx, config.LookupTimeout)
	defer cancel()

	_, err := a.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: content,
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrAnnounceSend, err)
	}
	return nil
}
