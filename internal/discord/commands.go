package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/FP2003/discord-birthday-bot/internal/bot"
	"github.com/FP2003/discord-birthday-bot/internal/config"
)

var adminPermission = int64(discordgo.PermissionAdministrator)

// ApplicationCommands converts the command table to Discord's schema.
// Admin commands are hidden from members without the Administrator permission.
func ApplicationCommands(defs []bot.Definition) []*discordgo.ApplicationCommand {
	dm := false
	cmds := make([]*discordgo.ApplicationCommand, 0, len(defs))

	for _, def := range defs {
		cmd := &discordgo.ApplicationCommand{
			Name:         def.Name,
			Description:  def.Description,
			DMPermission: &dm,
		}
		if def.AdminOnly {
			cmd.DefaultMemberPermissions = &adminPermission
		}

		for _, o := range def.Options {
			opt := &discordgo.ApplicationCommandOption{
				Name:        o.Name,
				Description: o.Description,
				Required:    o.Required,
			}
			switch o.Type {
			case bot.OptionInteger:
				opt.Type = discordgo.ApplicationCommandOptionInteger
				if o.Min != 0 || o.Max != 0 {
					minValue := float64(o.Min)
					opt.MinValue = &minValue
					opt.MaxValue = float64(o.Max)
				}
			case bot.OptionUser:
				opt.Type = discordgo.ApplicationCommandOptionUser
			case bot.OptionChannel:
				opt.Type = discordgo.ApplicationCommandOptionChannel
				opt.ChannelTypes = []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews}
			}
			cmd.Options = append(cmd.Options, opt)
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

// ToInvocation converts an application command interaction into a dispatcher invocation.
// An unknown command name yields an invocation with a nil Command so the dispatcher
// still produces the single reply.
func ToInvocation(i *discordgo.Interaction) (bot.Invocation, error) {
	inv := bot.Invocation{
		GuildID: i.GuildID,
		Locale:  string(i.Locale),
	}
	switch {
	case i.Member != nil && i.Member.User != nil:
		inv.UserID = i.Member.User.ID
		inv.IsAdmin = i.Member.Permissions&adminPermission != 0
	case i.User != nil:
		inv.UserID = i.User.ID
	}

	if i.Type != discordgo.InteractionApplicationCommand {
		return inv, fmt.Errorf("%s: interaction type %d", config.ErrCommandParse, i.Type)
	}
	data := i.ApplicationCommandData()

	opts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, o := range data.Options {
		opts[o.Name] = o
	}

	var err error
	switch data.Name {
	case config.CmdSetBirthday:
		var cmd bot.SetBirthday
		if cmd.Month, err = intOption(opts, config.OptMonth); err != nil {
			return inv, err
		}
		if cmd.Day, err = intOption(opts, config.OptDay); err != nil {
			return inv, err
		}
		if _, ok := opts[config.OptYear]; ok {
			year, err := intOption(opts, config.OptYear)
			if err != nil {
				return inv, err
			}
			cmd.Year = &year
		}
		inv.Command = cmd
	case config.CmdBirthday:
		inv.Command = bot.ShowBirthday{Target: idOption(opts, config.OptUser)}
	case config.CmdBirthdays:
		inv.Command = bot.ListBirthdays{}
	case config.CmdRemoveBirthday:
		inv.Command = bot.RemoveBirthday{}
	case config.CmdBirthdayChan:
		inv.Command = bot.SetChannel{ChannelID: idOption(opts, config.OptChannel)}
	}
	return inv, nil
}

func intOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) (int, error) {
	o, ok := opts[name]
	if !ok {
		return 0, fmt.Errorf("%s: missing %s", config.ErrCommandParse, name)
	}
	// The gateway decodes JSON numbers as float64.
	switch v := o.Value.(type) {
	case float64:
		return int(v), nil
	case int64:
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, fmt.Errorf("%s %s: %T", config.ErrOptionType, name, o.Value)
	}
}

// idOption reads a user or channel option, which Discord sends as a snowflake string.
func idOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	o, ok := opts[name]
	if !ok || o.Value == nil {
		return ""
	}
	return fmt.Sprint(o.Value)
}
