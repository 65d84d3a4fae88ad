package bot

import (
	"time"

	"github.com/FP2003/discord-birthday-bot/internal/config"
)

// Command is one of the typed slash command variants below.
type Command interface {
	Name() string
}

// SetBirthday registers the invoking member's birthday.
type SetBirthday struct {
	Month int
	Day   int
	Year  *int
}

// ShowBirthday looks up a birthday. An empty Target means the invoking member.
type ShowBirthday struct {
	Target string
}

// ListBirthdays lists the upcoming birthdays of the server.
type ListBirthdays struct{}

// RemoveBirthday deletes the invoking member's birthday.
type RemoveBirthday struct{}

// SetChannel configures the announcement channel. Administrators only.
type SetChannel struct {
	ChannelID string
}

func (SetBirthday) Name() string    { return config.CmdSetBirthday }
func (ShowBirthday) Name() string   { return config.CmdBirthday }
func (ListBirthdays) Name() string  { return config.CmdBirthdays }
func (RemoveBirthday) Name() string { return config.CmdRemoveBirthday }
func (SetChannel) Name() string     { return config.CmdBirthdayChan }

// OptionType is the platform-neutral kind of a command option.
type OptionType int

const (
	OptionInteger OptionType = iota
	OptionUser
	OptionChannel
)

// Option describes a command parameter. Min and Max only apply to integers.
type Option struct {
	Name        string
	Description string
	Type        OptionType
	Required    bool
	Min         int
	Max         int
}

// Definition is one entry of the published command table.
type Definition struct {
	Name        string
	Description string
	Options     []Option
	AdminOnly   bool
}

// Definitions returns the command table published at startup.
// The year bound is the current year at publication; ValidateBirthday rechecks it.
func Definitions() []Definition {
	return []Definition{
		{
			Name:        config.CmdSetBirthday,
			Description: config.DescSetBirthday,
			Options: []Option{
				{Name: config.OptMonth, Description: config.DescOptMonth, Type: OptionInteger, Required: true, Min: config.MinMonth, Max: config.MaxMonth},
				{Name: config.OptDay, Description: config.DescOptDay, Type: OptionInteger, Required: true, Min: config.MinDay, Max: config.MaxDay},
				{Name: config.OptYear, Description: config.DescOptYear, Type: OptionInteger, Min: config.MinBirthYear, Max: time.Now().Year()},
			},
		},
		{
			Name:        config.CmdBirthday,
			Description: config.DescBirthday,
			Options: []Option{
				{Name: config.OptUser, Description: config.DescOptUser, Type: OptionUser},
			},
		},
		{
			Name:        config.CmdBirthdays,
			Description: config.DescBirthdays,
		},
		{
			Name:        config.CmdRemoveBirthday,
			Description: config.DescRemoveBirthday,
		},
		{
			Name:        config.CmdBirthdayChan,
			Description: config.DescBirthdayChan,
			Options: []Option{
				{Name: config.OptChannel, Description: config.DescOptChannel, Type: OptionChannel, Required: true},
			},
			AdminOnly: true,
		},
	}
}
