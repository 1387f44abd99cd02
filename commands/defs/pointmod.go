package defs

import "github.com/bwmarrin/discordgo"

var (
	moderateMembers int64 = discordgo.PermissionModerateMembers
	banMembers      int64 = discordgo.PermissionBanMembers
	administrator   int64 = discordgo.PermissionAdministrator
	minPointAmount        = 1.0
	zeroPoints            = 0.0
)

var AddPoints = &discordgo.ApplicationCommand{
	Name:                     "add-points",
	Description:              "Add moderation points to a member",
	DefaultMemberPermissions: &moderateMembers,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "Member to add points to",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "amount",
			Description: "Points to add",
			Required:    true,
			MinValue:    &minPointAmount,
			MaxValue:    10000,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "reason",
			Description: "Why the points are added",
			Required:    false,
			MaxLength:   500,
		},
	},
}

var Points = &discordgo.ApplicationCommand{
	Name:        "points",
	Description: "Show a member's moderation points for this month",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "Member to look up, defaults to you",
			Required:    false,
		},
	},
}

var PendingBans = &discordgo.ApplicationCommand{
	Name:                     "pending-bans",
	Description:              "List point bans waiting for approval",
	DefaultMemberPermissions: &moderateMembers,
}

var ApproveBan = &discordgo.ApplicationCommand{
	Name:                     "approve-ban",
	Description:              "Approve a member's pending point ban",
	DefaultMemberPermissions: &banMembers,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "Member with a pending point ban",
			Required:    true,
		},
	},
}

var DeclineBan = &discordgo.ApplicationCommand{
	Name:                     "decline-ban",
	Description:              "Decline a member's pending point ban",
	DefaultMemberPermissions: &banMembers,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "Member with a pending point ban",
			Required:    true,
		},
	},
}

var SetPoints = &discordgo.ApplicationCommand{
	Name:                     "set-points",
	Description:              "Overwrite a member's moderation points",
	DefaultMemberPermissions: &administrator,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "Member to update",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "amount",
			Description: "New point balance",
			Required:    true,
			MinValue:    &zeroPoints,
			MaxValue:    10000,
		},
	},
}

var PointFallback = &discordgo.ApplicationCommand{
	Name:                     "point-fallback",
	Description:              "Set the balance a declined point ban resets to",
	DefaultMemberPermissions: &administrator,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "amount",
			Description: "Fallback points, below the ban threshold",
			Required:    true,
			MinValue:    &zeroPoints,
			MaxValue:    99,
		},
	},
}

var PointCases = &discordgo.ApplicationCommand{
	Name:                     "point-cases",
	Description:              "Show a member's latest moderation cases",
	DefaultMemberPermissions: &moderateMembers,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "Member to look up",
			Required:    true,
		},
	},
}

var ModbotStatus = &discordgo.ApplicationCommand{
	Name:                     "modbot-status",
	Description:              "Show host and database status",
	DefaultMemberPermissions: &administrator,
}

var ReloadConfig = &discordgo.ApplicationCommand{
	Name:                     "reload-config",
	Description:              "Reload the bot configuration and refresh commands",
	DefaultMemberPermissions: &administrator,
}
