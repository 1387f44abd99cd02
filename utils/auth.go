package utils

import "github.com/bwmarrin/discordgo"

// Permission levels, lowest first.
const (
	GuestPermission     = "guest"
	ModeratorPermission = "moderator"
	BanPermission       = "ban"
	AdminPermission     = "admin"
)

var permissionRank = map[string]int{
	GuestPermission:     0,
	ModeratorPermission: 1,
	BanPermission:       2,
	AdminPermission:     3,
}

// CheckPermission returns the highest point moderation level granted by the member's resolved permissions.
func CheckPermission(member *discordgo.Member) string {
	if member == nil {
		return GuestPermission
	}
	perms := member.Permissions

	switch {
	case perms&discordgo.PermissionAdministrator != 0:
		return AdminPermission
	case perms&discordgo.PermissionBanMembers != 0:
		return BanPermission
	case perms&discordgo.PermissionModerateMembers != 0:
		return ModeratorPermission
	}
	return GuestPermission
}

// HasPermission reports whether the member holds at least the required level.
func HasPermission(member *discordgo.Member, required string) bool {
	return permissionRank[CheckPermission(member)] >= permissionRank[required]
}
