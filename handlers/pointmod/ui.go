package pointmod

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"modbot/model"
	"modbot/moderation"

	"github.com/bwmarrin/discordgo"
)

const (
	approvePrefix = "pointban_approve:"
	declinePrefix = "pointban_decline:"
)

const (
	colorPending  = 0xf1c40f
	colorApproved = 0xe74c3c
	colorDeclined = 0x95a5a6
	colorInfo     = 0x5865F2
)

// ButtonAction is the action encoded in an approval button's custom ID.
type ButtonAction string

const (
	ActionApprove ButtonAction = "approve"
	ActionDecline ButtonAction = "decline"
)

// IsBanButton reports whether customID belongs to a point ban approval view.
func IsBanButton(customID string) bool {
	return strings.HasPrefix(customID, approvePrefix) || strings.HasPrefix(customID, declinePrefix)
}

// ParseBanButtonID splits "pointban_approve:<id>" or "pointban_decline:<id>".
func ParseBanButtonID(customID string) (ButtonAction, int64, bool) {
	var action ButtonAction
	var raw string
	switch {
	case strings.HasPrefix(customID, approvePrefix):
		action, raw = ActionApprove, strings.TrimPrefix(customID, approvePrefix)
	case strings.HasPrefix(customID, declinePrefix):
		action, raw = ActionDecline, strings.TrimPrefix(customID, declinePrefix)
	default:
		return "", 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, false
	}
	return action, id, true
}

// BuildApprovalButtons renders the Approve / Decline row for a pending ban.
func BuildApprovalButtons(banID int64, disabled bool) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Approve ban",
					Style:    discordgo.DangerButton,
					CustomID: fmt.Sprintf("%s%d", approvePrefix, banID),
					Disabled: disabled,
				},
				discordgo.Button{
					Label:    "Decline",
					Style:    discordgo.SecondaryButton,
					CustomID: fmt.Sprintf("%s%d", declinePrefix, banID),
					Disabled: disabled,
				},
			},
		},
	}
}

func approversText(ban *model.PendingBan) string {
	ids := ban.Approvers()
	if len(ids) == 0 {
		return "None yet"
	}
	mentions := make([]string, len(ids))
	for i, id := range ids {
		mentions[i] = fmt.Sprintf("<@%s>", id)
	}
	return strings.Join(mentions, ", ")
}

// BuildBanNoticeEmbed renders the approval notice for a ban in any state.
func BuildBanNoticeEmbed(ban *model.PendingBan) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "Point ban pending approval",
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: fmt.Sprintf("<@%s>", ban.UserID), Inline: true},
			{Name: "Points", Value: fmt.Sprintf("%d/%d", ban.PointsAtCreation, moderation.PointCap), Inline: true},
			{Name: "Approvals", Value: fmt.Sprintf("%d/2: %s", len(ban.Approvers()), approversText(ban)), Inline: true},
			{Name: "Reason", Value: ban.Reason},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Ban request #%d", ban.ID),
		},
		Timestamp: ban.CreatedAt.Format(time.RFC3339),
		Color:     colorPending,
	}

	switch ban.Status {
	case model.PendingBanApproved:
		embed.Title = "Point ban approved"
		embed.Color = colorApproved
	case model.PendingBanCancelled:
		embed.Title = "Point ban declined"
		embed.Color = colorDeclined
		if ban.DeclinedBy.Valid {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:  "Declined by",
				Value: fmt.Sprintf("<@%s>", ban.DeclinedBy.String),
			})
		}
	default:
		embed.Description = "Two different moderators with Ban Members must approve. Declining resets the member's points."
	}
	return embed
}

// DescribeAddResult is the moderator-facing summary of an add.
func DescribeAddResult(userID string, amount int, res moderation.AddResult) string {
	msg := fmt.Sprintf("✅ Added %d point(s) to <@%s>. Total this month: %d/%d.", res.Added, userID, res.Points, moderation.PointCap)
	if res.Added < amount {
		msg += fmt.Sprintf("\nℹ️ %d of the requested %d point(s) were not applied because of the %d point cap.", amount-res.Added, amount, moderation.PointCap)
	}
	switch res.Trigger {
	case moderation.TriggerCreated:
		msg += "\n⚠️ The point threshold was reached and a ban request was opened for approval."
	case moderation.TriggerAlreadyPending:
		msg += "\nℹ️ A ban request is already pending for this member."
	}
	return msg
}

// DescribeApproval turns an approval result into plain language.
func DescribeApproval(userID string, out moderation.ApprovalOutcome) string {
	switch out.Result {
	case moderation.ApprovalNotPending:
		return fmt.Sprintf("ℹ️ There is no pending point ban for <@%s>. It may already be resolved.", userID)
	case moderation.ApprovalAlreadyApproved:
		return "ℹ️ You have already approved this ban. A different moderator has to give the second approval."
	case moderation.ApprovalPartial:
		return fmt.Sprintf("✅ Approval recorded for <@%s> (1/2). One more moderator must approve.", userID)
	case moderation.ApprovalFinal:
		return fmt.Sprintf("🔨 Second approval recorded. <@%s> is being banned.", userID)
	}
	return "Unknown result."
}

// DescribeDecline turns a decline result into plain language.
func DescribeDecline(userID string, out moderation.DeclineOutcome) string {
	switch out.Result {
	case moderation.DeclineNotPending:
		return fmt.Sprintf("ℹ️ There is no pending point ban for <@%s>. It may already be resolved.", userID)
	case moderation.DeclineDeclined:
		return fmt.Sprintf("✅ Point ban for <@%s> declined. Points set to %d.", userID, out.Points)
	}
	return "Unknown result."
}

// BuildPointsEmbed renders /points.
func BuildPointsEmbed(userID string, points int, period string, pending *model.PendingBan) *discordgo.MessageEmbed {
	status := "No pending ban"
	if pending != nil {
		status = fmt.Sprintf("Pending #%d, approvals %d/2: %s", pending.ID, len(pending.Approvers()), approversText(pending))
	}
	return &discordgo.MessageEmbed{
		Title: "Moderation points",
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: fmt.Sprintf("<@%s>", userID), Inline: true},
			{Name: "Points", Value: fmt.Sprintf("%d/%d", points, moderation.PointCap), Inline: true},
			{Name: "Period", Value: period, Inline: true},
			{Name: "Ban status", Value: status},
		},
		Color: colorInfo,
	}
}

// BuildPendingListEmbed renders /pending-bans.
func BuildPendingListEmbed(bans []model.PendingBan, now time.Time) *discordgo.MessageEmbed {
	var builder strings.Builder
	if len(bans) == 0 {
		builder.WriteString("No point bans are waiting for approval.")
	}
	for i, ban := range bans {
		if i == 25 {
			builder.WriteString(fmt.Sprintf("…and %d more\n", len(bans)-i))
			break
		}
		builder.WriteString(fmt.Sprintf("**#%d** <@%s>: %d/2 approvals, opened %s ago\n",
			ban.ID, ban.UserID, len(ban.Approvers()), now.Sub(ban.CreatedAt).Truncate(time.Minute)))
	}
	return &discordgo.MessageEmbed{
		Title:       "Pending point bans",
		Description: builder.String(),
		Color:       colorPending,
	}
}

// BuildCasesEmbed renders /point-cases.
func BuildCasesEmbed(userID string, entries []model.CaseLogEntry) *discordgo.MessageEmbed {
	var builder strings.Builder
	if len(entries) == 0 {
		builder.WriteString("No cases recorded.")
	}
	for _, c := range entries {
		builder.WriteString(fmt.Sprintf("`%s` **%s** by <@%s>: %s\n", c.CreatedAt.Format("2006-01-02 15:04"), c.Action, c.ModeratorID, c.Reason))
	}
	return &discordgo.MessageEmbed{
		Title:       "Moderation cases",
		Description: fmt.Sprintf("<@%s>\n\n%s", userID, builder.String()),
		Color:       colorInfo,
	}
}

// BuildBanDMEmbed is sent to the member right before the ban.
func BuildBanDMEmbed(guildName, reason string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "You have been banned",
		Description: fmt.Sprintf("You were banned from **%s**.", guildName),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Reason", Value: reason},
		},
		Timestamp: time.Now().Format(time.RFC3339),
		Color:     colorApproved,
	}
}
