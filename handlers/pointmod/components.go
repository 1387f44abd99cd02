package pointmod

import (
	"context"
	"log"

	"modbot/bot"
	"modbot/model"
	"modbot/utils"

	"github.com/bwmarrin/discordgo"
)

const (
	resolvedMessage = "ℹ️ This ban request was already resolved."
	expiredMessage  = "⌛ This approval view expired after 48 hours without activity. The ban is still pending; use /approve-ban or /decline-ban."
)

type buttonState int

const (
	buttonActionable buttonState = iota
	buttonUnknown
	buttonResolved
	buttonExpired
)

// classifyBanButton decides what a click on a ban notice may do. ban is the record the
// button points at, current is the user's PENDING record and live reports whether the
// approval view is still open.
func classifyBanButton(guildID string, ban, current *model.PendingBan, live bool) buttonState {
	switch {
	case ban == nil || ban.GuildID != guildID:
		return buttonUnknown
	case ban.Status != model.PendingBanPending:
		return buttonResolved
	case current == nil || current.ID != ban.ID:
		// The button targets a specific request; it only acts while that request is the current one.
		return buttonResolved
	case !live:
		return buttonExpired
	}
	return buttonActionable
}

// HandleBanButton handles the Approve / Decline buttons on a pending ban notice.
func HandleBanButton(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	action, banID, ok := ParseBanButtonID(i.MessageComponentData().CustomID)
	if !ok {
		log.Printf("Malformed point ban button id: %s", i.MessageComponentData().CustomID)
		return
	}
	if i.Member == nil || !utils.HasPermission(i.Member, utils.BanPermission) {
		utils.SendErrorResponse(s, i, "You need the Ban Members permission to vote on point bans.")
		return
	}

	if err := utils.DeferComponentUpdate(s, i); err != nil {
		log.Printf("Failed to defer component interaction: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	ban, err := b.Engine.GetBan(ctx, banID)
	if err != nil {
		log.Printf("Error loading point ban #%d for button: %v", banID, err)
		ban = nil
	}
	var current *model.PendingBan
	live := false
	if ban != nil && ban.GuildID == i.GuildID && ban.Status == model.PendingBanPending {
		current, err = b.Engine.GetPending(ctx, ban.GuildID, ban.UserID)
		if err != nil {
			log.Printf("Error loading pending ban for %s in guild %s: %v", ban.UserID, ban.GuildID, err)
			utils.SendEphemeralFollowUp(s, i.Interaction, "❌ Failed to load the ban request.")
			return
		}
		live = b.Views.Touch(ban.ID, ban.CreatedAt)
	}

	switch classifyBanButton(i.GuildID, ban, current, live) {
	case buttonUnknown:
		utils.SendEphemeralFollowUp(s, i.Interaction, "❌ This ban request could not be found.")
		return
	case buttonResolved:
		b.Views.Forget(ban.ID)
		refreshNotice(s, i, ban, true)
		utils.SendEphemeralFollowUp(s, i.Interaction, resolvedMessage)
		return
	case buttonExpired:
		refreshNotice(s, i, ban, true)
		utils.SendEphemeralFollowUp(s, i.Interaction, expiredMessage)
		return
	}

	moderatorID := invokerID(i)
	var reply string
	switch action {
	case ActionApprove:
		out, err := b.Engine.AddApproval(ctx, ban.GuildID, ban.UserID, moderatorID)
		if err != nil {
			log.Printf("Error approving point ban #%d: %v", ban.ID, err)
			utils.SendEphemeralFollowUp(s, i.Interaction, "❌ Failed to record the approval.")
			return
		}
		afterApproval(s, b, ban.GuildID, moderatorID, ban.UserID, out)
		reply = DescribeApproval(ban.UserID, out)
	case ActionDecline:
		out, err := b.Engine.DeclinePending(ctx, ban.GuildID, ban.UserID, moderatorID)
		if err != nil {
			log.Printf("Error declining point ban #%d: %v", ban.ID, err)
			utils.SendEphemeralFollowUp(s, i.Interaction, "❌ Failed to decline the ban.")
			return
		}
		afterDecline(s, b, ban.GuildID, moderatorID, ban.UserID, out)
		reply = DescribeDecline(ban.UserID, out)
	}

	if updated, err := b.Engine.GetBan(ctx, ban.ID); err == nil {
		refreshNotice(s, i, updated, updated.Status != model.PendingBanPending)
	} else {
		log.Printf("Error reloading point ban #%d: %v", ban.ID, err)
	}
	utils.SendEphemeralFollowUp(s, i.Interaction, reply)
}

func refreshNotice(s *discordgo.Session, i *discordgo.InteractionCreate, ban *model.PendingBan, disabled bool) {
	components := BuildApprovalButtons(ban.ID, disabled)
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
		Embeds:     &[]*discordgo.MessageEmbed{BuildBanNoticeEmbed(ban)},
		Components: &components,
	})
	if err != nil {
		log.Printf("Error updating point ban notice #%d: %v", ban.ID, err)
	}
}
