package pointmod

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"modbot/bot"
	"modbot/model"
	"modbot/moderation"
	"modbot/utils"

	"github.com/bwmarrin/discordgo"
)

const (
	commandTimeout = 30 * time.Second
	caseListLimit  = 10
)

const noPermissionMessage = "You do not have permission to use this command."

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	options := i.ApplicationCommandData().Options
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}

func invokerID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// requireGuild rejects DMs and members below the required level.
func requireGuild(s *discordgo.Session, i *discordgo.InteractionCreate, level string) bool {
	if i.GuildID == "" || i.Member == nil {
		utils.SendErrorResponse(s, i, "This command can only be used in a server.")
		return false
	}
	if !utils.HasPermission(i.Member, level) {
		utils.SendErrorResponse(s, i, noPermissionMessage)
		return false
	}
	return true
}

func logModeration(s *discordgo.Session, b *bot.Bot, guildID, operation, extra string) {
	if err := utils.LogInfo(s, b.GetConfig().LogChannelFor(guildID), "PointMod", operation, extra); err != nil {
		log.Printf("Failed to send point moderation log: %v", err)
	}
}

// HandleAddPoints handles /add-points.
func HandleAddPoints(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if !requireGuild(s, i, utils.ModeratorPermission) {
		return
	}
	opts := optionMap(i)
	userOpt, ok := opts["user"]
	amountOpt, ok2 := opts["amount"]
	if !ok || !ok2 {
		utils.SendErrorResponse(s, i, "Both user and amount are required.")
		return
	}
	target := userOpt.UserValue(s)
	amount := int(amountOpt.IntValue())
	if amount <= 0 || amount > moderation.MaxSetPoints {
		utils.SendErrorResponse(s, i, fmt.Sprintf("Amount must be between 1 and %d.", moderation.MaxSetPoints))
		return
	}
	if target.Bot {
		utils.SendErrorResponse(s, i, "Bots cannot receive moderation points.")
		return
	}
	reason := ""
	if opt, ok := opts["reason"]; ok {
		reason = opt.StringValue()
	}

	if err := utils.DeferResponse(s, i, false); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	res, err := b.Engine.AddPoints(ctx, i.GuildID, target.ID, invokerID(i), amount, reason)
	if err != nil {
		log.Printf("Error adding points to %s in guild %s: %v", target.ID, i.GuildID, err)
		utils.SendFollowUpError(s, i.Interaction, "Failed to add points. Please try again later.")
		return
	}

	summary := DescribeAddResult(target.ID, amount, res)
	logModeration(s, b, i.GuildID, "AddPoints", fmt.Sprintf("<@%s> added %d point(s) to <@%s>, total %d/%d", invokerID(i), amount, target.ID, res.Points, moderation.PointCap))

	if res.Trigger != moderation.TriggerCreated {
		utils.SendFollowUp(s, i.Interaction, summary)
		return
	}

	b.Views.Open(res.Pending.ID)
	notice := BuildBanNoticeEmbed(res.Pending)
	buttons := BuildApprovalButtons(res.Pending.ID, false)

	noticeChannel := b.GetConfig().NoticeChannelFor(i.GuildID)
	if noticeChannel == "" {
		utils.SendFollowUp(s, i.Interaction, summary)
		utils.SendFollowUpEmbed(s, i.Interaction, notice, buttons)
		return
	}

	_, err = s.ChannelMessageSendComplex(noticeChannel, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{notice},
		Components: buttons,
	})
	if err != nil {
		log.Printf("Failed to post point ban notice to channel %s: %v", noticeChannel, err)
		utils.SendFollowUpEmbed(s, i.Interaction, notice, buttons)
		return
	}
	utils.SendFollowUp(s, i.Interaction, summary+fmt.Sprintf("\nApproval notice posted in <#%s>.", noticeChannel))
}

// HandlePoints handles /points.
func HandlePoints(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if !requireGuild(s, i, utils.GuestPermission) {
		return
	}
	userID := invokerID(i)
	if opt, ok := optionMap(i)["user"]; ok {
		userID = opt.UserValue(s).ID
	}

	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	points, err := b.Engine.GetPoints(ctx, i.GuildID, userID)
	if err != nil {
		log.Printf("Error reading points for %s in guild %s: %v", userID, i.GuildID, err)
		utils.SendFollowUpError(s, i.Interaction, "Failed to read points.")
		return
	}
	pending, err := b.Engine.GetPending(ctx, i.GuildID, userID)
	if err != nil {
		log.Printf("Error reading pending ban for %s in guild %s: %v", userID, i.GuildID, err)
		utils.SendFollowUpError(s, i.Interaction, "Failed to read ban status.")
		return
	}

	period := moderation.PeriodToken(b.Engine.Now())
	utils.SendFollowUpEmbed(s, i.Interaction, BuildPointsEmbed(userID, points, period, pending), nil)
}

// HandlePendingBans handles /pending-bans.
func HandlePendingBans(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if !requireGuild(s, i, utils.ModeratorPermission) {
		return
	}
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	bans, err := b.Engine.ListPending(ctx, i.GuildID)
	if err != nil {
		log.Printf("Error listing pending bans for guild %s: %v", i.GuildID, err)
		utils.SendFollowUpError(s, i.Interaction, "Failed to list pending bans.")
		return
	}
	utils.SendFollowUpEmbed(s, i.Interaction, BuildPendingListEmbed(bans, b.Engine.Now()), nil)
}

func targetFromOptions(s *discordgo.Session, i *discordgo.InteractionCreate) (*discordgo.User, bool) {
	opt, ok := optionMap(i)["user"]
	if !ok {
		utils.SendErrorResponse(s, i, "A user is required.")
		return nil, false
	}
	return opt.UserValue(s), true
}

// HandleApproveBan handles /approve-ban.
func HandleApproveBan(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if !requireGuild(s, i, utils.BanPermission) {
		return
	}
	target, ok := targetFromOptions(s, i)
	if !ok {
		return
	}
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	out, err := b.Engine.AddApproval(ctx, i.GuildID, target.ID, invokerID(i))
	if err != nil {
		log.Printf("Error approving point ban for %s in guild %s: %v", target.ID, i.GuildID, err)
		utils.SendFollowUpError(s, i.Interaction, "Failed to record the approval.")
		return
	}
	afterApproval(s, b, i.GuildID, invokerID(i), target.ID, out)
	utils.SendFollowUp(s, i.Interaction, DescribeApproval(target.ID, out))
}

// HandleDeclineBan handles /decline-ban.
func HandleDeclineBan(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if !requireGuild(s, i, utils.BanPermission) {
		return
	}
	target, ok := targetFromOptions(s, i)
	if !ok {
		return
	}
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	out, err := b.Engine.DeclinePending(ctx, i.GuildID, target.ID, invokerID(i))
	if err != nil {
		log.Printf("Error declining point ban for %s in guild %s: %v", target.ID, i.GuildID, err)
		utils.SendFollowUpError(s, i.Interaction, "Failed to decline the ban.")
		return
	}
	afterDecline(s, b, i.GuildID, invokerID(i), target.ID, out)
	utils.SendFollowUp(s, i.Interaction, DescribeDecline(target.ID, out))
}

func afterApproval(s *discordgo.Session, b *bot.Bot, guildID, moderatorID, userID string, out moderation.ApprovalOutcome) {
	switch out.Result {
	case moderation.ApprovalPartial:
		logModeration(s, b, guildID, "ApproveBan", fmt.Sprintf("<@%s> gave the first approval for banning <@%s> (#%d)", moderatorID, userID, out.Ban.ID))
	case moderation.ApprovalFinal:
		b.Views.Forget(out.Ban.ID)
		logModeration(s, b, guildID, "ApproveBan", fmt.Sprintf("<@%s> gave the final approval for banning <@%s> (#%d)", moderatorID, userID, out.Ban.ID))
	}
}

func afterDecline(s *discordgo.Session, b *bot.Bot, guildID, moderatorID, userID string, out moderation.DeclineOutcome) {
	if out.Result != moderation.DeclineDeclined {
		return
	}
	b.Views.Forget(out.Ban.ID)
	logModeration(s, b, guildID, "DeclineBan", fmt.Sprintf("<@%s> declined the point ban for <@%s> (#%d), points set to %d", moderatorID, userID, out.Ban.ID, out.Points))
}

// HandleSetPoints handles /set-points.
func HandleSetPoints(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if !requireGuild(s, i, utils.AdminPermission) {
		return
	}
	opts := optionMap(i)
	userOpt, ok := opts["user"]
	amountOpt, ok2 := opts["amount"]
	if !ok || !ok2 {
		utils.SendErrorResponse(s, i, "Both user and amount are required.")
		return
	}
	target := userOpt.UserValue(s)
	amount := int(amountOpt.IntValue())

	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := b.Engine.SetPoints(ctx, i.GuildID, target.ID, amount); err != nil {
		if errors.Is(err, moderation.ErrAmountOutOfRange) {
			utils.SendFollowUpError(s, i.Interaction, fmt.Sprintf("Amount must be between 0 and %d.", moderation.MaxSetPoints))
			return
		}
		log.Printf("Error setting points for %s in guild %s: %v", target.ID, i.GuildID, err)
		utils.SendFollowUpError(s, i.Interaction, "Failed to set points.")
		return
	}

	caseReason := fmt.Sprintf("Points set to %d", amount)
	if err := b.Engine.RecordCase(ctx, i.GuildID, target.ID, invokerID(i), model.CaseActionPointsSet, caseReason); err != nil {
		log.Printf("Error recording POINTS-SET case for %s in guild %s: %v", target.ID, i.GuildID, err)
	}
	logModeration(s, b, i.GuildID, "SetPoints", fmt.Sprintf("<@%s> set <@%s> to %d point(s)", invokerID(i), target.ID, amount))
	utils.SendFollowUp(s, i.Interaction, fmt.Sprintf("✅ <@%s> now has %d point(s).", target.ID, amount))
}

// HandlePointFallback handles /point-fallback.
func HandlePointFallback(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if !requireGuild(s, i, utils.AdminPermission) {
		return
	}
	opt, ok := optionMap(i)["amount"]
	if !ok {
		utils.SendErrorResponse(s, i, "An amount is required.")
		return
	}
	amount := int(opt.IntValue())

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := b.Engine.SetFallbackPoints(ctx, i.GuildID, amount); err != nil {
		if errors.Is(err, moderation.ErrAmountOutOfRange) {
			utils.SendErrorResponse(s, i, fmt.Sprintf("Fallback must be between 0 and %d.", moderation.PointCap-1))
			return
		}
		log.Printf("Error setting fallback points for guild %s: %v", i.GuildID, err)
		utils.SendErrorResponse(s, i, "Failed to save the fallback.")
		return
	}
	logModeration(s, b, i.GuildID, "PointFallback", fmt.Sprintf("<@%s> set the decline fallback to %d", invokerID(i), amount))
	utils.SendEphemeralResponse(s, i, fmt.Sprintf("✅ Declined point bans now reset members to %d point(s).", amount))
}

// HandlePointCases handles /point-cases.
func HandlePointCases(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if !requireGuild(s, i, utils.ModeratorPermission) {
		return
	}
	target, ok := targetFromOptions(s, i)
	if !ok {
		return
	}
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	entries, err := b.Engine.RecentCases(ctx, i.GuildID, target.ID, caseListLimit)
	if err != nil {
		log.Printf("Error reading cases for %s in guild %s: %v", target.ID, i.GuildID, err)
		utils.SendFollowUpError(s, i.Interaction, "Failed to read cases.")
		return
	}
	utils.SendFollowUpEmbed(s, i.Interaction, BuildCasesEmbed(target.ID, entries), nil)
}
