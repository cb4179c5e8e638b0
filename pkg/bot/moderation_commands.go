package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/pkg/dataaccess"
	"github.com/wardenbot/warden/pkg/entities"
)

const (
	purgeDefault = 10
	purgeMax     = 100
)

func (b *Bot) cmdAnnounce(ctx context.Context, inv *invocation) error {
	if err := b.s.ChannelMessageDelete(inv.channelID(), inv.message.ID); err != nil {
		return fmt.Errorf("error deleting announce message: %w", err)
	}
	if _, err := b.s.ChannelMessageSendEmbed(inv.channelID(), infoEmbed("**__Announcement__**", inv.rest(0))); err != nil {
		return fmt.Errorf("error sending announcement: %w", err)
	}
	return nil
}

func (b *Bot) cmdKick(ctx context.Context, inv *invocation) error {
	userID := parseMention(inv.args[0])
	reason := inv.rest(1)
	if err := b.s.GuildMemberDeleteWithReason(inv.guildID(), userID, reason); err != nil {
		return fmt.Errorf("error kicking user: %w", err)
	}
	b.replySuccess(inv.channelID(), "**__User Kicked__**", fmt.Sprintf("<@%s> has been kicked.", userID))
	return nil
}

func (b *Bot) cmdBan(ctx context.Context, inv *invocation) error {
	userID := parseMention(inv.args[0])
	reason := inv.rest(1)
	if err := b.s.GuildBanCreateWithReason(inv.guildID(), userID, reason, 0); err != nil {
		return fmt.Errorf("error banning user: %w", err)
	}
	b.replySuccess(inv.channelID(), "**__User Banned__**", fmt.Sprintf("<@%s> has been banned.", userID))
	return nil
}

func (b *Bot) cmdUnban(ctx context.Context, inv *invocation) error {
	userID := parseMention(inv.args[0])
	if err := b.s.GuildBanDelete(inv.guildID(), userID); err != nil {
		return fmt.Errorf("error unbanning user: %w", err)
	}
	b.replySuccess(inv.channelID(), "**__User Unbanned__**", fmt.Sprintf("<@%s> has been unbanned.", userID))
	return nil
}

func (b *Bot) cmdUnbanAll(ctx context.Context, inv *invocation) error {
	count := 0
	after := ""
	for {
		bans, err := b.s.GuildBans(inv.guildID(), 1000, "", after)
		if err != nil {
			return fmt.Errorf("error listing bans: %w", err)
		}
		if len(bans) == 0 {
			break
		}
		for _, ban := range bans {
			after = ban.User.ID
			if err := b.s.GuildBanDelete(inv.guildID(), ban.User.ID); err != nil {
				return fmt.Errorf("error unbanning user %s: %w", ban.User.ID, err)
			}
			count++
		}
		if len(bans) < 1000 {
			break
		}
	}
	b.replySuccess(inv.channelID(), "**__Bans Cleared__**", fmt.Sprintf("%d users have been unbanned.", count))
	return nil
}

// mutedRole resolves the configured muted role, replying when it is not usable.
func (b *Bot) mutedRole(inv *invocation) (*discordgo.Role, error) {
	if inv.cfg.MutedRole == "" {
		b.replyError(inv.channelID(), "No muted role is configured.")
		return nil, nil
	}
	role, err := b.roleByName(inv.guildID(), inv.cfg.MutedRole)
	switch {
	case errors.Is(err, dataaccess.ErrNotFound):
		b.replyError(inv.channelID(), fmt.Sprintf("The muted role `%s` does not exist in this server.", inv.cfg.MutedRole))
		return nil, nil
	case err != nil:
		return nil, err
	}
	return role, nil
}

func (b *Bot) cmdMute(ctx context.Context, inv *invocation) error {
	role, err := b.mutedRole(inv)
	if err != nil || role == nil {
		return err
	}
	userID := parseMention(inv.args[0])
	if err := b.s.GuildMemberRoleAdd(inv.guildID(), userID, role.ID); err != nil {
		return fmt.Errorf("error muting user: %w", err)
	}
	b.replySuccess(inv.channelID(), "**__User Muted__**", fmt.Sprintf("<@%s> has been muted.", userID))
	return nil
}

func (b *Bot) cmdUnmute(ctx context.Context, inv *invocation) error {
	role, err := b.mutedRole(inv)
	if err != nil || role == nil {
		return err
	}
	userID := parseMention(inv.args[0])
	if err := b.s.GuildMemberRoleRemove(inv.guildID(), userID, role.ID); err != nil {
		return fmt.Errorf("error unmuting user: %w", err)
	}
	b.replySuccess(inv.channelID(), "**__User Unmuted__**", fmt.Sprintf("<@%s> has been unmuted.", userID))
	return nil
}

func (b *Bot) cmdRoleAdd(ctx context.Context, inv *invocation) error {
	userID := parseMention(inv.args[0])
	role, err := b.roleByName(inv.guildID(), inv.rest(1))
	switch {
	case errors.Is(err, dataaccess.ErrNotFound):
		b.replyError(inv.channelID(), "No role with that name exists.")
		return nil
	case err != nil:
		return err
	}
	if err := b.s.GuildMemberRoleAdd(inv.guildID(), userID, role.ID); err != nil {
		return fmt.Errorf("error adding role: %w", err)
	}
	b.replySuccess(inv.channelID(), "**__Role Added__**", fmt.Sprintf("<@%s> now has `%s`.", userID, role.Name))
	return nil
}

func (b *Bot) cmdRoleRemove(ctx context.Context, inv *invocation) error {
	userID := parseMention(inv.args[0])
	role, err := b.roleByName(inv.guildID(), inv.rest(1))
	switch {
	case errors.Is(err, dataaccess.ErrNotFound):
		b.replyError(inv.channelID(), "No role with that name exists.")
		return nil
	case err != nil:
		return err
	}
	if err := b.s.GuildMemberRoleRemove(inv.guildID(), userID, role.ID); err != nil {
		return fmt.Errorf("error removing role: %w", err)
	}
	b.replySuccess(inv.channelID(), "**__Role Removed__**", fmt.Sprintf("<@%s> no longer has `%s`.", userID, role.Name))
	return nil
}

func (b *Bot) cmdNick(ctx context.Context, inv *invocation) error {
	userID := parseMention(inv.args[0])
	if err := b.s.GuildMemberNickname(inv.guildID(), userID, inv.rest(1)); err != nil {
		return fmt.Errorf("error setting nickname: %w", err)
	}
	b.replySuccess(inv.channelID(), "**__Nickname Changed__**", fmt.Sprintf("<@%s> is now known as `%s`.", userID, inv.rest(1)))
	return nil
}

func (b *Bot) cmdPurge(ctx context.Context, inv *invocation) error {
	amount := purgeDefault
	if len(inv.args) > 0 {
		n, err := strconv.Atoi(inv.args[0])
		if err != nil || n < 1 {
			b.replyError(inv.channelID(), "The amount must be a positive number.")
			return nil
		}
		amount = n
	}
	if amount > purgeMax {
		amount = purgeMax
	}

	msgs, err := b.s.ChannelMessages(inv.channelID(), amount, inv.message.ID, "", "")
	if err != nil {
		return fmt.Errorf("error fetching messages: %w", err)
	}
	// The invoking command goes too.
	ids := []string{inv.message.ID}
	for _, msg := range msgs {
		ids = append(ids, msg.ID)
	}
	if err := b.s.ChannelMessagesBulkDelete(inv.channelID(), ids); err != nil {
		return fmt.Errorf("error bulk deleting messages: %w", err)
	}
	b.replySuccess(inv.channelID(), "**__Channel Purged__**", fmt.Sprintf("Deleted %d messages.", len(msgs)))
	return nil
}

func (b *Bot) cmdSlowmode(ctx context.Context, inv *invocation) error {
	seconds, err := strconv.Atoi(inv.args[0])
	if err != nil || seconds < 0 {
		b.replyError(inv.channelID(), "Slowmode must be zero or a positive number of seconds.")
		return nil
	}
	if _, err := b.s.ChannelEdit(inv.channelID(), &discordgo.ChannelEdit{RateLimitPerUser: &seconds}); err != nil {
		return fmt.Errorf("error setting slowmode: %w", err)
	}
	if seconds == 0 {
		b.replySuccess(inv.channelID(), "**__Slowmode Disabled__**", "Messages are no longer rate limited.")
		return nil
	}
	b.replySuccess(inv.channelID(), "**__Slowmode Enabled__**", fmt.Sprintf("One message every %d seconds.", seconds))
	return nil
}

// channelMuteTarget resolves the role a channel mute applies to; @everyone when
// no role is named.
func (b *Bot) channelMuteTarget(inv *invocation) (string, string, error) {
	if len(inv.args) == 0 {
		return inv.guildID(), "@everyone", nil
	}
	role, err := b.roleByName(inv.guildID(), inv.rest(0))
	switch {
	case errors.Is(err, dataaccess.ErrNotFound):
		b.replyError(inv.channelID(), "No role with that name exists.")
		return "", "", nil
	case err != nil:
		return "", "", err
	}
	return role.ID, role.Name, nil
}

func (b *Bot) cmdChannelMute(ctx context.Context, inv *invocation) error {
	targetID, targetName, err := b.channelMuteTarget(inv)
	if err != nil || targetID == "" {
		return err
	}
	if err := b.s.ChannelPermissionSet(inv.channelID(), targetID, discordgo.PermissionOverwriteTypeRole, 0, discordgo.PermissionSendMessages); err != nil {
		return fmt.Errorf("error muting channel: %w", err)
	}
	b.replySuccess(inv.channelID(), "**__Channel Muted__**", fmt.Sprintf("`%s` can no longer send messages here.", targetName))
	return nil
}

func (b *Bot) cmdChannelUnmute(ctx context.Context, inv *invocation) error {
	targetID, targetName, err := b.channelMuteTarget(inv)
	if err != nil || targetID == "" {
		return err
	}
	if err := b.s.ChannelPermissionSet(inv.channelID(), targetID, discordgo.PermissionOverwriteTypeRole, discordgo.PermissionSendMessages, 0); err != nil {
		return fmt.Errorf("error unmuting channel: %w", err)
	}
	b.replySuccess(inv.channelID(), "**__Channel Unmuted__**", fmt.Sprintf("`%s` can send messages here again.", targetName))
	return nil
}

func (b *Bot) cmdPoll(ctx context.Context, inv *invocation) error {
	if err := b.s.ChannelMessageDelete(inv.channelID(), inv.message.ID); err != nil {
		return fmt.Errorf("error deleting poll message: %w", err)
	}
	embed := infoEmbed("**__Poll__**", inv.rest(0))
	embed.Author = &discordgo.MessageEmbedAuthor{
		Name:    inv.message.Author.Username,
		IconURL: inv.message.Author.AvatarURL(""),
	}
	msg, err := b.s.ChannelMessageSendEmbed(inv.channelID(), embed)
	if err != nil {
		return fmt.Errorf("error sending poll: %w", err)
	}
	for _, emoji := range []string{"👍", "👎"} {
		if err := b.s.MessageReactionAdd(inv.channelID(), msg.ID, emoji); err != nil {
			return fmt.Errorf("error seeding poll reaction: %w", err)
		}
	}
	return nil
}

func (b *Bot) cmdReactionRoles(ctx context.Context, inv *invocation) error {
	roles := strings.Split(inv.args[0], "/")
	emojis := strings.Split(inv.args[1], "/")
	if len(roles) != len(emojis) {
		b.replyError(inv.channelID(), "Each role needs exactly one emoji; the two lists must be the same length.")
		return nil
	}

	// Validate every role before posting anything.
	lines := make([]string, 0, len(roles))
	for i, name := range roles {
		if _, err := b.roleByName(inv.guildID(), name); err != nil {
			if errors.Is(err, dataaccess.ErrNotFound) {
				b.replyError(inv.channelID(), fmt.Sprintf("No role named `%s` exists.", name))
				return nil
			}
			return err
		}
		lines = append(lines, fmt.Sprintf("%s : `%s`", emojis[i], name))
	}

	msg, err := b.s.ChannelMessageSendEmbed(inv.channelID(), infoEmbed("**__Reaction Roles__**",
		"React to give yourself a role.\n\n"+strings.Join(lines, "\n")))
	if err != nil {
		return fmt.Errorf("error sending reaction-role message: %w", err)
	}

	if err := b.stores.ReactionRoles.Save(ctx, &entities.ReactionRoleMessage{
		MessageID: msg.ID,
		Emojis:    emojis,
		Roles:     roles,
	}); err != nil {
		return err
	}

	for _, emoji := range emojis {
		if err := b.s.MessageReactionAdd(inv.channelID(), msg.ID, strings.Trim(emoji, ":")); err != nil {
			return fmt.Errorf("error seeding reaction %q: %w", emoji, err)
		}
	}
	return nil
}

func (b *Bot) cmdGiveaway(ctx context.Context, inv *invocation) error {
	seconds, err := strconv.Atoi(inv.args[0])
	if err != nil || seconds < 1 {
		b.replyError(inv.channelID(), "The duration must be a positive number of seconds.")
		return nil
	}

	channelID := inv.cfg.GiveawaysChannelID
	if channelID == "" {
		channelID = inv.channelID()
	}

	if _, err := b.giveaways.Start(channelID, inv.rest(1), time.Duration(seconds)*time.Second); err != nil {
		return err
	}
	if channelID != inv.channelID() {
		b.replySuccess(inv.channelID(), "**__Giveaway Started__**", fmt.Sprintf("The giveaway is running in <#%s>.", channelID))
	}
	return nil
}

func (b *Bot) cmdReroll(ctx context.Context, inv *invocation) error {
	err := b.giveaways.Reroll(inv.args[0])
	if errors.Is(err, ErrGiveawayNotFound) {
		b.replyError(inv.channelID(), "No finished giveaway has that message ID.")
		return nil
	}
	return err
}
