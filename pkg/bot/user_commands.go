package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

func (b *Bot) cmdPing(ctx context.Context, inv *invocation) error {
	start := time.Now()
	msg, err := b.s.ChannelMessageSend(inv.channelID(), "Pong!")
	if err != nil {
		return fmt.Errorf("error sending ping reply: %w", err)
	}
	// Round-trip through the API approximates the latency users feel.
	if err := b.s.ChannelMessageDelete(inv.channelID(), msg.ID); err != nil {
		return fmt.Errorf("error deleting ping reply: %w", err)
	}
	b.replySuccess(inv.channelID(), "**__Pong__**", fmt.Sprintf("Round trip took %s.", time.Since(start).Round(time.Millisecond)))
	return nil
}

// targetUser resolves the first argument as a user mention, falling back to the
// message author when no argument was given.
func (b *Bot) targetUser(inv *invocation) (*discordgo.User, error) {
	if len(inv.args) == 0 {
		return inv.message.Author, nil
	}
	user, err := b.s.User(parseMention(inv.args[0]))
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	return user, nil
}

func (b *Bot) cmdUserInfo(ctx context.Context, inv *invocation) error {
	user, err := b.targetUser(inv)
	if err != nil {
		return err
	}
	member, err := b.s.GuildMember(inv.guildID(), user.ID)
	if err != nil {
		return fmt.Errorf("error getting member: %w", err)
	}

	embed := infoEmbed("**__User Information__**", "")
	embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("")}
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "**Username**", Value: user.String(), Inline: true},
		{Name: "**ID**", Value: user.ID, Inline: true},
		{Name: "**Joined**", Value: member.JoinedAt.UTC().Format("02 January 2006"), Inline: true},
		{Name: "**Roles**", Value: fmt.Sprintf("%d", len(member.Roles)), Inline: true},
	}
	if _, err := b.s.ChannelMessageSendEmbed(inv.channelID(), embed); err != nil {
		return fmt.Errorf("error sending user info: %w", err)
	}
	return nil
}

// historyWindow bounds how far back punishment history is reported.
const historyWindow = 90 * 24 * time.Hour

func (b *Bot) cmdHistory(ctx context.Context, inv *invocation) error {
	user, err := b.targetUser(inv)
	if err != nil {
		return err
	}

	sections := []struct {
		title  string
		action int
		verb   string
	}{
		{"Ban History", int(discordgo.AuditLogActionMemberBanAdd), "banned"},
		{"Unban History", int(discordgo.AuditLogActionMemberBanRemove), "unbanned"},
		{"Kick History", int(discordgo.AuditLogActionMemberKick), "kicked"},
	}

	cutoff := time.Now().Add(-historyWindow)
	var sb strings.Builder
	for _, sec := range sections {
		log, err := b.s.GuildAuditLog(inv.guildID(), "", "", sec.action, 100)
		if err != nil {
			return fmt.Errorf("error fetching audit log: %w", err)
		}
		lines := ""
		for _, entry := range log.AuditLogEntries {
			if entry.TargetID != user.ID {
				continue
			}
			// The entry ID is a snowflake, so it carries the creation time.
			when, err := discordgo.SnowflakeTimestamp(entry.ID)
			if err != nil || when.Before(cutoff) {
				continue
			}
			reason := entry.Reason
			if reason == "" {
				reason = "no reason given"
			}
			lines += fmt.Sprintf("*%s* - <@%s> *%s* <@%s> for reason: *%s*\n",
				when.UTC().Format("02/January/2006"), entry.UserID, sec.verb, entry.TargetID, reason)
		}
		if lines == "" {
			lines = "None\n"
		}
		sb.WriteString(fmt.Sprintf("**__%s:__**\n%s\n", sec.title, lines))
	}

	embed := infoEmbed(fmt.Sprintf("**__Punishment History (last 90 days)__** %s", user.String()), sb.String())
	if _, err := b.s.ChannelMessageSendEmbed(inv.channelID(), embed); err != nil {
		return fmt.Errorf("error sending punishment history: %w", err)
	}
	return nil
}

func (b *Bot) cmdInfo(ctx context.Context, inv *invocation) error {
	guild, err := b.s.Guild(inv.guildID())
	if err != nil {
		return fmt.Errorf("error getting guild: %w", err)
	}

	embed := infoEmbed("**__Server Information__**", "")
	embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: guild.IconURL("")}
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "**Name**", Value: guild.Name, Inline: true},
		{Name: "**ID**", Value: guild.ID, Inline: true},
		{Name: "**Owner**", Value: fmt.Sprintf("<@%s>", guild.OwnerID), Inline: true},
		{Name: "**Members**", Value: fmt.Sprintf("%d", guild.MemberCount), Inline: true},
		{Name: "**Roles**", Value: fmt.Sprintf("%d", len(guild.Roles)), Inline: true},
	}
	if _, err := b.s.ChannelMessageSendEmbed(inv.channelID(), embed); err != nil {
		return fmt.Errorf("error sending server info: %w", err)
	}
	return nil
}

func (b *Bot) cmdSuggest(ctx context.Context, inv *invocation) error {
	if inv.cfg.SuggestionsChannelID == "" {
		b.replyError(inv.channelID(), "No suggestions channel is configured.")
		return nil
	}

	embed := infoEmbed("**__Suggestion__**", inv.rest(0))
	embed.Author = &discordgo.MessageEmbedAuthor{
		Name:    inv.message.Author.Username,
		IconURL: inv.message.Author.AvatarURL(""),
	}
	msg, err := b.s.ChannelMessageSendEmbed(inv.cfg.SuggestionsChannelID, embed)
	if err != nil {
		return fmt.Errorf("error sending suggestion: %w", err)
	}
	for _, emoji := range []string{"👍", "👎"} {
		if err := b.s.MessageReactionAdd(inv.cfg.SuggestionsChannelID, msg.ID, emoji); err != nil {
			return fmt.Errorf("error seeding suggestion reaction: %w", err)
		}
	}
	b.replySuccess(inv.channelID(), "**__Suggestion Sent__**", fmt.Sprintf("Your suggestion was posted in <#%s>.", inv.cfg.SuggestionsChannelID))
	return nil
}

func (b *Bot) cmdAvatar(ctx context.Context, inv *invocation) error {
	user, err := b.targetUser(inv)
	if err != nil {
		return err
	}
	embed := infoEmbed("**__Avatar__**", user.Mention())
	embed.Image = &discordgo.MessageEmbedImage{URL: user.AvatarURL("512")}
	if _, err := b.s.ChannelMessageSendEmbed(inv.channelID(), embed); err != nil {
		return fmt.Errorf("error sending avatar: %w", err)
	}
	return nil
}

func (b *Bot) cmdRoles(ctx context.Context, inv *invocation) error {
	roles, err := b.s.GuildRoles(inv.guildID())
	if err != nil {
		return fmt.Errorf("error getting roles: %w", err)
	}
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		if role.Name == "@everyone" {
			continue
		}
		names = append(names, role.Name)
	}
	if len(names) == 0 {
		b.replySuccess(inv.channelID(), "**__Server Roles__**", "This server has no roles.")
		return nil
	}
	b.replySuccess(inv.channelID(), "**__Server Roles__**", strings.Join(names, ", "))
	return nil
}

func (b *Bot) cmdCustomCmds(ctx context.Context, inv *invocation) error {
	cmds, err := b.stores.CustomCommands.List(ctx)
	if err != nil {
		return err
	}
	if len(cmds) == 0 {
		b.replySuccess(inv.channelID(), "**__Custom Commands__**", "No custom commands have been created.")
		return nil
	}
	names := make([]string, 0, len(cmds))
	for _, c := range cmds {
		names = append(names, inv.cfg.Prefix+c.Name)
	}
	b.replySuccess(inv.channelID(), "**__Custom Commands__**", strings.Join(names, ", "))
	return nil
}

func (b *Bot) cmdInvites(ctx context.Context, inv *invocation) error {
	invites, err := b.s.GuildInvites(inv.guildID())
	if err != nil {
		return fmt.Errorf("error getting invites: %w", err)
	}

	// Sum uses per inviter.
	uses := make(map[string]int)
	for _, invite := range invites {
		if invite.Inviter == nil {
			continue
		}
		uses[invite.Inviter.ID] += invite.Uses
	}
	if len(uses) == 0 {
		b.replySuccess(inv.channelID(), "**__Invites__**", "This server has no active invites.")
		return nil
	}
	lines := make([]string, 0, len(uses))
	for id, n := range uses {
		lines = append(lines, fmt.Sprintf("<@%s> : %d", id, n))
	}
	b.replySuccess(inv.channelID(), "**__Invites__**", strings.Join(lines, "\n"))
	return nil
}

func (b *Bot) cmdHelp(ctx context.Context, inv *invocation) error {
	lines := make([]string, 0, len(b.registry.order))
	for _, cmd := range b.registry.order {
		lines = append(lines, fmt.Sprintf("**%s%s** - %s", inv.cfg.Prefix, cmd.name, cmd.description))
	}
	if _, err := b.s.ChannelMessageSendEmbed(inv.channelID(), infoEmbed("**__Commands__**", strings.Join(lines, "\n"))); err != nil {
		return fmt.Errorf("error sending help: %w", err)
	}
	return nil
}
