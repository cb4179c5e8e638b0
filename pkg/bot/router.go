package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/pkg/dataaccess"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/wardenbot/warden/pkg/logging"
)

// checkmarkEmoji opens a ticket when reacted on the ticket setup message.
const checkmarkEmoji = "✅"

// mentionFloodLimit is the mention count at which a message is treated as a
// flood and its author muted.
const mentionFloodLimit = 4

var inviteLinkMarkers = []string{
	"https://discord.gg/",
	"https://discord.com/invite/",
}

// outcome names the terminal state an event classification ended in. Every event
// resolves to exactly one outcome and performs at most one state mutation.
type outcome int

const (
	outcomeNoMatch outcome = iota
	outcomeIgnoredSelf
	outcomeTicketOpened
	outcomeDuplicateTicket
	outcomeNoTicketCategory
	outcomeReactionCleared
	outcomeRoleGranted
	outcomeRoleRevoked
	outcomeMessageDeleted
	outcomeHelpHint
	outcomeCustomCommand
	outcomeCommandDispatched
	outcomeBlacklisted
	outcomePermissionDenied
	outcomeUsageError
)

func (o outcome) String() string {
	switch o {
	case outcomeNoMatch:
		return "no_match"
	case outcomeIgnoredSelf:
		return "ignored_self"
	case outcomeTicketOpened:
		return "ticket_opened"
	case outcomeDuplicateTicket:
		return "duplicate_ticket"
	case outcomeNoTicketCategory:
		return "no_ticket_category"
	case outcomeReactionCleared:
		return "reaction_cleared"
	case outcomeRoleGranted:
		return "role_granted"
	case outcomeRoleRevoked:
		return "role_revoked"
	case outcomeMessageDeleted:
		return "message_deleted"
	case outcomeHelpHint:
		return "help_hint"
	case outcomeCustomCommand:
		return "custom_command"
	case outcomeCommandDispatched:
		return "command_dispatched"
	case outcomeBlacklisted:
		return "blacklisted"
	case outcomePermissionDenied:
		return "permission_denied"
	case outcomeUsageError:
		return "usage_error"
	default:
		return "unknown"
	}
}

// indexEmoji returns the position of the incoming emoji name within the configured
// emoji list, stripping any ":name:" shortcode down to its bare name before
// comparing. Returns -1 when nothing matches; callers must not mutate on -1.
func indexEmoji(emojis []string, name string) int {
	for i, e := range emojis {
		if strings.Contains(e, ":") {
			parts := strings.Split(e, ":")
			if len(parts) > 1 {
				e = parts[1]
			}
		}
		if e == name {
			return i
		}
	}
	return -1
}

// HandleReactionAdd classifies a reaction-add event and performs its single
// mutation. See the outcome constants for the terminal states.
func (b *Bot) HandleReactionAdd(ctx context.Context, r *discordgo.MessageReactionAdd) (outcome, error) {
	if r.UserID == b.botUserID() {
		return outcomeIgnoredSelf, nil
	}

	cfg, err := b.stores.Config.Get(ctx)
	if err != nil {
		return outcomeNoMatch, fmt.Errorf("error getting config: %w", err)
	}

	// The ticket setup message owns its reactions entirely: the checkmark opens a
	// ticket, anything else is cleared.
	if cfg.TicketSetupMessageID != "" && r.MessageID == cfg.TicketSetupMessageID {
		if err := b.s.MessageReactionRemove(r.ChannelID, r.MessageID, r.Emoji.APIName(), r.UserID); err != nil {
			b.l.Error("Error removing setup reaction", slog.String(logging.KeyError, err.Error()))
		}

		if r.Emoji.Name != checkmarkEmoji {
			return outcomeReactionCleared, nil
		}
		return b.openTicketForReaction(ctx, r.GuildID, r.UserID)
	}

	rr, err := b.stores.ReactionRoles.GetByMessage(ctx, r.MessageID)
	switch {
	case errors.Is(err, dataaccess.ErrNotFound):
		return outcomeNoMatch, nil
	case err != nil:
		return outcomeNoMatch, fmt.Errorf("error getting reaction roles: %w", err)
	}

	idx := indexEmoji(rr.Emojis, r.Emoji.Name)
	if idx < 0 {
		if err := b.s.MessageReactionRemove(r.ChannelID, r.MessageID, r.Emoji.APIName(), r.UserID); err != nil {
			return outcomeReactionCleared, fmt.Errorf("error removing unknown reaction: %w", err)
		}
		return outcomeReactionCleared, nil
	}

	role, err := b.roleByName(r.GuildID, rr.Roles[idx])
	if err != nil {
		return outcomeNoMatch, fmt.Errorf("error resolving role %q: %w", rr.Roles[idx], err)
	}
	if err := b.s.GuildMemberRoleAdd(r.GuildID, r.UserID, role.ID); err != nil {
		return outcomeNoMatch, fmt.Errorf("error granting role: %w", err)
	}
	return outcomeRoleGranted, nil
}

// HandleReactionRemove mirrors the reaction-role grant only: removing a recognised
// reaction revokes the paired role. It never touches tickets.
func (b *Bot) HandleReactionRemove(ctx context.Context, r *discordgo.MessageReactionRemove) (outcome, error) {
	if r.UserID == b.botUserID() {
		return outcomeIgnoredSelf, nil
	}

	rr, err := b.stores.ReactionRoles.GetByMessage(ctx, r.MessageID)
	switch {
	case errors.Is(err, dataaccess.ErrNotFound):
		return outcomeNoMatch, nil
	case err != nil:
		return outcomeNoMatch, fmt.Errorf("error getting reaction roles: %w", err)
	}

	idx := indexEmoji(rr.Emojis, r.Emoji.Name)
	if idx < 0 {
		return outcomeNoMatch, nil
	}

	role, err := b.roleByName(r.GuildID, rr.Roles[idx])
	if err != nil {
		return outcomeNoMatch, fmt.Errorf("error resolving role %q: %w", rr.Roles[idx], err)
	}
	if err := b.s.GuildMemberRoleRemove(r.GuildID, r.UserID, role.ID); err != nil {
		return outcomeNoMatch, fmt.Errorf("error revoking role: %w", err)
	}
	return outcomeRoleRevoked, nil
}

// HandleMessage runs the moderation filters and the command dispatch over one guild
// message.
func (b *Bot) HandleMessage(ctx context.Context, m *discordgo.Message) (outcome, error) {
	if m.GuildID == "" || m.Author == nil || m.Author.ID == b.botUserID() {
		return outcomeIgnoredSelf, nil
	}

	cfg, err := b.stores.Config.Get(ctx)
	if err != nil {
		return outcomeNoMatch, fmt.Errorf("error getting config: %w", err)
	}

	admin, err := b.isAdministrator(m.Author.ID, m.ChannelID)
	if err != nil {
		return outcomeNoMatch, fmt.Errorf("error checking author permissions: %w", err)
	}

	if !admin {
		if deleted, o, err := b.moderateMessage(m, cfg); deleted || err != nil {
			return o, err
		}
	}

	// A message that is exactly a mention of the bot gets the help hint.
	if m.Content == "<@"+b.botUserID()+">" || m.Content == "<@!"+b.botUserID()+">" {
		if _, err := b.s.ChannelMessageSend(m.ChannelID, fmt.Sprintf("For help type: **%shelp**", cfg.Prefix)); err != nil {
			return outcomeHelpHint, fmt.Errorf("error sending help hint: %w", err)
		}
		return outcomeHelpHint, nil
	}

	if cfg.Prefix == "" || !strings.HasPrefix(m.Content, cfg.Prefix) {
		return outcomeNoMatch, nil
	}

	fields := strings.Fields(strings.TrimPrefix(m.Content, cfg.Prefix))
	if len(fields) == 0 {
		return outcomeNoMatch, nil
	}
	name := strings.ToLower(fields[0])
	args := fields[1:]

	// Blacklisted users silently lose every command, custom or built in.
	blacklisted, err := b.stores.Blacklist.IsBlacklisted(ctx, m.Author.ID)
	if err != nil {
		return outcomeNoMatch, fmt.Errorf("error checking blacklist: %w", err)
	}
	if blacklisted {
		return outcomeBlacklisted, nil
	}

	// Custom commands win over built-ins.
	custom, err := b.stores.CustomCommands.Get(ctx, name)
	switch {
	case err == nil:
		if _, err := b.s.ChannelMessageSendEmbed(m.ChannelID, successEmbed("__"+capitalize(name)+"__", custom.Response)); err != nil {
			return outcomeCustomCommand, fmt.Errorf("error sending custom command: %w", err)
		}
		return outcomeCustomCommand, nil
	case !errors.Is(err, dataaccess.ErrNotFound):
		return outcomeNoMatch, fmt.Errorf("error getting custom command: %w", err)
	}

	return b.dispatch(ctx, m, cfg, name, args)
}

// moderateMessage applies the delete-on-sight filters for non-administrator
// authors. It reports whether the message was deleted.
func (b *Bot) moderateMessage(m *discordgo.Message, cfg *entities.BotConfig) (bool, outcome, error) {
	reason := ""
	switch {
	case containsFilteredWord(m.Content, cfg.FilteredWords):
		reason = "filtered word"
	case containsInviteLink(m.Content):
		reason = "invite link"
	case len(m.Mentions) >= mentionFloodLimit:
		reason = "mention flood"
	default:
		return false, outcomeNoMatch, nil
	}

	if err := b.s.ChannelMessageDelete(m.ChannelID, m.ID); err != nil {
		return true, outcomeMessageDeleted, fmt.Errorf("error deleting message (%s): %w", reason, err)
	}

	// Mention flooding additionally earns the muted role, when one is configured
	// and actually exists in the guild.
	if reason == "mention flood" && cfg.MutedRole != "" {
		role, err := b.roleByName(m.GuildID, cfg.MutedRole)
		switch {
		case errors.Is(err, dataaccess.ErrNotFound):
			b.l.Warn("Muted role does not exist in the guild", slog.String("role", cfg.MutedRole))
		case err != nil:
			return true, outcomeMessageDeleted, fmt.Errorf("error resolving muted role: %w", err)
		default:
			if err := b.s.GuildMemberRoleAdd(m.GuildID, m.Author.ID, role.ID); err != nil {
				return true, outcomeMessageDeleted, fmt.Errorf("error applying muted role: %w", err)
			}
		}
	}
	return true, outcomeMessageDeleted, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func containsInviteLink(content string) bool {
	for _, marker := range inviteLinkMarkers {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}

// containsFilteredWord reports whether any whitespace-delimited token of the
// message equals a filtered word. Substrings of longer tokens do not match.
func containsFilteredWord(content string, filtered []string) bool {
	if len(filtered) == 0 {
		return false
	}
	for _, token := range strings.Fields(content) {
		for _, word := range filtered {
			if token == word {
				return true
			}
		}
	}
	return false
}

// HandleMemberJoin sends the welcome embed and applies the on-join role.
func (b *Bot) HandleMemberJoin(ctx context.Context, member *discordgo.Member) error {
	cfg, err := b.stores.Config.Get(ctx)
	if err != nil {
		return fmt.Errorf("error getting config: %w", err)
	}

	if cfg.WelcomeChannelID != "" {
		message := strings.ReplaceAll(cfg.WelcomeMessage, "<member>", member.User.Mention())
		embed := successEmbed("**__Welcome__**", message)
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: member.User.AvatarURL("")}
		if _, err := b.s.ChannelMessageSendEmbed(cfg.WelcomeChannelID, embed); err != nil {
			return fmt.Errorf("error sending welcome message: %w", err)
		}
	}

	if cfg.OnJoinRole != "" {
		role, err := b.roleByName(member.GuildID, cfg.OnJoinRole)
		switch {
		case errors.Is(err, dataaccess.ErrNotFound):
			b.l.Warn("On-join role does not exist in the guild", slog.String("role", cfg.OnJoinRole))
			return nil
		case err != nil:
			return fmt.Errorf("error resolving on-join role: %w", err)
		}
		if err := b.s.GuildMemberRoleAdd(member.GuildID, member.User.ID, role.ID); err != nil {
			return fmt.Errorf("error applying on-join role: %w", err)
		}
	}
	return nil
}

// HandleChannelDelete drops the ticket row owning an externally deleted channel,
// so no row ever references a nonexistent channel.
func (b *Bot) HandleChannelDelete(ctx context.Context, channelID string) error {
	if err := b.stores.Tickets.DeleteTicketByChannel(ctx, channelID); err != nil {
		return fmt.Errorf("error deleting ticket for removed channel: %w", err)
	}
	return nil
}
