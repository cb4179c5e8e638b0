package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/pkg/dataaccess"
	"github.com/wardenbot/warden/pkg/entities"
)

func (b *Bot) cmdTicket(ctx context.Context, inv *invocation) error {
	ticket, err := b.openTicket(ctx, inv.guildID(), inv.authorID())
	switch {
	case errors.Is(err, dataaccess.ErrTicketExists):
		b.replyError(inv.channelID(), "You already have a ticket open, this ticket must be closed before you can open another.")
		return nil
	case errors.Is(err, errNoTicketCategory):
		b.replyError(inv.channelID(), "There is no category named `tickets` for the channel to be created, please create one and set your permissions correctly.")
		return nil
	case err != nil:
		return err
	}
	b.replySuccess(inv.channelID(), "**__Ticket Created__**", fmt.Sprintf("Your ticket has been created: <#%s>", ticket.ChannelID))
	return nil
}

// requireTicketChannel guards the in-ticket commands, replying when the channel
// is not a ticket.
func (b *Bot) requireTicketChannel(ctx context.Context, inv *invocation) (bool, error) {
	ok, err := b.isTicketChannel(ctx, inv.channelID())
	if err != nil {
		return false, err
	}
	if !ok {
		b.replyError(inv.channelID(), "This command can only be used inside a ticket channel.")
	}
	return ok, nil
}

func (b *Bot) cmdTicketAdd(ctx context.Context, inv *invocation) error {
	ok, err := b.requireTicketChannel(ctx, inv)
	if err != nil || !ok {
		return err
	}
	userID := parseMention(inv.args[0])
	if err := b.s.ChannelPermissionSet(inv.channelID(), userID, discordgo.PermissionOverwriteTypeMember, ticketMemberAllow, 0); err != nil {
		return fmt.Errorf("error adding user to ticket: %w", err)
	}
	b.replySuccess(inv.channelID(), "**__User Added__**", fmt.Sprintf("<@%s> has been added to the ticket.", userID))
	return nil
}

func (b *Bot) cmdTicketRemove(ctx context.Context, inv *invocation) error {
	ok, err := b.requireTicketChannel(ctx, inv)
	if err != nil || !ok {
		return err
	}
	userID := parseMention(inv.args[0])
	if err := b.s.ChannelPermissionSet(inv.channelID(), userID, discordgo.PermissionOverwriteTypeMember, 0, discordgo.PermissionViewChannel); err != nil {
		return fmt.Errorf("error removing user from ticket: %w", err)
	}
	b.replySuccess(inv.channelID(), "**__User Removed__**", fmt.Sprintf("<@%s> has been removed from the ticket.", userID))
	return nil
}

func (b *Bot) cmdTicketRename(ctx context.Context, inv *invocation) error {
	ok, err := b.requireTicketChannel(ctx, inv)
	if err != nil || !ok {
		return err
	}
	name := inv.args[0]
	if _, err := b.s.ChannelEdit(inv.channelID(), &discordgo.ChannelEdit{Name: name}); err != nil {
		return fmt.Errorf("error renaming ticket: %w", err)
	}
	b.replySuccess(inv.channelID(), "**__Ticket Renamed__**", fmt.Sprintf("The ticket is now named `%s`.", name))
	return nil
}

func (b *Bot) cmdTicketRole(ctx context.Context, inv *invocation) error {
	ok, err := b.requireTicketChannel(ctx, inv)
	if err != nil || !ok {
		return err
	}

	role, err := b.roleByName(inv.guildID(), inv.rest(1))
	switch {
	case errors.Is(err, dataaccess.ErrNotFound):
		b.replyError(inv.channelID(), "No role with that name exists.")
		return nil
	case err != nil:
		return err
	}

	switch inv.args[0] {
	case "add":
		if err := b.s.ChannelPermissionSet(inv.channelID(), role.ID, discordgo.PermissionOverwriteTypeRole, ticketMemberAllow, 0); err != nil {
			return fmt.Errorf("error granting role on ticket: %w", err)
		}
		b.replySuccess(inv.channelID(), "**__Role Added__**", fmt.Sprintf("`%s` can now view the ticket.", role.Name))
	case "remove":
		if err := b.s.ChannelPermissionSet(inv.channelID(), role.ID, discordgo.PermissionOverwriteTypeRole, 0, discordgo.PermissionViewChannel); err != nil {
			return fmt.Errorf("error revoking role on ticket: %w", err)
		}
		b.replySuccess(inv.channelID(), "**__Role Removed__**", fmt.Sprintf("`%s` can no longer view the ticket.", role.Name))
	default:
		b.replyError(inv.channelID(), fmt.Sprintf("Usage: **%strole <add|remove> <role>**", inv.cfg.Prefix))
	}
	return nil
}

func (b *Bot) cmdTicketUpgrade(ctx context.Context, inv *invocation) error {
	ok, err := b.requireTicketChannel(ctx, inv)
	if err != nil || !ok {
		return err
	}
	// Deny every guild role, including @everyone, so earlier trole grants do
	// not keep the channel visible. Administrators keep access implicitly.
	roles, err := b.s.GuildRoles(inv.guildID())
	if err != nil {
		return fmt.Errorf("error listing guild roles: %w", err)
	}
	for _, role := range roles {
		if err := b.s.ChannelPermissionSet(inv.channelID(), role.ID, discordgo.PermissionOverwriteTypeRole, 0, discordgo.PermissionViewChannel); err != nil {
			return fmt.Errorf("error upgrading ticket: %w", err)
		}
	}
	b.replySuccess(inv.channelID(), "**__Ticket Upgraded__**", "Only administrators can view this ticket now.")
	return nil
}

func (b *Bot) cmdTicketClose(ctx context.Context, inv *invocation) error {
	err := b.closeTicket(ctx, inv.channelID(), inv.authorID(), inv.rest(0))
	if errors.Is(err, ErrNotTicketChannel) {
		b.replyError(inv.channelID(), "This command can only be used inside a ticket channel.")
		return nil
	}
	return err
}

func (b *Bot) cmdSetupTickets(ctx context.Context, inv *invocation) error {
	msg, err := b.s.ChannelMessageSendEmbed(inv.channelID(), infoEmbed("**__Support Tickets__**",
		fmt.Sprintf("React with %s to open a support ticket.", checkmarkEmoji)))
	if err != nil {
		return fmt.Errorf("error sending setup message: %w", err)
	}
	if err := b.s.MessageReactionAdd(inv.channelID(), msg.ID, checkmarkEmoji); err != nil {
		return fmt.Errorf("error seeding setup reaction: %w", err)
	}
	if _, err := b.stores.Config.Update(ctx, func(cfg *entities.BotConfig) {
		cfg.TicketSetupMessageID = msg.ID
	}); err != nil {
		return fmt.Errorf("error saving setup message id: %w", err)
	}
	return nil
}
