package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/pkg/dataaccess"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/wardenbot/warden/pkg/logging"
)

const (
	// ticketCategoryName is the category ticket channels are created under. Staff
	// create it manually with their desired permissions.
	ticketCategoryName = "tickets"

	ticketIntroMessage = "**__Ticket Support__**\n**Please describe your issue in detail and a staff member should assist you shortly.**"

	// ticketMemberAllow is granted to the requester (and added users) on the
	// ticket channel.
	ticketMemberAllow = discordgo.PermissionViewChannel |
		discordgo.PermissionSendMessages |
		discordgo.PermissionReadMessageHistory
)

// ErrNotTicketChannel is returned when a ticket operation runs outside a ticket.
var ErrNotTicketChannel = errors.New("channel is not a ticket")

// openTicket creates the dedicated channel and the ledger row for a new ticket.
// Preconditions (one open ticket per user, category exists) are re-checked by the
// store's create, which is the single critical section.
func (b *Bot) openTicket(ctx context.Context, guildID, userID string) (*entities.Ticket, error) {
	// Cheap duplicate check first so we do not create a channel we then have to
	// tear down. The store re-checks under its lock.
	if _, err := b.stores.Tickets.GetTicketByUser(ctx, userID); err == nil {
		return nil, dataaccess.ErrTicketExists
	} else if !errors.Is(err, dataaccess.ErrNotFound) {
		return nil, fmt.Errorf("error checking for open ticket: %w", err)
	}

	category, err := b.categoryByName(guildID, ticketCategoryName)
	switch {
	case errors.Is(err, dataaccess.ErrNotFound):
		return nil, errNoTicketCategory
	case err != nil:
		return nil, fmt.Errorf("error finding ticket category: %w", err)
	}

	channel, err := b.s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:     "ticket",
		Type:     discordgo.ChannelTypeGuildText,
		Topic:    "Support ticket",
		ParentID: category.ID,
		PermissionOverwrites: []*discordgo.PermissionOverwrite{
			// Deny @everyone from seeing the ticket.
			{
				ID:   guildID,
				Type: discordgo.PermissionOverwriteTypeRole,
				Deny: discordgo.PermissionViewChannel,
			},
			// The requester can see and use the ticket.
			{
				ID:    userID,
				Type:  discordgo.PermissionOverwriteTypeMember,
				Allow: ticketMemberAllow,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("error creating ticket channel: %w", err)
	}

	ticket, err := b.stores.Tickets.CreateTicket(ctx, userID, channel.ID)
	if err != nil {
		// The channel exists but the row does not; remove the channel so the two
		// stay consistent.
		if _, derr := b.s.ChannelDelete(channel.ID); derr != nil {
			b.l.Error("Error deleting channel for failed ticket", slog.String(logging.KeyError, derr.Error()))
		}
		return nil, err
	}

	// Name the channel after its allocated number.
	if _, err := b.s.ChannelEdit(channel.ID, &discordgo.ChannelEdit{Name: ticket.ChannelName()}); err != nil {
		b.l.Error("Error renaming ticket channel", slog.String(logging.KeyError, err.Error()))
	}

	if _, err := b.s.ChannelMessageSend(channel.ID, fmt.Sprintf("%s\n<@%s>", ticketIntroMessage, userID)); err != nil {
		b.l.Error("Error sending ticket intro", slog.String(logging.KeyError, err.Error()))
	}

	return ticket, nil
}

// openTicketForReaction runs the open flow for a checkmark on the setup message,
// notifying the actor over DM on every terminal state.
func (b *Bot) openTicketForReaction(ctx context.Context, guildID, userID string) (outcome, error) {
	ticket, err := b.openTicket(ctx, guildID, userID)
	switch {
	case errors.Is(err, dataaccess.ErrTicketExists):
		if err := b.dmEmbed(userID, errorEmbed("You already have a ticket open, this ticket must be closed before you can open another.")); err != nil {
			b.l.Error("Error notifying duplicate ticket", slog.String(logging.KeyError, err.Error()))
		}
		return outcomeDuplicateTicket, nil
	case errors.Is(err, errNoTicketCategory):
		if err := b.dmEmbed(userID, errorEmbed("There is no category named `tickets` for the channel to be created, please create one and set your permissions correctly.")); err != nil {
			b.l.Error("Error notifying missing category", slog.String(logging.KeyError, err.Error()))
		}
		return outcomeNoTicketCategory, nil
	case err != nil:
		return outcomeNoMatch, err
	}

	guildName := guildID
	if guild, err := b.s.Guild(guildID); err == nil {
		guildName = guild.Name
	}
	if err := b.dmEmbed(userID, successEmbed("**__Ticket Created__**",
		fmt.Sprintf("**A ticket channel has been created for you in** `%s`", guildName))); err != nil {
		b.l.Error("Error notifying ticket created",
			slog.String(logging.KeyError, err.Error()),
			slog.Int("ticket", ticket.TicketNumber),
		)
	}
	return outcomeTicketOpened, nil
}

// closeTicket exports the transcript, DMs it to the requester, and then deletes
// the channel and the row together. The channel+row deletion is the commit point:
// a failed transcript fetch aborts before it, and a failed DM never blocks it.
func (b *Bot) closeTicket(ctx context.Context, channelID, closedBy, reason string) error {
	ticket, err := b.stores.Tickets.GetTicketByChannel(ctx, channelID)
	switch {
	case errors.Is(err, dataaccess.ErrNotFound):
		return ErrNotTicketChannel
	case err != nil:
		return fmt.Errorf("error getting ticket: %w", err)
	}

	transcript, err := b.fetchTranscript(channelID)
	if err != nil {
		return fmt.Errorf("error fetching transcript: %w", err)
	}

	if reason == "" {
		reason = "none given"
	}
	if _, err := b.s.ChannelMessageSend(channelID, fmt.Sprintf("Ticket closed by <@%s>\nReason: %s", closedBy, reason)); err != nil {
		b.l.Error("Error announcing ticket close", slog.String(logging.KeyError, err.Error()))
	}

	// DM failure is logged, never fatal: cleanup must still happen.
	if err := b.sendTranscript(ticket, transcript); err != nil {
		b.l.Error("Error sending transcript",
			slog.String(logging.KeyError, err.Error()),
			slog.Int("ticket", ticket.TicketNumber),
			slog.String(logging.KeyUser, ticket.UserID),
		)
	}

	if _, err := b.s.ChannelDelete(channelID); err != nil {
		return fmt.Errorf("error deleting ticket channel: %w", err)
	}
	// The channel-delete gateway event also removes the row; doing it here keeps
	// the ledger correct even when that event is never delivered.
	if err := b.stores.Tickets.DeleteTicketByChannel(ctx, channelID); err != nil {
		return fmt.Errorf("error deleting ticket row: %w", err)
	}
	return nil
}

// isTicketChannel reports whether the channel owns a ticket row.
func (b *Bot) isTicketChannel(ctx context.Context, channelID string) (bool, error) {
	_, err := b.stores.Tickets.GetTicketByChannel(ctx, channelID)
	switch {
	case errors.Is(err, dataaccess.ErrNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("error getting ticket: %w", err)
	}
	return true, nil
}
