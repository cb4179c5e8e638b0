package bot

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/pkg/entities"
)

const (
	transcriptPageSize = 100
	transcriptMaxPages = 5
)

// fetchTranscript renders the channel history oldest-first, one line per
// message. History is paged newest-first by the API, so the pages are walked
// backwards and reversed at the end.
func (b *Bot) fetchTranscript(channelID string) (string, error) {
	all := make([]*discordgo.Message, 0, transcriptPageSize)
	beforeID := ""
	for page := 0; page < transcriptMaxPages; page++ {
		msgs, err := b.s.ChannelMessages(channelID, transcriptPageSize, beforeID, "", "")
		if err != nil {
			return "", fmt.Errorf("error fetching channel messages: %w", err)
		}
		all = append(all, msgs...)
		if len(msgs) < transcriptPageSize {
			break
		}
		beforeID = msgs[len(msgs)-1].ID
	}

	sb := new(strings.Builder)
	for i := len(all) - 1; i >= 0; i-- {
		msg := all[i]
		author := "unknown"
		if msg.Author != nil {
			author = msg.Author.String()
		}
		fmt.Fprintf(sb, "[%s] %s : %s\n", msg.Timestamp.UTC().Format("2006-01-02 15:04:05"), author, msg.Content)
	}
	return sb.String(), nil
}

// sendTranscript delivers the transcript to the ticket requester as a file
// attachment over DM.
func (b *Bot) sendTranscript(ticket *entities.Ticket, transcript string) error {
	dm, err := b.s.UserChannelCreate(ticket.UserID)
	if err != nil {
		return fmt.Errorf("error creating dm channel: %w", err)
	}
	if _, err := b.s.ChannelMessageSendEmbed(dm.ID, infoEmbed("**__Ticket Closed__**",
		fmt.Sprintf("Your ticket `#%d` has been closed. A transcript is attached.", ticket.TicketNumber))); err != nil {
		return fmt.Errorf("error sending close notice: %w", err)
	}
	if transcript == "" {
		transcript = "(no messages)\n"
	}
	if _, err := b.s.ChannelFileSend(dm.ID, fmt.Sprintf("%s.txt", ticket.ChannelName()), strings.NewReader(transcript)); err != nil {
		return fmt.Errorf("error sending transcript file: %w", err)
	}
	return nil
}
