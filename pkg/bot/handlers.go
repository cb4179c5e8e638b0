package bot

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/pkg/logging"
)

// handlerTimeout bounds the store work a single gateway event may perform.
const handlerTimeout = 30 * time.Second

// OnMessageCreate is the discordgo MessageCreate handler.
func (b *Bot) OnMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if _, err := b.HandleMessage(ctx, m.Message); err != nil {
		b.l.Error("Error handling message",
			slog.String(logging.KeyChannel, m.ChannelID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}

// OnReactionAdd is the discordgo MessageReactionAdd handler.
func (b *Bot) OnReactionAdd(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if _, err := b.HandleReactionAdd(ctx, r); err != nil {
		b.l.Error("Error handling reaction add",
			slog.String(logging.KeyChannel, r.ChannelID),
			slog.String(logging.KeyUser, r.UserID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}

// OnReactionRemove is the discordgo MessageReactionRemove handler.
func (b *Bot) OnReactionRemove(_ *discordgo.Session, r *discordgo.MessageReactionRemove) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if _, err := b.HandleReactionRemove(ctx, r); err != nil {
		b.l.Error("Error handling reaction remove",
			slog.String(logging.KeyChannel, r.ChannelID),
			slog.String(logging.KeyUser, r.UserID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}

// OnMemberJoin is the discordgo GuildMemberAdd handler.
func (b *Bot) OnMemberJoin(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if err := b.HandleMemberJoin(ctx, m.Member); err != nil {
		b.l.Error("Error handling member join",
			slog.String(logging.KeyUser, m.User.ID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}

// OnChannelDelete is the discordgo ChannelDelete handler.
func (b *Bot) OnChannelDelete(_ *discordgo.Session, c *discordgo.ChannelDelete) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	if err := b.HandleChannelDelete(ctx, c.ID); err != nil {
		b.l.Error("Error handling channel delete",
			slog.String(logging.KeyChannel, c.ID),
			slog.String(logging.KeyError, err.Error()),
		)
	}
}
