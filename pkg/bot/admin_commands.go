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
	"golang.org/x/time/rate"
)

// messageAllRate throttles the broadcast DMs so the Discord rate limiter is
// never tripped by a large guild.
var messageAllRate = rate.Limit(1)

func (b *Bot) cmdBlacklist(ctx context.Context, inv *invocation) error {
	userID := parseMention(inv.args[0])
	err := b.stores.Blacklist.Add(ctx, userID)
	switch {
	case errors.Is(err, dataaccess.ErrAlreadyBlacklisted):
		b.replyError(inv.channelID(), "That user is already blacklisted.")
		return nil
	case err != nil:
		return err
	}
	b.replySuccess(inv.channelID(), "**__User Blacklisted__**", fmt.Sprintf("<@%s> can no longer use the bot.", userID))
	return nil
}

func (b *Bot) cmdUnblacklist(ctx context.Context, inv *invocation) error {
	userID := parseMention(inv.args[0])
	err := b.stores.Blacklist.Remove(ctx, userID)
	switch {
	case errors.Is(err, dataaccess.ErrNotFound):
		b.replyError(inv.channelID(), "That user is not blacklisted.")
		return nil
	case err != nil:
		return err
	}
	b.replySuccess(inv.channelID(), "**__User Unblacklisted__**", fmt.Sprintf("<@%s> can use the bot again.", userID))
	return nil
}

func (b *Bot) cmdCreateCmd(ctx context.Context, inv *invocation) error {
	name := strings.ToLower(inv.args[0])
	if b.registry.lookup(name) != nil {
		b.replyError(inv.channelID(), "A built-in command already has that name.")
		return nil
	}
	if err := b.stores.CustomCommands.Set(ctx, name, inv.rest(1)); err != nil {
		return err
	}
	b.replySuccess(inv.channelID(), "**__Command Created__**", fmt.Sprintf("`%s%s` will now reply with your message.", inv.cfg.Prefix, name))
	return nil
}

func (b *Bot) cmdDelCmd(ctx context.Context, inv *invocation) error {
	name := strings.ToLower(inv.args[0])
	err := b.stores.CustomCommands.Delete(ctx, name)
	switch {
	case errors.Is(err, dataaccess.ErrNotFound):
		b.replyError(inv.channelID(), "No custom command with that name exists.")
		return nil
	case err != nil:
		return err
	}
	b.replySuccess(inv.channelID(), "**__Command Deleted__**", fmt.Sprintf("`%s%s` has been removed.", inv.cfg.Prefix, name))
	return nil
}

func (b *Bot) cmdFilterAdd(ctx context.Context, inv *invocation) error {
	word := strings.ToLower(inv.args[0])
	_, err := b.stores.Config.Update(ctx, func(cfg *entities.BotConfig) {
		for _, w := range cfg.FilteredWords {
			if w == word {
				return
			}
		}
		cfg.FilteredWords = append(cfg.FilteredWords, word)
	})
	if err != nil {
		return err
	}
	b.replySuccess(inv.channelID(), "**__Filter Updated__**", fmt.Sprintf("`%s` is now filtered.", word))
	return nil
}

func (b *Bot) cmdFilterRemove(ctx context.Context, inv *invocation) error {
	word := strings.ToLower(inv.args[0])
	_, err := b.stores.Config.Update(ctx, func(cfg *entities.BotConfig) {
		kept := cfg.FilteredWords[:0]
		for _, w := range cfg.FilteredWords {
			if w != word {
				kept = append(kept, w)
			}
		}
		cfg.FilteredWords = kept
	})
	if err != nil {
		return err
	}
	b.replySuccess(inv.channelID(), "**__Filter Updated__**", fmt.Sprintf("`%s` is no longer filtered.", word))
	return nil
}

func (b *Bot) cmdFiltered(ctx context.Context, inv *invocation) error {
	if len(inv.cfg.FilteredWords) == 0 {
		b.replySuccess(inv.channelID(), "**__Filtered Words__**", "No words are filtered.")
		return nil
	}
	b.replySuccess(inv.channelID(), "**__Filtered Words__**", strings.Join(inv.cfg.FilteredWords, ", "))
	return nil
}

func (b *Bot) cmdSetID(ctx context.Context, inv *invocation) error {
	feature := strings.ToLower(inv.args[0])
	id := inv.args[1]
	known := true
	_, err := b.stores.Config.Update(ctx, func(cfg *entities.BotConfig) {
		switch feature {
		case "welcome":
			cfg.WelcomeChannelID = id
		case "logging":
			cfg.LoggingChannelID = id
		case "suggestions":
			cfg.SuggestionsChannelID = id
		case "giveaways":
			cfg.GiveawaysChannelID = id
		default:
			known = false
		}
	})
	if err != nil {
		return err
	}
	if !known {
		b.replyError(inv.channelID(), "Unknown feature, expected one of: welcome, logging, suggestions, giveaways.")
		return nil
	}
	b.replySuccess(inv.channelID(), "**__Channel Set__**", fmt.Sprintf("The %s channel is now <#%s>.", feature, id))
	return nil
}

func (b *Bot) cmdSetWelcome(ctx context.Context, inv *invocation) error {
	msg := inv.rest(0)
	if _, err := b.stores.Config.Update(ctx, func(cfg *entities.BotConfig) {
		cfg.WelcomeMessage = msg
	}); err != nil {
		return err
	}
	b.replySuccess(inv.channelID(), "**__Welcome Message Set__**", msg)
	return nil
}

func (b *Bot) cmdSetPrefix(ctx context.Context, inv *invocation) error {
	prefix := inv.args[0]
	if _, err := b.stores.Config.Update(ctx, func(cfg *entities.BotConfig) {
		cfg.Prefix = prefix
	}); err != nil {
		return err
	}
	b.replySuccess(inv.channelID(), "**__Prefix Changed__**", fmt.Sprintf("Commands now start with `%s`.", prefix))
	return nil
}

func (b *Bot) cmdStatus(ctx context.Context, inv *invocation) error {
	status := strings.ToLower(inv.args[0])
	switch status {
	case "online", "idle", "dnd":
	default:
		b.replyError(inv.channelID(), "Status must be one of: online, idle, dnd.")
		return nil
	}
	cfg, err := b.stores.Config.Update(ctx, func(cfg *entities.BotConfig) {
		cfg.OnlineStatus = status
	})
	if err != nil {
		return err
	}
	if err := b.ApplyPresence(cfg); err != nil {
		return err
	}
	b.replySuccess(inv.channelID(), "**__Status Changed__**", fmt.Sprintf("The bot is now `%s`.", status))
	return nil
}

func (b *Bot) cmdPlaying(ctx context.Context, inv *invocation) error {
	return b.setActivity(ctx, inv, "playing")
}

func (b *Bot) cmdListening(ctx context.Context, inv *invocation) error {
	return b.setActivity(ctx, inv, "listening")
}

func (b *Bot) cmdWatching(ctx context.Context, inv *invocation) error {
	return b.setActivity(ctx, inv, "watching")
}

func (b *Bot) setActivity(ctx context.Context, inv *invocation, kind string) error {
	text := inv.rest(0)
	cfg, err := b.stores.Config.Update(ctx, func(cfg *entities.BotConfig) {
		cfg.PlayingStatus = text
		cfg.ActivityType = kind
	})
	if err != nil {
		return err
	}
	if err := b.ApplyPresence(cfg); err != nil {
		return err
	}
	b.replySuccess(inv.channelID(), "**__Status Changed__**",
		fmt.Sprintf("Status changed to: `%s %s`.", capitalize(kind), text))
	return nil
}

// ApplyPresence pushes the configured presence to the gateway.
func (b *Bot) ApplyPresence(cfg *entities.BotConfig) error {
	usd := discordgo.UpdateStatusData{Status: cfg.OnlineStatus}
	if cfg.PlayingStatus != "" {
		usd.Activities = []*discordgo.Activity{{
			Name: cfg.PlayingStatus,
			Type: activityType(cfg.ActivityType),
		}}
	}
	if err := b.s.UpdateStatusComplex(usd); err != nil {
		return fmt.Errorf("error updating presence: %w", err)
	}
	return nil
}

func activityType(kind string) discordgo.ActivityType {
	switch kind {
	case "listening":
		return discordgo.ActivityTypeListening
	case "watching":
		return discordgo.ActivityTypeWatching
	default:
		return discordgo.ActivityTypeGame
	}
}

func (b *Bot) cmdMessageAll(ctx context.Context, inv *invocation) error {
	content := inv.rest(0)
	embed := infoEmbed("**__Server Announcement__**", content)

	limiter := rate.NewLimiter(messageAllRate, 1)
	sent, failed := 0, 0
	after := ""
	for {
		members, err := b.s.GuildMembers(inv.guildID(), after, 1000)
		if err != nil {
			return fmt.Errorf("error listing members: %w", err)
		}
		if len(members) == 0 {
			break
		}
		for _, member := range members {
			after = member.User.ID
			if member.User.Bot {
				continue
			}
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			if err := b.dmEmbed(member.User.ID, embed); err != nil {
				// Many users have DMs closed; carry on.
				failed++
				b.l.Debug("Error broadcasting DM",
					slog.String(logging.KeyUser, member.User.ID),
					slog.String(logging.KeyError, err.Error()),
				)
				continue
			}
			sent++
		}
		if len(members) < 1000 {
			break
		}
	}

	b.replySuccess(inv.channelID(), "**__Message Sent__**", fmt.Sprintf("Delivered to %d members (%d unreachable).", sent, failed))
	return nil
}
