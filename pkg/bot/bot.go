package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/pkg/dataaccess"
)

// Stores bundles the data access layers the bot depends on.
type Stores struct {
	Config         dataaccess.ConfigDal
	Tickets        dataaccess.TicketDal
	ReactionRoles  dataaccess.ReactionRoleDal
	CustomCommands dataaccess.CustomCommandDal
	Blacklist      dataaccess.BlacklistDal
}

// Bot routes gateway events and dispatches prefixed text commands. One Bot serves
// the whole process; discordgo invokes its handlers concurrently, and all shared
// mutable state lives behind the stores.
type Bot struct {
	// l is the logger.
	l *slog.Logger

	// s is the Discord session.
	s Session

	// stores are the persisted state backends.
	stores Stores

	// registry maps command names to handlers, resolved once at construction.
	registry *registry

	// giveaways tracks the outstanding giveaway timer tasks.
	giveaways *giveawayRunner

	// mu guards botID, which is only known once the gateway reports Ready.
	mu    sync.RWMutex
	botID string
}

// New creates the bot and resolves its command registry.
func New(l *slog.Logger, s Session, stores Stores) *Bot {
	b := &Bot{
		l:      l,
		s:      s,
		stores: stores,
	}
	b.registry = b.buildRegistry()
	b.giveaways = newGiveawayRunner(l, s, b.botUserID)
	return b
}

// SetBotUser records the bot's own user ID, reported by the Ready event. Events
// arriving before that are classified with an empty ID, which matches nothing.
func (b *Bot) SetBotUser(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.botID = id
}

func (b *Bot) botUserID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.botID
}

// Shutdown cancels every outstanding giveaway timer task.
func (b *Bot) Shutdown() {
	b.giveaways.StopAll()
}

// isAdministrator reports whether the user holds the administrator bit in the
// channel's guild.
func (b *Bot) isAdministrator(userID, channelID string) (bool, error) {
	perms, err := b.s.UserChannelPermissions(userID, channelID)
	if err != nil {
		return false, fmt.Errorf("error getting permissions: %w", err)
	}
	return perms&discordgo.PermissionAdministrator != 0, nil
}

// dmEmbed sends an embed to the user's DM channel.
func (b *Bot) dmEmbed(userID string, embed *discordgo.MessageEmbed) error {
	dm, err := b.s.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("error creating DM channel: %w", err)
	}
	if _, err := b.s.ChannelMessageSendEmbed(dm.ID, embed); err != nil {
		return fmt.Errorf("error sending DM: %w", err)
	}
	return nil
}

// roleByName finds a guild role by name, case-insensitively. dataaccess.ErrNotFound
// when the guild has no such role.
func (b *Bot) roleByName(guildID, name string) (*discordgo.Role, error) {
	roles, err := b.s.GuildRoles(guildID)
	if err != nil {
		return nil, fmt.Errorf("error getting roles: %w", err)
	}
	for _, r := range roles {
		if strings.EqualFold(r.Name, name) {
			return r, nil
		}
	}
	return nil, dataaccess.ErrNotFound
}

// categoryByName finds a channel category by name, case-insensitively.
func (b *Bot) categoryByName(guildID, name string) (*discordgo.Channel, error) {
	channels, err := b.s.GuildChannels(guildID)
	if err != nil {
		return nil, fmt.Errorf("error getting channels: %w", err)
	}
	for _, c := range channels {
		if c.Type == discordgo.ChannelTypeGuildCategory && strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return nil, dataaccess.ErrNotFound
}

// replyError reports a user-facing failure in the invoking channel.
func (b *Bot) replyError(channelID, description string) {
	if _, err := b.s.ChannelMessageSendEmbed(channelID, errorEmbed(description)); err != nil {
		b.l.Error("Error sending error embed", slog.String("channel", channelID))
	}
}

// replySuccess reports a user-facing success in the invoking channel.
func (b *Bot) replySuccess(channelID, title, description string) {
	if _, err := b.s.ChannelMessageSendEmbed(channelID, successEmbed(title, description)); err != nil {
		b.l.Error("Error sending success embed", slog.String("channel", channelID))
	}
}

// parseMention strips user mention decoration (<@id> or <@!id>) down to the ID.
// Plain IDs pass through untouched.
func parseMention(arg string) string {
	arg = strings.TrimSuffix(arg, ">")
	arg = strings.TrimPrefix(arg, "<@")
	arg = strings.TrimPrefix(arg, "!")
	arg = strings.TrimPrefix(arg, "&")
	return arg
}

// errNoTicketCategory is returned when the guild has no category named "tickets".
var errNoTicketCategory = errors.New("no tickets category")
