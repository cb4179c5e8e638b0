package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/pkg/bot/monitoring"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/wardenbot/warden/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
)

// handlerFunc processes one command invocation.
type handlerFunc func(ctx context.Context, inv *invocation) error

// command is one built-in command. Argument grammar is positional and
// whitespace-delimited, with an optional trailing free-text capture the handler
// takes via invocation.Rest.
type command struct {
	// name is the primary, lower-cased command name.
	name string

	// aliases are alternative names resolving to the same command.
	aliases []string

	// description is shown by the help command.
	description string

	// permission is the Discord permission bit required to run the command.
	// Zero means anyone may run it. Administrators always pass.
	permission int64

	// minArgs is the minimum number of positional arguments.
	minArgs int

	// usage documents the positional arguments, e.g. "<@user> <reason>".
	usage string

	// run is the handler.
	run handlerFunc
}

// invocation carries one parsed command invocation to its handler.
type invocation struct {
	// message is the raw triggering message.
	message *discordgo.Message

	// cfg is the configuration snapshot the dispatch was classified under.
	cfg *entities.BotConfig

	// args are the whitespace-delimited tokens after the command name.
	args []string
}

func (inv *invocation) guildID() string   { return inv.message.GuildID }
func (inv *invocation) channelID() string { return inv.message.ChannelID }
func (inv *invocation) authorID() string  { return inv.message.Author.ID }

// rest joins all arguments from position n into the trailing free-text capture.
func (inv *invocation) rest(n int) string {
	if n >= len(inv.args) {
		return ""
	}
	return strings.Join(inv.args[n:], " ")
}

// registry resolves command names to handlers. It is built once at startup and
// read-only afterwards.
type registry struct {
	byName map[string]*command
	order  []*command
}

func newRegistry() *registry {
	return &registry{
		byName: make(map[string]*command),
	}
}

// add registers a command under its name and aliases. Duplicate names are a
// programming error and panic at startup.
func (r *registry) add(c *command) {
	names := append([]string{c.name}, c.aliases...)
	for _, n := range names {
		if _, ok := r.byName[n]; ok {
			panic(fmt.Sprintf("duplicate command name %q", n))
		}
		r.byName[n] = c
	}
	r.order = append(r.order, c)
}

// lookup resolves a lower-cased name or alias. Nil when unknown.
func (r *registry) lookup(name string) *command {
	return r.byName[name]
}

// dispatch runs a built-in command: permission check first, then argument-count
// check, then the handler. The blacklist has already been consulted by the caller.
func (b *Bot) dispatch(ctx context.Context, m *discordgo.Message, cfg *entities.BotConfig, name string, args []string) (outcome, error) {
	cmd := b.registry.lookup(name)
	if cmd == nil {
		return outcomeNoMatch, nil
	}

	t := prometheus.NewTimer(monitoring.CommandDuration.WithLabelValues(cmd.name))
	defer t.ObserveDuration()

	// Permission-denied is intercepted here, before the handler runs.
	if cmd.permission != 0 {
		perms, err := b.s.UserChannelPermissions(m.Author.ID, m.ChannelID)
		if err != nil {
			return outcomeNoMatch, fmt.Errorf("error getting permissions: %w", err)
		}
		if perms&cmd.permission == 0 && perms&discordgo.PermissionAdministrator == 0 {
			monitoring.CommandTotal.WithLabelValues(cmd.name, outcomePermissionDenied.String()).Inc()
			b.replyError(m.ChannelID, "You do not have permission to use this command.")
			return outcomePermissionDenied, nil
		}
	}

	if len(args) < cmd.minArgs {
		monitoring.CommandTotal.WithLabelValues(cmd.name, outcomeUsageError.String()).Inc()
		b.replyError(m.ChannelID, fmt.Sprintf("Usage: **%s%s %s**", cfg.Prefix, cmd.name, cmd.usage))
		return outcomeUsageError, nil
	}

	inv := &invocation{
		message: m,
		cfg:     cfg,
		args:    args,
	}

	if err := cmd.run(ctx, inv); err != nil {
		monitoring.CommandTotal.WithLabelValues(cmd.name, "error").Inc()
		b.l.Error("Error running command",
			slog.String(logging.KeyCommand, cmd.name),
			slog.String(logging.KeyUser, m.Author.ID),
			slog.String(logging.KeyError, err.Error()),
		)
		b.replyError(m.ChannelID, "Something went wrong while running that command.")
		return outcomeCommandDispatched, err
	}
	monitoring.CommandTotal.WithLabelValues(cmd.name, outcomeCommandDispatched.String()).Inc()

	b.logCommand(cfg, m)

	return outcomeCommandDispatched, nil
}

// logCommand emits an audit embed to the logging channel, when one is configured.
func (b *Bot) logCommand(cfg *entities.BotConfig, m *discordgo.Message) {
	if cfg.LoggingChannelID == "" {
		return
	}
	embed := successEmbed("__Logged Command__", "")
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "**User**", Value: m.Author.Mention(), Inline: true},
		{Name: "**Command**", Value: m.Content, Inline: true},
	}
	if _, err := b.s.ChannelMessageSendEmbed(cfg.LoggingChannelID, embed); err != nil {
		b.l.Error("Error logging command", slog.String(logging.KeyError, err.Error()))
	}
}

// buildRegistry resolves the full built-in command set once at startup.
func (b *Bot) buildRegistry() *registry {
	r := newRegistry()

	// Tickets.
	r.add(&command{name: "ticket", aliases: []string{"new", "createticket"}, description: "Opens a support ticket. Users may only have one open ticket at a time.", run: b.cmdTicket})
	r.add(&command{name: "ticketadd", aliases: []string{"add", "tadd"}, description: "Adds a user to the ticket.", permission: discordgo.PermissionManageChannels, minArgs: 1, usage: "<@user>", run: b.cmdTicketAdd})
	r.add(&command{name: "ticketremove", aliases: []string{"remove", "tremove"}, description: "Removes a user from the ticket.", permission: discordgo.PermissionManageChannels, minArgs: 1, usage: "<@user>", run: b.cmdTicketRemove})
	r.add(&command{name: "trename", aliases: []string{"rename"}, description: "Renames a ticket channel.", permission: discordgo.PermissionManageChannels, minArgs: 1, usage: "<name>", run: b.cmdTicketRename})
	r.add(&command{name: "trole", aliases: []string{"ticketrole"}, description: "Adds or removes a role from viewing the ticket.", permission: discordgo.PermissionManageChannels, minArgs: 2, usage: "<add|remove> <role>", run: b.cmdTicketRole})
	r.add(&command{name: "tupgrade", aliases: []string{"upgrade"}, description: "Upgrades a ticket so only administrators can view it.", permission: discordgo.PermissionManageChannels, run: b.cmdTicketUpgrade})
	r.add(&command{name: "close", description: "Closes the ticket, exporting a transcript to the requester.", permission: discordgo.PermissionManageChannels, usage: "<reason>", run: b.cmdTicketClose})
	r.add(&command{name: "setuptickets", description: "Posts the reaction message that opens tickets.", permission: discordgo.PermissionAdministrator, run: b.cmdSetupTickets})

	// Administration.
	r.add(&command{name: "blacklist", description: "Blacklists a user from using the bot.", permission: discordgo.PermissionAdministrator, minArgs: 1, usage: "<@user>", run: b.cmdBlacklist})
	r.add(&command{name: "unblacklist", description: "Removes a user from the bot's blacklist.", permission: discordgo.PermissionAdministrator, minArgs: 1, usage: "<@user>", run: b.cmdUnblacklist})
	r.add(&command{name: "createcmd", description: "Creates a custom command.", permission: discordgo.PermissionAdministrator, minArgs: 2, usage: "<name> <reply>", run: b.cmdCreateCmd})
	r.add(&command{name: "delcmd", description: "Deletes a custom command.", permission: discordgo.PermissionAdministrator, minArgs: 1, usage: "<name>", run: b.cmdDelCmd})
	r.add(&command{name: "filteradd", description: "Adds a word to the auto-delete filter.", permission: discordgo.PermissionAdministrator, minArgs: 1, usage: "<word>", run: b.cmdFilterAdd})
	r.add(&command{name: "filterremove", description: "Removes a word from the auto-delete filter.", permission: discordgo.PermissionAdministrator, minArgs: 1, usage: "<word>", run: b.cmdFilterRemove})
	r.add(&command{name: "filtered", description: "Shows the auto-delete word filter.", permission: discordgo.PermissionAdministrator, run: b.cmdFiltered})
	r.add(&command{name: "setid", description: "Sets a feature channel ID.", permission: discordgo.PermissionAdministrator, minArgs: 2, usage: "<welcome|logging|suggestions|giveaways> <id>", run: b.cmdSetID})
	r.add(&command{name: "setwelcome", description: "Sets the welcome message. Use <member> where the mention should go.", permission: discordgo.PermissionAdministrator, minArgs: 1, usage: "<message>", run: b.cmdSetWelcome})
	r.add(&command{name: "setprefix", description: "Changes the bot's command prefix.", permission: discordgo.PermissionAdministrator, minArgs: 1, usage: "<prefix>", run: b.cmdSetPrefix})
	r.add(&command{name: "status", description: "Changes the bot's online status.", permission: discordgo.PermissionAdministrator, minArgs: 1, usage: "<online|idle|dnd>", run: b.cmdStatus})
	r.add(&command{name: "playing", description: "Changes the bot's playing status.", permission: discordgo.PermissionAdministrator, minArgs: 1, usage: "<text>", run: b.cmdPlaying})
	r.add(&command{name: "listening", description: "Changes the bot's listening status.", permission: discordgo.PermissionAdministrator, minArgs: 1, usage: "<text>", run: b.cmdListening})
	r.add(&command{name: "watching", description: "Changes the bot's watching status.", permission: discordgo.PermissionAdministrator, minArgs: 1, usage: "<text>", run: b.cmdWatching})
	r.add(&command{name: "messageall", description: "DMs every member of the server.", permission: discordgo.PermissionAdministrator, minArgs: 1, usage: "<message>", run: b.cmdMessageAll})

	// Moderation.
	r.add(&command{name: "announce", description: "Embeds your message and deletes the original.", permission: discordgo.PermissionManageMessages, minArgs: 1, usage: "<message>", run: b.cmdAnnounce})
	r.add(&command{name: "kick", description: "Kicks a user from the server.", permission: discordgo.PermissionKickMembers, minArgs: 1, usage: "<@user> <reason>", run: b.cmdKick})
	r.add(&command{name: "ban", description: "Bans a user from the server.", permission: discordgo.PermissionBanMembers, minArgs: 1, usage: "<@user> <reason>", run: b.cmdBan})
	r.add(&command{name: "unban", description: "Unbans a user from the server.", permission: discordgo.PermissionBanMembers, minArgs: 1, usage: "<user id>", run: b.cmdUnban})
	r.add(&command{name: "unbanall", description: "Unbans every banned user.", permission: discordgo.PermissionManageServer, run: b.cmdUnbanAll})
	r.add(&command{name: "mute", description: "Gives the user the muted role.", permission: discordgo.PermissionManageRoles, minArgs: 1, usage: "<@user>", run: b.cmdMute})
	r.add(&command{name: "unmute", description: "Removes the muted role from the user.", permission: discordgo.PermissionManageRoles, minArgs: 1, usage: "<@user>", run: b.cmdUnmute})
	r.add(&command{name: "roleadd", description: "Grants the user a role.", permission: discordgo.PermissionManageRoles, minArgs: 2, usage: "<@user> <role>", run: b.cmdRoleAdd})
	r.add(&command{name: "roleremove", description: "Removes a role from the user.", permission: discordgo.PermissionManageRoles, minArgs: 2, usage: "<@user> <role>", run: b.cmdRoleRemove})
	r.add(&command{name: "nick", description: "Changes a user's nickname.", permission: discordgo.PermissionChangeNickname, minArgs: 2, usage: "<@user> <name>", run: b.cmdNick})
	r.add(&command{name: "purge", aliases: []string{"clear"}, description: "Clears recent messages from the channel.", permission: discordgo.PermissionManageMessages, usage: "<amount>", run: b.cmdPurge})
	r.add(&command{name: "slowmode", description: "Sets the channel's slowmode in seconds.", permission: discordgo.PermissionManageChannels, minArgs: 1, usage: "<seconds>", run: b.cmdSlowmode})
	r.add(&command{name: "channelmute", description: "Stops a role from sending messages in the channel.", permission: discordgo.PermissionManageChannels, usage: "<role>", run: b.cmdChannelMute})
	r.add(&command{name: "channelunmute", description: "Lets a role send messages in the channel again.", permission: discordgo.PermissionManageChannels, usage: "<role>", run: b.cmdChannelUnmute})
	r.add(&command{name: "poll", description: "Creates a poll with thumbs up/down reactions.", permission: discordgo.PermissionManageMessages, minArgs: 1, usage: "<question>", run: b.cmdPoll})
	r.add(&command{name: "reactionroles", description: "Configures a reaction-role message.", permission: discordgo.PermissionManageRoles, minArgs: 2, usage: "<role/role> <emoji/emoji>", run: b.cmdReactionRoles})
	r.add(&command{name: "giveaway", description: "Starts a timed giveaway.", permission: discordgo.PermissionManageMessages, minArgs: 2, usage: "<seconds> <prize>", run: b.cmdGiveaway})
	r.add(&command{name: "reroll", description: "Selects a new giveaway winner.", permission: discordgo.PermissionManageMessages, minArgs: 1, usage: "<message id>", run: b.cmdReroll})

	// Users.
	r.add(&command{name: "ping", description: "Checks the bot is alive.", run: b.cmdPing})
	r.add(&command{name: "userinfo", description: "Shows Discord information about a user.", run: b.cmdUserInfo})
	r.add(&command{name: "history", description: "Shows a user's kick, ban and unban history from the last 90 days.", minArgs: 1, usage: "<@user>", run: b.cmdHistory})
	r.add(&command{name: "info", description: "Shows information about the server.", run: b.cmdInfo})
	r.add(&command{name: "suggest", description: "Sends a suggestion to the suggestions channel.", minArgs: 1, usage: "<suggestion>", run: b.cmdSuggest})
	r.add(&command{name: "av", aliases: []string{"avatar"}, description: "Shows a user's avatar.", run: b.cmdAvatar})
	r.add(&command{name: "roles", description: "Lists the server's roles.", run: b.cmdRoles})
	r.add(&command{name: "customcmds", aliases: []string{"commands"}, description: "Lists the custom commands.", run: b.cmdCustomCmds})
	r.add(&command{name: "invites", description: "Shows the invite leaderboard.", run: b.cmdInvites})
	r.add(&command{name: "help", description: "Lists the available commands.", run: b.cmdHelp})

	return r
}
