package bot

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/pkg/entities"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AliasesResolve(t *testing.T) {
	t.Parallel()

	b, _ := newTestBot(newFakeSession(), nil)

	tests := []struct {
		alias string
		want  string
	}{
		{alias: "ticket", want: "ticket"},
		{alias: "new", want: "ticket"},
		{alias: "createticket", want: "ticket"},
		{alias: "clear", want: "purge"},
		{alias: "av", want: "av"},
		{alias: "avatar", want: "av"},
	}
	for _, tt := range tests {
		cmd := b.registry.lookup(tt.alias)
		require.NotNil(t, cmd, tt.alias)
		require.Equal(t, tt.want, cmd.name)
	}

	require.Nil(t, b.registry.lookup("nosuchcommand"))
}

func TestDispatch_PermissionDenied(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	b, _ := newTestBot(s, nil)

	cfg := entities.DefaultBotConfig()
	got, err := b.dispatch(context.Background(), guildMessage("user-1", "!kick <@user-2>"), cfg, "kick", []string{"<@user-2>"})
	require.NoError(t, err)
	require.Equal(t, outcomePermissionDenied, got)
	require.Empty(t, s.kicked)
	require.True(t, s.embedMatching("permission"))
}

func TestDispatch_AdministratorBypassesPermission(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	s.permissions["admin-1"] = discordgo.PermissionAdministrator
	b, _ := newTestBot(s, nil)

	cfg := entities.DefaultBotConfig()
	got, err := b.dispatch(context.Background(), guildMessage("admin-1", "!kick <@user-2>"), cfg, "kick", []string{"<@user-2>"})
	require.NoError(t, err)
	require.Equal(t, outcomeCommandDispatched, got)
	require.Equal(t, []string{"user-2"}, s.kicked)
}

func TestDispatch_UsageErrorOnMissingArgs(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	s.permissions["admin-1"] = discordgo.PermissionAdministrator
	b, _ := newTestBot(s, nil)

	cfg := entities.DefaultBotConfig()
	got, err := b.dispatch(context.Background(), guildMessage("admin-1", "!kick"), cfg, "kick", nil)
	require.NoError(t, err)
	require.Equal(t, outcomeUsageError, got)
	require.True(t, s.embedMatching("Usage: **!kick"))
}

func TestDispatch_LogsToConfiguredChannel(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	b, _ := newTestBot(s, nil)

	cfg := entities.DefaultBotConfig()
	cfg.LoggingChannelID = "log-chan"
	got, err := b.dispatch(context.Background(), guildMessage("user-1", "!ping"), cfg, "ping", nil)
	require.NoError(t, err)
	require.Equal(t, outcomeCommandDispatched, got)
	require.True(t, s.embedMatching("log-chan|__Logged Command__"))
}

func TestCmdCreateCmd_RejectsBuiltinNames(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	s.permissions["admin-1"] = discordgo.PermissionAdministrator
	b, _ := newTestBot(s, nil)

	cfg := entities.DefaultBotConfig()
	got, err := b.dispatch(context.Background(), guildMessage("admin-1", "!createcmd help nope"), cfg, "createcmd", []string{"help", "nope"})
	require.NoError(t, err)
	require.Equal(t, outcomeCommandDispatched, got)

	_, err = b.stores.CustomCommands.Get(context.Background(), "help")
	require.Error(t, err)
	require.True(t, s.embedMatching("built-in"))
}

func TestCmdBlacklistRoundTrip(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	s.permissions["admin-1"] = discordgo.PermissionAdministrator
	b, _ := newTestBot(s, nil)
	ctx := context.Background()
	cfg := entities.DefaultBotConfig()

	got, err := b.dispatch(ctx, guildMessage("admin-1", "!blacklist <@user-2>"), cfg, "blacklist", []string{"<@user-2>"})
	require.NoError(t, err)
	require.Equal(t, outcomeCommandDispatched, got)

	blacklisted, err := b.stores.Blacklist.IsBlacklisted(ctx, "user-2")
	require.NoError(t, err)
	require.True(t, blacklisted)

	// A second blacklist is reported, not an error.
	got, err = b.dispatch(ctx, guildMessage("admin-1", "!blacklist <@user-2>"), cfg, "blacklist", []string{"<@user-2>"})
	require.NoError(t, err)
	require.Equal(t, outcomeCommandDispatched, got)
	require.True(t, s.embedMatching("already blacklisted"))

	got, err = b.dispatch(ctx, guildMessage("admin-1", "!unblacklist <@user-2>"), cfg, "unblacklist", []string{"<@user-2>"})
	require.NoError(t, err)
	require.Equal(t, outcomeCommandDispatched, got)

	blacklisted, err = b.stores.Blacklist.IsBlacklisted(ctx, "user-2")
	require.NoError(t, err)
	require.False(t, blacklisted)
}

func TestCmdFilterAddRemove(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	s.permissions["admin-1"] = discordgo.PermissionAdministrator
	b, _ := newTestBot(s, nil)
	ctx := context.Background()
	cfg := entities.DefaultBotConfig()

	_, err := b.dispatch(ctx, guildMessage("admin-1", "!filteradd heck"), cfg, "filteradd", []string{"heck"})
	require.NoError(t, err)
	// Duplicates collapse.
	_, err = b.dispatch(ctx, guildMessage("admin-1", "!filteradd HECK"), cfg, "filteradd", []string{"HECK"})
	require.NoError(t, err)

	stored, err := b.stores.Config.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"heck"}, stored.FilteredWords)

	_, err = b.dispatch(ctx, guildMessage("admin-1", "!filterremove heck"), cfg, "filterremove", []string{"heck"})
	require.NoError(t, err)

	stored, err = b.stores.Config.Get(ctx)
	require.NoError(t, err)
	require.Empty(t, stored.FilteredWords)
}

func TestCmdSetID(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	s.permissions["admin-1"] = discordgo.PermissionAdministrator
	b, _ := newTestBot(s, nil)
	ctx := context.Background()
	cfg := entities.DefaultBotConfig()

	_, err := b.dispatch(ctx, guildMessage("admin-1", "!setid logging chan-9"), cfg, "setid", []string{"logging", "chan-9"})
	require.NoError(t, err)

	stored, err := b.stores.Config.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "chan-9", stored.LoggingChannelID)

	// Unknown features change nothing.
	_, err = b.dispatch(ctx, guildMessage("admin-1", "!setid bogus chan-9"), cfg, "setid", []string{"bogus", "chan-9"})
	require.NoError(t, err)
	require.True(t, s.embedMatching("Unknown feature"))
}

func TestCmdSetPrefixChangesDispatch(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	s.permissions["admin-1"] = discordgo.PermissionAdministrator
	b, _ := newTestBot(s, nil)
	ctx := context.Background()

	got, err := b.HandleMessage(ctx, guildMessage("admin-1", "!setprefix ?"))
	require.NoError(t, err)
	require.Equal(t, outcomeCommandDispatched, got)

	// The old prefix stops matching; the new one dispatches.
	got, err = b.HandleMessage(ctx, guildMessage("admin-1", "!ping"))
	require.NoError(t, err)
	require.Equal(t, outcomeNoMatch, got)

	got, err = b.HandleMessage(ctx, guildMessage("admin-1", "?ping"))
	require.NoError(t, err)
	require.Equal(t, outcomeCommandDispatched, got)
}

func TestCmdReactionRoles(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	s.permissions["admin-1"] = discordgo.PermissionAdministrator
	s.guildRoles = []*discordgo.Role{
		{ID: "role-blue", Name: "Blue"},
		{ID: "role-red", Name: "Red"},
	}
	b, _ := newTestBot(s, nil)
	ctx := context.Background()
	cfg := entities.DefaultBotConfig()

	got, err := b.dispatch(ctx, guildMessage("admin-1", "!reactionroles Blue/Red 🔵/🔴"), cfg,
		"reactionroles", []string{"Blue/Red", "🔵/🔴"})
	require.NoError(t, err)
	require.Equal(t, outcomeCommandDispatched, got)

	// The message was posted, seeded, and persisted with positional pairing.
	require.Len(t, s.addedReacts, 2)
	saved, err := b.stores.ReactionRoles.GetByMessage(ctx, "msg-1")
	require.NoError(t, err)
	require.Equal(t, []string{"Blue", "Red"}, saved.Roles)
	require.Equal(t, []string{"🔵", "🔴"}, saved.Emojis)

	// Mismatched pair counts never persist.
	got, err = b.dispatch(ctx, guildMessage("admin-1", "!reactionroles Blue/Red 🔵"), cfg,
		"reactionroles", []string{"Blue/Red", "🔵"})
	require.NoError(t, err)
	require.Equal(t, outcomeCommandDispatched, got)
	require.True(t, s.embedMatching("same length"))
}

func TestCmdListeningWatching_SetActivityType(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	s.permissions["admin-1"] = discordgo.PermissionAdministrator
	b, _ := newTestBot(s, nil)
	ctx := context.Background()
	cfg := entities.DefaultBotConfig()

	_, err := b.dispatch(ctx, guildMessage("admin-1", "!listening lofi"), cfg, "listening", []string{"lofi"})
	require.NoError(t, err)
	require.Len(t, s.lastStatus.Activities, 1)
	require.Equal(t, "lofi", s.lastStatus.Activities[0].Name)
	require.Equal(t, discordgo.ActivityTypeListening, s.lastStatus.Activities[0].Type)

	_, err = b.dispatch(ctx, guildMessage("admin-1", "!watching you"), cfg, "watching", []string{"you"})
	require.NoError(t, err)
	require.Equal(t, discordgo.ActivityTypeWatching, s.lastStatus.Activities[0].Type)
}

// snowflakeAt builds a Discord snowflake whose embedded timestamp is t.
func snowflakeAt(t time.Time) string {
	return strconv.FormatInt((t.UnixMilli()-1420070400000)<<22, 10)
}

func TestCmdHistory_FiltersByTargetAndAge(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	b, _ := newTestBot(s, nil)
	ctx := context.Background()
	cfg := entities.DefaultBotConfig()

	s.auditEntries[int(discordgo.AuditLogActionMemberBanAdd)] = []*discordgo.AuditLogEntry{
		{ID: snowflakeAt(time.Now().Add(-time.Hour)), UserID: "mod-1", TargetID: "user-2", Reason: "spam"},
		{ID: snowflakeAt(time.Now().Add(-time.Hour)), UserID: "mod-1", TargetID: "user-9", Reason: "other target"},
		{ID: snowflakeAt(time.Now().Add(-120 * 24 * time.Hour)), UserID: "mod-1", TargetID: "user-2", Reason: "too old"},
	}
	s.auditEntries[int(discordgo.AuditLogActionMemberKick)] = []*discordgo.AuditLogEntry{
		{ID: snowflakeAt(time.Now().Add(-time.Hour)), UserID: "mod-1", TargetID: "user-2"},
	}

	_, err := b.dispatch(ctx, guildMessage("user-1", "!history <@user-2>"), cfg, "history", []string{"<@user-2>"})
	require.NoError(t, err)

	require.True(t, s.embedMatching("*banned* <@user-2> for reason: *spam*"))
	require.True(t, s.embedMatching("*kicked* <@user-2> for reason: *no reason given*"))
	require.False(t, s.embedMatching("other target"))
	require.False(t, s.embedMatching("too old"))
	// No unbans were recorded for the user.
	require.True(t, s.embedMatching("**__Unban History:__**\nNone"))
}

func TestCmdTicketUpgrade_DeniesEveryRole(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	s.permissions["staff-1"] = discordgo.PermissionManageChannels
	s.guildChannels = []*discordgo.Channel{
		{ID: "cat-1", Name: "tickets", Type: discordgo.ChannelTypeGuildCategory},
	}
	s.guildRoles = []*discordgo.Role{
		{ID: "guild-1", Name: "@everyone"},
		{ID: "role-vip", Name: "VIP"},
		{ID: "role-mod", Name: "Moderator"},
	}
	b, _ := newTestBot(s, nil)
	ctx := context.Background()
	cfg := entities.DefaultBotConfig()

	ticket, err := b.openTicket(ctx, "guild-1", "user-1")
	require.NoError(t, err)

	// VIP holds an explicit view allow on the channel, which would override an
	// @everyone deny in Discord's permission resolution.
	grant := guildMessage("staff-1", "!trole add VIP")
	grant.ChannelID = ticket.ChannelID
	_, err = b.dispatch(ctx, grant, cfg, "trole", []string{"add", "VIP"})
	require.NoError(t, err)

	s.mu.Lock()
	s.permSets = nil
	s.mu.Unlock()

	msg := guildMessage("staff-1", "!tupgrade")
	msg.ChannelID = ticket.ChannelID
	_, err = b.dispatch(ctx, msg, cfg, "tupgrade", nil)
	require.NoError(t, err)

	// The upgrade must overwrite every guild role, not just @everyone.
	require.Len(t, s.permSets, len(s.guildRoles))
	for _, role := range s.guildRoles {
		require.Contains(t, s.permSets, ticket.ChannelID+"|"+role.ID)
	}
}

func TestCmdClose_OutsideTicket(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	s.permissions["staff-1"] = discordgo.PermissionManageChannels
	b, _ := newTestBot(s, nil)

	cfg := entities.DefaultBotConfig()
	got, err := b.dispatch(context.Background(), guildMessage("staff-1", "!close"), cfg, "close", nil)
	require.NoError(t, err)
	require.Equal(t, outcomeCommandDispatched, got)
	require.True(t, s.embedMatching("ticket channel"))
	require.Empty(t, s.deletedChans)
}

func TestCmdSuggest(t *testing.T) {
	t.Parallel()

	s := newFakeSession()
	b, _ := newTestBot(s, nil)
	ctx := context.Background()

	// No suggestions channel configured.
	cfg := entities.DefaultBotConfig()
	got, err := b.dispatch(ctx, guildMessage("user-1", "!suggest add polls"), cfg, "suggest", []string{"add", "polls"})
	require.NoError(t, err)
	require.Equal(t, outcomeCommandDispatched, got)
	require.True(t, s.embedMatching("No suggestions channel"))

	cfg.SuggestionsChannelID = "suggest-chan"
	got, err = b.dispatch(ctx, guildMessage("user-1", "!suggest add polls"), cfg, "suggest", []string{"add", "polls"})
	require.NoError(t, err)
	require.Equal(t, outcomeCommandDispatched, got)
	require.True(t, s.embedMatching("suggest-chan|"))
	// Both voting reactions are seeded.
	require.Len(t, s.addedReacts, 2)
}

func TestParseMention(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "<@123>", want: "123"},
		{in: "<@!123>", want: "123"},
		{in: "<@&456>", want: "456"},
		{in: "123", want: "123"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, parseMention(tt.in), tt.in)
	}
}
