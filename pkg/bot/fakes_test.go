package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/wardenbot/warden/pkg/dataaccess"
	"github.com/wardenbot/warden/pkg/entities"
)

// fakeSession records the Discord calls the bot makes. Every method returns
// success unless an err<Method> field is set.
type fakeSession struct {
	mu sync.Mutex

	sentMessages   []string          // "<channel>|<content>"
	sentEmbeds     []string          // "<channel>|<title>|<description>"
	sentFiles      []string          // "<channel>|<name>"
	deletedMsgs    []string          // "<channel>|<message>"
	bulkDeleted    []string          // message IDs
	removedReacts  []string          // "<channel>|<message>|<emoji>|<user>"
	addedReacts    []string          // "<channel>|<message>|<emoji>"
	grantedRoles   []string          // "<guild>|<user>|<role>"
	revokedRoles   []string          // "<guild>|<user>|<role>"
	deletedChans   []string          // channel IDs
	createdChans   []string          // channel names
	permSets       []string          // "<channel>|<target>"
	dmChannels     map[string]string // user ID -> DM channel ID
	kicked         []string
	banned         []string
	unbanned       []string
	nicknames      []string // "<user>|<nick>"
	statusUpdates  int
	channelEdits   []string // "<channel>|<name>"
	slowmodes      []int
	nextMessageID  int
	channelHistory map[string][]*discordgo.Message

	guildRoles    []*discordgo.Role
	guildChannels []*discordgo.Channel
	guildMembers  []*discordgo.Member
	guildBans     []*discordgo.GuildBan
	guildInvites  []*discordgo.Invite
	reactions     map[string][]*discordgo.User // "<message>|<emoji>" -> users
	permissions   map[string]int64             // user ID -> permission bits
	auditEntries  map[int][]*discordgo.AuditLogEntry

	lastStatus discordgo.UpdateStatusData

	errUserChannelCreate error
	errFileSend          error
	errChannelMessages   error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		dmChannels:     make(map[string]string),
		channelHistory: make(map[string][]*discordgo.Message),
		auditEntries:   make(map[int][]*discordgo.AuditLogEntry),
		reactions:      make(map[string][]*discordgo.User),
		permissions:    make(map[string]int64),
	}
}

func (f *fakeSession) nextID() string {
	f.nextMessageID++
	return fmt.Sprintf("msg-%d", f.nextMessageID)
}

func (f *fakeSession) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: channelID}, nil
}

func (f *fakeSession) ChannelDelete(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedChans = append(f.deletedChans, channelID)
	return &discordgo.Channel{ID: channelID}, nil
}

func (f *fakeSession) ChannelEdit(channelID string, data *discordgo.ChannelEdit, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channelEdits = append(f.channelEdits, channelID+"|"+data.Name)
	if data.RateLimitPerUser != nil {
		f.slowmodes = append(f.slowmodes, *data.RateLimitPerUser)
	}
	return &discordgo.Channel{ID: channelID, Name: data.Name}, nil
}

func (f *fakeSession) ChannelFileSend(channelID, name string, r io.Reader, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errFileSend != nil {
		return nil, f.errFileSend
	}
	f.sentFiles = append(f.sentFiles, channelID+"|"+name)
	return &discordgo.Message{ID: f.nextID()}, nil
}

func (f *fakeSession) ChannelMessage(channelID, messageID string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	return &discordgo.Message{ID: messageID, ChannelID: channelID}, nil
}

func (f *fakeSession) ChannelMessageDelete(channelID, messageID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedMsgs = append(f.deletedMsgs, channelID+"|"+messageID)
	return nil
}

func (f *fakeSession) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentMessages = append(f.sentMessages, channelID+"|"+content)
	return &discordgo.Message{ID: f.nextID(), ChannelID: channelID, Content: content}, nil
}

func (f *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentMessages = append(f.sentMessages, channelID+"|"+data.Content)
	return &discordgo.Message{ID: f.nextID(), ChannelID: channelID}, nil
}

func (f *fakeSession) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentEmbeds = append(f.sentEmbeds, channelID+"|"+embed.Title+"|"+embed.Description)
	return &discordgo.Message{ID: f.nextID(), ChannelID: channelID}, nil
}

func (f *fakeSession) ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errChannelMessages != nil {
		return nil, f.errChannelMessages
	}
	msgs := f.channelHistory[channelID]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (f *fakeSession) ChannelMessagesBulkDelete(channelID string, messages []string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bulkDeleted = append(f.bulkDeleted, messages...)
	return nil
}

func (f *fakeSession) ChannelPermissionSet(channelID, targetID string, _ discordgo.PermissionOverwriteType, _, _ int64, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.permSets = append(f.permSets, channelID+"|"+targetID)
	return nil
}

func (f *fakeSession) Guild(guildID string, _ ...discordgo.RequestOption) (*discordgo.Guild, error) {
	return &discordgo.Guild{ID: guildID, Name: "Test Guild"}, nil
}

func (f *fakeSession) GuildAuditLog(guildID, userID, beforeID string, actionType, limit int, _ ...discordgo.RequestOption) (*discordgo.GuildAuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &discordgo.GuildAuditLog{AuditLogEntries: f.auditEntries[actionType]}, nil
}

func (f *fakeSession) GuildBanCreateWithReason(guildID, userID, reason string, days int, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.banned = append(f.banned, userID)
	return nil
}

func (f *fakeSession) GuildBanDelete(guildID, userID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unbanned = append(f.unbanned, userID)
	return nil
}

func (f *fakeSession) GuildBans(guildID string, limit int, beforeID, afterID string, _ ...discordgo.RequestOption) ([]*discordgo.GuildBan, error) {
	if afterID != "" {
		return nil, nil
	}
	return f.guildBans, nil
}

func (f *fakeSession) GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdChans = append(f.createdChans, data.Name)
	return &discordgo.Channel{ID: fmt.Sprintf("chan-%d", len(f.createdChans)), Name: data.Name}, nil
}

func (f *fakeSession) GuildChannels(guildID string, _ ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	return f.guildChannels, nil
}

func (f *fakeSession) GuildInvites(guildID string, _ ...discordgo.RequestOption) ([]*discordgo.Invite, error) {
	return f.guildInvites, nil
}

func (f *fakeSession) GuildMember(guildID, userID string, _ ...discordgo.RequestOption) (*discordgo.Member, error) {
	for _, m := range f.guildMembers {
		if m.User.ID == userID {
			return m, nil
		}
	}
	return &discordgo.Member{GuildID: guildID, User: &discordgo.User{ID: userID}}, nil
}

func (f *fakeSession) GuildMemberDeleteWithReason(guildID, userID, reason string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kicked = append(f.kicked, userID)
	return nil
}

func (f *fakeSession) GuildMemberNickname(guildID, userID, nickname string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nicknames = append(f.nicknames, userID+"|"+nickname)
	return nil
}

func (f *fakeSession) GuildMemberRoleAdd(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grantedRoles = append(f.grantedRoles, guildID+"|"+userID+"|"+roleID)
	return nil
}

func (f *fakeSession) GuildMemberRoleRemove(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revokedRoles = append(f.revokedRoles, guildID+"|"+userID+"|"+roleID)
	return nil
}

func (f *fakeSession) GuildMembers(guildID, after string, limit int, _ ...discordgo.RequestOption) ([]*discordgo.Member, error) {
	if after != "" {
		return nil, nil
	}
	return f.guildMembers, nil
}

func (f *fakeSession) GuildRoles(guildID string, _ ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	return f.guildRoles, nil
}

func (f *fakeSession) MessageReactionAdd(channelID, messageID, emojiID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addedReacts = append(f.addedReacts, channelID+"|"+messageID+"|"+emojiID)
	return nil
}

func (f *fakeSession) MessageReactionRemove(channelID, messageID, emojiID, userID string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removedReacts = append(f.removedReacts, channelID+"|"+messageID+"|"+emojiID+"|"+userID)
	return nil
}

func (f *fakeSession) MessageReactions(channelID, messageID, emojiID string, limit int, beforeID, afterID string, _ ...discordgo.RequestOption) ([]*discordgo.User, error) {
	return f.reactions[messageID+"|"+emojiID], nil
}

func (f *fakeSession) UpdateStatusComplex(usd discordgo.UpdateStatusData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusUpdates++
	f.lastStatus = usd
	return nil
}

func (f *fakeSession) User(userID string, _ ...discordgo.RequestOption) (*discordgo.User, error) {
	return &discordgo.User{ID: userID, Username: "user-" + userID}, nil
}

func (f *fakeSession) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errUserChannelCreate != nil {
		return nil, f.errUserChannelCreate
	}
	id, ok := f.dmChannels[recipientID]
	if !ok {
		id = "dm-" + recipientID
		f.dmChannels[recipientID] = id
	}
	return &discordgo.Channel{ID: id}, nil
}

func (f *fakeSession) UserChannelPermissions(userID, channelID string, _ ...discordgo.RequestOption) (int64, error) {
	return f.permissions[userID], nil
}

// embedMatching reports whether any sent embed contains the substring.
func (f *fakeSession) embedMatching(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.sentEmbeds {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

// fakeTicketDal is an in-memory TicketDal with the same numbering and duplicate
// semantics as the Mongo one.
type fakeTicketDal struct {
	mu      sync.Mutex
	tickets map[string]*entities.Ticket // keyed by channel ID
}

func newFakeTicketDal() *fakeTicketDal {
	return &fakeTicketDal{tickets: make(map[string]*entities.Ticket)}
}

func (d *fakeTicketDal) CreateTicket(_ context.Context, userID, channelID string) (*entities.Ticket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	highest := 1000
	for _, t := range d.tickets {
		if t.UserID == userID {
			return nil, dataaccess.ErrTicketExists
		}
		if t.TicketNumber > highest {
			highest = t.TicketNumber
		}
	}
	ticket := &entities.Ticket{TicketNumber: highest + 1, UserID: userID, ChannelID: channelID}
	d.tickets[channelID] = ticket
	return ticket, nil
}

func (d *fakeTicketDal) GetTicketByUser(_ context.Context, userID string) (*entities.Ticket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.tickets {
		if t.UserID == userID {
			return t, nil
		}
	}
	return nil, dataaccess.ErrNotFound
}

func (d *fakeTicketDal) GetTicketByChannel(_ context.Context, channelID string) (*entities.Ticket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.tickets[channelID]; ok {
		return t, nil
	}
	return nil, dataaccess.ErrNotFound
}

func (d *fakeTicketDal) DeleteTicketByChannel(_ context.Context, channelID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.tickets, channelID)
	return nil
}

// fakeConfigDal serves a fixed config.
type fakeConfigDal struct {
	mu  sync.Mutex
	cfg *entities.BotConfig
}

func newFakeConfigDal(cfg *entities.BotConfig) *fakeConfigDal {
	if cfg == nil {
		cfg = entities.DefaultBotConfig()
	}
	return &fakeConfigDal{cfg: cfg}
}

func (d *fakeConfigDal) Get(_ context.Context) (*entities.BotConfig, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *d.cfg
	return &cp, nil
}

func (d *fakeConfigDal) Update(_ context.Context, mutate func(*entities.BotConfig)) (*entities.BotConfig, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	mutate(d.cfg)
	cp := *d.cfg
	return &cp, nil
}

// fakeReactionRoleDal stores reaction-role messages in a map.
type fakeReactionRoleDal struct {
	mu       sync.Mutex
	messages map[string]*entities.ReactionRoleMessage
}

func newFakeReactionRoleDal() *fakeReactionRoleDal {
	return &fakeReactionRoleDal{messages: make(map[string]*entities.ReactionRoleMessage)}
}

func (d *fakeReactionRoleDal) Save(_ context.Context, msg *entities.ReactionRoleMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(msg.Emojis) != len(msg.Roles) {
		return dataaccess.ErrMismatchedPairs
	}
	d.messages[msg.MessageID] = msg
	return nil
}

func (d *fakeReactionRoleDal) GetByMessage(_ context.Context, messageID string) (*entities.ReactionRoleMessage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if m, ok := d.messages[messageID]; ok {
		return m, nil
	}
	return nil, dataaccess.ErrNotFound
}

// fakeCustomCommandDal stores custom commands in a map.
type fakeCustomCommandDal struct {
	mu   sync.Mutex
	cmds map[string]string
}

func newFakeCustomCommandDal() *fakeCustomCommandDal {
	return &fakeCustomCommandDal{cmds: make(map[string]string)}
}

func (d *fakeCustomCommandDal) Get(_ context.Context, name string) (*entities.CustomCommand, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if resp, ok := d.cmds[strings.ToLower(name)]; ok {
		return &entities.CustomCommand{Name: name, Response: resp}, nil
	}
	return nil, dataaccess.ErrNotFound
}

func (d *fakeCustomCommandDal) Set(_ context.Context, name, response string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cmds[strings.ToLower(name)] = response
	return nil
}

func (d *fakeCustomCommandDal) Delete(_ context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.cmds[strings.ToLower(name)]; !ok {
		return dataaccess.ErrNotFound
	}
	delete(d.cmds, strings.ToLower(name))
	return nil
}

func (d *fakeCustomCommandDal) List(_ context.Context) ([]*entities.CustomCommand, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*entities.CustomCommand, 0, len(d.cmds))
	for name, resp := range d.cmds {
		out = append(out, &entities.CustomCommand{Name: name, Response: resp})
	}
	return out, nil
}

// fakeBlacklistDal stores blacklisted user IDs in a set.
type fakeBlacklistDal struct {
	mu    sync.Mutex
	users map[string]bool
}

func newFakeBlacklistDal() *fakeBlacklistDal {
	return &fakeBlacklistDal{users: make(map[string]bool)}
}

func (d *fakeBlacklistDal) IsBlacklisted(_ context.Context, userID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.users[userID], nil
}

func (d *fakeBlacklistDal) Add(_ context.Context, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.users[userID] {
		return dataaccess.ErrAlreadyBlacklisted
	}
	d.users[userID] = true
	return nil
}

func (d *fakeBlacklistDal) Remove(_ context.Context, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.users[userID] {
		return dataaccess.ErrNotFound
	}
	delete(d.users, userID)
	return nil
}

// newTestBot wires a bot over the fakes with a quiet logger.
func newTestBot(s *fakeSession, cfg *entities.BotConfig) (*Bot, *fakeTicketDal) {
	tickets := newFakeTicketDal()
	b := New(slog.New(slog.NewTextHandler(io.Discard, nil)), s, Stores{
		Config:         newFakeConfigDal(cfg),
		Tickets:        tickets,
		ReactionRoles:  newFakeReactionRoleDal(),
		CustomCommands: newFakeCustomCommandDal(),
		Blacklist:      newFakeBlacklistDal(),
	})
	b.SetBotUser("bot-user")
	return b, tickets
}
