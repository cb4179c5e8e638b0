package entities

// BotConfig is the process-wide mutable configuration for the bot. It is persisted
// as a single document and re-read on demand; all writes go through the config DAL
// so that two racing admin commands cannot lose updates.
type BotConfig struct {
	// Prefix is the command prefix, e.g. "!".
	Prefix string `json:"prefix" bson:"prefix"`

	// PlayingStatus is the activity text shown in the bot's presence. Empty
	// leaves it unset.
	PlayingStatus string `json:"playing_status" bson:"playing_status"`

	// ActivityType is how PlayingStatus is presented: playing, listening or
	// watching. Empty means playing.
	ActivityType string `json:"activity_type" bson:"activity_type"`

	// OnlineStatus is the presence to report (online, idle, dnd). Empty leaves it unset.
	OnlineStatus string `json:"online_status" bson:"online_status"`

	// FilteredWords are deleted when sent as a whole token by a non-administrator.
	FilteredWords []string `json:"filtered_words" bson:"filtered_words"`

	// WelcomeChannelID is the channel that welcome embeds are sent to.
	WelcomeChannelID string `json:"welcome_channel_id" bson:"welcome_channel_id"`

	// LoggingChannelID is the channel that command invocations are logged to.
	LoggingChannelID string `json:"logging_channel_id" bson:"logging_channel_id"`

	// GiveawaysChannelID is the channel that giveaways are announced in.
	GiveawaysChannelID string `json:"giveaways_channel_id" bson:"giveaways_channel_id"`

	// SuggestionsChannelID is the channel that suggestions are forwarded to.
	SuggestionsChannelID string `json:"suggestions_channel_id" bson:"suggestions_channel_id"`

	// TicketSetupMessageID is the message whose checkmark reactions open tickets.
	TicketSetupMessageID string `json:"ticket_setup_id" bson:"ticket_setup_id"`

	// WelcomeMessage is the welcome text. The literal token "<member>" is replaced
	// with a mention of the joining member.
	WelcomeMessage string `json:"welcome_message" bson:"welcome_message"`

	// MutedRole is the name of the role applied to mention-flooding authors.
	MutedRole string `json:"muted_role" bson:"muted_role"`

	// OnJoinRole is the name of the role granted to members when they join.
	OnJoinRole string `json:"on_join_role" bson:"on_join_role"`
}

// DefaultBotConfig is the configuration a fresh deployment starts from.
func DefaultBotConfig() *BotConfig {
	return &BotConfig{
		Prefix:        "!",
		FilteredWords: []string{},
	}
}
