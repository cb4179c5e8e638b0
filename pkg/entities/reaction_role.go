package entities

// ReactionRoleMessage is one configured message whose reactions grant roles. The
// emoji and role slices are the same length and paired positionally: reacting with
// Emojis[i] grants Roles[i]. Records are appended by the setup command and are never
// mutated in place.
type ReactionRoleMessage struct {
	// MessageID is the ID of the message carrying the reactions.
	MessageID string `json:"message_id" bson:"message_id"`

	// Emojis are the reaction emoji names, unique within the message. Custom emoji
	// may be stored in ":name:" shortcode form.
	Emojis []string `json:"reaction_emojis" bson:"reaction_emojis"`

	// Roles are the role names granted by the paired emoji.
	Roles []string `json:"reaction_roles" bson:"reaction_roles"`
}
