package entities

// CustomCommand is an admin-defined name to canned-reply mapping. Names are stored
// lower-cased; custom commands are checked before the built-in registry.
type CustomCommand struct {
	// Name is the lower-cased command name, without the prefix.
	Name string `json:"name" bson:"name"`

	// Response is the canned text sent when the command is invoked.
	Response string `json:"response" bson:"response"`
}
