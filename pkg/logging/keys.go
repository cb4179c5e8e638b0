package logging

const (
	// KeyAppName is the attribute key for the application name.
	KeyAppName = "app"

	// KeyError is the attribute key for errors.
	KeyError = "err"

	// KeyDal is the attribute key for the data access layer in use.
	KeyDal = "dal"

	// KeyCommand is the attribute key for the command being dispatched.
	KeyCommand = "command"

	// KeyUser is the attribute key for the acting user's ID.
	KeyUser = "user"

	// KeyChannel is the attribute key for the channel in play.
	KeyChannel = "channel"
)
