package collab

import "errors"

var (
	// ErrSessionNotFound means an operation addressed a document with no
	// active session. Read paths treat this as an empty result; Join never
	// returns it because joining creates the session.
	ErrSessionNotFound = errors.New("collaboration session not found")

	// ErrUserNotInSession means the user has no ActiveUser record for the
	// document.
	ErrUserNotInSession = errors.New("user is not in the session")

	// ErrMalformedMessage means an inbound payload failed to parse or is
	// missing fields required by its msg_type. The message is dropped; the
	// connection stays up.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrMentionNotFound means the mention id does not exist in the
	// recipient's mailbox.
	ErrMentionNotFound = errors.New("mention not found")
)
