package mockapi

import "errors"

// Wire codes for the facade errors. The HTTP transport writes them into
// the error envelope and the remote client turns them back into the same
// sentinels.
var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidCreds, "INVALID_CREDENTIALS"},
	{ErrNotAuthenticated, "UNAUTHORIZED"},
	{ErrInvalidToken, "INVALID_TOKEN"},
	{ErrItemNotFound, "ITEM_NOT_FOUND"},
	{ErrNotItemOwner, "NOT_ITEM_OWNER"},
	{ErrConversationNotFound, "CONVERSATION_NOT_FOUND"},
	{ErrNotParticipant, "NOT_PARTICIPANT"},
	{ErrCannotContactSelf, "CANNOT_CONTACT_SELF"},
	{ErrUserNotFound, "USER_NOT_FOUND"},
	{ErrInvalidMessageID, "INVALID_MESSAGE_ID"},
	{ErrMessageExists, "MESSAGE_EXISTS"},
}

// ErrorCode returns the wire code of a facade error, or "" when err is not
// one of them.
func ErrorCode(err error) string {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return ""
}

// ErrorFromCode is the inverse of ErrorCode. Unknown codes yield nil.
func ErrorFromCode(code string) error {
	for _, e := range errorCodes {
		if e.code == code {
			return e.err
		}
	}
	return nil
}
