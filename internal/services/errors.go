// Package services defines the business logic for presence, rooms, the
// offline inbox and transcript forwarding. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Room-related errors.
var (
	// ErrRoomRequired is returned when an operation needs a room id and the
	// caller supplied a blank one.
	ErrRoomRequired = errors.New("room id is required")

	// ErrRoomNotFound indicates that no room record exists for the id.
	ErrRoomNotFound = errors.New("room not found")

	// ErrEmptyText is returned when a visitor, admin or agent message has no
	// text after trimming.
	ErrEmptyText = errors.New("message text is empty")

	// ErrTextTooLong is returned when a message exceeds MaxTextRunes.
	ErrTextTooLong = errors.New("message text too long")

	// ErrInvalidRole is returned for roles outside the known set.
	ErrInvalidRole = errors.New("invalid message role")
)

// Inbox-related errors.
var (
	// ErrAdminOnline is returned by InboxService.Submit while an admin is
	// available; the visitor should continue in live chat instead.
	ErrAdminOnline = errors.New("admin is online; continue in chat")

	// ErrInvalidStatus is returned for inbox statuses outside
	// queued/in_progress/done.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInboxItemNotFound indicates that the inbox item does not exist.
	ErrInboxItemNotFound = errors.New("inbox item not found")

	// ErrInvalidSubmission is returned when a submission is missing its
	// room, email or question.
	ErrInvalidSubmission = errors.New("invalid inbox submission")
)

// Transcript-related errors.
var (
	// ErrMailerDisabled is returned when no outgoing mail transport is
	// configured.
	ErrMailerDisabled = errors.New("mailer not configured")

	// ErrInvalidRecipient is returned for a missing or malformed "to" address.
	ErrInvalidRecipient = errors.New("valid recipient email is required")
)
