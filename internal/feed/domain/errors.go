package domain

import "errors"

var (
	// ErrDuplicateID a record with the same id is already in the window
	ErrDuplicateID = errors.New("message id already present")
	// ErrMessageNotFound no record with the id in the window
	ErrMessageNotFound = errors.New("message not found")
	// ErrEmptyMessage neither content nor attachments
	ErrEmptyMessage = errors.New("message has no content and no attachments")
	// ErrMessagePending the record is still a local echo
	ErrMessagePending = errors.New("message is awaiting confirmation")
	// ErrMutationInFlight another edit or delete on the record is outstanding
	ErrMutationInFlight = errors.New("mutation already in flight for message")
	// ErrMutationRejected the server refused the mutation, local state rolled back
	ErrMutationRejected = errors.New("mutation rejected")

	// ErrBackfillInFlight an older page request is outstanding for the room
	ErrBackfillInFlight = errors.New("history request already in flight")
	// ErrHistoryExhausted no older page is believed to exist
	ErrHistoryExhausted = errors.New("no more history")
	// ErrStaleResponse the response belongs to a room that is no longer current
	ErrStaleResponse = errors.New("stale response")

	// ErrNoRoom no room selected
	ErrNoRoom = errors.New("no room selected")
	// ErrRoomNotFound the registry does not know the room
	ErrRoomNotFound = errors.New("room not found")
	// ErrNotMounted the feed session is not mounted
	ErrNotMounted = errors.New("feed session not mounted")
	// ErrAlreadyMounted the feed session is already mounted
	ErrAlreadyMounted = errors.New("feed session already mounted")

	// ErrPreviewUnsupported the attachment can only be downloaded
	ErrPreviewUnsupported = errors.New("attachment has no preview")
	// ErrAttachmentTooLarge upload above the configured limit
	ErrAttachmentTooLarge = errors.New("attachment too large")
	// ErrAttachmentType upload MIME type not allowed
	ErrAttachmentType = errors.New("attachment type not allowed")
	// ErrInvalidAttachment malformed upload request
	ErrInvalidAttachment = errors.New("invalid attachment")
)
