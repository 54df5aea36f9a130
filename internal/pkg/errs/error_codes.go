/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both inside the server and
in HTTP responses and websocket error events sent to clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request or event parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body or event payload is not valid JSON
	// or does not match the expected shape.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrFormParseFailed indicates failure to parse multipart or URL-encoded form data.
	ErrFormParseFailed = 1005

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007

	// ErrUnknownEvent indicates that the client sent a websocket event the server does not handle.
	ErrUnknownEvent = 1008
)

// 2xxx: Messaging and Group Business Logic Errors
const (
	// ErrMessageEmpty indicates that a message had neither text nor images.
	ErrMessageEmpty = 2201

	// ErrMessageContentTooLong indicates that the message text exceeded the maximum length limit.
	ErrMessageContentTooLong = 2202

	// ErrMessageNotFound indicates that the referenced message does not exist.
	ErrMessageNotFound = 2203

	// ErrDuplicateMessage indicates that a message with the same sending indicator was already stored.
	ErrDuplicateMessage = 2204

	// ErrReceiverNotFound indicates that the receiver of a direct message does not exist.
	ErrReceiverNotFound = 2205

	// ErrFileSizeTooLarge indicates that an uploaded image exceeded the size limit.
	ErrFileSizeTooLarge = 2301

	// ErrAttachmentCountInvalid indicates that a message carried too many or zero images.
	ErrAttachmentCountInvalid = 2302

	// ErrUnsupportedImage indicates that an uploaded file could not be decoded as an image.
	ErrUnsupportedImage = 2303

	// ErrAttachmentInvalid indicates that an image URL was not issued by this server to the sender.
	ErrAttachmentInvalid = 2304

	// ErrGroupNotFound indicates that the referenced group does not exist.
	ErrGroupNotFound = 2401

	// ErrGroupNameInvalid indicates that the group name is empty or too long.
	ErrGroupNameInvalid = 2402

	// ErrGroupMembersInvalid indicates that a group would have no member besides its creator.
	ErrGroupMembersInvalid = 2403
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrPowChallengeRequired indicates the client must complete a Proof-of-Work challenge first.
	ErrPowChallengeRequired = 3001

	// ErrPowChallengeInvalid indicates that the PoW proof provided by the client is invalid or incorrect.
	ErrPowChallengeInvalid = 3002

	// ErrAlreadyLoggedIn indicates that an authenticated session tried to sign up or log in again.
	ErrAlreadyLoggedIn = 3101

	// ErrInvalidUsername indicates that the username is empty or too long.
	ErrInvalidUsername = 3102

	// ErrInvalidPassword indicates that the password is empty or too long.
	ErrInvalidPassword = 3103

	// ErrPasswordMismatch indicates that the password confirmation does not match.
	ErrPasswordMismatch = 3104

	// ErrUserAlreadyExists indicates that the username is taken.
	ErrUserAlreadyExists = 3105

	// ErrInvalidCredentials indicates a failed login.
	ErrInvalidCredentials = 3106

	// ErrUserNotFound indicates that the referenced user does not exist.
	ErrUserNotFound = 3107

	// ErrUnauthorized indicates that the request carries no valid session.
	ErrUnauthorized = 3201
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrFileStorageFailed indicates that the object storage rejected an upload.
	ErrFileStorageFailed = 5001

	// ErrPersistenceFailed indicates that a durable write or read failed.
	ErrPersistenceFailed = 5002
)
