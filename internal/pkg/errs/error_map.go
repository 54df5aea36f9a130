/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses, websocket error events and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format."},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format."},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data."},
	ErrFormParseFailed:       {Code: ErrFormParseFailed, Message: "Failed to process uploaded data."},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large."},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrUnknownEvent:          {Code: ErrUnknownEvent, Message: "Unsupported event: %s."},

	// 2xxx: Messaging and Group Business Logic Errors
	ErrMessageEmpty:           {Code: ErrMessageEmpty, Message: "Message must contain text or images."},
	ErrMessageContentTooLong:  {Code: ErrMessageContentTooLong, Message: "Message is too long."},
	ErrMessageNotFound:        {Code: ErrMessageNotFound, Message: "Message not found.", Status: http.StatusNotFound},
	ErrDuplicateMessage:       {Code: ErrDuplicateMessage, Message: "Message was already sent."},
	ErrReceiverNotFound:       {Code: ErrReceiverNotFound, Message: "Recipient not found.", Status: http.StatusNotFound},
	ErrFileSizeTooLarge:       {Code: ErrFileSizeTooLarge, Message: "File is too large."},
	ErrAttachmentCountInvalid: {Code: ErrAttachmentCountInvalid, Message: "A message can carry between 1 and %d images."},
	ErrUnsupportedImage:       {Code: ErrUnsupportedImage, Message: "Unsupported image format."},
	ErrAttachmentInvalid:      {Code: ErrAttachmentInvalid, Message: "Image must be uploaded before it is sent."},
	ErrGroupNotFound:          {Code: ErrGroupNotFound, Message: "Group not found.", Status: http.StatusNotFound},
	ErrGroupNameInvalid:       {Code: ErrGroupNameInvalid, Message: "Group name must be between 1 and %d characters."},
	ErrGroupMembersInvalid:    {Code: ErrGroupMembersInvalid, Message: "A group needs at least one other member."},

	// 3xxx: User, Session, and Security Errors
	ErrPowChallengeRequired: {Code: ErrPowChallengeRequired, Message: "Verification required. Please try again."},
	ErrPowChallengeInvalid:  {Code: ErrPowChallengeInvalid, Message: "Verification failed. Please try again."},
	ErrAlreadyLoggedIn:      {Code: ErrAlreadyLoggedIn, Message: "You are already signed in."},
	ErrInvalidUsername:      {Code: ErrInvalidUsername, Message: "Username must be between 1 and 100 characters.", Status: http.StatusBadRequest},
	ErrInvalidPassword:      {Code: ErrInvalidPassword, Message: "Password must be between 1 and 100 characters.", Status: http.StatusBadRequest},
	ErrPasswordMismatch:     {Code: ErrPasswordMismatch, Message: "Passwords don't match.", Status: http.StatusBadRequest},
	ErrUserAlreadyExists:    {Code: ErrUserAlreadyExists, Message: "Username already exists.", Status: http.StatusBadRequest},
	ErrInvalidCredentials:   {Code: ErrInvalidCredentials, Message: "Incorrect username or password.", Status: http.StatusUnauthorized},
	ErrUserNotFound:         {Code: ErrUserNotFound, Message: "Account not found.", Status: http.StatusNotFound},

	ErrUnauthorized: {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},

	// 5xxx: Internal System Errors
	ErrUnknown:           {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrFileStorageFailed: {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again.", Status: http.StatusBadGateway},
	ErrPersistenceFailed: {Code: ErrPersistenceFailed, Message: "Could not save your changes. Please try again.", Status: http.StatusInternalServerError},
}
