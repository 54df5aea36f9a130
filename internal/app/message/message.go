/*
Package message defines chat messages exchanged in direct conversations and groups.

A message is immutable once stored: it is created and eventually deleted, never edited.
*/
package message

import (
	"time"
	"unicode/utf8"

	"livechat/internal/pkg/errs"
)

const (
	// MaxContentLength is the maximum number of characters of text content.
	MaxContentLength = 5000

	// MaxImages is the maximum number of images a single send may carry.
	MaxImages = 3
)

// Image is an uploaded picture attached to a message.
type Image struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"`
}

// Message is a stored chat message. Receiver is a user id for direct messages and a group
// id for group messages.
type Message struct {
	ID                 string    `json:"id"`
	Sender             string    `json:"sender"`
	Receiver           string    `json:"receiver"`
	Content            string    `json:"content,omitempty"`
	Images             []Image   `json:"images"`
	CreatedAt          time.Time `json:"createdAt"`
	SendingIndicatorID string    `json:"sendingIndicatorId,omitempty"`
}

// ImageURLs returns the URLs of every image attached to m.
func (m Message) ImageURLs() []string {
	urls := make([]string, 0, len(m.Images))
	for _, img := range m.Images {
		urls = append(urls, img.URL)
	}
	return urls
}

// Draft is the validated content of one send request before it is split into stored messages.
type Draft struct {
	Text   string
	Images []Image
}

// ValidateDraft checks that d carries text or at least one image, within limits.
func ValidateDraft(d Draft) *errs.CustomError {
	if d.Text == "" && len(d.Images) == 0 {
		return errs.NewError(errs.ErrMessageEmpty)
	}

	if utf8.RuneCountInString(d.Text) > MaxContentLength {
		return errs.NewError(errs.ErrMessageContentTooLong)
	}

	if len(d.Images) > MaxImages {
		return errs.NewError(errs.ErrAttachmentCountInvalid, MaxImages)
	}

	for _, img := range d.Images {
		if img.URL == "" {
			return errs.NewError(errs.ErrInvalidParams)
		}
	}

	return nil
}

// Split turns a draft into the messages to persist. When a send carries both text and images
// the text message is timestamped one millisecond before the image message, so history
// always shows the caption first.
func Split(sender, receiver string, d Draft, now time.Time, sendingIndicatorID string) []Message {
	var msgs []Message

	if d.Text != "" {
		createdAt := now
		if len(d.Images) > 0 {
			createdAt = now.Add(-time.Millisecond)
		}
		msgs = append(msgs, Message{
			Sender:    sender,
			Receiver:  receiver,
			Content:   d.Text,
			Images:    []Image{},
			CreatedAt: createdAt,
		})
	}

	if len(d.Images) > 0 {
		msgs = append(msgs, Message{
			Sender:    sender,
			Receiver:  receiver,
			Images:    d.Images,
			CreatedAt: now,
		})
	}

	if len(msgs) > 0 {
		msgs[0].SendingIndicatorID = sendingIndicatorID
	}

	return msgs
}
