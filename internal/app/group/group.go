/*
Package group defines group chats and their membership rules.
*/
package group

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"livechat/internal/app/message"
	"livechat/internal/pkg/errs"
)

// MaxNameLength is the maximum number of characters in a group name.
const MaxNameLength = 100

// Group is a named set of users sharing one conversation.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Creator   string    `json:"creator"`
	Members   []string  `json:"users"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary is a group as shown in a chat list: the group plus its latest message, if any.
type Summary struct {
	Group
	LatestMessage *message.Message `json:"latestMessage"`
}

// HasMember reports whether userID belongs to g.
func (g Group) HasMember(userID string) bool {
	return slices.Contains(g.Members, userID)
}

// NormalizeName trims name and checks its length.
func NormalizeName(name string) (string, *errs.CustomError) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > MaxNameLength {
		return "", errs.NewError(errs.ErrGroupNameInvalid, MaxNameLength)
	}
	return name, nil
}

// NormalizeMembers deduplicates members keeping first occurrences, drops empty ids and makes
// sure creator is included (first, when it was absent). It fails when nobody but the
// creator would remain.
func NormalizeMembers(creator string, members []string) ([]string, *errs.CustomError) {
	seen := make(map[string]struct{}, len(members)+1)
	out := make([]string, 0, len(members)+1)

	if !slices.Contains(members, creator) {
		out = append(out, creator)
		seen[creator] = struct{}{}
	}

	for _, id := range members {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	if len(out) < 2 {
		return nil, errs.NewError(errs.ErrGroupMembersInvalid)
	}

	return out, nil
}

// Diff returns the members of before missing from after, and the members of after missing
// from before, both in their original order.
func Diff(before, after []string) (removed, added []string) {
	for _, id := range before {
		if !slices.Contains(after, id) {
			removed = append(removed, id)
		}
	}
	for _, id := range after {
		if !slices.Contains(before, id) {
			added = append(added, id)
		}
	}
	return removed, added
}
