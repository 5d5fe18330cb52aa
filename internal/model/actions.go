package model

import (
	"fmt"
	"slices"
)

// Action is something the acting identity can do with a record.
type Action string

const (
	ActionOpen     Action = "open"
	ActionShare    Action = "share"
	ActionEdit     Action = "edit"
	ActionDelete   Action = "delete"
	ActionFollow   Action = "follow"
	ActionUnfollow Action = "unfollow"
	ActionPin      Action = "pin"
	ActionUnpin    Action = "unpin"
	ActionBlock    Action = "block"
	ActionUnblock  Action = "unblock"
)

// Shareable records have a public URL.
type Shareable interface {
	Record
	ShareURL() string
}

// Manageable records can be edited and deleted by their owner.
type Manageable interface {
	Record
	Editable() bool
}

func (a AddressInfo) ShareURL() string { return a.URL }

func (s Status) ShareURL() string {
	return fmt.Sprintf("https://%s.status.lol/%s", s.Owner, s.ID)
}

func (w WeblogEntry) ShareURL() string { return w.Link }

func (p PURL) ShareURL() string {
	return fmt.Sprintf("https://%s.url.lol/%s", p.Owner, p.ID)
}

func (p Paste) ShareURL() string {
	return fmt.Sprintf("https://%s.paste.lol/%s", p.Owner, p.ID)
}

func (p Pic) ShareURL() string { return p.URL }

func (n NowPage) ShareURL() string {
	return fmt.Sprintf("https://%s.omg.lol/now", n.Owner)
}

func (ProfilePage) Editable() bool { return true }
func (Status) Editable() bool      { return true }
func (PURL) Editable() bool        { return true }
func (Paste) Editable() bool       { return true }
func (Pic) Editable() bool         { return true }
func (NowPage) Editable() bool     { return true }

// Actions lists what book's identity may do with r.
func Actions(r Record, book AddressBook) []Action {
	owner := r.Key().Owner
	actions := []Action{ActionOpen}
	if s, ok := r.(Shareable); ok && s.ShareURL() != "" {
		actions = append(actions, ActionShare)
	}
	if book.SignedIn() && book.Owns(owner) {
		if m, ok := r.(Manageable); ok && m.Editable() {
			actions = append(actions, ActionEdit, ActionDelete)
		}
		return actions
	}
	if _, ok := r.(AddressInfo); ok {
		if book.IsPinned(owner) {
			actions = append(actions, ActionUnpin)
		} else {
			actions = append(actions, ActionPin)
		}
		if book.SignedIn() {
			if book.IsFollowing(owner) {
				actions = append(actions, ActionUnfollow)
			} else {
				actions = append(actions, ActionFollow)
			}
		}
	}
	if slices.Contains(book.Blocked, owner) {
		actions = append(actions, ActionUnblock)
	} else {
		actions = append(actions, ActionBlock)
	}
	return actions
}
