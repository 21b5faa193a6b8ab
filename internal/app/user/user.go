/*
Package user defines the authenticated identity the relay attaches to a session.

Identities are issued by the external authentication collaborator; the relay
only reads them from verified tokens.
*/
package user

import "strconv"

// User is the identity of a connected chat participant.
type User struct {
	// ID is the numeric account id, the same id used in chat membership.
	ID int64 `json:"id"`

	// Username is the account's display name, used in join/leave notices.
	Username string `json:"username"`
}

// IDString returns the account id in decimal form, for log fields and URL keys.
func (u User) IDString() string {
	return strconv.FormatInt(u.ID, 10)
}
