// Package store provides user store implementations backing the runtime's
// persistent key-value store of users. The in-memory store serves tests and
// single-process deployments; the Postgres store persists user records
// across restarts.
package store

import "github.com/keepmind9/slackbridge/internal/slack"

// Store is the persistence surface consumed by the adapter, plus lifecycle.
// Get and Set carry the merge-on-set contract: callers pass fully merged
// records and the store persists them whole.
type Store interface {
	Get(userID string) (*slack.User, bool)
	Set(user *slack.User) error
	Close() error
}
