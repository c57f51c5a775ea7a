package slack

import (
	"context"

	"github.com/keepmind9/slackbridge/internal/logger"
	"github.com/keepmind9/slackbridge/pkg/constants"
	"github.com/sirupsen/logrus"
)

// UserDirectory resolves user IDs to merged user records, writing every
// sighting through to the runtime's user store.
//
// Merge rule: platform fields are authoritative and always refreshed;
// locally-added fields on the stored record are preserved when the new
// platform payload does not carry them. The rule is last-writer-wins safe,
// so concurrent normalization tasks may merge without coordination beyond
// the store's own locking.
type UserDirectory struct {
	api      UserAPI
	store    UserStore
	pageSize int
}

// NewUserDirectory creates a directory over the given API and store.
// pageSize bounds users.list pages; zero selects the default.
func NewUserDirectory(api UserAPI, store UserStore, pageSize int) *UserDirectory {
	if pageSize <= 0 {
		pageSize = constants.DefaultUserListPageSize
	}
	if pageSize > constants.MaxUserListPageSize {
		pageSize = constants.MaxUserListPageSize
	}
	return &UserDirectory{api: api, store: store, pageSize: pageSize}
}

// Resolve returns the user record for the given ID, fetching from the Web
// API on a store miss and writing the merged record through.
func (d *UserDirectory) Resolve(ctx context.Context, userID string) (*User, error) {
	if u, ok := d.store.Get(userID); ok {
		return u, nil
	}
	fresh, err := d.api.GetUserInfo(ctx, userID)
	if err != nil {
		return nil, err
	}
	return d.merge(fresh), nil
}

// UpdateFromEvent merges a user sighting carried inline on an event, whether
// it came from a dedicated user_change notification or any other event with
// an inline user payload. Events without a payload are ignored.
func (d *UserDirectory) UpdateFromEvent(ev *Event) *User {
	if ev == nil || ev.UserPayload == nil {
		return nil
	}
	return d.merge(ev.UserPayload)
}

// BulkLoad fetches the entire workspace member list, following the
// pagination cursor until the final page. Pages are merged into the store
// as they arrive; a failure on any page aborts the load and surfaces the
// error, leaving prior pages' merges in place.
func (d *UserDirectory) BulkLoad(ctx context.Context) ([]*User, error) {
	var all []*User
	cursor := ""
	page := 0
	for {
		members, next, err := d.api.ListUsers(ctx, cursor, d.pageSize)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"page":  page,
				"error": err,
			}).Error("user-list-page-fetch-failed")
			return nil, err
		}
		for _, m := range members {
			all = append(all, d.merge(m))
		}
		page++
		if next == "" {
			break
		}
		cursor = next
	}
	logger.WithFields(logrus.Fields{
		"users": len(all),
		"pages": page,
	}).Debug("user-list-loaded")
	return all, nil
}

// merge reconciles a fresh platform payload with the stored record per the
// directory's merge rule and writes the result through.
func (d *UserDirectory) merge(fresh *User) *User {
	if fresh == nil || fresh.ID == "" {
		return fresh
	}
	merged := *fresh
	stored, hasStored := d.store.Get(fresh.ID)
	if len(fresh.Extra) > 0 || (hasStored && stored != nil && len(stored.Extra) > 0) {
		extra := make(map[string]any, len(fresh.Extra))
		for k, v := range fresh.Extra {
			extra[k] = v
		}
		if hasStored && stored != nil {
			for k, v := range stored.Extra {
				if _, present := extra[k]; !present {
					extra[k] = v
				}
			}
		}
		merged.Extra = extra
	}
	if err := d.store.Set(&merged); err != nil {
		logger.WithFields(logrus.Fields{
			"user_id": merged.ID,
			"error":   err,
		}).Error("user-store-write-failed")
	}
	return &merged
}
