package inbox

import (
	"github.com/nhle/evcharge-console/internal/gateway"
	"github.com/nhle/evcharge-console/internal/model"
)

// merge reconciles a freshly fetched list with the existing local records.
// The merged set replaces the list, in server order:
//
//  1. A record with an unknown id is adopted as-is; an absent read flag
//     defaults to unread.
//  2. For a known id, an explicit server read flag wins. When the server is
//     silent and the local record is already read, it stays read.
//
// Rule 2 keeps the read flag monotonic: the bulk list endpoint does not
// reliably echo read state, while the dedicated mark-read call does, so a
// just-read notification must not flip back to unread on the next refresh.
// The rules are idempotent, so two overlapping refreshes may apply in
// completion order without corrupting state.
func merge(existing []model.Notification, fresh []gateway.Record) []model.Notification {
	byID := make(map[string]model.Notification, len(existing))
	for _, e := range existing {
		byID[e.ID] = e
	}

	merged := make([]model.Notification, 0, len(fresh))
	for _, f := range fresh {
		n := f.Notification()
		if e, ok := byID[f.ID]; ok && f.Read == nil && e.IsRead {
			n.IsRead = true
		}
		merged = append(merged, n)
	}
	return merged
}
