// Package calendar provides the group calendar domain types and a client for
// the Microsoft Graph group calendar endpoints.
//
// Events are read from and written to the calendar of a single Microsoft 365
// Group. Every write is stamped with the configured timezone so that start and
// end are always expressed in the same zone, and every request asks Graph to
// return times in that zone.
//
// A Client is bound to one access token. Remote keeps a cache of one Client
// and rebuilds it whenever the token changes, so callers can pass a freshly
// acquired token on every operation:
//
//	remote := calendar.NewRemote(calendar.Options{
//	    GroupID:  "00000000-0000-0000-0000-000000000000",
//	    TimeZone: "SE Asia Standard Time",
//	})
//
//	window := calendar.CurrentMonth(time.Now(), loc)
//	events, err := remote.ListEvents(ctx, token, window.Start, window.End)
//	if err != nil {
//	    var rcf *calendar.RemoteCallFailed
//	    if errors.As(err, &rcf) {
//	        log.Printf("graph returned %d: %s", rcf.Status, rcf.Message)
//	    }
//	}
package calendar
