// Package thread turns raw reply listings into the filtered comment set a
// run verifies.
package thread

import (
	"time"

	"github.com/alexpopa-work/partnered-youtube-reddit/reddit"
	"github.com/alexpopa-work/partnered-youtube-reddit/ytlink"
)

// Comment is a filtered thread reply carrying its extracted channel link.
type Comment struct {
	Author     string
	Body       string
	Created    int64
	CreatedUTC int64
	Link       string
}

// Filter builds the comments worth verifying from a thread's root replies and
// the expanded overflow replies, in that order. Comments from deleted
// accounts, comments without a channel link, and comments outside the
// (start, now) window are dropped. Both window bounds are exclusive, so a run
// never re-verifies the comment whose timestamp equals the saved checkpoint.
func Filter(raw, more []reddit.Comment, start, now time.Time) []Comment {
	candidates := make([]reddit.Comment, 0, len(raw)+len(more))
	candidates = append(candidates, raw...)
	candidates = append(candidates, more...)

	var kept []Comment
	for _, rc := range candidates {
		if rc.Author == reddit.DeletedAuthor {
			continue
		}

		link := ytlink.Extract(rc.Body)
		if link == "" || link == ytlink.Homepage {
			continue
		}

		createdUTC := int64(rc.CreatedUTC)
		created := time.Unix(createdUTC, 0).UTC()
		if !created.After(start) || !created.Before(now) {
			continue
		}

		kept = append(kept, Comment{
			Author:     rc.Author,
			Body:       rc.Body,
			Created:    int64(rc.Created),
			CreatedUTC: createdUTC,
			Link:       link,
		})
	}
	return kept
}
