package dedupe

import (
	"github.com/kozaktomas/photo-dedup/internal/database"
)

// SelectPreferred picks the member to keep: the photo with the largest
// width*height, i.e. the highest-resolution copy. Ties are broken by the
// lowest photo ID so the choice is deterministic across runs. Returns an
// empty string for an empty member list.
func SelectPreferred(members []database.Photo) string {
	best := ""
	bestArea := -1
	for _, p := range members {
		area := p.Width * p.Height
		if area > bestArea || (area == bestArea && (best == "" || p.ID < best)) {
			best = p.ID
			bestArea = area
		}
	}
	return best
}
