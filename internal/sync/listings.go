package sync

import (
	"sort"

	"github.com/papermint/papermint-server/internal/domain"
)

// TaggedPreview is a board preview annotated with the store it came from,
// so thumbnail resolution can route downloads to the right blob store.
type TaggedPreview struct {
	domain.BoardPreview
	Residency domain.Residency `json:"residency"`
}

// YearGroup is one listing section: every preview created in Year, ordered
// by descending creation time.
type YearGroup struct {
	Year     int             `json:"year"`
	Previews []TaggedPreview `json:"previews"`
}

// PreviewFilter selects which previews a listing screen shows, e.g. the
// gift box filters to IsGift.
type PreviewFilter func(domain.BoardPreview) bool

// FilterAll admits every preview.
func FilterAll(domain.BoardPreview) bool { return true }

// FilterGifts admits only gift boards.
func FilterGifts(p domain.BoardPreview) bool { return p.IsGift }

// MergeListings combines the two stores' preview lists into year-grouped
// listing sections.
//
// A board promoted to remote may still have a stale local copy under the
// same ID; the remote preview is authoritative and the local duplicate is
// suppressed. Surviving previews sort by descending creation time, ties
// keeping their relative input order, and group by calendar year with
// years descending.
func MergeListings(local, remote []domain.BoardPreview, filter PreviewFilter) []YearGroup {
	remoteIDs := make(map[string]struct{}, len(remote))
	for _, p := range remote {
		remoteIDs[p.ID] = struct{}{}
	}

	merged := make([]TaggedPreview, 0, len(local)+len(remote))
	for _, p := range local {
		if _, dup := remoteIDs[p.ID]; dup {
			continue
		}
		if filter(p) {
			merged = append(merged, TaggedPreview{BoardPreview: p, Residency: domain.ResidencyLocal})
		}
	}
	for _, p := range remote {
		if filter(p) {
			merged = append(merged, TaggedPreview{BoardPreview: p, Residency: domain.ResidencyRemote})
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})

	var groups []YearGroup
	for _, p := range merged {
		year := p.CreatedAt.Year()
		if len(groups) == 0 || groups[len(groups)-1].Year != year {
			groups = append(groups, YearGroup{Year: year})
		}
		last := len(groups) - 1
		groups[last].Previews = append(groups[last].Previews, p)
	}
	return groups
}
