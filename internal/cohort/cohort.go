// Package cohort partitions eligible offers into groups that share a
// category and vendor.
package cohort

import (
	"database/sql"

	"github.com/maauso/offervideo/internal/catalog"
)

// Key identifies a cohort. Absent category or vendor values are a grouping
// value of their own: an offer without a vendor only groups with other
// vendor-less offers of the same category.
type Key struct {
	CategoryID sql.NullString
	Vendor     sql.NullString
}

// KeyOf returns the cohort key of an offer.
func KeyOf(o catalog.Offer) Key {
	return Key{CategoryID: o.CategoryID, Vendor: o.Vendor}
}

// Cohort is an ordered group of offers sharing a Key, in catalog order.
type Cohort struct {
	Key    Key
	Offers []catalog.Offer
}

// Result is the outcome of grouping a catalog.
type Result struct {
	// Cohorts in order of first appearance of their key.
	Cohorts []Cohort
	// Existing counts offers that already have a video.
	Existing int
	// MissingImage counts offers without a source image.
	MissingImage int
}

// Eligible is the number of offers placed into cohorts.
func (r Result) Eligible() int {
	n := 0
	for _, c := range r.Cohorts {
		n += len(c.Offers)
	}
	return n
}

// Lookup is the read-only view of an index the builder needs.
type Lookup interface {
	Has(id string) bool
}

// Build groups offers that have an image and no video yet. The video check
// runs first, so an offer with a video is counted as existing even when its
// image is gone.
func Build(offers []catalog.Offer, images, videos Lookup) Result {
	var res Result
	positions := make(map[Key]int)

	for _, o := range offers {
		if videos.Has(o.ID) {
			res.Existing++
			continue
		}
		if !images.Has(o.ID) {
			res.MissingImage++
			continue
		}

		key := KeyOf(o)
		pos, ok := positions[key]
		if !ok {
			pos = len(res.Cohorts)
			positions[key] = pos
			res.Cohorts = append(res.Cohorts, Cohort{Key: key})
		}
		res.Cohorts[pos].Offers = append(res.Cohorts[pos].Offers, o)
	}

	return res
}
