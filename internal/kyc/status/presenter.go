// Package status maps submission statuses to display labels and badge classes.
package status

import "storefront/internal/kyc/models"

type presentation struct {
	label string
	badge string
}

var presentations = map[models.Status]presentation{
	models.StatusPending:     {"Pending", "badge-warning"},
	models.StatusUnderReview: {"Under Review", "badge-info"},
	models.StatusApproved:    {"Approved", "badge-success"},
	models.StatusRejected:    {"Rejected", "badge-danger"},
}

var unknown = presentation{"Unknown", "badge-secondary"}

// Label returns the human label for s.
func Label(s models.Status) string {
	return lookup(s).label
}

// BadgeClass returns the style key for s.
func BadgeClass(s models.Status) string {
	return lookup(s).badge
}

// Chip is the inline status view used by rows and detail pages.
type Chip struct {
	Status models.Status `json:"status"`
	Label  string        `json:"label"`
	Badge  string        `json:"badge"`
}

// ChipFor builds the chip for s.
func ChipFor(s models.Status) Chip {
	p := lookup(s)
	return Chip{Status: s, Label: p.label, Badge: p.badge}
}

func lookup(s models.Status) presentation {
	if p, ok := presentations[s]; ok {
		return p
	}
	return unknown
}
