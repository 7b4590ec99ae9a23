// Package models holds the KYC data model shared by the storefront and the
// verification authority.
package models

import (
	"sort"

	pstrings "storefront/pkg/platform/strings"
)

// Default variant keys. The catalog is served dynamically, so any other key is
// also valid as long as the catalog carries it.
const (
	VariantIdentity = "identity"
	VariantVendor   = "vendor"
	VariantProperty = "property"
	VariantVehicle  = "vehicle"
	VariantAuction  = "auction"
)

// VerificationType describes one verification variant offered by the authority.
type VerificationType struct {
	Key               string   `json:"key"`
	Name              string   `json:"name"`
	Icon              string   `json:"icon,omitempty"`
	Color             string   `json:"color,omitempty"`
	Description       string   `json:"description,omitempty"`
	RequiredDocuments []string `json:"required_documents"`
}

// Catalog maps variant key to its type.
type Catalog map[string]VerificationType

// Keys returns the catalog keys in ascending order.
func (c Catalog) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether variant is offered.
func (c Catalog) Has(variant string) bool {
	_, ok := c[variant]
	return ok
}

// Normalize fills missing keys from the map key and trims the document labels.
// Entries with an empty key are dropped.
func (c Catalog) Normalize() Catalog {
	out := make(Catalog, len(c))
	for key, t := range c {
		if key == "" {
			continue
		}
		t.Key = key
		t.RequiredDocuments = pstrings.DedupeAndTrim(t.RequiredDocuments)
		if t.RequiredDocuments == nil {
			t.RequiredDocuments = []string{}
		}
		if t.Name == "" {
			t.Name = key
		}
		out[key] = t
	}
	return out
}

// DefaultCatalog is the set of variants the authority seeds on first start.
func DefaultCatalog() Catalog {
	return Catalog{
		VariantIdentity: {
			Key:               VariantIdentity,
			Name:              "Identity Verification",
			Icon:              "fa-id-card",
			Color:             "primary",
			Description:       "Verify your personal identity with a government-issued document.",
			RequiredDocuments: []string{"Government-issued ID", "Proof of address"},
		},
		VariantVendor: {
			Key:               VariantVendor,
			Name:              "Vendor Verification",
			Icon:              "fa-store",
			Color:             "success",
			Description:       "Verify your business to start selling on the marketplace.",
			RequiredDocuments: []string{"Business registration certificate", "Tax identification document"},
		},
		VariantProperty: {
			Key:               VariantProperty,
			Name:              "Property Verification",
			Icon:              "fa-home",
			Color:             "info",
			Description:       "Verify ownership before listing real estate.",
			RequiredDocuments: []string{"Title deed or lease agreement", "Recent utility bill"},
		},
		VariantVehicle: {
			Key:               VariantVehicle,
			Name:              "Vehicle Verification",
			Icon:              "fa-car",
			Color:             "warning",
			Description:       "Verify ownership before listing a vehicle.",
			RequiredDocuments: []string{"Vehicle registration", "Proof of insurance"},
		},
		VariantAuction: {
			Key:               VariantAuction,
			Name:              "Auction Seller Verification",
			Icon:              "fa-gavel",
			Color:             "danger",
			Description:       "Verify your eligibility to run auctions.",
			RequiredDocuments: []string{"Proof of item ownership"},
		},
	}
}
