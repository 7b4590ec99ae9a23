package models

// FieldKind is the input control a field renders as.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindEmail    FieldKind = "email"
	KindPhone    FieldKind = "tel"
	KindDate     FieldKind = "date"
	KindNumber   FieldKind = "number"
	KindTextarea FieldKind = "textarea"
	KindSelect   FieldKind = "select"
)

// FieldDescriptor describes one input of a variant's form.
type FieldDescriptor struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Kind     FieldKind `json:"kind"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"`
}

var personalFields = []FieldDescriptor{
	{Name: "full_name", Label: "Full Name", Kind: KindText, Required: true},
	{Name: "email", Label: "Email Address", Kind: KindEmail, Required: true},
	{Name: "phone", Label: "Phone Number", Kind: KindPhone},
	{Name: "address", Label: "Address", Kind: KindTextarea},
}

// variantFields holds the fields each variant adds after the personal group.
// Adding a variant only needs a new entry here.
var variantFields = map[string][]FieldDescriptor{
	VariantIdentity: {
		{Name: "date_of_birth", Label: "Date of Birth", Kind: KindDate},
		{Name: "nationality", Label: "Nationality", Kind: KindText},
		{Name: "id_number", Label: "ID Number", Kind: KindText},
	},
	VariantVendor: {
		{Name: "business_name", Label: "Business Name", Kind: KindText, Required: true},
		{Name: "business_type", Label: "Business Type", Kind: KindSelect,
			Options: []string{"sole_proprietorship", "partnership", "corporation", "llc", "other"}},
		{Name: "tax_id", Label: "Tax ID", Kind: KindText},
		{Name: "business_address", Label: "Business Address", Kind: KindTextarea},
	},
	VariantProperty: {
		{Name: "property_type", Label: "Property Type", Kind: KindSelect, Required: true,
			Options: []string{"residential", "commercial", "land", "industrial"}},
		{Name: "property_size", Label: "Property Size", Kind: KindText},
		{Name: "property_address", Label: "Property Address", Kind: KindTextarea},
		{Name: "ownership_type", Label: "Ownership Type", Kind: KindSelect,
			Options: []string{"owner", "leaseholder", "agent"}},
	},
	VariantVehicle: {
		{Name: "vehicle_make", Label: "Vehicle Make", Kind: KindText, Required: true},
		{Name: "vehicle_model", Label: "Vehicle Model", Kind: KindText, Required: true},
		{Name: "vehicle_year", Label: "Year", Kind: KindNumber},
		{Name: "license_plate", Label: "License Plate", Kind: KindText},
		{Name: "vin", Label: "VIN", Kind: KindText},
	},
	VariantAuction: {
		{Name: "auction_type", Label: "Auction Type", Kind: KindSelect,
			Options: []string{"english", "dutch", "sealed_bid", "reserve"}},
		{Name: "item_condition", Label: "Item Condition", Kind: KindSelect,
			Options: []string{"new", "like_new", "used", "refurbished"}},
		{Name: "item_category", Label: "Item Category", Kind: KindText},
		{Name: "estimated_value", Label: "Estimated Value", Kind: KindNumber},
	},
}

// FieldsFor returns the ordered descriptors for variant. Unknown variants get
// the personal group only. The returned slice is a copy.
func FieldsFor(variant string) []FieldDescriptor {
	extra := variantFields[variant]
	out := make([]FieldDescriptor, 0, len(personalFields)+len(extra))
	out = append(out, personalFields...)
	out = append(out, extra...)
	return out
}

// RequiredFields returns the names of the mandatory fields for variant, in render order.
func RequiredFields(variant string) []string {
	var names []string
	for _, f := range FieldsFor(variant) {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// HasField reports whether name is rendered for variant.
func HasField(variant, name string) bool {
	for _, f := range FieldsFor(variant) {
		if f.Name == name {
			return true
		}
	}
	return false
}
