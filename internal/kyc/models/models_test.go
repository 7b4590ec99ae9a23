package models

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/httputil"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusUnderReview, true},
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusUnderReview, StatusApproved, true},
		{StatusUnderReview, StatusRejected, true},
		{StatusUnderReview, StatusPending, false},
		{StatusRejected, StatusPending, true},
		{StatusRejected, StatusApproved, false},
		{StatusApproved, StatusPending, false},
		{StatusApproved, StatusRejected, false},
		{Status("bogus"), StatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestStatus_IsEditable(t *testing.T) {
	assert.True(t, StatusPending.IsEditable())
	assert.True(t, StatusRejected.IsEditable())
	assert.False(t, StatusUnderReview.IsEditable())
	assert.False(t, StatusApproved.IsEditable())
	assert.True(t, StatusApproved.IsTerminal())
}

func TestFieldsFor_RequiredSetPerVariant(t *testing.T) {
	tests := map[string][]string{
		VariantIdentity: {"full_name", "email"},
		VariantVendor:   {"full_name", "email", "business_name"},
		VariantProperty: {"full_name", "email", "property_type"},
		VariantVehicle:  {"full_name", "email", "vehicle_make", "vehicle_model"},
		VariantAuction:  {"full_name", "email"},
		"boat":          {"full_name", "email"},
	}
	for variant, want := range tests {
		t.Run(variant, func(t *testing.T) {
			assert.Equal(t, want, RequiredFields(variant))
		})
	}
}

func TestFieldsFor_PersonalGroupFirst(t *testing.T) {
	fields := FieldsFor(VariantVehicle)
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"full_name", "email", "phone", "address",
		"vehicle_make", "vehicle_model", "vehicle_year", "license_plate", "vin"}, names)

	fields[0].Label = "mutated"
	assert.Equal(t, "Full Name", FieldsFor(VariantVehicle)[0].Label)
}

func TestHasField(t *testing.T) {
	assert.True(t, HasField(VariantVendor, "business_name"))
	assert.False(t, HasField(VariantIdentity, "business_name"))
	assert.True(t, HasField("unknown", "email"))
}

func TestValidateFields(t *testing.T) {
	t.Run("vendor with empty full name", func(t *testing.T) {
		err := ValidateFields(VariantVendor, map[string]string{
			"full_name": "", "email": "a@b.com", "business_name": "Acme",
		}, 1)
		require.NotNil(t, err)
		assert.Equal(t, []string{"full_name"}, keys(err.Fields))
	})

	t.Run("each required field blocks on its own", func(t *testing.T) {
		for _, variant := range DefaultCatalog().Keys() {
			full := completeFields(variant)
			require.Nil(t, ValidateFields(variant, full, 1), variant)
			for _, name := range RequiredFields(variant) {
				fields := copyMap(full)
				fields[name] = "   "
				err := ValidateFields(variant, fields, 1)
				require.NotNil(t, err, "%s/%s", variant, name)
				assert.Contains(t, err.Fields, name)
				assert.Len(t, err.Fields, 1)
			}
		}
	})

	t.Run("email without at sign", func(t *testing.T) {
		err := ValidateFields(VariantIdentity, map[string]string{"full_name": "A", "email": "nope"}, 1)
		require.NotNil(t, err)
		assert.Contains(t, err.Fields, "email")
	})

	t.Run("zero attachments", func(t *testing.T) {
		err := ValidateFields(VariantIdentity, completeFields(VariantIdentity), 0)
		require.NotNil(t, err)
		assert.Contains(t, err.Fields, "documents")
	})

	t.Run("maps to validation code with field errors", func(t *testing.T) {
		var err error = ValidateFields(VariantIdentity, nil, 0)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		var fe httputil.FieldErrorer
		require.ErrorAs(t, err, &fe)
		assert.Len(t, fe.FieldErrors(), 3)
	})
}

func TestCheckFile(t *testing.T) {
	assert.Empty(t, CheckFile("passport.PDF", 2<<20))
	assert.Empty(t, CheckFile("scan.docx", MaxAttachmentSize))
	assert.NotEmpty(t, CheckFile("scan.exe", 10))
	assert.NotEmpty(t, CheckFile("noext", 10))
	assert.NotEmpty(t, CheckFile("big.png", MaxAttachmentSize+1))
	assert.NotEmpty(t, CheckFile("", 10))
}

func TestNewAttachment(t *testing.T) {
	t.Run("accepts a small pdf", func(t *testing.T) {
		a, err := NewAttachment("dir/id.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
		require.NoError(t, err)
		assert.Equal(t, "id.pdf", a.Name)
		assert.Equal(t, int64(8), a.Size)
	})

	t.Run("rejects oversize before reading everything", func(t *testing.T) {
		big := bytes.Repeat([]byte("a"), int(MaxAttachmentSize)+10)
		_, err := NewAttachment("big.pdf", "application/pdf", bytes.NewReader(big))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejects unsupported extension", func(t *testing.T) {
		_, err := NewAttachment("run.sh", "text/plain", strings.NewReader("echo"))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestCatalog_Normalize(t *testing.T) {
	c := Catalog{
		"vendor": {Name: "Vendor", RequiredDocuments: []string{" License ", "License", ""}},
		"":       {Name: "dropped"},
		"boat":   {},
	}.Normalize()

	assert.Equal(t, []string{"boat", "vendor"}, c.Keys())
	assert.Equal(t, "vendor", c["vendor"].Key)
	assert.Equal(t, []string{"License"}, c["vendor"].RequiredDocuments)
	assert.Equal(t, "boat", c["boat"].Name)
	assert.NotNil(t, c["boat"].RequiredDocuments)
}

func TestHeldVariants(t *testing.T) {
	held := HeldVariants([]Submission{
		{Variant: VariantVendor, Status: StatusPending},
		{Variant: VariantVehicle, Status: StatusRejected},
		{Variant: VariantIdentity, Status: StatusApproved},
	})
	assert.True(t, held[VariantVendor])
	assert.True(t, held[VariantIdentity])
	assert.False(t, held[VariantVehicle])
}

func TestSubmission_Clone(t *testing.T) {
	notes := "blurry"
	s := &Submission{Fields: map[string]string{"a": "1"}, Documents: []Document{{ID: "d"}}, AdminNotes: &notes}
	c := s.Clone()
	c.Fields["a"] = "2"
	*c.AdminNotes = "changed"
	c.Documents[0].ID = "x"
	assert.Equal(t, "1", s.Fields["a"])
	assert.Equal(t, "blurry", *s.AdminNotes)
	assert.Equal(t, "d", s.Documents[0].ID)
}

func completeFields(variant string) map[string]string {
	out := map[string]string{}
	for _, f := range FieldsFor(variant) {
		out[f.Name] = "value"
	}
	out["email"] = "jane@example.com"
	return out
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
