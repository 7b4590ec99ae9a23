package remote

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"sort"

	"storefront/internal/kyc/models"
)

// VariantPart is the multipart field carrying the variant key.
const VariantPart = "kyc_type"

// DocumentPart returns the multipart field name of the i-th file.
func DocumentPart(i int) string {
	return fmt.Sprintf("documents[%d]", i)
}

// encodeSubmission writes variant, flat field parts and indexed file parts.
// Field parts are written in name order.
func encodeSubmission(variant string, fields map[string]string, attachments []models.Attachment) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if variant != "" {
		if err := mw.WriteField(VariantPart, variant); err != nil {
			return nil, "", err
		}
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name == VariantPart {
			continue
		}
		if err := mw.WriteField(name, fields[name]); err != nil {
			return nil, "", err
		}
	}

	for i, a := range attachments {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, DocumentPart(i), escapeQuotes(a.Name)))
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(a.Content); err != nil {
			return nil, "", err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func escapeQuotes(s string) string {
	var out []rune
	for _, r := range s {
		if r == '"' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
