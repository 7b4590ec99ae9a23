package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"storefront/internal/kyc/models"
	"storefront/internal/verification/service"
	dErrors "storefront/pkg/domain-errors"
)

const (
	maxMemory = 32 << 20

	variantPart = "kyc_type"
	fieldsPart  = "fields"
	docsPrefix  = "documents"
)

// decodeSubmission reads a multipart submission. Fields arrive either as flat
// parts or as a single JSON object in the "fields" part; files arrive as
// documents[i] parts.
func decodeSubmission(w http.ResponseWriter, r *http.Request) (service.SubmissionInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, models.MaxUploadBytes)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return service.SubmissionInput{}, models.NewValidationError(map[string]string{
				"documents": fmt.Sprintf("upload exceeds the %dMB request limit", models.MaxUploadBytes>>20),
			})
		}
		return service.SubmissionInput{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "expected a multipart/form-data body")
	}
	form := r.MultipartForm
	defer func() {
		_ = form.RemoveAll()
	}()

	in := service.SubmissionInput{
		Variant: strings.TrimSpace(firstValue(form.Value, variantPart)),
		Fields:  map[string]string{},
	}
	if raw, ok := form.Value[fieldsPart]; ok && len(raw) > 0 {
		if err := json.Unmarshal([]byte(raw[0]), &in.Fields); err != nil {
			return service.SubmissionInput{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "fields must be a JSON object of strings")
		}
	} else {
		for name, values := range form.Value {
			if name == variantPart || len(values) == 0 {
				continue
			}
			in.Fields[name] = values[0]
		}
	}

	attachments, err := readDocuments(form.File)
	if err != nil {
		return service.SubmissionInput{}, err
	}
	in.Attachments = attachments
	return in, nil
}

func firstValue(values map[string][]string, key string) string {
	if v := values[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// readDocuments loads every documents[i] (or bare "documents") file part in
// index order.
func readDocuments(files map[string][]*multipart.FileHeader) ([]models.Attachment, error) {
	type indexed struct {
		index int
		fh    *multipart.FileHeader
	}
	var parts []indexed
	for name, headers := range files {
		index, ok := documentIndex(name)
		if !ok {
			continue
		}
		for _, fh := range headers {
			parts = append(parts, indexed{index: index, fh: fh})
		}
	}
	if len(parts) > models.MaxAttachments {
		return nil, models.NewValidationError(map[string]string{"documents": models.TooManyAttachments})
	}
	sort.SliceStable(parts, func(i, j int) bool { return parts[i].index < parts[j].index })

	out := make([]models.Attachment, 0, len(parts))
	for _, p := range parts {
		a, err := readDocument(p.fh)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func readDocument(fh *multipart.FileHeader) (models.Attachment, error) {
	if fh.Size > models.MaxAttachmentSize {
		return models.Attachment{}, models.NewValidationError(map[string]string{
			"documents": fh.Filename + ": " + models.ErrFileTooLarge.Error(),
		})
	}
	f, err := fh.Open()
	if err != nil {
		return models.Attachment{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable file part")
	}
	defer f.Close()

	data, err := models.ReadLimited(f, models.MaxAttachmentSize)
	if err != nil {
		if errors.Is(err, models.ErrFileTooLarge) {
			return models.Attachment{}, models.NewValidationError(map[string]string{
				"documents": fh.Filename + ": " + err.Error(),
			})
		}
		return models.Attachment{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "unreadable file part")
	}
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return models.Attachment{
		Name:        fh.Filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		Content:     data,
	}, nil
}

// documentIndex parses "documents[3]" to 3 and "documents" or "documents[]" to 0.
func documentIndex(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, docsPrefix)
	if !ok {
		return 0, false
	}
	if rest == "" || rest == "[]" {
		return 0, true
	}
	inner, ok := strings.CutPrefix(rest, "[")
	if !ok {
		return 0, false
	}
	inner, ok = strings.CutSuffix(inner, "]")
	if !ok {
		return 0, false
	}
	index, err := strconv.Atoi(inner)
	if err != nil || index < 0 {
		return 0, false
	}
	return index, true
}
