// Package policy holds the per-category upload rules.
package policy

import (
	"fmt"
	"mime"
	"path/filepath"
	"slices"
	"strings"

	"certdocs/internal/model"
)

const mb = 1 << 20

// ValidationPolicy is the immutable rule set for one document category.
type ValidationPolicy struct {
	Category           model.Category `json:"category"`
	MaxSizeBytes       int64          `json:"max_size_bytes"`
	AcceptedMediaTypes []string       `json:"accepted_media_types"`
	AcceptedExtensions []string       `json:"accepted_extensions"`
	Required           bool           `json:"required"`
	Description        string         `json:"description"`
}

var (
	pdfOnly       = []string{"application/pdf"}
	pdfOrImage    = []string{"application/pdf", "image/jpeg", "image/png"}
	pdfOnlyExt    = []string{".pdf"}
	pdfOrImageExt = []string{".pdf", ".jpg", ".jpeg", ".png"}
)

var table = [...]ValidationPolicy{
	model.CategoryIdentity: {
		MaxSizeBytes:       5 * mb,
		AcceptedMediaTypes: pdfOrImage,
		AcceptedExtensions: pdfOrImageExt,
		Required:           true,
		Description:        "Government-issued photo identification of the applicant",
	},
	model.CategorySafetyPermit: {
		MaxSizeBytes:       10 * mb,
		AcceptedMediaTypes: pdfOnly,
		AcceptedExtensions: pdfOnlyExt,
		Required:           true,
		Description:        "Current fire and safety permit for the property",
	},
	model.CategoryInsuranceCertificate: {
		MaxSizeBytes:       10 * mb,
		AcceptedMediaTypes: pdfOnly,
		AcceptedExtensions: pdfOnlyExt,
		Required:           true,
		Description:        "Liability insurance certificate covering the property",
	},
	model.CategoryPropertyDeed: {
		MaxSizeBytes:       10 * mb,
		AcceptedMediaTypes: pdfOrImage,
		AcceptedExtensions: pdfOrImageExt,
		Required:           false,
		Description:        "Title deed or lease agreement proving the right to operate the property",
	},
	model.CategoryOther: {
		MaxSizeBytes:       20 * mb,
		AcceptedMediaTypes: pdfOrImage,
		AcceptedExtensions: pdfOrImageExt,
		Required:           false,
		Description:        "Any supporting material for the application",
	},
}

// Fails to compile when a category is appended to model without a policy entry.
var _ = [1]struct{}{}[len(table)-int(model.NumCategories)]

// For returns the policy of a category. An error means the category set and the
// table have drifted apart, which is a deployment defect.
func For(c model.Category) (ValidationPolicy, error) {
	if !c.Valid() || int(c) >= len(table) || table[c].MaxSizeBytes == 0 {
		return ValidationPolicy{}, model.NewError(model.ErrConfiguration, c.String(), "no validation policy configured for category")
	}
	p := table[c]
	p.Category = c
	return p, nil
}

// All returns every policy in category order.
func All() ([]ValidationPolicy, error) {
	out := make([]ValidationPolicy, 0, model.NumCategories)
	for _, c := range model.Categories() {
		p, err := For(c)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Validate checks size, media type and extension of an incoming file, in that order.
func (p ValidationPolicy) Validate(f model.File) error {
	subject := p.Category.String()
	if f.Size <= 0 {
		return model.PolicyViolation(subject, model.RuleSize, fmt.Sprintf("file %q is empty", f.Name))
	}
	if f.Size > p.MaxSizeBytes {
		return model.PolicyViolation(subject, model.RuleSize,
			fmt.Sprintf("file %q is %d bytes, limit is %d bytes", f.Name, f.Size, p.MaxSizeBytes))
	}
	mt := NormalizeMediaType(f.ContentType)
	if !slices.Contains(p.AcceptedMediaTypes, mt) {
		return model.PolicyViolation(subject, model.RuleMediaType,
			fmt.Sprintf("media type %q is not accepted, expected one of %s", mt, strings.Join(p.AcceptedMediaTypes, ", ")))
	}
	ext := Extension(f.Name)
	if !slices.Contains(p.AcceptedExtensions, ext) {
		return model.PolicyViolation(subject, model.RuleExtension,
			fmt.Sprintf("extension %q is not accepted, expected one of %s", ext, strings.Join(p.AcceptedExtensions, ", ")))
	}
	return nil
}

// NormalizeMediaType drops parameters and lowercases a Content-Type value.
func NormalizeMediaType(ct string) string {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(ct))
	}
	return mt
}

// Extension returns the lowercased extension of a file name, including the dot.
func Extension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}
