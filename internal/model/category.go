package model

import (
	"database/sql/driver"
	"fmt"
)

// Category is the closed set of document purposes an application can carry.
type Category uint8

const (
	CategoryIdentity Category = iota
	CategorySafetyPermit
	CategoryInsuranceCertificate
	CategoryPropertyDeed
	CategoryOther

	// NumCategories must stay last.
	NumCategories
)

var categoryNames = [NumCategories]string{
	CategoryIdentity:             "identity",
	CategorySafetyPermit:         "safety_permit",
	CategoryInsuranceCertificate: "insurance_certificate",
	CategoryPropertyDeed:         "property_deed",
	CategoryOther:                "other",
}

// Categories returns every category in declaration order.
func Categories() []Category {
	out := make([]Category, 0, NumCategories)
	for c := Category(0); c < NumCategories; c++ {
		out = append(out, c)
	}
	return out
}

// ParseCategory resolves the wire name of a category.
func ParseCategory(s string) (Category, error) {
	for c, name := range categoryNames {
		if name == s {
			return Category(c), nil
		}
	}
	return 0, fmt.Errorf("unknown document category %q", s)
}

func (c Category) Valid() bool {
	return c < NumCategories
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", uint8(c))
	}
	return categoryNames[c]
}

// AllowsMultiple reports whether more than one live document of this category may exist per application.
func (c Category) AllowsMultiple() bool {
	return c == CategoryOther
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid document category %d", uint8(c))
	}
	return []byte(categoryNames[c]), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	parsed, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value stores the category by name so the column stays readable.
func (c Category) Value() (driver.Value, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid document category %d", uint8(c))
	}
	return categoryNames[c], nil
}

func (c *Category) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return c.UnmarshalText([]byte(v))
	case []byte:
		return c.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into Category", src)
	}
}
