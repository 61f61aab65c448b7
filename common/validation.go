package common

import (
	"fmt"
	"strings"
)

// ErrValidation is returned when a document does not satisfy the STAC model
type ErrValidation struct {
	Field  string
	Reason string
}

func (e ErrValidation) Error() string {
	if e.Field == "" {
		return "invalid document: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// FieldError is one failed check of a Validator
type FieldError = ErrValidation

// Validator checks a document and returns the list of field errors (empty if valid)
type Validator interface {
	ValidateItem(item *Item) []FieldError
}

// ItemValidator checks the fields required by the catalog
type ItemValidator struct {
	// RequiredProperties must be present in the properties of the item
	RequiredProperties []string
}

// DefaultItemValidator requires the datetime and the platform designator
var DefaultItemValidator = ItemValidator{RequiredProperties: []string{TagDatetime, TagPlatformDesignator}}

// ValidateItem implements Validator
func (v ItemValidator) ValidateItem(item *Item) []FieldError {
	var errs []FieldError
	if item.ID == "" {
		errs = append(errs, FieldError{Field: "id", Reason: "must not be empty"})
	}
	if item.Collection == "" {
		errs = append(errs, FieldError{Field: "collection", Reason: "must not be empty"})
	}
	if item.BBox != nil && len(item.BBox) != 4 && len(item.BBox) != 6 {
		errs = append(errs, FieldError{Field: "bbox", Reason: "must contain 4 or 6 values"})
	}
	for _, p := range v.RequiredProperties {
		if item.Properties[p] == nil {
			errs = append(errs, FieldError{Field: "properties." + p, Reason: "is required"})
		}
	}
	if item.Property(TagDatetime) != "" {
		if _, err := item.Datetime(); err != nil {
			errs = append(errs, FieldError{Field: "properties." + TagDatetime, Reason: err.Error()})
		}
	}
	if !ParentLinkConsistent(item) {
		errs = append(errs, FieldError{Field: "links", Reason: "parent link does not match the collection " + item.Collection})
	}
	for _, key := range item.Assets.Keys() {
		if a, _ := item.Assets.Get(key); a == nil || a.Href == "" {
			errs = append(errs, FieldError{Field: "assets." + key, Reason: "href is required"})
		}
	}
	return errs
}

// ParentLinkConsistent returns false if the item has a parent link that does not target its collection
func ParentLinkConsistent(item *Item) bool {
	if item.Collection == "" {
		return true
	}
	for _, l := range item.LinksByRel(RelParent) {
		href := strings.TrimRight(l.Href, "/")
		if href[strings.LastIndex(href, "/")+1:] != item.Collection {
			return false
		}
	}
	return true
}

// JoinFieldErrors merges the errors into one error (nil if errs is empty)
func JoinFieldErrors(errs []FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return ErrValidation{Reason: strings.Join(msgs, "; ")}
}
