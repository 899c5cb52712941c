// Package classify assigns a document category from transcribed text using
// ordered keyword sets.
package classify

import "strings"

// Category is a supported document category. Values double as the
// document_type reported to callers.
type Category string

const (
	Aadhaar             Category = "aadhaar"
	Marksheet           Category = "marksheet"
	TransferCertificate Category = "tc"
	Unknown             Category = "unknown"
)

// String returns the wire name.
func (c Category) String() string { return string(c) }

// Label returns a human readable name.
func (c Category) Label() string {
	switch c {
	case Aadhaar:
		return "Aadhaar card"
	case Marksheet:
		return "Marksheet"
	case TransferCertificate:
		return "Transfer certificate"
	default:
		return "Unknown"
	}
}

type rule struct {
	category Category
	keywords []string
}

// Evaluated in order; the first set with any substring hit wins.
var rules = []rule{
	{Aadhaar, []string{"aadhaar", "uidai", "govt of india", "government of india"}},
	{Marksheet, []string{"marksheet", "roll number", "exam", "grade", "school", "university"}},
	{TransferCertificate, []string{"transfer certificate", "tc number", "admission number", "conduct", "reason for leaving"}},
}

// Classify returns the category for text, or Unknown.
func Classify(text string) Category {
	c, _ := Match(text)
	return c
}

// Match is Classify plus the keyword that decided the category.
func Match(text string) (Category, string) {
	lower := strings.ToLower(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.category, kw
			}
		}
	}
	return Unknown, ""
}

// Keywords returns a copy of the keyword set for a category, in match order.
func Keywords(c Category) []string {
	for _, r := range rules {
		if r.category == c {
			return append([]string(nil), r.keywords...)
		}
	}
	return nil
}

// Categories lists the supported categories in priority order.
func Categories() []Category {
	out := make([]Category, len(rules))
	for i, r := range rules {
		out[i] = r.category
	}
	return out
}
