package expense

import (
	"strings"

	"github.com/zombor/spesen-tracker/internal/scanning"
)

// Category is one of the closed set of expense categories. Free text never
// becomes a category; anything unrecognized lands in CategorySonstiges.
type Category string

const (
	CategoryFahrtkostenKfz       Category = "fahrtkosten_kfz"
	CategoryFahrtkostenPauschale Category = "fahrtkosten_pauschale"
	CategoryBewirtung            Category = "bewirtung"
	CategoryFachliteratur        Category = "fachliteratur"
	CategoryBueromaterial        Category = "bueromaterial"
	CategoryTelefonkosten        Category = "telefonkosten"
	CategorySoftware             Category = "software"
	CategoryGetraenke            Category = "getraenke"
	CategorySonstiges            Category = "sonstiges"
)

// Categories lists all categories in report order.
var Categories = []Category{
	CategoryFahrtkostenKfz,
	CategoryFahrtkostenPauschale,
	CategoryBewirtung,
	CategoryFachliteratur,
	CategoryBueromaterial,
	CategoryTelefonkosten,
	CategorySoftware,
	CategoryGetraenke,
	CategorySonstiges,
}

// CategoryLabels maps categories to their display names.
var CategoryLabels = map[Category]string{
	CategoryFahrtkostenKfz:       "Fahrtkosten mit priv. Kfz.",
	CategoryFahrtkostenPauschale: "Fahrtkosten Öffentliche Verkehrsmittel",
	CategoryBewirtung:            "Bewirtungskosten",
	CategoryFachliteratur:        "Fachliteratur",
	CategoryBueromaterial:        "Büromaterial",
	CategoryTelefonkosten:        "Telefonkosten",
	CategorySoftware:             "Software",
	CategoryGetraenke:            "Getränke",
	CategorySonstiges:            "Sonstiges",
}

// ParseCategory validates a raw category string against the taxonomy.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	_, ok := CategoryLabels[c]
	return c, ok
}

// Classification is the classifier's verdict for one candidate record.
type Classification struct {
	Category    Category
	Subtype     string
	NeedsReview bool
}

// subtypeRules map vendor/description keywords to a Sonstiges subtype.
// Rules are checked in order; the first match wins.
var subtypeRules = []struct {
	keywords []string
	subtype  string
}{
	{[]string{"uber", "bolt"}, "Uber"},
	{[]string{"taxi"}, "Taxi"},
	{[]string{"park"}, "Parken"},
	{[]string{"hotel", "übernachtung"}, "Hotel"},
	{[]string{"verpflegung", "pauschale"}, "Verpflegungspauschale"},
}

// Classify assigns a category to a candidate record. It never fails: an
// unrecognized or missing category degrades to Sonstiges so that every
// record stays submittable.
//
// Fuel receipts are only accepted as fahrtkosten_kfz when the extraction
// supplied a trip distance; mileage reimbursement needs it, so without one
// the record is downgraded to Sonstiges and flagged for review.
func Classify(candidate *scanning.ReceiptData) Classification {
	cat, ok := ParseCategory(candidate.Category)
	if ok {
		switch cat {
		case CategoryFahrtkostenKfz:
			if candidate.DistanceKM <= 0 {
				return Classification{
					Category:    CategorySonstiges,
					Subtype:     "Sonstiges",
					NeedsReview: true,
				}
			}
			return Classification{Category: cat}
		case CategorySonstiges:
			return Classification{Category: cat, Subtype: subtypeFor(candidate)}
		default:
			return Classification{Category: cat}
		}
	}
	return Classification{Category: CategorySonstiges, Subtype: subtypeFor(candidate)}
}

func subtypeFor(candidate *scanning.ReceiptData) string {
	if s := strings.TrimSpace(candidate.Subtype); s != "" {
		return s
	}
	haystack := strings.ToLower(candidate.Description + " " + candidate.Vendor)
	for _, rule := range subtypeRules {
		for _, kw := range rule.keywords {
			if strings.Contains(haystack, kw) {
				return rule.subtype
			}
		}
	}
	return "Sonstiges"
}
