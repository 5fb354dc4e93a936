package suppliers

import (
	"strings"

	"golang.org/x/text/cases"
)

// FindSimilar scans the list for a supplier whose name loosely matches the
// candidate: equal, containing, or contained by, after case folding and
// trimming. First match in list order wins; the backing store returns
// suppliers in creation-descending order. This is a warn-and-link heuristic
// used for OCR auto-linking, never a uniqueness constraint, and is a plain
// O(n) scan by design at this scale.
func FindSimilar(list []Supplier, candidate string) *Supplier {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(candidate))
	if needle == "" {
		return nil
	}
	for i := range list {
		name := fold.String(strings.TrimSpace(list[i].Name))
		if name == "" {
			continue
		}
		if name == needle || strings.Contains(name, needle) || strings.Contains(needle, name) {
			return &list[i]
		}
	}
	return nil
}
