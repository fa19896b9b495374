// Package category assigns household expenses to a spending category from
// their title.
package category

import "strings"

const (
	Housing   = "housing"
	Food      = "food"
	Leisure   = "leisure"
	Transport = "transport"
	Other     = "other"
)

// All lists the accepted expense categories.
var All = []string{Housing, Food, Leisure, Transport, Other}

// Valid reports whether c is one of All.
func Valid(c string) bool {
	for _, known := range All {
		if c == known {
			return true
		}
	}
	return false
}

// Categorize returns the category for an expense title. Matching is
// case-insensitive: exact match first, then keyword substring. Unknown titles
// fall back to Other.
func Categorize(title string) string {
	name := strings.ToLower(strings.TrimSpace(title))
	if name == "" {
		return Other
	}

	if cat, ok := exactMatch[name]; ok {
		return cat
	}

	// Ordered longer/more specific first
	for _, entry := range substringMatches {
		if strings.Contains(name, entry.keyword) {
			return entry.category
		}
	}

	return Other
}

var exactMatch = map[string]string{
	"rent":      Housing,
	"mortgage":  Housing,
	"water":     Housing,
	"power":     Housing,
	"gas bill":  Housing,
	"internet":  Housing,
	"condo fee": Housing,
	"hoa":       Housing,

	"groceries":   Food,
	"supermarket": Food,
	"bakery":      Food,
	"takeout":     Food,
	"lunch":       Food,
	"dinner":      Food,
	"pizza":       Food,

	"cinema":  Leisure,
	"movies":  Leisure,
	"netflix": Leisure,
	"spotify": Leisure,
	"concert": Leisure,
	"games":   Leisure,

	"fuel":    Transport,
	"gas":     Transport,
	"uber":    Transport,
	"taxi":    Transport,
	"bus":     Transport,
	"metro":   Transport,
	"toll":    Transport,
	"tolls":   Transport,
	"parking": Transport,
}

var substringMatches = []struct {
	keyword  string
	category string
}{
	// Transport before housing so "gas station" is not a utility bill
	{"gas station", Transport},
	{"car insurance", Transport},
	{"car wash", Transport},
	{"oil change", Transport},
	{"bus pass", Transport},
	{"train", Transport},
	{"flight", Transport},
	{"parking", Transport},
	{"gasoline", Transport},
	{"mechanic", Transport},
	{"tire", Transport},

	// Housing
	{"electric", Housing},
	{"water bill", Housing},
	{"gas bill", Housing},
	{"home insurance", Housing},
	{"property tax", Housing},
	{"rent", Housing},
	{"mortgage", Housing},
	{"internet", Housing},
	{"plumb", Housing},
	{"repair", Housing},
	{"furniture", Housing},
	{"cleaning", Housing},

	// Food
	{"grocer", Food},
	{"market", Food},
	{"restaurant", Food},
	{"delivery", Food},
	{"butcher", Food},
	{"coffee", Food},
	{"breakfast", Food},
	{"lunch", Food},
	{"dinner", Food},
	{"snack", Food},

	// Leisure
	{"streaming", Leisure},
	{"subscription", Leisure},
	{"ticket", Leisure},
	{"movie", Leisure},
	{"game", Leisure},
	{"park", Leisure},
	{"vacation", Leisure},
	{"hotel", Leisure},
	{"gym", Leisure},
	{"toy", Leisure},
	{"book", Leisure},
}
