package config

// Category names every new account starts with. The slices are never
// handed out directly; DefaultCategories returns copies.
var (
	defaultInflowCategories = []string{
		"Business",
		"Freelance",
		"Gifts",
		"Investments",
		"Other",
	}

	defaultOutflowCategories = []string{
		"Food",
		"Transport",
		"Rent",
		"Utilities",
		"Entertainment",
		"Health",
		"Other",
	}
)

// CategorySeed is the set of category names created alongside a new user.
type CategorySeed struct {
	Inflow  []string
	Outflow []string
}

// DefaultCategories returns a fresh copy of the default category names.
func DefaultCategories() CategorySeed {
	return CategorySeed{
		Inflow:  append([]string(nil), defaultInflowCategories...),
		Outflow: append([]string(nil), defaultOutflowCategories...),
	}
}
