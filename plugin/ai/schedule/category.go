package schedule

import "strings"

// Category is the closed set of schedule categories.
type Category string

const (
	CategorySchool    Category = "school"
	CategoryHousework Category = "housework"
	CategoryWork      Category = "work"
	CategorySelfDev   Category = "selfdev"
	CategoryFamily    Category = "family"
	CategoryHealth    Category = "health"
	CategoryEvent     Category = "event"
	CategoryGoal      Category = "goal"
)

// Categories lists every category in prompt order.
var Categories = []Category{
	CategorySchool,
	CategoryHousework,
	CategoryWork,
	CategorySelfDev,
	CategoryFamily,
	CategoryHealth,
	CategoryEvent,
	CategoryGoal,
}

var categoryGlosses = map[Category]string{
	CategorySchool:    "학업",
	CategoryHousework: "가사",
	CategoryWork:      "업무",
	CategorySelfDev:   "자기계발",
	CategoryFamily:    "가족",
	CategoryHealth:    "건강",
	CategoryEvent:     "행사",
	CategoryGoal:      "목표",
}

// Gloss returns the Korean label of the category.
func (c Category) Gloss() string {
	return categoryGlosses[c]
}

// Valid reports whether c is a member of the closed set.
func (c Category) Valid() bool {
	_, ok := categoryGlosses[c]
	return ok
}

// ParseCategory matches s against the set, ignoring case and surrounding space.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", false
	}
	return c, true
}
