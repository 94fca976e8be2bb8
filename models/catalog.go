package models

// ServiceType is the kind of work a client can book.
type ServiceType string

const (
	TypeCleaning   ServiceType = "CLEANING"
	TypeBabysitter ServiceType = "BABYSITTER"
	TypeCook       ServiceType = "COOK"
	TypeIroning    ServiceType = "IRONING"
)

// ServiceCategory refines a ServiceType and keys the provider price table.
type ServiceCategory string

const (
	CategoryCleaningLight   ServiceCategory = "CLEANING_LIGHT"
	CategoryCleaningHeavy   ServiceCategory = "CLEANING_HEAVY"
	CategoryCleaningFull    ServiceCategory = "CLEANING_FULL"
	CategoryBabysitterDay   ServiceCategory = "BABYSITTER_DAY"
	CategoryBabysitterNight ServiceCategory = "BABYSITTER_NIGHT"
	CategoryBabysitterFull  ServiceCategory = "BABYSITTER_FULL"
	CategoryCookDaily       ServiceCategory = "COOK_DAILY"
	CategoryCookEvent       ServiceCategory = "COOK_EVENT"
	CategoryIroningBasic    ServiceCategory = "IRONING_BASIC"
	CategoryIroningFull     ServiceCategory = "IRONING_FULL"
)

// CatalogEntry describes one bookable type and its categories.
type CatalogEntry struct {
	Type       ServiceType       `json:"type"`
	Label      string            `json:"label"`
	Categories []CatalogCategory `json:"categories"`
}

type CatalogCategory struct {
	Category ServiceCategory `json:"category"`
	Label    string          `json:"label"`
}

// Catalog lists every type with its categories. The first category of each
// type is the price key used when a request names no category.
var Catalog = []CatalogEntry{
	{
		Type:  TypeCleaning,
		Label: "Cleaning",
		Categories: []CatalogCategory{
			{CategoryCleaningLight, "Light cleaning"},
			{CategoryCleaningHeavy, "Heavy cleaning"},
			{CategoryCleaningFull, "Full cleaning"},
		},
	},
	{
		Type:  TypeBabysitter,
		Label: "Babysitter",
		Categories: []CatalogCategory{
			{CategoryBabysitterDay, "Daytime babysitter"},
			{CategoryBabysitterNight, "Night babysitter"},
			{CategoryBabysitterFull, "Full-day babysitter"},
		},
	},
	{
		Type:  TypeCook,
		Label: "Cook",
		Categories: []CatalogCategory{
			{CategoryCookDaily, "Daily cook"},
			{CategoryCookEvent, "Event cook"},
		},
	},
	{
		Type:  TypeIroning,
		Label: "Ironing",
		Categories: []CatalogCategory{
			{CategoryIroningBasic, "Basic ironing"},
			{CategoryIroningFull, "Full ironing"},
		},
	},
}

func catalogEntry(t ServiceType) (CatalogEntry, bool) {
	for _, e := range Catalog {
		if e.Type == t {
			return e, true
		}
	}
	return CatalogEntry{}, false
}

// Valid reports whether t is a known service type.
func (t ServiceType) Valid() bool {
	_, ok := catalogEntry(t)
	return ok
}

// Valid reports whether c is a known category of any type.
func (c ServiceCategory) Valid() bool {
	_, ok := c.Type()
	return ok
}

// Type returns the service type that owns the category.
func (c ServiceCategory) Type() (ServiceType, bool) {
	for _, e := range Catalog {
		for _, cat := range e.Categories {
			if cat.Category == c {
				return e.Type, true
			}
		}
	}
	return "", false
}

// BelongsTo reports whether c is a category of t.
func (c ServiceCategory) BelongsTo(t ServiceType) bool {
	owner, ok := c.Type()
	return ok && owner == t
}

// PriceCategory returns the price-table key for a request: the category
// itself when given, otherwise the default category of the type.
func PriceCategory(t ServiceType, c *ServiceCategory) ServiceCategory {
	if c != nil && *c != "" {
		return *c
	}
	e, ok := catalogEntry(t)
	if !ok || len(e.Categories) == 0 {
		return ""
	}
	return e.Categories[0].Category
}

// Shift is the half-day slot a service is booked for.
type Shift string

const (
	ShiftMorning   Shift = "morning"
	ShiftAfternoon Shift = "afternoon"
)

// Valid reports whether s is a known shift.
func (s Shift) Valid() bool {
	return s == ShiftMorning || s == ShiftAfternoon
}

// StartHour is the local hour at which the shift begins.
func (s Shift) StartHour() int {
	if s == ShiftAfternoon {
		return 14
	}
	return 8
}
