package route

// Category classifies a stop for display.
type Category string

const (
	CategoryHome            Category = "home"
	CategoryOffice          Category = "office"
	CategoryBusiness        Category = "business"
	CategoryPickupPoint     Category = "pickup_point"
	CategoryOther           Category = "other"
	CategoryCurrentLocation Category = "current_location"
)

var categoryNames = map[Category]string{
	CategoryHome:            "Home",
	CategoryOffice:          "Office",
	CategoryBusiness:        "Business",
	CategoryPickupPoint:     "Pickup Point",
	CategoryOther:           "Other",
	CategoryCurrentLocation: "Current Location",
}

// ParseCategory normalizes a category; unknown or empty values become home.
func ParseCategory(s string) Category {
	c := Category(s)
	if _, ok := categoryNames[c]; ok {
		return c
	}
	return CategoryHome
}

// DisplayName returns the label shown in popups and summaries.
func (c Category) DisplayName() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return categoryNames[CategoryHome]
}

// Icon returns the marker icon key for the category.
func (c Category) Icon() string {
	switch c {
	case CategoryOffice:
		return "building"
	case CategoryBusiness:
		return "store"
	case CategoryPickupPoint:
		return "box"
	case CategoryOther:
		return "map-marker"
	case CategoryCurrentLocation:
		return "location-arrow"
	default:
		return "home"
	}
}
