package engine

// Birthday is the record a member registers: month and day, optionally the year of birth.
// It is also the persisted shape inside the store document.
type Birthday struct {
	Month int  `json:"month"`
	Day   int  `json:"day"`
	Year  *int `json:"year,omitempty"`
}

// YearKnown reports whether the member shared their year of birth.
func (b Birthday) YearKnown() bool {
	return b.Year != nil
}

// String renders the birthday with FormatDate.
func (b Birthday) String() string {
	return FormatDate(b.Month, b.Day, b.Year)
}

// WithoutYear returns a copy of the birthday with the year stripped, for list displays.
func (b Birthday) WithoutYear() Birthday {
	return Birthday{Month: b.Month, Day: b.Day}
}

// Member pairs a Discord member id with their birthday.
type Member struct {
	UserID   string
	Birthday Birthday
}

// UpcomingEntry is a derived, never persisted, view of a member's next birthday.
type UpcomingEntry struct {
	Member

	// DaysUntil is 0 when the birthday is today.
	DaysUntil int

	// AgeNext is the age the member turns at the next occurrence.
	// Only valid if Birthday.YearKnown() is true.
	AgeNext int
}

// NamedMember is a Member with a resolved display name, used by the feed renderers.
type NamedMember struct {
	Member
	Name string
}

// IntPtr is a small helper for building optional years.
func IntPtr(v int) *int {
	return &v
}
