package models

// SiteSettings is the singleton branding document in the "settings" collection.
// Only the first document of the collection is ever used.
type SiteSettings struct {
	WebsiteName    string `json:"websiteName"`
	PrimaryColor   string `json:"primaryColor"`
	SecondaryColor string `json:"secondaryColor"`
	FontFamily     string `json:"fontFamily"`
	IsDarkMode     bool   `json:"isDarkMode"`
	HeroTitle      string `json:"heroTitle"`
	HeroSubtitle   string `json:"heroSubtitle"`
	FooterText     string `json:"footerText"`
}

// DefaultSiteSettings returns the settings the application uses until the
// first non-empty settings snapshot arrives
func DefaultSiteSettings() SiteSettings {
	return SiteSettings{
		WebsiteName:    "Nafs Essence",
		PrimaryColor:   "#f4c025",
		SecondaryColor: "#231e10",
		FontFamily:     "Manrope",
		IsDarkMode:     true,
		HeroTitle:      "Scent of the Soul",
		HeroSubtitle:   "Luxury Perfume Oils for the Distinguished.",
		FooterText:     "Crafting memories through the finest essences.",
	}
}
