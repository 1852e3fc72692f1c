package models

// DefaultCountry is applied when an address omits the country code.
const DefaultCountry = "US"

// Address is the billing address attached to a charge or a payment profile.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country,omitempty"`
}

// CountryOrDefault returns the address country, or DefaultCountry when unset.
func (a Address) CountryOrDefault() string {
	if a.Country == "" {
		return DefaultCountry
	}
	return a.Country
}
