package models

var supportedCities = []string{
	"Mumbai",
	"Delhi",
	"Bengaluru",
	"Chennai",
	"Hyderabad",
	"Kolkata",
	"Pune",
	"Ahmedabad",
	"Jaipur",
}

// Cities returns a copy of the cities the client offers as filters.
func Cities() []string {
	out := make([]string, len(supportedCities))
	copy(out, supportedCities)
	return out
}
