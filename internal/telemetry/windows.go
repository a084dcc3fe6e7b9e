// internal/telemetry/windows.go
package telemetry

// windowsZones asocia nombres IANA con los nombres de Windows que imprime un
// navegador en Windows dentro de Date.toString().
var windowsZones = map[string]string{
	"America/New_York":               "Eastern Standard Time",
	"America/Chicago":                "Central Standard Time",
	"America/Denver":                 "Mountain Standard Time",
	"America/Los_Angeles":            "Pacific Standard Time",
	"America/Phoenix":                "US Mountain Standard Time",
	"America/Anchorage":              "Alaskan Standard Time",
	"Pacific/Honolulu":               "Hawaiian Standard Time",
	"America/Halifax":                "Atlantic Standard Time",
	"America/St_Johns":               "Newfoundland Standard Time",
	"America/Regina":                 "Canada Central Standard Time",
	"America/Mexico_City":            "Central Standard Time (Mexico)",
	"America/Bogota":                 "SA Pacific Standard Time",
	"America/Caracas":                "Venezuela Standard Time",
	"America/Santiago":               "Pacific SA Standard Time",
	"America/Argentina/Buenos_Aires": "Argentina Standard Time",
	"America/Sao_Paulo":              "E. South America Standard Time",
	"America/Winnipeg":               "Central Standard Time",
	"America/Edmonton":               "Mountain Standard Time",
	"America/Vancouver":              "Pacific Standard Time",
	"America/Toronto":                "Eastern Standard Time",

	"Europe/London":     "GMT Standard Time",
	"Europe/Dublin":     "GMT Standard Time",
	"Europe/Lisbon":     "GMT Standard Time",
	"Europe/Paris":      "Romance Standard Time",
	"Europe/Madrid":     "Romance Standard Time",
	"Europe/Brussels":   "Romance Standard Time",
	"Europe/Copenhagen": "Romance Standard Time",
	"Europe/Berlin":     "W. Europe Standard Time",
	"Europe/Rome":       "W. Europe Standard Time",
	"Europe/Amsterdam":  "W. Europe Standard Time",
	"Europe/Vienna":     "W. Europe Standard Time",
	"Europe/Zurich":     "W. Europe Standard Time",
	"Europe/Stockholm":  "W. Europe Standard Time",
	"Europe/Oslo":       "W. Europe Standard Time",
	"Europe/Helsinki":   "FLE Standard Time",
	"Europe/Kiev":       "FLE Standard Time",
	"Europe/Kyiv":       "FLE Standard Time",
	"Europe/Warsaw":     "Central European Standard Time",
	"Europe/Prague":     "Central Europe Standard Time",
	"Europe/Budapest":   "Central Europe Standard Time",
	"Europe/Bucharest":  "GTB Standard Time",
	"Europe/Athens":     "GTB Standard Time",
	"Europe/Istanbul":   "Turkey Standard Time",
	"Europe/Moscow":     "Russian Standard Time",

	"Asia/Tokyo":        "Tokyo Standard Time",
	"Asia/Shanghai":     "China Standard Time",
	"Asia/Hong_Kong":    "China Standard Time",
	"Asia/Taipei":       "Taipei Standard Time",
	"Asia/Seoul":        "Korea Standard Time",
	"Asia/Singapore":    "Singapore Standard Time",
	"Asia/Kuala_Lumpur": "Singapore Standard Time",
	"Asia/Manila":       "Singapore Standard Time",
	"Asia/Kolkata":      "India Standard Time",
	"Asia/Calcutta":     "India Standard Time",
	"Asia/Dubai":        "Arabian Standard Time",
	"Asia/Riyadh":       "Arab Standard Time",
	"Asia/Tehran":       "Iran Standard Time",
	"Asia/Baghdad":      "Arabic Standard Time",
	"Asia/Jerusalem":    "Israel Standard Time",
	"Asia/Bangkok":      "SE Asia Standard Time",
	"Asia/Jakarta":      "SE Asia Standard Time",
	"Asia/Karachi":      "Pakistan Standard Time",
	"Asia/Dhaka":        "Bangladesh Standard Time",
	"Asia/Almaty":       "Central Asia Standard Time",
	"Asia/Vladivostok":  "Vladivostok Standard Time",
	"Asia/Novosibirsk":  "N. Central Asia Standard Time",

	"Australia/Sydney":    "AUS Eastern Standard Time",
	"Australia/Melbourne": "AUS Eastern Standard Time",
	"Australia/Brisbane":  "E. Australia Standard Time",
	"Australia/Perth":     "W. Australia Standard Time",
	"Australia/Adelaide":  "Cen. Australia Standard Time",
	"Australia/Darwin":    "AUS Central Standard Time",
	"Pacific/Auckland":    "New Zealand Standard Time",
	"Pacific/Fiji":        "Fiji Standard Time",

	"Africa/Cairo":        "Egypt Standard Time",
	"Africa/Johannesburg": "South Africa Standard Time",
	"Africa/Lagos":        "W. Central Africa Standard Time",
	"Africa/Nairobi":      "E. Africa Standard Time",
	"Africa/Casablanca":   "Morocco Standard Time",

	"UTC":     "UTC",
	"Etc/UTC": "UTC",
	"Etc/GMT": "GMT Standard Time",
}

// WindowsName retorna el nombre Windows de iana, o iana si la zona no tiene entrada.
func WindowsName(iana string) string {
	if name, ok := windowsZones[iana]; ok {
		return name
	}
	return iana
}
