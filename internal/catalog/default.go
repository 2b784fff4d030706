package catalog

import "sync"

// defaultCatalogJSON is the built-in feature mapping used when no catalog
// file is configured. Dealership-specific vocabulary belongs in a file; this
// table covers the checkbox names common across inventory systems.
const defaultCatalogJSON = `{
  "features": {
    "Sunroof": {"Exterior": ["sunroof", "moonroof", "panoramic roof", "glass roof"]},
    "Leather Seats": {"Interior": ["leather seats", "leather interior", "leather upholstery", "leather seating surfaces"]},
    "Navigation System": {"Technology": ["navigation system", "nav system", "gps navigation", "built-in navigation"]},
    "Bluetooth": {"Technology": ["bluetooth", "bluetooth connectivity", "bluetooth audio"]},
    "Backup Camera": {"Safety": ["backup camera", "rear view camera", "rear camera", "reversing camera"]},
    "Heated Seats": {"Interior": ["heated seats", "heated front seats", "heated rear seats"]},
    "Blind Spot Monitor": {"Safety": ["blind spot monitor", "blind spot detection", "blind spot warning"]},
    "Lane Departure Warning": {"Safety": ["lane departure warning", "lane departure alert", "lane keeping assist"]},
    "Adaptive Cruise Control": {"Safety": ["adaptive cruise control", "dynamic cruise control", "radar cruise control"]},
    "Keyless Entry": {"Convenience": ["keyless entry", "remote entry", "smart key"]},
    "Push Button Start": {"Convenience": ["push button start", "push start", "keyless start", "remote start"]},
    "Power Liftgate": {"Convenience": ["power liftgate", "power tailgate", "hands-free liftgate"]},
    "Third Row Seating": {"Interior": ["third row seating", "3rd row seating", "third row seats", "7 passenger seating"]},
    "All Wheel Drive": {"Drivetrain": ["all wheel drive", "awd", "4wd", "four wheel drive", "4 wheel drive"]},
    "Apple CarPlay": {"Technology": ["apple carplay", "carplay"]},
    "Android Auto": {"Technology": ["android auto"]},
    "Wireless Charging": {"Technology": ["wireless charging", "qi charging", "wireless phone charging"]},
    "Premium Sound System": {"Technology": ["premium sound", "bose sound", "harman kardon", "jbl sound", "premium audio"]},
    "Parking Sensors": {"Safety": ["parking sensors", "park assist", "parking assist", "front parking sensors", "rear parking sensors"]},
    "Collision Warning": {"Safety": ["collision warning", "forward collision warning", "collision alert", "pre-collision system"]}
  }
}`

var loadDefault = sync.OnceValue(func() *Catalog {
	c, err := Parse([]byte(defaultCatalogJSON))
	if err != nil {
		panic("built-in catalog invalid: " + err.Error())
	}
	return c
})

// Default returns the built-in catalog. Shared and immutable.
func Default() *Catalog { return loadDefault() }
