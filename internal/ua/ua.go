// internal/ua/ua.go
//
// User-Agent parsing helpers.
//
// The store action records who submitted a form: browser, OS, device class,
// and whether the client looks like a bot.  This wrapper isolates the
// third-party `github.com/avct/uasurfer` API so the rest of the codebase
// never sees its enums or structs.
package ua

import (
	"fmt"
	"strconv"

	surfer "github.com/avct/uasurfer"
)

// Info carries the UA attributes stored alongside a submission.
//
// Example (Chrome on macOS):
//
//	Browser   "Chrome"
//	Version   "125.0.6422"
//	OS        "MacOSX"
//	OSVersion "10.15.7"
//	Device    "Desktop"
//	IsBot     false
//
// Device will be one of: "Desktop", "Tablet", "Mobile", or "Other".
type Info struct {
	Browser   string `json:"browser"`
	Version   string `json:"version,omitempty"`
	OS        string `json:"os"`
	OSVersion string `json:"os_version,omitempty"`
	Device    string `json:"device"`
	IsBot     bool   `json:"is_bot"`
}

// Parse converts a raw header into an Info struct.  An empty header yields
// an Info of unknowns.
func Parse(raw string) Info {
	u := surfer.Parse(raw)

	info := Info{
		Browser:   u.Browser.Name.StringTrimPrefix(),
		Version:   versionToString(u.Browser.Version),
		OS:        u.OS.Name.StringTrimPrefix(),
		OSVersion: versionToString(u.OS.Version),
		IsBot:     u.IsBot(),
	}

	switch u.DeviceType {
	case surfer.DeviceComputer:
		info.Device = "Desktop"
	case surfer.DeviceTablet:
		info.Device = "Tablet"
	case surfer.DevicePhone, surfer.DeviceWearable:
		info.Device = "Mobile"
	default:
		info.Device = "Other"
	}
	return info
}

// versionToString renders a version in dotted form while trimming trailing
// zeros, e.g. 17.0.0 → "17", 17.3.0 → "17.3", 17.3.1 → "17.3.1".
func versionToString(v surfer.Version) string {
	switch {
	case v.Major == 0 && v.Minor == 0 && v.Patch == 0:
		return ""
	case v.Patch != 0:
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	case v.Minor != 0:
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	}
	return strconv.Itoa(v.Major)
}
