package models

// CategoryIcon maps a DeviceCategory to its icon identifier.
// Identifiers use Lucide icon names (https://lucide.dev).
var CategoryIcon = map[DeviceCategory]string{
	CategoryRouter:      "router",
	CategorySwitch:      "network",
	CategoryAccessPoint: "wifi",
	CategoryServer:      "server",
	CategoryWorkstation: "monitor",
	CategoryPrinter:     "printer",
	CategoryCamera:      "cctv",
	CategoryIoT:         "cpu",
	CategoryOther:       "help-circle",
}

// Icon returns the icon identifier for a DeviceCategory.
// Returns "help-circle" for unrecognised categories.
func (c DeviceCategory) Icon() string {
	if icon, ok := CategoryIcon[c]; ok {
		return icon
	}
	return CategoryIcon[CategoryOther]
}
