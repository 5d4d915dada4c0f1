package models

// Capability is a device capability guarded by an OS permission.
type Capability string

const (
	CapabilityCamera   Capability = "camera"
	CapabilityLocation Capability = "location"
	CapabilityGallery  Capability = "gallery"
)

// Label is the user-facing name used in settings prompts.
func (c Capability) Label(platform Platform) string {
	switch c {
	case CapabilityCamera:
		return "Camera"
	case CapabilityLocation:
		return "Location"
	case CapabilityGallery:
		if platform == PlatformIOS {
			return "Photo Library"
		}
		return "Gallery"
	default:
		return string(c)
	}
}

// Valid reports whether the capability is known.
func (c Capability) Valid() bool {
	switch c {
	case CapabilityCamera, CapabilityLocation, CapabilityGallery:
		return true
	}
	return false
}

// PermissionState is the OS-level status of one permission.
type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionLimited PermissionState = "limited"
	PermissionDenied  PermissionState = "denied"
	PermissionBlocked PermissionState = "blocked"
	PermissionUnknown PermissionState = "unknown"
)

// Usable reports whether the state lets the capability be used.
func (s PermissionState) Usable() bool {
	return s == PermissionGranted || s == PermissionLimited
}

// Platform selects the permission mechanics.
type Platform string

const (
	PlatformAndroid Platform = "android"
	PlatformIOS     Platform = "ios"
)

// ParsePlatform maps free-form input to a Platform, defaulting to Android.
func ParsePlatform(raw string) Platform {
	switch raw {
	case "ios", "iOS", "IOS":
		return PlatformIOS
	default:
		return PlatformAndroid
	}
}
