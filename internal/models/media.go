package models

// ImageOrigin tags where an image came from.
type ImageOrigin string

const (
	OriginCamera  ImageOrigin = "camera"
	OriginGallery ImageOrigin = "gallery"
)

// Valid reports whether the origin is known.
func (o ImageOrigin) Valid() bool {
	return o == OriginCamera || o == OriginGallery
}

// ImageDescriptor references a just-acquired image before it is persisted.
type ImageDescriptor struct {
	URI         string      `json:"uri"`
	DisplayName string      `json:"displayName,omitempty"`
	Origin      ImageOrigin `json:"origin"`
	MimeType    string      `json:"mimeType,omitempty"`
	Size        int64       `json:"size,omitempty"`
}

// AcquisitionStatus is the outcome of a picker invocation.
type AcquisitionStatus string

const (
	AcquisitionAcquired  AcquisitionStatus = "acquired"
	AcquisitionCancelled AcquisitionStatus = "cancelled"
	AcquisitionFailed    AcquisitionStatus = "failed"
)

// Acquisition is returned by the media acquirer. Descriptor is set only when acquired.
type Acquisition struct {
	Status       AcquisitionStatus `json:"status"`
	Descriptor   *ImageDescriptor  `json:"descriptor,omitempty"`
	ErrorCode    string            `json:"errorCode,omitempty"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
}
