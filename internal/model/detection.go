package model

// Detection represents a detected object drawn on an artifact.
type Detection struct {
	ID         int64   `json:"id"`
	ArtifactID int64   `json:"artifact_id"`
	ObjectName string  `json:"object_name"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
}
