// ArtifactList is a paginated response payload for the results API.
package dto

type ArtifactList struct {
	Artifacts    []ArtifactSummary `json:"artifacts"`
	ObjectCounts map[string]int    `json:"object_counts"`
	Length       int               `json:"length"`
	TotalPages   int               `json:"totalPages"`
	CurrentPage  int               `json:"currentPage"`
	Limit        int               `json:"pageSize"`
}
