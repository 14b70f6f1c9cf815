// Package remote defines the protocol types and client for pictor-server
// communication.
package remote

// EditRequest asks the processing backend to derive new versions from the
// session's active image.
type EditRequest struct {
	Instruction string            `json:"instruction"`
	Params      map[string]string `json:"params,omitempty"`
	MaskURL     string            `json:"mask_url,omitempty"`
}

// EditResponse carries the urls of the derived result images.
type EditResponse struct {
	ResultURLs []string `json:"result_urls"`
}

// SelectRequest marks an existing version as the session's active image.
type SelectRequest struct {
	URL string `json:"url"`
}

// ArtifactResponse carries the url of an uploaded artifact blob.
type ArtifactResponse struct {
	URL string `json:"url"`
}

// ErrorResponse is the wire format for server-side failures.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
