package dto

// Upload is an image received from a caller. It lives for one request.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}
