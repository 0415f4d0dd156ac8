package dto

import "io"

// Upload is a multipart file handed from the transport layer to a service.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}
