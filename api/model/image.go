package model

import "io"

type CompressRequest struct {
	Mode string `query:"mode"`
}

type ImageResponse struct {
	Type               string
	ContentLength      int64
	ContentDisposition string

	OriginalSize   float64
	CompressedSize float64
	Quality        int

	Body io.Reader
}
