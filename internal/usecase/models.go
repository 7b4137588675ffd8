package usecase

import (
	"image"
	"time"
)

// IMAGE USECASE

// IngestImageReq — запрос на загрузку исходного изображения.
type IngestImageReq struct {
	Data        []byte // raw bytes exactly as received on the wire
	ContentType string // declared Content-Type of the payload
}

// UploadedImage describes one derivative actually written to the store.
type UploadedImage struct {
	Name   string `json:"name"`
	Scale  int    `json:"scale"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ResolveImageReq — запрос на получение производного изображения по пути.
type ResolveImageReq struct {
	Path string
}

type ResolveImageRes struct {
	Data   []byte
	Cached bool // served from the response cache
}

// INFRASTRUCTURE

// UploadDerivativesReq asks the fan-out uploader to persist the whole
// pyramid for one source image. Scales are ascending and gap-free.
type UploadDerivativesReq struct {
	Hash   string
	Base   image.Image
	Scales []int
}

type UploadDerivativesRes struct {
	Images []UploadedImage
}

// ImageIngestedEvent is published after a successful ingest.
type ImageIngestedEvent struct {
	Hash       string    `json:"hash"`
	Scales     []int     `json:"scales"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	IngestedAt time.Time `json:"ingested_at"`
}

// MAPPERS

func NewIngestImageReq(data []byte, contentType string) *IngestImageReq {
	return &IngestImageReq{
		Data:        data,
		ContentType: contentType,
	}
}

func NewUploadedImage(name string, scale, width, height int) UploadedImage {
	return UploadedImage{
		Name:   name,
		Scale:  scale,
		Width:  width,
		Height: height,
	}
}

func NewResolveImageReq(path string) *ResolveImageReq {
	return &ResolveImageReq{Path: path}
}

func NewResolveImageRes(data []byte, cached bool) *ResolveImageRes {
	return &ResolveImageRes{
		Data:   data,
		Cached: cached,
	}
}

func NewUploadDerivativesReq(hash string, base image.Image, scales []int) *UploadDerivativesReq {
	return &UploadDerivativesReq{
		Hash:   hash,
		Base:   base,
		Scales: scales,
	}
}

func NewUploadDerivativesRes(images []UploadedImage) *UploadDerivativesRes {
	return &UploadDerivativesRes{
		Images: images,
	}
}
