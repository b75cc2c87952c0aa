package rest

import (
	"bytes"
	"compressor/api/model"
	"compressor/config"
	img "compressor/converter/image"
	"compressor/service"
	"compressor/shared/log"
	"context"
	"errors"
	"fmt"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"io"
	"mime/multipart"
	"strconv"
	"time"
)

type ImageController struct {
	cfg     *config.Config
	service *service.ImageService
	logger  *zap.Logger
}

func NewImageController(app fiber.Router, cfg *config.Config, service *service.ImageService, logger *zap.Logger) *ImageController {
	i := &ImageController{service: service, cfg: cfg, logger: logger}

	app.Post("/compress", i.Compress)
	app.Post("/compress/batch", i.CompressBatch)

	return i
}

// Compress image
//
//	@Summary		Compress a single image
//	@Description	Draws the mark on the uploaded image and re-encodes it to fit a budget derived from its size.
//	@Tags			image
//	@Accept			multipart/form-data
//	@Produce		image/jpeg,image/webp,image/avif
//	@Param			file	formData	file	true	"Image"
//	@Param			mode	query		string	false	"Mark mode: none, centered or scattered"
//	@Success		200		{file}		file	"Returns the compressed image"
//	@Router			/compress [post]
func (i *ImageController) Compress(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), time.Minute)
	defer cancel()
	logger := log.LoggerWithTrace(ctx, i.logger)

	mode, err := i.mode(c)
	if err != nil {
		logger.Error("Error parsing params", zap.Error(err))
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	header, err := c.FormFile("file")
	if err != nil {
		logger.Error("Error reading upload", zap.Error(err))
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}

	upload, err := readUpload(header)
	if err != nil {
		logger.Error("Error reading upload", zap.Error(err))
		return err
	}

	out, err := i.service.Compress(ctx, upload, mode)
	if err != nil {
		logger.Error("Error compressing image", zap.Error(err))
		return toHTTPError(err)
	}

	reduction := (out.OriginalKB - out.CompressedKB) / out.OriginalKB * 100
	logger.Info(fmt.Sprintf("Size reduced by %.1f%% (%.1fKB -> %.1fKB)", reduction, out.OriginalKB, out.CompressedKB))

	image := &model.ImageResponse{
		Type:               out.Type.MimeType(),
		ContentLength:      int64(len(out.Data)),
		ContentDisposition: fmt.Sprintf("inline; filename=%s", out.Name),
		OriginalSize:       out.OriginalKB,
		CompressedSize:     out.CompressedKB,
		Quality:            out.Quality,
		Body:               bytes.NewReader(out.Data),
	}

	c.Set("X-Original-Size", strconv.FormatFloat(image.OriginalSize, 'f', 1, 64))
	c.Set("X-Compressed-Size", strconv.FormatFloat(image.CompressedSize, 'f', 1, 64))
	c.Set("X-Quality", strconv.Itoa(image.Quality))

	return send(c, image)
}

// CompressBatch images
//
//	@Summary		Compress several images
//	@Description	Compresses every uploaded image and returns them in a zip archive.
//	@Tags			image
//	@Accept			multipart/form-data
//	@Produce		application/zip
//	@Param			files	formData	file	true	"Images"
//	@Param			mode	query		string	false	"Mark mode: none, centered or scattered"
//	@Success		200		{file}		file	"Returns the archive. X-Images, X-Original-Size, X-Compressed-Size and X-Over-Budget summarize it"
//	@Router			/compress/batch [post]
func (i *ImageController) CompressBatch(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), time.Minute*5)
	defer cancel()
	logger := log.LoggerWithTrace(ctx, i.logger)

	mode, err := i.mode(c)
	if err != nil {
		logger.Error("Error parsing params", zap.Error(err))
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	form, err := c.MultipartForm()
	if err != nil {
		logger.Error("Error reading multipart form", zap.Error(err))
		return fiber.NewError(fiber.StatusBadRequest, "multipart form is required")
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "files are required")
	}

	uploads := make([]service.Upload, 0, len(headers))
	for _, h := range headers {
		upload, err := readUpload(h)
		if err != nil {
			logger.Error("Error reading upload", zap.Error(err))
			return err
		}
		uploads = append(uploads, upload)
	}

	archive, err := i.service.CompressBatch(ctx, uploads, mode)
	if err != nil {
		logger.Error("Error compressing batch", zap.Error(err))
		return toHTTPError(err)
	}

	var original, compressed float64
	overBudget := 0
	for _, out := range archive.Outputs {
		original += out.OriginalKB
		compressed += out.CompressedKB
		if !out.WithinBudget {
			overBudget++
		}
	}
	logger.Info(fmt.Sprintf("Batch of %d reduced from %.1fKB to %.1fKB", len(archive.Outputs), original, compressed))

	c.Set("X-Images", strconv.Itoa(len(archive.Outputs)))
	c.Set("X-Original-Size", strconv.FormatFloat(original, 'f', 1, 64))
	c.Set("X-Compressed-Size", strconv.FormatFloat(compressed, 'f', 1, 64))
	c.Set("X-Over-Budget", strconv.Itoa(overBudget))

	return send(c, &model.ImageResponse{
		Type:               "application/zip",
		ContentLength:      int64(len(archive.Data)),
		ContentDisposition: fmt.Sprintf("attachment; filename=%s", archive.Name),
		Body:               bytes.NewReader(archive.Data),
	})
}

func (i *ImageController) mode(c *fiber.Ctx) (model.MarkMode, error) {
	params := &model.CompressRequest{}
	if err := c.QueryParser(params); err != nil {
		return model.MarkMode{}, err
	}
	if params.Mode == "" {
		return i.cfg.MarkMode, nil
	}

	return model.MakeFromString(params.Mode)
}

func readUpload(h *multipart.FileHeader) (service.Upload, error) {
	f, err := h.Open()
	if err != nil {
		return service.Upload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return service.Upload{}, err
	}

	return service.Upload{Name: h.Filename, Data: data}, nil
}

func send(c *fiber.Ctx, image *model.ImageResponse) error {
	c.Set(fiber.HeaderContentType, image.Type)
	c.Set(fiber.HeaderContentDisposition, image.ContentDisposition)

	return c.SendStream(image.Body, int(image.ContentLength))
}

func toHTTPError(err error) error {
	if errors.Is(err, img.ErrInvalidInput) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return err
}
