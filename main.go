package main

import (
	"compressor/api/rest"
	"compressor/config"
	img "compressor/converter/image"
	"compressor/converter/image/format/vips"
	"compressor/service"
	"compressor/shared/log"
	"compressor/shared/trace"
	"context"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/gofiber/contrib/fiberzap/v2"
	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hyperdxio/otel-config-go/otelconfig"
	"go.uber.org/zap"
	"log/slog"
)

//	@title			Image compressor service
//	@version		1.0
//	@description	Compresses uploaded images to a size budget and draws a translucent mark on them

// @BasePath	/
func main() {
	serviceConfig := config.New()

	ctx := context.Background()

	tp := trace.InitTrace()
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			slog.Error("Error shutting down tracer provider", "error", err)
		}
	}()

	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		slog.Error("Error configuring OpenTelemetry", "error", err)
	}
	defer otelShutdown()

	logger := log.InitLogger(ctx, serviceConfig.AppName, serviceConfig.LogLevel)
	defer func() {
		if err = logger.Sync(); err != nil {
			slog.Error("Error syncing logger", "error", err)
		}
	}()

	strategy := img.MustStrategy(logger)
	strategy.Register(img.VIPS, vips.MustJpeg(logger))
	strategy.Register(img.AVIF, vips.MustAvif(logger))

	var opts []service.Option
	var marks service.MarkSource = service.NewHTTPMarkSource(serviceConfig.MarkURL, serviceConfig.MarkFetchTimeout())

	if serviceConfig.S3Bucket != "" {
		awsSession, err := session.NewSession(&aws.Config{
			Region:      aws.String(serviceConfig.S3Region),
			Credentials: credentials.NewStaticCredentials(serviceConfig.S3AccessKey, serviceConfig.S3SecretKey, ""),
			Endpoint:    &serviceConfig.S3Endpoint,
		})
		if err != nil {
			logger.Error(err.Error())
			panic("Failed to create aws session")
		}
		client := s3.New(awsSession)

		opts = append(opts, service.WithStore(service.NewS3Store(client, serviceConfig.S3Bucket, serviceConfig.S3Prefix)))
		if serviceConfig.MarkS3Key != "" {
			marks = service.NewS3MarkSource(client, serviceConfig.S3Bucket, serviceConfig.MarkS3Key)
		}
	}

	if serviceConfig.MongoURI != "" {
		recorder, err := service.NewMongoRecorder(serviceConfig.MongoURI, serviceConfig.MongoDatabase, serviceConfig.MongoCollection)
		if err != nil {
			logger.Error(err.Error())
			panic("Failed to connect to mongo")
		}
		defer func() {
			if err := recorder.Close(ctx); err != nil {
				logger.Error("Error disconnecting mongo", zap.Error(err))
			}
		}()
		opts = append(opts, service.WithRecorder(recorder))
	}

	marks = service.NewCachedMarkSource(marks, serviceConfig.CacheTTL())

	imageService, err := service.NewImageService(serviceConfig, strategy, marks, logger, opts...)
	if err != nil {
		logger.Error(err.Error())
		panic("Failed to create image service")
	}

	app := fiber.New(fiber.Config{
		AppName:   serviceConfig.AppName,
		BodyLimit: serviceConfig.BodyLimitMB * 1024 * 1024,
	})
	app.Use(
		recover.New(),
		otelfiber.Middleware(),
		fiberzap.New(fiberzap.Config{Logger: logger}),
		compress.New(compress.Config{Level: compress.LevelBestSpeed}),
		etag.New(),
		limiter.New(limiter.Config{
			Next: func(c *fiber.Ctx) bool {
				return c.IP() == "127.0.0.1"
			},
			Max:        serviceConfig.RateLimitMaxRequests,
			Expiration: serviceConfig.RateLimitDuration(),
		}),
		swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: "./docs/swagger.json",
			Path:     "docs",
			Title:    "Image compressor service",
		}),
	)

	if serviceConfig.AuthUsername != "" {
		app.Use(basicauth.New(basicauth.Config{
			Users: map[string]string{serviceConfig.AuthUsername: serviceConfig.AuthPassword},
		}))
	}

	rest.NewImageController(app, serviceConfig, imageService, logger)

	if err = app.Listen(":" + serviceConfig.Port); err != nil {
		logger.Panic(err.Error())
		return
	}
}
