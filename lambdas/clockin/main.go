package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"sync"
	"time"

	"carolinalumpers.com/clockin/app"
	"carolinalumpers.com/clockin/config"
	"carolinalumpers.com/clockin/infrastructure/filesystem"
	"carolinalumpers.com/clockin/lambdas/clockin/helper"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
)

type ImportResult struct {
	Files    int `json:"files"`
	Rows     int `json:"rows"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
	Failed   int `json:"failed"`
}

type fileReader func(ctx context.Context, bucket, key string, w io.Writer) error

var (
	once    sync.Once
	service *app.App
	s3fs    *filesystem.S3
	initErr error
	logger  = slog.New(slog.NewJSONHandler(os.Stdout, nil))
)

func setup(ctx context.Context) error {
	once.Do(func() {
		cfg, err := config.Load("")
		if err != nil {
			initErr = err
			return
		}
		if service, err = app.New(ctx, cfg, logger); err != nil {
			initErr = err
			return
		}
		s3fs, initErr = filesystem.NewS3(ctx)
	})
	return initErr
}

func importObjects(ctx context.Context, event events.S3Event, read fileReader, b helper.Backfiller, loc *time.Location) (ImportResult, error) {
	var result ImportResult
	var errs []error

	for _, rec := range event.Records {
		bucket := rec.S3.Bucket.Name
		key, err := url.QueryUnescape(rec.S3.Object.Key)
		if err != nil {
			key = rec.S3.Object.Key
		}
		log := logger.With(slog.String("bucket", bucket), slog.String("key", key))

		var stream bytes.Buffer
		if err := read(ctx, bucket, key, &stream); err != nil {
			log.Error("failed to read device log", slog.String("error", err.Error()))
			errs = append(errs, err)
			continue
		}

		summary, err := helper.Import(ctx, &stream, loc, b, log)
		if err != nil {
			log.Error("failed to import device log", slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("%s/%s: %w", bucket, key, err))
			continue
		}

		rejected := 0
		for _, n := range summary.Rejected {
			rejected += n
		}
		result.Files++
		result.Rows += summary.Rows
		result.Accepted += summary.Accepted
		result.Failed += summary.Failed()
		result.Rejected += rejected - summary.Failed()
		log.Info("device log imported",
			slog.Int("rows", summary.Rows),
			slog.Int("accepted", summary.Accepted),
			slog.Int("failed", summary.Failed()))
	}

	return result, errors.Join(errs...)
}

func HandleRequest(ctx context.Context, event events.S3Event) (ImportResult, error) {
	if err := setup(ctx); err != nil {
		return ImportResult{}, fmt.Errorf("setup: %w", err)
	}
	defer service.Controller.Wait()

	return importObjects(ctx, event, s3fs.ReadFile, service.Controller, service.Config.Location())
}

func main() {
	lambda.Start(HandleRequest)
}
