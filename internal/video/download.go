package video

import (
	"context"
	"errors"
	"fmt"
	"io"

	"studytools/internal/components/assert"
	"studytools/internal/components/telemetry"
	"studytools/internal/failure"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const report_downloader_download = "downloader.download"

var meter = otel.Meter("studytools/video")
var downloadedBytes, _ = meter.Int64Counter(
	"video.downloaded_bytes",
	metric.WithUnit("By"),
	metric.WithDescription("bytes received from video streams"),
)

const chunkSize = 32 * 1024

type Progress struct {
	Received int64
	Total    int64
}

// Percent is floor(received/total*100) capped at 100, 0 while the total is unknown.
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	percent := int(p.Received * 100 / p.Total)
	if percent > 100 {
		return 100
	}
	return percent
}

type Downloader struct {
	source Source
	tel    telemetry.API
}

func NewDownloader(source Source, tel telemetry.API) Downloader {
	assert.NotNil(source)
	assert.NotNil(tel)
	return Downloader{source: source, tel: telemetry.NewScopedAPI("video", tel)}
}

// Download streams a format into dst, onProgress is called after every chunk
// that was written and may be nil.
func (d Downloader) Download(ctx context.Context, info Info, format Format, dst io.Writer, onProgress func(Progress)) (int64, error) {
	stream, size, err := d.source.Stream(ctx, info, format)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	progress := Progress{Total: format.ContentLength}
	if progress.Total <= 0 {
		progress.Total = size
	}
	attrs := metric.WithAttributes(
		attribute.String("container", format.Container),
		attribute.Int("itag", format.Itag),
	)

	buffer := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return progress.Received, failure.Transport("download cancelled", err)
		}

		n, readErr := stream.Read(buffer)
		if n > 0 {
			_, err := dst.Write(buffer[:n])
			if err != nil {
				d.tel.ReportBroken(report_downloader_download, info.ID, err)
				return progress.Received, fmt.Errorf("write video: %w", err)
			}
			progress.Received += int64(n)
			downloadedBytes.Add(ctx, int64(n), attrs)
			if onProgress != nil {
				onProgress(progress)
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			d.tel.ReportWarning(report_downloader_download, info.ID, progress.Received, readErr)
			return progress.Received, failure.Transport("download video", readErr)
		}
	}

	d.tel.ReportCount(report_downloader_download, progress.Received)
	return progress.Received, nil
}
