package video

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"studytools/internal/components/assert"
	"studytools/internal/components/telemetry"
	"studytools/internal/failure"

	"github.com/kkdai/youtube/v2"
)

const (
	report_youtube_info   = "youtube.info"
	report_youtube_stream = "youtube.stream"
)

// YoutubeSource implements Source on top of github.com/kkdai/youtube.
type YoutubeSource struct {
	client *youtube.Client
	tel    telemetry.API

	mutex  sync.Mutex
	videos map[string]*youtube.Video
}

func NewYoutubeSource(httpClient *http.Client, tel telemetry.API) *YoutubeSource {
	assert.NotNil(tel)
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &YoutubeSource{
		client: &youtube.Client{HTTPClient: httpClient},
		tel:    telemetry.NewScopedAPI("video", tel),
		videos: map[string]*youtube.Video{},
	}
}

func convertFormat(f youtube.Format) Format {
	format := Format{
		Itag:          f.ItagNo,
		MimeType:      f.MimeType,
		Container:     containerOf(f.MimeType),
		HasAudio:      f.AudioChannels > 0 || f.AudioQuality != "",
		HasVideo:      f.QualityLabel != "" || f.Width > 0,
		FPS:           f.FPS,
		QualityLabel:  f.QualityLabel,
		ContentLength: f.ContentLength,
	}
	if !format.HasAudio {
		return format
	}
	// Bitrate covers the whole stream, it is the audio bitrate only without video
	if !format.HasVideo {
		format.AudioBitrate = f.Bitrate
	}
	quality := strings.TrimPrefix(f.AudioQuality, "AUDIO_QUALITY_")
	if quality != "" {
		format.AudioQuality = strings.ToLower(quality) + " quality"
	}
	return format
}

func (s *YoutubeSource) Info(ctx context.Context, videoUrl string) (Info, error) {
	s.tel.ReportDebug(report_youtube_info, videoUrl)

	v, err := s.client.GetVideoContext(ctx, videoUrl)
	if err != nil {
		s.tel.ReportWarning(report_youtube_info, videoUrl, err)
		return Info{}, failure.Transport("fetch video info", err)
	}

	s.mutex.Lock()
	s.videos[v.ID] = v
	s.mutex.Unlock()

	formats := make([]Format, len(v.Formats))
	for i, f := range v.Formats {
		formats[i] = convertFormat(f)
	}
	return Info{
		ID:      v.ID,
		Title:   v.Title,
		Author:  v.Author,
		Formats: formats,
	}, nil
}

func (s *YoutubeSource) Stream(ctx context.Context, info Info, format Format) (io.ReadCloser, int64, error) {
	s.mutex.Lock()
	v, ok := s.videos[info.ID]
	s.mutex.Unlock()
	if !ok {
		return nil, 0, fmt.Errorf("video %q was not fetched with Info first", info.ID)
	}

	var target *youtube.Format
	for i := range v.Formats {
		if v.Formats[i].ItagNo == format.Itag {
			target = &v.Formats[i]
			break
		}
	}
	if target == nil {
		return nil, 0, failure.Validation("format %d is not available for %s", format.Itag, info.ID)
	}

	stream, size, err := s.client.GetStreamContext(ctx, v, target)
	if err != nil {
		s.tel.ReportWarning(report_youtube_stream, info.ID, format.Itag, err)
		return nil, 0, failure.Transport("open video stream", err)
	}
	return stream, size, nil
}
