// Package video lists the formats of an online video and streams one of them to disk.
package video

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/url"
	"strings"

	"studytools/internal/failure"

	"github.com/kkdai/youtube/v2"
)

// Format describes one downloadable encoding of a video.
type Format struct {
	Itag          int
	MimeType      string
	Container     string
	HasAudio      bool
	HasVideo      bool
	// AudioBitrate is only known for audio-only formats, muxed formats
	// carry AudioQuality instead.
	AudioBitrate  int
	AudioQuality  string
	FPS           int
	QualityLabel  string
	ContentLength int64
}

// Row is how a format is shown to the user, absent tracks are empty.
type Row struct {
	Container string
	Audio     string
	Video     string
}

func (f Format) Describe() Row {
	row := Row{Container: f.Container}
	switch {
	case !f.HasAudio:
	case f.AudioBitrate > 0:
		row.Audio = fmt.Sprintf("%d bit/s", f.AudioBitrate)
	case f.AudioQuality != "":
		row.Audio = f.AudioQuality
	default:
		row.Audio = "yes"
	}
	if f.HasVideo {
		row.Video = fmt.Sprintf("%s/%dfps", f.QualityLabel, f.FPS)
	}
	return row
}

// Label is a short name of the format that can be typed to select it.
func (f Format) Label() string {
	switch {
	case f.HasVideo:
		return strings.TrimSpace(fmt.Sprintf("%s %s", f.Container, f.QualityLabel))
	case f.HasAudio:
		return fmt.Sprintf("%s audio %dk", f.Container, f.AudioBitrate/1000)
	default:
		return f.Container
	}
}

// FileName is the name the format is saved under.
func FileName(name string, format Format) string {
	if format.Container == "" {
		return name
	}
	return fmt.Sprintf("%s.%s", name, format.Container)
}

// containerOf turns a mime type such as `video/mp4; codecs="avc1.4d401e"` into "mp4".
func containerOf(mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(mimeType, ";")[0])
	}
	_, subtype, found := strings.Cut(mediaType, "/")
	if !found {
		return ""
	}
	return subtype
}

type Info struct {
	ID      string
	Title   string
	Author  string
	Formats []Format
}

// Source is an online video service.
type Source interface {
	// Info fetches the metadata and formats of a video.
	Info(ctx context.Context, videoUrl string) (Info, error)
	// Stream opens the bytes of a format, size is the announced length of the stream.
	Stream(ctx context.Context, info Info, format Format) (stream io.ReadCloser, size int64, err error)
}

var videoHosts = []string{
	"youtube.com",
	"www.youtube.com",
	"m.youtube.com",
	"music.youtube.com",
	"gaming.youtube.com",
	"youtu.be",
	"www.youtube-nocookie.com",
}

// ValidateURL checks that the link points to a video and returns the video id.
func ValidateURL(videoUrl string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(videoUrl))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", failure.Validation("invalid url: %q", videoUrl)
	}

	host := strings.ToLower(parsed.Hostname())
	known := false
	for _, h := range videoHosts {
		if host == h {
			known = true
			break
		}
	}
	if !known {
		return "", failure.Validation("invalid url: %q is not a video host", host)
	}

	id, err := youtube.ExtractVideoID(parsed.String())
	if err != nil || !isVideoID(id) {
		return "", failure.Validation("invalid url: no video id in %q", videoUrl)
	}
	return id, nil
}

func isVideoID(id string) bool {
	if len(id) != 11 {
		return false
	}
	for _, r := range id {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !isAlnum && r != '-' && r != '_' {
			return false
		}
	}
	return true
}
