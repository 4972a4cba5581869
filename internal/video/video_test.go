package video

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"studytools/internal/components/telemetry"
	"studytools/internal/failure"

	"github.com/kkdai/youtube/v2"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	valid := map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":          "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ":                         "dQw4w9WgXcQ",
		"https://m.youtube.com/watch?v=dQw4w9WgXcQ&t=42":       "dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ":            "dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ":           "dQw4w9WgXcQ",
		"  https://www.youtube.com/watch?v=dQw4w9WgXcQ  ":      "dQw4w9WgXcQ",
		"http://music.youtube.com/watch?v=dQw4w9WgXcQ&list=ab": "dQw4w9WgXcQ",
	}
	for in, expected := range valid {
		id, err := ValidateURL(in)
		require.NoError(t, err, in)
		require.Equal(t, expected, id, in)
	}

	invalid := []string{
		"",
		"dQw4w9WgXcQ",
		"not a url",
		"ftp://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://vimeo.com/123456789",
		"https://www.youtube.com/",
		"https://www.youtube.com/watch?v=short",
	}
	for _, in := range invalid {
		_, err := ValidateURL(in)
		require.Error(t, err, in)
		require.Equal(t, failure.KindValidation, failure.KindOf(err), in)
	}
}

func TestContainerOf(t *testing.T) {
	require.Equal(t, "mp4", containerOf(`video/mp4; codecs="avc1.4d401e, mp4a.40.2"`))
	require.Equal(t, "webm", containerOf(`audio/webm; codecs="opus"`))
	require.Equal(t, "3gpp", containerOf("video/3gpp"))
	require.Equal(t, "", containerOf(""))
}

func TestDescribe(t *testing.T) {
	both := Format{Container: "mp4", HasAudio: true, HasVideo: true, AudioQuality: "low quality", QualityLabel: "360p", FPS: 30}
	require.Equal(t, Row{Container: "mp4", Audio: "low quality", Video: "360p/30fps"}, both.Describe())

	audio := Format{Container: "webm", HasAudio: true, AudioBitrate: 160}
	require.Equal(t, Row{Container: "webm", Audio: "160 bit/s"}, audio.Describe())

	videoOnly := Format{Container: "mp4", HasVideo: true, QualityLabel: "1080p60", FPS: 60}
	require.Equal(t, Row{Container: "mp4", Video: "1080p60/60fps"}, videoOnly.Describe())
}

func TestConvertFormat(t *testing.T) {
	muxed := convertFormat(youtube.Format{
		ItagNo:        18,
		MimeType:      `video/mp4; codecs="avc1.42001E, mp4a.40.2"`,
		Bitrate:       503000,
		QualityLabel:  "360p",
		FPS:           30,
		Width:         640,
		AudioQuality:  "AUDIO_QUALITY_LOW",
		AudioChannels: 2,
	})
	require.True(t, muxed.HasAudio)
	require.True(t, muxed.HasVideo)
	// the stream bitrate includes the video track
	require.Equal(t, 0, muxed.AudioBitrate)
	require.Equal(t, Row{Container: "mp4", Audio: "low quality", Video: "360p/30fps"}, muxed.Describe())

	audio := convertFormat(youtube.Format{
		ItagNo:        251,
		MimeType:      `audio/webm; codecs="opus"`,
		Bitrate:       160000,
		AudioQuality:  "AUDIO_QUALITY_MEDIUM",
		AudioChannels: 2,
	})
	require.False(t, audio.HasVideo)
	require.Equal(t, 160000, audio.AudioBitrate)
	require.Equal(t, "webm audio 160k", audio.Label())
	require.Equal(t, "160000 bit/s", audio.Describe().Audio)

	silent := convertFormat(youtube.Format{ItagNo: 137, MimeType: "video/mp4", Bitrate: 4000000, QualityLabel: "1080p", Width: 1920})
	require.False(t, silent.HasAudio)
	require.Equal(t, 0, silent.AudioBitrate)
	require.Equal(t, "", silent.Describe().Audio)
}

func TestLabel(t *testing.T) {
	require.Equal(t, "mp4 360p", Format{Container: "mp4", HasAudio: true, HasVideo: true, QualityLabel: "360p"}.Label())
	require.Equal(t, "webm audio 160k", Format{Container: "webm", HasAudio: true, AudioBitrate: 160000}.Label())
	require.Equal(t, "3gpp", Format{Container: "3gpp"}.Label())
}

func TestFileName(t *testing.T) {
	require.Equal(t, "lecture.mp4", FileName("lecture", Format{Container: "mp4"}))
	require.Equal(t, "lecture", FileName("lecture", Format{}))
}

func TestProgressPercent(t *testing.T) {
	testCases := []struct {
		progress Progress
		expected int
	}{
		{progress: Progress{Received: 0, Total: 100}, expected: 0},
		{progress: Progress{Received: 1, Total: 3}, expected: 33},
		{progress: Progress{Received: 2, Total: 3}, expected: 66},
		{progress: Progress{Received: 3, Total: 3}, expected: 100},
		{progress: Progress{Received: 10, Total: 0}, expected: 0},
		{progress: Progress{Received: 12, Total: 10}, expected: 100},
	}
	for _, test := range testCases {
		require.Equal(t, test.expected, test.progress.Percent(), test.progress)
	}
}

type fakeSource struct {
	contents []byte
	size     int64
	failWith error
	closed   bool
}

func (f *fakeSource) Info(ctx context.Context, videoUrl string) (Info, error) {
	return Info{ID: "dQw4w9WgXcQ", Title: "Lecture", Formats: []Format{{Itag: 18, Container: "mp4"}}}, nil
}

type failingReader struct {
	data []byte
	err  error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, r.err
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

type closer struct {
	io.Reader
	onClose func()
}

func (c closer) Close() error {
	c.onClose()
	return nil
}

func (f *fakeSource) Stream(ctx context.Context, info Info, format Format) (io.ReadCloser, int64, error) {
	var reader io.Reader = bytes.NewReader(f.contents)
	if f.failWith != nil {
		reader = &failingReader{data: f.contents, err: f.failWith}
	}
	return closer{Reader: reader, onClose: func() { f.closed = true }}, f.size, nil
}

func TestDownload(t *testing.T) {
	contents := bytes.Repeat([]byte("0123456789"), 10_000)
	source := &fakeSource{contents: contents, size: int64(len(contents))}
	rec := &telemetry.Recorder{}
	downloader := NewDownloader(source, rec)

	var out bytes.Buffer
	var updates []Progress
	n, err := downloader.Download(
		context.Background(),
		Info{ID: "dQw4w9WgXcQ"},
		Format{Itag: 18, Container: "mp4"},
		&out,
		func(p Progress) { updates = append(updates, p) },
	)
	require.NoError(t, err)
	require.Equal(t, int64(len(contents)), n)
	require.Equal(t, contents, out.Bytes())
	require.True(t, source.closed)

	require.NotEmpty(t, updates)
	last := updates[len(updates)-1]
	require.Equal(t, 100, last.Percent())
	for i := 1; i < len(updates); i++ {
		require.GreaterOrEqual(t, updates[i].Percent(), updates[i-1].Percent())
	}
	require.Equal(t, int64(len(contents)), rec.Counts["video: "+report_downloader_download])
}

func TestDownloadPrefersFormatLength(t *testing.T) {
	source := &fakeSource{contents: []byte("abcd"), size: 0}
	downloader := NewDownloader(source, &telemetry.Recorder{})

	var last Progress
	_, err := downloader.Download(
		context.Background(),
		Info{ID: "x"},
		Format{ContentLength: 8},
		io.Discard,
		func(p Progress) { last = p },
	)
	require.NoError(t, err)
	require.Equal(t, Progress{Received: 4, Total: 8}, last)
	require.Equal(t, 50, last.Percent())
}

func TestDownloadStreamError(t *testing.T) {
	source := &fakeSource{contents: []byte(strings.Repeat("x", 100)), size: 1000, failWith: errors.New("connection reset")}
	downloader := NewDownloader(source, &telemetry.Recorder{})

	n, err := downloader.Download(context.Background(), Info{ID: "x"}, Format{}, io.Discard, nil)
	require.Error(t, err)
	require.Equal(t, failure.KindTransport, failure.KindOf(err))
	require.Equal(t, int64(100), n)
	require.True(t, source.closed)
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestDownloadWriteError(t *testing.T) {
	source := &fakeSource{contents: []byte("abcd"), size: 4}
	rec := &telemetry.Recorder{}
	downloader := NewDownloader(source, rec)

	_, err := downloader.Download(context.Background(), Info{ID: "x"}, Format{}, brokenWriter{}, nil)
	require.ErrorContains(t, err, "disk full")
	require.Len(t, rec.Broken, 1)
}

func TestDownloadCancelled(t *testing.T) {
	source := &fakeSource{contents: []byte("abcd"), size: 4}
	downloader := NewDownloader(source, &telemetry.Recorder{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := downloader.Download(ctx, Info{ID: "x"}, Format{}, io.Discard, nil)
	require.ErrorIs(t, err, context.Canceled)
}
