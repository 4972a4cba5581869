package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"studytools/internal/components/telemetry"
	"studytools/internal/console"
	"studytools/internal/failure"
	"studytools/internal/video"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// env holds what a command talks to, tests replace all of it.
type env struct {
	prompter *console.Prompter
	// out receives the results, status receives spinners and progress
	out    io.Writer
	status io.Writer
	source video.Source
	tel    telemetry.API
}

type downloadRequest struct {
	// Url, Name and Format are asked when empty.
	Url       string
	Name      string
	Format    string
	OutputDir string
}

func (e env) info(ctx context.Context, videoUrl string) (video.Info, error) {
	if videoUrl == "" {
		var err error
		videoUrl, err = e.prompter.Line("Video URL:")
		if err != nil {
			return video.Info{}, err
		}
	}
	_, err := video.ValidateURL(videoUrl)
	if err != nil {
		return video.Info{}, err
	}

	spinner := console.StartSpinner(e.status, text.FgCyan, "Fetching video information ...")
	info, err := e.source.Info(ctx, videoUrl)
	if err != nil {
		spinner.Fail("Could not fetch the video")
		return video.Info{}, err
	}
	spinner.Succeed(fmt.Sprintf("%s (%s)", info.Title, info.Author))

	if len(info.Formats) == 0 {
		return video.Info{}, failure.RemoteRejection("the video has no downloadable format")
	}
	return info, nil
}

func formatSize(size int64) string {
	if size <= 0 {
		return ""
	}
	return fmt.Sprintf("%.1f MB", float64(size)/1e6)
}

func printFormats(out io.Writer, formats []video.Format) {
	t := console.NewTable(out)
	t.AppendHeader(table.Row{"#", "Container", "Audio", "Video", "Size"})
	for i, f := range formats {
		row := f.Describe()
		t.AppendRow(table.Row{i, row.Container, row.Audio, row.Video, formatSize(f.ContentLength)})
	}
	t.Render()
}

func (e env) chooseFormat(given string, formats []video.Format) (int, error) {
	labels := make([]string, len(formats))
	for i, f := range formats {
		labels[i] = f.Label()
	}
	if given != "" {
		index, err := console.ResolveChoice(given, labels)
		if err != nil {
			return 0, failure.Validation("format: %s", err.Error())
		}
		return index, nil
	}
	return e.prompter.Choice("Format", labels, 0)
}

var unsafeFileChars = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_",
)

func (e env) fileName(given string, info video.Info) (string, error) {
	name := given
	if name == "" {
		var err error
		name, err = e.prompter.Line(fmt.Sprintf("File name (default: %s):", info.Title))
		if err != nil {
			return "", err
		}
	}
	if name == "" {
		name = info.Title
	}
	name = strings.TrimSpace(unsafeFileChars.Replace(name))
	if name == "" {
		name = info.ID
	}
	return name, nil
}

func (e env) download(ctx context.Context, req downloadRequest) error {
	info, err := e.info(ctx, req.Url)
	if err != nil {
		return err
	}
	printFormats(e.out, info.Formats)

	index, err := e.chooseFormat(req.Format, info.Formats)
	if err != nil {
		return err
	}
	format := info.Formats[index]

	name, err := e.fileName(req.Name, info)
	if err != nil {
		return err
	}
	if req.OutputDir != "" {
		err = os.MkdirAll(req.OutputDir, 0755)
		if err != nil {
			return err
		}
	}
	path := filepath.Join(req.OutputDir, video.FileName(name, format))

	file, err := os.Create(path)
	if err != nil {
		return err
	}

	bar := console.StartProgressBar(e.status, filepath.Base(path), format.ContentLength)
	written, err := video.NewDownloader(e.source, e.tel).Download(ctx, info, format, file, func(p video.Progress) {
		bar.Update(p.Received, p.Total, p.Percent())
	})
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		bar.Fail()
		os.Remove(path)
		return err
	}
	bar.Done()

	fmt.Fprintf(e.out, "Saved %s (%s)\n", path, formatSize(written))
	return nil
}
