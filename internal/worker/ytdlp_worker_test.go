package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artemiysm/TG-Video/internal/domain"
	errpkg "github.com/artemiysm/TG-Video/internal/errors"
	"github.com/artemiysm/TG-Video/internal/options"
	"github.com/artemiysm/TG-Video/internal/storage"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestErrorMessage(t *testing.T) {
	stderr := "WARNING: [youtube] falling back\nERROR: [youtube] abc: Requested format is not available. Use --list-formats for a list of available formats\n"

	msg := errorMessage(stderr, errors.New("exit status 1"))
	assert.Equal(t, "ERROR: [youtube] abc: Requested format is not available. Use --list-formats for a list of available formats", msg)

	dlErr := errpkg.NewDownloadError(msg, nil)
	assert.ErrorIs(t, dlErr, errpkg.ErrFormatUnavailable)
}

func TestErrorMessage_NoErrorLine(t *testing.T) {
	msg := errorMessage("some noise", errors.New("exit status 2"))
	assert.Equal(t, "exit status 2", msg)

	assert.Equal(t, "only stderr", errorMessage(" only stderr \n", nil))
}

func TestEngineError_FormatUnavailableFromStderr(t *testing.T) {
	stderr := "WARNING: [youtube] dQw4w9WgXcQ: nsig extraction failed: You may experience throttling for some formats\n" +
		"ERROR: [youtube] dQw4w9WgXcQ: Requested format is not available. Use --list-formats for a list of available formats"
	runErr := fmt.Errorf("exit code 1: %w", errors.New("exit status 1\n\n"+stderr))

	dlErr := engineError(&ytdlp.Result{ExitCode: 1, Stderr: stderr}, runErr)

	assert.Equal(t, "ERROR: [youtube] dQw4w9WgXcQ: Requested format is not available. Use --list-formats for a list of available formats", dlErr.Message)
	assert.ErrorIs(t, dlErr, errpkg.ErrFormatUnavailable)
	assert.ErrorIs(t, dlErr, runErr)
}

func TestEngineError_OtherFailure(t *testing.T) {
	stderr := "ERROR: [generic] Unable to download webpage: HTTP Error 404: Not Found (caused by <HTTPError 404: Not Found>)"

	dlErr := engineError(&ytdlp.Result{ExitCode: 1, Stderr: stderr}, errors.New("exit status 1"))

	assert.Equal(t, stderr, dlErr.Message)
	assert.False(t, errors.Is(dlErr, errpkg.ErrFormatUnavailable))
}

func TestEngineError_NoResult(t *testing.T) {
	dlErr := engineError(nil, errors.New("executable file not found in $PATH"))

	assert.Equal(t, "executable file not found in $PATH", dlErr.Message)
}

func TestHeaderArgs(t *testing.T) {
	args := headerArgs(map[string]string{
		"User-Agent":      "Mozilla/5.0",
		"Referer":         "https://www.tiktok.com/",
		"Accept-Language": "en-US",
	})

	assert.Equal(t, []string{"Accept-Language:en-US"}, args)
	assert.Empty(t, headerArgs(nil))
}

func TestProgressEvent(t *testing.T) {
	update := ytdlp.ProgressUpdate{
		Status:          "downloading",
		TotalBytes:      200,
		DownloadedBytes: 50,
		Started:         time.Now().Add(-time.Second),
	}

	ev := progressEvent(update, (&streamProgress{}).percent(update))

	assert.Equal(t, domain.StatusDownloading, ev.Status)
	assert.Equal(t, "25.0%", ev.Percent)
	assert.Contains(t, ev.Speed, "/s")
	assert.NotEmpty(t, ev.ETA)
}

func TestProgressEvent_UnknownTotal(t *testing.T) {
	update := ytdlp.ProgressUpdate{Status: "downloading"}

	ev := progressEvent(update, (&streamProgress{}).percent(update))

	assert.Equal(t, "0.0%", ev.Percent)
	assert.Empty(t, ev.Speed)
	assert.Empty(t, ev.ETA)
}

func TestStreamProgress_FinishedIsComplete(t *testing.T) {
	p := &streamProgress{}

	assert.Equal(t, 100.0, p.percent(ytdlp.ProgressUpdate{Status: ytdlp.ProgressStatusFinished, Filename: "clip.mp4"}))
}

func TestStreamProgress_VideoThenAudioOnlyMovesForward(t *testing.T) {
	info := &ytdlp.ExtractedInfo{RequestedFormats: []*ytdlp.ExtractedFormat{{}, {}}}
	update := func(status ytdlp.ProgressStatus, file string, done int) ytdlp.ProgressUpdate {
		return ytdlp.ProgressUpdate{Info: info, Status: status, Filename: file, TotalBytes: 100, DownloadedBytes: done}
	}

	p := &streamProgress{}
	var got []float64
	for _, u := range []ytdlp.ProgressUpdate{
		update(ytdlp.ProgressStatusDownloading, "clip.f137.mp4", 0),
		update(ytdlp.ProgressStatusDownloading, "clip.f137.mp4", 50),
		update(ytdlp.ProgressStatusFinished, "clip.f137.mp4", 100),
		update(ytdlp.ProgressStatusDownloading, "clip.f140.m4a", 0),
		update(ytdlp.ProgressStatusDownloading, "clip.f140.m4a", 50),
		update(ytdlp.ProgressStatusFinished, "clip.f140.m4a", 100),
	} {
		got = append(got, p.percent(u))
	}

	assert.Equal(t, []float64{0, 25, 50, 50, 75, 100}, got)
}

func TestStreamProgress_NeverGoesBackwards(t *testing.T) {
	p := &streamProgress{}

	assert.Equal(t, 60.0, p.percent(ytdlp.ProgressUpdate{Status: "downloading", Filename: "a.mp4", TotalBytes: 100, DownloadedBytes: 60}))
	// a revised size estimate shrinks the ratio
	assert.Equal(t, 60.0, p.percent(ytdlp.ProgressUpdate{Status: "downloading", Filename: "a.mp4", TotalBytes: 200, DownloadedBytes: 70}))
}

func writeRecord(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "output.jsonl")
	var data []byte
	for _, line := range lines {
		data = append(data, line...)
		data = append(data, '\n')
	}
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func recordLine(t *testing.T, path, title string) string {
	t.Helper()
	line, err := json.Marshal(outputRecord{Filepath: path, Title: title})
	require.NoError(t, err)
	return string(line)
}

func TestResolveOutput_UsesRecordedFile(t *testing.T) {
	dir := t.TempDir()
	w := NewYtdlpWorker(storage.NewFileStorage(dir), newTestLogger())

	recorded := filepath.Join(dir, "Reported_Clip.mp4")
	require.NoError(t, os.WriteFile(recorded, []byte("01234"), 0o644))

	// a newer unrelated file must not win over the recorded one
	newer := filepath.Join(dir, "other.mp4")
	require.NoError(t, os.WriteFile(newer, []byte("0123456789"), 0o644))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(newer, future, future))

	record := writeRecord(t, "not json", recordLine(t, recorded, "Reported clip: part 1"))

	file, err := w.resolveOutput(record, dir)
	require.NoError(t, err)

	assert.Equal(t, recorded, file.Path)
	assert.Equal(t, "Reported clip: part 1", file.Title)
	assert.Equal(t, int64(5), file.Size)
}

func TestResolveOutput_RecordedFileMissing(t *testing.T) {
	dir := t.TempDir()
	w := NewYtdlpWorker(storage.NewFileStorage(dir), newTestLogger())

	actual := filepath.Join(dir, "Clip.mkv")
	require.NoError(t, os.WriteFile(actual, []byte("abc"), 0o644))

	record := writeRecord(t, recordLine(t, filepath.Join(dir, "Clip.mp4"), "Clip"))

	file, err := w.resolveOutput(record, dir)
	require.NoError(t, err)

	assert.Equal(t, actual, file.Path)
	assert.Equal(t, "Clip", file.Title)
}

func TestResolveOutput_FallsBackToDirectoryScan(t *testing.T) {
	dir := t.TempDir()
	w := NewYtdlpWorker(storage.NewFileStorage(dir), newTestLogger())

	path := filepath.Join(dir, "My_Clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "My_Clip.f137.mp4.part"), []byte("x"), 0o644))

	file, err := w.resolveOutput(filepath.Join(t.TempDir(), "missing.jsonl"), dir)
	require.NoError(t, err)

	assert.Equal(t, path, file.Path)
	assert.Equal(t, int64(10), file.Size)
	assert.Equal(t, "My_Clip", file.Title)
}

func TestResolveOutput_NoFile(t *testing.T) {
	dir := t.TempDir()
	w := NewYtdlpWorker(storage.NewFileStorage(dir), newTestLogger())

	_, err := w.resolveOutput(writeRecord(t), dir)
	assert.ErrorIs(t, err, errpkg.ErrNoOutputFile)
}

func TestCommand_MapsOptionsToFlags(t *testing.T) {
	w := NewYtdlpWorker(storage.NewFileStorage(t.TempDir()), newTestLogger())

	cfg := w.command(domain.DownloadOptions{
		OutputTemplate:    "/data/7/%(title)s.%(ext)s",
		NoPlaylist:        true,
		Format:            options.MuxedFormat,
		MergeOutputFormat: "mp4",
		Headers: map[string]string{
			"User-Agent": "Mozilla/5.0",
			"Referer":    "https://www.tiktok.com/",
		},
		ExtractorArgs: "tiktok:region=US",
		Progress:      domain.ProgressObserverFunc(func(domain.ProgressEvent) {}),
	}, "/tmp/record.jsonl").GetFlagConfig()

	require.NotNil(t, cfg.Filesystem.Output)
	assert.Equal(t, "/data/7/%(title)s.%(ext)s", *cfg.Filesystem.Output)
	require.NotNil(t, cfg.VideoSelection.NoPlaylist)
	assert.True(t, *cfg.VideoSelection.NoPlaylist)
	require.NotNil(t, cfg.VideoFormat.Format)
	assert.Equal(t, options.MuxedFormat, *cfg.VideoFormat.Format)
	require.NotNil(t, cfg.VideoFormat.MergeOutputFormat)
	assert.Equal(t, "mp4", *cfg.VideoFormat.MergeOutputFormat)
	require.NotNil(t, cfg.Workarounds.UserAgent)
	assert.Equal(t, "Mozilla/5.0", *cfg.Workarounds.UserAgent)
	require.NotNil(t, cfg.Workarounds.Referer)
	assert.Equal(t, "https://www.tiktok.com/", *cfg.Workarounds.Referer)
	assert.Nil(t, cfg.Workarounds.AddHeaders)
	require.NotNil(t, cfg.Extractor.ExtractorArgs)
	assert.Equal(t, "tiktok:region=US", *cfg.Extractor.ExtractorArgs)

	require.NotNil(t, cfg.VerbositySimulation.PrintToFile)
	assert.Equal(t, outputTemplate, cfg.VerbositySimulation.PrintToFile.Template)
	assert.Equal(t, "/tmp/record.jsonl", cfg.VerbositySimulation.PrintToFile.File)
	// --print and -j imply --quiet, which moves progress lines off stdout
	assert.Nil(t, cfg.VerbositySimulation.Print)
	assert.Nil(t, cfg.VerbositySimulation.DumpJSON)
	assert.Nil(t, cfg.VerbositySimulation.Quiet)
	require.NotNil(t, cfg.VerbositySimulation.Progress)
	assert.True(t, *cfg.VerbositySimulation.Progress)
	assert.NoError(t, cfg.Validate())
}

func TestCommand_OptionalFlagsOmitted(t *testing.T) {
	w := NewYtdlpWorker(storage.NewFileStorage(t.TempDir()), newTestLogger())

	cfg := w.command(domain.DownloadOptions{
		OutputTemplate: "/data/7/%(title)s.%(ext)s",
		Format:         options.RelaxedFormat,
	}, "").GetFlagConfig()

	assert.Nil(t, cfg.VideoSelection.NoPlaylist)
	assert.Nil(t, cfg.VideoFormat.MergeOutputFormat)
	assert.Nil(t, cfg.Workarounds.UserAgent)
	assert.Nil(t, cfg.Workarounds.Referer)
	assert.Nil(t, cfg.Workarounds.AddHeaders)
	assert.Nil(t, cfg.Extractor.ExtractorArgs)
	assert.Nil(t, cfg.VerbositySimulation.Progress)
	assert.Nil(t, cfg.VerbositySimulation.PrintToFile)
	require.NotNil(t, cfg.VideoFormat.Format)
	assert.Equal(t, "best", *cfg.VideoFormat.Format)
}

func TestCommand_ExtraHeader(t *testing.T) {
	w := NewYtdlpWorker(storage.NewFileStorage(t.TempDir()), newTestLogger())

	cfg := w.command(domain.DownloadOptions{
		Format:  "best",
		Headers: map[string]string{"Accept-Language": "en-US"},
	}, "").GetFlagConfig()

	require.NotNil(t, cfg.Workarounds.AddHeaders)
	assert.Equal(t, "Accept-Language:en-US", *cfg.Workarounds.AddHeaders)
}

func TestCommand_ShortVideoOptionsFromBuilder(t *testing.T) {
	w := NewYtdlpWorker(storage.NewFileStorage(t.TempDir()), newTestLogger())
	builder := options.NewBuilder(nil, func() bool { return true }, []string{"tiktok.com"})

	opts := builder.Build("https://www.tiktok.com/@u/video/123", "/data/7", 1)
	cfg := w.command(opts, "").GetFlagConfig()

	require.NotNil(t, cfg.Workarounds.UserAgent)
	assert.Contains(t, *cfg.Workarounds.UserAgent, "Mozilla/5.0")
	require.NotNil(t, cfg.Workarounds.Referer)
	assert.Equal(t, "https://www.tiktok.com/", *cfg.Workarounds.Referer)
	require.NotNil(t, cfg.Extractor.ExtractorArgs)
	assert.Equal(t, "tiktok:region=US", *cfg.Extractor.ExtractorArgs)
	require.NotNil(t, cfg.VideoSelection.NoPlaylist)
	assert.True(t, *cfg.VideoSelection.NoPlaylist)
	require.NotNil(t, cfg.VideoFormat.MergeOutputFormat)
	assert.Equal(t, "mp4", *cfg.VideoFormat.MergeOutputFormat)
	require.NotNil(t, cfg.Filesystem.Output)
	assert.Equal(t, filepath.Join("/data/7", "%(title)s.%(ext)s"), *cfg.Filesystem.Output)
}
