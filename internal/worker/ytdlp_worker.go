package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lrstanley/go-ytdlp"

	"github.com/artemiysm/TG-Video/internal/domain"
	errpkg "github.com/artemiysm/TG-Video/internal/errors"
	"github.com/artemiysm/TG-Video/internal/storage"
)

// progressFrequency bounds how often yt-dlp progress lines are turned into events.
const progressFrequency = 500 * time.Millisecond

// outputTemplate makes yt-dlp append the final path and title of every file
// it finishes, after merging and moving, as one JSON object per line.
const outputTemplate = "after_move:%(.{filepath,title})j"

// outputRecord is one line written through outputTemplate.
type outputRecord struct {
	Filepath string `json:"filepath"`
	Title    string `json:"title"`
}

// YtdlpWorker runs yt-dlp for a single link and reports where the result landed.
type YtdlpWorker struct {
	fileStorage *storage.FileStorage
	logger      *slog.Logger
}

// NewYtdlpWorker creates a new YtdlpWorker.
func NewYtdlpWorker(fileStorage *storage.FileStorage, logger *slog.Logger) *YtdlpWorker {
	return &YtdlpWorker{
		fileStorage: fileStorage,
		logger:      logger,
	}
}

// Install makes sure a yt-dlp binary is available, downloading it if needed.
func Install(ctx context.Context) error {
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		return fmt.Errorf("install yt-dlp: %w", err)
	}
	return nil
}

// Download fetches rawURL according to opts. The call blocks until yt-dlp exits
// and opts.Progress only receives events before it returns.
// Engine failures are returned as *errors.DownloadError.
func (w *YtdlpWorker) Download(ctx context.Context, rawURL string, opts domain.DownloadOptions) (*domain.DeliveredFile, error) {
	record, err := os.CreateTemp("", "tgvideo-output-*.jsonl")
	if err != nil {
		return nil, fmt.Errorf("create output record: %w", err)
	}
	record.Close()
	defer os.Remove(record.Name())

	dl := w.command(opts, record.Name())

	w.logger.Debug("running yt-dlp", "url", rawURL, "format", opts.Format)

	result, err := dl.Run(ctx, rawURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		dlErr := engineError(result, err)
		w.logger.Warn("yt-dlp failed", "url", rawURL, "format", opts.Format, "error", dlErr.Message)
		return nil, dlErr
	}

	dir := filepath.Dir(opts.OutputTemplate)
	file, err := w.resolveOutput(record.Name(), dir)
	if err != nil {
		return nil, err
	}

	w.logger.Debug("yt-dlp finished", "url", rawURL, "file", file.Path, "bytes", file.Size)
	return file, nil
}

func (w *YtdlpWorker) command(opts domain.DownloadOptions, recordPath string) *ytdlp.Command {
	dl := ytdlp.New().
		ForceOverwrites().
		RestrictFilenames().
		Output(opts.OutputTemplate).
		Format(opts.Format)

	if recordPath != "" {
		dl.PrintToFile(outputTemplate, recordPath)
	}

	if opts.NoPlaylist {
		dl.NoPlaylist()
	}
	if opts.MergeOutputFormat != "" {
		dl.MergeOutputFormat(opts.MergeOutputFormat)
	}

	// --add-headers holds a single value in go-ytdlp, so the two browser
	// headers go through their own flags.
	if ua := opts.Headers[headerUserAgent]; ua != "" {
		dl.UserAgent(ua)
	}
	if referer := opts.Headers[headerReferer]; referer != "" {
		dl.Referer(referer)
	}
	if extra := headerArgs(opts.Headers); len(extra) > 0 {
		dl.AddHeaders(extra[0])
		if len(extra) > 1 {
			w.logger.Warn("yt-dlp accepts one extra header, ignoring the rest", "ignored", extra[1:])
		}
	}

	if opts.ExtractorArgs != "" {
		dl.ExtractorArgs(opts.ExtractorArgs)
	}

	if observer := opts.Progress; observer != nil {
		streams := &streamProgress{}
		dl.ProgressFunc(progressFrequency, func(update ytdlp.ProgressUpdate) {
			observer.OnProgress(progressEvent(update, streams.percent(update)))
		})
	}

	return dl
}

// resolveOutput finds the downloaded file, preferring the path yt-dlp recorded
// in recordPath and falling back to the newest file in the working directory.
func (w *YtdlpWorker) resolveOutput(recordPath, dir string) (*domain.DeliveredFile, error) {
	file := &domain.DeliveredFile{}

	if rec, ok := w.lastRecord(recordPath); ok {
		file.Title = rec.Title
		if fileExists(rec.Filepath) {
			file.Path = rec.Filepath
		}
	}

	if file.Path == "" {
		path, err := w.fileStorage.LatestFile(dir)
		if err != nil {
			return nil, fmt.Errorf("locate output: %w", err)
		}
		file.Path = path
	}

	size, err := w.fileStorage.FileSize(file.Path)
	if err != nil {
		return nil, fmt.Errorf("stat output: %w", err)
	}
	file.Size = size

	if file.Title == "" {
		file.Title = strings.TrimSuffix(filepath.Base(file.Path), filepath.Ext(file.Path))
	}
	return file, nil
}

// lastRecord returns the last well-formed line of the output record.
func (w *YtdlpWorker) lastRecord(path string) (outputRecord, bool) {
	var (
		last  outputRecord
		found bool
	)

	f, err := os.Open(path)
	if err != nil {
		return last, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec outputRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil || rec.Filepath == "" {
			w.logger.Debug("skipping output record line", "line", scanner.Text())
			continue
		}
		last, found = rec, true
	}
	return last, found
}

// streamProgress folds the per-stream progress of one download into a single
// percentage that never goes backwards. Separate video and audio streams are
// fetched one after the other, and each restarts at 0.
type streamProgress struct {
	mu      sync.Mutex
	streams []string
	last    float64
}

func (p *streamProgress) percent(update ytdlp.ProgressUpdate) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := 1
	if update.Info != nil && len(update.Info.RequestedFormats) > 1 {
		total = len(update.Info.RequestedFormats)
	}

	idx := len(p.streams) - 1
	if update.Filename != "" {
		idx = slices.Index(p.streams, update.Filename)
		if idx < 0 {
			p.streams = append(p.streams, update.Filename)
			idx = len(p.streams) - 1
		}
	}
	idx = max(0, min(idx, total-1))

	overall := (float64(idx)*100 + update.Percent()) / float64(total)
	if overall < p.last {
		overall = p.last
	}
	p.last = overall
	return overall
}

func progressEvent(update ytdlp.ProgressUpdate, percent float64) domain.ProgressEvent {
	ev := domain.ProgressEvent{
		Status:  string(update.Status),
		Percent: fmt.Sprintf("%.1f%%", percent),
	}

	if !update.Started.IsZero() {
		elapsed := time.Since(update.Started)
		if elapsed.Seconds() > 0 && update.DownloadedBytes > 0 {
			bytesPerSecond := float64(update.DownloadedBytes) / elapsed.Seconds()
			ev.Speed = humanize.IBytes(uint64(bytesPerSecond)) + "/s"
		}
	}

	if eta := update.ETA(); eta > 0 {
		ev.ETA = domain.FormatETA(int(eta.Seconds()))
	}

	return ev
}

// engineError turns a failed run into a DownloadError carrying yt-dlp's own message.
func engineError(result *ytdlp.Result, runErr error) *errpkg.DownloadError {
	stderr := ""
	if result != nil {
		stderr = result.Stderr
	}
	return errpkg.NewDownloadError(errorMessage(stderr, runErr), runErr)
}

// errorMessage extracts the human-readable failure from yt-dlp output:
// the last "ERROR:" line, or the process error if there is none.
func errorMessage(stderr string, runErr error) string {
	text := stderr
	if runErr != nil {
		text += "\n" + runErr.Error()
	}

	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "ERROR:") {
			return line
		}
	}

	if runErr != nil {
		return runErr.Error()
	}
	return strings.TrimSpace(stderr)
}

const (
	headerUserAgent = "User-Agent"
	headerReferer   = "Referer"
)

// headerArgs returns "Name:value" pairs for headers without a dedicated flag.
func headerArgs(headers map[string]string) []string {
	args := make([]string, 0, len(headers))
	for k, v := range headers {
		if k == headerUserAgent || k == headerReferer {
			continue
		}
		args = append(args, k+":"+v)
	}
	sort.Strings(args)
	return args
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
