// Package options derives extraction engine settings from a link and a target directory.
package options

import (
	"net/url"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/artemiysm/TG-Video/internal/domain"
)

const (
	// MuxedFormat prefers separate mp4 video and m4a audio merged into mp4.
	MuxedFormat = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	// SingleFileFormat is used when no muxer is installed.
	SingleFileFormat = "best[ext=mp4]/best"
	// RelaxedFormat accepts the best available stream regardless of container.
	RelaxedFormat = "best"

	mergeContainer = "mp4"
	outputPattern  = "%(title)s.%(ext)s"

	shortVideoUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	shortVideoReferer   = "https://www.tiktok.com/"
	shortVideoRegion    = "tiktok:region=US"
)

// Reporter receives progress events for a chat.
type Reporter interface {
	Report(chatID int64, ev domain.ProgressEvent)
}

// MuxerProbe reports whether a tool that merges audio and video streams is available.
type MuxerProbe func() bool

// LookPathProbe returns a probe that searches PATH for the named executable.
func LookPathProbe(name string) MuxerProbe {
	return func() bool {
		_, err := exec.LookPath(name)
		return err == nil
	}
}

// Builder produces DownloadOptions for incoming links.
type Builder struct {
	reporter   Reporter
	probe      MuxerProbe
	shortHosts []string
}

// NewBuilder creates a Builder. shortHosts lists host substrings of
// short-form video platforms that need browser-like request headers.
func NewBuilder(reporter Reporter, probe MuxerProbe, shortHosts []string) *Builder {
	if probe == nil {
		probe = LookPathProbe("ffmpeg")
	}
	return &Builder{
		reporter:   reporter,
		probe:      probe,
		shortHosts: shortHosts,
	}
}

// Build returns the options for downloading rawURL into dir.
// dir must already exist.
func (b *Builder) Build(rawURL, dir string, chatID int64) domain.DownloadOptions {
	opts := domain.DownloadOptions{
		OutputTemplate: filepath.Join(dir, outputPattern),
		NoPlaylist:     true,
	}

	if b.IsShortVideo(rawURL) {
		opts.Headers = map[string]string{
			"User-Agent": shortVideoUserAgent,
			"Referer":    shortVideoReferer,
		}
		opts.ExtractorArgs = shortVideoRegion
	}

	if b.probe() {
		opts.Format = MuxedFormat
		opts.MergeOutputFormat = mergeContainer
	} else {
		opts.Format = SingleFileFormat
	}

	if b.reporter != nil {
		opts.Progress = chatObserver{chatID: chatID, reporter: b.reporter}
	}

	return opts
}

// IsShortVideo reports whether rawURL points at a short-form video platform.
func (b *Builder) IsShortVideo(rawURL string) bool {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}
	host = strings.ToLower(host)

	for _, h := range b.shortHosts {
		if h != "" && strings.Contains(host, strings.ToLower(h)) {
			return true
		}
	}
	return false
}

// DeliveryKind returns how a file downloaded from rawURL should be attached.
func (b *Builder) DeliveryKind(rawURL string) domain.DeliveryKind {
	if b.IsShortVideo(rawURL) {
		return domain.DeliveryVideo
	}
	return domain.DeliveryDocument
}

type chatObserver struct {
	chatID   int64
	reporter Reporter
}

func (o chatObserver) OnProgress(ev domain.ProgressEvent) {
	o.reporter.Report(o.chatID, ev)
}
