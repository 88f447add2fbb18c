package domain

import "maps"

// DownloadOptions configures a single extraction engine run.
// Values are built once per request and treated as read-only.
type DownloadOptions struct {
	OutputTemplate    string
	NoPlaylist        bool
	Format            string
	MergeOutputFormat string
	Headers           map[string]string
	ExtractorArgs     string
	Progress          ProgressObserver
}

// WithFormat returns a copy of the options with a different format expression.
func (o DownloadOptions) WithFormat(format string) DownloadOptions {
	cp := o
	cp.Format = format
	cp.Headers = maps.Clone(o.Headers)
	return cp
}
