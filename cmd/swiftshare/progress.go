package main

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/opd-ai/swiftshare/session"
)

const pollInterval = 100 * time.Millisecond

// progressView renders session snapshots as a progress bar, starting a new
// bar whenever a different file appears.
type progressView struct {
	out       io.Writer
	operation string
	bar       *progressbar.ProgressBar
	name      string
}

func newProgressView(out io.Writer, operation string) *progressView {
	return &progressView{out: out, operation: operation}
}

func (p *progressView) update(s session.Snapshot) {
	if s.FileName == "" {
		p.finish()
		return
	}
	if s.FileName != p.name || p.bar == nil {
		p.finish()
		p.name = s.FileName
		p.bar = progressbar.NewOptions64(int64(s.TotalBytes),
			progressbar.OptionSetDescription(fmt.Sprintf("%s %s", p.operation, s.FileName)),
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(50),
			progressbar.OptionThrottle(pollInterval),
			progressbar.OptionShowCount(),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(false),
		)
	}
	_ = p.bar.Set64(int64(s.BytesTransferred))
}

func (p *progressView) finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	fmt.Fprintln(p.out)
	p.bar = nil
	p.name = ""
}
