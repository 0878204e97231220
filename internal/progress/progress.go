package progress

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

// Bar is a progress bar over the deletion pass. A nil *Bar is valid and does
// nothing, so callers need not check whether progress output is enabled.
type Bar struct {
	bar *progressbar.ProgressBar
}

func New(w io.Writer, max int, description string) *Bar {
	return &Bar{
		bar: progressbar.NewOptions(max,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(description),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionOnCompletion(func() { _, _ = io.WriteString(w, "\n") }),
		),
	}
}

func (b *Bar) Add(n int) {
	if b == nil {
		return
	}
	_ = b.bar.Add(n)
}

func (b *Bar) Finish() {
	if b == nil {
		return
	}
	_ = b.bar.Finish()
}
