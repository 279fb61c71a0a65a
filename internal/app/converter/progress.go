package converter

import (
	"io"
	"os"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// ProgressConfig controls the terminal progress bar
type ProgressConfig struct {
	Enabled bool
	Writer  io.Writer
}

// ProgressBar counts finished files. A disabled bar is a no-op.
type ProgressBar struct {
	container *mpb.Progress
	bar       *mpb.Bar
}

// NewProgressBar starts a bar over total files
func NewProgressBar(config ProgressConfig, total int, description string) *ProgressBar {
	if !config.Enabled || total == 0 {
		return &ProgressBar{}
	}

	writer := config.Writer
	if writer == nil {
		writer = os.Stderr
	}

	container := mpb.New(
		mpb.WithOutput(writer),
		mpb.WithRefreshRate(120*time.Millisecond),
	)
	bar := container.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name(description+" ", decor.WC{W: len(description) + 1, C: decor.DindentRight}),
			decor.CountersNoUnit("(%d/%d)", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.NewPercentage("%.1f", decor.WCSyncSpace),
			decor.OnComplete(
				decor.AverageETA(decor.ET_STYLE_GO, decor.WCSyncWidth), " done",
			),
		),
	)

	return &ProgressBar{container: container, bar: bar}
}

// Increment marks one file as finished
func (pb *ProgressBar) Increment() {
	if pb.bar != nil {
		pb.bar.Increment()
	}
}

// Wait flushes the bar. Unfinished bars are aborted so Wait never blocks.
func (pb *ProgressBar) Wait() {
	if pb.container == nil {
		return
	}
	if !pb.bar.Completed() {
		pb.bar.Abort(false)
	}
	pb.container.Wait()
}

// IsTTY reports whether writer is a terminal
func IsTTY(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	stat, err := file.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// ShouldShowProgress enables the bar when forced or when stderr is a terminal
func ShouldShowProgress(forced bool) bool {
	return forced || IsTTY(os.Stderr)
}
