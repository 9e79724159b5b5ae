package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/IshaanNene/SauceBot/internal/logging"
	"github.com/IshaanNene/SauceBot/internal/types"
)

// ScreenshotName is <class>_<account>_<step>_<session start>.png, lower-cased.
// Path separators in the parts are replaced so the name stays a single
// path element.
func ScreenshotName(class, account, step string, start time.Time) string {
	name := fmt.Sprintf("%s_%s_%s_%s.png", class, account, step, start.Format(logging.StampLayout))
	name = strings.NewReplacer("/", "_", `\`, "_", string(os.PathSeparator), "_").Replace(name)
	return strings.ToLower(name)
}

// ScreenshotPath places ScreenshotName under dir.
func ScreenshotPath(dir, class, account, step string, start time.Time) string {
	return filepath.Join(dir, ScreenshotName(class, account, step, start))
}

func (b *Bot) saveScreenshot(ctx context.Context, account, step string) {
	path := ScreenshotPath(b.cfg.Output.ScreenshotDir, Name, account, step, b.log.Start())
	if err := b.ctl.Driver().Screenshot(ctx, path); err != nil {
		b.log.Error("failed to save screenshot: ", err)
		return
	}
	b.metrics.Screenshot()
	b.log.Info("screenshot saved:\n" + path)
}

// pickRemovals chooses which cart rows to remove when the badge reads count
// and available rows are listed. It removes between 1 and count-1 rows, never
// more than available-1, so at least one listed item always stays.
func pickRemovals(r types.Rand, count, available int) []int {
	if count <= 1 || available <= 1 {
		return nil
	}
	n := min(1+r.Intn(count-1), available-1)
	return r.Perm(available)[:n]
}

// pickSortTarget chooses uniformly among the option labels other than the
// active one.
func pickSortTarget(r types.Rand, options []string, current string) (string, bool) {
	var others []string
	for _, o := range options {
		if o != current {
			others = append(others, o)
		}
	}
	if len(others) == 0 {
		return "", false
	}
	return others[r.Intn(len(others))], true
}
