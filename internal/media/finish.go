package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	TitleCardFilename = "title_card.mp4"
	FinalCutFilename  = "final_cut.mp4"

	DefaultTitleDuration     = 3.0
	DefaultTitleFontSize     = 48
	DefaultSubtitleFontSize  = 30
	defaultTitleCardWidth    = 1280
	defaultTitleCardHeight   = 720
	defaultTitleCardRate     = 30.0
	titleCardSubtitleYOffset = 20
	titleCardTitleYOffset    = 60
)

// ErrFinishUnsupported is returned when a finished render is requested from
// a tool that cannot re-encode.
var ErrFinishUnsupported = errors.New("media tool cannot re-encode renders")

// Finish is the optional polish of a render. The zero value keeps plain
// stream-copied cuts.
type Finish struct {
	// Fade is the fade-in and fade-out length of every cut, in seconds.
	Fade     float64
	Title    string
	Subtitle string
}

// Enabled reports whether cuts need re-encoding.
func (f Finish) Enabled() bool {
	return f.Fade > 0 || f.Title != ""
}

// TitleCard is a black card with a centred title and subtitle.
type TitleCard struct {
	Title     string
	Subtitle  string
	Width     int
	Height    int
	FrameRate float64
	Duration  float64
}

// Finisher re-encodes cuts so they can carry fades and be joined with a
// generated title card.
type Finisher interface {
	// Fade re-encodes input into output, fading in and out over fade
	// seconds. A cut too short for the fade is re-encoded without it.
	Fade(ctx context.Context, input, output string, fade float64) error
	TitleCard(ctx context.Context, output string, card TitleCard) error
}

// FadedFilename names the finished copy of a cut.
func FadedFilename(cut string) string {
	ext := filepath.Ext(cut)
	return strings.TrimSuffix(cut, ext) + "_faded" + ext
}

// FinalCutRequest joins the rendered videos of a project behind a title card.
type FinalCutRequest struct {
	OutDir string
	Joined []string
	Card   TitleCard
}

// FinalCut writes the title card and joins it with every per-video render
// into OutDir. Both files are rewritten on every run.
func FinalCut(ctx context.Context, tool Tool, req FinalCutRequest) (string, error) {
	if len(req.Joined) == 0 {
		return "", fmt.Errorf("nothing to join into a final cut")
	}
	finisher, ok := tool.(Finisher)
	if !ok {
		return "", ErrFinishUnsupported
	}
	if err := os.MkdirAll(req.OutDir, 0755); err != nil {
		return "", fmt.Errorf("cannot create segments dir: %w", err)
	}

	card := withCardDefaults(req.Card)
	inputs := req.Joined
	if card.Title != "" {
		cardPath := filepath.Join(req.OutDir, TitleCardFilename)
		if err := finisher.TitleCard(ctx, cardPath, card); err != nil {
			return "", fmt.Errorf("title card: %w", err)
		}
		inputs = append([]string{cardPath}, req.Joined...)
	}

	out := filepath.Join(req.OutDir, FinalCutFilename)
	if err := tool.Concat(ctx, inputs, out); err != nil {
		return "", fmt.Errorf("join final cut: %w", err)
	}
	return out, nil
}

func withCardDefaults(card TitleCard) TitleCard {
	if card.Width <= 0 || card.Height <= 0 {
		card.Width, card.Height = defaultTitleCardWidth, defaultTitleCardHeight
	}
	if card.FrameRate <= 0 {
		card.FrameRate = defaultTitleCardRate
	}
	if card.Duration <= 0 {
		card.Duration = DefaultTitleDuration
	}
	return card
}

// fadeFilter builds the video filter for a cut of the given length, or ""
// when the cut is too short to fade.
func fadeFilter(duration, fade float64) string {
	outStart := duration - fade
	if fade <= 0 || outStart <= 0 {
		return ""
	}
	return fmt.Sprintf("fade=t=in:st=0:d=%s,fade=t=out:st=%s:d=%s",
		formatSeconds(fade), formatSeconds(outStart), formatSeconds(fade))
}

func fadeArgs(input, output, filter string) []string {
	args := []string{"-y", "-i", input, "-map", "0:0"}
	if filter != "" {
		args = append(args, "-vf", filter)
	}
	return append(args, "-c:v", "libx264", "-pix_fmt", "yuv420p", output)
}

func titleCardArgs(output string, card TitleCard) []string {
	source := fmt.Sprintf("color=c=black:s=%dx%d:r=%s:d=%s",
		card.Width, card.Height, formatSeconds(card.FrameRate), formatSeconds(card.Duration))
	filters := []string{drawText(card.Title, DefaultTitleFontSize, fmt.Sprintf("(h/2-%d)", titleCardTitleYOffset))}
	if card.Subtitle != "" {
		filters = append(filters, drawText(card.Subtitle, DefaultSubtitleFontSize, fmt.Sprintf("(h/2+%d)", titleCardSubtitleYOffset)))
	}
	return []string{
		"-y",
		"-f", "lavfi",
		"-i", source,
		"-vf", strings.Join(filters, ","),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		output,
	}
}

func drawText(text string, size int, y string) string {
	return fmt.Sprintf("drawtext=expansion=none:text='%s':fontsize=%d:fontcolor=white:x=(w-text_w)/2:y=%s",
		quoteSafe(text), size, y)
}

// quoteSafe keeps text inside a single-quoted filter option: quotes become
// typographic apostrophes and backslashes are dropped.
func quoteSafe(s string) string {
	return strings.NewReplacer(`'`, "’", `\`, "").Replace(s)
}
