package capability

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"strings"
)

// Playback is a started media stream.
type Playback interface {
	// Wait blocks until the media ends, fails, or the start context is
	// cancelled.
	Wait() error
}

// Player starts playback of a media URL. Cancelling ctx must stop playback.
type Player interface {
	Start(ctx context.Context, url string) (Playback, error)
}

// DefaultAudioCommand drives ffplay.
var DefaultAudioCommand = CommandTemplate{"ffplay", "-nodisp", "-autoexit", "-loglevel", "error", "{url}"}

// CommandPlayer plays media by running an external command.
type CommandPlayer struct {
	Template CommandTemplate
}

// NewCommandPlayer returns a player running tmpl, or the ffplay default when
// tmpl is empty.
func NewCommandPlayer(tmpl CommandTemplate) *CommandPlayer {
	if len(tmpl) == 0 {
		tmpl = DefaultAudioCommand
	}
	return &CommandPlayer{Template: tmpl}
}

type commandPlayback struct {
	cmd    *exec.Cmd
	argv0  string
	stderr *bytes.Buffer
}

func (p *commandPlayback) Wait() error {
	if err := p.cmd.Wait(); err != nil {
		return commandError(p.argv0, err, p.stderr)
	}
	return nil
}

// Start implements Player.
func (c *CommandPlayer) Start(ctx context.Context, mediaURL string) (Playback, error) {
	cmd, stderr, err := c.Template.command(ctx, map[string]string{"url": mediaURL})
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, commandError(c.Template[0], err, stderr)
	}
	return &commandPlayback{cmd: cmd, argv0: c.Template[0], stderr: stderr}, nil
}

// AudioExecutor services music requests. At most one playback exists at a
// time; a new request or Stop tears down the previous one first.
type AudioExecutor struct {
	player Player
	slot   Slot
	logger *slog.Logger
}

// NewAudioExecutor creates an executor playing through player.
func NewAudioExecutor(player Player, logger *slog.Logger) *AudioExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &AudioExecutor{player: player, logger: logger.With("capability", "audio")}
}

// Play starts mediaURL. Without waitForEnd it returns as soon as playback has
// started and the media keeps playing after ctx ends; with waitForEnd it
// returns when the media ends or fails.
func (e *AudioExecutor) Play(ctx context.Context, mediaURL string, waitForEnd bool) error {
	if err := validateMediaURL(mediaURL); err != nil {
		return err
	}

	base := ctx
	if !waitForEnd {
		base = context.WithoutCancel(ctx)
	}
	owned, release := e.slot.Acquire(base)

	pb, err := e.player.Start(owned, mediaURL)
	if err != nil {
		release()
		return err
	}
	e.logger.Debug("Playback started.", "url", mediaURL, "wait", waitForEnd)

	if !waitForEnd {
		go func() {
			defer release()
			if err := pb.Wait(); err != nil && owned.Err() == nil {
				e.logger.Warn("Background playback failed.", "url", mediaURL, "error", err)
			}
		}()
		return nil
	}

	defer release()
	return interruption(owned, ctx, pb.Wait())
}

// Stop tears down the current playback.
func (e *AudioExecutor) Stop() {
	e.slot.Stop()
}

func validateMediaURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errors.New("audio URL is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid audio URL: %w", err)
	}
	switch u.Scheme {
	case "http", "https", "file", "":
		return nil
	}
	return fmt.Errorf("unsupported audio URL scheme %q", u.Scheme)
}
