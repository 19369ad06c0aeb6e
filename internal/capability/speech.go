package capability

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
)

// Utterance is one piece of text to speak. Volume ranges from 0 (silent)
// to 1.
type Utterance struct {
	Text   string
	Lang   string
	Rate   float64
	Pitch  float64
	Volume float64
}

// withDefaults fills unset prosody values with neutral ones and clamps
// volume to [0, 1].
func (u Utterance) withDefaults() Utterance {
	if u.Lang == "" {
		u.Lang = "en"
	}
	if u.Rate <= 0 {
		u.Rate = 1
	}
	if u.Pitch <= 0 {
		u.Pitch = 1
	}
	u.Volume = min(max(u.Volume, 0), 1)
	return u
}

// Synthesizer speaks an utterance, returning when it has finished or ctx is
// cancelled.
type Synthesizer interface {
	Speak(ctx context.Context, u Utterance) error
}

// DefaultSpeechCommand drives espeak-ng.
var DefaultSpeechCommand = CommandTemplate{"espeak-ng", "-v", "{lang}", "-s", "{wpm}", "-p", "{espeakPitch}", "-a", "{amplitude}", "{text}"}

// CommandSynthesizer speaks by running an external command.
type CommandSynthesizer struct {
	Template CommandTemplate
}

// NewCommandSynthesizer returns a synthesizer running tmpl, or the espeak-ng
// default when tmpl is empty.
func NewCommandSynthesizer(tmpl CommandTemplate) *CommandSynthesizer {
	if len(tmpl) == 0 {
		tmpl = DefaultSpeechCommand
	}
	return &CommandSynthesizer{Template: tmpl}
}

// Speak implements Synthesizer.
func (c *CommandSynthesizer) Speak(ctx context.Context, u Utterance) error {
	cmd, stderr, err := c.Template.command(ctx, map[string]string{
		"text":        u.Text,
		"lang":        u.Lang,
		"rate":        formatFloat(u.Rate),
		"pitch":       formatFloat(u.Pitch),
		"volume":      formatFloat(u.Volume),
		"wpm":         strconv.Itoa(int(175 * u.Rate)),
		"espeakPitch": strconv.Itoa(int(50 * u.Pitch)),
		"amplitude":   strconv.Itoa(int(100 * u.Volume)),
	})
	if err != nil {
		return err
	}
	if err := cmd.Run(); err != nil {
		return commandError(c.Template[0], err, stderr)
	}
	return nil
}

// SpeechExecutor services speech requests. Only one utterance plays at a
// time; a new request cuts off the previous one.
type SpeechExecutor struct {
	synth  Synthesizer
	slot   Slot
	logger *slog.Logger
}

// NewSpeechExecutor creates an executor speaking through synth.
func NewSpeechExecutor(synth Synthesizer, logger *slog.Logger) *SpeechExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SpeechExecutor{synth: synth, logger: logger.With("capability", "speech")}
}

// Speak plays u and waits for it to finish. It returns ErrInterrupted when a
// newer request or Stop cut it off.
func (e *SpeechExecutor) Speak(ctx context.Context, u Utterance) error {
	if strings.TrimSpace(u.Text) == "" {
		return errors.New("nothing to speak")
	}
	u = u.withDefaults()

	owned, release := e.slot.Acquire(ctx)
	defer release()

	e.logger.Debug("Speaking.", "lang", u.Lang, "chars", len(u.Text))
	err := e.synth.Speak(owned, u)
	return interruption(owned, ctx, err)
}

// Stop silences the current utterance.
func (e *SpeechExecutor) Stop() {
	e.slot.Stop()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
