package app

import (
	"log/slog"
	"os"

	"github.com/vk/flowbridge/internal/capability"
	"github.com/vk/flowbridge/internal/config"
	"github.com/vk/flowbridge/internal/prompt"
	"github.com/vk/flowbridge/internal/registry"
	"github.com/vk/flowbridge/modules/inputprompt"
	"github.com/vk/flowbridge/modules/music"
	"github.com/vk/flowbridge/modules/script"
	"github.com/vk/flowbridge/modules/speech"
)

// coreModules builds the capability modules compiled into the flowbridge
// binary, configured from settings.
func coreModules(s *config.Settings, logger *slog.Logger) []registry.Module {
	return []registry.Module{
		&speech.Module{
			Executor: capability.NewSpeechExecutor(capability.NewCommandSynthesizer(s.Speech.Command), logger),
			Timeout:  s.Speech.Timeout.Or(speech.DefaultTimeout),
		},
		&script.Module{
			Executor: capability.NewScriptExecutor(
				capability.WithScriptConsole(s.Script.Console),
				capability.WithScriptTimeout(s.Script.Timeout.Or(capability.DefaultScriptTimeout)),
				capability.WithScriptLogger(logger),
			),
			Timeout: s.Script.Timeout.Or(capability.DefaultScriptTimeout),
		},
		&music.Module{
			Executor: capability.NewAudioExecutor(capability.NewCommandPlayer(s.Audio.Command), logger),
			Timeout:  s.Audio.Timeout.Or(music.DefaultTimeout),
		},
		&inputprompt.Module{
			Executor: capability.NewInputExecutor(prompt.NewTerminal(os.Stdin, os.Stdout)),
			Timeout:  s.Prompt.Timeout.Or(inputprompt.DefaultTimeout),
		},
	}
}
