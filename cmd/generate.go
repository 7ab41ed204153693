package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/hykvra/AI-Video-Creator/internal/app"
	"github.com/hykvra/AI-Video-Creator/internal/script"
	"github.com/hykvra/AI-Video-Creator/pkg/config"
)

var (
	genTopic    string
	genHook     string
	genFact     string
	genDuration int
	genGenre    string
	genComedy   string
	genLanguage string
	genPreview  bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a single video from the command line",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&genTopic, "topic", "t", "", "Topic for the video")
	generateCmd.Flags().StringVar(&genHook, "hook", "", "Hook line (factreveal genre)")
	generateCmd.Flags().StringVar(&genFact, "fact", "", "Fact to reveal (factreveal genre)")
	generateCmd.Flags().IntVarP(&genDuration, "duration", "d", 60, "Target duration in seconds")
	generateCmd.Flags().StringVarP(&genGenre, "genre", "g", "informative", "Genre: informative, comedy, storytelling, motivational, factreveal")
	generateCmd.Flags().StringVar(&genComedy, "comedy-level", "mild", "Comedy level: mild, medium, spicy")
	generateCmd.Flags().StringVarP(&genLanguage, "language", "l", "english", "Language: english, hindi, spanish")
	generateCmd.Flags().BoolVarP(&genPreview, "preview", "p", false, "Review the script before media generation")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if genTopic == "" && (genHook == "" || genFact == "") {
		return errors.New("please provide --topic, or both --hook and --fact")
	}

	ctx := cmd.Context()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	service, err := app.BuildService(ctx, cfg)
	if err != nil {
		return err
	}

	// Subscribing before the session starts guarantees even an
	// immediate failure event reaches the loop below.
	sessionID := app.NewSessionID()
	events, cancel := service.Broadcaster.Subscribe(sessionID)
	defer cancel()

	err = service.Orchestrator.StartWithID(sessionID, app.StartRequest{
		Request: script.Request{
			Topic:           genTopic,
			Hook:            genHook,
			Fact:            genFact,
			DurationSeconds: genDuration,
			Genre:           script.NormalizeGenre(genGenre),
			ComedyLevel:     script.NormalizeComedyLevel(genComedy),
			Language:        script.NormalizeLanguage(genLanguage),
		},
		Preview: genPreview,
	})
	if err != nil {
		return err
	}

	slog.Info("Session started", "sessionId", sessionID)

	for event := range events {
		switch {
		case event.Status == app.StatusError:
			return fmt.Errorf("generation failed at %s: %s", event.Step, event.Message)

		case event.Step == app.StepPreviewReady:
			printScript(event.Data)
			var proceed bool
			if err := huh.NewConfirm().
				Title("Generate video from this script?").
				Affirmative("Yes").
				Negative("No").
				Value(&proceed).
				Run(); err != nil {
				return err
			}
			if !proceed {
				slog.Info("Aborted at preview")
				return nil
			}
			if err := service.Orchestrator.Confirm(sessionID); err != nil {
				return err
			}

		case event.Step == app.StepComplete:
			slog.Info("Video created", "url", event.VideoURL)
			return nil

		default:
			slog.Info(event.Message, "step", event.Step, "status", event.Status)
		}
	}

	return errors.New("event stream closed before completion")
}

func printScript(data any) {
	scr, ok := data.(*script.Script)
	if !ok {
		return
	}
	fmt.Printf("\nTitle: %s\n\n", scr.VideoTitle)
	for i, scene := range scr.Scenes {
		fmt.Printf("Scene %d:\n  Narration: %s\n", i+1, scene.NarrationText)
		for _, prompt := range scene.ImagePrompts {
			fmt.Printf("  Image: %s\n", prompt)
		}
		fmt.Println()
	}
}
