package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginBottom(1)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Long:  `Configure API keys, create working directories, and write the .env file.`,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	fmt.Println(titleStyle.Render("🎬 Videocreator Setup"))

	if err := createDirectories(); err != nil {
		return fmt.Errorf("creating directories: %w", err)
	}
	if err := configureEnv(); err != nil {
		return fmt.Errorf("configuring environment: %w", err)
	}

	fmt.Println(successStyle.Render("✓ Setup complete"))
	return nil
}

func createDirectories() error {
	dirs := []string{"temp", "output", "assets/music"}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	fmt.Println(successStyle.Render("✓ Created directories"))
	return nil
}

func configureEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		var overwrite bool
		if err := huh.NewConfirm().
			Title("Found existing .env file").
			Description("Overwrite?").
			Value(&overwrite).
			Run(); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println(infoStyle.Render("Kept existing .env"))
			return nil
		}
	}

	env := make(map[string]string)

	if err := configureRequiredKeys(env); err != nil {
		return err
	}
	if err := configureYouTube(env); err != nil {
		return err
	}

	return writeEnvFile(env)
}

func configureRequiredKeys(env map[string]string) error {
	keys := []struct {
		env   string
		title string
		desc  string
	}{
		{"GROQ_API_KEY", "Groq API key", "Used for script generation (console.groq.com)"},
		{"GEMINI_API_KEY", "Gemini API key", "Used for image generation (aistudio.google.com)"},
		{"ELEVENLABS_API_KEY", "ElevenLabs API key", "Used for narration (elevenlabs.io)"},
	}

	for _, key := range keys {
		var value string
		if err := huh.NewInput().
			Title(key.title).
			Description(key.desc).
			EchoMode(huh.EchoModePassword).
			Value(&value).
			Run(); err != nil {
			return err
		}
		if value != "" {
			env[key.env] = value
		}
	}
	return nil
}

func configureYouTube(env map[string]string) error {
	var setupYouTube bool
	if err := huh.NewConfirm().
		Title("Configure YouTube upload?").
		Description("Optional: publish finished videos to YouTube").
		Value(&setupYouTube).
		Run(); err != nil {
		return err
	}
	if !setupYouTube {
		return nil
	}

	fields := []struct {
		env   string
		title string
	}{
		{"YOUTUBE_CLIENT_ID", "OAuth client ID"},
		{"YOUTUBE_CLIENT_SECRET", "OAuth client secret"},
	}

	for _, field := range fields {
		var value string
		if err := huh.NewInput().
			Title(field.title).
			EchoMode(huh.EchoModePassword).
			Value(&value).
			Run(); err != nil {
			return err
		}
		if value != "" {
			env[field.env] = value
		}
	}
	return nil
}

func writeEnvFile(env map[string]string) error {
	var b strings.Builder
	for key, value := range env {
		fmt.Fprintf(&b, "%s=%s\n", key, value)
	}

	if err := os.WriteFile(".env", []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("write .env: %w", err)
	}

	fmt.Println(successStyle.Render("✓ Wrote .env"))
	return nil
}
