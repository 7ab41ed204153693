package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/hykvra/AI-Video-Creator/internal/distribution"
	"github.com/hykvra/AI-Video-Creator/pkg/config"
)

var (
	authInfoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	authSuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	authErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate with external services",
}

var authYouTubeCmd = &cobra.Command{
	Use:   "youtube",
	Short: "Authenticate with YouTube (OAuth)",
	Long:  `Complete the YouTube OAuth flow using credentials from the .env file.`,
	RunE:  runAuthYouTube,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check which services are configured",
	RunE:  runAuthStatus,
}

func init() {
	authCmd.AddCommand(authYouTubeCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Println(authInfoStyle.Render("\nService configuration status:\n"))

	keys := []struct {
		name  string
		value string
	}{
		{"Groq (scripts)", cfg.GroqAPIKey},
		{"Gemini (images)", cfg.GeminiAPIKey},
		{"ElevenLabs (narration)", cfg.ElevenLabsAPIKey},
	}
	for _, key := range keys {
		if key.value != "" {
			fmt.Println(authSuccessStyle.Render("✓ " + key.name))
		} else {
			fmt.Println(authErrorStyle.Render("✗ " + key.name + ": missing API key"))
		}
	}

	if cfg.YouTubeClientID != "" && cfg.YouTubeClientSecret != "" {
		if _, err := os.Stat(cfg.YouTubeTokenPath); err == nil {
			fmt.Println(authSuccessStyle.Render("✓ YouTube: authenticated (token exists)"))
		} else {
			fmt.Println(authErrorStyle.Render("✗ YouTube: credentials set, but not authenticated"))
			fmt.Println(authInfoStyle.Render("  Run: videocreator auth youtube"))
		}
	} else {
		fmt.Println(authInfoStyle.Render("○ YouTube: not configured (optional)"))
	}

	if cfg.GCSBucket != "" {
		fmt.Println(authSuccessStyle.Render("✓ Cloud Storage: bucket " + cfg.GCSBucket))
	} else {
		fmt.Println(authInfoStyle.Render("○ Cloud Storage: not configured (optional)"))
	}

	fmt.Println()
	return nil
}

func runAuthYouTube(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.YouTubeClientID == "" || cfg.YouTubeClientSecret == "" {
		return fmt.Errorf("YOUTUBE_CLIENT_ID and YOUTUBE_CLIENT_SECRET must be set in .env")
	}

	auth := distribution.NewYouTubeAuth(cfg.YouTubeClientID, cfg.YouTubeClientSecret, cfg.YouTubeTokenPath)

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	listener, err := net.Listen("tcp", ":8080")
	if err != nil {
		return fmt.Errorf("start callback server: %w", err)
	}

	server := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/callback" {
				http.NotFound(w, r)
				return
			}
			code := r.URL.Query().Get("code")
			if code == "" {
				errChan <- fmt.Errorf("no code in callback")
				_, _ = fmt.Fprint(w, "<html><body><h1>Error</h1><p>No authorization code received.</p></body></html>")
				return
			}
			codeChan <- code
			_, _ = fmt.Fprint(w, "<html><body><h1>Success!</h1><p>You can close this window and return to the terminal.</p></body></html>")
		}),
	}

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	fmt.Println(authInfoStyle.Render("\nVisit this URL to authorize YouTube access:\n" + auth.AuthURL()))

	var authErr error
	_ = spinner.New().
		Title("Waiting for authorization in the browser...").
		Action(func() {
			select {
			case code := <-codeChan:
				authErr = auth.Exchange(cmd.Context(), code)
			case err := <-errChan:
				authErr = err
			case <-time.After(5 * time.Minute):
				authErr = fmt.Errorf("authentication timed out")
			}
		}).
		Run()
	if authErr != nil {
		return authErr
	}

	fmt.Println(authSuccessStyle.Render("✓ YouTube authentication complete"))
	fmt.Println(authSuccessStyle.Render("  Token saved to: " + cfg.YouTubeTokenPath))
	return nil
}
