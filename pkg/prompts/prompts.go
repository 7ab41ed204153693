// Package prompts holds the templates sent to the text model. Built-in
// defaults ship with the binary; a prompts.yaml next to the binary
// overrides individual entries.
package prompts

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

const defaultPromptsPath = "prompts.yaml"

type Prompts struct {
	System SystemPrompts `yaml:"system"`
	Script ScriptPrompts `yaml:"script"`
}

type SystemPrompts struct {
	Script string `yaml:"script"`
}

type ScriptPrompts struct {
	Topic      string `yaml:"topic"`
	FactReveal string `yaml:"fact_reveal"`
}

type ScriptParams struct {
	Topic       string
	Hook        string
	Fact        string
	SceneCount  int
	Genre       string
	ComedyLevel string
	Language    string
}

// Default returns the built-in templates.
func Default() *Prompts {
	return &Prompts{
		System: SystemPrompts{
			Script: "You are a scriptwriter for short vertical videos. " +
				"Respond with a single JSON object: {\"videoTitle\": string, " +
				"\"scenes\": [{\"imagePrompts\": [string], \"narrationText\": string}], " +
				"\"youtubeMetadata\": {\"title\": string, \"description\": string, " +
				"\"tags\": [string], \"thumbnailPrompts\": [string]}}. " +
				"No markdown, no commentary outside the JSON.",
		},
		Script: ScriptPrompts{
			Topic: "Write a {{.Genre}} short-video script about: {{.Topic}}. " +
				"Exactly {{.SceneCount}} scenes. Narration language: {{.Language}}, " +
				"written in that language's native script." +
				"{{if .ComedyLevel}} Comedy intensity: {{.ComedyLevel}}.{{end}} " +
				"Each scene needs one or more vivid image prompts and punchy narration.",
			FactReveal: "Write a fact-reveal short-video script. Hook: {{.Hook}}. " +
				"Fact to reveal: {{.Fact}}. Exactly {{.SceneCount}} scenes building " +
				"tension toward the reveal. Narration language: {{.Language}}, written " +
				"in that language's native script. Each scene needs one or more vivid " +
				"image prompts and punchy narration.",
		},
	}
}

// Load returns the defaults merged with any prompts.yaml overrides.
func Load() (*Prompts, error) {
	return LoadFrom(defaultPromptsPath)
}

func LoadFrom(path string) (*Prompts, error) {
	p := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return nil, fmt.Errorf("read prompts file: %w", err)
	}

	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse prompts file: %w", err)
	}
	return p, nil
}

func (p *Prompts) RenderScript(params ScriptParams) (string, error) {
	if params.Genre == "factreveal" {
		return render(p.Script.FactReveal, params)
	}
	return render(p.Script.Topic, params)
}

func render(tmpl string, data any) (string, error) {
	t, err := template.New("prompt").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}
