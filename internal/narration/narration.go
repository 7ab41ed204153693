// Package narration turns scene narration text into speech audio.
package narration

import "context"

// Synthesizer converts text to speech and writes the audio to a file.
// Narration is a hard dependency of every video, so implementations
// return an error once their retry budget is spent.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, outputPath string) error
}
