package audio

import (
	"context"
	"fmt"
	"os"

	"github.com/faiface/beep/mp3"
)

// Cue plays a short mp3 signalling that the microphone is open.
type Cue struct {
	Path    string
	Speaker *Speaker
}

func (c Cue) Play(ctx context.Context) error {
	f, err := os.Open(c.Path)
	if err != nil {
		return fmt.Errorf("open cue: %w", err)
	}

	st, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode cue: %w", err)
	}
	defer st.Close()

	return c.Speaker.Play(ctx, st, format)
}
