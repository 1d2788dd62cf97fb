//go:build integration

package media

import (
	"context"
	"math"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Round-trip through real codecs: decode -> encode -> decode must preserve
// the clip duration within codec padding tolerance.
func TestDecodeEncodeDecodeKeepsDuration(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not available")
	}

	const seconds = 2
	samples := make([]int16, 16000*seconds)
	for i := range samples {
		samples[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	source := makePCM16WAV(samples, 16000, 1)

	converter, err := NewConverter(zap.NewNop())
	require.NoError(t, err)

	ctx := context.Background()

	decoded, err := converter.Decode(ctx, source)
	require.NoError(t, err)
	require.InDelta(t, float64(seconds*time.Second), float64(decoded.Info.Duration), float64(50*time.Millisecond))

	mp3, err := converter.Encode(ctx, decoded, FormatMP3)
	require.NoError(t, err)
	require.NotEmpty(t, mp3)

	redecoded, err := converter.Decode(ctx, mp3)
	require.NoError(t, err)
	require.InDelta(t, float64(decoded.Info.Duration), float64(redecoded.Info.Duration), float64(150*time.Millisecond))
}
