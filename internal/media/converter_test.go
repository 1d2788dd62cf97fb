package media

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRun struct {
	calls  [][]string
	stdout []byte
	stderr string
	err    error
}

func (f *fakeRun) run(_ context.Context, _ string, args []string, _ []byte) ([]byte, string, error) {
	f.calls = append(f.calls, args)
	return f.stdout, f.stderr, f.err
}

func testConverter(run runner) *Converter {
	return &Converter{ffmpeg: "ffmpeg", run: run, logger: zap.NewNop()}
}

func TestDecodeProducesRecognitionPCM(t *testing.T) {
	t.Parallel()

	wav := makePCM16WAV(make([]int16, 16000*3), 16000, 1)
	fake := &fakeRun{stdout: wav}
	c := testConverter(fake.run)

	audio, err := c.Decode(context.Background(), []byte("OggS fake opus"))
	require.NoError(t, err)
	require.Equal(t, wav, audio.WAV)
	require.Equal(t, 16000, audio.Info.SampleRate)
	require.Equal(t, 1, audio.Info.Channels)
	require.Equal(t, 3*time.Second, audio.Info.Duration)

	require.Len(t, fake.calls, 1)
	args := fake.calls[0]
	require.Contains(t, args, "pcm_s16le")
	require.Contains(t, args, "16000")
	require.Contains(t, args, "pipe:0")
	require.Contains(t, args, "pipe:1")
}

func TestDecodeMapsParseFailureToUnsupportedFormat(t *testing.T) {
	t.Parallel()

	fake := &fakeRun{
		stderr: "pipe:0: Invalid data found when processing input\n",
		err:    errors.New("exit status 1"),
	}
	c := testConverter(fake.run)

	_, err := c.Decode(context.Background(), []byte("not audio at all"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecodeKeepsOtherFailuresDistinct(t *testing.T) {
	t.Parallel()

	fake := &fakeRun{stderr: "Conversion failed!\nsome transient problem", err: errors.New("exit status 1")}
	c := testConverter(fake.run)

	_, err := c.Decode(context.Background(), []byte("audio"))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecodeRejectsEmptyInput(t *testing.T) {
	t.Parallel()

	c := testConverter((&fakeRun{}).run)
	_, err := c.Decode(context.Background(), nil)
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestEncodeMP3InvokesLame(t *testing.T) {
	t.Parallel()

	fake := &fakeRun{stdout: []byte("ID3 fake mp3 bytes")}
	c := testConverter(fake.run)

	audio := Audio{WAV: makePCM16WAV(make([]int16, 100), 16000, 1)}
	out, err := c.Encode(context.Background(), audio, FormatMP3)
	require.NoError(t, err)
	require.Equal(t, []byte("ID3 fake mp3 bytes"), out)

	require.Len(t, fake.calls, 1)
	require.Contains(t, fake.calls[0], "libmp3lame")
}

func TestEncodeWAVIsPassthrough(t *testing.T) {
	t.Parallel()

	fake := &fakeRun{}
	c := testConverter(fake.run)

	wav := makePCM16WAV(make([]int16, 100), 16000, 1)
	out, err := c.Encode(context.Background(), Audio{WAV: wav}, FormatWAV)
	require.NoError(t, err)
	require.Equal(t, wav, out)
	require.Empty(t, fake.calls)
}

func TestEncodeRejectsUnknownTarget(t *testing.T) {
	t.Parallel()

	c := testConverter((&fakeRun{}).run)
	_, err := c.Encode(context.Background(), Audio{WAV: []byte("x")}, Format("flac"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}
