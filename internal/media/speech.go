package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/vbonduro/nutriscan/internal/domain"
)

const opSpeech = "gemini speech"

// DefaultSampleRate is the rate of the TTS model's raw PCM output.
const DefaultSampleRate = 24000

// Audio is decoded narration. Samples are in [-1, 1), channel-interleaved.
type Audio struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Duration in seconds.
func (a *Audio) Duration() float64 {
	if a.SampleRate == 0 || a.Channels == 0 {
		return 0
	}
	return float64(len(a.Samples)) / float64(a.Channels) / float64(a.SampleRate)
}

// AudioDecoder turns provider audio bytes into playable samples.
type AudioDecoder interface {
	Decode(data []byte, mimeType string) (*Audio, error)
}

// PCM16Decoder decodes headerless 16-bit little-endian PCM. The sample rate
// is read from a "rate=" MIME parameter when present.
type PCM16Decoder struct {
	Channels int
}

func (d PCM16Decoder) Decode(data []byte, mimeType string) (*Audio, error) {
	channels := d.Channels
	if channels <= 0 {
		channels = 1
	}
	if len(data)%2 != 0 {
		return nil, errors.New("pcm16: odd byte count")
	}
	samples := make([]float32, len(data)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(data[2*i:]))) / 32768.0
	}
	return &Audio{Samples: samples, SampleRate: sampleRate(mimeType), Channels: channels}, nil
}

// sampleRate parses e.g. "audio/L16;codec=pcm;rate=24000".
func sampleRate(mimeType string) int {
	for _, param := range strings.Split(mimeType, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
		if ok && strings.EqualFold(k, "rate") {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				return n
			}
		}
	}
	return DefaultSampleRate
}

// Speech narrates text with the configured voice.
func (c *Client) Speech(ctx context.Context, text string) (*Audio, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewValidationError("Nothing to read aloud.")
	}

	sc := &speechConfig{}
	sc.VoiceConfig.PrebuiltVoiceConfig.VoiceName = c.cfg.Voice
	resp, err := c.generateContent(ctx, opSpeech, c.cfg.SpeechModel, generateRequest{
		Contents: []content{{Parts: []part{{Text: text}}}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig:       sc,
		},
	})
	if err != nil {
		return nil, err
	}

	inline, ok := resp.firstInline()
	if !ok {
		return nil, &domain.RemoteError{Op: opSpeech, Err: ErrNoAudio}
	}
	raw, err := base64.StdEncoding.DecodeString(inline.Data)
	if err != nil {
		return nil, &domain.RemoteError{Op: opSpeech, Err: fmt.Errorf("decode audio payload: %w", err)}
	}
	audio, err := c.decoder.Decode(raw, inline.MIMEType)
	if err != nil {
		return nil, &domain.RemoteError{Op: opSpeech, Err: err}
	}
	c.logger.Debug("speech generated", "seconds", audio.Duration(), "rate", audio.SampleRate)
	return audio, nil
}

// EncodeWAV writes a as a 16-bit PCM WAV file.
func EncodeWAV(w io.Writer, a *Audio) error {
	const bitsPerSample = 16
	channels := a.Channels
	if channels <= 0 {
		channels = 1
	}
	dataLen := uint32(len(a.Samples) * 2)
	blockAlign := uint16(channels * bitsPerSample / 8)
	byteRate := uint32(a.SampleRate) * uint32(blockAlign)

	var buf bytes.Buffer
	buf.Grow(44 + int(dataLen))
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(a.SampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, byteRate)
	_ = binary.Write(&buf, binary.LittleEndian, blockAlign)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, dataLen)
	for _, s := range a.Samples {
		v := math.Round(float64(s) * 32768)
		v = math.Max(math.MinInt16, math.Min(math.MaxInt16, v))
		_ = binary.Write(&buf, binary.LittleEndian, int16(v))
	}

	_, err := w.Write(buf.Bytes())
	return err
}
