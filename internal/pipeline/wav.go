package pipeline

import (
	"bytes"
	"encoding/binary"
	"mime"
	"strconv"
	"strings"

	"designforge/internal/llm"
)

const defaultPCMRate = 24000

// playableAudio wraps raw 16-bit PCM from the speech model in a WAV
// container. Other formats are returned unchanged.
func playableAudio(in *llm.InlineData) *llm.InlineData {
	rate, ok := pcmRate(in.MIMEType)
	if !ok {
		return in
	}
	return &llm.InlineData{MIMEType: "audio/wav", Data: pcmToWAV(in.Data, rate, 1, 16)}
}

func pcmRate(mimeType string) (int, bool) {
	mediaType, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return 0, false
	}
	mediaType = strings.ToLower(mediaType)
	if mediaType != "audio/l16" && mediaType != "audio/pcm" && !strings.EqualFold(params["codec"], "pcm") {
		return 0, false
	}
	rate := defaultPCMRate
	if v, err := strconv.Atoi(params["rate"]); err == nil && v > 0 {
		rate = v
	}
	return rate, true
}

func pcmToWAV(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign

	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
