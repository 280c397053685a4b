package artifact

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"strings"

	"designforge/internal/types"
)

const PitchAudioPath = "audio/pitch.wav"

// ImagePath names the blob of the n-th (1-based) diagram image.
func ImagePath(n int, diagramType types.DiagramType, ext string) string {
	kind := strings.TrimSpace(string(diagramType))
	if kind == "" {
		kind = "diagram"
	}
	return fmt.Sprintf("images/%d-%s.%s", n, kind, ext)
}

// PublishAssets copies every inline data URL of packet into store and returns
// the paths written. Images that fail to decode are skipped and reported in
// the joined error; the remaining assets are still written.
func PublishAssets(ctx context.Context, store Store, recordID string, packet *types.DesignPacket) ([]string, error) {
	if store == nil || packet == nil {
		return nil, nil
	}
	var (
		written []string
		errs    []error
	)
	for i, img := range packet.Images {
		mimeType, data, err := DecodeDataURL(img.DataURL)
		if err != nil {
			errs = append(errs, fmt.Errorf("image %d: %w", i+1, err))
			continue
		}
		p := ImagePath(i+1, img.DiagramType, extension(mimeType))
		if err := store.Put(ctx, recordID, p, data); err != nil {
			errs = append(errs, fmt.Errorf("image %d: %w", i+1, err))
			continue
		}
		written = append(written, p)
	}
	if strings.HasPrefix(packet.AudioURL, "data:") {
		_, data, err := DecodeDataURL(packet.AudioURL)
		if err == nil {
			err = store.Put(ctx, recordID, PitchAudioPath, data)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("audio: %w", err))
		} else {
			written = append(written, PitchAudioPath)
		}
	}
	return written, errors.Join(errs...)
}

// DecodeDataURL parses "data:<mime>[;params][;base64],<payload>".
func DecodeDataURL(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data url")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data url has no payload")
	}
	isBase64 := false
	if m, found := strings.CutSuffix(meta, ";base64"); found {
		meta, isBase64 = m, true
	}
	mimeType := "text/plain"
	if meta != "" {
		mt, _, err := mime.ParseMediaType(meta)
		if err != nil {
			return "", nil, fmt.Errorf("data url media type: %w", err)
		}
		mimeType = mt
	}
	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", nil, fmt.Errorf("data url payload: %w", err)
		}
		return mimeType, data, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("data url payload: %w", err)
	}
	return mimeType, []byte(text), nil
}

func extension(mimeType string) string {
	switch mimeType {
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "wav"
	default:
		return "bin"
	}
}
