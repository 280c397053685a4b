package pipeline

import (
	"context"
	"encoding/binary"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"designforge/internal/llm"
	"designforge/internal/types"
)

func TestSettleKeepsSuccessesOnly(t *testing.T) {
	var mu sync.Mutex
	var failed []int
	out := Settle(context.Background(), []int{1, 2, 3, 4, 5}, func(_ context.Context, n int) (int, error) {
		switch n {
		case 2:
			return 0, errors.New("nope")
		case 4:
			panic("boom")
		}
		return n * 10, nil
	}, func(n int, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, n)
	})
	sort.Ints(out)
	if len(out) != 3 || out[0] != 10 || out[1] != 30 || out[2] != 50 {
		t.Fatalf("out = %v", out)
	}
	sort.Ints(failed)
	if len(failed) != 2 || failed[0] != 2 || failed[1] != 4 {
		t.Fatalf("failed = %v", failed)
	}
}

func TestSettleEmptyInput(t *testing.T) {
	out := Settle(context.Background(), nil, func(context.Context, string) (string, error) {
		t.Fatalf("fn must not run")
		return "", nil
	}, nil)
	if out == nil || len(out) != 0 {
		t.Fatalf("out = %#v", out)
	}
}

func TestDiagramStageSkipsUntitledAndMissingImages(t *testing.T) {
	fake := llm.NewFakeClient()
	fake.Image = func(_ context.Context, req llm.ImageRequest) (*llm.InlineData, error) {
		if strings.Contains(req.Prompt, "Empty response") {
			return nil, nil
		}
		if req.AspectRatio != "4:3" || req.Size != "2K" {
			t.Errorf("image request = %+v", req)
		}
		return &llm.InlineData{MIMEType: "image/jpeg", Data: []byte{0xff}}, nil
	}
	stage := &DiagramStage{LLM: fake, AspectRatio: "4:3", Size: "2K", Logger: quietLogger()}
	images := stage.Run(context.Background(), []types.DiagramRequest{
		{Type: types.DiagramTop, Title: "Top", Description: "from above"},
		{Type: types.DiagramSide, Title: "  ", Description: "ignored"},
		{Type: types.DiagramSection, Title: "Empty response"},
	})
	if len(images) != 1 || images[0].Title != "Top" || images[0].DiagramType != types.DiagramTop {
		t.Fatalf("images = %+v", images)
	}
	if fake.Calls(llm.PhaseDiagram) != 2 {
		t.Fatalf("image calls = %d, untitled entries must be skipped", fake.Calls(llm.PhaseDiagram))
	}
	if !strings.HasPrefix(images[0].DataURL, "data:image/jpeg;base64,") {
		t.Fatalf("data url = %q", images[0].DataURL)
	}
}

func TestDiagramPromptStyles(t *testing.T) {
	hw := DiagramPrompt(types.DiagramRequest{Type: types.DiagramExploded, Title: "Housing", Description: "all layers"})
	for _, want := range []string{hardwareStyle, "View: exploded view.", "Title: Housing.", "Subject: all layers", renderQuality} {
		if !strings.Contains(hw, want) {
			t.Fatalf("prompt missing %q:\n%s", want, hw)
		}
	}
	ui := DiagramPrompt(types.DiagramRequest{Type: types.DiagramUIScreen, Title: "Home"})
	if !strings.HasPrefix(ui, screenStyle) {
		t.Fatalf("ui prompt = %s", ui)
	}
}

func TestVideoPollerFinishesWithoutPolling(t *testing.T) {
	fake := llm.NewFakeClient()
	fake.Start = func(context.Context, llm.VideoRequest) (*llm.VideoOperation, error) {
		return &llm.VideoOperation{Name: "op", Done: true, URI: "https://v"}, nil
	}
	clock := &fakeClock{}
	p := &VideoPoller{LLM: fake, Clock: clock}
	op, err := p.Run(context.Background(), llm.VideoRequest{})
	if err != nil || op.URI != "https://v" {
		t.Fatalf("op=%+v err=%v", op, err)
	}
	if p.State() != VideoDone || clock.sleeps != 0 || p.Attempts() != 0 {
		t.Fatalf("state=%s sleeps=%d attempts=%d", p.State(), clock.sleeps, p.Attempts())
	}
}

func TestVideoPollerStates(t *testing.T) {
	cases := []struct {
		name  string
		start func(context.Context, llm.VideoRequest) (*llm.VideoOperation, error)
		poll  func(context.Context, *llm.VideoOperation) (*llm.VideoOperation, error)
		want  VideoState
		err   error
	}{
		{
			name: "start error",
			start: func(context.Context, llm.VideoRequest) (*llm.VideoOperation, error) {
				return nil, llm.ErrMissingCredential
			},
			want: VideoFailed,
			err:  llm.ErrMissingCredential,
		},
		{
			name: "operation error",
			poll: func(_ context.Context, op *llm.VideoOperation) (*llm.VideoOperation, error) {
				return &llm.VideoOperation{Name: op.Name, Done: true, Error: "blocked"}, nil
			},
			want: VideoFailed,
			err:  ErrVideoFailed,
		},
		{
			name: "done without uri",
			poll: func(_ context.Context, op *llm.VideoOperation) (*llm.VideoOperation, error) {
				return &llm.VideoOperation{Name: op.Name, Done: true}, nil
			},
			want: VideoFailed,
			err:  ErrVideoFailed,
		},
		{
			name: "never done",
			poll: func(_ context.Context, op *llm.VideoOperation) (*llm.VideoOperation, error) {
				return &llm.VideoOperation{Name: op.Name}, nil
			},
			want: VideoTimedOut,
			err:  ErrVideoTimeout,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := llm.NewFakeClient()
			fake.Start = tc.start
			fake.Poll = tc.poll
			p := &VideoPoller{LLM: fake, Clock: &fakeClock{}, MaxAttempts: 3}
			_, err := p.Run(context.Background(), llm.VideoRequest{})
			if !errors.Is(err, tc.err) {
				t.Fatalf("err = %v, want %v", err, tc.err)
			}
			if p.State() != tc.want {
				t.Fatalf("state = %s, want %s", p.State(), tc.want)
			}
			if p.Attempts() > 3 {
				t.Fatalf("attempts = %d exceeds budget", p.Attempts())
			}
		})
	}
}

func TestVideoPollerStopsOnCancel(t *testing.T) {
	fake := llm.NewFakeClient()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &VideoPoller{LLM: fake, Clock: &fakeClock{}}
	if _, err := p.Run(ctx, llm.VideoRequest{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if p.State() != VideoFailed {
		t.Fatalf("state = %s", p.State())
	}
}

func TestWithCredential(t *testing.T) {
	got, err := WithCredential("https://host/files/abc:download?alt=media", "s3cr3t")
	if err != nil {
		t.Fatalf("with credential: %v", err)
	}
	if got != "https://host/files/abc:download?alt=media&key=s3cr3t" {
		t.Fatalf("got %q", got)
	}
	same, _ := WithCredential("https://host/v.mp4", "")
	if same != "https://host/v.mp4" {
		t.Fatalf("empty key must not change uri: %q", same)
	}
}

func TestPlayableAudioWrapsPCM(t *testing.T) {
	pcm := make([]byte, 100)
	out := playableAudio(&llm.InlineData{MIMEType: "audio/L16;codec=pcm;rate=16000", Data: pcm})
	if out.MIMEType != "audio/wav" || len(out.Data) != 144 {
		t.Fatalf("mime=%s len=%d", out.MIMEType, len(out.Data))
	}
	if string(out.Data[:4]) != "RIFF" || string(out.Data[8:12]) != "WAVE" {
		t.Fatalf("missing RIFF header")
	}
	if rate := binary.LittleEndian.Uint32(out.Data[24:28]); rate != 16000 {
		t.Fatalf("rate = %d", rate)
	}

	mp3 := &llm.InlineData{MIMEType: "audio/mpeg", Data: []byte{1}}
	if playableAudio(mp3) != mp3 {
		t.Fatalf("non-PCM audio must pass through")
	}
}

func TestDiagramSummary(t *testing.T) {
	if DiagramSummary(nil) != noDiagramsProduced {
		t.Fatalf("empty summary")
	}
	got := DiagramSummary([]types.GeneratedImage{{DiagramType: types.DiagramTop, Title: "A"}, {DiagramType: types.DiagramSide, Title: "B"}})
	if got != "- top: A\n- side: B" {
		t.Fatalf("summary = %q", got)
	}
}

func TestCodeTargetByCategory(t *testing.T) {
	if !strings.Contains(codeTarget(types.ProductDigital), "UI") {
		t.Fatalf("digital products get UI code")
	}
	for _, pt := range []types.ProductType{types.ProductPhysical, types.ProductRobotic, types.ProductMechanical} {
		if !strings.Contains(codeTarget(pt), "firmware") {
			t.Fatalf("%s should get firmware", pt)
		}
	}
}
