package artifact

import (
	"context"
	"encoding/base64"
	"errors"
	"reflect"
	"testing"

	"github.com/minio/minio-go/v7"

	"designforge/internal/types"
)

func TestMemoryStorePutGetList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Put(ctx, "100", "/images/1-top.png", []byte("png")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, "100", "audio/pitch.wav", []byte("wav")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, "200", "images/1-side.png", []byte("other")); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := s.Get(ctx, "100", "images/1-top.png")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "png" {
		t.Fatalf("get = %q", got)
	}
	got[0] = 'X'
	again, _ := s.Get(ctx, "100", "images/1-top.png")
	if string(again) != "png" {
		t.Fatalf("stored bytes were aliased: %q", again)
	}

	paths, err := s.List(ctx, "100")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"audio/pitch.wav", "images/1-top.png"}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("list = %v, want %v", paths, want)
	}

	if _, err := s.Get(ctx, "100", "missing.png"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing err = %v", err)
	}
	if u, err := s.GetURL(ctx, "100", "images/1-top.png"); err != nil || u != "" {
		t.Fatalf("GetURL = %q, %v", u, err)
	}
}

func TestObjectKeyRejectsBadInput(t *testing.T) {
	cases := [][2]string{
		{"", "a.png"},
		{"1", ""},
		{"1/2", "a.png"},
		{"1", "../escape.png"},
		{"1", "images/./a.png"},
	}
	for _, c := range cases {
		if _, err := objectKey(c[0], c[1]); err == nil {
			t.Fatalf("objectKey(%q, %q) should fail", c[0], c[1])
		}
	}
}

func TestDecodeDataURL(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G'}
	mt, data, err := DecodeDataURL("data:image/png;base64," + base64.StdEncoding.EncodeToString(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if mt != "image/png" || !reflect.DeepEqual(data, raw) {
		t.Fatalf("decode = %q %v", mt, data)
	}

	mt, data, err = DecodeDataURL("data:,hello%20world")
	if err != nil {
		t.Fatalf("decode plain: %v", err)
	}
	if mt != "text/plain" || string(data) != "hello world" {
		t.Fatalf("decode plain = %q %q", mt, data)
	}

	for _, bad := range []string{"https://x/y.png", "data:image/png;base64", "data:image/png;base64,%%%"} {
		if _, _, err := DecodeDataURL(bad); err == nil {
			t.Fatalf("DecodeDataURL(%q) should fail", bad)
		}
	}
}

func TestPublishAssetsWritesImagesAndAudio(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	b64 := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }
	packet := &types.DesignPacket{
		Images: []types.GeneratedImage{
			{DiagramType: types.DiagramTop, DataURL: "data:image/png;base64," + b64("top")},
			{DiagramType: types.DiagramExploded, DataURL: "not a data url"},
			{DiagramType: types.DiagramSide, DataURL: "data:image/jpeg;base64," + b64("side")},
		},
		AudioURL: "data:audio/wav;base64," + b64("RIFF"),
		VideoURL: "https://example.com/video.mp4",
	}

	paths, err := PublishAssets(ctx, s, "123", packet)
	if err == nil {
		t.Fatalf("expected error for the undecodable image")
	}
	want := []string{"images/1-top.png", "images/3-side.jpg", PitchAudioPath}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	got, err := s.Get(ctx, "123", "images/3-side.jpg")
	if err != nil || string(got) != "side" {
		t.Fatalf("side image = %q, %v", got, err)
	}
	audio, err := s.Get(ctx, "123", PitchAudioPath)
	if err != nil || string(audio) != "RIFF" {
		t.Fatalf("audio = %q, %v", audio, err)
	}
}

func TestPublishAssetsNothingToDo(t *testing.T) {
	paths, err := PublishAssets(context.Background(), NewMemoryStore(), "1", &types.DesignPacket{})
	if err != nil || len(paths) != 0 {
		t.Fatalf("PublishAssets = %v, %v", paths, err)
	}
	if paths, err := PublishAssets(context.Background(), nil, "1", &types.DesignPacket{}); err != nil || paths != nil {
		t.Fatalf("nil store = %v, %v", paths, err)
	}
}

func TestNewS3StoreValidatesConfig(t *testing.T) {
	if _, err := NewS3Store(S3Config{}); err == nil {
		t.Fatalf("expected endpoint error")
	}
	if _, err := NewS3Store(S3Config{Endpoint: "localhost:9000"}); err == nil {
		t.Fatalf("expected credentials error")
	}
	if _, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"}); err == nil {
		t.Fatalf("expected bucket error")
	}
	s, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "designs"})
	if err != nil {
		t.Fatalf("valid config: %v", err)
	}
	if s.region != "us-east-1" || s.urlExpiry <= 0 {
		t.Fatalf("defaults not applied: %+v", s)
	}
}

type flakyBuckets struct {
	existsErrs []error
	exists     bool
	checks     int
	made       int
}

func (f *flakyBuckets) BucketExists(context.Context, string) (bool, error) {
	f.checks++
	if len(f.existsErrs) > 0 {
		err := f.existsErrs[0]
		f.existsErrs = f.existsErrs[1:]
		return false, err
	}
	return f.exists, nil
}

func (f *flakyBuckets) MakeBucket(context.Context, string, minio.MakeBucketOptions) error {
	f.made++
	f.exists = true
	return nil
}

func TestS3EnsureBucketRetriesAfterFailure(t *testing.T) {
	fake := &flakyBuckets{existsErrs: []error{context.Canceled}}
	s := &S3Store{buckets: fake, bucketName: "designs", region: "us-east-1"}

	if err := s.ensureBucket(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("first ensureBucket err = %v", err)
	}
	if err := s.ensureBucket(context.Background()); err != nil {
		t.Fatalf("second ensureBucket: %v", err)
	}
	if fake.made != 1 {
		t.Fatalf("buckets made = %d, want 1", fake.made)
	}
	if err := s.ensureBucket(context.Background()); err != nil {
		t.Fatalf("third ensureBucket: %v", err)
	}
	if fake.checks != 2 {
		t.Fatalf("bucket checks = %d, want 2", fake.checks)
	}
}
