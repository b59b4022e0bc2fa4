package video

import (
	"bytes"
	"image"
	"slices"
	"strings"
	"testing"
)

func TestEncodeArgs(t *testing.T) {
	args := encodeArgs("out.mp4", StreamParams{Width: 720, Height: 1280, FPS: 30, Encoder: "libx264", Quality: 20})
	joined := strings.Join(args, " ")

	for _, want := range []string{"-video_size 720x1280", "-framerate 30", "-c:v libx264", "-crf 20", "-i -"} {
		if !strings.Contains(joined, want) {
			t.Errorf("Expected %q in %s", want, joined)
		}
	}
	if args[len(args)-1] != "out.mp4" {
		t.Errorf("Expected output last, got %v", args)
	}
}

func TestQualityArgs(t *testing.T) {
	tests := []struct {
		encoder string
		quality int
		want    []string
	}{
		{"h264_videotoolbox", 80, []string{"-b:v", "8000k"}},
		{"h264_videotoolbox", 0, []string{"-b:v", "7500k"}},
		{"h264_nvenc", 19, []string{"-cq", "19"}},
		{"libx264", 0, []string{"-crf", "23", "-preset", "medium"}},
	}
	for _, tt := range tests {
		if got := qualityArgs(tt.encoder, tt.quality); !slices.Equal(got, tt.want) {
			t.Errorf("qualityArgs(%s, %d): expected %v, got %v", tt.encoder, tt.quality, tt.want, got)
		}
	}
}

func TestAudioGraph(t *testing.T) {
	graph := audioGraph([]AudioInput{
		{Path: "voice.mp3", Offset: 0, SourceOffset: 10, Duration: 4, Volume: 0.8},
		{Path: "music.mp3", Offset: 4.5, Duration: 2, Volume: 1},
	})

	want := "[1:a]atrim=start=10.000:duration=4.000,asetpts=PTS-STARTPTS,volume=0.8,adelay=delays=0:all=1[a0];" +
		"[2:a]atrim=start=0.000:duration=2.000,asetpts=PTS-STARTPTS,volume=1,adelay=delays=4500:all=1[a1];" +
		"[a0][a1]amix=inputs=2:duration=longest:normalize=0[aout]"
	if graph != want {
		t.Errorf("Unexpected graph:\n got: %s\nwant: %s", graph, want)
	}
}

func TestMuxArgs(t *testing.T) {
	args := muxArgs("silent.mp4", "final.mp4", []AudioInput{{Path: "a.mp3", Duration: 1, Volume: 1}}, 6)
	if i := slices.Index(args, "-t"); i < 0 || args[i+1] != "6.000" {
		t.Errorf("Expected -t 6.000 in %v", args)
	}
	if slices.Index(args, "silent.mp4") >= slices.Index(args, "a.mp3") {
		t.Errorf("Video input must come first: %v", args)
	}
}

func TestWriteRawRGBA(t *testing.T) {
	img := image.NewRGBA(image.Rect(5, 5, 7, 6))
	img.Pix[0] = 9

	var buf bytes.Buffer
	if err := writeRawRGBA(&buf, img); err != nil {
		t.Fatalf("writeRawRGBA failed: %v", err)
	}
	if buf.Len() != 2*1*4 || buf.Bytes()[0] != 9 {
		t.Errorf("Unexpected raw output: %v", buf.Bytes())
	}

	sub := image.NewRGBA(image.Rect(0, 0, 4, 4)).SubImage(image.Rect(1, 1, 3, 2))
	buf.Reset()
	if err := writeRawRGBA(&buf, sub); err != nil {
		t.Fatalf("writeRawRGBA failed: %v", err)
	}
	if buf.Len() != 2*1*4 {
		t.Errorf("Expected 8 bytes for a 2x1 sub-image, got %d", buf.Len())
	}
}
