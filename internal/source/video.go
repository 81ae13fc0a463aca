package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Video reads frames from a video file through the ffmpeg command line tools.
type Video struct {
	path   string
	frames int
	bounds image.Rectangle
}

// OpenVideo probes path with ffprobe for its frame count and size.
func OpenVideo(ctx context.Context, path string) (*Video, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%s: %w", path, ErrSourceNotFound)
	}

	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-count_packets",
		"-show_entries", "stream=width,height,nb_read_packets",
		"-of", "default=noprint_wrappers=1",
		path,
	}
	out, err := exec.CommandContext(ctx, "ffprobe", args...).Output()
	if err != nil {
		return nil, fmt.Errorf("failed to probe %s: %w", path, err)
	}

	fields := parseProbe(out)
	width, _ := strconv.Atoi(fields["width"])
	height, _ := strconv.Atoi(fields["height"])
	frames, _ := strconv.Atoi(fields["nb_read_packets"])
	if frames <= 0 || width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%s: no video stream: %w", path, ErrSourceNotFound)
	}

	return &Video{
		path:   path,
		frames: frames,
		bounds: image.Rect(0, 0, width, height),
	}, nil
}

func parseProbe(out []byte) map[string]string {
	fields := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if ok {
			fields[key] = value
		}
	}
	return fields
}

// Len implements Source.
func (v *Video) Len() int { return v.frames }

// Bounds implements Source.
func (v *Video) Bounds() image.Rectangle { return v.bounds }

// Path implements Source.
func (v *Video) Path() string { return v.path }

func (v *Video) buildFFmpegArgs(i int) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", v.path,
		"-vf", fmt.Sprintf(`select=eq(n\,%d)`, i-1),
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"pipe:1",
	}
}

// Read implements Source. Each call runs one ffmpeg process that decodes up
// to frame i and writes it as PNG.
func (v *Video) Read(ctx context.Context, i int) (image.Image, error) {
	if i < 1 || i > v.frames {
		return nil, fmt.Errorf("frame %d of %d: %w", i, v.frames, ErrFrameRead)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "ffmpeg", v.buildFFmpegArgs(i)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("frame %d: %w: %v: %s", i, ErrFrameRead, err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("frame %d: %w: ffmpeg produced no image", i, ErrFrameRead)
	}

	img, err := png.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("frame %d: %w: %v", i, ErrFrameRead, err)
	}
	return img, nil
}
