package frame

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"strconv"

	xdraw "golang.org/x/image/draw"
)

// Extractor pulls single still frames out of a video file by shelling out to
// ffmpeg, then downsamples and encodes them as self-contained JPEG data URIs.
// Extraction is a pure function of (path, offset), so the same inputs always
// produce byte-identical output.
type Extractor struct {
	ffmpegPath string
	maxWidth   int
	quality    int
}

// NewExtractor builds an Extractor. ffmpegPath defaults to "ffmpeg" on PATH;
// maxWidth and quality default to 400px and JPEG quality 85.
func NewExtractor(ffmpegPath string, maxWidth, quality int) *Extractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if maxWidth <= 0 {
		maxWidth = 400
	}
	if quality <= 0 {
		quality = 85
	}
	return &Extractor{ffmpegPath: ffmpegPath, maxWidth: maxWidth, quality: quality}
}

// Snapshot decodes the frame nearest to the given offset and returns it as a
// "data:image/jpeg;base64," URI, downsampled so width does not exceed the
// configured maximum. An unopenable video or an offset past the end of the
// stream yields an error; callers decide whether that is fatal.
func (e *Extractor) Snapshot(ctx context.Context, videoPath string, seconds int) (string, error) {
	img, err := e.extract(ctx, videoPath, seconds)
	if err != nil {
		return "", err
	}
	return EncodeDataURI(img, e.maxWidth, e.quality)
}

func (e *Extractor) extract(ctx context.Context, videoPath string, seconds int) (image.Image, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return nil, fmt.Errorf("frame: video not readable: %w", err)
	}

	cmd := exec.CommandContext(
		ctx,
		e.ffmpegPath,
		"-ss", strconv.Itoa(seconds),
		"-i", videoPath,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "2",
		"-",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("frame: ffmpeg failed: %w: %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		// ffmpeg exits zero with empty output when the seek lands past the
		// end of the stream.
		return nil, errors.New("frame: no frame decoded at offset")
	}

	img, err := jpeg.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("frame: decode frame: %w", err)
	}
	return img, nil
}

// EncodeDataURI downsamples img so its width does not exceed maxWidth
// (preserving aspect ratio; smaller frames are never upscaled) and encodes it
// as a JPEG data URI at the given quality.
func EncodeDataURI(img image.Image, maxWidth, quality int) (string, error) {
	img = Downsample(img, maxWidth)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return "", fmt.Errorf("frame: encode jpeg: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Downsample scales img down to at most maxWidth pixels wide, preserving
// aspect ratio. Images already narrow enough are returned unchanged.
func Downsample(img image.Image, maxWidth int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	if maxWidth <= 0 || width <= maxWidth {
		return img
	}

	height := bounds.Dy() * maxWidth / width
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
	return dst
}
