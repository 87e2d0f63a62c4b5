package transcode

import (
	"bytes"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/webp"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// maxPixels bounds the decoded size of a source image.
const maxPixels = 50_000_000

var encodeImage = encodeAll

// runWorker serves requests until the channel is closed. It keeps nothing
// between requests.
func runWorker(reqs <-chan request, profiles []Profile) {
	for req := range reqs {
		req.reply <- process(req, profiles)
	}
}

func process(req request, profiles []Profile) (resp response) {
	resp.ID = req.ID
	defer func() {
		if r := recover(); r != nil {
			resp = response{ID: req.ID, Error: fmt.Sprintf("worker panic: %v", r)}
		}
	}()

	variants, err := encodeImage(req.ImageData, profiles)
	if err != nil {
		resp.Error = fmt.Sprintf("%s: %v", req.FileName, err)
		return resp
	}
	resp.Success = true
	resp.Result = &workerResult{Variants: variants}
	return resp
}

func encodeAll(raw []byte, profiles []Profile) ([]encodedVariant, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty image")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxPixels {
		return nil, fmt.Errorf("image too large: %dx%d exceeds %d pixels", cfg.Width, cfg.Height, maxPixels)
	}

	src, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	out := make([]encodedVariant, 0, len(profiles))
	for _, p := range profiles {
		v, err := encodeVariant(src, p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.Tier, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func encodeVariant(src image.Image, p Profile) (encodedVariant, error) {
	b := src.Bounds()
	w, h := TargetSize(b.Dx(), b.Dy(), p.MaxEdge)
	if w == 0 || h == 0 {
		return encodedVariant{}, fmt.Errorf("invalid source size %dx%d", b.Dx(), b.Dy())
	}

	resized := imaging.Resize(src, w, h, imaging.Lanczos)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, resized, webp.Options{Quality: p.Quality}); err != nil {
		return encodedVariant{}, fmt.Errorf("encode webp: %w", err)
	}

	return encodedVariant{
		Blob:   buf.Bytes(),
		Type:   MimeWebP,
		Tier:   p.Tier,
		Width:  w,
		Height: h,
	}, nil
}
