package transcode

import "math"

const MimeWebP = "image/webp"

type Tier string

const (
	TierFull      Tier = "full"
	TierThumbnail Tier = "thumbnail"
)

// Profile is the size and quality target of one output tier.
type Profile struct {
	Tier    Tier
	MaxEdge int
	Quality int
}

var (
	FullProfile      = Profile{Tier: TierFull, MaxEdge: 192, Quality: 85}
	ThumbnailProfile = Profile{Tier: TierThumbnail, MaxEdge: 48, Quality: 60}
)

// Variant is one encoded output image.
type Variant struct {
	Data     []byte
	MimeType string
	Width    int
	Height   int
	Tier     Tier
}

// Result always carries both tiers.
type Result struct {
	Full      Variant
	Thumbnail Variant
}

// TargetSize scales (w, h) so that the longer edge equals maxEdge, keeping
// the aspect ratio. Images already within the limit keep their size.
func TargetSize(w, h, maxEdge int) (int, int) {
	if w <= 0 || h <= 0 || maxEdge <= 0 {
		return 0, 0
	}
	if w <= maxEdge && h <= maxEdge {
		return w, h
	}
	if w >= h {
		return maxEdge, scaled(h, maxEdge, w)
	}
	return scaled(w, maxEdge, h), maxEdge
}

func scaled(short, limit, long int) int {
	v := int(math.Round(float64(short) * float64(limit) / float64(long)))
	if v < 1 {
		return 1
	}
	return v
}
