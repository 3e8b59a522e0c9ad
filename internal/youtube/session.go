package youtube

import "fmt"

// Save file name prefixes.
const (
	ThumbnailPrefix = "youtube_thumbnail"
	RemakePrefix    = "custom_thumbnail"
)

// Session is the video a user is currently working with. It is passed to
// download and remake operations explicitly instead of living in shared state.
type Session struct {
	VideoID  VideoID
	resolver *Resolver
}

// NewSession binds id to a resolver; a nil resolver uses the public origin.
func NewSession(id VideoID, resolver *Resolver) Session {
	if resolver == nil {
		resolver = NewResolver(DefaultBaseURL)
	}
	return Session{VideoID: id, resolver: resolver}
}

// ThumbnailURL resolves the image URL for tier.
func (s Session) ThumbnailURL(tier Tier) string {
	if s.resolver == nil {
		return Resolve(s.VideoID, tier)
	}
	return s.resolver.Resolve(s.VideoID, tier)
}

// ThumbnailFilename is youtube_thumbnail_{id}_{tier}.jpg.
func (s Session) ThumbnailFilename(tier Tier) string {
	return Filename(ThumbnailPrefix, s.VideoID, string(tier), "jpg")
}

// RemakeFilename is custom_thumbnail_{id}.png.
func (s Session) RemakeFilename() string {
	return Filename(RemakePrefix, s.VideoID, "", "png")
}

// Filename renders {prefix}_{id}_{suffix}.{ext}; an empty suffix is dropped.
func Filename(prefix string, id VideoID, suffix, ext string) string {
	if suffix == "" {
		return fmt.Sprintf("%s_%s.%s", prefix, id, ext)
	}
	return fmt.Sprintf("%s_%s_%s.%s", prefix, id, suffix, ext)
}
