package youtube

import (
	"errors"
	"fmt"
)

// DefaultBaseURL is the static thumbnail origin.
const DefaultBaseURL = "https://img.youtube.com"

// ErrUnknownTier is returned by ParseTier for names outside the tier table.
var ErrUnknownTier = errors.New("youtube: unknown thumbnail tier")

// Tier is a thumbnail quality class.
type Tier string

const (
	TierMaxRes Tier = "maxres"
	TierSD     Tier = "sd"
	TierHQ     Tier = "hq"
	TierMQ     Tier = "mq"
)

// TierInfo is the static description of a tier.
type TierInfo struct {
	Tier       Tier
	FileName   string
	Label      string
	Resolution string
}

var tierTable = []TierInfo{
	{Tier: TierMaxRes, FileName: "maxresdefault", Label: "Max resolution", Resolution: "1280x720"},
	{Tier: TierSD, FileName: "sddefault", Label: "Standard", Resolution: "640x480"},
	{Tier: TierHQ, FileName: "hqdefault", Label: "High", Resolution: "480x360"},
	{Tier: TierMQ, FileName: "mqdefault", Label: "Medium", Resolution: "320x180"},
}

// Tiers returns the tier table in display order.
func Tiers() []TierInfo {
	out := make([]TierInfo, len(tierTable))
	copy(out, tierTable)
	return out
}

// ParseTier validates a tier name.
func ParseTier(s string) (Tier, error) {
	for _, info := range tierTable {
		if string(info.Tier) == s {
			return info.Tier, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTier, s)
}

// Info returns the table entry for t. Unknown tiers yield a zero TierInfo.
func (t Tier) Info() TierInfo {
	for _, info := range tierTable {
		if info.Tier == t {
			return info
		}
	}
	return TierInfo{}
}

// FileName is the image name without extension, e.g. "hqdefault".
func (t Tier) FileName() string { return t.Info().FileName }

// Resolver builds thumbnail URLs against a base origin.
type Resolver struct {
	baseURL string
}

// NewResolver returns a Resolver for baseURL, or the public origin when empty.
func NewResolver(baseURL string) *Resolver {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Resolver{baseURL: baseURL}
}

// Resolve returns {base}/vi/{id}/{file}.jpg. The identifier is not checked.
func (r *Resolver) Resolve(id VideoID, tier Tier) string {
	return fmt.Sprintf("%s/vi/%s/%s.jpg", r.baseURL, id, tier.FileName())
}

// ResolveAll returns the URL for every tier in table order.
func (r *Resolver) ResolveAll(id VideoID) []string {
	urls := make([]string, 0, len(tierTable))
	for _, info := range tierTable {
		urls = append(urls, r.Resolve(id, info.Tier))
	}
	return urls
}

// Resolve uses the public origin.
func Resolve(id VideoID, tier Tier) string {
	return NewResolver(DefaultBaseURL).Resolve(id, tier)
}
