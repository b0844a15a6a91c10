package fetcher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"engagement_tracker/internal/domain"
)

// mediaResponse is the upstream envelope. Data is decoded into exactly one
// payload variant selected by Platform.
type mediaResponse struct {
	Platform string          `json:"platform"`
	Data     json.RawMessage `json:"data"`
}

type payload interface {
	counters() domain.RawCounters
}

type TikTokPayload struct {
	PlayCount    flexNumber `json:"playCount"`
	DiggCount    flexNumber `json:"diggCount"`
	CommentCount flexNumber `json:"commentCount"`
	ShareCount   flexNumber `json:"shareCount"`
}

func (p TikTokPayload) counters() domain.RawCounters {
	return domain.RawCounters{
		Views:    float64(p.PlayCount),
		Likes:    float64(p.DiggCount),
		Comments: float64(p.CommentCount),
		Shares:   float64(p.ShareCount),
	}
}

// InstagramPayload reports reels plays in play_count and legacy video views
// in video_view_count.
type InstagramPayload struct {
	PlayCount      flexNumber `json:"play_count"`
	VideoViewCount flexNumber `json:"video_view_count"`
	LikeCount      flexNumber `json:"like_count"`
	CommentCount   flexNumber `json:"comment_count"`
}

func (p InstagramPayload) counters() domain.RawCounters {
	views := float64(p.PlayCount)
	if views == 0 {
		views = float64(p.VideoViewCount)
	}
	return domain.RawCounters{
		Views:    views,
		Likes:    float64(p.LikeCount),
		Comments: float64(p.CommentCount),
	}
}

// YouTubePayload mirrors the Data API statistics object, whose counts are
// strings.
type YouTubePayload struct {
	ViewCount    flexNumber `json:"viewCount"`
	LikeCount    flexNumber `json:"likeCount"`
	CommentCount flexNumber `json:"commentCount"`
}

func (p YouTubePayload) counters() domain.RawCounters {
	return domain.RawCounters{
		Views:    float64(p.ViewCount),
		Likes:    float64(p.LikeCount),
		Comments: float64(p.CommentCount),
	}
}

func decodePayload(platform domain.Platform, data json.RawMessage) (payload, error) {
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("missing data")
	}

	var p payload
	switch platform {
	case domain.PlatformTikTok:
		var v TikTokPayload
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		p = v
	case domain.PlatformInstagram:
		var v InstagramPayload
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		p = v
	case domain.PlatformYouTube:
		var v YouTubePayload
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		p = v
	default:
		return nil, fmt.Errorf("unknown platform %q", platform)
	}
	return p, nil
}

// flexNumber accepts a JSON number or a numeric string. Null decodes to 0 and
// an unparseable string decodes to NaN so the sanitizer reports it.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*n = flexNumber(math.NaN())
			return nil
		}
		*n = flexNumber(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = flexNumber(f)
	return nil
}
