package confluence

import (
	"net/url"
	"strconv"
	"time"
)

// Attachment is the subset of a Confluence attachment resource the source reads.
type Attachment struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Version struct {
		When   string `json:"when"`
		Number int    `json:"number"`
	} `json:"version"`
	Metadata struct {
		MediaType string `json:"mediaType"`
	} `json:"metadata"`
	Extensions struct {
		MediaType string `json:"mediaType"`
		FileSize  int64  `json:"fileSize"`
	} `json:"extensions"`
	Links struct {
		Download string `json:"download"`
	} `json:"_links"`
}

type attachmentList struct {
	Results []Attachment `json:"results"`
	Size    int          `json:"size"`
	Links   struct {
		Next string `json:"next"`
	} `json:"_links"`
}

// MediaType reports the attachment's declared content type, defaulting to JPEG.
func (a Attachment) MediaType() string {
	if a.Metadata.MediaType != "" {
		return a.Metadata.MediaType
	}
	if a.Extensions.MediaType != "" {
		return a.Extensions.MediaType
	}
	return "image/jpeg"
}

// ModifiedAt returns the attachment's modification time, preferring the
// version timestamp over the modificationDate parameter (epoch millis) of the
// download link.
func (a Attachment) ModifiedAt() (time.Time, bool) {
	if a.Version.When != "" {
		if t, err := time.Parse(time.RFC3339, a.Version.When); err == nil {
			return t, true
		}
	}

	u, err := url.Parse(a.Links.Download)
	if err != nil {
		return time.Time{}, false
	}
	raw := u.Query().Get("modificationDate")
	if raw == "" {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// SelectMostRecent picks the attachment with the greatest modification time.
// Attachments without a timestamp never beat one that has one; when none
// carries a timestamp the first listed wins. ok is false for an empty list.
func SelectMostRecent(atts []Attachment) (Attachment, bool) {
	if len(atts) == 0 {
		return Attachment{}, false
	}

	best := 0
	bestAt, bestOK := atts[0].ModifiedAt()
	for i := 1; i < len(atts); i++ {
		at, ok := atts[i].ModifiedAt()
		if !ok {
			continue
		}
		if !bestOK || at.After(bestAt) {
			best, bestAt, bestOK = i, at, true
		}
	}
	return atts[best], true
}
