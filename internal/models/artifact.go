package models

import (
	"fmt"
	"strings"
	"time"
)

// WatermarkStatus is the payment/approval state read from the backend record.
// The exporter only ever reads it. Anything other than exactly "removed"
// keeps the watermark (fail-safe default).
type WatermarkStatus string

const (
	WatermarkNone    WatermarkStatus = "none"
	WatermarkPending WatermarkStatus = "pending"
	WatermarkRemoved WatermarkStatus = "removed"
)

// ShowWatermark reports whether the watermark layer must be drawn.
func (s WatermarkStatus) ShowWatermark() bool {
	return s != WatermarkRemoved
}

// ExportArtifact is the final output of one export invocation. It is produced
// exactly once per export; ownership transfers to the delivery strategy,
// which releases the file after handoff.
type ExportArtifact struct {
	Path              string
	MIMEType          string
	SuggestedFilename string
	Width             int
	Height            int
	Orientation       Orientation
	Duration          time.Duration // zero for stills and documents
}

// ArtifactFilename builds the output name:
// {appName}-{campaignTitle-with-dashes}-{tier}[-{orientation}]-{unixMillis}.{ext}
// The orientation label is included whenever orientationLabel is non-empty.
func ArtifactFilename(appName, campaignTitle string, tier QualityTier, orientationLabel, ext string) string {
	title := strings.ReplaceAll(strings.TrimSpace(campaignTitle), " ", "-")
	parts := []string{appName, title, string(tier)}
	if orientationLabel != "" {
		parts = append(parts, orientationLabel)
	}
	parts = append(parts, fmt.Sprintf("%d", time.Now().UnixMilli()))
	return strings.Join(parts, "-") + "." + strings.TrimPrefix(ext, ".")
}
