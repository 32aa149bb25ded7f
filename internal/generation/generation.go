// Package generation talks to the external image providers and exposes the video capability.
package generation

import (
	"errors"
	"strings"
)

var (
	// ErrEmptyResult is returned when a provider answers without a usable payload.
	ErrEmptyResult = errors.New("provider returned no usable result")
	// ErrResultTooLarge is returned when a downloaded result exceeds the configured size cap.
	ErrResultTooLarge = errors.New("provider result too large")
	// ErrVideoUnavailable is returned by video generators that have no backing provider.
	ErrVideoUnavailable = errors.New("video generation is not available: no video provider is configured")
)

type ImageRequest struct {
	Prompt        string
	Size          string
	Quality       string
	ReferenceURLs []string
}

type Image struct {
	Data        []byte
	ContentType string
}

type VideoRequest struct {
	Prompt      string
	ImageURL    string
	AspectRatio string
	Seconds     int
}

type Video struct {
	Data        []byte
	ContentType string
}

func truncateBody(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
