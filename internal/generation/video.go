package generation

import "context"

// UnavailableVideo is the video capability used while no video provider is integrated.
// Every call fails with ErrVideoUnavailable.
type UnavailableVideo struct{}

func (UnavailableVideo) Available() bool { return false }

func (UnavailableVideo) GenerateVideo(ctx context.Context, req VideoRequest) (*Video, error) {
	return nil, ErrVideoUnavailable
}
