package ports

import (
	"context"
	"errors"
	"time"

	"github.com/forPelevin/vidsub/internal/types"
)

// ErrNoFrame is returned by a FrameSampler when the tool ran fine but produced
// no image, which happens for timestamps past the last decodable frame.
var ErrNoFrame = errors.New("no frame at timestamp")

type FrameSampler interface {
	ExtractFrame(ctx context.Context, video string, at time.Duration, outJPG string) error
	ProbeDuration(ctx context.Context, video string) (time.Duration, error)
}

type Recognizer interface {
	Recognize(ctx context.Context, imagePath, lang string) types.Recognition
}

type ModelStore interface {
	Ensure(ctx context.Context, lang string) (string, error)
}

type ProgressReporter interface {
	Report(fraction float64, status string)
}
