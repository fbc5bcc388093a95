package driven

import (
	"context"

	"github.com/custodia-labs/docquery/internal/core/domain"
)

// DocumentParser converts raw PDF bytes into a structured document tree.
// Backed by a layout-parsing service such as docling-serve.
type DocumentParser interface {
	// Parse converts raw file bytes into an ordered sequence of typed
	// content items. A parse failure is fatal to the owning indexing job.
	Parse(ctx context.Context, data []byte, filename string) (*domain.ParsedDocument, error)

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error
}

// ImageCaptioner produces a text description for an image so it can be
// embedded and retrieved like prose.
//
// Caption failures are non-fatal: the indexing pipeline logs the gap and
// skips the image rather than aborting the job.
type ImageCaptioner interface {
	// Caption describes the image. pageContext carries nearby text to
	// ground the description.
	Caption(ctx context.Context, image []byte, pageContext string) (string, error)

	// ModelName returns the name of the vision model being used.
	ModelName() string
}
