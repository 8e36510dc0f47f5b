package geocoding

import (
	"context"

	"github.com/UnknownOlympus/borocut/internal/models"
)

// Provider is an interface that defines a method for resolving a place name.
// The Resolve method takes a context and a free-form query such as
// "Manhattan, New York, USA" and returns the matching place, including its
// bounding box and, when the provider knows it, the OpenStreetMap element.
type Provider interface {
	Resolve(ctx context.Context, query string) (*models.Place, error)
}
