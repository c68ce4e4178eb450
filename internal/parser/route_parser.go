package parser

import (
	"fmt"
	"io"
	"os"

	"github.com/speedwall-planner/backend/internal/models"
)

// ParseRouteSet parses a route library file, picking the codec by extension.
func ParseRouteSet(filePath string) (models.RouteSet, error) {
	codec, err := globalRegistry.FindCodec(filePath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseRouteSetFromReader(file, codec)
}

// ParseRouteSetFromReader parses a route set (route name -> route) from r.
func ParseRouteSetFromReader(r io.Reader, codec Codec) (models.RouteSet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var routes models.RouteSet
	if err := codec.Decode(data, &routes); err != nil {
		return nil, fmt.Errorf("decoding %s route set: %w", codec.Name(), err)
	}
	if routes == nil {
		routes = models.RouteSet{}
	}
	return routes, nil
}
