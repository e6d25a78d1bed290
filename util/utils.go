package util

import (
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/bwise1/geoplaylists/internal/geo"
	"github.com/twpayne/go-polyline"
)

var RgxEmail = regexp.MustCompile("^[a-zA-Z0-9.!#$%&'*+/=?^_`{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$")

// maxBatchSamples bounds one polyline batch.
const maxBatchSamples = 500

func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}

func IsEmail(value string) bool {
	if len(value) > 254 {
		return false
	}

	return RgxEmail.MatchString(value)
}

// NormalizeEmail trims and lowercases an address for lookups.
func NormalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// DecodePolyLines decodes a precision 1e5 polyline into coordinates, in order.
func DecodePolyLines(shape string) ([]geo.Coordinate, error) {
	decoded, rest, err := polyline.DecodeCoords([]byte(shape))
	if err != nil {
		log.Println("[Util]: error decoding polyline: ", err)
		return nil, fmt.Errorf("failed to decode polyline %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("failed to decode polyline: %d trailing bytes", len(rest))
	}
	if len(decoded) > maxBatchSamples {
		return nil, fmt.Errorf("polyline has %d points, at most %d allowed", len(decoded), maxBatchSamples)
	}

	coords := make([]geo.Coordinate, 0, len(decoded))
	for _, c := range decoded {
		coords = append(coords, geo.Coordinate{Latitude: c[0], Longitude: c[1]})
	}
	return coords, nil
}

// EncodePolyLines is the inverse of DecodePolyLines.
func EncodePolyLines(coords []geo.Coordinate) string {
	raw := make([][]float64, 0, len(coords))
	for _, c := range coords {
		raw = append(raw, []float64{c.Latitude, c.Longitude})
	}
	return string(polyline.EncodeCoords(raw))
}
