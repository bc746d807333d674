package server

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/iwvelando/cashflow-planner/pkg/constants"
)

// Options defines runtime parameters for the HTTP handler.
type Options struct {
	RateLimit   int    // requests per minute per client IP
	MaxBodySize string // human-friendly, e.g. "256K"
	Version     string
}

// bodyLimit returns the request body cap in bytes.
func (o Options) bodyLimit() (int64, error) {
	size, err := ParseSize(o.MaxBodySize)
	if err != nil {
		return 0, err
	}
	if size <= 0 {
		size = constants.DefaultMaxBodyBytes
	}
	return size, nil
}

func (o Options) normalize() (Options, int64, error) {
	if o.RateLimit <= 0 {
		o.RateLimit = constants.DefaultRateLimit
	}
	o.Version = strings.TrimSpace(o.Version)
	if o.Version == "" {
		o.Version = "dev"
	}
	limit, err := o.bodyLimit()
	if err != nil {
		return o, 0, err
	}
	return o, limit, nil
}

// ParseSize converts a human-friendly byte string (e.g., "256K", "10M") into bytes.
func ParseSize(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return constants.DefaultMaxBodyBytes, nil
	}

	upper := strings.ToUpper(trimmed)
	idx := len(upper)
	for idx > 0 && !unicode.IsDigit(rune(upper[idx-1])) {
		idx--
	}
	if idx == 0 {
		return 0, fmt.Errorf("invalid size: %s", value)
	}
	numPart := strings.TrimSpace(upper[:idx])
	unitPart := strings.TrimSpace(upper[idx:])

	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", value, err)
	}

	var multiplier int64
	switch unitPart {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	default:
		return 0, fmt.Errorf("unsupported size unit %q", unitPart)
	}

	result := n * multiplier
	if result < 0 {
		return 0, fmt.Errorf("size overflow for value %s", value)
	}
	return result, nil
}
