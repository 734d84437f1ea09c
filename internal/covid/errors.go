package covid

import (
	"net/http"

	"github.com/ansel1/merry"
)

var (
	// ErrUpstreamUnavailable is returned when a remote call fails or
	// answers with a non-success status.
	ErrUpstreamUnavailable = merry.New("upstream unavailable").WithHTTPCode(http.StatusBadGateway)
	// ErrMalformedResponse is returned when a body cannot be parsed.
	ErrMalformedResponse = merry.New("malformed response").WithHTTPCode(http.StatusBadGateway)

	// ErrUnknownState is returned for a code outside the 50 states and DC.
	ErrUnknownState = merry.New("unknown state").WithHTTPCode(http.StatusBadRequest)
	// ErrUnknownMetric is returned for a metric key with no label.
	ErrUnknownMetric = merry.New("unknown metric").WithHTTPCode(http.StatusBadRequest)
	// ErrInvalidArgument is returned for out-of-range query arguments.
	ErrInvalidArgument = merry.New("invalid argument").WithHTTPCode(http.StatusBadRequest)
	// ErrMissingPopulation is only ever logged.
	ErrMissingPopulation = merry.New("missing population entry")
	// ErrNoData is returned when a valid state has no rows in the table.
	ErrNoData = merry.New("no data").WithHTTPCode(http.StatusNotFound)
)
