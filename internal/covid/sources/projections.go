package sources

import (
	"context"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sony/gobreaker"

	"github.com/i474232898/covid-dashboard/internal/covid"
)

// ProjectionArchiveSource implements covid.ProjectionSource for a ZIP
// archive served at a fixed URL.
type ProjectionArchiveSource struct {
	url     string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewProjectionArchiveSource creates the source. Pass a config without a
// Cache to fetch the archive fresh on every call.
func NewProjectionArchiveSource(cfg HTTPClientConfig, url string) *ProjectionArchiveSource {
	return &ProjectionArchiveSource{
		url:     url,
		httpCfg: cfg,
		circuit: newBreaker("projections"),
	}
}

// FetchProjectionArchive downloads the archive and checks it is a ZIP.
func (s *ProjectionArchiveSource) FetchProjectionArchive(ctx context.Context) ([]byte, error) {
	body, err := getBody(ctx, s.httpCfg, s.circuit, s.url, nil)
	if err != nil {
		return nil, err
	}
	if mt := mimetype.Detect(body); !mt.Is("application/zip") {
		return nil, covid.ErrMalformedResponse.Here().Appendf("projection archive is %s", mt.String())
	}
	return body, nil
}
