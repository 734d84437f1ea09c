package covid

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/powerman/structlog"
)

var log = structlog.New(structlog.KeyUnit, "covid")

// Pipeline fetches, normalizes and derives one Table.
type Pipeline struct {
	source     Source
	population Population
	now        func() time.Time
}

// NewPipeline creates a Pipeline reading from source.
func NewPipeline(source Source, population Population) *Pipeline {
	return &Pipeline{
		source:     source,
		population: population,
		now:        time.Now,
	}
}

// Load runs one fetch+normalize+derive cycle. State records carry
// day-over-day deltas and per-10k rates; national records carry deltas.
func (p *Pipeline) Load(ctx context.Context) (*Table, error) {
	rawStates, err := p.source.FetchDailyStates(ctx)
	if err != nil {
		return nil, err
	}
	states, err := Normalize(rawStates)
	if err != nil {
		return nil, err
	}

	rawNational, err := p.source.FetchNationalDaily(ctx)
	if err != nil {
		return nil, err
	}
	national, err := Normalize(rawNational)
	if err != nil {
		return nil, err
	}

	states = WithDayOverDayDelta(states)
	states, missing := WithPerCapita(states, p.population, MetricPositivePer10k, MetricTestsPer10k)
	for _, s := range missing {
		log.Warn(ErrMissingPopulation, "state", s)
	}

	t := &Table{
		ID:        uuid.NewString(),
		FetchedAt: p.now().UTC(),
		States:    states,
		National:  WithDayOverDayDelta(national),
	}
	log.Debug("table loaded", "id", t.ID, "states", len(t.States), "national", len(t.National))
	return t, nil
}
