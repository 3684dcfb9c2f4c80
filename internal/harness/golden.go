package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ssmgen/internal/canon"
)

// AssertGolden compares the canonical JSON of v against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/... -update
func AssertGolden(t *testing.T, name string, v any) error {
	t.Helper()

	data, err := canon.MarshalCanonical(v)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
