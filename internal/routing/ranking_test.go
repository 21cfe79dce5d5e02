package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "github.com/newbihanigroup-creator/khaacho-sub002/internal/common/errors"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/logger"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/models"
)

type fakeCandidateSource struct {
	candidates  []models.RankedVendor
	err         error
	gotMinScore float64
	gotTopN     int
	gotExclude  []string
}

func (f *fakeCandidateSource) EligibleCandidates(_ context.Context, _ string, _ int, minScore float64, topN int, exclude []string) ([]models.RankedVendor, error) {
	f.gotMinScore = minScore
	f.gotTopN = topN
	f.gotExclude = exclude
	if f.err != nil {
		return nil, f.err
	}
	var out []models.RankedVendor
	for _, c := range f.candidates {
		skip := false
		for _, ex := range exclude {
			if c.VendorID == ex {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, c)
		}
	}
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out, nil
}

func TestRankVendors_AppliesConfiguredDefaults(t *testing.T) {
	source := &fakeCandidateSource{candidates: []models.RankedVendor{
		{VendorID: "vendor-a", OverallScore: 92, UnitPrice: 10},
	}}
	r := NewRanker(source, RankerConfig{MinOverallScore: 60, TopN: 3}, logger.NewNoOpLogger())

	got, err := r.RankVendors(context.Background(), "prod-1", 2, RankOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 60.0, source.gotMinScore)
	assert.Equal(t, 3, source.gotTopN)
}

func TestRankVendors_OptionOverrides(t *testing.T) {
	source := &fakeCandidateSource{candidates: []models.RankedVendor{
		{VendorID: "vendor-a", OverallScore: 92},
		{VendorID: "vendor-b", OverallScore: 88},
	}}
	r := NewRanker(source, RankerConfig{MinOverallScore: 60, TopN: 3}, logger.NewNoOpLogger())

	got, err := r.RankVendors(context.Background(), "prod-1", 2, RankOptions{
		MinOverallScore: 80,
		TopN:            1,
		Exclude:         []string{"vendor-c"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "vendor-a", got[0].VendorID)
	assert.Equal(t, 80.0, source.gotMinScore)
	assert.Equal(t, []string{"vendor-c"}, source.gotExclude)
}

func TestRankVendors_ExclusionExhaustsCandidates(t *testing.T) {
	source := &fakeCandidateSource{candidates: []models.RankedVendor{
		{VendorID: "vendor-a", OverallScore: 92},
	}}
	r := NewRanker(source, RankerConfig{MinOverallScore: 60, TopN: 3}, logger.NewNoOpLogger())

	_, err := r.RankVendors(context.Background(), "prod-1", 2, RankOptions{Exclude: []string{"vendor-a"}})
	require.Error(t, err)
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeNoEligibleVendor, stdErr.Code)
	assert.Equal(t, "prod-1", stdErr.Metadata["productId"])
}

func TestRankVendors_Deterministic(t *testing.T) {
	source := &fakeCandidateSource{candidates: []models.RankedVendor{
		{VendorID: "vendor-a", OverallScore: 90, UnitPrice: 9},
		{VendorID: "vendor-b", OverallScore: 90, UnitPrice: 11},
		{VendorID: "vendor-c", OverallScore: 85, UnitPrice: 8},
	}}
	r := NewRanker(source, RankerConfig{MinOverallScore: 60, TopN: 3}, logger.NewNoOpLogger())

	first, err := r.RankVendors(context.Background(), "prod-1", 1, RankOptions{})
	require.NoError(t, err)
	second, err := r.RankVendors(context.Background(), "prod-1", 1, RankOptions{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
