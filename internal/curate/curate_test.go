// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package curate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/supplement-engine/pkg/types"
)

type mockSelector struct {
	mock.Mock
}

func (m *mockSelector) Select(ctx context.Context, req SelectionRequest) ([]Selection, error) {
	args := m.Called(ctx, req)
	sels, _ := args.Get(0).([]Selection)
	return sels, args.Error(1)
}

func intPtr(n int) *int { return &n }

func rawStudies() []types.StudyRecord {
	return []types.StudyRecord{
		{ID: "101", Title: "Creatine in older adults", Abstract: strings.Repeat("a", 3000), Year: 2020, Source: "pubmed"},
		{ID: "102", Title: "Creatine and sleep", Abstract: "Short abstract."},
		{ID: "103", Title: "Creatine in rodents", Abstract: "Mice."},
	}
}

func TestSelectEmptyInputSkipsSelector(t *testing.T) {
	sel := &mockSelector{}
	got := NewCurator(sel, Options{}).Select(context.Background(), nil, 40, "general")
	assert.Empty(t, got)
	sel.AssertNotCalled(t, "Select", mock.Anything, mock.Anything)
}

func TestSelectMergesOriginalData(t *testing.T) {
	sel := &mockSelector{}
	sel.On("Select", mock.Anything, mock.MatchedBy(func(req SelectionRequest) bool {
		return len(req.Candidates) == 3 &&
			len(req.Candidates[0].AbstractSnippet) == 2500 &&
			req.Candidates[1].AbstractSnippet == "Short abstract." &&
			req.Age == 70 && req.Goal == "strength" && req.Limit == 7
	})).Return([]Selection{
		{ID: "101", StudyType: types.StudyRCT, SampleSize: intPtr(45), Rationale: "Direct age match"},
		{ID: "999", StudyType: types.StudyRCT, Rationale: "hallucinated"},
		{ID: "102", StudyType: types.StudyObservational},
	}, nil)

	raw := rawStudies()
	got := NewCurator(sel, Options{}).Select(context.Background(), raw, 70, "strength")
	sel.AssertExpectations(t)

	require.Len(t, got, 2, "unknown id 999 is dropped")
	first := got[0]
	assert.Equal(t, "101", first.ID)
	assert.Equal(t, raw[0].Title, first.Title)
	assert.Len(t, first.Abstract, 3000, "full abstract is kept, not the truncated snippet")
	assert.Equal(t, 2020, first.Year)
	assert.Equal(t, types.StudyRCT, first.StudyType)
	require.NotNil(t, first.SampleSize)
	assert.Equal(t, 45, *first.SampleSize)
	assert.Equal(t, "Direct age match", first.Rationale)

	assert.Equal(t, "102", got[1].ID)
	assert.Nil(t, got[1].SampleSize)
}

func TestSelectEveryIDFromPool(t *testing.T) {
	sel := &mockSelector{}
	sel.On("Select", mock.Anything, mock.Anything).Return([]Selection{
		{ID: "x"}, {ID: "103"}, {ID: "y"},
	}, nil)

	raw := rawStudies()
	pool := map[string]bool{}
	for _, s := range raw {
		pool[s.ID] = true
	}
	for _, c := range NewCurator(sel, Options{}).Select(context.Background(), raw, 30, "") {
		assert.True(t, pool[c.ID], "curated id %s not in search results", c.ID)
	}
}

func TestSelectDefaultsGoal(t *testing.T) {
	sel := &mockSelector{}
	sel.On("Select", mock.Anything, mock.MatchedBy(func(req SelectionRequest) bool {
		return req.Goal == types.DefaultGoal
	})).Return([]Selection{}, nil)

	got := NewCurator(sel, Options{}).Select(context.Background(), rawStudies(), 30, "")
	assert.Empty(t, got)
	sel.AssertExpectations(t)
}

func TestSelectSelectorFailure(t *testing.T) {
	sel := &mockSelector{}
	sel.On("Select", mock.Anything, mock.Anything).Return(nil, errors.New("model timeout"))

	got := NewCurator(sel, Options{}).Select(context.Background(), rawStudies(), 30, "general")
	assert.Empty(t, got)
}

func TestSelectDropsRepeatsAndCaps(t *testing.T) {
	var raw []types.StudyRecord
	var sels []Selection
	for i := range 10 {
		id := fmt.Sprint(i)
		raw = append(raw, types.StudyRecord{ID: id, Title: "T" + id})
		sels = append(sels, Selection{ID: id, Rationale: "first"})
		if i == 0 {
			sels = append(sels, Selection{ID: id, Rationale: "repeat"})
		}
	}
	sel := &mockSelector{}
	sel.On("Select", mock.Anything, mock.Anything).Return(sels, nil)

	got := NewCurator(sel, Options{MaxSelections: 4}).Select(context.Background(), raw, 30, "general")
	require.Len(t, got, 4)
	assert.Equal(t, []string{"0", "1", "2", "3"}, ids(got))
	assert.Equal(t, "first", got[0].Rationale)
	assert.Equal(t, types.StudyOther, got[1].StudyType, "missing study type defaults to Other")
}

func TestSelectAbstractLimitCountsCharacters(t *testing.T) {
	abstract := strings.Repeat("é", 10)
	sel := &mockSelector{}
	sel.On("Select", mock.Anything, mock.MatchedBy(func(req SelectionRequest) bool {
		return req.Candidates[0].AbstractSnippet == strings.Repeat("é", 4)
	})).Return([]Selection{{ID: "1"}}, nil)

	got := NewCurator(sel, Options{AbstractLimit: 4}).Select(context.Background(),
		[]types.StudyRecord{{ID: "1", Title: "T", Abstract: abstract}}, 30, "general")
	require.Len(t, got, 1)
	assert.Equal(t, abstract, got[0].Abstract)
	sel.AssertExpectations(t)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "", truncateRunes("", 5))
	assert.Equal(t, "abc", truncateRunes("abc", 5))
	assert.Equal(t, "ab", truncateRunes("abc", 2))
	assert.Equal(t, "日本", truncateRunes("日本語", 2))
	assert.Equal(t, "日本語", truncateRunes("日本語", 3))
}

func ids(studies []types.CuratedStudy) []string {
	out := make([]string, len(studies))
	for i, s := range studies {
		out[i] = s.ID
	}
	return out
}
