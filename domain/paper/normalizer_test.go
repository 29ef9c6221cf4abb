package paper

import (
	"encoding/json"
	"testing"

	"paperstore/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_PrefersArxivID(t *testing.T) {
	p, err := Normalize(RawRecord{ArxivID: "2301.00001", ID: "other"})

	require.NoError(t, err)
	assert.Equal(t, "2301.00001", p.ID)
}

func TestNormalize_FallsBackToGenericID(t *testing.T) {
	p, err := Normalize(RawRecord{ArxivID: "   ", ID: "2301.00002"})

	require.NoError(t, err)
	assert.Equal(t, "2301.00002", p.ID)
}

func TestNormalize_MissingIdentifier(t *testing.T) {
	_, err := Normalize(RawRecord{Title: "No ID"})

	require.Error(t, err)
	assert.True(t, errors.IsMissingIdentifier(err))
}

func TestNormalize_DateOnlyBecomesMidnightUTC(t *testing.T) {
	p, err := Normalize(RawRecord{ArxivID: "A1", Published: "2023-05-17"})

	require.NoError(t, err)
	assert.Equal(t, "2023-05-17", p.PublishedDate)
	assert.Equal(t, "2023-05-17T00:00:00Z", p.Published)
}

func TestNormalize_FullTimestamp(t *testing.T) {
	p, err := Normalize(RawRecord{ArxivID: "A1", Published: "2023-05-17T09:30:00Z"})

	require.NoError(t, err)
	assert.Equal(t, "2023-05-17", p.PublishedDate)
	assert.Equal(t, "2023-05-17T09:30:00Z", p.Published)
}

func TestNormalize_TimestampWithOffsetNormalizedToUTC(t *testing.T) {
	p, err := Normalize(RawRecord{ArxivID: "A1", Published: "2023-05-17T23:30:00+02:00"})

	require.NoError(t, err)
	assert.Equal(t, "2023-05-17", p.PublishedDate)
	assert.Equal(t, "2023-05-17T21:30:00Z", p.Published)
}

func TestNormalize_AbsentDateDefaultsToEpoch(t *testing.T) {
	p, err := Normalize(RawRecord{ArxivID: "A1"})

	require.NoError(t, err)
	assert.Equal(t, "1970-01-01", p.PublishedDate)
	assert.Equal(t, "1970-01-01T00:00:00Z", p.Published)
}

func TestNormalize_UnparseableDateFallsBackLossy(t *testing.T) {
	p, err := Normalize(RawRecord{ArxivID: "A1", Published: "17 May 2023, morning"})

	require.NoError(t, err)
	assert.Equal(t, "17 May 202", p.PublishedDate)
	assert.Equal(t, "17 May 2023, morning", p.Published)
}

func TestNormalize_ShortUnparseableDate(t *testing.T) {
	p, err := Normalize(RawRecord{ArxivID: "A1", Published: "soon"})

	require.NoError(t, err)
	assert.Equal(t, "soon", p.PublishedDate)
	assert.Equal(t, "soon", p.Published)
}

func TestStringList_CoercesScalar(t *testing.T) {
	var rec RawRecord
	require.NoError(t, json.Unmarshal([]byte(`{"arxiv_id":"A1","authors":"Solo Author","categories":"cs.AI"}`), &rec))

	assert.Equal(t, StringList{"Solo Author"}, rec.Authors)
	assert.Equal(t, StringList{"cs.AI"}, rec.Categories)
}

func TestStringList_AbsentBecomesEmpty(t *testing.T) {
	var rec RawRecord
	require.NoError(t, json.Unmarshal([]byte(`{"arxiv_id":"A1"}`), &rec))

	assert.Empty(t, rec.Authors)
	assert.Empty(t, rec.Categories)
}

func TestStringList_ArrayPassesThrough(t *testing.T) {
	var rec RawRecord
	require.NoError(t, json.Unmarshal([]byte(`{"authors":["X Y","Z W"]}`), &rec))

	assert.Equal(t, StringList{"X Y", "Z W"}, rec.Authors)
}

func TestNormalize_DerivesKeywordsFromAbstract(t *testing.T) {
	p, err := Normalize(RawRecord{
		ArxivID:  "A1",
		Abstract: "graph networks and graph kernels",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"graph", "networks", "kernels"}, p.Keywords)
}
