package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCondition_MatchScalar(t *testing.T) {
	payload := map[string]any{
		KeyTenantID: "u1",
		KeySequence: 3,
		KeyNodeType: "note",
	}

	assert.True(t, Match(KeyTenantID, "u1").Matches(payload))
	assert.False(t, Match(KeyTenantID, "u2").Matches(payload))
	assert.True(t, Match(KeySequence, "3").Matches(payload))
	assert.False(t, Match("missing", "x").Matches(payload))
}

func TestCondition_MatchAny(t *testing.T) {
	payload := map[string]any{KeyNodeType: "resource"}

	assert.True(t, MatchAny(KeyNodeType, []string{"note", "resource"}).Matches(payload))
	assert.False(t, MatchAny(KeyNodeType, []string{"note", "other"}).Matches(payload))
	assert.False(t, MatchAny(KeyNodeType, nil).Matches(payload))
}

func TestCondition_ListPayloadValues(t *testing.T) {
	payload := map[string]any{
		KeyCollectionIDs: []any{"c1", "c2"},
	}

	assert.True(t, Match(KeyCollectionIDs, "c2").Matches(payload))
	assert.False(t, Match(KeyCollectionIDs, "c9").Matches(payload))
	assert.True(t, MatchAny(KeyCollectionIDs, []string{"c9", "c1"}).Matches(payload))

	payload[KeyCollectionIDs] = []string{"c3"}
	assert.True(t, Match(KeyCollectionIDs, "c3").Matches(payload))
}

func TestFilter_Conjunction(t *testing.T) {
	payload := map[string]any{
		KeyTenantID: "u1",
		KeyNoteID:   "n1",
	}

	filter := Filter{}.And(Match(KeyTenantID, "u1"), Match(KeyNoteID, "n1"))
	assert.True(t, filter.Matches(payload))

	filter = filter.And(Match(KeyNodeType, "note"))
	assert.False(t, filter.Matches(payload), "every condition must hold")
}

func TestFilter_AndDoesNotMutate(t *testing.T) {
	base := Filter{}.And(Match(KeyTenantID, "u1"))
	extended := base.And(Match(KeyNoteID, "n1"))

	assert.Len(t, base.Must, 1)
	assert.Len(t, extended.Must, 2)
	assert.False(t, base.Empty())
	assert.True(t, Filter{}.Empty())
}

func TestExpandWhere(t *testing.T) {
	filter := Filter{}.And(
		Match(KeyTenantID, "u1"),
		MatchAny(KeyNodeType, []string{"note", "resource"}),
	)

	wheres := expandWhere(filter)
	assert.Len(t, wheres, 2)
	for _, where := range wheres {
		assert.Equal(t, "u1", where[KeyTenantID])
	}
	assert.Equal(t, "note", wheres[0][KeyNodeType])
	assert.Equal(t, "resource", wheres[1][KeyNodeType])
}

func TestEstimateSize(t *testing.T) {
	points := []Point{
		{
			ID:      "point-1",
			Vector:  make([]float32, 8),
			Payload: map[string]any{KeyTenantID: "u1", KeyContent: "hello"},
		},
	}

	size := EstimateSize(points)
	assert.Greater(t, size, 8*4, "size must cover vector bytes")

	points[0].Payload[KeyContent] = "hello, a considerably longer content body"
	assert.Greater(t, EstimateSize(points), size, "larger payloads estimate larger")

	assert.Zero(t, EstimateSize(nil))
}

func TestMetadataRoundTrip(t *testing.T) {
	payload := map[string]any{
		KeyTenantID:      "u1",
		KeySequence:      2,
		KeyCollectionIDs: []string{"c1", "c2"},
	}

	meta := payloadToMetadata(payload)
	back := metadataToPayload(meta, "body")

	assert.Equal(t, "u1", back[KeyTenantID])
	assert.Equal(t, "2", back[KeySequence])
	assert.Equal(t, []string{"c1", "c2"}, back[KeyCollectionIDs])
	assert.Equal(t, "body", back[KeyContent])
}
