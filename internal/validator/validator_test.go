package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawcontext/engram-sub001/internal/schema"
)

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	r, err := schema.DefineSchema(
		[]schema.NodeDef{{Label: "Memory"}, {Label: "Entity"}},
		[]schema.EdgeDef{{Type: "MENTIONS", From: "Memory", To: "Entity"}},
	)
	require.NoError(t, err)
	return r
}

func TestValidate_AllowedLeadingKeywordsAccepted(t *testing.T) {
	reg := testRegistry(t)
	for _, expr := range []string{
		"MATCH (n:Memory) RETURN n",
		"OPTIONAL MATCH (n:Memory) RETURN n",
		"WITH n RETURN n",
		"RETURN 1",
		"ORDER BY n.vt_start",
		"LIMIT 5",
		"SKIP 5",
		"WHERE n.project = $p1",
		"UNWIND [1,2,3] AS x RETURN x",
		"CALL db.labels()",
	} {
		assert.NoError(t, Validate(expr, reg), "expected %q to be accepted", expr)
	}
}

func TestValidate_UnrecognizedLeadingKeywordRejected(t *testing.T) {
	reg := testRegistry(t)
	err := Validate("EXPLAIN MATCH (n) RETURN n", reg)
	require.Error(t, err)
	var kwErr *InvalidLeadingKeyword
	assert.True(t, errors.As(err, &kwErr))
}

func TestValidate_DenyTokenWholeWordRejected(t *testing.T) {
	reg := testRegistry(t)
	for _, expr := range []string{
		"MATCH (n:Memory) DELETE n",
		"MATCH (n:Memory) DETACH DELETE n",
		"MATCH (n:Memory) CREATE (m:Memory) RETURN n",
		"MATCH (n:Memory) SET n.x = 1",
		"MATCH (n:Memory) REMOVE n.x",
	} {
		err := Validate(expr, reg)
		require.Error(t, err, "expected %q to be rejected", expr)
		var roErr *ReadOnlyViolation
		assert.True(t, errors.As(err, &roErr), "expected ReadOnlyViolation for %q, got %v", expr, err)
	}
}

func TestValidate_DenyTokenCaseInsensitive(t *testing.T) {
	reg := testRegistry(t)
	err := Validate("MATCH (n:Memory) delete n", reg)
	require.Error(t, err)
	var roErr *ReadOnlyViolation
	assert.True(t, errors.As(err, &roErr))
}

func TestValidate_DenyTokenAsWordPrefixRejected(t *testing.T) {
	reg := testRegistry(t)
	// "SET" is a deny token; "SETTINGS" begins with it at a word boundary.
	err := Validate("MATCH (n:Memory) RETURN n.SETTINGS", reg)
	require.Error(t, err)
	var roErr *ReadOnlyViolation
	assert.True(t, errors.As(err, &roErr))
}

func TestValidate_DenyTokenMidWordNotRejected(t *testing.T) {
	reg := testRegistry(t)
	// "ASSET" contains "SET" but not at a word boundary.
	err := Validate("MATCH (n:Memory) RETURN n.ASSET", reg)
	assert.NoError(t, err)
}

func TestValidate_UnknownNodeLabelSuggests(t *testing.T) {
	reg := testRegistry(t)
	err := Validate("MATCH (n:Memroy) RETURN n", reg)
	require.Error(t, err)
	var unkErr *UnknownSymbol
	require.True(t, errors.As(err, &unkErr))
	assert.Equal(t, "Memroy", unkErr.Name)
	assert.Contains(t, unkErr.Suggestions, "Memory")
}

func TestValidate_UnknownEdgeTypeSuggests(t *testing.T) {
	reg := testRegistry(t)
	err := Validate("MATCH (a:Memory)-[:MENTION]->(b:Entity) RETURN a, b", reg)
	require.Error(t, err)
	var unkErr *UnknownSymbol
	require.True(t, errors.As(err, &unkErr))
	assert.Equal(t, "MENTION", unkErr.Name)
	assert.Contains(t, unkErr.Suggestions, "MENTIONS")
}

func TestValidate_KnownSymbolsAccepted(t *testing.T) {
	reg := testRegistry(t)
	err := Validate("MATCH (a:Memory)-[:MENTIONS]->(b:Entity) RETURN a, b", reg)
	assert.NoError(t, err)
}

func TestValidate_ParameterPlaceholdersIgnored(t *testing.T) {
	reg := testRegistry(t)
	err := Validate("MATCH (n:Memory) WHERE n.project = $p1 RETURN n", reg)
	assert.NoError(t, err)
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("abc", "abc", 5))
	assert.Equal(t, 1, levenshtein("abc", "abd", 5))
	assert.Equal(t, 3, levenshtein("", "abc", 5))
	assert.Greater(t, levenshtein("abcdef", "xyz", 2), 2)
}
