package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func metadataWith(values map[MetadataKey]string) Metadata {
	md := NewMetadata()
	for k, v := range values {
		md[k] = v
	}
	return md
}

func TestNilFilterSpecAcceptsEverything(t *testing.T) {
	t.Parallel()

	var spec *FilterSpec
	assert.True(t, spec.Accepts(NewMetadata()))
	assert.True(t, spec.Empty())
}

func TestFilterSpecExactIncludeIsCaseSensitive(t *testing.T) {
	t.Parallel()

	spec, err := NewFilterSpec(map[string][]string{"person": {"Jane Doe"}}, nil)
	require.NoError(t, err)
	require.Len(t, spec.Include, 1)
	assert.Equal(t, MatchExact, spec.Include[0].Mode)

	assert.True(t, spec.Accepts(metadataWith(map[MetadataKey]string{KeyPerson: "Jane Doe"})))
	assert.False(t, spec.Accepts(metadataWith(map[MetadataKey]string{KeyPerson: "jane doe"})))
	assert.False(t, spec.Accepts(metadataWith(map[MetadataKey]string{KeyPerson: "Jane Doe-Smith"})))
}

func TestFilterSpecSubstringIgnoresCase(t *testing.T) {
	t.Parallel()

	spec, err := NewFilterSpec(map[string][]string{"title_substring": {"RALLY"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, MatchSubstring, spec.Include[0].Mode)
	assert.Equal(t, KeyTitle, spec.Include[0].Key)

	assert.True(t, spec.Accepts(metadataWith(map[MetadataKey]string{KeyTitle: "Remarks at a rally in Ohio"})))
	assert.False(t, spec.Accepts(metadataWith(map[MetadataKey]string{KeyTitle: "Statement on Trade"})))
}

func TestFilterSpecExcludeWins(t *testing.T) {
	t.Parallel()

	spec, err := NewFilterSpec(
		map[string][]string{"state": {"Ohio", "Iowa"}},
		map[string][]string{"city_substring": {"dayton"}},
	)
	require.NoError(t, err)

	assert.True(t, spec.Accepts(metadataWith(map[MetadataKey]string{KeyState: "Ohio", KeyCity: "Columbus"})))
	assert.False(t, spec.Accepts(metadataWith(map[MetadataKey]string{KeyState: "Ohio", KeyCity: "Dayton"})))
	assert.False(t, spec.Accepts(metadataWith(map[MetadataKey]string{KeyState: "Texas", KeyCity: "Austin"})))
}

func TestFilterSpecEmptyAllowedListImposesNothing(t *testing.T) {
	t.Parallel()

	spec, err := NewFilterSpec(map[string][]string{"person": {}}, map[string][]string{"state": nil})
	require.NoError(t, err)
	assert.False(t, spec.Empty())
	assert.True(t, spec.Accepts(NewMetadata()))
}

func TestFilterSpecUnknownValuesAreFilterable(t *testing.T) {
	t.Parallel()

	spec, err := NewFilterSpec(nil, map[string][]string{"date": {UnknownValue}})
	require.NoError(t, err)
	assert.False(t, spec.Accepts(NewMetadata()))
	assert.True(t, spec.Accepts(metadataWith(map[MetadataKey]string{KeyDate: "June 1, 2024"})))
}

func TestNewFilterSpecRejectsInvalidKeys(t *testing.T) {
	t.Parallel()

	_, err := NewFilterSpec(map[string][]string{"speaker": {"x"}, "body_substring": {"y"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include filter")
	assert.Contains(t, err.Error(), "speaker")
	assert.Contains(t, err.Error(), "body_substring")

	_, err = NewFilterSpec(nil, map[string][]string{"person": {"a"}, "person_substring": {"b"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exclude filter")
}

func TestNewFilterSpecAllowsSameKeyAcrossScopes(t *testing.T) {
	t.Parallel()

	spec, err := NewFilterSpec(
		map[string][]string{"person_substring": {"doe"}},
		map[string][]string{"person": {"John Doe"}},
	)
	require.NoError(t, err)
	assert.True(t, spec.Accepts(metadataWith(map[MetadataKey]string{KeyPerson: "Jane Doe"})))
	assert.False(t, spec.Accepts(metadataWith(map[MetadataKey]string{KeyPerson: "John Doe"})))
}

func TestNewFilterSpecDedupesAllowedValues(t *testing.T) {
	t.Parallel()

	spec, err := NewFilterSpec(map[string][]string{"state": {"Ohio", "Ohio", "Iowa"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ohio", "Iowa"}, spec.Include[0].Allowed)
}

func TestMatchModeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "exact", MatchExact.String())
	assert.Equal(t, "substring", MatchSubstring.String())
	assert.Equal(t, "MatchMode(9)", MatchMode(9).String())
}
