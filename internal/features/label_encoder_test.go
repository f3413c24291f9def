package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitSortsClasses(t *testing.T) {
	t.Parallel()

	enc, err := Fit([]string{"Nest", "Bags", "Nest", "Apparel"})
	require.NoError(t, err)

	assert.Equal(t, []string{"Apparel", "Bags", "Nest"}, enc.Classes())
	assert.Equal(t, 3, enc.NumClasses())
}

func TestFitEmptyInput(t *testing.T) {
	t.Parallel()

	_, err := Fit(nil)
	require.Error(t, err)
}

func TestEncoderRoundTrip(t *testing.T) {
	t.Parallel()

	enc, err := Fit([]string{"Bags", "Nest"})
	require.NoError(t, err)

	for _, class := range enc.Classes() {
		decoded, err := enc.Inverse(enc.Transform(class))
		require.NoError(t, err)
		assert.Equal(t, class, decoded)
	}
}

func TestUnseenCategoryYieldsSentinel(t *testing.T) {
	t.Parallel()

	enc, err := Fit([]string{"Bags", "Nest"})
	require.NoError(t, err)

	got := enc.Transform("Electronics")
	assert.Equal(t, UnknownIndex, got)
	for i := range enc.Classes() {
		assert.NotEqual(t, i, got)
	}

	_, err = enc.Inverse(got)
	require.Error(t, err)
}

func TestArtifactSurvivesRoundTrip(t *testing.T) {
	t.Parallel()

	enc, err := Fit([]string{"Bags", "Nest"})
	require.NoError(t, err)

	data, err := enc.MarshalArtifact()
	require.NoError(t, err)

	restored, err := UnmarshalArtifact(data)
	require.NoError(t, err)
	assert.Equal(t, enc.Classes(), restored.Classes())
	assert.Equal(t, enc.Transform("Nest"), restored.Transform("Nest"))
}

func TestArtifactRejectsBadVersion(t *testing.T) {
	t.Parallel()

	_, err := UnmarshalArtifact([]byte(`{"version":99,"classes":["a"]}`))
	require.Error(t, err)

	_, err = UnmarshalArtifact([]byte(`{"version":1,"classes":[]}`))
	require.Error(t, err)

	_, err = UnmarshalArtifact([]byte(`{"version":1,"classes":["a","a"]}`))
	require.Error(t, err)
}
