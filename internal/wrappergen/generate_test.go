package wrappergen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseSpec() Spec {
	return Spec{
		OriginalModule: "./worker.js",
		ProjectID:      "proj-1",
		OrgID:          "org-1",
	}
}

func TestGenerateActorClassesOnly(t *testing.T) {
	spec := baseSpec()
	spec.DOClassNames = []string{"Counter", "Session"}

	out, err := Generate(spec)
	require.NoError(t, err)

	assert.Contains(t, out, `Counter as __original_Counter`)
	assert.Contains(t, out, `Session as __original_Session`)
	assert.Contains(t, out, `export const Counter = __wrapActor(__original_Counter, "Counter");`)
	assert.Contains(t, out, `export const Session = __wrapActor(__original_Session, "Session");`)

	// Default export passes through untouched in actor-only mode.
	assert.Contains(t, out, "export default __original_default;")

	assert.NotContains(t, out, "__meteredVectorize")
	assert.NotContains(t, out, "__wrapEnv")
	assert.NotContains(t, out, "__VECTOR_BINDINGS")
}

func TestGenerateVectorBindingsOnly(t *testing.T) {
	spec := baseSpec()
	spec.VectorizeBindings = []VectorBinding{
		{BindingName: "SEARCH_INDEX", IndexName: "idx-products"},
	}

	out, err := Generate(spec)
	require.NoError(t, err)

	assert.Contains(t, out, `"SEARCH_INDEX": "idx-products"`)
	assert.Contains(t, out, "__meteredVectorize")
	assert.Contains(t, out, "__wrapEnv")
	assert.Contains(t, out, "export default __wrapped_default;")

	// No actor machinery at all.
	assert.NotContains(t, out, "__wrapActor")
	assert.NotContains(t, out, "import {")
}

func TestGenerateCombinedWrapsDefaultViaInterception(t *testing.T) {
	spec := baseSpec()
	spec.DOClassNames = []string{"Counter"}
	spec.VectorizeBindings = []VectorBinding{
		{BindingName: "VEC", IndexName: "idx"},
	}

	out, err := Generate(spec)
	require.NoError(t, err)

	assert.Contains(t, out, "__wrapActor(__original_Counter")
	assert.Contains(t, out, "__wrapEnv")
	assert.Contains(t, out, "export default __wrapped_default;")
	assert.NotContains(t, out, "export default __original_default;")
}

func TestGenerateHardcodesBillingIdentity(t *testing.T) {
	spec := baseSpec()
	spec.DOClassNames = []string{"A"}

	out, err := Generate(spec)
	require.NoError(t, err)

	assert.Contains(t, out, `const __PROJECT_ID = "proj-1";`)
	assert.Contains(t, out, `const __ORG_ID = "org-1";`)
}

func TestGenerateIsDeterministic(t *testing.T) {
	spec := baseSpec()
	spec.DOClassNames = []string{"A", "B"}
	spec.VectorizeBindings = []VectorBinding{
		{BindingName: "X", IndexName: "idx-1"},
		{BindingName: "Y", IndexName: "idx-2"},
	}

	first, err := Generate(spec)
	require.NoError(t, err)
	second, err := Generate(spec)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGenerateFailsWithoutWrapTargets(t *testing.T) {
	_, err := Generate(baseSpec())
	require.Error(t, err)

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestGenerateFailsOnEmptyModule(t *testing.T) {
	spec := baseSpec()
	spec.OriginalModule = ""
	spec.DOClassNames = []string{"A"}

	_, err := Generate(spec)
	require.Error(t, err)
}

func TestGenerateFailsOnInvalidIdentifier(t *testing.T) {
	for _, bad := range []string{"123bad", "with-dash", "with space", ""} {
		spec := baseSpec()
		spec.DOClassNames = []string{bad}

		_, err := Generate(spec)
		assert.Error(t, err, "class name %q should be rejected", bad)
	}

	spec := baseSpec()
	spec.DOClassNames = []string{"_ok", "Also_Ok2"}
	_, err := Generate(spec)
	assert.NoError(t, err)
}

func TestGenerateEscapesStringInputs(t *testing.T) {
	spec := baseSpec()
	spec.DOClassNames = []string{"A"}
	spec.ProjectID = `proj"1`

	out, err := Generate(spec)
	require.NoError(t, err)

	assert.NotContains(t, out, `= "proj"1";`)
}
