package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_Canonical(t *testing.T) {
	r := NewResult()
	r.Crate = "demo"
	r.Findings = []FindingEvent{
		{Seq: 1, Path: "unused", Descr: "function", Name: "unused", Participle: "used", Severity: "warning", Line: 4},
	}

	data, err := Snapshot("demo", r)
	require.NoError(t, err)
	assert.Equal(t,
		`{"crate":"demo","findings":[{"descr":"function","name":"unused","participle":"used","path":"unused","seq":1,"severity":"warning"}],"scenario_name":"demo"}`,
		string(data))
}

func TestSnapshot_Cycles(t *testing.T) {
	r := NewResult()
	r.Crate = "demo"
	r.Cycles = []CycleEvent{{Path: []string{"spin", "spin"}, Message: "function `spin` is only used by itself"}}

	data, err := Snapshot("loop", r)
	require.NoError(t, err)
	assert.Equal(t,
		`{"crate":"demo","cycles":[{"message":"function `+"`spin`"+` is only used by itself","path":["spin","spin"]}],"findings":[],"scenario_name":"loop"}`,
		string(data))
}

func TestSnapshot_Deterministic(t *testing.T) {
	r := sampleResult()
	first, err := Snapshot("sample", r)
	require.NoError(t, err)
	for range 10 {
		again, err := Snapshot("sample", r)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRunWithGolden_Demo(t *testing.T) {
	s := demoScenario(t)
	s.Name = "demo_unused"

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}
