package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTaskImpl struct{}

func (stubTaskImpl) SetJSONObjectProperty(string, map[string]any) error { return nil }

// fakePluginManager builds bare tasks keyed only by mode implied by
// plugin name: "src" -> Source (1 output), "snk" -> Sink (1 input,
// Infinite).
type fakePluginManager struct{}

func (fakePluginManager) Create(pluginName, instanceName string) (*Task, error) {
	switch pluginName {
	case "src":
		t := NewTask(pluginName, instanceName, ModeSource)
		t.Outputs = []OutputPort{{NDims: 1}}
		t.Impl = stubTaskImpl{}
		return t, nil
	case "snk":
		t := NewTask(pluginName, instanceName, ModeSink)
		t.Inputs = []InputPort{{NExpectedItems: Infinite}}
		t.Impl = stubTaskImpl{}
		return t, nil
	default:
		return nil, jsonKeyErr("unknown plugin %q", pluginName)
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	doc := `{"version":"2.0","index":0,"total":1,"nodes":[{"plugin":"src","name":"a"},{"plugin":"snk","name":"b"}],"edges":[{"from":{"name":"a"},"to":{"name":"b","input":0}}]}`

	tg, err := Load([]byte(doc), fakePluginManager{})
	require.NoError(t, err)

	a, ok := tg.Task("a")
	require.True(t, ok)
	b, ok := tg.Task("b")
	require.True(t, ok)
	assert.Equal(t, ModeSource, a.Mode)
	assert.Equal(t, ModeSink, b.Mode)

	saved, err := tg.Save()
	require.NoError(t, err)

	var reloaded jsonDoc
	require.NoError(t, json.Unmarshal(saved, &reloaded))
	assert.Equal(t, "2.0", reloaded.Version)
	require.Len(t, reloaded.Nodes, 2)
	require.Len(t, reloaded.Edges, 1)
	assert.Equal(t, "a", reloaded.Edges[0].From.Name)
	assert.Equal(t, "b", reloaded.Edges[0].To.Name)

	tg2, err := Load(saved, fakePluginManager{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, names(tg2.Tasks()))
}

func names(tasks []*Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Name
	}
	return out
}

func TestLoad_DuplicateName(t *testing.T) {
	doc := `{"version":"2.0","nodes":[{"plugin":"src","name":"x"},{"plugin":"src","name":"x"}],"edges":[]}`
	_, err := Load([]byte(doc), fakePluginManager{})
	require.Error(t, err)
	var jerr *ErrJSONKey
	require.ErrorAs(t, err, &jerr)
}

func TestLoad_NonSinkLeafFailsValidation(t *testing.T) {
	doc := `{"version":"2.0","nodes":[{"plugin":"src","name":"a"}],"edges":[]}`
	tg, err := Load([]byte(doc), fakePluginManager{})
	require.NoError(t, err)

	ok, _, err := tg.IsAlright(false)
	assert.False(t, ok)
	var berr *ErrBadInputs
	require.ErrorAs(t, err, &berr)
}

func TestLoad_MissingPluginField(t *testing.T) {
	doc := `{"version":"2.0","nodes":[{"name":"a"}],"edges":[]}`
	_, err := Load([]byte(doc), fakePluginManager{})
	assert.Error(t, err)
}

func TestLoad_UnknownSchemaMajorRejected(t *testing.T) {
	doc := `{"version":"3.0","nodes":[],"edges":[]}`
	_, err := Load([]byte(doc), fakePluginManager{})
	assert.Error(t, err)
}

func TestLoad_EdgeReferencesUnknownNode(t *testing.T) {
	doc := `{"version":"2.0","nodes":[{"plugin":"src","name":"a"}],"edges":[{"from":{"name":"a"},"to":{"name":"ghost"}}]}`
	_, err := Load([]byte(doc), fakePluginManager{})
	assert.Error(t, err)
}

func TestLoad_PartitionAppliedWhenBothPresent(t *testing.T) {
	doc := `{"version":"2.0","index":1,"total":4,"nodes":[],"edges":[]}`
	tg, err := Load([]byte(doc), fakePluginManager{})
	require.NoError(t, err)
	idx, total := tg.GetPartition()
	assert.Equal(t, 1, idx)
	assert.Equal(t, 4, total)
}
