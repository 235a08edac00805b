package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueUnmarshal(t *testing.T) {
	var got struct {
		A Value `json:"a"`
		B Value `json:"b"`
		C Value `json:"c"`
		D Value `json:"d"`
	}
	err := json.Unmarshal([]byte(`{"a": 12.5, "b": "N/D", "c": null}`), &got)
	require.NoError(t, err)

	f, ok := got.A.Float()
	assert.True(t, ok)
	assert.Equal(t, 12.5, f)

	assert.True(t, got.B.IsText())
	assert.Equal(t, "N/D", got.B.Raw())

	assert.True(t, got.C.IsZero())
	assert.True(t, got.D.IsZero())
}

func TestValueMarshalKeepsKind(t *testing.T) {
	ind := Indicator{ID: "x", Name: "X", Value: Text("N/A"), Target: Number(10), Format: FormatNumber}
	data, err := json.Marshal(ind)
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"value":"N/A"`)
	assert.Contains(t, s, `"target":10`)
	assert.NotContains(t, s, "average7Days")
}

func TestIndicatorDefaults(t *testing.T) {
	var ind Indicator
	require.NoError(t, json.Unmarshal([]byte(`{"id":"a_b","name":"B","value":1}`), &ind))
	assert.True(t, ind.IsMandatory)
	assert.Equal(t, FormatNumber, ind.Format)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"a_b","name":"B","value":1,"isMandatory":false,"format":"Currency"}`), &ind))
	assert.False(t, ind.IsMandatory)
	assert.Equal(t, FormatCurrency, ind.Format)
}

func TestSubmissionResultKeepsExtra(t *testing.T) {
	var r SubmissionResult
	require.NoError(t, json.Unmarshal([]byte(`{"status":"success","message":"ok","row":17}`), &r))
	assert.Equal(t, "success", r.Status)
	assert.Equal(t, "ok", r.Message)
	assert.Contains(t, r.Extra, "row")
}
