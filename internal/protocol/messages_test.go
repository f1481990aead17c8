package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeekType(t *testing.T) {
	typ, err := PeekType([]byte(`{"type":"input","sequence":3}`))
	require.NoError(t, err)
	assert.Equal(t, CInput, typ)

	_, err = PeekType([]byte(`{"sequence":3}`))
	assert.Error(t, err)

	_, err = PeekType([]byte(`not json`))
	assert.Error(t, err)
}

func TestInputMsgDecode(t *testing.T) {
	raw := []byte(`{"type":"input","sequence":17,"keys":["w","d"],"facing":"up-right","deltaTime":0.0166,"primary":true}`)
	var m InputMsg
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, uint32(17), m.Sequence)
	assert.Equal(t, []string{"w", "d"}, m.Keys)
	assert.Equal(t, "up-right", m.Facing)
	assert.True(t, m.Primary)
	assert.False(t, m.Roll)
}

func TestAbilityRequestAngleOptional(t *testing.T) {
	var m AbilityRequestMsg
	require.NoError(t, json.Unmarshal([]byte(`{"type":"ability_request","ability":"primary"}`), &m))
	assert.Equal(t, "primary", m.Slot)
	assert.False(t, m.HasAngle)

	// An explicit zero angle means "aim right", not "no aim".
	m = AbilityRequestMsg{}
	require.NoError(t, json.Unmarshal([]byte(`{"type":"ability_request","ability":"primary","angle":0}`), &m))
	assert.True(t, m.HasAngle)
	assert.Zero(t, m.Angle)

	m = AbilityRequestMsg{}
	require.NoError(t, json.Unmarshal([]byte(`{"type":"ability_request","ability":"secondary","angle":1.57}`), &m))
	assert.True(t, m.HasAngle)
	assert.Equal(t, 1.57, m.Angle)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, BestEffort, Classify(SState))
	assert.Equal(t, BestEffort, Classify(SPong))
	assert.Equal(t, Reliable, Classify(SWorldInit))
	assert.Equal(t, Reliable, Classify(SDamageEvent))
	assert.Equal(t, Reliable, Classify(SPlayerDied))
}
