package contract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolResultConstructorsKeepUnionExclusive(t *testing.T) {
	t.Parallel()

	ok := Success(EmailSent{MessageID: "m1", To: "a@b.c", ToName: "A", Subject: "Hi"})
	assert.True(t, ok.OK())
	assert.Nil(t, ok.Failure)

	bad := Fail(FailureDependency, "gmail: %s", "503")
	assert.False(t, bad.OK())
	assert.Nil(t, bad.Payload)
	assert.Equal(t, "gmail: 503", bad.Failure.Message)

	empty := Success(nil)
	require.NotNil(t, empty.Failure)
	assert.Equal(t, FailureDependency, empty.Failure.Kind)
}

func TestToolResultJSONKeepsPayloadType(t *testing.T) {
	t.Parallel()

	in := Success(EmailPrepared{
		Status:        LookupReadyToSend,
		PersonName:    "Jane Doe",
		Contact:       &Contact{FirstName: "Jane", Email: "jane@acme.io"},
		Authorization: "tok",
	}).For(ToolInvocation{Seq: 2, Tool: "lookupAndPrepareEmail"})

	raw, err := json.Marshal(in)
	require.NoError(t, err)

	var out ToolResult
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "lookupAndPrepareEmail", out.Tool)
	assert.Equal(t, 2, out.Seq)
	prepared, ok := out.Payload.(EmailPrepared)
	require.True(t, ok, "payload type %T", out.Payload)
	assert.Equal(t, "tok", prepared.Authorization)
	assert.Equal(t, "jane@acme.io", prepared.Contact.Email)
}

func TestToolResultJSONFailure(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(Fail(FailureUnknownTool, "no tool named x"))
	require.NoError(t, err)

	var out ToolResult
	require.NoError(t, json.Unmarshal(raw, &out))
	require.NotNil(t, out.Failure)
	assert.Equal(t, FailureUnknownTool, out.Failure.Kind)
	assert.Nil(t, out.Payload)
}

func TestToolResultJSONUnknownKind(t *testing.T) {
	t.Parallel()

	var out ToolResult
	err := json.Unmarshal([]byte(`{"kind":"weather","payload":{}}`), &out)
	require.ErrorIs(t, err, ErrValidation)
}
