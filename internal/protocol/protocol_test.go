package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warhorse/internal/i18n"
)

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"event":"/chat/send","data":{"message":"hi"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventChatSend, env.Event)
	assert.JSONEq(t, `{"message":"hi"}`, string(env.Data))

	_, err = ParseEnvelope([]byte(`{"data":{}}`))
	assert.Error(t, err, "missing event name")

	_, err = ParseEnvelope([]byte(`not json`))
	assert.Error(t, err)
}

func TestEncodeFramesPayload(t *testing.T) {
	raw, err := Encode(EventError, "nope")
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"/error","data":"nope"}`, string(raw))

	raw, err = Encode(EventUserLogin, struct{}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"/user/login","data":{}}`, string(raw))
}

func TestLoginIdentityDecoding(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		check   func(t *testing.T, id LoginIdentity)
	}{
		{
			name:  "account name variant",
			input: `{"AccountName":"jdoe"}`,
			check: func(t *testing.T, id LoginIdentity) {
				name, ok := id.AccountName()
				assert.True(t, ok)
				assert.Equal(t, "jdoe", name)
				_, ok = id.Email()
				assert.False(t, ok)
			},
		},
		{
			name:  "email variant",
			input: `{"Email":"jdoe@example.com"}`,
			check: func(t *testing.T, id LoginIdentity) {
				email, ok := id.Email()
				assert.True(t, ok)
				assert.Equal(t, "jdoe@example.com", email)
			},
		},
		{name: "two keys", input: `{"AccountName":"a","Email":"b"}`, wantErr: true},
		{name: "no keys", input: `{}`, wantErr: true},
		{name: "unknown variant", input: `{"Phone":"555"}`, wantErr: true},
		{name: "not an object", input: `"jdoe"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id LoginIdentity
			err := json.Unmarshal([]byte(tt.input), &id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, id)
		})
	}
}

func TestChatChannelRoundTrip(t *testing.T) {
	raw, err := json.Marshal(RoomChannel("general"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Room":"general"}`, string(raw))

	var ch ChatChannel
	require.NoError(t, json.Unmarshal([]byte(`{"PrivateMessage":"17"}`), &ch))
	target, ok := ch.PrivateMessage()
	assert.True(t, ok)
	assert.Equal(t, "17", target)
	assert.Equal(t, "whisper", ch.Kind())

	_, err = json.Marshal(ChatChannel{})
	assert.Error(t, err, "zero channel must not serialize")

	assert.Error(t, json.Unmarshal([]byte(`{"Shout":"all"}`), &ch))
}

func TestUserLoginDecodesLanguageStrictly(t *testing.T) {
	var req UserLogin
	err := json.Unmarshal([]byte(`{"language":"French","identity":{"Email":"a@b.com"},"password":"pw"}`), &req)
	require.NoError(t, err)
	assert.Equal(t, i18n.French, req.Language)
	assert.False(t, req.Identity.IsZero())

	err = json.Unmarshal([]byte(`{"language":"Esperanto","identity":{"Email":"a@b.com"},"password":"pw"}`), &req)
	assert.Error(t, err)
}

func TestChatMessageWireShape(t *testing.T) {
	msg := ChatMessage{
		DisplayName: "Jenny",
		Channel:     RoomChannel("general"),
		Message:     "gg",
		Time:        1700000000,
	}
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"display_name":"Jenny","channel":{"Room":"general"},"message":"gg","time":1700000000}`, string(raw))
}
