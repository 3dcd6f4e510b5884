package twiliowhatsapp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClient_SendMessage(t *testing.T) {
	mock := NewMockClient()
	require.NoError(t, mock.SendMessage(context.Background(), "12345", "Hello Test"))

	sent := mock.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Hello Test", sent[0].Body)
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(WithAccountSID("AC123"))
	assert.Error(t, err)

	_, err = NewClient(WithAccountSID("AC123"), WithAuthToken("secret"))
	assert.Error(t, err)

	c, err := NewClient(WithAccountSID("AC123"), WithAuthToken("secret"), WithFromWhats("+14155238886"))
	require.NoError(t, err)
	assert.Equal(t, "whatsapp:+14155238886", c.fromWhats)
}

func TestAddress(t *testing.T) {
	assert.Equal(t, "whatsapp:+15550100", Address("+15550100"))
	assert.Equal(t, "whatsapp:+15550100", Address("15550100"))
	assert.Equal(t, "whatsapp:+15550100", Address("whatsapp:+15550100"))
	assert.Equal(t, "+15550100", StripAddress("whatsapp:+15550100"))
	assert.Equal(t, "+15550100", StripAddress("+15550100"))
}
