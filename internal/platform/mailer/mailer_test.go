package mailer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestTemplates(t *testing.T) {
	tpl, err := NewTemplates("https://foodrient.com")
	require.NoError(t, err)

	t.Run("group invite", func(t *testing.T) {
		msg, err := tpl.GroupInvite("ada@example.com", "Rice <Lekki>", "Tunde")
		require.NoError(t, err)
		assert.Equal(t, []string{"ada@example.com"}, msg.To)
		assert.Equal(t, DefaultFrom, msg.From)
		assert.Equal(t, "You've been invited to join Rice <Lekki> on Foodrient", msg.Subject)
		assert.Contains(t, msg.HTML, "Rice &lt;Lekki&gt;")
		assert.Contains(t, msg.HTML, "https://foodrient.com/groups/invites")
	})

	t.Run("group update default message", func(t *testing.T) {
		msg, err := tpl.GroupUpdate("a@b.com", "Beans", GroupCompleted, "")
		require.NoError(t, err)
		assert.Contains(t, msg.HTML, "has reached its target size and is now complete!")

		msg, err = tpl.GroupUpdate("a@b.com", "Beans", GroupJoined, "Ada joined")
		require.NoError(t, err)
		assert.Contains(t, msg.HTML, "Ada joined")
	})

	t.Run("vendor approval falls back to support team", func(t *testing.T) {
		msg, err := tpl.VendorApproval("v@b.com", "Mama Put", "", decimal.NewFromInt(5))
		require.NoError(t, err)
		assert.Contains(t, msg.HTML, "the Foodrient support team")
		assert.Contains(t, msg.HTML, "charges a 5% fee")
		assert.Contains(t, msg.HTML, "receive 95%")
	})

	t.Run("password reset link", func(t *testing.T) {
		msg, err := tpl.PasswordReset("u@b.com", "tok123", "30 minutes")
		require.NoError(t, err)
		assert.Contains(t, msg.HTML, "https://foodrient.com/auth/reset?token=tok123")
	})
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewLogSender(zap.New(core))

	err := s.Send(t.Context(), Message{From: DefaultFrom, To: []string{"a@b.com"}, Subject: "hi", HTML: "<p>x</p>"})
	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "hi", logs.All()[0].ContextMap()["subject"])

	err = s.Send(t.Context(), Message{To: []string{"not-an-address"}, Subject: "x"})
	assert.Error(t, err)
}
