package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/moodsync-auth/internal/models"
)

func TestEmailServiceSimulationMode(t *testing.T) {
	// No SMTP configured: sending only logs and never fails.
	svc := NewEmailService(testConfig())
	assert.NoError(t, svc.SendOTP("a@x.com", "123456", models.PurposeRegistration))
}

func TestEmailServiceRenderBody(t *testing.T) {
	svc := NewEmailService(testConfig())

	for _, purpose := range []string{
		models.PurposeRegistration,
		models.PurposeLogin,
		models.PurposeResetPassword,
	} {
		body, err := svc.renderBody("123456", purpose)
		require.NoError(t, err)
		assert.Contains(t, body, "123456")
		assert.Contains(t, body, "10 minutes")
	}

	// Unknown purposes fall back to the registration template.
	body, err := svc.renderBody("654321", "something_else")
	require.NoError(t, err)
	assert.True(t, strings.Contains(body, "654321"))
}

func TestSMSServiceStub(t *testing.T) {
	assert.NoError(t, NewSMSService().SendOTP("+15551234567", "123456", models.PurposeLogin))
}
