package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"call-audit-go/internal/config"
)

func configWith(user, pass, to string) config.Config {
	return config.Config{
		SMTPHost:     "smtp.example.com",
		SMTPPort:     465,
		SMTPUser:     user,
		SMTPPassword: pass,
		EmailTo:      to,
	}
}

func TestBuildMessage(t *testing.T) {
	msg, err := buildMessage("from@example.com", "to@example.com", "Call report", "body text", "Report_10.02.26.xlsx", []byte("xlsx-bytes"))
	require.NoError(t, err)

	s := string(msg)
	assert.Contains(t, s, "From: from@example.com")
	assert.Contains(t, s, "To: to@example.com")
	assert.Contains(t, s, "Subject: Call report")
	assert.Contains(t, s, "multipart/mixed")
	assert.Contains(t, s, `attachment; filename="Report_10.02.26.xlsx"`)
	assert.Contains(t, s, "base64")
	// base64 of "xlsx-bytes"
	assert.Contains(t, s, "eGxzeC1ieXRlcw==")
}

func TestBuildMessageWrapsBase64Lines(t *testing.T) {
	payload := make([]byte, 600)
	msg, err := buildMessage("a@example.com", "b@example.com", "s", "b", "f.xlsx", payload)
	require.NoError(t, err)

	inAttachment := false
	for _, line := range strings.Split(string(msg), "\r\n") {
		if strings.Contains(line, "Content-Transfer-Encoding") {
			inAttachment = true
			continue
		}
		if !inAttachment || strings.Contains(line, ": ") {
			continue
		}
		if strings.HasPrefix(line, "--") {
			break
		}
		assert.LessOrEqual(t, len(line), 76)
	}
	assert.True(t, inAttachment)
}
