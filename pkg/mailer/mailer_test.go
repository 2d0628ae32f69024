package mailer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildMessage_PlainText(t *testing.T) {
	msg, err := buildMessage("bot@opora.ru", "ivan@test.ru", "Ваш документ", "Готово", "")
	require.NoError(t, err)

	s := string(msg)
	assert.Contains(t, s, "From: bot@opora.ru")
	assert.Contains(t, s, "To: ivan@test.ru")
	assert.Contains(t, s, "Content-Type: text/plain; charset=utf-8")
	assert.Contains(t, s, "Готово")
	assert.NotContains(t, s, "multipart/mixed")
}

func TestBuildMessage_WithAttachment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "документ.docx")
	require.NoError(t, os.WriteFile(path, []byte("PK\x03\x04docx-bytes"), 0o644))

	msg, err := buildMessage("bot@opora.ru", "ivan@test.ru", "Ваш документ", "Во вложении", path)
	require.NoError(t, err)

	s := string(msg)
	assert.Contains(t, s, "multipart/mixed")
	assert.Contains(t, s, "Content-Transfer-Encoding: base64")
	assert.Contains(t, s, "Content-Disposition: attachment")
	assert.Contains(t, s, "Во вложении")
	// Terminating boundary present.
	assert.True(t, strings.HasSuffix(strings.TrimSpace(s), "--"+boundary+"--"))
}

func TestBuildMessage_MissingAttachment(t *testing.T) {
	_, err := buildMessage("a@b.ru", "c@d.ru", "s", "b", "/nonexistent/file.docx")
	assert.Error(t, err)
}

func TestBuildMessage_Base64LineLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.docx")
	require.NoError(t, os.WriteFile(path, make([]byte, 4096), 0o644))

	msg, err := buildMessage("a@b.ru", "c@d.ru", "s", "b", path)
	require.NoError(t, err)

	inBody := false
	for _, line := range strings.Split(string(msg), "\r\n") {
		if strings.Contains(line, "Content-Disposition") {
			inBody = true
			continue
		}
		if inBody && strings.HasPrefix(line, "--") {
			break
		}
		if inBody {
			assert.LessOrEqual(t, len(line), 76)
		}
	}
}

func TestNoopMailer(t *testing.T) {
	m := NewNoop(zap.NewNop())
	assert.NoError(t, m.Send(context.Background(), "a@b.ru", "s", "b", ""))
}
