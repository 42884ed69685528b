package notify

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"coursewatch/internal/components/telemetry"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startFakeSmtp(t *testing.T) (host string, smtpPort, webPort int) {
	testcontainers.Logger = log.New(io.Discard, "", 0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute*2)
	defer cancel()

	container, err := testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "haravich/fake-smtp-server",
				ExposedPorts: []string{"1025/tcp", "1080/tcp"},
				WaitingFor:   wait.ForLog("smtp://0.0.0.0:1025"),
			},
			Started: true,
		},
	)
	if err != nil {
		t.Skipf("docker is not available: %v", err)
	}
	t.Cleanup(func() {
		container.Terminate(context.Background())
	})

	host, err = container.Host(ctx)
	require.NoError(t, err)
	smtpMapped, err := container.MappedPort(ctx, "1025")
	require.NoError(t, err)
	webMapped, err := container.MappedPort(ctx, "1080")
	require.NoError(t, err)
	return host, smtpMapped.Int(), webMapped.Int()
}

func TestEmailSend(t *testing.T) {
	if testing.Short() {
		t.Skip("starts a container")
	}
	host, smtpPort, webPort := startFakeSmtp(t)

	notifier := NewEmail(EmailOptions{
		SmtpHost: host,
		SmtpPort: smtpPort,
		Username: "watcher@example.com",
		Password: "default",
		From:     "watcher@example.com",
		To:       []string{"alice@example.com"},
		Subject:  "課程報名開放通知",
	}, telemetry.NewMemoryAPI())

	ok := notifier.Send(context.Background(), "<b>射箭-反曲弓進階</b>\n快去報名吧！")
	require.True(t, ok)

	res, err := resty.New().R().
		Get(fmt.Sprintf("http://%s:%d/messages/1.plain", host, webPort))
	require.NoError(t, err)
	require.True(t, strings.Contains(res.String(), "射箭-反曲弓進階"), res.String())
}

func TestEmailUnreachable(t *testing.T) {
	tel := telemetry.NewMemoryAPI()
	notifier := NewEmail(EmailOptions{
		SmtpHost: "127.0.0.1",
		SmtpPort: 1,
		From:     "watcher@example.com",
		To:       []string{"alice@example.com"},
	}, tel)

	require.False(t, notifier.Send(context.Background(), "hello"))
	require.True(t, tel.Has(telemetry.KindBroken, report_email_send))
}
