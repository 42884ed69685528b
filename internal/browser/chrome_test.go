package browser

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"coursewatch/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

func findChrome(t *testing.T) string {
	for _, name := range []string{"headless-shell", "chromium", "chromium-browser", "google-chrome"} {
		path, err := exec.LookPath(name)
		if err == nil {
			return path
		}
	}
	t.Skip("no chrome installation found")
	return ""
}

const loginPage = `<html><body>
<form>
	<input name="member_userid">
	<img src="images/check/7.jpg">
	<button name="b1" type="button" onclick="alert('驗證碼錯誤')">login</button>
</form>
</body></html>`

func TestChrome(t *testing.T) {
	execPath := findChrome(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "PHPSESSID", Value: "abc", Path: "/"})
		w.Header().Set("content-type", "text/html; charset=utf-8")
		fmt.Fprint(w, loginPage)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	launcher := NewChromeLauncher(ChromeOptions{ExecPath: execPath}, telemetry.NewMemoryAPI())
	b, err := launcher.Launch(ctx)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Navigate(ctx, srv.URL+"/member_login.php"))

	url, err := b.CurrentURL(ctx)
	require.NoError(t, err)
	require.Contains(t, url, "member_login.php")

	exists, err := b.Exists(ctx, "input[name=member_userid]")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = b.Exists(ctx, "input[name=missing]")
	require.NoError(t, err)
	require.False(t, exists)

	src, ok, err := b.Attribute(ctx, "img[src^='images/check/']", "src")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "images/check/7.jpg", src)

	require.NoError(t, b.SetValue(ctx, "input[name=member_userid]", "alice"))
	var value string
	require.NoError(t, b.ExecuteScript(ctx, `document.querySelector("input[name=member_userid]").value`, &value))
	require.Equal(t, "alice", value)

	require.ErrorIs(t, b.WaitFor(ctx, ".never", 200*time.Millisecond), ErrWaitTimeout)

	cookies, err := b.Cookies(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, cookies)

	require.NoError(t, b.Click(ctx, "button[name=b1]"))
	require.Eventually(t, func() bool {
		_, open := b.Dialog()
		return open
	}, 5*time.Second, 50*time.Millisecond)
	text, _ := b.Dialog()
	require.Equal(t, "驗證碼錯誤", text)
	require.NoError(t, b.AcceptDialog(ctx))
	_, open := b.Dialog()
	require.False(t, open)

	markup, err := b.Markup(ctx)
	require.NoError(t, err)
	require.Contains(t, markup, "member_userid")
}
