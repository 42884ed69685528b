package wmg

import "strings"

type Popup int

const (
	PopupUnknown Popup = iota
	PopupAlreadyLoggedIn
	PopupCaptchaError
)

func (p Popup) String() string {
	switch p {
	case PopupAlreadyLoggedIn:
		return "already-logged-in"
	case PopupCaptchaError:
		return "captcha-error"
	}
	return "unknown"
}

var popupPhrases = []struct {
	popup   Popup
	phrases []string
}{
	{popup: PopupAlreadyLoggedIn, phrases: []string{"已登入", "already logged in"}},
	{popup: PopupCaptchaError, phrases: []string{"驗證碼錯誤", "captcha incorrect", "captcha error"}},
}

// ClassifyPopup maps the text of an alert shown after submitting the login
// form onto the outcomes the login flow acts on.
func ClassifyPopup(text string) Popup {
	lowered := strings.ToLower(text)
	for _, entry := range popupPhrases {
		for _, phrase := range entry.phrases {
			if strings.Contains(lowered, phrase) {
				return entry.popup
			}
		}
	}
	return PopupUnknown
}
