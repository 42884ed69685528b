package monitor

import (
	"fmt"
	"html"

	"coursewatch/internal/scrapers/wmg"
)

const fetchFailedMessage = "⚠️ 監控系統警告\n\n無法獲取頁面內容，可能需要重新登入"

const openMessageTemplate = `🎯 <b>課程報名開放通知！</b>

課程名稱: %s
活動地點: %s
活動日期: %s
報名期間: %s 至 %s
目前狀態: ⭐ 開放報名中 ⭐

快去報名吧！
🔗 報名連結: %s`

// OpenMessage is the alert for an event whose registration just opened.
func OpenMessage(record wmg.EventRecord, link string) string {
	return fmt.Sprintf(
		openMessageTemplate,
		html.EscapeString(record.Name),
		html.EscapeString(record.Location),
		html.EscapeString(record.EventDate),
		html.EscapeString(record.RegistrationStart),
		html.EscapeString(record.RegistrationEnd),
		html.EscapeString(link),
	)
}
