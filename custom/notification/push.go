package notification

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/romana/rlog"
)

// PushMessage is one Expo push payload.
type PushMessage struct {
	To    string      `json:"to"`
	Sound string      `json:"sound"`
	Title string      `json:"title"`
	Body  string      `json:"body"`
	Data  interface{} `json:"data,omitempty"`
}

// SendPushToUser looks up the user's push token and dispatches a single
// notification. A user without a token is a soft failure, not an error.
func (ctx *HandlerContext) SendPushToUser(userId int64, title, body string, data interface{}) DispatchResult {
	rows := make([]struct{ PushToken *string }, 0)
	errDb := ctx.db.Raw(`SELECT push_token FROM users WHERE id = ?`, userId).Scan(&rows).Error
	if errDb != nil {
		rlog.Error("Fetch push token failed: ", errDb.Error())
		return DispatchResult{Success: false, Error: errDb.Error()}
	}
	if len(rows) == 0 || rows[0].PushToken == nil || *rows[0].PushToken == "" {
		return DispatchResult{Success: false, Message: "User has no push token registered"}
	}

	messages := []PushMessage{{To: *rows[0].PushToken, Sound: "default", Title: title, Body: body, Data: data}}
	if err := ctx.postPushMessages(messages); err != nil {
		return DispatchResult{Success: false, Error: err.Error()}
	}
	return DispatchResult{Success: true, Sent: 1}
}

// SendPushToMultipleUsers fans a notification out to every listed user that
// has a token. Users without tokens are silently skipped.
func (ctx *HandlerContext) SendPushToMultipleUsers(userIds []int64, title, body string, data interface{}) DispatchResult {
	rows := make([]struct{ PushToken *string }, 0)
	errDb := ctx.db.Raw(`SELECT push_token FROM users WHERE id = ANY(?) AND push_token IS NOT NULL`, pq.Array(userIds)).Scan(&rows).Error
	if errDb != nil {
		rlog.Error("Fetch push tokens failed: ", errDb.Error())
		return DispatchResult{Success: false, Error: errDb.Error()}
	}

	messages := make([]PushMessage, 0, len(rows))
	for _, row := range rows {
		if row.PushToken == nil || *row.PushToken == "" {
			continue
		}
		messages = append(messages, PushMessage{To: *row.PushToken, Sound: "default", Title: title, Body: body, Data: data})
	}
	if len(messages) == 0 {
		return DispatchResult{Success: false, Message: "No push tokens registered for these users"}
	}

	if err := ctx.postPushMessages(messages); err != nil {
		return DispatchResult{Success: false, Error: err.Error()}
	}
	return DispatchResult{Success: true, Sent: len(messages)}
}

func (ctx *HandlerContext) postPushMessages(messages []PushMessage) error {
	payload, err := json.Marshal(messages)
	if err != nil {
		return errors.Wrap(err, "encode push messages")
	}

	resp, err := http.Post(ctx.PushUrl, "application/json", bytes.NewReader(payload))
	if err != nil {
		rlog.Error("Call push service failed: ", err.Error())
		return errors.Wrap(err, "call push service")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		rlog.Errorf("Push service returned %d: %s", resp.StatusCode, string(respBody))
		return errors.Errorf("push service returned status %d", resp.StatusCode)
	}
	rlog.Infof("Dispatched %d push notification(s)", len(messages))
	return nil
}
