package messaging

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/propdesk/internal/aggregate"
)

// The backend mixes lower-camel and capitalized field names for the same
// value. Every alias list below is checked in order at ingestion, so nothing
// past this file branches on naming convention.
var (
	idFields        = []string{"userId", "UserId", "UserID", "userID", "id", "Id", "ID"}
	nameFields      = []string{"name", "Name", "fullName", "FullName", "displayName", "DisplayName"}
	firstNameFields = []string{"firstName", "FirstName", "first_name"}
	lastNameFields  = []string{"lastName", "LastName", "last_name"}
	emailFields     = []string{"email", "Email"}
	roleFields      = []string{"role", "Role"}
	companyFields   = []string{"company", "Company", "companyName", "CompanyName"}
	statusFields    = []string{"status", "Status"}

	// A summary's bare "id" is the conversation id, so it is not an alias here.
	counterpartFields = []string{"userId", "UserId", "UserID", "userID", "otherUserId", "OtherUserId", "OtherUserID", "counterpartId", "CounterpartId"}
	unreadFields      = []string{"unreadCount", "UnreadCount", "unread_count", "unread", "Unread"}
	profileFields     = []string{"user", "User", "otherUser", "OtherUser", "counterpart", "Counterpart"}

	messageIDFields = []string{"id", "Id", "ID", "messageId", "MessageId"}
	fromFields      = []string{"fromUserId", "FromUserId", "FromUserID", "senderId", "SenderId", "SenderID", "from"}
	toFields        = []string{"toUserId", "ToUserId", "ToUserID", "receiverId", "ReceiverId", "ReceiverID", "to"}
	contentFields   = []string{"content", "Content", "text", "Text", "body", "Body"}
	createdFields   = []string{"createdAt", "CreatedAt", "created_at", "timestamp", "Timestamp"}
	envelopeFields  = []string{"message", "Message", "data"}
)

// DecodeDirectory normalizes the directory feed into contacts.
// Records without a usable id are dropped.
func DecodeDirectory(raw json.RawMessage) ([]Contact, error) {
	recs, err := aggregate.ExtractList(raw, "users", "Users", "contacts")
	if err != nil {
		return nil, err
	}
	out := make([]Contact, 0, len(recs))
	for _, rec := range recs {
		c := decodeContact(rec)
		if c.UserID == "" {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// DecodeSummaries normalizes the conversation summary feed.
func DecodeSummaries(raw json.RawMessage) ([]Summary, error) {
	recs, err := aggregate.ExtractList(raw, "conversations", "Conversations", "summaries")
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(recs))
	for _, rec := range recs {
		profile := rec
		nested, hasProfile := pick(rec, profileFields...).(map[string]any)
		if hasProfile {
			profile = nested
		}
		id := CanonicalID(pick(rec, counterpartFields...))
		if id == "" && hasProfile {
			id = CanonicalID(pick(profile, idFields...))
		}
		if id == "" {
			continue
		}
		p := decodeContact(profile)
		p.UserID = id
		out = append(out, Summary{
			UserID:      id,
			UnreadCount: intValue(pick(rec, unreadFields...)),
			Profile:     p,
		})
	}
	return out, nil
}

// DecodeMessages normalizes a conversation history. A payload that is not
// a sequence yields an empty history.
func DecodeMessages(raw json.RawMessage) ([]Message, error) {
	recs, err := aggregate.ExtractList(raw, "messages", "Messages", "conversation")
	if err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(recs))
	for _, rec := range recs {
		out = append(out, decodeMessage(rec))
	}
	return out, nil
}

// DecodeSentMessage extracts the persisted message from a send response.
// It reports false when the response carries no message with an id.
func DecodeSentMessage(raw json.RawMessage) (Message, bool) {
	obj, err := aggregate.ExtractObject(raw)
	if err != nil {
		return Message{}, false
	}
	if inner, ok := pick(obj, envelopeFields...).(map[string]any); ok {
		obj = inner
	}
	m := decodeMessage(obj)
	if m.ID == "" {
		return Message{}, false
	}
	return m, true
}

func decodeContact(rec aggregate.Record) Contact {
	name := stringValue(pick(rec, nameFields...))
	if name == "" {
		name = strings.TrimSpace(stringValue(pick(rec, firstNameFields...)) + " " + stringValue(pick(rec, lastNameFields...)))
	}
	email := stringValue(pick(rec, emailFields...))
	if name == "" {
		name = email
	}
	return Contact{
		UserID:  CanonicalID(pick(rec, idFields...)),
		Name:    name,
		Email:   email,
		Role:    stringValue(pick(rec, roleFields...)),
		Company: stringValue(pick(rec, companyFields...)),
		Status:  stringValue(pick(rec, statusFields...)),
	}
}

func decodeMessage(rec aggregate.Record) Message {
	return Message{
		ID:         CanonicalID(pick(rec, messageIDFields...)),
		FromUserID: CanonicalID(pick(rec, fromFields...)),
		ToUserID:   CanonicalID(pick(rec, toFields...)),
		Content:    stringValue(pick(rec, contentFields...)),
		CreatedAt:  timeValue(pick(rec, createdFields...)),
	}
}

// pick returns the first non-null value among keys.
func pick(rec map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func intValue(v any) int {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n)
		}
		if f, err := t.Float64(); err == nil {
			return int(f)
		}
	case float64:
		return int(t)
	case int:
		return t
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n
		}
	}
	return 0
}

// timeValue accepts RFC 3339 strings and unix timestamps in seconds or milliseconds.
func timeValue(v any) time.Time {
	switch t := v.(type) {
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
			if ts, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return ts.UTC()
			}
		}
	case json.Number:
		if n, err := t.Int64(); err == nil {
			if n > 1e12 {
				return time.UnixMilli(n).UTC()
			}
			return time.Unix(n, 0).UTC()
		}
	}
	return time.Time{}
}
