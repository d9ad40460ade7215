package storage

import (
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/valter-silva-au/tasktimer/pkg/models"
)

// encMode uses Core Deterministic Encoding so equal rows encode to equal
// bytes. Times keep nanosecond precision as RFC 3339 strings.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("storage: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("storage: CBOR decoder initialization failed: " + err.Error())
	}
}

// changePayload is the outbox row body: the row images before and after
// the mutation. Only the pair for the change's table is set.
type changePayload struct {
	OldTask         *models.Task         `cbor:"old_task,omitempty"`
	NewTask         *models.Task         `cbor:"new_task,omitempty"`
	OldNotification *models.Notification `cbor:"old_notification,omitempty"`
	NewNotification *models.Notification `cbor:"new_notification,omitempty"`
}

func encodePayload(p changePayload) ([]byte, error) {
	return encMode.Marshal(p)
}

func decodePayload(data []byte) (changePayload, error) {
	var p changePayload
	err := decMode.Unmarshal(data, &p)
	return p, err
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
