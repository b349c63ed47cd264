package sqlutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/sqlc-dev/pqtype"
)

func TestNullableConverters(t *testing.T) {
	check.Nil(t, FromNullUUID(ToNullUUID(nil)))
	id := uuid.New()
	got := FromNullUUID(ToNullUUID(&id))
	assert.NotNil(t, got)
	check.Equal(t, id, *got)

	check.Nil(t, FromSqlTime(ToSqlTime(nil)))
	check.False(t, ToSqlString("").Valid)
	check.True(t, ToSqlString("bowler").Valid)

	now := time.Date(2024, 3, 22, 19, 30, 0, 0, time.UTC)
	ts := FromSqlTime(ToSqlTime(&now))
	assert.NotNil(t, ts)
	check.True(t, now.Equal(*ts))
}

func TestNullJSON(t *testing.T) {
	null, err := ToNullJSON(nil)
	check.NoError(t, err)
	check.False(t, null.Valid)

	raw, err := ToNullJSON(map[string]int{"fixed": 500})
	check.NoError(t, err)
	check.True(t, raw.Valid)

	var out struct {
		Fixed int `json:"fixed"`
	}
	check.NoError(t, FromNullJSON(raw, &out))
	check.Equal(t, 500, out.Fixed)

	check.NoError(t, FromNullJSON(pqtype.NullRawMessage{}, &out))
	check.Equal(t, 500, out.Fixed)
	check.Error(t, FromNullJSON(pqtype.NullRawMessage{RawMessage: []byte("{"), Valid: true}, &out))
}
