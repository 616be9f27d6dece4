package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	wrapped := fmt.Errorf("%w: embed query", ErrRetrievalService)
	status, code := StatusOf(wrapped)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, ErrCodeRetrievalService, code)

	status, code = StatusOf(fmt.Errorf("plain"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, ErrCodeInternalError, code)
}

func TestCustomErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := NewError(ErrCodeTransport, "nutrition provider unreachable", http.StatusInternalServerError, cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "nutrition provider unreachable: dial tcp: refused", err.Error())
}

func TestParseJSONBytesRejectsTrailingData(t *testing.T) {
	var v map[string]interface{}
	require.NoError(t, ParseJSONBytes([]byte(`{"a":1}`), &v))
	assert.Equal(t, json.Number("1"), v["a"])

	assert.Error(t, ParseJSONBytes([]byte(`{"a":1} {"b":2}`), &v))
}

func TestNumberValue(t *testing.T) {
	f, ok := NumberValue(json.Number("12.5"))
	assert.True(t, ok)
	assert.Equal(t, 12.5, f)

	_, ok = NumberValue("12.5")
	assert.False(t, ok)
	_, ok = NumberValue(nil)
	assert.False(t, ok)
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 1.23, RoundTo(1.2349, 2))
	assert.Equal(t, 3.0, RoundTo(2.5, 0))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "****", MaskSecret("short"))
	assert.Equal(t, "abcd...wxyz", MaskSecret("abcdefghijklmnopqrstuvwxyz"))
}

func TestRedactURL(t *testing.T) {
	err := &url.Error{
		Op:  "Post",
		URL: "http://127.0.0.1:1/api/nutrition-details?app_id=id&app_key=SUPERSECRET",
		Err: errors.New("dial tcp 127.0.0.1:1: connect: connection refused"),
	}

	redacted := RedactURL(err)
	assert.NotContains(t, redacted.Error(), "SUPERSECRET")
	assert.Contains(t, redacted.Error(), "http://127.0.0.1:1/api/nutrition-details")
	assert.Contains(t, redacted.Error(), "connection refused")
	assert.Contains(t, err.URL, "SUPERSECRET")

	plain := errors.New("plain")
	assert.Equal(t, plain, RedactURL(plain))
	assert.Nil(t, RedactURL(nil))
}
