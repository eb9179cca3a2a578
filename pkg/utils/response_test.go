package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, http.StatusNotFound, "Course not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Course not found", body["detail"])
}

func TestErrorDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string detail", `{"detail":"Incorrect email or password"}`, "Incorrect email or password"},
		{"validation list", `{"detail":[{"loc":["body","email"],"msg":"value is not a valid email address"},{"loc":["body",0],"msg":"bad"}]}`, "email: value is not a valid email address; bad"},
		{"error field", `{"error":"boom"}`, "boom"},
		{"plain text", "Internal Server Error\n", "Internal Server Error"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorDetail([]byte(tt.body)))
		})
	}
}
