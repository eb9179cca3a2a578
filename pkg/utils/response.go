package utils

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

// RespondJSON 以给定状态码发送 JSON 响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// RespondError 发送 FastAPI 风格的错误响应：{"detail": message}
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"detail": message})
}

// ErrorDetail 从错误响应体中提取可读信息。FastAPI 返回
// {"detail": "text"}，校验失败时返回
// {"detail": [{"loc": [...], "msg": "..."}]}。其他情况退回到
// 去掉首尾空白的响应体。
func ErrorDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return strings.TrimSpace(string(body))
	}

	if len(envelope.Detail) > 0 {
		var text string
		if err := json.Unmarshal(envelope.Detail, &text); err == nil {
			return text
		}

		var items []struct {
			Loc []interface{} `json:"loc"`
			Msg string        `json:"msg"`
		}
		if err := json.Unmarshal(envelope.Detail, &items); err == nil && len(items) > 0 {
			parts := make([]string, 0, len(items))
			for _, item := range items {
				if field := lastLoc(item.Loc); field != "" {
					parts = append(parts, field+": "+item.Msg)
				} else {
					parts = append(parts, item.Msg)
				}
			}
			return strings.Join(parts, "; ")
		}
	}

	if envelope.Error != "" {
		return envelope.Error
	}
	return strings.TrimSpace(string(body))
}

func lastLoc(loc []interface{}) string {
	if len(loc) == 0 {
		return ""
	}
	if s, ok := loc[len(loc)-1].(string); ok {
		return s
	}
	return ""
}
