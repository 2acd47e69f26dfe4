package utils

import (
	"encoding/json"
	"log"
	"net/http"
)

// RespondJSON 发送JSON响应
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// RespondOK 发送 success=true 的响应，fields 中的字段原样输出
func RespondOK(w http.ResponseWriter, fields map[string]any) {
	if fields == nil {
		fields = make(map[string]any, 1)
	}
	fields["success"] = true
	RespondJSON(w, http.StatusOK, fields)
}

// RespondError 发送错误响应，客户端据 success=false 识别业务失败
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]any{"success": false, "error": message})
}
