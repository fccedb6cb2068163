package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/farmsconnect/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 成功レスポンスの{success: true, ...}と対になるようsuccessは常にfalse。
type ErrorResponseBody struct {
	Success  bool   `json:"success"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// statusByCode はAPIErrorコードに対応するHTTPステータス。
// 重複（slug, email）とログイン失敗はクライアントの入力誤りとして400で返す。
var statusByCode = map[string]int{
	model.ErrCodeValidation:       http.StatusBadRequest,
	model.ErrCodeInvalidID:        http.StatusBadRequest,
	model.ErrCodeDuplicateSlug:    http.StatusBadRequest,
	model.ErrCodeUserExists:       http.StatusBadRequest,
	model.ErrCodeInvalidLogin:     http.StatusBadRequest,
	model.ErrCodeUnauthorized:     http.StatusUnauthorized,
	model.ErrCodeForbidden:        http.StatusForbidden,
	model.ErrCodeListingNotFound:  http.StatusNotFound,
	model.ErrCodeCategoryNotFound: http.StatusNotFound,
	model.ErrCodeUserNotFound:     http.StatusNotFound,
	model.ErrCodeInternal:         http.StatusInternalServerError,
}

// StatusForAPIError はAPIErrorのHTTPステータスを返す。未知のコードは500。
func StatusForAPIError(apiErr *model.APIError) int {
	if status, ok := statusByCode[apiErr.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteAPIError はコードに対応するステータスでAPIErrorを書き込む。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	WriteErrorResponse(w, StatusForAPIError(apiErr), apiErr)
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteInternalServerError は詳細を伏せた500レスポンスを書き込む。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteAPIError(w, model.NewInternalError())
}
