// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// クライアントに返す原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, listing, category, system
	Action   string // クライアント向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeInvalidID        = "INVALID_ID"
	ErrCodeListingNotFound  = "LISTING_NOT_FOUND"
	ErrCodeCategoryNotFound = "CATEGORY_NOT_FOUND"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeDuplicateSlug    = "DUPLICATE_SLUG"
	ErrCodeUserExists       = "USER_EXISTS"
	ErrCodeInvalidLogin     = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// リポジトリ層が一意制約違反を通知するための番兵エラー。
var (
	ErrDuplicateSlug  = errors.New("duplicate category slug")
	ErrDuplicateEmail = errors.New("duplicate user email")
)

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  reason,
		Category: "validation",
		Action:   "Check the request fields and try again.",
	}
}

// NewInvalidIDError はID形式不正エラーを生成する。
// resourceには "listing" などリソース名を渡す。
func NewInvalidIDError(resource string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidID,
		Message:  fmt.Sprintf("Invalid %s ID format", resource),
		Category: "validation",
		Action:   "Use the id returned by the API.",
	}
}

// NewListingNotFoundError は出品未検出エラーを生成する。
func NewListingNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeListingNotFound,
		Message:  "Listing not found",
		Category: "listing",
		Action:   "Check the listing id.",
	}
}

// NewCategoryNotFoundError はカテゴリ未検出エラーを生成する。
func NewCategoryNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeCategoryNotFound,
		Message:  "Category not found",
		Category: "category",
		Action:   "Check the category id.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: "auth",
		Action:   "Log in again.",
	}
}

// NewForbiddenError は所有者以外による変更操作のエラーを生成する。
func NewForbiddenError(action string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  fmt.Sprintf("Not authorized to %s this listing", action),
		Category: "auth",
		Action:   "Only the owner of a listing can change it.",
	}
}

// NewDuplicateSlugError はslug重複エラーを生成する。
// ステータスは400として扱う。
func NewDuplicateSlugError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateSlug,
		Message:  fmt.Sprintf("Category with slug %q already exists.", slug),
		Category: "category",
		Action:   "Choose a different slug.",
	}
}

// NewUserExistsError はメールアドレス重複エラーを生成する。
func NewUserExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeUserExists,
		Message:  "User already exists",
		Category: "auth",
		Action:   "Log in with the existing account.",
	}
}

// NewInvalidLoginError はログイン失敗エラーを生成する。
func NewInvalidLoginError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidLogin,
		Message:  "Invalid email or password",
		Category: "auth",
		Action:   "Check the email and password.",
	}
}

// NewUnauthorizedError は認証失敗エラーを生成する。
func NewUnauthorizedError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  message,
		Category: "auth",
		Action:   "Log in and send the token as a Bearer credential.",
	}
}

// NewInternalError は内部エラーの汎用レスポンスを生成する。
// 詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "Server error",
		Category: "system",
		Action:   "Try again later.",
	}
}
