package listing

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hitoshi/farmsconnect/internal/model"
)

var validate = newValidator()

// newValidator はJSONのフィールド名でエラーを報告するvalidatorを生成する。
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// validateListing は保存前の出品を検証する。
// 違反がある場合は全違反を列挙したValidationErrorを返す。
func validateListing(l *model.Listing) error {
	err := validate.Struct(l)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("出品の検証に失敗しました: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return model.NewValidationError(strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	if ns := fe.Namespace(); strings.Contains(ns, "coordinates") {
		field = "coordinates." + field
	}

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must contain at most %s items", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

// parsePrice は価格文字列を有限の数値に変換する。
func parsePrice(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || !isFinite(v) {
		return 0, model.NewValidationError("price must be a number")
	}
	return v, nil
}

// parseQuantity は数量文字列を整数に変換する。
func parseQuantity(raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, model.NewValidationError("quantity must be an integer")
	}
	return v, nil
}

// parseCoordinates はlat・lngが両方指定された場合のみ座標を返す。
func parseCoordinates(latRaw, lngRaw string) (*model.GeoPoint, error) {
	latRaw, lngRaw = strings.TrimSpace(latRaw), strings.TrimSpace(lngRaw)
	if latRaw == "" || lngRaw == "" {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil || !isFinite(lat) {
		return nil, model.NewValidationError("lat must be a number")
	}
	lng, err := strconv.ParseFloat(lngRaw, 64)
	if err != nil || !isFinite(lng) {
		return nil, model.NewValidationError("lng must be a number")
	}
	return &model.GeoPoint{Lng: lng, Lat: lat}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
