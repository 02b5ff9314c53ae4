package chirp

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/chirper/internal/model"
)

// DefaultMaxLength はチャープ本文の最大文字数のデフォルト値。
const DefaultMaxLength = 250

// FieldMessage はフォームの本文フィールド名。
const FieldMessage = "message"

// MessageForm はチャープ作成・更新フォームの入力値。
type MessageForm struct {
	Message string `form:"message" validate:"required,chirpmax"`
}

// NewMessageForm は入力値の前後の空白を取り除いてフォームを生成する。
func NewMessageForm(raw string) MessageForm {
	return MessageForm{Message: strings.TrimSpace(raw)}
}

// FormValidator はMessageFormを検証する。
// 最大文字数はバイト数ではなく文字（rune）数で数える。
type FormValidator struct {
	validate  *validator.Validate
	maxLength int
}

// NewFormValidator は最大文字数を指定してFormValidatorを生成する。
func NewFormValidator(maxLength int) *FormValidator {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	// RegisterValidation が失敗するのはタグ名が空の場合のみ
	_ = v.RegisterValidation("chirpmax", func(fl validator.FieldLevel) bool {
		return utf8.RuneCountInString(fl.Field().String()) <= maxLength
	})

	return &FormValidator{validate: v, maxLength: maxLength}
}

// MaxLength は許容される最大文字数を返す。
func (v *FormValidator) MaxLength() int {
	return v.maxLength
}

// Validate はフォームを検証し、違反があれば*model.ValidationErrorを返す。
func (v *FormValidator) Validate(form MessageForm) error {
	err := v.validate.Struct(form)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("フォームの検証に失敗しました: %w", err)
	}

	verr := model.NewValidationError()
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), v.message(fe))
	}
	return verr
}

func (v *FormValidator) message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "メッセージを入力してください。"
	case "chirpmax":
		return fmt.Sprintf("メッセージは%d文字以内で入力してください。", v.maxLength)
	default:
		return "メッセージの形式が正しくありません。"
	}
}
