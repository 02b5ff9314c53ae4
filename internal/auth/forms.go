package auth

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/chirper/internal/model"
)

// RegisterForm はメールアドレスとパスワードによる新規登録フォーム。
type RegisterForm struct {
	Name                 string `form:"name" validate:"required,max=255"`
	Email                string `form:"email" validate:"required,email,max=255"`
	Password             string `form:"password" validate:"required,min=8,max=72"`
	PasswordConfirmation string `form:"password_confirmation" validate:"eqfield=Password"`
}

// LoginForm はメールアドレスとパスワードによるログインフォーム。
type LoginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

var fieldLabels = map[string]string{
	"name":                  "名前",
	"email":                 "メールアドレス",
	"password":              "パスワード",
	"password_confirmation": "パスワード（確認）",
}

var validate = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateForm はフォームを検証し、違反があれば*model.ValidationErrorを返す。
func validateForm(form interface{}) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("フォームの検証に失敗しました: %w", err)
	}

	verr := model.NewValidationError()
	for _, fe := range fieldErrs {
		verr.Add(fe.Field(), fieldMessage(fe))
	}
	return verr
}

func fieldMessage(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = fe.Field()
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%sを入力してください。", label)
	case "email":
		return "有効なメールアドレスを入力してください。"
	case "min":
		return fmt.Sprintf("%sは%s文字以上で入力してください。", label, fe.Param())
	case "max":
		return fmt.Sprintf("%sは%s文字以内で入力してください。", label, fe.Param())
	case "eqfield":
		return "パスワードが確認用と一致しません。"
	default:
		return fmt.Sprintf("%sの形式が正しくありません。", label)
	}
}
