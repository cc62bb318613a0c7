package handler

import (
	"community-platform/internal/model"
	"community-platform/internal/model/requestresponse"
	"community-platform/internal/util"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ограничение размера тела запроса
const maxBodyBytes = 1 << 20

var requestValidator = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON : разбирает тело строго (лишние поля и второй JSON объект запрещены)
// и проверяет теги validate. При ошибке ответ 400 уже записан.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := decodeAndValidate(r.Body, target, false); err != nil {
		util.HandleError(w, http.StatusBadRequest, requestresponse.CodeInvalidRequest, err.Error())
		return false
	}
	return true
}

// decodeOptionalJSON : то же, что decodeJSON, но пустое тело допустимо, а
// некорректное тело отбрасывается без ответа клиенту. Возвращает false, если тело отброшено
func decodeOptionalJSON(r *http.Request, target any) bool {
	if err := decodeAndValidate(r.Body, target, true); err != nil {
		zap.L().Debug("тело запроса отброшено",
			zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		return false
	}
	return true
}

func decodeAndValidate(body io.Reader, target any, allowEmpty bool) error {
	decoder := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			return fmt.Errorf("некорректный JSON")
		}
	} else if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("некорректный JSON")
	}

	if err := requestValidator.Struct(target); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			first := validationErrors[0]
			field := first.Field()
			switch first.Tag() {
			case "required":
				return fmt.Errorf("поле %s обязательно", field)
			case "email":
				return fmt.Errorf("некорректный email")
			case "min", "max":
				return fmt.Errorf("недопустимая длина поля %s", field)
			case "alphanum":
				return fmt.Errorf("поле %s должно содержать только латинские буквы и цифры", field)
			default:
				return fmt.Errorf("некорректное поле %s", field)
			}
		}
		return fmt.Errorf("некорректный запрос")
	}

	return nil
}

// writeServiceError : единое место сопоставления ошибок сервисов и HTTP статусов.
// Детали внутренних ошибок клиенту не отдаются.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		util.HandleError(w, http.StatusBadRequest, requestresponse.CodeInvalidRequest, validationMessage(err))
	case errors.Is(err, model.ErrInvalidCredentials):
		util.HandleError(w, http.StatusUnauthorized, requestresponse.CodeInvalidCredentials, model.ErrInvalidCredentials.Error())
	case errors.Is(err, model.ErrInvalidToken):
		util.HandleError(w, http.StatusUnauthorized, requestresponse.CodeInvalidToken, model.ErrInvalidToken.Error())
	case errors.Is(err, model.ErrUnauthorized):
		util.HandleError(w, http.StatusUnauthorized, requestresponse.CodeUnauthorized, model.ErrUnauthorized.Error())
	case errors.Is(err, model.ErrSession):
		util.HandleError(w, http.StatusUnauthorized, requestresponse.CodeSession, model.ErrSession.Error())
	case errors.Is(err, model.ErrAccountBlocked):
		util.HandleError(w, http.StatusForbidden, requestresponse.CodeAccountBlocked, model.ErrAccountBlocked.Error())
	case errors.Is(err, model.ErrForbidden):
		util.HandleError(w, http.StatusForbidden, requestresponse.CodeForbidden, model.ErrForbidden.Error())
	case errors.Is(err, model.ErrNotFound):
		util.HandleError(w, http.StatusNotFound, requestresponse.CodeNotFound, model.ErrNotFound.Error())
	case errors.Is(err, model.ErrConflict):
		util.HandleError(w, http.StatusConflict, requestresponse.CodeConflict, model.ErrConflict.Error())
	default:
		zap.L().Error("внутренняя ошибка обработки запроса",
			zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		util.HandleError(w, http.StatusInternalServerError, requestresponse.CodeInternal, "внутренняя ошибка сервера")
	}
}

// validationMessage : текст после "ошибка валидации: "
func validationMessage(err error) string {
	prefix := model.ErrValidation.Error() + ": "
	if msg, ok := strings.CutPrefix(err.Error(), prefix); ok {
		return msg
	}
	return err.Error()
}
