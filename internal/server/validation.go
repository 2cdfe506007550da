package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"sketch-party/internal/game"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	maxNameLength = 20
	maxWordLength = 40
	maxChatLength = 200
)

var validatorOnce sync.Once

// registerValidators adds the custom tags to gin's validator engine, which
// also checks websocket payloads.
func registerValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		engine.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = engine.RegisterValidation("name", func(fl validator.FieldLevel) bool {
			_, err := validateName(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("word", func(fl validator.FieldLevel) bool {
			_, err := validateWord(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("chat", func(fl validator.FieldLevel) bool {
			_, err := validateChat(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("roomcode", func(fl validator.FieldLevel) bool {
			return game.IsRoomCode(fl.Field().String())
		})
	})
}

// decodePayload unmarshals an action payload and runs its binding tags.
// Every failure wraps game.ErrInvalidInput.
func decodePayload(data json.RawMessage, dest any) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: malformed payload", game.ErrInvalidInput)
	}
	if err := binding.Validator.ValidateStruct(dest); err != nil {
		return fmt.Errorf("%w: %s", game.ErrInvalidInput, describeValidation(err))
	}
	return nil
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err.Error()
	}
	fe := fieldErrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "name":
		_, detail := validateName(fmt.Sprint(fe.Value()))
		return detail.Error()
	case "word":
		_, detail := validateWord(fmt.Sprint(fe.Value()))
		return detail.Error()
	case "chat":
		_, detail := validateChat(fmt.Sprint(fe.Value()))
		return detail.Error()
	case "roomcode":
		return "room code must be 6 letters or digits"
	default:
		return field + " is invalid"
	}
}

func validateName(name string) (string, error) {
	return validateText("name", name, maxNameLength, isSafeText)
}

func validateWord(word string) (string, error) {
	return validateText("word", word, maxWordLength, isSafeText)
}

func validateChat(text string) (string, error) {
	return validateText("message", text, maxChatLength, isPrintable)
}

func validateText(label, text string, maxLen int, allowed func(string) bool) (string, error) {
	trimmed := normalizeText(text)
	if trimmed == "" {
		return "", fmt.Errorf("%s is required", label)
	}
	if len([]rune(trimmed)) > maxLen {
		return "", fmt.Errorf("%s must be %d characters or fewer", label, maxLen)
	}
	if !allowed(trimmed) {
		return "", fmt.Errorf("%s contains unsupported characters", label)
	}
	return trimmed, nil
}

func normalizeText(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	return strings.Join(fields, " ")
}

func isSafeText(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		switch r {
		case ' ', '-', '_', '\'', '"', '.', ',', '!', '?', ':', ';', '&', '(', ')', '/':
			continue
		default:
			return false
		}
	}
	return true
}

func isPrintable(text string) bool {
	for _, r := range text {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
