package service

import (
	"errors"
	"fmt"
)

const (
	CodeNoCheckinChannel        = "NO_CHECKIN_CHANNEL"
	CodeDuplicateTaskName       = "DUPLICATE_TASK_NAME"
	CodeTaskNotFound            = "TASK_NOT_FOUND"
	CodeInvalidChoice           = "INVALID_CHOICE"
	CodeStorageFailure          = "STORAGE_FAILURE"
	CodeCollaboratorUnavailable = "COLLABORATOR_UNAVAILABLE"
	CodeValidation              = "VALIDATION_ERROR"
	CodeForbidden               = "FORBIDDEN"
)

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}

	return busErr
}

// IsCode сообщает, что в цепочке err есть бизнес-ошибка с кодом code
func IsCode(err error, code string) bool {
	var busErr *BusinessError
	return errors.As(err, &busErr) && busErr.Code == code
}

func NewNoCheckinChannel(guildID int64) *BusinessError {
	return NewBusinessError(CodeNoCheckinChannel,
		"A check-in channel has not been configured yet. Use `/set_checkin_channel` to set it first.",
		ToDetail("guild_id", guildID))
}

func NewDuplicateTaskName(name string) *BusinessError {
	return NewBusinessError(CodeDuplicateTaskName,
		fmt.Sprintf("A task named `%s` already exists. Please choose a unique name so I don't get confused...", name),
		ToDetail("name", name))
}

func NewTaskNotFound(name string) *BusinessError {
	return NewBusinessError(CodeTaskNotFound,
		fmt.Sprintf("No task with the name `%s` exists in this server.", name),
		ToDetail("name", name))
}

func NewTaskIDNotFound(taskID int64) *BusinessError {
	return NewBusinessError(CodeTaskNotFound,
		"This task no longer exists, it was probably completed already.",
		ToDetail("task_id", taskID))
}

func NewInvalidChoice(raw string) *BusinessError {
	return NewBusinessError(CodeInvalidChoice,
		fmt.Sprintf("`%s` is not a check-in option I know about.", raw),
		ToDetail("choice", raw))
}

func NewValidationError(field, reason string) *BusinessError {
	return &BusinessError{
		Code:    CodeValidation,
		Message: fmt.Sprintf("Invalid value for '%s': %s", field, reason),
		Details: map[string]any{
			"field":  field,
			"reason": reason,
		},
	}
}

func NewStorageFailure(operation string, err error) *BusinessError {
	busErr := NewBusinessError(CodeStorageFailure,
		"Something went wrong while talking to the database, please try again.",
		ToDetail("operation", operation))
	busErr.Err = err
	return busErr
}

func NewCollaboratorUnavailable(operation string, err error) *BusinessError {
	busErr := NewBusinessError(CodeCollaboratorUnavailable,
		"I couldn't reach the chat platform right now, please try again in a bit.",
		ToDetail("operation", operation))
	busErr.Err = err
	return busErr
}

func NewForbidden(message string) *BusinessError {
	return NewBusinessError(CodeForbidden, message)
}
