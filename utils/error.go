package utils

import (
	"errors"
	"fmt"
)

type NoticeLevel string

const (
	NoticeLevelError   NoticeLevel = "error"
	NoticeLevelInfo    NoticeLevel = "info"
	NoticeLevelSuccess NoticeLevel = "success"
)

// Notice is a user-facing message for a failed or empty fetch.
// It wraps the underlying cause so callers can still errors.Is/As through it.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Title   string      `json:"title"`
	Message string      `json:"message"`
	Cause   error       `json:"-"`
}

func (n *Notice) Error() string {
	if n.Cause != nil {
		return fmt.Sprintf("%s: %v", n.Message, n.Cause)
	}
	return n.Message
}

func (n *Notice) Unwrap() error { return n.Cause }

func NewErrorNotice(message string, cause error) *Notice {
	return &Notice{Level: NoticeLevelError, Title: "Error", Message: message, Cause: cause}
}

func NewInfoNotice(message string) *Notice {
	return &Notice{Level: NoticeLevelInfo, Title: "Info", Message: message}
}

// AsNotice returns the Notice in err's chain, or wraps err in a generic one.
func AsNotice(err error, fallback string) *Notice {
	var n *Notice
	if errors.As(err, &n) {
		return n
	}
	return NewErrorNotice(fallback, err)
}

// FieldErrors maps a filter field to its inline validation message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	return "Please fill all required fields"
}

func (fe FieldErrors) Has(field string) bool {
	_, ok := fe[field]
	return ok
}
