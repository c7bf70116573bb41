package protocol

import (
	"fmt"
	"strings"

	"github.com/ihebkh25/TTS-Project/pkg/errorsx"
)

const (
	maxMessageLength        = 5000
	maxConversationIDLength = 128
)

// Validate rejects requests the backend would refuse, before any dial
// attempt is made.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return errorsx.New("message cannot be empty", errorsx.ReasonValidate)
	}
	if len(r.Message) > maxMessageLength {
		return errorsx.New(
			fmt.Sprintf("message too long (max %d characters)", maxMessageLength),
			errorsx.ReasonValidate)
	}
	if r.Language != "" && !validLanguageCode(r.Language) {
		return errorsx.New(
			fmt.Sprintf("invalid language code %q, expected ll or ll_CC (e.g. en_US)", r.Language),
			errorsx.ReasonValidate)
	}
	if r.ConversationID != "" && !validConversationID(r.ConversationID) {
		return errorsx.New("invalid conversation id", errorsx.ReasonValidate)
	}
	return nil
}

// validLanguageCode accepts "ll" or "ll_CC" (e.g. en, en_US, de_DE).
func validLanguageCode(code string) bool {
	parts := strings.Split(code, "_")
	switch len(parts) {
	case 1:
		return isLower2(parts[0])
	case 2:
		return isLower2(parts[0]) && isUpper2(parts[1])
	default:
		return false
	}
}

func isLower2(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, c := range s {
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}

func isUpper2(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, c := range s {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

func validConversationID(id string) bool {
	if len(id) > maxConversationIDLength {
		return false
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_' || c == '.':
		default:
			return false
		}
	}
	return true
}
