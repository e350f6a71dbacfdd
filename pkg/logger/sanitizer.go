package logger

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

const redactedPlaceholder = "[REDACTED]"

// Signing keys come before the generic token rule, which would otherwise
// consume the "token" in "token_key".
var messageRedactions = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(password|passwd|pwd)[\s:=]+\S+`),
	regexp.MustCompile(`(?i)(signing[_-]?key|token[_-]?key|jwt[_-]?key)[\s:=]+\S+`),
	regexp.MustCompile(`(?i)(token|jwt|bearer)[\s:=]+\S+`),
	regexp.MustCompile(`(?i)(secret|private[_-]?key)[\s:=]+\S+`),
}

// Fields whose name contains one of these are never written.
var sensitiveFieldNames = []string{
	"password", "passwd", "pwd",
	"token", "jwt", "bearer",
	"secret", "private_key", "private-key",
	"signing_key", "key_material",
}

// SanitizeLogMessage redacts credential-looking key/value pairs in free text.
func SanitizeLogMessage(message string) string {
	for _, re := range messageRedactions {
		message = re.ReplaceAllString(message, "${1}="+redactedPlaceholder)
	}
	return message
}

func isSensitiveField(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range sensitiveFieldNames {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// SanitizeMap returns a copy of data with sensitive values replaced.
func SanitizeMap(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = sanitizeValue(k, v)
	}
	return out
}

func sanitizeValue(key string, v interface{}) interface{} {
	if isSensitiveField(key) {
		return redactedPlaceholder
	}
	switch val := v.(type) {
	case string:
		return SanitizeLogMessage(val)
	case error:
		return SanitizeLogMessage(val.Error())
	default:
		return v
	}
}

// redactHook scrubs every entry before it is formatted, so a token that slips
// into a message or an error never reaches the output.
type redactHook struct{}

func (redactHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (redactHook) Fire(entry *logrus.Entry) error {
	entry.Message = SanitizeLogMessage(entry.Message)
	for k, v := range entry.Data {
		entry.Data[k] = sanitizeValue(k, v)
	}
	return nil
}
