package carmine

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxNameLen = 64
	maxKeyLen  = 1024

	// internalSep and internalPrefix are reserved for engine-owned tables,
	// which are named {collection}::__{suffix}.
	internalSep    = "::"
	internalPrefix = "__"
)

// ValidateStoreName checks a store's display name.
func ValidateStoreName(name string) error {
	return validateName(name, "store name")
}

// ValidateCollectionName checks a collection name. The rules are identical to
// ValidateStoreName.
func ValidateCollectionName(name string) error {
	return validateName(name, "collection name")
}

func validateName(name, subject string) error {
	if len(name) == 0 || len(name) > maxNameLen {
		return validationErrf(subject, name, "must be 1-%d characters", maxNameLen)
	}
	if c := name[0]; !isASCIILetter(c) && c != '_' {
		return validationErrf(subject, name, "must start with a letter or underscore")
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if !isASCIILetter(c) && !isASCIIDigit(c) && c != '_' && c != '-' {
			return validationErrf(subject, name, "contains invalid characters (allowed: a-z A-Z 0-9 _ -)")
		}
	}
	if strings.Contains(name, internalSep) {
		return validationErrf(subject, name, "cannot contain %q (reserved for internal use)", internalSep)
	}
	if strings.Contains(name, internalPrefix) {
		return validationErrf(subject, name, "cannot contain %q (reserved for internal use)", internalPrefix)
	}
	return nil
}

// ValidateKey checks the content of Text and Bytes keys. Int64 and Number keys
// are always valid.
func ValidateKey(key Key) error {
	switch key.KeyKind() {
	case KeyText:
		s, _ := key.AsText()
		if err := validateKeyBytes(s); err != nil {
			return err
		}
		if !utf8.ValidString(s) {
			return validationErrf("key", s, "must be valid UTF-8")
		}
		if strings.IndexFunc(s, unicode.IsControl) >= 0 {
			return validationErrf("key", s, "cannot contain control characters")
		}
		return nil
	case KeyBytes:
		b, _ := key.AsBytes()
		return validateKeyBytes(string(b))
	default:
		return nil
	}
}

func validateKeyBytes(s string) error {
	if len(s) == 0 || len(s) > maxKeyLen {
		return validationErrf("key", s, "must be 1-%d bytes", maxKeyLen)
	}
	if strings.Contains(s, internalSep) {
		return validationErrf("key", s, "cannot contain %q (reserved for internal use)", internalSep)
	}
	if strings.Contains(s, internalPrefix) {
		return validationErrf("key", s, "cannot contain %q (reserved for internal use)", internalPrefix)
	}
	return nil
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isASCIIDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
