// Package i18n maps failure kinds and server greetings to localized text.
package i18n

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Language selects the localization of user-facing text. The wire form is
// the bare variant name, e.g. "English".
type Language string

// Supported languages.
const (
	English Language = "English"
	Spanish Language = "Spanish"
	French  Language = "French"
)

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	switch l {
	case English, Spanish, French:
		return true
	}
	return false
}

// UnmarshalJSON decodes a language name and rejects unknown variants.
func (l *Language) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	lang := Language(s)
	if !lang.Valid() {
		return fmt.Errorf("unknown language %q", s)
	}
	*l = lang
	return nil
}

// Code identifies one kind of user-facing failure.
type Code string

// Failure kinds. Every code resolves to a message in each supported language.
const (
	CodeInvalidPassword    Code = "invalid_password"
	CodeInvalidAccountName Code = "invalid_account_name"
	CodeInvalidDisplayName Code = "invalid_display_name"
	CodeInvalidEmail       Code = "invalid_email"
	CodeAccountNameTaken   Code = "account_name_taken"
	CodeEmailTaken         Code = "email_taken"
	CodeInvalidLogin       Code = "invalid_login"
	CodeAlreadyFriends     Code = "already_friends"
	CodeUserBlocked        Code = "user_blocked"
	CodeNotConnected       Code = "not_connected"
	CodeNotFriends         Code = "not_friends"
	CodeNotInRoom          Code = "not_in_room"
	CodeUnknownUser        Code = "unknown_user"
	CodeSelfTargeted       Code = "self_targeted"
	CodeInternal           Code = "internal"
)

// codeHello is the greeting pushed on connect. It is not a failure kind and
// is reachable only through Hello.
const codeHello Code = "hello"

//go:embed catalog.yaml
var rawCatalog []byte

var catalog map[Code]map[Language]string

func init() {
	if err := yaml.Unmarshal(rawCatalog, &catalog); err != nil {
		panic(fmt.Sprintf("i18n: parse embedded catalog: %v", err))
	}
}

// Codes returns every failure kind, in a fixed order. Used by catalog tests
// and by anything that needs to enumerate the taxonomy.
func Codes() []Code {
	return []Code{
		CodeInvalidPassword,
		CodeInvalidAccountName,
		CodeInvalidDisplayName,
		CodeInvalidEmail,
		CodeAccountNameTaken,
		CodeEmailTaken,
		CodeInvalidLogin,
		CodeAlreadyFriends,
		CodeUserBlocked,
		CodeNotConnected,
		CodeNotFriends,
		CodeNotInRoom,
		CodeUnknownUser,
		CodeSelfTargeted,
		CodeInternal,
	}
}

// T returns the localized message for a failure kind. Unknown codes resolve
// to the internal-error message; missing translations fall back to English.
func T(lang Language, code Code) string {
	msgs, ok := catalog[code]
	if !ok {
		msgs = catalog[CodeInternal]
	}
	if s, ok := msgs[lang]; ok && s != "" {
		return s
	}
	return msgs[English]
}

// Hello returns the localized connection greeting.
func Hello(lang Language) string {
	return T(lang, codeHello)
}
