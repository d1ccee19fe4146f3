// Package i18n resolves message IDs to English or Greek text.
package i18n

import (
	"embed"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

const (
	LangEN = "en"
	LangEL = "el"
)

// Confirmation messages returned with successful mutations.
const (
	MsgUserCreated       = "UserCreated"
	MsgUserUpdated       = "UserUpdated"
	MsgUserDeleted       = "UserDeleted"
	MsgCouponCreated     = "CouponCreated"
	MsgCouponUpdated     = "CouponUpdated"
	MsgCouponDeleted     = "CouponDeleted"
	MsgCouponApproved    = "CouponApproved"
	MsgCouponRejected    = "CouponRejected"
	MsgCouponResubmitted = "CouponResubmitted"
	MsgCategoryCreated   = "CategoryCreated"
	MsgCategoryUpdated   = "CategoryUpdated"
	MsgCategoryDeleted   = "CategoryDeleted"
)

//go:embed locales/*.toml
var localeFS embed.FS

var matcher = language.NewMatcher([]language.Tag{language.English, language.Greek})

type Translator struct {
	bundle *i18n.Bundle
}

// New loads the embedded locale files. English is the fallback language.
func New() (*Translator, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, file := range []string{"locales/active.en.toml", "locales/active.el.toml"} {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}
	return &Translator{bundle: bundle}, nil
}

// Translate returns the localized message, or msgID itself when no
// translation exists.
func (t *Translator) Translate(msgID, lang string, data map[string]any) string {
	if t == nil || msgID == "" {
		return msgID
	}
	localizer := i18n.NewLocalizer(t.bundle, lang, LangEN)

	lc := &i18n.LocalizeConfig{MessageID: msgID}
	if len(data) > 0 {
		lc.TemplateData = data
	}
	msg, err := localizer.Localize(lc)
	if err != nil {
		return msgID
	}
	return msg
}

// Negotiate picks a supported language from an explicit choice or an
// Accept-Language header value.
func Negotiate(explicit, acceptLanguage string) string {
	if lang := Normalize(explicit); lang != "" {
		return lang
	}
	if acceptLanguage == "" {
		return LangEN
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return LangEN
	}
	_, idx, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return LangEN
	}
	if idx == 1 {
		return LangEL
	}
	return LangEN
}

// Normalize maps "el", "el-GR" or "EN" to a supported code, or "" if unsupported.
func Normalize(lang string) string {
	code := strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(code, "-_"); i >= 0 {
		code = code[:i]
	}
	switch code {
	case LangEN, LangEL:
		return code
	default:
		return ""
	}
}
