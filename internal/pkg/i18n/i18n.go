// Package i18n localises user facing error messages.
package i18n

import (
	"embed"
	"encoding/json"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var locales embed.FS

type Translator struct {
	bundle *goi18n.Bundle
}

// New loads the embedded English and Swahili catalogues.
func New() (*Translator, error) {
	bundle := goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)
	for _, f := range []string{"locales/active.en.json", "locales/active.sw.json"} {
		if _, err := bundle.LoadMessageFileFS(locales, f); err != nil {
			return nil, err
		}
	}
	return &Translator{bundle: bundle}, nil
}

// Translate returns the message for id in the best language from an
// Accept-Language header, or fallback when the catalogue has no entry.
func (t *Translator) Translate(acceptLanguage, id, fallback string) string {
	if t == nil || id == "" {
		return fallback
	}
	loc := goi18n.NewLocalizer(t.bundle, acceptLanguage)
	msg, err := loc.Localize(&goi18n.LocalizeConfig{MessageID: id})
	if err != nil || msg == "" {
		return fallback
	}
	return msg
}
