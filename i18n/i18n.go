// Package i18n translates catalogkit's own user-facing messages.
//
// It wraps gotext behind T() and N(). The .po catalogs are embedded in the
// binary and selected at startup by Init():
//
//	i18n.Init("") // LANGUAGE, LC_ALL, LC_MESSAGES, LANG
//	fmt.Println(i18n.T("Translation check passed"))
//	fmt.Printf(i18n.N("%d missing key", "%d missing keys", n), n)
package i18n

import (
	"embed"
	"os"
	"strings"

	"github.com/leonelquinteros/gotext"
)

// Layout: locales/{lang}/LC_MESSAGES/catalogkit.po
//
//go:embed all:locales
var locales embed.FS

const domain = "catalogkit"

var po *gotext.Locale

// Init selects the message language. An empty lang is detected from the
// environment the way GNU gettext does. Call it once before T or N.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}

	po = gotext.NewLocaleFSWithPath(lang, locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// T translates msgid, or returns it unchanged.
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a message with plural forms chosen by n.
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

func detectLanguage() string {
	for _, env := range []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"} {
		val := os.Getenv(env)
		if val == "" {
			continue
		}
		// LANGUAGE is a colon-separated preference list.
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		// fi_FI.UTF-8 -> fi_FI
		val, _, _ = strings.Cut(val, ".")
		if val == "" || val == "C" || val == "POSIX" {
			continue
		}
		return val
	}
	return "en"
}
