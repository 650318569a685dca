package render

import (
	"fmt"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

var supportedLanguages = []language.Tag{
	language.English,
	language.BrazilianPortuguese,
}

var languageMatcher = language.NewMatcher(supportedLanguages)

var shortMonths = map[language.Base][12]string{
	language.MustParseBase("en"): {"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
	language.MustParseBase("pt"): {"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"},
}

// UI strings are keyed by their English text.
var translations = map[language.Tag]map[string]string{
	language.BrazilianPortuguese: {
		"Load more posts":           "Carregar mais posts",
		"Previous post":             "Post anterior",
		"Next post":                 "Próximo post",
		"%d min":                    "%d min",
		"* edited on %s, at %s":     "* editado em %s, às %s",
		"Exit preview mode":         "Sair do modo Preview",
		"Post not found":            "Post não encontrado",
		"Back to the home page":     "Voltar para a página inicial",
		"Loading...":                "Carregando...",
		"Could not load more posts": "Não foi possível carregar mais posts",
	},
}

var messages = buildCatalog()

func buildCatalog() catalog.Catalog {
	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, entries := range translations {
		for key, msg := range entries {
			if err := builder.SetString(tag, key, msg); err != nil {
				panic(fmt.Sprintf("invalid translation %q: %v", key, err))
			}
		}
	}
	return builder
}

// Locale formats dates and UI strings for one language.
type Locale struct {
	printer  *message.Printer
	caser    cases.Caser
	months   [12]string
	location *time.Location
}

// NewLocale picks the closest supported language. A nil location means time.Local.
func NewLocale(tag language.Tag, location *time.Location) *Locale {
	matched, _, _ := languageMatcher.Match(tag)
	base, _ := matched.Base()

	months, ok := shortMonths[base]
	if !ok {
		months = shortMonths[language.MustParseBase("en")]
	}

	if location == nil {
		location = time.Local
	}

	return &Locale{
		printer:  message.NewPrinter(matched, message.Catalog(messages)),
		caser:    cases.Title(matched),
		months:   months,
		location: location,
	}
}

// T translates a UI string, formatting args into it.
func (l *Locale) T(key string, args ...any) string {
	return l.printer.Sprintf(key, args...)
}

// Date formats t as "d MMM yyyy". Nil formats as "".
func (l *Locale) Date(t *time.Time) string {
	if t == nil {
		return ""
	}
	local := t.In(l.location)
	return fmt.Sprintf("%d %s %d", local.Day(), l.months[local.Month()-1], local.Year())
}

// TitleDate is Date with every word capitalised, as shown in the listing.
func (l *Locale) TitleDate(t *time.Time) string {
	return l.caser.String(l.Date(t))
}

// Edited renders the "edited on" line of a post.
func (l *Locale) Edited(t *time.Time) string {
	if t == nil {
		return ""
	}
	local := t.In(l.location)
	return l.T("* edited on %s, at %s", l.Date(t), local.Format("15:04"))
}

func (l *Locale) ReadingTime(minutes int) string {
	return l.T("%d min", minutes)
}
