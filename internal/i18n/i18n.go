// Package i18n renders the user-facing notification texts in the supported
// languages. English is the fallback for anything a catalog does not carry.
package i18n

import (
	"time"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
)

// Message keys. The English text doubles as the key.
const (
	keyDueToday         = "due today"
	keyDueTomorrow      = "due tomorrow"
	keyDueInDays        = "due in %d days"
	keyYourBuilding     = "your building"
	keyDeadlineBody     = "%s priority work order \"%s\" in %s is %s (deadline %s)"
	keyOwnerSuffix      = " (owner: %s)"
	keyMassAssignBody   = "A new mass-assigned work order \"%s\" was created for %s (deadline %s)."
	keyApprovalTitle    = "Approval needed: %s"
	keyApprovalBody     = "%s submitted work order \"%s\" in %s for approval (deadline %s)."
	keyApprovalMailSubj = "Work order awaiting your approval"
	keyPriorityHigh     = "High"
	keyPriorityMedium   = "Medium"
	keyPriorityLow      = "Low"
)

var (
	Bulgarian = language.Bulgarian
	English   = language.English

	supported = []language.Tag{English, Bulgarian}
	matcher   = language.NewMatcher(supported)

	dateLayouts = map[language.Tag]string{
		English:   "Jan 2, 2006",
		Bulgarian: "02.01.2006 г.",
	}

	cat = buildCatalog()
)

func buildCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(English))

	set := func(tag language.Tag, key, msg string) {
		if err := b.SetString(tag, key, msg); err != nil {
			panic(err)
		}
	}

	// English only needs the plural form; plain keys print as themselves.
	if err := b.Set(English, keyDueInDays, plural.Selectf(1, "%d",
		plural.One, "due in %d day",
		plural.Other, "due in %d days",
	)); err != nil {
		panic(err)
	}

	set(Bulgarian, keyDueToday, "с краен срок днес")
	set(Bulgarian, keyDueTomorrow, "с краен срок утре")
	if err := b.Set(Bulgarian, keyDueInDays, plural.Selectf(1, "%d",
		plural.One, "с краен срок след %d ден",
		plural.Other, "с краен срок след %d дни",
	)); err != nil {
		panic(err)
	}
	set(Bulgarian, keyYourBuilding, "вашата сграда")
	set(Bulgarian, keyDeadlineBody, "Поръчка с %[1]s приоритет „%[2]s“ в %[3]s е %[4]s (срок %[5]s)")
	set(Bulgarian, keyOwnerSuffix, " (собственик: %s)")
	set(Bulgarian, keyMassAssignBody, "Създадена е нова масово възложена поръчка „%s“ за %s (срок %s).")
	set(Bulgarian, keyApprovalTitle, "Нужно одобрение: %s")
	set(Bulgarian, keyApprovalBody, "%s изпрати поръчка „%s“ в %s за одобрение (срок %s).")
	set(Bulgarian, keyApprovalMailSubj, "Поръчка очаква вашето одобрение")
	set(Bulgarian, keyPriorityHigh, "висок")
	set(Bulgarian, keyPriorityMedium, "среден")
	set(Bulgarian, keyPriorityLow, "нисък")
	return b
}

// Localizer formats texts for one language. It is immutable and safe for
// concurrent use.
type Localizer struct {
	tag     language.Tag
	printer *message.Printer
}

// New picks the closest supported language for an Accept-Language style
// string. Empty or unknown input yields English.
func New(lang string) *Localizer {
	tag := English
	if lang != "" {
		if tags, _, err := language.ParseAcceptLanguage(lang); err == nil && len(tags) > 0 {
			_, idx, conf := matcher.Match(tags...)
			if conf != language.No {
				tag = supported[idx]
			}
		}
	}
	return &Localizer{tag: tag, printer: message.NewPrinter(tag, message.Catalog(cat))}
}

func (l *Localizer) Language() language.Tag { return l.tag }

// DueText describes how far away a deadline is.
func (l *Localizer) DueText(daysLeft int) string {
	switch daysLeft {
	case 0:
		return l.printer.Sprintf(keyDueToday)
	case 1:
		return l.printer.Sprintf(keyDueTomorrow)
	default:
		return l.printer.Sprintf(keyDueInDays, daysLeft)
	}
}

func (l *Localizer) Date(t time.Time) string {
	return t.Format(dateLayouts[l.tag])
}

func (l *Localizer) BuildingPlaceholder() string {
	return l.printer.Sprintf(keyYourBuilding)
}

func (l *Localizer) PriorityLabel(p models.WorkOrderPriority) string {
	switch p {
	case models.PriorityHigh:
		return l.printer.Sprintf(keyPriorityHigh)
	case models.PriorityMedium:
		return l.printer.Sprintf(keyPriorityMedium)
	case models.PriorityLow:
		return l.printer.Sprintf(keyPriorityLow)
	}
	return string(p)
}

// DeadlineBody is the text of a deadline alert. owner is appended only when
// non-empty.
func (l *Localizer) DeadlineBody(
	priority models.WorkOrderPriority,
	title, building string,
	daysLeft int,
	deadline time.Time,
	owner string,
) string {
	msg := l.printer.Sprintf(keyDeadlineBody,
		l.PriorityLabel(priority), title, building, l.DueText(daysLeft), l.Date(deadline))
	if owner != "" {
		msg += l.printer.Sprintf(keyOwnerSuffix, owner)
	}
	return msg + "."
}

func (l *Localizer) MassAssignBody(title, building string, deadline time.Time) string {
	return l.printer.Sprintf(keyMassAssignBody, title, building, l.Date(deadline))
}

func (l *Localizer) ApprovalTitle(title string) string {
	return l.printer.Sprintf(keyApprovalTitle, title)
}

func (l *Localizer) ApprovalBody(submitter, title, building string, deadline time.Time) string {
	return l.printer.Sprintf(keyApprovalBody, submitter, title, building, l.Date(deadline))
}

func (l *Localizer) ApprovalMailSubject() string {
	return l.printer.Sprintf(keyApprovalMailSubj)
}
