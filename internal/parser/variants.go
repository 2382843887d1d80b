package parser

import (
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/contest-crawler/internal/classify"
)

// JeuConcoursBiz parses jeu-concours.biz listings, which carry labelled value and date fields.
type JeuConcoursBiz struct {
	classifier *classify.Classifier
}

// NewJeuConcoursBiz builds the jeu-concours.biz adapter.
func NewJeuConcoursBiz(cl *classify.Classifier) *JeuConcoursBiz {
	return &JeuConcoursBiz{classifier: orDefaultClassifier(cl)}
}

// Name implements Adapter.
func (*JeuConcoursBiz) Name() string { return "jeu-concours-biz" }

// Extract implements Adapter.
func (a *JeuConcoursBiz) Extract(page Page) Extraction {
	return extract(page, ".concours-item, .jeu-concours, article", a.classifier, func(sel *goquery.Selection) (candidate, error) {
		valueText := text(sel, ".valeur, .value, .prix")
		value := a.classifier.Value(valueText)
		if value == 0 {
			value = a.classifier.Amount(valueText)
		}
		c := candidate{
			title:       text(sel, "h2, h3, .titre, .title"),
			brand:       orDefault(text(sel, ".organisateur, .marque, .brand"), "Jeu-Concours.biz"),
			value:       value,
			href:        attr(sel, "a", "href"),
			description: text(sel, ".description, .desc, p"),
			answers:     listAnswers(sel, ".reponses li, .reponses .reponse, .answers li, .answers .reponse"),
			dateText:    text(sel, ".date, .fin, .cloture"),
		}
		return c, requireTitleAndValue(c, 0)
	})
}

// LeDemonDuJeu parses ledemondujeu.com, whose blocks keep the value in free text and
// list answers as "R1> ..." markers.
type LeDemonDuJeu struct {
	classifier *classify.Classifier
}

// NewLeDemonDuJeu builds the ledemondujeu adapter.
func NewLeDemonDuJeu(cl *classify.Classifier) *LeDemonDuJeu {
	return &LeDemonDuJeu{classifier: orDefaultClassifier(cl)}
}

// Name implements Adapter.
func (*LeDemonDuJeu) Name() string { return "ledemondujeu" }

// Extract implements Adapter.
func (a *LeDemonDuJeu) Extract(page Page) Extraction {
	return extract(page, `.concours, .jeu, [class*="concours"]`, a.classifier, func(sel *goquery.Selection) (candidate, error) {
		answersText := sel.Find(".reponses").First().Text()
		if answersText == "" {
			answersText = sel.Find(`[class*="reponse"]`).First().Text()
		}
		c := candidate{
			title:       text(sel, "h2, h3, h4, .titre"),
			brand:       orDefault(text(sel, ".organisateur, .source"), "Le Démon du Jeu"),
			value:       a.classifier.Value(clean(sel.Text())),
			href:        attr(sel, `a[href*="jeu-"], a[href*="concours"]`, "href"),
			description: text(sel, ".principe, .description, p"),
			answers:     markedAnswers(clean(answersText)),
			dateText:    text(sel, ".date, .fin, .cloture"),
		}
		return c, requireTitleAndValue(c, 0)
	})
}

// ConcoursDuNet parses concours-du-net.com. Brand is always the site itself.
type ConcoursDuNet struct {
	classifier *classify.Classifier
}

// NewConcoursDuNet builds the concours-du-net adapter.
func NewConcoursDuNet(cl *classify.Classifier) *ConcoursDuNet {
	return &ConcoursDuNet{classifier: orDefaultClassifier(cl)}
}

// Name implements Adapter.
func (*ConcoursDuNet) Name() string { return "concours-du-net" }

// Extract implements Adapter.
func (a *ConcoursDuNet) Extract(page Page) Extraction {
	return extract(page, ".bloc-concours, .concours-liste article, .jeu", a.classifier, func(sel *goquery.Selection) (candidate, error) {
		c := candidate{
			title: text(sel, "h2, h3, .nom-jeu"),
			brand: "Concours du Net",
			value: a.classifier.Value(clean(sel.Text())),
			href:  attr(sel, "a", "href"),
		}
		return c, requireTitleAndValue(c, 0)
	})
}

// GenericFloor is the minimum value the generic adapter accepts.
const GenericFloor = 50

// Generic is the fallback adapter. Its selectors are broad, so it demands a
// value above GenericFloor and a title longer than three characters.
type Generic struct {
	classifier *classify.Classifier
}

// NewGeneric builds the fallback adapter.
func NewGeneric(cl *classify.Classifier) *Generic {
	return &Generic{classifier: orDefaultClassifier(cl)}
}

// Name implements Adapter.
func (*Generic) Name() string { return "generic" }

// Extract implements Adapter.
func (a *Generic) Extract(page Page) Extraction {
	brand := orDefault(page.SourceName, page.SourceID)
	container := `article, .giveaway, .sweepstakes, .contest, [class*="prize"], [class*="concours"]`
	return extract(page, container, a.classifier, func(sel *goquery.Selection) (candidate, error) {
		c := candidate{
			title: text(sel, "h1, h2, h3, h4, .title, .prize-name"),
			brand: brand,
			value: a.classifier.Value(clean(sel.Text())),
			href:  attr(sel, "a", "href"),
		}
		if c.title != "" && utf8.RuneCountInString(c.title) <= 3 {
			return c, errShortTitle
		}
		return c, requireTitleAndValue(c, GenericFloor)
	})
}

func orDefaultClassifier(cl *classify.Classifier) *classify.Classifier {
	if cl == nil {
		return classify.Default()
	}
	return cl
}
