package store

import "github.com/JakeFAU/contest-crawler/internal/contest"

// Dataset is a versioned set of seed contests served when no fresh corpus exists.
type Dataset struct {
	Version  string
	Contests []contest.Contest
}

// DefaultDatasetVersion identifies the built-in seed data.
const DefaultDatasetVersion = "2025.1"

type seedSource struct {
	id, name, icon, color string
	country               contest.Country
}

var (
	seedDemon    = seedSource{"ledemondujeu", "Le Démon du Jeu", "😈", "#5856D6", contest.CountryFR}
	seedConcours = seedSource{"concours-fr", "Concours.fr", "🏆", "#34C759", contest.CountryFR}
	seedJCB      = seedSource{"jeu-concours-biz", "Jeu-Concours.biz", "🎯", "#007AFF", contest.CountryFR}
	seedGleam    = seedSource{"gleam", "Gleam.io", "✨", "#9B59B6", contest.CountryINT}
	seedSamples  = seedSource{"echantillonsclub", "EchantillonsClub", "🎁", "#FF2D55", contest.CountryFR}
	seedReduc    = seedSource{"reducavenue", "Reducavenue", "💰", "#5AC8FA", contest.CountryFR}
)

func seed(id, title, brand string, value int, cat contest.Category, src seedSource, url string) contest.Contest {
	return contest.Contest{
		ID:          id,
		Title:       title,
		Brand:       brand,
		Value:       value,
		Category:    cat,
		Source:      src.id,
		SourceName:  src.name,
		SourceIcon:  src.icon,
		SourceColor: src.color,
		Country:     src.country,
		URL:         url,
		Type:        contest.DefaultType,
	}
}

func withAnswers(c contest.Contest, answers ...string) contest.Contest {
	c.Answers = answers
	return c
}

func markNew(c contest.Contest) contest.Contest {
	c.IsNew = true
	return c
}

// DefaultDataset returns a fresh copy of the built-in seed contests.
func DefaultDataset() Dataset {
	return Dataset{
		Version: DefaultDatasetVersion,
		Contests: []contest.Contest{
			withAnswers(seed("fb-1", "Vol Paris-NY Classe Affaires x2", "Capital.fr", 6000, contest.CategoryVoyage, seedDemon, "https://www.ledemondujeu.com/"),
				"Vols classe affaires vers NY", "Paris, NY, Milan", "Le Wi-fi"),
			markNew(seed("fb-2", "Setup Gaming Corsair", "Materiel.net", 2500, contest.CategoryHighTech, seedConcours, "https://www.concours.fr/")),
			seed("fb-3", "Fauteuil Ivana + pouf", "Femme Actuelle", 2248, contest.CategoryMaison, seedJCB, "https://www.jeu-concours.biz/"),
			markNew(seed("fb-4", "RTX 5090 Founders Edition", "Gleam", 1999, contest.CategoryHighTech, seedGleam, "https://gleam.io/")),
			seed("fb-5", "Galaxy Book 5 Pro + Buds", "Le Point", 1800, contest.CategoryHighTech, seedDemon, "https://www.ledemondujeu.com/"),
			seed("fb-6", "Canapé Bobochic 1500€", "Bobochic Paris", 1500, contest.CategoryMaison, seedConcours, "https://www.concours.fr/"),
			seed("fb-7", "Thermomix TM6", "Thermomix", 1499, contest.CategoryMaison, seedSamples, "https://www.echantillonsclub.com/"),
			withAnswers(seed("fb-8", "Séjour Thalasso Pornic", "Femme Actuelle", 1324, contest.CategoryVoyage, seedJCB, "https://www.jeu-concours.biz/"),
				"Loire Atlantique", "Thalasso et Soins marins"),
			seed("fb-9", "Séjour Center Parcs + Spa", "Center Parcs", 1200, contest.CategoryVoyage, seedConcours, "https://www.concours.fr/"),
			seed("fb-10", "iPhone 16 Pro", "Apple", 1229, contest.CategoryHighTech, seedReduc, "https://www.reducavenue.com/"),
			seed("fb-11", "Lot beauté Gouiran 1000€", "Gouiran Beauté", 1000, contest.CategoryBeaute, seedDemon, "https://www.gouiran-beaute.com/"),
			seed("fb-12", "Four AEG encastrable", "Schmidt", 799, contest.CategoryMaison, seedDemon, "https://www.ledemondujeu.com/"),
			seed("fb-13", "PlayStation 5 Pro", "Sony", 799, contest.CategoryHighTech, seedSamples, "https://www.echantillonsclub.com/"),
			seed("fb-14", "Steam Deck OLED", "Valve", 549, contest.CategoryHighTech, seedGleam, "https://gleam.io/"),
			seed("fb-15", "Canon EOS 2000D", "Challenges", 400, contest.CategoryHighTech, seedJCB, "https://www.jeu-concours.biz/"),
			seed("fb-16", "Casque Bose 700", "Notaires", 330, contest.CategoryHighTech, seedJCB, "https://www.jeu-concours.biz/"),
		},
	}
}
