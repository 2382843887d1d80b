package source

import (
	"github.com/JakeFAU/contest-crawler/internal/classify"
	"github.com/JakeFAU/contest-crawler/internal/contest"
	"github.com/JakeFAU/contest-crawler/internal/parser"
)

// Catalog returns the built-in sources in crawl order.
func Catalog() []contest.Source {
	return []contest.Source{
		{
			ID: "jeu-concours-biz", Name: "Jeu-Concours.biz", Icon: "🎯", Color: "#007AFF", Country: contest.CountryFR,
			Origin: "https://www.jeu-concours.biz",
			URLs: []string{
				"https://www.jeu-concours.biz/meilleursconcours.php",
				"https://www.jeu-concours.biz/nouveaux-concours.html",
			},
		},
		{
			ID: "ledemondujeu", Name: "Le Démon du Jeu", Icon: "😈", Color: "#5856D6", Country: contest.CountryFR,
			Origin: "https://www.ledemondujeu.com",
			URLs: []string{
				"https://www.ledemondujeu.com/",
				"https://www.ledemondujeu.com/selection-concours.html",
			},
		},
		{
			ID: "concours-du-net", Name: "Concours du Net", Icon: "🌐", Color: "#FF9500", Country: contest.CountryFR,
			Origin: "https://www.concours-du-net.com",
			URLs:   []string{"https://www.concours-du-net.com/"},
		},
		{
			ID: "echantillonsclub", Name: "EchantillonsClub", Icon: "🎁", Color: "#FF2D55", Country: contest.CountryFR,
			URLs: []string{"https://www.echantillonsclub.com/concours"},
		},
		{
			ID: "sweepsadvantage", Name: "SweepsAdvantage", Icon: "🇺🇸", Color: "#FF3B30", Country: contest.CountryINT,
			URLs: []string{"https://www.sweepsadvantage.com/new-sweepstakes"},
		},
		{
			ID: "gleam", Name: "Gleam.io", Icon: "✨", Color: "#9B59B6", Country: contest.CountryINT,
			URLs:   []string{"https://gleam.io/giveaways"},
			Render: true,
		},
	}
}

// Default builds the registry for the built-in catalog with cl shared by every adapter.
func Default(cl *classify.Classifier) *Registry {
	dedicated := map[string]parser.Adapter{
		"jeu-concours-biz": parser.NewJeuConcoursBiz(cl),
		"ledemondujeu":     parser.NewLeDemonDuJeu(cl),
		"concours-du-net":  parser.NewConcoursDuNet(cl),
	}
	reg := New(parser.NewGeneric(cl))
	for _, src := range Catalog() {
		if err := reg.Register(src, dedicated[src.ID]); err != nil {
			panic(err)
		}
	}
	return reg
}
