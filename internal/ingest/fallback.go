package ingest

import (
	"time"

	"github.com/kalambet/signalboard/internal/model"
)

// FallbackPosts is served when no posts source can be read.
func FallbackPosts() []model.Post {
	return []model.Post{
		{ID: "reddit-1", No: 1, Title: "My dog sheds everywhere, especially on furniture", Channel: "r/dogs",
			URL: "https://reddit.com/r/dogs/example1", DetectedTerms: []string{"dog hair", "shedding", "furniture", "cleaning"}},
		{ID: "reddit-2", No: 2, Title: "Best vacuum for pet hair?", Channel: "r/dogs",
			URL: "https://reddit.com/r/dogs/example2", DetectedTerms: []string{"pet hair", "vacuum", "cleaning"}},
		{ID: "reddit-3", No: 3, Title: "Dog anxiety when left alone - any solutions?", Channel: "r/Dogtraining",
			URL: "https://reddit.com/r/Dogtraining/example3", DetectedTerms: []string{"dog anxiety", "alone", "separation anxiety"}},
		{ID: "reddit-4", No: 4, Title: "Pet odor removal tips needed", Channel: "r/pets",
			URL: "https://reddit.com/r/pets/example4", DetectedTerms: []string{"pet odor", "smell", "cleaning"}},
		{ID: "reddit-5", No: 5, Title: "Excessive dog barking at night - help!", Channel: "r/Dogtraining",
			URL: "https://reddit.com/r/Dogtraining/example5", DetectedTerms: []string{"dog barking", "night", "noise"}},
		{ID: "reddit-6", No: 6, Title: "How to keep house cool with pets in summer", Channel: "r/pets",
			URL: "https://reddit.com/r/pets/example6", DetectedTerms: []string{"summer", "heat", "cooling", "pets"}},
		{ID: "reddit-7", No: 7, Title: "Best air purifier for pet allergies?", Channel: "r/Allergies",
			URL: "https://reddit.com/r/Allergies/example7", DetectedTerms: []string{"allergies", "air purifier", "pet dander"}},
		{ID: "reddit-8", No: 8, Title: "Dog hair on clothes - washing tips", Channel: "r/dogs",
			URL: "https://reddit.com/r/dogs/example8", DetectedTerms: []string{"dog hair", "clothes", "washing", "laundry"}},
	}
}

// FallbackProducts is served when the product lineup cannot be read.
func FallbackProducts() []model.Product {
	return []model.Product{
		{ID: "prod-1", Name: "LG Styler", Category: "Home Appliance",
			Tags:         []string{"#가전_세탁", "#털제거", "#의류관리"},
			Capabilities: []string{"Steam refresh", "Pet hair removal", "Odor elimination"}, Active: true},
		{ID: "prod-2", Name: "LG CordZero Vacuum", Category: "Cleaning",
			Tags:         []string{"#청소", "#털제거", "#무선"},
			Capabilities: []string{"Powerful suction", "Pet hair brush", "HEPA filter"}, Active: true},
		{ID: "prod-3", Name: "LG Washer (Tromm)", Category: "Home Appliance",
			Tags:         []string{"#세탁", "#털제거", "#대용량"},
			Capabilities: []string{"TurboWash", "Pet hair removal cycle", "Steam cleaning"}, Active: true},
		{ID: "prod-4", Name: "LG PuriCare Air Purifier", Category: "Air Care",
			Tags:         []string{"#공기청정", "#알레르기", "#반려동물"},
			Capabilities: []string{"360° filtration", "Pet allergen removal", "Smart sensor"}, Active: true},
		{ID: "prod-5", Name: "LG Dehumidifier", Category: "Air Care",
			Tags:         []string{"#제습", "#냄새제거", "#곰팡이방지"},
			Capabilities: []string{"Moisture control", "Odor removal", "Auto mode"}, Active: true},
		{ID: "prod-6", Name: "LG DUALCOOL Air Conditioner", Category: "Climate Control",
			Tags:         []string{"#냉방", "#ThinQ", "#스마트홈"},
			Capabilities: []string{"Fast cooling", "Energy saving", "ThinQ integration"}, Active: true},
		{ID: "prod-7", Name: "LG ThinQ Home", Category: "Smart Home",
			Tags:         []string{"#스마트홈", "#자동화", "#모니터링"},
			Capabilities: []string{"Device control", "Automation", "Remote monitoring"}, Active: true},
		{ID: "prod-8", Name: "LG Soundbar", Category: "Audio",
			Tags:         []string{"#오디오", "#백색소음", "#수면"},
			Capabilities: []string{"White noise mode", "Ambient sound", "Sleep timer"}, Active: true},
		{ID: "prod-9", Name: "LG OLED TV", Category: "Entertainment",
			Tags:         []string{"#TV", "#앰비언트", "#스마트"},
			Capabilities: []string{"Ambient mode", "Gallery mode", "ThinQ AI"}, Active: true},
		{ID: "prod-10", Name: "LG RoboVac", Category: "Cleaning",
			Tags:         []string{"#로봇청소기", "#자동청소", "#털제거"},
			Capabilities: []string{"Auto cleaning", "Pet hair detection", "Smart mapping"}, Active: false},
	}
}

// FallbackScenarios is served when no scenario source can be read.
func FallbackScenarios(now time.Time) []model.Scenario {
	return []model.Scenario{{
		ID:        "scenario-1",
		ClusterID: "0",
		Title:     "Pet Hair Cleanup Solutions",
		Hook:      "Tired of dog hair everywhere? Here's how LG helps",
		Products: []model.Product{{
			ID:           "prod-1",
			Name:         "LG CordZero Vacuum",
			Category:     "Cleaning",
			Tags:         []string{"#청소", "#털제거"},
			Capabilities: []string{"Pet hair brush", "HEPA filter"},
			Active:       true,
		}},
		Rationale: "Pet hair is a common pain point for dog owners",
		Status:    model.StatusNew,
		CreatedAt: now,
	}}
}
