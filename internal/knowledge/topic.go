package knowledge

import (
	"log/slog"
	"strings"
)

// shortQueryLimit is the length at or below which a message is always
// considered on-topic; short replies rarely carry enough signal to classify.
const shortQueryLimit = 30

// onTopicKeywords covers the device/support domain. Presence of any of these
// marks a message on-topic before the off-topic list is consulted.
var onTopicKeywords = []string{
	"błąd", "nie włącza", "awaria", "problem", "usterka", "uszkodzenie",
	"głośny", "hałas", "wyłącza", "przegrzewa", "restart", "ekran",
	"obraz", "zasilanie", "bateria", "akumulator", "wentylator", "głośnik",
	"zamraża", "zawiesza", "nie działa", "nie reaguje", "komunikat",
	"urządzenie", "urzadzenie", "usg", "ultrasonograf", "głowica", "sonda",
	"serwis", "naprawa", "gwarancja", "kalibracja", "aparat",
}

// offTopicKeywords flags clearly unrelated subjects.
var offTopicKeywords = []string{
	// politics
	"polityka", "polityk", "wybory", "sejm", "rząd", "prezydent",
	// celebrities
	"celebryta", "celebrytka", "gwiazda filmowa", "aktor", "piosenkarz",
	// sports
	"sport", "mecz", "piłka nożna", "liga", "mistrzostwa",
	// weather
	"pogoda", "prognoza pogody", "deszcz", "temperatura powietrza",
}

// IsOnTopic classifies whether a message belongs to the device-support
// domain. It is a conservative allow-by-default classifier: short messages
// are on-topic, domain keywords win over the off-topic list, and a message
// matching neither list passes.
func IsOnTopic(message string) bool {
	if len([]rune(message)) <= shortQueryLimit {
		return true
	}

	lower := strings.ToLower(message)
	for _, kw := range onTopicKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, kw := range offTopicKeywords {
		if strings.Contains(lower, kw) {
			slog.Warn("knowledge.IsOnTopic: off-topic message detected", "keyword", kw)
			return false
		}
	}
	return true
}
