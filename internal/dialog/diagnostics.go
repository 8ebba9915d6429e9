package dialog

import "strings"

// diagCategory groups the scripted follow-ups for one family of symptoms.
// Questions are asked after the first failed fix, the procedure after the
// second, and the refined proposal when the customer supplies extra details
// instead of a plain yes/no.
type diagCategory struct {
	keywords  []string
	questions string
	procedure string
	refined   string
}

// Order matters: the first category whose keyword appears in the issue
// description wins. The last entry has no keywords and always matches.
var diagCategories = []diagCategory{
	{
		keywords: []string{"zdjęcia", "obraz", "jakość obrazu"},
		questions: "Rozumiem, że problem z jakością obrazu nadal występuje. Spróbujmy bardziej szczegółowej diagnozy:\n\n" +
			"1. Kiedy ostatnio czyszczona była głowica urządzenia?\n" +
			"2. Czy problem występuje podczas wszystkich badań, czy tylko w określonych warunkach?\n" +
			"3. Czy próbowano różnych ustawień jasności, kontrastu i ostrości?\n" +
			"4. Czy problem pojawił się nagle, czy jakość pogarszała się stopniowo?\n\n" +
			"Odpowiedzi na te pytania pomogą mi lepiej zrozumieć problem.",
		procedure: "Dziękuję za dodatkowe informacje. Spróbujmy jeszcze jednego rozwiązania dla poprawy jakości obrazu:\n\n" +
			"1. Wykonaj reset do ustawień fabrycznych poprzez menu Ustawienia > System > Resetowanie urządzenia.\n" +
			"2. Dokładnie wyczyść głowicę używając specjalnego preparatu do czyszczenia sond (nie używaj alkoholu ani środków ściernych).\n" +
			"3. Sprawdź połączenia kablowe między głowicą a jednostką główną.\n" +
			"4. Uruchom urządzenie ponownie i wykonaj test kalibracyjny dostępny w menu Diagnostyka.\n\n" +
			"Czy po wykonaniu tych czynności zauważyłeś poprawę jakości obrazu?",
		refined: "Dziękuję za dodatkowe informacje. Na podstawie dostarczonych szczegółów, proponuję następujące rozwiązanie problemu z jakością obrazu:\n\n" +
			"1. Wykonaj pełną kalibrację urządzenia z menu serwisowego (dostęp: przytrzymaj przycisk zasilania + przycisk funkcyjny F2 podczas włączania).\n" +
			"2. Sprawdź, czy wszystkie filtry obrazu są prawidłowo skonfigurowane.\n" +
			"3. Spróbuj przełączyć urządzenie w tryb diagnostyczny, który oferuje lepszą jakość obrazu do celów testowych.\n\n" +
			"Czy udało Ci się wykonać te czynności i czy przyniosły one poprawę?",
	},
	{
		keywords: []string{"restart", "wyłącza", "zawiesza"},
		questions: "Rozumiem, że problem z restartowaniem się nadal występuje. Spróbujmy bardziej szczegółowej diagnozy:\n\n" +
			"1. Czy urządzenie restartuje się w określonych momentach, np. podczas wykonywania konkretnych operacji?\n" +
			"2. Czy na ekranie pojawiają się jakiekolwiek komunikaty błędów przed wyłączeniem?\n" +
			"3. Czy problem nasila się, gdy urządzenie jest używane przez dłuższy czas?\n" +
			"4. Czy próbowano podłączyć urządzenie do innego źródła zasilania?\n\n" +
			"Te informacje pomogą mi lepiej zrozumieć charakter problemu.",
		procedure: "Dziękuję za dodatkowe informacje. Spróbujmy bardziej zaawansowanego rozwiązania problemu z restartami:\n\n" +
			"1. Zaktualizuj oprogramowanie urządzenia do najnowszej wersji (dostępne na stronie producenta).\n" +
			"2. Wykonaj przywracanie ustawień fabrycznych z menu Ustawienia > System > Reset fabryczny.\n" +
			"3. Sprawdź, czy problem występuje na zasilaniu bateryjnym, jeśli urządzenie posiada baterię.\n" +
			"4. Sprawdź, czy urządzenie nie jest podatne na zakłócenia elektromagnetyczne - oddal inne urządzenia elektroniczne.\n\n" +
			"Czy którekolwiek z tych rozwiązań przyniosło poprawę?",
		refined: "Dziękuję za dodatkowe informacje. Na podstawie dostarczonych szczegółów, proponuję następujące rozwiązanie problemu z restartami:\n\n" +
			"1. Wykonaj diagnostykę sprzętową z menu rozruchowego (dostęp przez przytrzymanie przycisku funkcyjnego podczas włączania).\n" +
			"2. Sprawdź logi systemowe, które mogą wskazywać na przyczynę problemów.\n" +
			"3. Jeśli możliwe, podłącz urządzenie do zasilania przez stabilizator napięcia, aby wyeliminować problemy z zasilaniem.\n\n" +
			"Czy udało Ci się wykonać te czynności i czy przyniosły one poprawę?",
	},
	{
		keywords: []string{"gorące", "temperatura", "przegrzewa"},
		questions: "Rozumiem, że problem z przegrzewaniem się nadal występuje. Spróbujmy bardziej szczegółowej diagnozy:\n\n" +
			"1. Jak długo urządzenie pozostaje włączone, zanim staje się gorące?\n" +
			"2. Czy urządzenie stoi na płaskiej powierzchni z dobrą wentylacją?\n" +
			"3. Czy zauważyłeś jakiekolwiek zmiany w wydajności urządzenia w trakcie pracy?\n" +
			"4. Czy słychać pracę wentylatorów wewnątrz urządzenia?\n\n" +
			"Te szczegóły pomogą mi lepiej zrozumieć problem z przegrzewaniem.",
		procedure: genericProcedure,
		refined:   genericRefined,
	},
	{
		keywords: []string{"nie włącza", "nie uruchamia"},
		questions: "Rozumiem, że urządzenie nadal nie chce się włączyć. Spróbujmy bardziej szczegółowej diagnozy:\n\n" +
			"1. Czy na urządzeniu widać jakiekolwiek oznaki aktywności (diody, dźwięki)?\n" +
			"2. Czy próbowano podłączyć urządzenie do innego gniazdka?\n" +
			"3. Czy kabel zasilający jest w dobrym stanie i dobrze podłączony?\n" +
			"4. Czy wystąpiły jakiekolwiek incydenty (upadek, zalanie) przed problemem?\n\n" +
			"Te informacje będą kluczowe w dalszej diagnostyce.",
		procedure: genericProcedure,
		refined:   genericRefined,
	},
	{
		questions: "Rozumiem, że pierwsze rozwiązanie nie pomogło. Spróbujmy bardziej szczegółowej diagnozy:\n\n" +
			"1. Kiedy dokładnie pojawił się problem i jak często występuje?\n" +
			"2. Czy problem występuje w określonych warunkach lub podczas wykonywania konkretnych zadań?\n" +
			"3. Czy przed wystąpieniem problemu urządzenie działało normalnie, czy zauważyłeś jakieś nietypowe zachowania?\n" +
			"4. Czy wykonałeś już jakieś próby naprawy na własną rękę?\n\n" +
			"Te dodatkowe informacje pomogą mi lepiej zrozumieć charakter problemu.",
		procedure: genericProcedure,
		refined:   genericRefined,
	},
}

const genericProcedure = "Dziękuję za dodatkowe informacje. Spróbujmy jeszcze jednego rozwiązania:\n\n" +
	"1. Odłącz urządzenie od zasilania na co najmniej 5 minut.\n" +
	"2. Sprawdź, czy złącza i przewody są dobrze podłączone i nie są uszkodzone.\n" +
	"3. Jeśli urządzenie ma przycisk reset (często mały otwór, który można nacisnąć spinaczem), użyj go.\n" +
	"4. Podłącz urządzenie ponownie i spróbuj je włączyć.\n\n" +
	"Czy po wykonaniu tych kroków zauważyłeś jakąkolwiek poprawę?"

const genericRefined = "Dziękuję za dodatkowe informacje. Na ich podstawie proponuję następujące rozwiązanie:\n\n" +
	"1. Wykonaj pełną diagnostykę urządzenia z menu serwisowego.\n" +
	"2. Sprawdź, czy są dostępne aktualizacje oprogramowania dla Twojego modelu urządzenia.\n" +
	"3. Wykonaj procedurę czyszczenia pamięci podręcznej urządzenia (cache).\n\n" +
	"Czy udało Ci się wykonać te czynności i czy przyniosły one poprawę?"

// categoryFor selects the diagnostic category for an issue description.
func categoryFor(issue string) diagCategory {
	issue = strings.ToLower(issue)
	for _, cat := range diagCategories {
		if len(cat.keywords) == 0 {
			return cat
		}
		for _, kw := range cat.keywords {
			if strings.Contains(issue, kw) {
				return cat
			}
		}
	}
	return diagCategories[len(diagCategories)-1]
}
