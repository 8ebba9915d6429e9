package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/vet-eye/serviceflow/internal/knowledge"
	"github.com/vet-eye/serviceflow/internal/models"
	"github.com/vet-eye/serviceflow/internal/schedule"
	"github.com/vet-eye/serviceflow/internal/store"
)

const serialRequestReply = `### Potrzebuję numeru seryjnego Twojego urządzenia

Aby kontynuować diagnostykę, proszę podaj numer seryjny w formacie: SN: XXXX
(gdzie XXXX to właściwy numer seryjny urządzenia)

Numer seryjny znajduje się na naklejce na spodzie lub z tyłu urządzenia.`

// WelcomeMessage is the consent prompt shown when a conversation starts.
const WelcomeMessage = `## 👋 Witaj w serwisie wsparcia technicznego Vet-Eye!

Jestem Agentem AI i moim zadaniem jest udzielenie wsparcia w celu rozwiązania Twoich problemów z urządzeniem wyprodukowanym przez Vet-Eye.

### Aby kontynuować naszą rozmowę potrzebuję Twojej zgody na:

1. Rozpoczęcie interakcji ze mną, jako Agentem AI. Musisz wiedzieć, że nie jestem człowiekiem, tylko systemem sztucznej inteligencji, który będzie przetwarzał informacje wprowadzone przez Ciebie podczas rozmowy w celu zdiagnozowania opisywanych przez Ciebie problemów technicznych i ich rozwiązania, a także

2. Przetwarzanie Twoich danych osobowych przez VetEye Sp. z o.o., jako Administrator danych osobowych, zgodnie z przepisami rozporządzenia RODO, w przypadku konieczności utworzenia zgłoszenia serwisowego.

### Informacje o przetwarzaniu danych:

* Twoje dane osobowe będą zbierane tylko wtedy, gdy nie uda się rozwiązać zgłoszonego problemu i konieczne będzie przygotowanie zlecenia serwisowego
* Twoje dane osobowe będą przetwarzane w celu przygotowania zlecenia serwisowego i jego późniejszej obsługi oraz kontaktu naszego serwisu w sprawie realizacji tego zlecenia
* Twoje dane osobowe będą przechowywane przez okres niezbędny do realizacji usługi oraz wymagany przepisami prawa
* Przysługuje Ci prawo dostępu do swoich danych, ich sprostowania, usunięcia, ograniczenia przetwarzania, a także ich przenoszenia oraz wniesienia sprzeciwu
* Masz prawo wniesienia skargi do Urzędu Ochrony Danych Osobowych, jeżeli Twoje dane osobowe będą przetwarzane niezgodnie z deklaracją Administratora Danych Osobowych
* Szczegółowe informacje znajdziesz w naszej Polityce Prywatności

**Czy wyrażasz zgodę na powyższe warunki? (tak/nie)**

*Uwaga: Brak Twojej zgody na którykolwiek z powyższych punktów, uniemożliwi rozpoczęcie naszej rozmowy, zdiagnozowanie problemu i uzyskanie wsparcia technicznego.*`

func (e *Engine) handleWelcome(c *Context, message string) string {
	if isAffirmative(message) {
		c.GDPRConsent = true
		if !c.Transition(models.StateDeviceVerification) {
			return "Przepraszam, wystąpił błąd podczas przetwarzania zgody. Spróbuj ponownie."
		}
		return `### Dziękuję za zgodę! 🙂

Aby pomóc Ci w diagnostyce, potrzebuję numeru seryjnego Twojego urządzenia. Pomoże mi to lepiej zrozumieć problem i pomóc Ci w jego rozwiązaniu i jednocześnie sprawdzić czy urządzenie jest objęte gwarancją.

**Proszę podaj numer seryjny w formacie: SN: XXXX**
(gdzie XXXX to właściwy numer seryjny urządzenia)`
	}
	if isNegative(message) {
		// Terminal reply without a state change; the customer may still
		// reconsider and answer "tak".
		return `### Rozumiem Twoją decyzję.

Niestety bez Twojej zgody na przetwarzanie danych osobowych i rozmowę z Agentem AI nie możemy kontynuować rozmowy ani udzielić wsparcia technicznego poprzez tego asystenta.

Jeśli nadal potrzebujesz pomocy z urządzeniem, prosimy o bezpośredni kontakt z naszym działem serwisu:

**Telefon:** +48 444 444 444
**E-mail:** serwis@veteye.pl

Nasi specjaliści są dostępni od poniedziałku do piątku w godzinach 8:00-16:00.

Dziękujemy za zrozumienie i życzymy miłego dnia!`
	}
	if c.GDPRConsent {
		return serialRequestReply
	}
	return `### Przepraszam, ale aby kontynuować potrzebuję jasnej odpowiedzi.

Czy wyrażasz zgodę na przetwarzanie danych osobowych zgodnie z RODO w przypadku konieczności utworzenia zgłoszenia serwisowego?

**Proszę odpowiedz: tak lub nie**`
}

func (e *Engine) handleDeviceVerification(ctx context.Context, c *Context, message string) string {
	if !store.HasSerialPrefix(message) {
		return serialRequestReply
	}

	serial := store.NormalizeSerial(message)
	device, err := e.store.GetDeviceBySerial(ctx, serial)
	if err != nil {
		slog.Error("Engine handleDeviceVerification lookup failed", "serial", serial, "error", err)
		return errorReply
	}
	if device == nil {
		return fmt.Sprintf(`### ❌ Nie znaleziono urządzenia

Nie znaleziono urządzenia o numerze seryjnym %s.

Proszę sprawdzić i spróbować ponownie.`, serial)
	}

	c.VerifiedDevice = device
	c.Transition(models.StateIssueAnalysis)
	return fmt.Sprintf(`### ✅ Zweryfikowano urządzenie:

**Model:** %s
**Status gwarancji:** %s

Proszę opisać problem z urządzeniem.`, device.Model, device.WarrantyStatus)
}

func (e *Engine) handleIssueAnalysis(ctx context.Context, c *Context, message string) string {
	if !knowledge.IsOnTopic(message) {
		return "Przepraszam, mogę odpowiadać tylko na pytania związane z urządzeniami Vet-Eye."
	}

	// Too little to diagnose: ignore single-letter words when counting.
	var words int
	for _, w := range strings.Fields(message) {
		if len([]rune(w)) > 1 {
			words++
		}
	}
	if words < 3 && len([]rune(message)) < 20 {
		return `Dziękuję za zgłoszenie problemu. Aby lepiej Ci pomóc, potrzebuję nieco więcej szczegółów.

Czy mógłbyś opisać dokładniej, na czym polega problem z urządzeniem? Na przykład:
- Jakie objawy zauważyłeś?
- Kiedy problem się pojawił?
- Czy występuje w konkretnych sytuacjach?

Im więcej szczegółów podasz, tym lepiej będę mógł zdiagnozować problem.`
	}

	model := "unknown"
	if c.VerifiedDevice != nil {
		model = c.VerifiedDevice.Model
	}
	candidates, _ := e.knowledge.FindSolutions(model, message)
	slog.Info("Engine handleIssueAnalysis found candidates", "count", len(candidates))

	answer, err := e.phraser.AnalyzeIssue(ctx, model, message, candidates)
	if err != nil {
		slog.Error("Engine handleIssueAnalysis phrasing failed", "error", err)
		return "Przepraszam, wystąpił błąd podczas analizy problemu. Spróbuj ponownie."
	}

	c.IssueDescription = message
	if !c.Transition(models.StateCheckResolution) {
		return "Przepraszam, wystąpił błąd podczas analizy problemu. Spróbuj ponownie."
	}
	return fmt.Sprintf("%s\n\n**Czy powyższe instrukcje pomogły rozwiązać Twój problem? (tak/nie)**", answer)
}

// Phrases that read as "the problem persists" even without a literal "nie".
var unresolvedPhrases = []string{"nadal", "wciąż", "dalej", "nie pomogło", "nie działa"}

func (e *Engine) handleCheckResolution(c *Context, message string) string {
	if isAffirmative(message) {
		c.Transition(models.StateEnd)
		return "Cieszę się, że udało się rozwiązać problem! Czy mogę jeszcze w czymś pomóc?"
	}

	lower := strings.ToLower(message)
	unresolved := isNegative(message)
	for _, phrase := range unresolvedPhrases {
		if strings.Contains(lower, phrase) {
			unresolved = true
			break
		}
	}

	cat := categoryFor(c.IssueDescription)

	if unresolved {
		if !isNegative(message) {
			c.appendAdditionalInfo(message)
		}
		c.Attempts++
		switch {
		case c.Attempts == 1:
			return cat.questions
		case c.Attempts == 2:
			return cat.procedure
		default:
			c.Transition(models.StateIssueReported)
			return "Bardzo mi przykro, że nie udało się rozwiązać problemu zdalnie. W takim przypadku najlepszym rozwiązaniem będzie wizyta serwisowa. " +
				"Serwisant będzie mógł bezpośrednio zbadać urządzenie i zdiagnozować przyczynę problemu. Muszę poinformować, że wizyta serwisowa może okazać się płatna nawet w przypadku gdy urządzenie jest objęte gwarancją. Wszystko zależy od przyczyny problemu.\n\n" +
				"Czy chciałbyś umówić wizytę serwisową? (tak/nie)"
		}
	}

	// Ambiguous answer: treat it as supplementary diagnostic data and offer a
	// refined proposal without burning an attempt.
	c.appendAdditionalInfo(message)
	return cat.refined
}

func (c *Context) appendAdditionalInfo(message string) {
	if c.AdditionalInfo == "" {
		c.AdditionalInfo = message
		return
	}
	c.AdditionalInfo += "\n" + message
}

func (e *Engine) handleIssueReported(c *Context, message string) string {
	if isAffirmative(message) {
		c.Transition(models.StateServiceScheduling)
		return "Dziękuję. Aby umówić wizytę serwisową, potrzebuję sprawdzić dostępne terminy. Czy chcesz zobaczyć listę dostępnych terminów? (tak/nie)"
	}
	if isNegative(message) {
		c.Transition(models.StateEnd)
		return "Rozumiem. Jeśli zmienisz zdanie lub problem będzie się powtarzał, proszę o ponowny kontakt. Czy mogę jeszcze w czymś pomóc?"
	}
	return "Przepraszam, nie zrozumiałem odpowiedzi. Czy chcesz umówić wizytę serwisową? (tak/nie)"
}

func (e *Engine) handleServiceScheduling(ctx context.Context, c *Context, message string) string {
	if isAffirmative(message) {
		if c.ShowingSlots {
			return "Proszę wybrać termin z listy powyżej wpisując numer (np. 1, 2, 3...)"
		}
		slots, formatted, err := e.scheduler.GenerateSlots(ctx, time.Now())
		if err != nil {
			slog.Error("Engine handleServiceScheduling slot generation failed", "error", err)
			return errorReply
		}
		if len(slots) == 0 {
			return "Przepraszam, nie znaleziono żadnych dostępnych terminów w najbliższym czasie. Proszę spróbować później."
		}
		c.AvailableSlots = slots
		c.FormattedSlots = formatted
		c.ShowingSlots = true
		return renderSlotList(formatted) +
			"Proszę wybrać termin wpisując jego numer (np. 1, 2, 3...) lub wpisać 'inne' jeśli żaden termin nie odpowiada."
	}

	if isNegative(message) {
		return "Rozumiem. Jeśli zmienisz zdanie, możesz skontaktować się z nami telefonicznie lub przez email, aby umówić wizytę serwisową."
	}

	if c.ShowingSlots {
		if strings.EqualFold(strings.TrimSpace(message), "inne") {
			return "Rozumiem, że żaden z proponowanych terminów nie odpowiada. Proszę o kontakt telefoniczny z serwisem w celu ustalenia dogodnego terminu."
		}
		if n, err := strconv.Atoi(strings.TrimSpace(message)); err == nil {
			if n < 1 || n > len(c.AvailableSlots) {
				return fmt.Sprintf("Proszę wybrać numer z zakresu 1-%d.", len(c.AvailableSlots))
			}
			slot := c.AvailableSlots[n-1]
			c.SelectedSlot = &slot
			c.Transition(models.StateCollectCustomerInfo)
			return "Termin został wybrany. Teraz potrzebuję kilku informacji kontaktowych. Proszę podać imię i nazwisko osoby zgłaszającej problem:"
		}
		return e.handleCustomSlotRequest(ctx, c, message)
	}

	return "Czy chcesz zobaczyć listę dostępnych terminów? (tak/nie)"
}

// handleCustomSlotRequest matches a free-text preferred time against open
// slots within two hours of the wish.
func (e *Engine) handleCustomSlotRequest(ctx context.Context, c *Context, message string) string {
	preferred, err := e.scheduler.ParsePreferredTime(message)
	if err != nil {
		return "Przepraszam, nie rozpoznaję formatu daty. Proszę podać datę w formacie 'DD.MM HH:MM' lub 'dzień tygodnia HH:MM', albo wybrać numer terminu z listy:"
	}

	near, err := e.scheduler.FindNear(ctx, preferred, 2)
	if err != nil {
		slog.Error("Engine handleCustomSlotRequest lookup failed", "error", err)
		return errorReply
	}
	if len(near) == 0 {
		return "Niestety, serwisanci nie mają wolnych terminów w podanym czasie. Proszę podać inny preferowany termin lub wybrać numer terminu z listy powyżej:"
	}

	formatted := make([]string, len(near))
	for i, slot := range near {
		formatted[i] = schedule.FormatSlot(slot)
	}
	c.AvailableSlots = near
	c.FormattedSlots = formatted

	var b strings.Builder
	b.WriteString("Znalazłem następujące dostępne terminy blisko Twojej preferencji:\n")
	for i, slot := range formatted {
		fmt.Fprintf(&b, "%d. %s\n", i+1, slot)
	}
	b.WriteString("\nProszę wybrać termin wpisując jego numer:")
	return b.String()
}

func renderSlotList(formatted []string) string {
	var b strings.Builder
	b.WriteString("Dostępne terminy:\n\n")
	for i, slot := range formatted {
		fmt.Fprintf(&b, "%d. %s\n", i+1, slot)
	}
	return b.String()
}

func (e *Engine) handleCollectCustomerInfo(c *Context, message string) string {
	switch c.CollectStep {
	case models.CollectName:
		c.Customer.Name = message
		c.CollectStep = models.CollectPhone
		return "Dziękuję. Proszę podać numer telefonu kontaktowego:"

	case models.CollectPhone:
		digits := 0
		for _, r := range message {
			if unicode.IsDigit(r) {
				digits++
			}
		}
		if digits < 9 {
			return "Nieprawidłowy numer telefonu. Proszę podać prawidłowy numer:"
		}
		c.Customer.Phone = message
		c.CollectStep = models.CollectEmail
		return "Dziękuję. Proszę podać adres email:"

	case models.CollectEmail:
		if !strings.Contains(message, "@") || !strings.Contains(message, ".") {
			return "Nieprawidłowy adres email. Proszę podać prawidłowy adres:"
		}
		c.Customer.Email = message
		c.CollectStep = models.CollectAddress
		return "Dziękuję. Proszę podać adres dla serwisantów:"

	case models.CollectAddress:
		c.Customer.Address = message
		if c.SelectedSlot == nil {
			c.CollectStep = models.CollectName
			return "Przepraszam, wystąpił błąd przy zbieraniu danych. Spróbujmy jeszcze raz. Proszę podać imię i nazwisko:"
		}
		c.Transition(models.StateConfirmation)
		return fmt.Sprintf(`Proszę potwierdzić dane:

Imię i nazwisko: %s
Telefon: %s
Email: %s
Adres: %s
Termin: %s

Czy wszystkie dane są prawidłowe? (tak/nie)`,
			c.Customer.Name, c.Customer.Phone, c.Customer.Email, c.Customer.Address,
			c.SelectedSlot.Format("02.01.2006 15:04"))
	}

	c.CollectStep = models.CollectName
	return "Przepraszam, wystąpił błąd przy zbieraniu danych. Spróbujmy jeszcze raz. Proszę podać imię i nazwisko:"
}

func (e *Engine) handleConfirmation(ctx context.Context, c *Context, message string) string {
	if isAffirmative(message) {
		return e.finalizeBooking(ctx, c)
	}
	if isNegative(message) {
		// Back through scheduling so the customer can change the slot too.
		c.Transition(models.StateServiceScheduling)
		c.CollectStep = models.CollectName
		return "Rozumiem. Proszę ponownie wybrać termin z listy wpisując jego numer, a następnie podamy dane jeszcze raz."
	}
	return "Przepraszam, nie zrozumiałem odpowiedzi. Czy dane są poprawne? (tak/nie)"
}

func (e *Engine) finalizeBooking(ctx context.Context, c *Context) string {
	if c.SelectedSlot == nil {
		slog.Error("Engine finalizeBooking missing selected slot")
		return errorReply
	}

	model, serial := "Nieznany model", ""
	if c.VerifiedDevice != nil {
		model = c.VerifiedDevice.Model
		serial = c.VerifiedDevice.SerialNumber
	}

	booking := models.Booking{
		Time:          *c.SelectedSlot,
		DeviceModel:   model,
		SerialNumber:  serial,
		Description:   c.IssueDescription,
		CustomerName:  c.Customer.Name,
		CustomerPhone: c.Customer.Phone,
		CustomerEmail: c.Customer.Email,
		CustomerAddr:  c.Customer.Address,
	}

	ref, err := e.store.CreateBooking(ctx, booking)
	if err != nil {
		slog.Error("Engine finalizeBooking create booking failed", "error", err)
		return "Przepraszam, wystąpił błąd podczas dodawania wizyty. Spróbuj ponownie."
	}
	c.BookingRef = ref

	request := models.ServiceRequest{
		SerialNumber: serial,
		Description:  c.IssueDescription,
		Status:       models.RequestStatusScheduled,
		ScheduledAt:  c.SelectedSlot,
	}
	if err := e.store.CreateServiceRequest(ctx, request); err != nil {
		slog.Error("Engine finalizeBooking create service request failed", "error", err)
		return "Przepraszam, wystąpił błąd podczas dodawania wizyty. Spróbuj ponownie."
	}

	// Confirmation SMS is best effort; the visit is booked either way.
	body := fmt.Sprintf("Vet-Eye: wizyta serwisowa zaplanowana na %s. Serwis potwierdzi termin telefonicznie w ciągu 24 godzin.",
		schedule.FormatSlot(*c.SelectedSlot))
	if err := e.notifier.SendConfirmation(ctx, c.Customer.Phone, body); err != nil {
		slog.Warn("Engine finalizeBooking confirmation not sent", "error", err)
	}

	c.Transition(models.StateEnd)
	return "Dziękuję! Wizyta serwisowa została zaplanowana. Wkrótce otrzymasz potwierdzenie na podany adres email oraz telefon z działu serwisu w celu potwierdzenia terminu. Jeśli wizyta nie zostanie potwierdzona telefonicznie w ciągu 24 godzin, zostanie automatycznie anulowana. Będziemy kontaktować się z Tobą na wskazany przez Ciebie numer telefonu w ciągu 24 godzin."
}

func (e *Engine) handleEnd(c *Context, message string) string {
	if isAffirmative(message) {
		c.Reset()
		return "W czym jeszcze mogę pomóc?"
	}
	return "Dziękuję za skorzystanie z asystenta VetEye. Jeśli będziesz potrzebować pomocy, jestem tutaj do dyspozycji. Do widzenia! 👋"
}
