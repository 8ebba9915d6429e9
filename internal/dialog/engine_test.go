package dialog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vet-eye/serviceflow/internal/knowledge"
	"github.com/vet-eye/serviceflow/internal/models"
	"github.com/vet-eye/serviceflow/internal/notify"
	"github.com/vet-eye/serviceflow/internal/schedule"
	"github.com/vet-eye/serviceflow/internal/store"
)

// fakePhraser records calls and returns a canned answer or error.
type fakePhraser struct {
	reply string
	err   error
	calls int
}

func (f *fakePhraser) AnalyzeIssue(ctx context.Context, deviceModel, issue string, candidates []models.SolutionCandidate) (string, error) {
	f.calls++
	return f.reply, f.err
}

// failingStore errs on every operation.
type failingStore struct{}

func (failingStore) GetDeviceBySerial(ctx context.Context, serial string) (*models.Device, error) {
	return nil, errors.New("db down")
}
func (failingStore) ListBookedTimes(ctx context.Context) ([]time.Time, error) {
	return nil, errors.New("db down")
}
func (failingStore) CreateBooking(ctx context.Context, b models.Booking) (models.BookingRef, error) {
	return models.BookingRef{}, errors.New("db down")
}
func (failingStore) CreateServiceRequest(ctx context.Context, r models.ServiceRequest) error {
	return errors.New("db down")
}

// failingNotifier errs on every send.
type failingNotifier struct{}

func (failingNotifier) SendConfirmation(ctx context.Context, to, body string) error {
	return errors.New("sms gateway down")
}

func newTestEngine(t *testing.T) (*Engine, *store.InMemoryStore, *fakePhraser) {
	t.Helper()
	st := store.NewInMemoryStore()
	st.AddDevice(models.Device{SerialNumber: "12345", Model: "VE-500", WarrantyStatus: "Aktywna"})

	phraser := &fakePhraser{reply: "Proponuję wyczyścić głowicę i wykonać kalibrację."}
	scheduler := schedule.NewScheduler(st)
	engine := NewEngine(st, &knowledge.Base{}, scheduler, phraser, notify.NoopNotifier{})
	return engine, st, phraser
}

func contextInState(state models.ConversationState) *Context {
	c := NewContext()
	c.currentState = state
	return c
}

func TestWelcomeConsent(t *testing.T) {
	e, _, _ := newTestEngine(t)
	c := NewContext()

	reply := e.Handle(context.Background(), c, "tak")

	if !c.GDPRConsent {
		t.Error("consent not recorded")
	}
	if c.CurrentState() != models.StateDeviceVerification {
		t.Errorf("state = %s, want %s", c.CurrentState(), models.StateDeviceVerification)
	}
	if !strings.Contains(reply, "Dziękuję za zgodę") || !strings.Contains(reply, "SN: XXXX") {
		t.Errorf("reply = %q, want thanks plus a serial request", reply)
	}
}

func TestWelcomeDeclineStaysPut(t *testing.T) {
	e, _, _ := newTestEngine(t)
	c := NewContext()

	reply := e.Handle(context.Background(), c, "nie")

	if c.CurrentState() != models.StateWelcome {
		t.Errorf("declining consent must not change state, got %s", c.CurrentState())
	}
	if !strings.Contains(reply, "serwis@veteye.pl") {
		t.Errorf("reply = %q, want the direct-contact details", reply)
	}
}

func TestWelcomeUnclearAnswer(t *testing.T) {
	e, _, _ := newTestEngine(t)
	c := NewContext()

	reply := e.Handle(context.Background(), c, "hmm, nie wiem")
	if !strings.Contains(reply, "tak lub nie") {
		t.Errorf("reply = %q, want a clarification request", reply)
	}
	if c.CurrentState() != models.StateWelcome {
		t.Errorf("state = %s, want %s", c.CurrentState(), models.StateWelcome)
	}
}

func TestDeviceVerificationSuccess(t *testing.T) {
	e, _, _ := newTestEngine(t)
	c := contextInState(models.StateDeviceVerification)

	reply := e.Handle(context.Background(), c, "SN: 12345")

	if c.CurrentState() != models.StateIssueAnalysis {
		t.Errorf("state = %s, want %s", c.CurrentState(), models.StateIssueAnalysis)
	}
	if c.VerifiedDevice == nil || c.VerifiedDevice.Model != "VE-500" {
		t.Errorf("verified device = %+v", c.VerifiedDevice)
	}
	if !strings.Contains(reply, "VE-500") || !strings.Contains(reply, "Aktywna") {
		t.Errorf("reply = %q, want model and warranty status", reply)
	}
}

func TestDeviceVerificationUnknownSerial(t *testing.T) {
	e, _, _ := newTestEngine(t)
	c := contextInState(models.StateDeviceVerification)

	reply := e.Handle(context.Background(), c, "SN: 404")

	if c.CurrentState() != models.StateDeviceVerification {
		t.Errorf("state must not change on a failed lookup, got %s", c.CurrentState())
	}
	if !strings.Contains(reply, "Nie znaleziono urządzenia") {
		t.Errorf("reply = %q", reply)
	}
}

func TestDeviceVerificationNonSerialInput(t *testing.T) {
	e, _, _ := newTestEngine(t)
	c := contextInState(models.StateDeviceVerification)

	reply := e.Handle(context.Background(), c, "mój monitor nie działa")
	if !strings.Contains(reply, "numeru seryjnego") {
		t.Errorf("reply = %q, want a serial request", reply)
	}
}

func TestDeviceVerificationStoreError(t *testing.T) {
	_, _, phraser := newTestEngine(t)
	e := NewEngine(failingStore{}, &knowledge.Base{}, schedule.NewScheduler(failingStore{}), phraser, nil)
	c := contextInState(models.StateDeviceVerification)

	reply := e.Handle(context.Background(), c, "SN: 12345")

	if c.CurrentState() != models.StateDeviceVerification {
		t.Errorf("collaborator failure must not advance state, got %s", c.CurrentState())
	}
	if !strings.Contains(reply, "Przepraszam") {
		t.Errorf("reply = %q, want an apology", reply)
	}
}

func TestIssueAnalysisShortDescription(t *testing.T) {
	e, _, phraser := newTestEngine(t)
	c := contextInState(models.StateIssueAnalysis)
	c.VerifiedDevice = &models.Device{Model: "VE-500"}

	reply := e.Handle(context.Background(), c, "hałas")

	if c.CurrentState() != models.StateIssueAnalysis {
		t.Errorf("short description must not advance state, got %s", c.CurrentState())
	}
	if phraser.calls != 0 {
		t.Error("phraser must not be consulted for too-short descriptions")
	}
	if !strings.Contains(reply, "więcej szczegółów") {
		t.Errorf("reply = %q", reply)
	}
}

func TestIssueAnalysisProposesSolution(t *testing.T) {
	e, _, phraser := newTestEngine(t)
	c := contextInState(models.StateIssueAnalysis)
	c.VerifiedDevice = &models.Device{Model: "VE-500"}

	issue := "obraz podczas badania jest zaszumiony i niewyraźny"
	reply := e.Handle(context.Background(), c, issue)

	if c.CurrentState() != models.StateCheckResolution {
		t.Errorf("state = %s, want %s", c.CurrentState(), models.StateCheckResolution)
	}
	if c.IssueDescription != issue {
		t.Errorf("issue description = %q", c.IssueDescription)
	}
	if phraser.calls != 1 {
		t.Errorf("phraser calls = %d, want 1", phraser.calls)
	}
	if !strings.Contains(reply, phraser.reply) || !strings.Contains(reply, "Czy powyższe instrukcje pomogły") {
		t.Errorf("reply = %q", reply)
	}
}

func TestIssueAnalysisPhraserError(t *testing.T) {
	e, _, phraser := newTestEngine(t)
	phraser.err = errors.New("api down")
	c := contextInState(models.StateIssueAnalysis)
	c.VerifiedDevice = &models.Device{Model: "VE-500"}

	reply := e.Handle(context.Background(), c, "obraz podczas badania jest zaszumiony i niewyraźny")

	if c.CurrentState() != models.StateIssueAnalysis {
		t.Errorf("phraser failure must not advance state, got %s", c.CurrentState())
	}
	if !strings.Contains(reply, "Przepraszam") {
		t.Errorf("reply = %q, want an apology", reply)
	}
}

func TestCheckResolutionResolved(t *testing.T) {
	e, _, _ := newTestEngine(t)
	c := contextInState(models.StateCheckResolution)

	reply := e.Handle(context.Background(), c, "tak")

	if c.CurrentState() != models.StateEnd {
		t.Errorf("state = %s, want %s", c.CurrentState(), models.StateEnd)
	}
	if !strings.Contains(reply, "Cieszę się") {
		t.Errorf("reply = %q", reply)
	}
}

func TestCheckResolutionEscalatesOnThirdFailure(t *testing.T) {
	e, _, _ := newTestEngine(t)
	c := contextInState(models.StateCheckResolution)
	c.IssueDescription = "obraz jest zaszumiony"

	first := e.Handle(context.Background(), c, "nie")
	if c.Attempts != 1 || c.CurrentState() != models.StateCheckResolution {
		t.Fatalf("after first failure: attempts=%d state=%s", c.Attempts, c.CurrentState())
	}
	if !strings.Contains(first, "jakością obrazu") {
		t.Errorf("first follow-up not tailored to the image category: %q", first)
	}

	second := e.Handle(context.Background(), c, "nie pomogło")
	if c.Attempts != 2 || c.CurrentState() != models.StateCheckResolution {
		t.Fatalf("after second failure: attempts=%d state=%s", c.Attempts, c.CurrentState())
	}
	if !strings.Contains(second, "jeszcze jednego rozwiązania") {
		t.Errorf("second follow-up should be a concrete procedure: %q", second)
	}

	third := e.Handle(context.Background(), c, "nie")
	if c.CurrentState() != models.StateIssueReported {
		t.Fatalf("after third failure: state=%s, want %s", c.CurrentState(), models.StateIssueReported)
	}
	if !strings.Contains(third, "wizytę serwisową") {
		t.Errorf("third reply = %q, want a visit proposal", third)
	}
}

func TestCheckResolutionAmbiguousInputKeepsAttempts(t *testing.T) {
	e, _, _ := newTestEngine(t)
	c := contextInState(models.StateCheckResolution)
	c.IssueDescription = "urządzenie robi dziwne dźwięki"

	reply := e.Handle(context.Background(), c, "sprawdziłem kable, wszystko podłączone")

	if c.Attempts != 0 {
		t.Errorf("ambiguous input consumed an attempt: %d", c.Attempts)
	}
	if c.CurrentState() != models.StateCheckResolution {
		t.Errorf("state = %s, want %s", c.CurrentState(), models.StateCheckResolution)
	}
	if c.AdditionalInfo == "" {
		t.Error("ambiguous input must be kept as supplementary data")
	}
	if !strings.Contains(reply, "proponuję następujące rozwiązanie") {
		t.Errorf("reply = %q, want a refined proposal", reply)
	}
}

func TestCheckResolutionAccumulatesDetails(t *testing.T) {
	e, _, _ := newTestEngine(t)
	c := contextInState(models.StateCheckResolution)
	c.IssueDescription = "problem z zasilaniem"

	e.Handle(context.Background(), c, "niestety nadal nie działa po restarcie")
	if c.Attempts != 1 {
		t.Fatalf("a message naming the persistence phrases must consume an attempt, got %d", c.Attempts)
	}
	if !strings.Contains(c.AdditionalInfo, "po restarcie") {
		t.Errorf("details not accumulated: %q", c.AdditionalInfo)
	}
}

func TestIssueReportedBranches(t *testing.T) {
	e, _, _ := newTestEngine(t)

	c := contextInState(models.StateIssueReported)
	e.Handle(context.Background(), c, "tak")
	if c.CurrentState() != models.StateServiceScheduling {
		t.Errorf("accepting the visit: state = %s", c.CurrentState())
	}

	c = contextInState(models.StateIssueReported)
	e.Handle(context.Background(), c, "nie")
	if c.CurrentState() != models.StateEnd {
		t.Errorf("declining the visit: state = %s", c.CurrentState())
	}

	c = contextInState(models.StateIssueReported)
	e.Handle(context.Background(), c, "co?")
	if c.CurrentState() != models.StateIssueReported {
		t.Errorf("unclear answer must not move: state = %s", c.CurrentState())
	}
}

func TestSchedulingListsAndSelectsSlot(t *testing.T) {
	e, _, _ := newTestEngine(t)
	c := contextInState(models.StateServiceScheduling)

	listing := e.Handle(context.Background(), c, "tak")
	if !strings.Contains(listing, "Dostępne terminy:") {
		t.Fatalf("reply = %q, want the slot list", listing)
	}
	if !c.ShowingSlots || len(c.AvailableSlots) == 0 {
		t.Fatal("slots not recorded in context")
	}

	reply := e.Handle(context.Background(), c, "1")
	if c.CurrentState() != models.StateCollectCustomerInfo {
		t.Fatalf("state = %s, want %s", c.CurrentState(), models.StateCollectCustomerInfo)
	}
	if c.SelectedSlot == nil || !c.SelectedSlot.Equal(c.AvailableSlots[0]) {
		t.Error("selected slot does not match the listed entry")
	}
	if !strings.Contains(reply, "imię i nazwisko") {
		t.Errorf("reply = %q", reply)
	}
}

func TestSchedulingRejectsOutOfRangeSelection(t *testing.T) {
	e, _, _ := newTestEngine(t)
	c := contextInState(models.StateServiceScheduling)

	e.Handle(context.Background(), c, "tak")
	reply := e.Handle(context.Background(), c, "999")

	if c.CurrentState() != models.StateServiceScheduling {
		t.Errorf("state = %s", c.CurrentState())
	}
	if !strings.Contains(reply, "z zakresu") {
		t.Errorf("reply = %q, want a range hint", reply)
	}
}

func TestSchedulingNoSuitableSlotSuggestsDirectContact(t *testing.T) {
	e, _, _ := newTestEngine(t)
	c := contextInState(models.StateServiceScheduling)

	e.Handle(context.Background(), c, "tak")
	reply := e.Handle(context.Background(), c, "inne")

	if !strings.Contains(reply, "kontakt telefoniczny z serwisem") {
		t.Errorf("reply = %q, want a direct-contact suggestion", reply)
	}
	if c.CurrentState() != models.StateServiceScheduling {
		t.Errorf("state = %s, want %s", c.CurrentState(), models.StateServiceScheduling)
	}
	if c.SelectedSlot != nil {
		t.Error("no slot may be selected on 'inne'")
	}
}

func TestSchedulingPreferredTime(t *testing.T) {
	e, _, _ := newTestEngine(t)
	c := contextInState(models.StateServiceScheduling)

	e.Handle(context.Background(), c, "tak")
	reply := e.Handle(context.Background(), c, "piątek 10:00")

	if !strings.Contains(reply, "blisko Twojej preferencji") {
		t.Fatalf("reply = %q, want nearby slots", reply)
	}
	if len(c.AvailableSlots) == 0 || len(c.AvailableSlots) != len(c.FormattedSlots) {
		t.Errorf("nearby slots not recorded: %d slots, %d formatted", len(c.AvailableSlots), len(c.FormattedSlots))
	}
}

func TestSchedulingUnparseablePreference(t *testing.T) {
	e, _, _ := newTestEngine(t)
	c := contextInState(models.StateServiceScheduling)

	e.Handle(context.Background(), c, "tak")
	reply := e.Handle(context.Background(), c, "kiedyś tam")

	if !strings.Contains(reply, "nie rozpoznaję formatu daty") {
		t.Errorf("reply = %q", reply)
	}
}

func TestCollectCustomerInfoValidation(t *testing.T) {
	e, _, _ := newTestEngine(t)
	c := contextInState(models.StateCollectCustomerInfo)
	slot := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	c.SelectedSlot = &slot

	e.Handle(context.Background(), c, "Jan Kowalski")
	if c.CollectStep != models.CollectPhone {
		t.Fatalf("after name: step = %s", c.CollectStep)
	}

	reply := e.Handle(context.Background(), c, "123")
	if c.CollectStep != models.CollectPhone {
		t.Fatal("a too-short phone number must not advance the step")
	}
	if !strings.Contains(reply, "Nieprawidłowy numer telefonu") {
		t.Errorf("reply = %q", reply)
	}

	e.Handle(context.Background(), c, "abc def ghi")
	if c.CollectStep != models.CollectPhone {
		t.Fatal("letters are not digits, the step must not advance")
	}

	e.Handle(context.Background(), c, "123 456 789")
	if c.CollectStep != models.CollectEmail {
		t.Fatalf("after phone: step = %s", c.CollectStep)
	}

	reply = e.Handle(context.Background(), c, "not-an-email")
	if c.CollectStep != models.CollectEmail {
		t.Fatal("an invalid email must not advance the step")
	}
	if !strings.Contains(reply, "Nieprawidłowy adres email") {
		t.Errorf("reply = %q", reply)
	}

	e.Handle(context.Background(), c, "jan@example.com")
	if c.CollectStep != models.CollectAddress {
		t.Fatalf("after email: step = %s", c.CollectStep)
	}

	summary := e.Handle(context.Background(), c, "ul. Długa 5, Warszawa")
	if c.CurrentState() != models.StateConfirmation {
		t.Fatalf("after address: state = %s", c.CurrentState())
	}
	for _, want := range []string{"Jan Kowalski", "123 456 789", "jan@example.com", "ul. Długa 5, Warszawa", "05.01.2026 09:00"} {
		if !strings.Contains(summary, want) {
			t.Errorf("summary missing %q: %q", want, summary)
		}
	}
}

func TestConfirmationCreatesBookingAndRequest(t *testing.T) {
	e, st, _ := newTestEngine(t)
	c := contextInState(models.StateConfirmation)
	slot := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	c.SelectedSlot = &slot
	c.VerifiedDevice = &models.Device{SerialNumber: "12345", Model: "VE-500"}
	c.IssueDescription = "obraz zaszumiony"
	c.Customer = models.CustomerInfo{Name: "Jan Kowalski", Phone: "123456789", Email: "jan@example.com", Address: "ul. Długa 5"}

	reply := e.Handle(context.Background(), c, "tak")

	if c.CurrentState() != models.StateEnd {
		t.Fatalf("state = %s, want %s", c.CurrentState(), models.StateEnd)
	}
	if c.BookingRef.ID == "" {
		t.Error("booking reference not recorded in context")
	}
	if !strings.Contains(reply, "została zaplanowana") {
		t.Errorf("reply = %q", reply)
	}

	bookings := st.Bookings()
	if len(bookings) != 1 {
		t.Fatalf("got %d bookings, want 1", len(bookings))
	}
	if bookings[0].DeviceModel != "VE-500" || !bookings[0].Time.Equal(slot) {
		t.Errorf("booking = %+v", bookings[0])
	}

	requests := st.ServiceRequests()
	if len(requests) != 1 {
		t.Fatalf("got %d service requests, want 1", len(requests))
	}
	if requests[0].Status != models.RequestStatusScheduled || requests[0].ScheduledAt == nil {
		t.Errorf("service request = %+v", requests[0])
	}
}

func TestConfirmationSucceedsWhenNotificationFails(t *testing.T) {
	st := store.NewInMemoryStore()
	scheduler := schedule.NewScheduler(st)
	e := NewEngine(st, &knowledge.Base{}, scheduler, &fakePhraser{}, failingNotifier{})

	c := contextInState(models.StateConfirmation)
	slot := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	c.SelectedSlot = &slot
	c.VerifiedDevice = &models.Device{SerialNumber: "12345", Model: "VE-500"}
	c.Customer = models.CustomerInfo{Name: "Jan Kowalski", Phone: "123456789", Email: "jan@example.com", Address: "ul. Długa 5"}

	reply := e.Handle(context.Background(), c, "tak")

	if c.CurrentState() != models.StateEnd {
		t.Fatalf("state = %s, want %s", c.CurrentState(), models.StateEnd)
	}
	if len(st.Bookings()) != 1 {
		t.Fatalf("got %d bookings, want 1", len(st.Bookings()))
	}
	if !strings.Contains(reply, "została zaplanowana") {
		t.Errorf("reply = %q, want the booking confirmation", reply)
	}
}

func TestConfirmationStoreFailureKeepsState(t *testing.T) {
	_, _, phraser := newTestEngine(t)
	e := NewEngine(failingStore{}, &knowledge.Base{}, schedule.NewScheduler(failingStore{}), phraser, nil)
	c := contextInState(models.StateConfirmation)
	slot := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	c.SelectedSlot = &slot

	reply := e.Handle(context.Background(), c, "tak")

	if c.CurrentState() != models.StateConfirmation {
		t.Errorf("store failure must not advance state, got %s", c.CurrentState())
	}
	if !strings.Contains(reply, "Przepraszam") {
		t.Errorf("reply = %q, want an apology", reply)
	}
}

func TestConfirmationRejectionReturnsToScheduling(t *testing.T) {
	e, _, _ := newTestEngine(t)
	c := contextInState(models.StateConfirmation)
	slot := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	c.SelectedSlot = &slot
	c.CollectStep = models.CollectAddress
	c.ShowingSlots = true

	e.Handle(context.Background(), c, "nie")

	if c.CurrentState() != models.StateServiceScheduling {
		t.Errorf("state = %s, want %s", c.CurrentState(), models.StateServiceScheduling)
	}
	if c.CollectStep != models.CollectName {
		t.Errorf("collect step = %s, want a restart at %s", c.CollectStep, models.CollectName)
	}
}

func TestEndRestartsConversation(t *testing.T) {
	e, _, _ := newTestEngine(t)
	c := contextInState(models.StateEnd)
	c.GDPRConsent = true
	c.IssueDescription = "stary problem"

	reply := e.Handle(context.Background(), c, "tak")

	if c.CurrentState() != models.StateWelcome {
		t.Errorf("state = %s, want %s", c.CurrentState(), models.StateWelcome)
	}
	if c.GDPRConsent || c.IssueDescription != "" {
		t.Error("restart must clear the previous conversation's data")
	}
	if !strings.Contains(reply, "W czym jeszcze mogę pomóc") {
		t.Errorf("reply = %q", reply)
	}
}

func TestEndGoodbye(t *testing.T) {
	e, _, _ := newTestEngine(t)
	c := contextInState(models.StateEnd)

	reply := e.Handle(context.Background(), c, "nie, dziękuję")
	if !strings.Contains(reply, "Do widzenia") {
		t.Errorf("reply = %q", reply)
	}
	if c.CurrentState() != models.StateEnd {
		t.Errorf("state = %s", c.CurrentState())
	}
}

func TestHandleRecordsHistory(t *testing.T) {
	e, _, _ := newTestEngine(t)
	c := NewContext()

	e.Handle(context.Background(), c, "tak")

	if len(c.Messages) != 2 {
		t.Fatalf("got %d messages, want user+assistant", len(c.Messages))
	}
	if c.Messages[0].Role != "user" || c.Messages[1].Role != "assistant" {
		t.Errorf("roles = %s, %s", c.Messages[0].Role, c.Messages[1].Role)
	}
}
